package addresses

import "errors"

var (
	// ErrTooManyFailures is returned when consecutive suggestion requests keep failing.
	ErrTooManyFailures = errors.New("too many consecutive request failures")

	// ErrCrawlLocked is returned when another process holds the crawl lock.
	ErrCrawlLocked = errors.New("another crawl is running")

	// ErrStatusRegression is returned by stores when an update would break
	// the monotone query status order.
	ErrStatusRegression = errors.New("query status regression")

	// ErrStaleQuery is returned by stores when a guarded update finds the
	// query in a different status than expected.
	ErrStaleQuery = errors.New("query status changed concurrently")

	// ErrMalformedResponse is returned when a suggestion response is not the expected JSON object.
	ErrMalformedResponse = errors.New("malformed suggestion response")
)
