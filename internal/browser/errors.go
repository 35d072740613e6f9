package browser

import "errors"

var (
	// ErrUnexpectedStatus is returned for responses outside the 2xx range.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrFormNotFound is returned when the current page has no matching form.
	ErrFormNotFound = errors.New("form not found")

	// ErrNoPage is returned when a form is submitted before any page was opened.
	ErrNoPage = errors.New("no page has been opened")

	// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
	// Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)
