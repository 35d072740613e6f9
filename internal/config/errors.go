package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidURL is returned when the registry or map URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url: must be an absolute http or https url")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the average delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxRows is returned when maxrows is below 2.
	ErrInvalidMaxRows = errors.New("invalid max rows: must be at least 2")

	// ErrInvalidConcurrency is returned when the watch concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxPages is returned when the page cap is negative.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidMaxFailures is returned when the failure limit is not positive.
	ErrInvalidMaxFailures = errors.New("invalid max failures: must be positive")

	// ErrEmptyAlphabet is returned when no seed alphabet is configured.
	ErrEmptyAlphabet = errors.New("empty alphabet: at least one character is required")

	// ErrInvalidSeparator is returned when a separator is not exactly one character.
	ErrInvalidSeparator = errors.New("invalid separator: must be a single character")

	// ErrConflictingReportFormats is returned when both --json and --markdown are given.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
