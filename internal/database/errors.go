package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database must exist but does not.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrWatchjobNotFound is returned when no watchjob has the requested id.
	ErrWatchjobNotFound = errors.New("watchjob not found")
)
