package watch

import "errors"

// ErrInvalidSchedule is returned for a schedule that cron cannot parse.
var ErrInvalidSchedule = errors.New("invalid schedule")
