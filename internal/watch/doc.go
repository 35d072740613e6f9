// Package watch runs stored watchjobs against the case registry.
//
// Each run fetches the cases newer than a job's watermark with a fresh
// registry session, then moves the watermark to the newest case returned.
// Jobs run concurrently up to a limit; a failing job does not stop the
// others. RunScheduled repeats a run on a cron schedule.
package watch
