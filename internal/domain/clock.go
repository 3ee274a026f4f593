package domain

import "time"

// NormalizeTime converts t to UTC and truncates it to microseconds, the
// resolution of a PostgreSQL timestamptz. Every instant that enters the
// review log or the memory state passes through here so that replaying
// stored events reproduces the values computed at submit time.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// NormalizeTimePtr is NormalizeTime for optional instants.
func NormalizeTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := NormalizeTime(*t)
	return &n
}
