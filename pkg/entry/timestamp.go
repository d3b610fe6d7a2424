package entry

import (
	"sort"
	"time"
)

// FormatTime renders v the way entries are written to shared storage.
func FormatTime(v time.Time) string {
	return v.UTC().Format(time.RFC3339Nano)
}

// Day truncates t to midnight of its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return Day(a, loc).Equal(Day(b, loc))
}

// Less is the ordering used for the authoritative collection.
func Less(a, b JournalEntry) bool {
	if a.Date.Equal(b.Date) {
		return a.ID < b.ID
	}
	return a.Date.Before(b.Date)
}

// InsertIndex returns where e belongs in the date-sorted slice.
func InsertIndex(entries []JournalEntry, e JournalEntry) int {
	return sort.Search(len(entries), func(i int) bool {
		return Less(e, entries[i])
	})
}
