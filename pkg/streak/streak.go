// Package streak counts consecutive journaling days.
package streak

import (
	"time"

	"tableflip.dev/whisper/pkg/entry"
)

// Compute returns the number of contiguous calendar days with at least one
// entry, ending today. A day without an entry yet today does not break the
// streak; the count then starts from yesterday. Days are taken in today's
// location.
func Compute(entries []entry.JournalEntry, today time.Time) int {
	if len(entries) == 0 {
		return 0
	}
	loc := today.Location()
	days := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		days[dayKey(entry.Day(e.Date, loc))] = struct{}{}
	}

	start := entry.Day(today, loc)
	offset := 0
	if _, ok := days[dayKey(start)]; !ok {
		offset = 1
	}
	count := 0
	for i := offset; ; i++ {
		// AddDate keeps midnight across DST changes.
		if _, ok := days[dayKey(start.AddDate(0, 0, -i))]; !ok {
			break
		}
		count++
	}
	return count
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
