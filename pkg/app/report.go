package app

import (
	"sort"
	"time"

	"tableflip.dev/whisper/pkg/entry"
)

// MoodCount is how often one mood was logged in a report window.
type MoodCount struct {
	Mood  string
	Count int
	Last  time.Time
}

// ReportResult summarises the entries in a time window.
type ReportResult struct {
	Since     time.Time
	Until     time.Time
	Moods     []MoodCount
	Favorites []entry.JournalEntry
	Total     int
}

// Report groups entries dated between since and until by mood, most
// frequent first.
func Report(entries []entry.JournalEntry, since, until time.Time) ReportResult {
	if since.After(until) {
		since, until = until, since
	}
	res := ReportResult{Since: since, Until: until}

	byMood := make(map[string]*MoodCount)
	for _, e := range entries {
		if e.Date.Before(since) || e.Date.After(until) {
			continue
		}
		res.Total++
		if e.IsFavorited {
			res.Favorites = append(res.Favorites, e.Clone())
		}
		mc, ok := byMood[e.Mood]
		if !ok {
			mc = &MoodCount{Mood: e.Mood}
			byMood[e.Mood] = mc
		}
		mc.Count++
		if e.Date.After(mc.Last) {
			mc.Last = e.Date
		}
	}

	res.Moods = make([]MoodCount, 0, len(byMood))
	for _, mc := range byMood {
		res.Moods = append(res.Moods, *mc)
	}
	sort.Slice(res.Moods, func(i, j int) bool {
		if res.Moods[i].Count != res.Moods[j].Count {
			return res.Moods[i].Count > res.Moods[j].Count
		}
		return res.Moods[i].Mood < res.Moods[j].Mood
	})
	return res
}
