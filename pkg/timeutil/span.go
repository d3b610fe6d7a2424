// Package timeutil parses the day spans used by reports.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultSpan is used when no span is given.
const DefaultSpan = "30d"

var (
	spanPattern = regexp.MustCompile(`^\s*(\d+)\s*([a-z]+)`)
	unitDays    = map[string]int{
		"d":      1,
		"day":    1,
		"days":   1,
		"w":      7,
		"wk":     7,
		"wks":    7,
		"week":   7,
		"weeks":  7,
		"mo":     30,
		"month":  30,
		"months": 30,
		"y":      365,
		"year":   365,
		"years":  365,
	}
)

// ParseSpan reads spans like "7d", "2w" or "1mo1w" and returns the number of
// days with a compact label. A bare number is days.
func ParseSpan(input string) (int, string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		s = DefaultSpan
	}
	if n, err := strconv.Atoi(s); err == nil {
		s = fmt.Sprintf("%dd", n)
	}

	total := 0
	for rest := s; len(rest) > 0; {
		m := spanPattern.FindStringSubmatch(rest)
		if len(m) != 3 {
			return 0, "", fmt.Errorf("invalid span segment %q", strings.TrimSpace(rest))
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, "", fmt.Errorf("invalid span value %q: %w", m[1], err)
		}
		per, ok := unitDays[m[2]]
		if !ok {
			return 0, "", fmt.Errorf("unsupported span unit %q", m[2])
		}
		total += n * per
		rest = rest[len(m[0]):]
	}
	if total <= 0 {
		return 0, "", fmt.Errorf("span must be at least one day")
	}
	return total, FormatSpan(total), nil
}

// FormatSpan renders days as weeks and days, e.g. 9 -> "1w2d".
func FormatSpan(days int) string {
	if days <= 0 {
		return "0d"
	}
	var b strings.Builder
	if w := days / 7; w > 0 {
		fmt.Fprintf(&b, "%dw", w)
	}
	if d := days % 7; d > 0 {
		fmt.Fprintf(&b, "%dd", d)
	}
	return b.String()
}

// Window returns the span of days ending at now. since is the start of the
// first day in now's location, so "1d" means today.
func Window(now time.Time, days int) (time.Time, time.Time) {
	if days <= 0 {
		days = 1
	}
	y, m, d := now.Date()
	since := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))
	return since, now
}
