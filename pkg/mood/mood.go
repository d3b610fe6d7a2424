// Package mood maps mood labels to presentation colors and picks the rotating
// card background for new entries.
package mood

import (
	"hash/fnv"
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var palette = map[string]string{
	"happy":    "#FFD166",
	"calm":     "#8FD3C7",
	"grateful": "#F4A261",
	"excited":  "#FF9F1C",
	"loved":    "#F28DB2",
	"sad":      "#7AA2E3",
	"anxious":  "#C3A6E0",
	"stressed": "#E07A5F",
	"angry":    "#EF6F6C",
	"tired":    "#A0A4B8",
}

// Color returns the color for a mood. Unknown moods get a stable pastel
// derived from the label.
func Color(mood string) colorful.Color {
	key := strings.ToLower(strings.TrimSpace(mood))
	if hex, ok := palette[key]; ok {
		if c, err := colorful.Hex(hex); err == nil {
			return c
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return colorful.Hsv(float64(h.Sum32()%360), 0.35, 0.92)
}

// ColorTag is the hex string stamped on entries at creation.
func ColorTag(mood string) string {
	return Color(mood).Hex()
}

// Known reports whether mood has a fixed palette color.
func Known(mood string) bool {
	_, ok := palette[strings.ToLower(strings.TrimSpace(mood))]
	return ok
}

// Names lists the moods with a fixed palette color, sorted.
func Names() []string {
	names := make([]string, 0, len(palette))
	for k := range palette {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
