package mood

import colorful "github.com/lucasb-eyer/go-colorful"

// Background is an image asset paired with the text color that reads on it.
type Background struct {
	Image     string
	TextColor string
}

// Backgrounds is the rotation used for new entries.
var Backgrounds = []Background{
	{Image: "bg_dawn", TextColor: "#1B1B1B"},
	{Image: "bg_meadow", TextColor: "#1B1B1B"},
	{Image: "bg_dusk", TextColor: "#FFFFFF"},
	{Image: "bg_ocean", TextColor: "#FFFFFF"},
	{Image: "bg_sand", TextColor: "#1B1B1B"},
	{Image: "bg_night", TextColor: "#FFFFFF"},
}

// Next returns the background for the entry created after count existing
// entries.
func Next(count int) Background {
	if count < 0 {
		count = 0
	}
	return Backgrounds[count%len(Backgrounds)]
}

// TextColorOn picks black or white text for a solid background color.
func TextColorOn(bg colorful.Color) string {
	l, _, _ := bg.Lab()
	if l > 0.6 {
		return "#1B1B1B"
	}
	return "#FFFFFF"
}
