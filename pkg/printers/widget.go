package printers

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"tableflip.dev/whisper/pkg/mood"
	"tableflip.dev/whisper/pkg/widget"
)

const widgetWidth = 36

// styled reports whether ANSI styling should be emitted on stdout. NO_COLOR
// and CLICOLOR are honored through termenv.
func styled() bool {
	if color.NoColor || termenv.EnvColorProfile() == termenv.Ascii {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// MoodChip renders the mood in its palette color.
func MoodChip(m string) string {
	if !styled() {
		return m
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(mood.ColorTag(m))).
		Bold(true).
		Render(m)
}

// Widget draws the shared widget area the way the renderer would see it.
func (pp *PrettyPrint) Widget(p widget.Payload, ok bool) {
	_, _ = fmt.Fprintln(pp.out(), RenderWidget(p, ok, styled()))
}

// RenderWidget lays out the payload in a fixed-width card. An empty card is
// drawn when ok is false.
func RenderWidget(p widget.Payload, ok bool, style bool) string {
	body := "nothing pinned"
	if ok {
		text := p.Text
		if strings.TrimSpace(text) == "" {
			text = "…"
		}
		body = wordwrap.String(text, widgetWidth-4) + "\n\n" + p.Mood
		if !p.Timestamp.IsZero() {
			body += " · " + p.Timestamp.Local().Format("Jan 2")
		}
	}

	if !style {
		lines := strings.Split(body, "\n")
		rule := "+" + strings.Repeat("-", widgetWidth-2) + "+"
		var sb strings.Builder
		sb.WriteString(rule + "\n")
		for _, l := range lines {
			sb.WriteString("| " + l + "\n")
		}
		sb.WriteString(rule)
		return sb.String()
	}

	card := lipgloss.NewStyle().
		Width(widgetWidth).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder())
	if ok {
		bg := mood.Color(p.Mood)
		fg := p.TextColor
		if fg == "" {
			fg = mood.TextColorOn(bg)
		}
		card = card.
			Background(lipgloss.Color(bg.Hex())).
			Foreground(lipgloss.Color(fg)).
			BorderForeground(lipgloss.Color(bg.Hex()))
	} else {
		card = card.Faint(true)
	}
	return card.Render(body)
}
