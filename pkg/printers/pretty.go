package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/whisper/pkg/entry"
)

type PrettyPrint struct {
	ShowID bool
	Out    io.Writer
}

const dateLayout = "Jan 2 15:04"

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)
	_, _ = t.Fprintln(pp.out(), title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	_, _ = t.Fprint(pp.out(), title)
	_, _ = c.Fprintf(pp.out(), " - %d", count)

	switch count {
	case 1:
		_, _ = c.Fprintln(pp.out(), " entry")
	default:
		_, _ = c.Fprintln(pp.out(), " entries")
	}
}

// Entries prints one row per entry, oldest first.
func (pp *PrettyPrint) Entries(entries ...entry.JournalEntry) {
	if len(entries) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Fprint(pp.out(), " none\n\n")
		return
	}

	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.Wrap = true
	for _, e := range entries {
		row := make([]interface{}, 0, 5)
		if pp.ShowID {
			row = append(row, y.Sprint(e.ID))
		}
		row = append(row,
			faint.Sprint(e.Date.Local().Format(dateLayout)),
			flags(e),
			MoodChip(e.Mood),
			e.Text,
		)
		tbl.AddRow(row...)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	_, _ = fmt.Fprintln(pp.out(), "")
}

// Entry prints a single entry with its prompts.
func (pp *PrettyPrint) Entry(e entry.JournalEntry) {
	b := color.New(color.Bold)
	i := color.New(color.Italic)
	faint := color.New(color.Faint)

	_, _ = fmt.Fprintf(pp.out(), "%s %s %s\n", flags(e), MoodChip(e.Mood), faint.Sprint(e.Date.Local().Format(dateLayout)))
	if e.Text != "" {
		_, _ = b.Fprintln(pp.out(), e.Text)
	}
	for n, answer := range e.Prompts {
		if n < len(e.PromptQuestions) {
			_, _ = i.Fprintln(pp.out(), e.PromptQuestions[n])
		}
		if answer == "" {
			answer = faint.Sprint("-")
		}
		_, _ = fmt.Fprintf(pp.out(), "  %s\n", answer)
	}
	if pp.ShowID {
		_, _ = faint.Fprintln(pp.out(), e.ID)
	}
}

func (pp *PrettyPrint) Streak(n int) {
	b := color.New(color.Bold, color.FgHiYellow)
	unit := "days"
	if n == 1 {
		unit = "day"
	}
	_, _ = fmt.Fprintf(pp.out(), "%s %s\n", b.Sprintf("%d", n), unit)
}

func flags(e entry.JournalEntry) string {
	var sb strings.Builder
	if e.IsPinned {
		sb.WriteString(color.New(color.FgHiCyan).Sprint("▲"))
	} else {
		sb.WriteString(" ")
	}
	if e.IsFavorited {
		sb.WriteString(color.New(color.FgHiRed).Sprint("♥"))
	} else {
		sb.WriteString(" ")
	}
	return sb.String()
}
