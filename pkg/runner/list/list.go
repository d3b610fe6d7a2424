package list

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/entry"
	"tableflip.dev/whisper/pkg/printers"
)

type List struct {
	App       *app.App
	ShowID    bool
	JSON      bool
	Mood      string
	Favorites bool
}

func (n *List) Do(ctx context.Context) error {
	id, err := n.App.RequireIdentity(ctx)
	if err != nil {
		return err
	}

	all := n.filtered(n.App.Journal.Entries())
	if n.JSON {
		b, err := json.MarshalIndent(all, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(color.Output, string(b))
		return nil
	}

	pp := printers.PrettyPrint{ShowID: n.ShowID}
	pp.TitleWithCount(id.ID, len(all))
	pp.Entries(all...)
	return nil
}

func (n *List) filtered(all []entry.JournalEntry) []entry.JournalEntry {
	c := make([]entry.JournalEntry, 0, len(all))
	for _, a := range all {
		if n.Mood != "" && !strings.EqualFold(n.Mood, a.Mood) {
			continue
		}
		if n.Favorites && !a.IsFavorited {
			continue
		}
		c = append(c, a)
	}
	return c
}
