// Package watch follows the signed-in identity and reprints the journal as
// snapshots and confirmations arrive.
package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/journal"
	"tableflip.dev/whisper/pkg/printers"
)

type Watch struct {
	App    *app.App
	ShowID bool
	// Quiet coalesces bursts of events into one redraw.
	Quiet time.Duration
}

func (n *Watch) Do(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.App.Session.Run(ctx) }()

	quiet := n.Quiet
	if quiet <= 0 {
		quiet = 100 * time.Millisecond
	}
	redraw := time.NewTimer(quiet)
	defer redraw.Stop()

	pp := printers.PrettyPrint{ShowID: n.ShowID}
	warn := color.New(color.FgYellow)
	for {
		select {
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case ev := <-n.App.Journal.Events():
			switch ev.Type {
			case journal.EventOpFailed:
				_, _ = warn.Fprintf(color.Output, "! %s %s failed: %v\n", ev.Op.Kind, ev.EntryID, ev.Err)
			case journal.EventRecordSkipped:
				_, _ = warn.Fprintf(color.Output, "! skipped unreadable entry %s\n", ev.EntryID)
			case journal.EventEntriesChanged, journal.EventSynced:
				redraw.Reset(quiet)
			}
		case <-redraw.C:
			n.draw(&pp)
		}
	}
}

func (n *Watch) draw(pp *printers.PrettyPrint) {
	id := n.App.Journal.Identity()
	if id == nil {
		_, _ = fmt.Fprintln(color.Output, color.New(color.Faint).Sprint("signed out"))
		return
	}
	all := n.App.Journal.Entries()
	pp.TitleWithCount(id.ID, len(all))
	pp.Entries(all...)
	pp.Streak(n.App.Journal.Streak())
	pp.NewLine()
}
