package remove

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/journal"
)

type Remove struct {
	App *app.App
	ID  string
}

func (n *Remove) Do(ctx context.Context) error {
	if _, err := n.App.RequireIdentity(ctx); err != nil {
		return err
	}
	e, err := n.App.Resolve(n.ID)
	if err != nil {
		return err
	}
	op, err := n.App.Journal.DeleteEntry(e.ID)
	if err != nil {
		return err
	}
	state, err := op.Wait(ctx)
	if err != nil {
		return err
	}
	if state != journal.OpConfirmed {
		return fmt.Errorf("delete of %s failed, entry restored: %w", e.ID, op.Err())
	}
	f := color.New(color.Faint)
	_, _ = f.Fprintf(color.Output, "deleted %s (%s)\n", e.ID, e.Mood)
	return nil
}
