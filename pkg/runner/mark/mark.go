// Package mark runs the flag and presentation changes on a single entry.
package mark

import (
	"context"
	"fmt"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/journal"
	"tableflip.dev/whisper/pkg/printers"
)

// Pin pins (or with Off, unpins) an entry.
type Pin struct {
	App *app.App
	ID  string
	Off bool
}

func (n *Pin) Do(ctx context.Context) error {
	if _, err := n.App.RequireIdentity(ctx); err != nil {
		return err
	}
	e, err := n.App.Resolve(n.ID)
	if err != nil {
		return err
	}
	ops, err := n.App.Journal.SetPinned(e.ID, !n.Off)
	if err != nil {
		return err
	}
	return finish(ctx, n.App, e.ID, ops...)
}

// Favorite marks (or with Off, unmarks) an entry as favorite.
type Favorite struct {
	App *app.App
	ID  string
	Off bool
}

func (n *Favorite) Do(ctx context.Context) error {
	if _, err := n.App.RequireIdentity(ctx); err != nil {
		return err
	}
	e, err := n.App.Resolve(n.ID)
	if err != nil {
		return err
	}
	op, err := n.App.Journal.SetFavorited(e.ID, !n.Off)
	if err != nil {
		return err
	}
	return finish(ctx, n.App, e.ID, op)
}

// Background changes the background image and text color of an entry.
type Background struct {
	App       *app.App
	ID        string
	Image     string
	TextColor string
}

func (n *Background) Do(ctx context.Context) error {
	if _, err := n.App.RequireIdentity(ctx); err != nil {
		return err
	}
	e, err := n.App.Resolve(n.ID)
	if err != nil {
		return err
	}
	op, err := n.App.Journal.ChangeBackground(e.ID, n.Image, n.TextColor)
	if err != nil {
		return err
	}
	return finish(ctx, n.App, e.ID, op)
}

// finish waits for the remote and prints the entry as it now stands. Patch
// failures are reported but the next sync corrects the local copy.
func finish(ctx context.Context, a *app.App, id string, ops ...*journal.Op) error {
	for _, op := range ops {
		state, err := op.Wait(ctx)
		if err != nil {
			return err
		}
		if state != journal.OpConfirmed {
			a.Log.Warn("remote update failed", "id", op.EntryID, "state", state, "err", op.Err())
			return fmt.Errorf("update of %s not saved: %w", op.EntryID, op.Err())
		}
	}
	e, ok := a.Journal.Entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", journal.ErrNotFound, id)
	}
	pp := printers.PrettyPrint{ShowID: true}
	pp.Entries(e)
	return nil
}
