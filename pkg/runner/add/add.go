package add

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/entry"
	"tableflip.dev/whisper/pkg/journal"
	"tableflip.dev/whisper/pkg/printers"
)

type Add struct {
	App   *app.App
	Draft entry.Draft
	JSON  bool
}

func (n *Add) Do(ctx context.Context) error {
	if _, err := n.App.RequireIdentity(ctx); err != nil {
		return err
	}

	e, op, err := n.App.Compose(ctx, n.Draft)
	if err != nil {
		return err
	}
	state, err := op.Wait(ctx)
	if err != nil {
		return err
	}
	if state != journal.OpConfirmed {
		return fmt.Errorf("entry not saved: %w", op.Err())
	}

	if n.JSON {
		b, err := json.MarshalIndent(e, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(color.Output, string(b))
		return nil
	}

	pp := printers.PrettyPrint{ShowID: true}
	pp.Entry(e)
	return nil
}
