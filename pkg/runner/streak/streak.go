package streak

import (
	"context"
	"time"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/printers"
)

type Streak struct {
	App      *app.App
	Calendar bool
}

func (n *Streak) Do(ctx context.Context) error {
	if _, err := n.App.RequireIdentity(ctx); err != nil {
		return err
	}

	pp := printers.PrettyPrint{}
	pp.Streak(n.App.Journal.Streak())
	if n.Calendar {
		pp.NewLine()
		pp.PrintMonth(time.Now(), n.App.Journal.Entries()...)
	}
	return nil
}
