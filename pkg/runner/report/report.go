package report

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/printers"
)

type Report struct {
	App   *app.App
	Since time.Time
	Until time.Time
}

func (n *Report) Do(ctx context.Context) error {
	if _, err := n.App.RequireIdentity(ctx); err != nil {
		return err
	}
	res := app.Report(n.App.Journal.Entries(), n.Since, n.Until)

	pp := printers.PrettyPrint{}
	pp.TitleWithCount(fmt.Sprintf("%s - %s", res.Since.Format("Jan 2"), res.Until.Format("Jan 2")), res.Total)

	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Mood"), bold.Sprint("Count"), bold.Sprint("Last"))
	for _, m := range res.Moods {
		tbl.AddRow(printers.MoodChip(m.Mood), m.Count, m.Last.Local().Format("Jan 2"))
	}
	tbl.RightAlign(1)
	_, _ = fmt.Fprintln(color.Output, tbl)

	if len(res.Favorites) > 0 {
		pp.NewLine()
		pp.Title("Favorites")
		pp.Entries(res.Favorites...)
	}
	return nil
}
