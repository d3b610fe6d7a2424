package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/commands/options"
	"tableflip.dev/whisper/pkg/runner/report"
)

func addReport(topLevel *cobra.Command) {
	ro := &options.ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize moods over the last days",
		Example: `
whisper report
whisper report --window 2w
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				since, until, err := ro.Window(time.Now())
				if err != nil {
					return err
				}
				s := report.Report{App: a, Since: since, Until: until}
				return s.Do(ctx)
			})
		},
	}

	options.AddReportArgs(cmd, ro)
	topLevel.AddCommand(cmd)
}
