package options

import (
	"time"

	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/timeutil"
)

// ReportOptions
type ReportOptions struct {
	Span string
}

func AddReportArgs(cmd *cobra.Command, o *ReportOptions) {
	cmd.Flags().StringVarP(&o.Span, "window", "w", timeutil.DefaultSpan,
		base.Wrap80("How far back to report, e.g. 7d, 2w, 1mo. A bare number is days."))
}

// Window resolves the span against now.
func (o *ReportOptions) Window(now time.Time) (time.Time, time.Time, error) {
	days, _, err := timeutil.ParseSpan(o.Span)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	since, until := timeutil.Window(now, days)
	return since, until, nil
}
