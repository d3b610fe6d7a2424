package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/runner/streak"
)

func addStreak(topLevel *cobra.Command) {
	var calendar bool

	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Show how many days in a row you journaled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := streak.Streak{App: a, Calendar: calendar}
				return s.Do(ctx)
			})
		},
	}

	cmd.Flags().BoolVarP(&calendar, "calendar", "c", false, "Also show this month with journaled days marked.")
	topLevel.AddCommand(cmd)
}
