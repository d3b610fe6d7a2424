package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/runner/remove"
)

func addDelete(topLevel *cobra.Command) {
	var id string

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an entry",
		Example: `
whisper delete 3f2a
`,
		Args:              oneID(&id),
		ValidArgsFunction: idCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := remove.Remove{App: a, ID: id}
				return s.Do(ctx)
			})
		},
	}

	topLevel.AddCommand(cmd)
}
