package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/commands/options"
	"tableflip.dev/whisper/pkg/runner/list"
)

func addList(topLevel *cobra.Command) {
	io := &options.IDOptions{}
	var (
		mood      string
		favorites bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List entries, oldest first",
		Example: `
whisper list
whisper list --mood calm --show-id
whisper list --favorites --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := list.List{
					App:       a,
					ShowID:    io.ShowID,
					JSON:      oo.JSON,
					Mood:      mood,
					Favorites: favorites,
				}
				return s.Do(ctx)
			})
		},
	}

	cmd.Flags().StringVarP(&mood, "mood", "m", "", "Only entries with this mood.")
	_ = cmd.RegisterFlagCompletionFunc("mood", moodCompletions)
	cmd.Flags().BoolVarP(&favorites, "favorites", "f", false, "Only favorited entries.")
	options.AddShowIDArgs(cmd, io)
	options.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}
