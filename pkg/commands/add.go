package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/commands/options"
	"tableflip.dev/whisper/pkg/runner/add"
)

func addAdd(topLevel *cobra.Command) {
	do := &options.DraftOptions{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Journal how you feel",
		Example: `
whisper add --mood calm -q "What went well?" -p "long walk"
whisper add --mood tired --free -q "Anything on your mind?" -p "" --text "Rest is progress."
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := add.Add{
					App:   a,
					Draft: do.Draft(),
					JSON:  oo.JSON,
				}
				return s.Do(ctx)
			})
		},
	}

	options.AddDraftArgs(cmd, do)
	_ = cmd.RegisterFlagCompletionFunc("mood", moodCompletions)
	options.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}
