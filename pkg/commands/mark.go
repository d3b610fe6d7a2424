package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/commands/options"
	"tableflip.dev/whisper/pkg/runner/mark"
)

func oneID(id *string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("requires an entry id")
		}
		*id = args[0]
		return nil
	}
}

func addPin(topLevel *cobra.Command) {
	to := &options.ToggleOptions{}
	var id string

	cmd := &cobra.Command{
		Use:   "pin <id>",
		Short: "Pin an entry to the widget, unpinning any other",
		Example: `
whisper pin 3f2a
whisper pin 3f2a --off
`,
		Args:              oneID(&id),
		ValidArgsFunction: idCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := mark.Pin{App: a, ID: id, Off: to.Off}
				return s.Do(ctx)
			})
		},
	}

	options.AddToggleArgs(cmd, to, "pinned")
	topLevel.AddCommand(cmd)
}

func addFavorite(topLevel *cobra.Command) {
	to := &options.ToggleOptions{}
	var id string

	cmd := &cobra.Command{
		Use:     "fav <id>",
		Aliases: []string{"favorite"},
		Short:   "Mark an entry as a favorite",
		Example: `
whisper fav 3f2a
whisper fav 3f2a --off
`,
		Args:              oneID(&id),
		ValidArgsFunction: idCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := mark.Favorite{App: a, ID: id, Off: to.Off}
				return s.Do(ctx)
			})
		},
	}

	options.AddToggleArgs(cmd, to, "favorite")
	topLevel.AddCommand(cmd)
}

func addBackground(topLevel *cobra.Command) {
	var id, image, textColor string

	cmd := &cobra.Command{
		Use:   "bg <id> <image> [text-color]",
		Short: "Change the card background of an entry",
		Example: `
whisper bg 3f2a bg_forest "#FFFFFF"
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 || len(args) > 3 {
				return errors.New("requires an entry id, an image and optionally a text color")
			}
			id, image = args[0], args[1]
			if len(args) == 3 {
				textColor = args[2]
			}
			return nil
		},
		ValidArgsFunction: idCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := mark.Background{App: a, ID: id, Image: image, TextColor: textColor}
				return s.Do(ctx)
			})
		},
	}

	topLevel.AddCommand(cmd)
}
