package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/commands/options"
	"tableflip.dev/whisper/pkg/config"
	"tableflip.dev/whisper/pkg/runner/widget"
	sharedwidget "tableflip.dev/whisper/pkg/widget"
)

func addWidget(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "widget",
		Short: "Show what the home screen widget currently displays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, err := config.Load()
			if err != nil {
				return oo.HandleError(err)
			}
			shared, err := sharedwidget.NewDiskvStorage(cfg.SharedPath)
			if err != nil {
				return oo.HandleError(err)
			}
			s := widget.Widget{Shared: shared, JSON: oo.JSON}
			return oo.HandleError(s.Do(context.Background()))
		},
	}

	options.AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}
