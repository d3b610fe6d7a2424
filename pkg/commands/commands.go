package commands

import (
	"github.com/spf13/cobra"

	base "github.com/n3wscott/cli-base/pkg/commands/options"

	"tableflip.dev/whisper/pkg/commands/options"
)

var (
	oo = &options.OutputOptions{}
)

func New() *cobra.Command {

	cmd := &cobra.Command{
		Use:   "whisper",
		Short: base.Wrap80("Mood journaling with a home screen mantra."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addSignIn(topLevel)
	addSignOut(topLevel)
	addDeleteAccount(topLevel)
	addAdd(topLevel)
	addList(topLevel)
	addPin(topLevel)
	addFavorite(topLevel)
	addBackground(topLevel)
	addDelete(topLevel)
	addStreak(topLevel)
	addReport(topLevel)
	addWidget(topLevel)
	addWatch(topLevel)
	addMCP(topLevel)
	addCompletions(topLevel)
	addVersion(topLevel)
}
