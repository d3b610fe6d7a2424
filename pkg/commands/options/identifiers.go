package options

import (
	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"
)

// IDOptions
type IDOptions struct {
	ShowID bool
}

func AddShowIDArgs(cmd *cobra.Command, o *IDOptions) {
	cmd.Flags().BoolVarP(&o.ShowID, "show-id", "k", false,
		"Show the ID of each entry.")
}

// ToggleOptions
type ToggleOptions struct {
	Off bool
}

func AddToggleArgs(cmd *cobra.Command, o *ToggleOptions, what string) {
	cmd.Flags().BoolVar(&o.Off, "off", false,
		base.Wrap80("Clear the "+what+" flag instead of setting it."))
}
