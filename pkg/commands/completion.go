package commands

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/config"
	"tableflip.dev/whisper/pkg/identity"
	"tableflip.dev/whisper/pkg/mood"
	"tableflip.dev/whisper/pkg/store"
)

func addCompletions(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generates bash completion scripts",
		Long: `To load completion run

. <(whisper completion)

To configure your bash shell to load completions for each session add to your bashrc

# ~/.bashrc or ~/.profile
. <(whisper completion)
`,
		Run: func(cmd *cobra.Command, args []string) {
			_ = topLevel.GenBashCompletion(os.Stdout)
		},
	}

	topLevel.AddCommand(cmd)
}

func moodCompletions(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, m := range mood.Names() {
		if strings.HasPrefix(m, strings.ToLower(toComplete)) {
			out = append(out, m)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// idCompletions reads ids straight from the store so completion never
// starts a subscription.
func idCompletions(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ctx := context.Background()
	id, err := identity.NewKeyringProvider(identity.Service).Current(ctx)
	if err != nil || id == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	s, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var ids []string
	for _, r := range s.List(ctx, id.ID).Records {
		if strings.HasPrefix(r.ID, toComplete) {
			ids = append(ids, r.ID)
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
