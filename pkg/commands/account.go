package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/runner/account"
)

func addSignIn(topLevel *cobra.Command) {
	var user string
	cmd := &cobra.Command{
		Use:   "signin <user>",
		Short: "Sign in and start syncing that user's journal",
		Example: `
whisper signin alice
`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
				return errors.New("requires exactly one user")
			}
			user = strings.TrimSpace(args[0])
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := account.SignIn{App: a, User: user}
				return s.Do(ctx)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addSignOut(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "signout",
		Short: "Sign out and clear the widget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := account.SignOut{App: a}
				return s.Do(ctx)
			})
		},
	}
	topLevel.AddCommand(cmd)
}

func addDeleteAccount(topLevel *cobra.Command) {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Erase every entry of the signed-in user and sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				s := account.DeleteAccount{App: a}
				return s.Do(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion.")
	topLevel.AddCommand(cmd)
}
