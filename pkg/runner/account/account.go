// Package account runs sign-in, sign-out and account deletion.
package account

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"tableflip.dev/whisper/pkg/app"
	"tableflip.dev/whisper/pkg/identity"
)

type SignIn struct {
	App  *app.App
	User string
}

func (n *SignIn) Do(ctx context.Context) error {
	if err := n.App.Session.SignIn(ctx, identity.Identity{ID: n.User}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(color.Output, "signed in as %s\n", color.New(color.Bold).Sprint(n.User))
	return nil
}

type SignOut struct {
	App *app.App
}

func (n *SignOut) Do(ctx context.Context) error {
	if err := n.App.Session.SignOut(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(color.Output, "signed out")
	return nil
}

type DeleteAccount struct {
	App *app.App
}

func (n *DeleteAccount) Do(ctx context.Context) error {
	if _, err := n.App.RequireIdentity(ctx); err != nil {
		return err
	}
	if err := n.App.Session.DeleteAccount(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(color.Output, "account deleted")
	return nil
}
