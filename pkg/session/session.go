// Package session ties the journal engine to the signed-in identity.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"tableflip.dev/whisper/pkg/identity"
)

// Engine is the part of journal.Manager the controller drives.
type Engine interface {
	Attach(ctx context.Context, id *identity.Identity) error
	Detach()
	ClearAll(ctx context.Context) error
}

// Eraser removes every remote record of an identity.
type Eraser interface {
	EraseIdentity(identity string) error
}

// Controller reacts to identity changes: a signed-in identity attaches the
// engine, signing out clears it.
type Controller struct {
	provider identity.Provider
	engine   Engine
	eraser   Eraser
	log      *log.Logger

	mu      sync.Mutex
	applied bool
	current *identity.Identity
}

// New creates a controller. eraser may be nil, in which case DeleteAccount
// only clears local state.
func New(provider identity.Provider, engine Engine, eraser Eraser, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{provider: provider, engine: engine, eraser: eraser, log: logger}
}

// Resume attaches the engine to whoever is signed in now and returns them.
func (c *Controller) Resume(ctx context.Context) (*identity.Identity, error) {
	cur, err := c.provider.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: current identity: %w", err)
	}
	if err := c.apply(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// Run resumes the current identity, then follows the provider's change
// stream until ctx is done. The engine is detached on return.
func (c *Controller) Run(ctx context.Context) error {
	changes := c.provider.Watch(ctx)
	if _, err := c.Resume(ctx); err != nil {
		return err
	}
	defer c.detach()

	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-changes:
			if !ok {
				return nil
			}
			if err := c.apply(ctx, id); err != nil {
				c.log.Error("applying identity change", "err", err)
			}
		}
	}
}

// SignIn signs id in and attaches the engine to it.
func (c *Controller) SignIn(ctx context.Context, id identity.Identity) error {
	if err := c.provider.SignIn(ctx, id); err != nil {
		return fmt.Errorf("session: sign in: %w", err)
	}
	cur, err := c.provider.Current(ctx)
	if err != nil {
		return fmt.Errorf("session: current identity: %w", err)
	}
	return c.apply(ctx, cur)
}

// SignOut signs out and clears local journal state.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.provider.SignOut(ctx); err != nil {
		return fmt.Errorf("session: sign out: %w", err)
	}
	return c.apply(ctx, nil)
}

// DeleteAccount clears local state, erases the identity's remote records and
// signs out.
func (c *Controller) DeleteAccount(ctx context.Context) error {
	cur, err := c.provider.Current(ctx)
	if err != nil {
		return fmt.Errorf("session: current identity: %w", err)
	}
	if cur == nil {
		return identity.ErrInvalid
	}
	if err := c.engine.ClearAll(ctx); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	if c.eraser != nil {
		if err := c.eraser.EraseIdentity(cur.ID); err != nil {
			return fmt.Errorf("session: erase %s: %w", cur.ID, err)
		}
	}
	c.log.Info("account deleted", "identity", cur.ID)
	return c.SignOut(ctx)
}

// apply skips repeats of the identity already applied.
func (c *Controller) apply(ctx context.Context, id *identity.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applied && same(c.current, id) {
		return nil
	}

	if id == nil {
		c.log.Info("signed out")
		if err := c.engine.ClearAll(ctx); err != nil {
			return fmt.Errorf("session: clear: %w", err)
		}
	} else {
		c.log.Info("signed in", "identity", id.ID)
		if err := c.engine.Attach(ctx, id); err != nil {
			return fmt.Errorf("session: attach: %w", err)
		}
	}
	c.applied = true
	c.current = id
	return nil
}

func (c *Controller) detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.Detach()
	c.applied = false
	c.current = nil
}

func same(a, b *identity.Identity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
