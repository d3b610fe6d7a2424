// Package app wires the journal engine to its adapters so the CLI and any
// other host share one composition.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"tableflip.dev/whisper/pkg/config"
	"tableflip.dev/whisper/pkg/entry"
	"tableflip.dev/whisper/pkg/identity"
	"tableflip.dev/whisper/pkg/journal"
	"tableflip.dev/whisper/pkg/mantra"
	"tableflip.dev/whisper/pkg/session"
	"tableflip.dev/whisper/pkg/store"
	"tableflip.dev/whisper/pkg/streak"
	"tableflip.dev/whisper/pkg/widget"
)

// SyncTimeout bounds how long Start waits for the first snapshot.
var SyncTimeout = 5 * time.Second

// App is the root composition. Build it with Open and release it with Close.
type App struct {
	Config   *config.Config
	Log      *log.Logger
	Store    *store.Diskv
	Shared   widget.SharedStorage
	Widget   *widget.Bridge
	Streaks  *streak.Cache
	Identity identity.Provider
	Mantra   mantra.Generator
	Journal  *journal.Manager
	Session  *session.Controller
}

// Option overrides a default collaborator.
type Option func(*App)

// WithIdentity replaces the keyring identity provider.
func WithIdentity(p identity.Provider) Option {
	return func(a *App) { a.Identity = p }
}

// WithMantra replaces the generator chosen from config.
func WithMantra(g mantra.Generator) Option {
	return func(a *App) { a.Mantra = g }
}

// Open builds every collaborator from cfg. Nothing is attached until Start.
func Open(cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: no config")
	}
	if logger == nil {
		logger = log.Default()
	}
	a := &App{Config: cfg, Log: logger}
	for _, o := range opts {
		o(a)
	}

	var err error
	if a.Store, err = store.Open(cfg.StorePath); err != nil {
		return nil, err
	}
	shared, err := widget.NewDiskvStorage(cfg.SharedPath)
	if err != nil {
		return nil, err
	}
	a.Shared = shared
	a.Widget = widget.New(shared, widget.NotifierFunc(func() {
		logger.Debug("widget refresh requested", "dir", cfg.SharedPath)
	}))
	if a.Streaks, err = streak.OpenCache(cfg.CachePath); err != nil {
		return nil, err
	}
	if a.Identity == nil {
		a.Identity = identity.NewKeyringProvider(identity.Service)
	}
	if a.Mantra == nil {
		if cfg.LLM.APIKey != "" {
			a.Mantra = mantra.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
		} else {
			a.Mantra = mantra.Static{}
		}
	}

	a.Journal = journal.New(journal.Options{
		Remote:  a.Store,
		Widget:  a.Widget,
		Streaks: a.Streaks,
		Logger:  logger.WithPrefix("journal"),
	})
	a.Session = session.New(a.Identity, a.Journal, accountEraser{store: a.Store, streaks: a.Streaks}, logger.WithPrefix("session"))
	return a, nil
}

// accountEraser drops an identity's remote records and its cached streak.
type accountEraser struct {
	store   *store.Diskv
	streaks *streak.Cache
}

func (e accountEraser) EraseIdentity(id string) error {
	if err := e.store.EraseIdentity(id); err != nil {
		return err
	}
	return e.streaks.Forget(id)
}

// Start attaches to the signed-in identity and waits for its first snapshot.
// It returns the identity, nil when signed out. ctx bounds the subscription.
func (a *App) Start(ctx context.Context) (*identity.Identity, error) {
	id, err := a.Session.Resume(ctx)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, nil
	}
	select {
	case <-a.Journal.Synced():
		return id, nil
	case <-time.After(SyncTimeout):
		return nil, fmt.Errorf("app: no snapshot for %s after %s", id.ID, SyncTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RequireIdentity is Start for commands that need someone signed in.
func (a *App) RequireIdentity(ctx context.Context) (*identity.Identity, error) {
	id, err := a.Start(ctx)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, errors.New("not signed in, run `whisper signin <user>` first")
	}
	return id, nil
}

// Compose generates the mantra for d when it has no text yet and creates the
// entry. A generator failure falls back to the static line and is logged.
func (a *App) Compose(ctx context.Context, d entry.Draft) (entry.JournalEntry, *journal.Op, error) {
	if err := d.Validate(); err != nil {
		return entry.JournalEntry{}, nil, fmt.Errorf("%w: %w", journal.ErrInvalidDraft, err)
	}
	if d.Text == "" {
		text, err := mantra.WithFallback(ctx, a.Mantra, d.Mood, d.Prompts)
		if err != nil {
			a.Log.Warn("mantra generation failed, using fallback", "mood", d.Mood, "err", err)
		}
		d.Text = text
	}
	return a.Journal.CreateEntry(d)
}

// ErrAmbiguous is returned by Resolve when a prefix matches several entries.
var ErrAmbiguous = errors.New("app: ambiguous entry id")

// Resolve finds the entry whose id is id or starts with it.
func (a *App) Resolve(id string) (entry.JournalEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entry.JournalEntry{}, fmt.Errorf("%w: empty id", journal.ErrNotFound)
	}
	if e, ok := a.Journal.Entry(id); ok {
		return e, nil
	}
	var found []entry.JournalEntry
	for _, e := range a.Journal.Entries() {
		if strings.HasPrefix(e.ID, id) {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return entry.JournalEntry{}, fmt.Errorf("%w: %s", journal.ErrNotFound, id)
	case 1:
		return found[0], nil
	default:
		return entry.JournalEntry{}, fmt.Errorf("%w: %s matches %d entries", ErrAmbiguous, id, len(found))
	}
}

// Flush waits for pending remote calls so a short-lived process does not
// exit before its writes land.
func (a *App) Flush(ctx context.Context) error {
	return a.Journal.Settle(ctx)
}

// Close detaches the engine.
func (a *App) Close() error {
	if a.Journal == nil {
		return nil
	}
	return a.Journal.Close()
}
