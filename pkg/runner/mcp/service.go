// Package mcp exposes the journal over the Model Context Protocol so an
// assistant can read entries and journal on the user's behalf.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tableflip.dev/whisper/pkg/entry"
	"tableflip.dev/whisper/pkg/journal"
)

// Journal is the engine surface the server needs.
type Journal interface {
	Entries() []entry.JournalEntry
	Entry(id string) (entry.JournalEntry, bool)
	Pinned() (entry.JournalEntry, bool)
	Streak() int
	SetFavorited(id string, v bool) (*journal.Op, error)
	SetPinned(id string, v bool) ([]*journal.Op, error)
	ChangeBackground(id, background, textColor string) (*journal.Op, error)
	DeleteEntry(id string) (*journal.Op, error)
}

// Composer creates an entry, generating its mantra when the draft has none.
type Composer func(ctx context.Context, d entry.Draft) (entry.JournalEntry, *journal.Op, error)

// Service coordinates journal operations shared by the MCP tools and
// resources. Mutations wait for the remote to confirm.
type Service struct {
	Journal Journal
	Compose Composer
}

// ErrEntryNotFound is returned when an entry is not in the collection.
var ErrEntryNotFound = errors.New("entry not found")

// CreateEntryOptions captures the parameters used to create an entry.
type CreateEntryOptions struct {
	Mood      string
	Prompts   []string
	Questions []string
	Text      string
	Free      bool
}

// ListEntriesOptions filters ListEntries.
type ListEntriesOptions struct {
	Mood          string
	FavoritesOnly bool
	Limit         int
}

// EntryDTO is a transport-friendly projection of an entry.
type EntryDTO struct {
	ID              string   `json:"id"`
	Mood            string   `json:"mood"`
	Text            string   `json:"text,omitempty"`
	ColorTag        string   `json:"colorTag,omitempty"`
	Prompts         []string `json:"prompts,omitempty"`
	PromptQuestions []string `json:"promptQuestions,omitempty"`
	IsFavorited     bool     `json:"isFavorited"`
	IsPinned        bool     `json:"isPinned"`
	JournalType     string   `json:"journalType"`
	BackgroundImage string   `json:"backgroundImage,omitempty"`
	TextColor       string   `json:"textColor,omitempty"`
	CreatedISO      string   `json:"created"`
	CreatedUnix     int64    `json:"createdUnix"`
}

// StreakDTO reports the streak and the entry currently on the widget.
type StreakDTO struct {
	Days   int       `json:"days"`
	Pinned *EntryDTO `json:"pinned,omitempty"`
}

// NewService builds a service over j.
func NewService(j Journal, compose Composer) *Service {
	return &Service{Journal: j, Compose: compose}
}

// ListEntries returns entries newest first.
func (s *Service) ListEntries(_ context.Context, opts ListEntriesOptions) ([]EntryDTO, error) {
	if s.Journal == nil {
		return nil, errors.New("journal is not configured")
	}
	all := s.Journal.Entries()
	out := make([]EntryDTO, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if opts.Mood != "" && !strings.EqualFold(e.Mood, opts.Mood) {
			continue
		}
		if opts.FavoritesOnly && !e.IsFavorited {
			continue
		}
		out = append(out, toDTO(e))
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// Moods lists the distinct moods in the collection, alphabetically.
func (s *Service) Moods(_ context.Context) []string {
	set := map[string]struct{}{}
	for _, e := range s.Journal.Entries() {
		set[e.Mood] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// EntryByID returns one entry.
func (s *Service) EntryByID(_ context.Context, id string) (*EntryDTO, error) {
	e, ok := s.Journal.Entry(strings.TrimSpace(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	dto := toDTO(e)
	return &dto, nil
}

// CreateEntry journals a new session.
func (s *Service) CreateEntry(ctx context.Context, opts CreateEntryOptions) (*EntryDTO, error) {
	if s.Compose == nil {
		return nil, errors.New("entry creation is not configured")
	}
	jt := entry.Guided
	if opts.Free {
		jt = entry.Free
	}
	e, op, err := s.Compose(ctx, entry.Draft{
		Mood:            opts.Mood,
		Prompts:         opts.Prompts,
		PromptQuestions: opts.Questions,
		Text:            opts.Text,
		JournalType:     jt,
	})
	if err != nil {
		return nil, err
	}
	if err := confirm(ctx, op); err != nil {
		return nil, err
	}
	dto := toDTO(e)
	return &dto, nil
}

// SetPinned pins or unpins an entry.
func (s *Service) SetPinned(ctx context.Context, id string, v bool) (*EntryDTO, error) {
	ops, err := s.Journal.SetPinned(id, v)
	if err != nil {
		return nil, mapErr(err)
	}
	for _, op := range ops {
		if err := confirm(ctx, op); err != nil {
			return nil, err
		}
	}
	return s.EntryByID(ctx, id)
}

// SetFavorited marks or unmarks an entry as favorite.
func (s *Service) SetFavorited(ctx context.Context, id string, v bool) (*EntryDTO, error) {
	op, err := s.Journal.SetFavorited(id, v)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := confirm(ctx, op); err != nil {
		return nil, err
	}
	return s.EntryByID(ctx, id)
}

// ChangeBackground sets the background image and text color of an entry.
func (s *Service) ChangeBackground(ctx context.Context, id, background, textColor string) (*EntryDTO, error) {
	op, err := s.Journal.ChangeBackground(id, background, textColor)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := confirm(ctx, op); err != nil {
		return nil, err
	}
	return s.EntryByID(ctx, id)
}

// DeleteEntry removes an entry and returns what was removed.
func (s *Service) DeleteEntry(ctx context.Context, id string) (*EntryDTO, error) {
	prev, err := s.EntryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	op, err := s.Journal.DeleteEntry(id)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := confirm(ctx, op); err != nil {
		return nil, err
	}
	return prev, nil
}

// Streak reports the current streak and the pinned entry.
func (s *Service) Streak(_ context.Context) StreakDTO {
	out := StreakDTO{Days: s.Journal.Streak()}
	if p, ok := s.Journal.Pinned(); ok {
		dto := toDTO(p)
		out.Pinned = &dto
	}
	return out
}

func confirm(ctx context.Context, op *journal.Op) error {
	if op == nil {
		return nil
	}
	state, err := op.Wait(ctx)
	if err != nil {
		return err
	}
	if state != journal.OpConfirmed {
		return fmt.Errorf("%s %s: %w", op.Kind, state, op.Err())
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, journal.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrEntryNotFound, err)
	}
	return err
}

func toDTO(e entry.JournalEntry) EntryDTO {
	return EntryDTO{
		ID:              e.ID,
		Mood:            e.Mood,
		Text:            e.Text,
		ColorTag:        e.ColorTag,
		Prompts:         e.Prompts,
		PromptQuestions: e.PromptQuestions,
		IsFavorited:     e.IsFavorited,
		IsPinned:        e.IsPinned,
		JournalType:     string(e.JournalType),
		BackgroundImage: e.BackgroundImage,
		TextColor:       e.TextColor,
		CreatedISO:      entry.FormatTime(e.Date),
		CreatedUnix:     e.Date.Unix(),
	}
}
