package mcp

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"tableflip.dev/whisper/pkg/entry"
	"tableflip.dev/whisper/pkg/identity"
	"tableflip.dev/whisper/pkg/journal"
	"tableflip.dev/whisper/pkg/store/memstore"
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	remote := memstore.New()
	m := journal.New(journal.Options{Remote: remote, Logger: log.New(io.Discard)})
	t.Cleanup(func() { _ = m.Close() })
	if err := m.Attach(context.Background(), &identity.Identity{ID: "alice"}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	select {
	case <-m.Synced():
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot")
	}
	compose := func(_ context.Context, d entry.Draft) (entry.JournalEntry, *journal.Op, error) {
		if d.Text == "" {
			d.Text = "generated"
		}
		return m.CreateEntry(d)
	}
	return NewService(m, compose), remote
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCreateAndList(t *testing.T) {
	svc, _ := newService(t)
	ctx := testCtx(t)

	first, err := svc.CreateEntry(ctx, CreateEntryOptions{Mood: "calm", Prompts: []string{"ok"}})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if first.Text != "generated" || first.JournalType != "guided" {
		t.Fatalf("dto = %+v", first)
	}
	if _, err := svc.CreateEntry(ctx, CreateEntryOptions{Mood: "sad", Text: "hold on", Free: true}); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	all, err := svc.ListEntries(ctx, ListEntriesOptions{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("want 2 entries, got %d", len(all))
	}
	calm, _ := svc.ListEntries(ctx, ListEntriesOptions{Mood: "CALM"})
	if len(calm) != 1 || calm[0].ID != first.ID {
		t.Fatalf("mood filter = %+v", calm)
	}
	if moods := svc.Moods(ctx); len(moods) != 2 || moods[0] != "calm" {
		t.Fatalf("moods = %v", moods)
	}
}

func TestCreateInvalid(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateEntry(testCtx(t), CreateEntryOptions{Mood: ""})
	if !errors.Is(err, journal.ErrInvalidDraft) {
		t.Fatalf("err = %v", err)
	}
}

func TestPinFavoriteDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := testCtx(t)

	a, _ := svc.CreateEntry(ctx, CreateEntryOptions{Mood: "calm", Text: "a"})
	b, _ := svc.CreateEntry(ctx, CreateEntryOptions{Mood: "happy", Text: "b"})

	if dto, err := svc.SetPinned(ctx, a.ID, true); err != nil || !dto.IsPinned {
		t.Fatalf("pin a = %+v %v", dto, err)
	}
	if dto, err := svc.SetPinned(ctx, b.ID, true); err != nil || !dto.IsPinned {
		t.Fatalf("pin b = %+v %v", dto, err)
	}
	if st := svc.Streak(ctx); st.Pinned == nil || st.Pinned.ID != b.ID {
		t.Fatalf("streak pinned = %+v", st.Pinned)
	}
	if dto, err := svc.SetFavorited(ctx, a.ID, true); err != nil || !dto.IsFavorited {
		t.Fatalf("favorite = %+v %v", dto, err)
	}
	if dto, err := svc.ChangeBackground(ctx, a.ID, "bg_night", "#FFFFFF"); err != nil || dto.BackgroundImage != "bg_night" {
		t.Fatalf("background = %+v %v", dto, err)
	}
	if _, err := svc.DeleteEntry(ctx, b.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := svc.EntryByID(ctx, b.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("deleted entry lookup err = %v", err)
	}
	if _, err := svc.SetPinned(ctx, "missing", true); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("missing pin err = %v", err)
	}
}

func TestDeleteRollbackReported(t *testing.T) {
	svc, remote := newService(t)
	ctx := testCtx(t)

	a, err := svc.CreateEntry(ctx, CreateEntryOptions{Mood: "calm", Text: "a"})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	remote.FailNext(memstore.KindDelete, errors.New("offline"))
	if _, err := svc.DeleteEntry(ctx, a.ID); err == nil {
		t.Fatalf("DeleteEntry succeeded against failing remote")
	}
	if _, err := svc.EntryByID(ctx, a.ID); err != nil {
		t.Fatalf("entry not restored: %v", err)
	}
}

func TestNewServer(t *testing.T) {
	svc, _ := newService(t)
	if srv := NewServer("whisper", "test", svc); srv == nil {
		t.Fatalf("nil server")
	}
}
