package journal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"tableflip.dev/whisper/pkg/entry"
	"tableflip.dev/whisper/pkg/identity"
	"tableflip.dev/whisper/pkg/store"
	"tableflip.dev/whisper/pkg/store/memstore"
	"tableflip.dev/whisper/pkg/widget"
)

var errBoom = errors.New("boom")

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

type recordingWidget struct {
	mu        sync.Mutex
	published []widget.Payload
	clears    int
}

func (w *recordingWidget) Publish(_ context.Context, p widget.Payload) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.published = append(w.published, p)
	return nil
}

func (w *recordingWidget) Clear(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clears++
	return nil
}

func (w *recordingWidget) last() (widget.Payload, int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var p widget.Payload
	if len(w.published) > 0 {
		p = w.published[len(w.published)-1]
	}
	return p, len(w.published), w.clears
}

type memoryStreaks struct {
	mu     sync.Mutex
	values map[string]int
}

func (c *memoryStreaks) Load(identity string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.values[identity]
	return n, ok
}

func (c *memoryStreaks) Store(identity string, n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[identity] = n
	return nil
}

type fixture struct {
	m       *Manager
	remote  *memstore.Store
	widget  *recordingWidget
	streaks *memoryStreaks
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		remote:  memstore.New(),
		widget:  &recordingWidget{},
		streaks: &memoryStreaks{values: map[string]int{}},
	}
	f.m = New(Options{
		Remote:  f.remote,
		Widget:  f.widget,
		Streaks: f.streaks,
		Logger:  log.New(io.Discard),
		Now:     func() time.Time { return fixedNow },
	})
	t.Cleanup(func() { _ = f.m.Close() })
	return f
}

func (f *fixture) attach(t *testing.T, user string) {
	t.Helper()
	if err := f.m.Attach(context.Background(), &identity.Identity{ID: user}); err != nil {
		t.Fatalf("Attach(%s): %v", user, err)
	}
	select {
	case <-f.m.Synced():
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot for %s", user)
	}
}

func (f *fixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.m.Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
}

// quiesce waits for outstanding ops and for every queued snapshot to be
// picked up, so later assertions are not raced by stale snapshots.
func (f *fixture) quiesce(t *testing.T, user string) {
	t.Helper()
	f.settle(t)
	eventually(t, "snapshot backlog to drain", func() bool {
		return f.remote.Backlog(user) == 0
	})
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func wait(t *testing.T, op *Op) OpState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, err := op.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("op %d never settled", op.ID)
	}
	return state
}

func seed(t *testing.T, s *memstore.Store, user string, entries ...entry.JournalEntry) {
	t.Helper()
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		s.Put(user, e.ID, data)
	}
}

func ids(entries []entry.JournalEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func countPinned(entries []entry.JournalEntry) int {
	n := 0
	for _, e := range entries {
		if e.IsPinned {
			n++
		}
	}
	return n
}

func draft(mood string) entry.Draft {
	return entry.Draft{Mood: mood, Text: "note", Prompts: []string{"a"}, PromptQuestions: []string{"q"}}
}

func TestScenario(t *testing.T) {
	f := newFixture(t)
	f.attach(t, "alice")

	// create
	f.remote.Hold()
	first, op, err := f.m.CreateEntry(entry.Draft{
		Mood:    "calm",
		Prompts: []string{"ok", "fine", "good"},
		Text:    "Breathe and let it pass.",
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	got := f.m.Entries()
	if len(got) != 1 {
		t.Fatalf("want 1 entry, got %d", len(got))
	}
	e := got[0]
	if e.ID != first.ID || e.Mood != "calm" || e.Text != "Breathe and let it pass." {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !reflect.DeepEqual(e.Prompts, []string{"ok", "fine", "good"}) {
		t.Fatalf("prompts = %v", e.Prompts)
	}
	if e.IsPinned || e.IsFavorited {
		t.Fatalf("new entry flagged: %+v", e)
	}
	if e.ColorTag == "" || e.BackgroundImage == "" {
		t.Fatalf("presentation not stamped: %+v", e)
	}
	f.remote.Release()
	if state := wait(t, op); state != OpConfirmed {
		t.Fatalf("create state = %s", state)
	}
	f.quiesce(t, "alice")

	// pin it
	f.remote.Hold()
	if _, err := f.m.SetPinned(first.ID, true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}
	if !f.m.Entries()[0].IsPinned {
		t.Fatalf("entries[0] not pinned")
	}
	p, _, _ := f.widget.last()
	if p.Text != "Breathe and let it pass." || p.Mood != "calm" {
		t.Fatalf("widget payload = %+v", p)
	}
	f.remote.Release()
	f.quiesce(t, "alice")

	// second entry takes the pin
	f.remote.Hold()
	second, _, err := f.m.CreateEntry(draft("happy"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	f.remote.Release()
	f.quiesce(t, "alice")

	f.remote.Hold()
	ops, err := f.m.SetPinned(second.ID, true)
	if err != nil {
		t.Fatalf("SetPinned: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("want clear+set ops, got %d", len(ops))
	}
	if e, _ := f.m.Entry(first.ID); e.IsPinned {
		t.Fatalf("first entry still pinned")
	}
	if e, _ := f.m.Entry(second.ID); !e.IsPinned {
		t.Fatalf("second entry not pinned")
	}
	f.remote.Release()
	f.quiesce(t, "alice")

	// delete the pinned one
	_, _, clearsBefore := f.widget.last()
	f.remote.Hold()
	op, err = f.m.DeleteEntry(second.ID)
	if err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	got = f.m.Entries()
	if len(got) != 1 || got[0].ID != first.ID {
		t.Fatalf("entries after delete = %v", ids(got))
	}
	if _, ok := f.m.Pinned(); ok {
		t.Fatalf("pinned entry survived delete")
	}
	if _, _, clears := f.widget.last(); clears != clearsBefore+1 {
		t.Fatalf("widget clears = %d, want %d", clears, clearsBefore+1)
	}
	f.remote.Release()
	if state := wait(t, op); state != OpConfirmed {
		t.Fatalf("delete state = %s", state)
	}

	eventually(t, "remote to converge", func() bool {
		got := f.m.Entries()
		return f.remote.Len("alice") == 1 && len(got) == 1 && countPinned(got) == 0
	})
}

func TestPinExclusivity(t *testing.T) {
	f := newFixture(t)
	f.attach(t, "alice")

	var all []string
	for _, mood := range []string{"calm", "sad", "happy", "tired"} {
		e, _, err := f.m.CreateEntry(draft(mood))
		if err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
		all = append(all, e.ID)
	}
	f.quiesce(t, "alice")

	steps := []struct {
		idx int
		pin bool
	}{
		{0, true}, {1, true}, {1, true}, {2, true}, {2, false}, {3, true}, {0, true}, {0, false},
	}
	for i, s := range steps {
		f.remote.Hold()
		if _, err := f.m.SetPinned(all[s.idx], s.pin); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if n := countPinned(f.m.Entries()); n > 1 {
			t.Fatalf("step %d: %d pinned entries", i, n)
		}
		if s.pin {
			if p, ok := f.m.Pinned(); !ok || p.ID != all[s.idx] {
				t.Fatalf("step %d: pinned = %v %v", i, p.ID, ok)
			}
		}
		f.remote.Release()
		f.quiesce(t, "alice")
	}
	eventually(t, "no pinned entry", func() bool {
		_, ok := f.m.Pinned()
		return !ok && len(f.m.Entries()) == 4
	})
}

func TestCreateRollback(t *testing.T) {
	f := newFixture(t)
	f.attach(t, "alice")
	f.remote.Fail(memstore.KindWrite, errBoom)

	e, op, err := f.m.CreateEntry(draft("anxious"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if state := wait(t, op); state != OpRolledBack {
		t.Fatalf("state = %s, want rolled-back", state)
	}
	if !errors.Is(op.Err(), errBoom) {
		t.Fatalf("op err = %v", op.Err())
	}
	if _, ok := f.m.Entry(e.ID); ok {
		t.Fatalf("rolled back entry %s still present", e.ID)
	}

	found := false
	for len(f.m.Events()) > 0 {
		ev := <-f.m.Events()
		if ev.Type == EventOpFailed && ev.EntryID == e.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("no failure notice for %s", e.ID)
	}
}

func TestDeleteRollbackPreservesOrder(t *testing.T) {
	f := newFixture(t)
	day := func(d int) time.Time { return fixedNow.AddDate(0, 0, -d) }
	seed(t, f.remote, "alice",
		entry.JournalEntry{ID: "c", Date: day(0), Mood: "calm"},
		entry.JournalEntry{ID: "a", Date: day(2), Mood: "sad"},
		entry.JournalEntry{ID: "b", Date: day(1), Mood: "happy"},
	)
	f.attach(t, "alice")
	if got := ids(f.m.Entries()); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("initial order = %v", got)
	}

	f.remote.Fail(memstore.KindDelete, errBoom)
	op, err := f.m.DeleteEntry("b")
	if err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if state := wait(t, op); state != OpRolledBack {
		t.Fatalf("state = %s", state)
	}
	if got := ids(f.m.Entries()); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("order after rollback = %v", got)
	}
}

func TestPatchFailureLeavesLocalChange(t *testing.T) {
	f := newFixture(t)
	seed(t, f.remote, "alice", entry.JournalEntry{ID: "a", Date: fixedNow, Mood: "calm"})
	f.attach(t, "alice")
	f.remote.Fail(memstore.KindPatch, errBoom)

	op, err := f.m.SetFavorited("a", true)
	if err != nil {
		t.Fatalf("SetFavorited: %v", err)
	}
	if state := wait(t, op); state != OpFailed {
		t.Fatalf("state = %s, want failed", state)
	}
	if e, _ := f.m.Entry("a"); !e.IsFavorited {
		t.Fatalf("local change reverted before reconciliation")
	}

	// The next snapshot carries the remote truth.
	f.remote.Broadcast("alice")
	eventually(t, "snapshot correction", func() bool {
		e, _ := f.m.Entry("a")
		return !e.IsFavorited
	})
}

func TestSnapshotReplaceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.attach(t, "alice")

	var snap store.Snapshot
	snap.Identity = "alice"
	for i, mood := range []string{"calm", "happy"} {
		data, _ := json.Marshal(entry.JournalEntry{ID: mood, Date: fixedNow.Add(time.Duration(i) * time.Hour), Mood: mood, IsPinned: i == 1})
		snap.Records = append(snap.Records, store.Record{ID: mood, Data: data})
	}

	f.m.mu.Lock()
	gen := f.m.gen
	f.m.mu.Unlock()

	f.m.applySnapshot(gen, snap)
	once := f.m.Entries()
	f.m.applySnapshot(gen, snap)
	twice := f.m.Entries()
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second application changed entries:\n%v\n%v", once, twice)
	}
	if len(twice) != 2 {
		t.Fatalf("want 2 entries, got %d", len(twice))
	}
}

type manualSub struct {
	ch chan store.Snapshot
}

func (s *manualSub) Snapshots() <-chan store.Snapshot { return s.ch }
func (s *manualSub) Close() error                     { return nil }

// manualRemote hands out subscriptions whose channels the test drives and
// never closes.
type manualRemote struct {
	*memstore.Store
	mu   sync.Mutex
	subs map[string]*manualSub
}

func (r *manualRemote) Subscribe(_ context.Context, user string) (store.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &manualSub{ch: make(chan store.Snapshot, 4)}
	r.subs[user] = s
	return s, nil
}

func (r *manualRemote) sub(user string) *manualSub {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.subs[user]
}

func TestDetachDiscardsLateSnapshots(t *testing.T) {
	remote := &manualRemote{Store: memstore.New(), subs: map[string]*manualSub{}}
	m := New(Options{Remote: remote, Logger: log.New(io.Discard), Now: func() time.Time { return fixedNow }})
	defer m.Close()

	ctx := context.Background()
	if err := m.Attach(ctx, &identity.Identity{ID: "a"}); err != nil {
		t.Fatalf("Attach(a): %v", err)
	}
	m.mu.Lock()
	genA := m.gen
	m.mu.Unlock()
	subA := remote.sub("a")

	if err := m.Attach(ctx, &identity.Identity{ID: "b"}); err != nil {
		t.Fatalf("Attach(b): %v", err)
	}
	bData, _ := json.Marshal(entry.JournalEntry{ID: "b1", Date: fixedNow, Mood: "calm"})
	remote.sub("b").ch <- store.Snapshot{Identity: "b", Records: []store.Record{{ID: "b1", Data: bData}}}
	select {
	case <-m.Synced():
	case <-time.After(2 * time.Second):
		t.Fatalf("b never synced")
	}

	aData, _ := json.Marshal(entry.JournalEntry{ID: "a1", Date: fixedNow, Mood: "sad"})
	late := store.Snapshot{Identity: "a", Records: []store.Record{{ID: "a1", Data: aData}}}
	subA.ch <- late
	m.applySnapshot(genA, late)
	time.Sleep(20 * time.Millisecond)

	if got := ids(m.Entries()); !reflect.DeepEqual(got, []string{"b1"}) {
		t.Fatalf("entries = %v, want [b1]", got)
	}
}

func TestAttachReplacesSubscription(t *testing.T) {
	f := newFixture(t)
	seed(t, f.remote, "bob", entry.JournalEntry{ID: "x", Date: fixedNow, Mood: "happy"})
	f.attach(t, "alice")
	f.attach(t, "bob")

	if n := f.remote.Subscribers("alice"); n != 0 {
		t.Fatalf("alice still has %d subscriptions", n)
	}
	if n := f.remote.Subscribers("bob"); n != 1 {
		t.Fatalf("bob has %d subscriptions", n)
	}
	if got := ids(f.m.Entries()); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("entries = %v", got)
	}

	if err := f.m.Attach(context.Background(), nil); err != nil {
		t.Fatalf("Attach(nil): %v", err)
	}
	if len(f.m.Entries()) != 0 || f.m.Identity() != nil {
		t.Fatalf("detach left state behind")
	}
	if n := f.remote.Subscribers("bob"); n != 0 {
		t.Fatalf("bob still subscribed")
	}
}

func TestNoIdentity(t *testing.T) {
	f := newFixture(t)

	if _, _, err := f.m.CreateEntry(draft("calm")); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("CreateEntry err = %v", err)
	}
	if _, err := f.m.SetFavorited("a", true); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("SetFavorited err = %v", err)
	}
	if _, err := f.m.DeleteEntry("a"); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("DeleteEntry err = %v", err)
	}
	if n := f.remote.Calls(memstore.KindWrite) + f.remote.Calls(memstore.KindPatch) + f.remote.Calls(memstore.KindDelete); n != 0 {
		t.Fatalf("%d remote calls without identity", n)
	}
}

func TestErrors(t *testing.T) {
	f := newFixture(t)
	f.attach(t, "alice")

	_, _, err := f.m.CreateEntry(entry.Draft{Mood: "calm", Prompts: []string{"1", "2", "3", "4"}})
	if !errors.Is(err, ErrInvalidDraft) || !errors.Is(err, entry.ErrTooManyPrompts) {
		t.Fatalf("CreateEntry err = %v", err)
	}
	if _, err := f.m.SetPinned("missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetPinned err = %v", err)
	}
	if _, err := f.m.ChangeBackground("missing", "bg_dawn", "#fff"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ChangeBackground err = %v", err)
	}
}

func TestDecodeFailureSkipsRecord(t *testing.T) {
	f := newFixture(t)
	seed(t, f.remote, "alice", entry.JournalEntry{ID: "good", Date: fixedNow, Mood: "calm"})
	f.remote.Put("alice", "bad", []byte("{not json"))
	f.attach(t, "alice")

	if got := ids(f.m.Entries()); !reflect.DeepEqual(got, []string{"good"}) {
		t.Fatalf("entries = %v", got)
	}
	skipped := false
	for len(f.m.Events()) > 0 {
		if ev := <-f.m.Events(); ev.Type == EventRecordSkipped && ev.EntryID == "bad" {
			skipped = true
		}
	}
	if !skipped {
		t.Fatalf("no skip event for bad record")
	}
}

func TestChangeBackgroundRepublishesPinned(t *testing.T) {
	f := newFixture(t)
	seed(t, f.remote, "alice", entry.JournalEntry{ID: "a", Date: fixedNow, Mood: "calm", IsPinned: true, BackgroundImage: "bg_dawn"})
	f.attach(t, "alice")
	_, before, _ := f.widget.last()

	f.remote.Hold()
	defer f.remote.Release()
	if _, err := f.m.ChangeBackground("a", "bg_night", "#FFFFFF"); err != nil {
		t.Fatalf("ChangeBackground: %v", err)
	}
	p, after, _ := f.widget.last()
	if after != before+1 || p.BackgroundImage != "bg_night" || p.TextColor != "#FFFFFF" {
		t.Fatalf("widget = %+v (%d publishes, was %d)", p, after, before)
	}
}

func TestStreakFollowsEntries(t *testing.T) {
	f := newFixture(t)
	f.streaks.values["alice"] = 7
	f.remote.Hold()
	defer f.remote.Release()

	if err := f.m.Attach(context.Background(), &identity.Identity{ID: "alice"}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	<-f.m.Synced()
	if got := f.m.Streak(); got != 0 {
		t.Fatalf("streak after empty snapshot = %d", got)
	}
	if _, _, err := f.m.CreateEntry(draft("calm")); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if got := f.m.Streak(); got != 1 {
		t.Fatalf("streak = %d, want 1", got)
	}
	if n, _ := f.streaks.Load("alice"); n != 1 {
		t.Fatalf("cached streak = %d", n)
	}
}

func TestCachedStreakBeforeSnapshot(t *testing.T) {
	remote := &manualRemote{Store: memstore.New(), subs: map[string]*manualSub{}}
	streaks := &memoryStreaks{values: map[string]int{"alice": 4}}
	m := New(Options{Remote: remote, Streaks: streaks, Logger: log.New(io.Discard)})
	defer m.Close()

	if err := m.Attach(context.Background(), &identity.Identity{ID: "alice"}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if got := m.Streak(); got != 4 {
		t.Fatalf("streak before snapshot = %d, want cached 4", got)
	}
}

func TestClearAll(t *testing.T) {
	f := newFixture(t)
	seed(t, f.remote, "alice", entry.JournalEntry{ID: "a", Date: fixedNow, Mood: "calm", IsPinned: true})
	f.attach(t, "alice")
	_, _, clears := f.widget.last()

	if err := f.m.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if len(f.m.Entries()) != 0 {
		t.Fatalf("entries not cleared")
	}
	if _, _, got := f.widget.last(); got != clears+1 {
		t.Fatalf("widget clears = %d, want %d", got, clears+1)
	}
	if n := f.remote.Subscribers("alice"); n != 0 {
		t.Fatalf("subscription left open")
	}
	if _, _, err := f.m.CreateEntry(draft("calm")); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("CreateEntry after ClearAll err = %v", err)
	}

	// no subscription open
	if err := f.m.ClearAll(context.Background()); err != nil {
		t.Fatalf("second ClearAll: %v", err)
	}
}

func remoteEntry(t *testing.T, s *memstore.Store, user, id string) (entry.JournalEntry, bool) {
	t.Helper()
	data, ok := s.Get(user, id)
	if !ok {
		return entry.JournalEntry{}, false
	}
	var e entry.JournalEntry
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("unmarshal %s: %v", id, err)
	}
	return e, true
}

func TestDeleteWhileCreatePending(t *testing.T) {
	f := newFixture(t)
	f.attach(t, "alice")

	f.remote.Hold()
	e, create, err := f.m.CreateEntry(draft("calm"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	del, err := f.m.DeleteEntry(e.ID)
	if err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, ok := f.m.Entry(e.ID); ok {
		t.Fatalf("deleted entry still listed")
	}
	eventually(t, "create to reach the remote", func() bool {
		return f.remote.Calls(memstore.KindWrite) == 1
	})
	if n := f.remote.Calls(memstore.KindDelete); n != 0 {
		t.Fatalf("delete sent before the create settled")
	}

	f.remote.Release()
	if state := wait(t, create); state != OpConfirmed {
		t.Fatalf("create state = %s", state)
	}
	if state := wait(t, del); state != OpConfirmed {
		t.Fatalf("delete state = %s", state)
	}
	f.quiesce(t, "alice")
	f.remote.Broadcast("alice")
	eventually(t, "snapshot to drain", func() bool { return f.remote.Backlog("alice") == 0 })

	if _, ok := f.m.Entry(e.ID); ok {
		t.Fatalf("entry resurrected locally")
	}
	if _, ok := remoteEntry(t, f.remote, "alice", e.ID); ok {
		t.Fatalf("entry resurrected remotely")
	}
}

func TestPinWhileCreatePending(t *testing.T) {
	f := newFixture(t)
	f.attach(t, "alice")

	f.remote.Hold()
	e, create, err := f.m.CreateEntry(draft("happy"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	ops, err := f.m.SetPinned(e.ID, true)
	if err != nil {
		t.Fatalf("SetPinned: %v", err)
	}
	eventually(t, "create to reach the remote", func() bool {
		return f.remote.Calls(memstore.KindWrite) == 1
	})
	if n := f.remote.Calls(memstore.KindPatch); n != 0 {
		t.Fatalf("pin sent before the create settled")
	}

	f.remote.Release()
	if state := wait(t, create); state != OpConfirmed {
		t.Fatalf("create state = %s", state)
	}
	if state := wait(t, ops[len(ops)-1]); state != OpConfirmed {
		t.Fatalf("pin state = %s", state)
	}
	f.quiesce(t, "alice")
	f.remote.Broadcast("alice")
	eventually(t, "snapshot to drain", func() bool { return f.remote.Backlog("alice") == 0 })

	if p, ok := f.m.Pinned(); !ok || p.ID != e.ID {
		t.Fatalf("pinned = %v %v", p.ID, ok)
	}
	if got, ok := remoteEntry(t, f.remote, "alice", e.ID); !ok || !got.IsPinned {
		t.Fatalf("remote entry = %+v %v", got, ok)
	}
	if p, _, _ := f.widget.last(); p.Mood != "happy" {
		t.Fatalf("widget payload = %+v", p)
	}
}

func TestPinThenUnpinLandInOrder(t *testing.T) {
	f := newFixture(t)
	seed(t, f.remote, "alice", entry.JournalEntry{ID: "a", Date: fixedNow, Mood: "calm"})
	f.attach(t, "alice")

	f.remote.Hold()
	if _, err := f.m.SetPinned("a", true); err != nil {
		t.Fatalf("SetPinned(true): %v", err)
	}
	ops, err := f.m.SetPinned("a", false)
	if err != nil {
		t.Fatalf("SetPinned(false): %v", err)
	}
	eventually(t, "pin to reach the remote", func() bool {
		return f.remote.Calls(memstore.KindPatch) == 1
	})
	time.Sleep(20 * time.Millisecond)
	if n := f.remote.Calls(memstore.KindPatch); n != 1 {
		t.Fatalf("unpin sent before the pin settled (%d patches)", n)
	}

	f.remote.Release()
	if state := wait(t, ops[0]); state != OpConfirmed {
		t.Fatalf("unpin state = %s", state)
	}
	f.quiesce(t, "alice")
	f.remote.Broadcast("alice")
	eventually(t, "snapshot to drain", func() bool { return f.remote.Backlog("alice") == 0 })

	if _, ok := f.m.Pinned(); ok {
		t.Fatalf("entry still pinned locally")
	}
	if got, _ := remoteEntry(t, f.remote, "alice", "a"); got.IsPinned {
		t.Fatalf("entry still pinned remotely")
	}
}

func TestCreateFailureDropsQueuedOps(t *testing.T) {
	f := newFixture(t)
	f.attach(t, "alice")
	f.remote.Fail(memstore.KindWrite, errBoom)

	f.remote.Hold()
	e, create, err := f.m.CreateEntry(draft("tired"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	fav, err := f.m.SetFavorited(e.ID, true)
	if err != nil {
		t.Fatalf("SetFavorited: %v", err)
	}
	del, err := f.m.DeleteEntry(e.ID)
	if err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	f.remote.Release()

	if state := wait(t, create); state != OpRolledBack {
		t.Fatalf("create state = %s", state)
	}
	if state := wait(t, fav); state != OpFailed || !errors.Is(fav.Err(), errBoom) {
		t.Fatalf("favorite = %s %v", state, fav.Err())
	}
	if state := wait(t, del); state != OpRolledBack || !errors.Is(del.Err(), errBoom) {
		t.Fatalf("delete = %s %v", state, del.Err())
	}
	if n := f.remote.Calls(memstore.KindPatch) + f.remote.Calls(memstore.KindDelete); n != 0 {
		t.Fatalf("%d queued calls reached the remote", n)
	}
	if _, ok := f.m.Entry(e.ID); ok {
		t.Fatalf("entry of a failed create came back")
	}
	if n := len(f.m.Pending()); n != 0 {
		t.Fatalf("%d ops still pending", n)
	}
}

// gatedRemote parks writes and patches until their gate closes.
type gatedRemote struct {
	*memstore.Store
	writes  chan struct{}
	patches chan struct{}
}

func (g *gatedRemote) Write(ctx context.Context, user, id string, data []byte) error {
	select {
	case <-g.writes:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.Store.Write(ctx, user, id, data)
}

func (g *gatedRemote) Patch(ctx context.Context, user, id string, fields map[string]any) error {
	select {
	case <-g.patches:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.Store.Patch(ctx, user, id, fields)
}

func TestSettleOutlastsFailedOp(t *testing.T) {
	remote := &gatedRemote{Store: memstore.New(), writes: make(chan struct{}), patches: make(chan struct{})}
	seed(t, remote.Store, "alice", entry.JournalEntry{ID: "a", Date: fixedNow, Mood: "calm"})
	m := New(Options{Remote: remote, Logger: log.New(io.Discard), Now: func() time.Time { return fixedNow }})
	defer m.Close()
	if err := m.Attach(context.Background(), &identity.Identity{ID: "alice"}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	<-m.Synced()

	remote.Fail(memstore.KindPatch, errBoom)
	fav, err := m.SetFavorited("a", true)
	if err != nil {
		t.Fatalf("SetFavorited: %v", err)
	}
	_, create, err := m.CreateEntry(draft("calm"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.Settle(ctx) }()

	close(remote.patches)
	if state := wait(t, fav); state != OpFailed {
		t.Fatalf("favorite state = %s", state)
	}
	select {
	case err := <-done:
		t.Fatalf("Settle returned %v with a write in flight", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(remote.writes)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Settle: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Settle did not return")
	}
	if state := create.State(); state != OpConfirmed {
		t.Fatalf("create state = %s", state)
	}
}

func TestSettleStopsOnContext(t *testing.T) {
	f := newFixture(t)
	f.attach(t, "alice")
	f.remote.Hold()
	defer f.remote.Release()
	if _, _, err := f.m.CreateEntry(draft("calm")); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.m.Settle(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Settle err = %v", err)
	}
}

func TestEchoWindowFollowsClock(t *testing.T) {
	var mu sync.Mutex
	now := fixedNow
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	remote := &manualRemote{Store: memstore.New(), subs: map[string]*manualSub{}}
	m := New(Options{Remote: remote, Logger: log.New(io.Discard), Now: clock, EchoWindow: time.Minute})
	defer m.Close()
	if err := m.Attach(context.Background(), &identity.Identity{ID: "alice"}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	e, op, err := m.CreateEntry(draft("calm"))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if state := wait(t, op); state != OpConfirmed {
		t.Fatalf("create state = %s", state)
	}

	stale := store.Snapshot{Identity: "alice"}
	m.applySnapshot(gen, stale)
	if _, ok := m.Entry(e.ID); !ok {
		t.Fatalf("stale snapshot dropped a confirmed entry")
	}

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	m.applySnapshot(gen, stale)
	if _, ok := m.Entry(e.ID); ok {
		t.Fatalf("entry outlived the echo window")
	}
}

func TestLaterConfirmedPatchSupersedesEarlier(t *testing.T) {
	remote := &manualRemote{Store: memstore.New(), subs: map[string]*manualSub{}}
	seed(t, remote.Store, "alice", entry.JournalEntry{ID: "a", Date: fixedNow, Mood: "calm"})
	m := New(Options{Remote: remote, Logger: log.New(io.Discard), Now: func() time.Time { return fixedNow }})
	defer m.Close()
	if err := m.Attach(context.Background(), &identity.Identity{ID: "alice"}); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	unpinned, _ := json.Marshal(entry.JournalEntry{ID: "a", Date: fixedNow, Mood: "calm"})
	snap := store.Snapshot{Identity: "alice", Records: []store.Record{{ID: "a", Data: unpinned}}}
	m.applySnapshot(gen, snap)

	for _, v := range []bool{true, false} {
		ops, err := m.SetPinned("a", v)
		if err != nil {
			t.Fatalf("SetPinned(%v): %v", v, err)
		}
		if state := wait(t, ops[len(ops)-1]); state != OpConfirmed {
			t.Fatalf("SetPinned(%v) state = %s", v, state)
		}
	}

	m.applySnapshot(gen, snap)
	if _, ok := m.Pinned(); ok {
		t.Fatalf("earlier pin replayed over a snapshot showing the unpin")
	}
}

func TestAttachNilClearsWidget(t *testing.T) {
	f := newFixture(t)
	seed(t, f.remote, "alice", entry.JournalEntry{ID: "a", Date: fixedNow, Mood: "calm", IsPinned: true})
	f.attach(t, "alice")
	_, _, clears := f.widget.last()

	if err := f.m.Attach(context.Background(), nil); err != nil {
		t.Fatalf("Attach(nil): %v", err)
	}
	if _, _, got := f.widget.last(); got != clears+1 {
		t.Fatalf("widget clears = %d, want %d", got, clears+1)
	}
}

func TestDetachKeepsWidget(t *testing.T) {
	f := newFixture(t)
	seed(t, f.remote, "alice", entry.JournalEntry{ID: "a", Date: fixedNow, Mood: "calm", IsPinned: true})
	f.attach(t, "alice")
	_, publishes, clears := f.widget.last()

	f.m.Detach()
	if len(f.m.Entries()) != 0 || f.m.Identity() != nil {
		t.Fatalf("detach left state behind")
	}
	if n := f.remote.Subscribers("alice"); n != 0 {
		t.Fatalf("alice still subscribed")
	}
	if _, p, c := f.widget.last(); p != publishes || c != clears {
		t.Fatalf("widget touched: %d publishes, %d clears", p, c)
	}
	if _, _, err := f.m.CreateEntry(draft("calm")); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("CreateEntry after Detach err = %v", err)
	}
}

func TestChangeBackgroundKeepsTextColor(t *testing.T) {
	f := newFixture(t)
	seed(t, f.remote, "alice", entry.JournalEntry{ID: "a", Date: fixedNow, Mood: "calm", BackgroundImage: "bg_dawn", TextColor: "#1B1B1B"})
	f.attach(t, "alice")

	op, err := f.m.ChangeBackground("a", "bg_night", "")
	if err != nil {
		t.Fatalf("ChangeBackground: %v", err)
	}
	if e, _ := f.m.Entry("a"); e.BackgroundImage != "bg_night" || e.TextColor != "#1B1B1B" {
		t.Fatalf("local entry = %+v", e)
	}
	if state := wait(t, op); state != OpConfirmed {
		t.Fatalf("state = %s", state)
	}
	if got, _ := remoteEntry(t, f.remote, "alice", "a"); got.BackgroundImage != "bg_night" || got.TextColor != "#1B1B1B" {
		t.Fatalf("remote entry = %+v", got)
	}
}
