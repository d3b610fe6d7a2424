// Package journal keeps the in-memory journal collection consistent with the
// remote store, applying local mutations optimistically and rolling them back
// when the remote rejects them.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"tableflip.dev/whisper/pkg/entry"
	"tableflip.dev/whisper/pkg/identity"
	"tableflip.dev/whisper/pkg/mood"
	"tableflip.dev/whisper/pkg/store"
	"tableflip.dev/whisper/pkg/streak"
	"tableflip.dev/whisper/pkg/widget"
)

var (
	// ErrNoIdentity is returned by mutations while signed out. No remote call
	// is attempted.
	ErrNoIdentity = errors.New("journal: no identity")
	// ErrNotFound is returned for unknown entry ids.
	ErrNotFound = errors.New("journal: entry not found")
	// ErrInvalidDraft wraps draft validation failures.
	ErrInvalidDraft = errors.New("journal: invalid draft")
)

// WidgetPublisher is the part of the widget bridge the Manager drives.
type WidgetPublisher interface {
	Publish(ctx context.Context, p widget.Payload) error
	Clear(ctx context.Context) error
}

// StreakCache persists the last streak per identity.
type StreakCache interface {
	Load(identity string) (int, bool)
	Store(identity string, n int) error
}

// Options configures a Manager. Only Remote is required.
type Options struct {
	Remote  store.Remote
	Widget  WidgetPublisher
	Streaks StreakCache
	Logger  *log.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// RemoteTimeout bounds each background remote call. Defaults to 30s.
	RemoteTimeout time.Duration
	// EchoWindow is how long a confirmed mutation keeps overlaying snapshots
	// that do not show it yet. Defaults to 5s.
	EchoWindow time.Duration
}

// unpublished marks widget state as unknown so the next sync always writes.
const unpublished = "\x00unknown"

// Manager owns the authoritative entry collection. All mutations, whether
// from callers or inbound snapshots, are serialized by mu.
type Manager struct {
	remote  store.Remote
	widget  WidgetPublisher
	streaks StreakCache
	log     *log.Logger
	now     func() time.Time
	timeout time.Duration
	echo    time.Duration

	mu        sync.Mutex
	entries   []entry.JournalEntry
	identity  *identity.Identity
	gen       uint64
	sub       store.Subscription
	cancel    context.CancelFunc
	consumers sync.WaitGroup
	synced    chan struct{}
	isSynced  bool
	pending   map[uint64]*Op
	confirmed map[uint64]*Op
	queues    map[string][]*Op
	opSeq     uint64
	published string
	streak    int

	events chan Event
}

// New creates a Manager with no identity attached.
func New(opts Options) *Manager {
	m := &Manager{
		remote:    opts.Remote,
		widget:    opts.Widget,
		streaks:   opts.Streaks,
		log:       opts.Logger,
		now:       opts.Now,
		timeout:   opts.RemoteTimeout,
		echo:      opts.EchoWindow,
		synced:    make(chan struct{}),
		pending:   make(map[uint64]*Op),
		confirmed: make(map[uint64]*Op),
		queues:    make(map[string][]*Op),
		published: unpublished,
		events:    make(chan Event, 64),
	}
	if m.log == nil {
		m.log = log.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.timeout <= 0 {
		m.timeout = 30 * time.Second
	}
	if m.echo <= 0 {
		m.echo = 5 * time.Second
	}
	return m
}

// Events exposes change notifications. Delivery is best-effort.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Synced is closed once the first snapshot of the current attachment has
// been applied.
func (m *Manager) Synced() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.synced
}

// Identity returns the attached identity, nil when signed out.
func (m *Manager) Identity() *identity.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil
	}
	id := *m.identity
	return &id
}

// Entries returns a copy of the collection in date order.
func (m *Manager) Entries() []entry.JournalEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entry.JournalEntry, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Clone()
	}
	return out
}

// Entry looks up one entry by id.
func (m *Manager) Entry(id string) (entry.JournalEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := indexOf(m.entries, id); idx >= 0 {
		return m.entries[idx].Clone(), true
	}
	return entry.JournalEntry{}, false
}

// Pinned returns the pinned entry, if any.
func (m *Manager) Pinned() (entry.JournalEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := pinnedOf(m.entries); p != nil {
		return p.Clone(), true
	}
	return entry.JournalEntry{}, false
}

// Streak returns the current streak; before the first snapshot this is the
// cached value.
func (m *Manager) Streak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streak
}

// Pending lists operations still waiting for the remote.
func (m *Manager) Pending() []*Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingLocked()
}

// Settle waits until every remote call, including those of a previous
// attachment, has settled. Failed ops do not stop it; only ctx does.
func (m *Manager) Settle(ctx context.Context) error {
	for {
		ops := m.inFlight()
		if len(ops) == 0 {
			return nil
		}
		for _, op := range ops {
			if _, err := op.Wait(ctx); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (m *Manager) inFlight() []*Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Op
	for _, q := range m.queues {
		out = append(out, q...)
	}
	sortOps(out)
	return out
}

// Attach binds the collection to id. A non-nil identity opens one
// subscription, replacing any previous one; nil empties the collection and
// clears the widget along with it. The subscription lives until ctx is done or
// the next Attach.
func (m *Manager) Attach(ctx context.Context, id *identity.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.detachLocked()
	m.entries = nil
	if id == nil {
		m.identity = nil
		m.streak = 0
		m.emit(Event{Type: EventEntriesChanged})
		m.syncWidgetLocked()
		return nil
	}

	ident := *id
	m.identity = &ident
	m.synced = make(chan struct{})
	m.isSynced = false
	m.published = unpublished
	m.streak = 0
	if m.streaks != nil {
		if n, ok := m.streaks.Load(ident.ID); ok {
			m.streak = n
		}
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub, err := m.remote.Subscribe(subCtx, ident.ID)
	if err != nil {
		cancel()
		return fmt.Errorf("journal: subscribe %s: %w", ident.ID, err)
	}
	m.sub = sub
	m.cancel = cancel
	gen := m.gen
	m.consumers.Add(1)
	go m.consume(subCtx, gen, sub)
	m.log.Debug("attached", "identity", ident.ID, "generation", gen)
	return nil
}

// ClearAll detaches, empties the collection and clears the widget. It is
// used on sign-out and account deletion and is safe without a subscription.
func (m *Manager) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.detachLocked()
	m.identity = nil
	m.entries = nil
	m.streak = 0
	m.emit(Event{Type: EventEntriesChanged})
	m.emit(Event{Type: EventStreakChanged})
	m.published = ""
	if m.widget == nil {
		return nil
	}
	if err := m.widget.Clear(ctx); err != nil {
		m.published = unpublished
		return fmt.Errorf("journal: clear widget: %w", err)
	}
	return nil
}

// Detach drops the subscription and empties the collection but leaves the
// widget showing whatever was last published.
func (m *Manager) Detach() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.detachLocked()
	m.identity = nil
	m.entries = nil
	m.streak = 0
	m.published = unpublished
	m.emit(Event{Type: EventEntriesChanged})
}

// Close detaches without touching the widget and waits for the snapshot
// consumer to exit.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.detachLocked()
	m.mu.Unlock()
	m.consumers.Wait()
	return nil
}

// detachLocked closes the subscription and bumps the generation so anything
// still in flight for it is discarded.
func (m *Manager) detachLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.sub != nil {
		if err := m.sub.Close(); err != nil {
			m.log.Warn("closing subscription", "err", err)
		}
		m.sub = nil
	}
	m.gen++
	// Ops of the old attachment still settle, but no longer overlay or roll
	// back anything.
	m.pending = make(map[uint64]*Op)
	m.confirmed = make(map[uint64]*Op)
}

func (m *Manager) consume(ctx context.Context, gen uint64, sub store.Subscription) {
	defer m.consumers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			m.applySnapshot(gen, snap)
		}
	}
}

// applySnapshot replaces the collection with snap, then re-applies local
// mutations the snapshot does not show yet. Snapshots from an old generation
// are dropped.
func (m *Manager) applySnapshot(gen uint64, snap store.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		m.log.Debug("discarding stale snapshot", "generation", gen, "current", m.gen)
		return
	}

	decoded := make([]entry.JournalEntry, 0, len(snap.Records))
	for _, rec := range snap.Records {
		e, err := decodeRecord(rec)
		if err != nil {
			m.log.Warn("skipping undecodable entry", "id", rec.ID, "err", err)
			m.emit(Event{Type: EventRecordSkipped, EntryID: rec.ID, Err: err})
			continue
		}
		decoded = append(decoded, e)
	}
	decoded = m.overlayLocked(decoded)
	m.entries = m.normalizePinsLocked(decoded)
	m.afterChangeLocked()

	if !m.isSynced {
		m.isSynced = true
		close(m.synced)
	}
	m.emit(Event{Type: EventSynced})
}

func decodeRecord(rec store.Record) (entry.JournalEntry, error) {
	var e entry.JournalEntry
	if err := json.Unmarshal(rec.Data, &e); err != nil {
		return entry.JournalEntry{}, err
	}
	if e.ID == "" {
		e.ID = rec.ID
	}
	if e.ID == "" {
		return entry.JournalEntry{}, errors.New("journal: record without id")
	}
	if e.ID != rec.ID && rec.ID != "" {
		return entry.JournalEntry{}, fmt.Errorf("journal: record %s holds entry %s", rec.ID, e.ID)
	}
	return e, nil
}

// normalizePinsLocked keeps at most one pinned entry in the local view,
// preferring the latest. The remote is left alone; the pin owner's next
// change rewrites it.
func (m *Manager) normalizePinsLocked(entries []entry.JournalEntry) []entry.JournalEntry {
	seen := false
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].IsPinned {
			continue
		}
		if seen {
			m.log.Warn("remote holds more than one pinned entry", "id", entries[i].ID)
			entries[i].IsPinned = false
			continue
		}
		seen = true
	}
	return entries
}

// afterChangeLocked runs the derived work every collection change needs:
// streak recompute and widget sync.
func (m *Manager) afterChangeLocked() {
	m.emit(Event{Type: EventEntriesChanged})

	n := streak.Compute(m.entries, m.now())
	if n != m.streak {
		m.streak = n
		m.emit(Event{Type: EventStreakChanged, Streak: n})
	}
	if m.identity != nil && m.streaks != nil {
		if err := m.streaks.Store(m.identity.ID, n); err != nil {
			m.log.Warn("caching streak", "err", err)
		}
	}

	m.syncWidgetLocked()
}

func (m *Manager) syncWidgetLocked() {
	if m.widget == nil {
		return
	}
	pinned := pinnedOf(m.entries)
	key := widgetKey(pinned)
	if key == m.published {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var err error
	if pinned == nil {
		err = m.widget.Clear(ctx)
	} else {
		err = m.widget.Publish(ctx, widget.FromEntry(*pinned))
	}
	if err != nil {
		m.log.Error("updating widget", "err", err)
		m.published = unpublished
		return
	}
	m.published = key
}

func widgetKey(e *entry.JournalEntry) string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s", e.ID, e.Text, e.Mood, e.BackgroundImage, e.TextColor)
}

// overlayLocked replays pending ops, and confirmed ops the snapshot does not
// reflect yet, in issue order. A snapshot queued before a write landed would
// otherwise undo it until the next one arrives.
func (m *Manager) overlayLocked(entries []entry.JournalEntry) []entry.JournalEntry {
	var reflected []*Op
	for _, op := range m.confirmed {
		if op.reflectedIn(entries) {
			reflected = append(reflected, op)
		}
	}
	now := m.now()
	ops := m.pendingLocked()
	for id, op := range m.confirmed {
		if op.reflectedIn(entries) || supersededBy(op, reflected) || now.Sub(op.confirmedAt) > m.echo {
			delete(m.confirmed, id)
			continue
		}
		ops = append(ops, op)
	}
	sortOps(ops)
	for _, op := range ops {
		entries = op.overlay(entries)
	}
	return entries
}

// supersededBy reports whether a later reflected op on the same entry already
// carries op's effect. Calls for one entry land in order.
func supersededBy(op *Op, reflected []*Op) bool {
	for _, later := range reflected {
		if later.EntryID == op.EntryID && later.ID > op.ID && later.covers(op) {
			return true
		}
	}
	return false
}

func (m *Manager) pendingLocked() []*Op {
	out := make([]*Op, 0, len(m.pending))
	for _, op := range m.pending {
		out = append(out, op)
	}
	sortOps(out)
	return out
}

func sortOps(ops []*Op) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
}

func pinnedOf(entries []entry.JournalEntry) *entry.JournalEntry {
	for i := range entries {
		if entries[i].IsPinned {
			return &entries[i]
		}
	}
	return nil
}

func indexOf(entries []entry.JournalEntry, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}

func insertSorted(entries []entry.JournalEntry, e entry.JournalEntry) []entry.JournalEntry {
	idx := entry.InsertIndex(entries, e)
	entries = append(entries, entry.JournalEntry{})
	copy(entries[idx+1:], entries[idx:])
	entries[idx] = e
	return entries
}

// moodBackground stamps the presentation fields a new entry derives.
func moodBackground(e *entry.JournalEntry, count int) {
	e.ColorTag = mood.ColorTag(e.Mood)
	if e.BackgroundImage == "" {
		bg := mood.Next(count)
		e.BackgroundImage = bg.Image
		if e.TextColor == "" {
			e.TextColor = bg.TextColor
		}
	}
}
