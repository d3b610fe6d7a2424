// Package memstore is an in-memory store.Remote with failure injection and
// call gating, for tests and offline demos.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"tableflip.dev/whisper/pkg/store"
)

// Kind names a mutating remote call.
type Kind string

const (
	KindWrite  Kind = "write"
	KindPatch  Kind = "patch"
	KindDelete Kind = "delete"
)

// Store is NOT persistent.
type Store struct {
	mu      sync.Mutex
	docs    map[string]map[string][]byte
	subs    map[string]map[*subscription]struct{}
	fail    map[Kind]error
	failOne map[Kind]error
	calls   map[Kind]int
	gate    chan struct{}
}

// New creates an empty store.
func New() *Store {
	return &Store{
		docs:    make(map[string]map[string][]byte),
		subs:    make(map[string]map[*subscription]struct{}),
		fail:    make(map[Kind]error),
		failOne: make(map[Kind]error),
		calls:   make(map[Kind]int),
	}
}

// Fail makes every call of kind return err until cleared with a nil err.
func (s *Store) Fail(kind Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, kind)
		return
	}
	s.fail[kind] = err
}

// FailNext makes only the next call of kind return err.
func (s *Store) FailNext(kind Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOne[kind] = err
}

// Hold blocks every subsequent mutating call until Release.
func (s *Store) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate == nil {
		s.gate = make(chan struct{})
	}
}

// Release unblocks calls parked by Hold.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
}

// Calls reports how many calls of kind were attempted.
func (s *Store) Calls(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

// Put seeds a raw document without notifying subscribers.
func (s *Store) Put(identity, id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(identity, id, data)
}

// Get returns a copy of the stored document.
func (s *Store) Get(identity, id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[identity][id]
	return append([]byte(nil), data...), ok
}

// Len reports how many documents identity holds.
func (s *Store) Len(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[identity])
}

// Broadcast sends the current snapshot to identity's subscribers.
func (s *Store) Broadcast(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(identity)
}

// Backlog reports how many snapshots are queued but not yet received by
// identity's subscribers.
func (s *Store) Backlog(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for sub := range s.subs[identity] {
		n += len(sub.snapshots)
	}
	return n
}

// Subscribers reports how many open subscriptions identity has.
func (s *Store) Subscribers(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[identity])
}

func (s *Store) Subscribe(ctx context.Context, identity string) (store.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscription{
		owner:     s,
		identity:  identity,
		snapshots: make(chan store.Snapshot, 64),
	}
	if s.subs[identity] == nil {
		s.subs[identity] = make(map[*subscription]struct{})
	}
	s.subs[identity][sub] = struct{}{}
	sub.send(s.snapshotLocked(identity))
	return sub, nil
}

func (s *Store) Write(ctx context.Context, identity, id string, data []byte) error {
	if err := s.enter(ctx, KindWrite); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(identity, id, data)
	s.broadcastLocked(identity)
	return nil
}

func (s *Store) Patch(ctx context.Context, identity, id string, fields map[string]any) error {
	if err := s.enter(ctx, KindPatch); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[identity][id]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	merged, err := store.MergePatch(data, fields)
	if err != nil {
		return fmt.Errorf("memstore: patch %s: %w", id, err)
	}
	s.putLocked(identity, id, merged)
	s.broadcastLocked(identity)
	return nil
}

func (s *Store) Delete(ctx context.Context, identity, id string) error {
	if err := s.enter(ctx, KindDelete); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[identity][id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	delete(s.docs[identity], id)
	s.broadcastLocked(identity)
	return nil
}

// enter counts the call, waits out a Hold, and returns any injected failure.
func (s *Store) enter(ctx context.Context, kind Kind) error {
	s.mu.Lock()
	s.calls[kind]++
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failOne[kind]; ok {
		delete(s.failOne, kind)
		return err
	}
	return s.fail[kind]
}

func (s *Store) putLocked(identity, id string, data []byte) {
	if s.docs[identity] == nil {
		s.docs[identity] = make(map[string][]byte)
	}
	s.docs[identity][id] = append([]byte(nil), data...)
}

func (s *Store) snapshotLocked(identity string) store.Snapshot {
	snap := store.Snapshot{Identity: identity}
	for id, data := range s.docs[identity] {
		snap.Records = append(snap.Records, store.Record{ID: id, Data: append([]byte(nil), data...)})
	}
	store.SortRecords(snap.Records)
	return snap
}

func (s *Store) broadcastLocked(identity string) {
	if len(s.subs[identity]) == 0 {
		return
	}
	snap := s.snapshotLocked(identity)
	for sub := range s.subs[identity] {
		sub.send(snap)
	}
}

type subscription struct {
	owner     *Store
	identity  string
	snapshots chan store.Snapshot
	closed    bool
}

func (c *subscription) Snapshots() <-chan store.Snapshot { return c.snapshots }

func (c *subscription) Close() error {
	c.owner.mu.Lock()
	defer c.owner.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	delete(c.owner.subs[c.identity], c)
	close(c.snapshots)
	return nil
}

// send must be called with the owner lock held.
func (c *subscription) send(snap store.Snapshot) {
	if c.closed {
		return
	}
	select {
	case c.snapshots <- snap:
	default:
		// Consumer is far behind; a later broadcast carries the full state.
	}
}
