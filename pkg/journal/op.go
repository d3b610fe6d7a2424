package journal

import (
	"context"
	"sync"
	"time"

	"tableflip.dev/whisper/pkg/entry"
)

// OpKind names the remote call behind a pending operation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpPatch  OpKind = "patch"
	OpDelete OpKind = "delete"
)

// OpState is the lifecycle of an optimistic mutation.
//
//	pending -> confirmed
//	pending -> rolled-back  (create, delete)
//	pending -> failed       (patch; the next snapshot corrects it)
type OpState int

const (
	OpPending OpState = iota
	OpConfirmed
	OpRolledBack
	OpFailed
)

func (s OpState) String() string {
	switch s {
	case OpPending:
		return "pending"
	case OpConfirmed:
		return "confirmed"
	case OpRolledBack:
		return "rolled-back"
	case OpFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Op tracks one optimistic mutation until the remote answers.
type Op struct {
	ID      uint64
	Kind    OpKind
	EntryID string

	gen   uint64
	patch entry.Patch
	// per-entry remote call queue, keyed by identity and entry id
	queue string
	call  func(ctx context.Context) error
	// snapshot of the entry as created (create) or as removed (delete)
	entry entry.JournalEntry

	// set once confirmed; the op keeps overlaying snapshots until one
	// reflects it, or a later op on the same entry, or the echo window passes
	confirmedAt time.Time

	mu    sync.Mutex
	state OpState
	err   error
	done  chan struct{}
}

func newOp(id, gen uint64, kind OpKind, entryID string) *Op {
	return &Op{ID: id, gen: gen, Kind: kind, EntryID: entryID, done: make(chan struct{})}
}

// Done is closed once the op settles.
func (o *Op) Done() <-chan struct{} { return o.done }

// State reports the current lifecycle state.
func (o *Op) State() OpState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err is the remote failure for rolled-back or failed ops.
func (o *Op) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Wait blocks until the op settles or ctx is done.
func (o *Op) Wait(ctx context.Context) (OpState, error) {
	select {
	case <-o.done:
		return o.State(), o.Err()
	case <-ctx.Done():
		return OpPending, ctx.Err()
	}
}

func (o *Op) settle(state OpState, err error) {
	o.mu.Lock()
	o.state = state
	o.err = err
	o.mu.Unlock()
	close(o.done)
}

// reflectedIn reports whether a snapshot already shows the op's effect.
func (o *Op) reflectedIn(entries []entry.JournalEntry) bool {
	idx := indexOf(entries, o.EntryID)
	switch o.Kind {
	case OpCreate:
		return idx >= 0
	case OpDelete:
		return idx < 0
	case OpPatch:
		return idx < 0 || o.patch.Matches(entries[idx])
	}
	return true
}

// covers reports whether o rewrites everything earlier touched.
func (o *Op) covers(earlier *Op) bool {
	if o.Kind != OpPatch {
		return true
	}
	if earlier.Kind != OpPatch {
		return false
	}
	fields := o.patch.Fields()
	for k := range earlier.patch.Fields() {
		if _, ok := fields[k]; !ok {
			return false
		}
	}
	return true
}

// overlay re-applies a local mutation on top of a remote snapshot.
func (o *Op) overlay(entries []entry.JournalEntry) []entry.JournalEntry {
	idx := indexOf(entries, o.EntryID)
	switch o.Kind {
	case OpCreate:
		if idx < 0 {
			return insertSorted(entries, o.entry.Clone())
		}
	case OpDelete:
		if idx >= 0 {
			return append(entries[:idx], entries[idx+1:]...)
		}
	case OpPatch:
		if idx >= 0 {
			o.patch.Apply(&entries[idx])
		}
	}
	return entries
}
