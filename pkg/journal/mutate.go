package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"tableflip.dev/whisper/pkg/entry"
)

// CreateEntry appends a new entry built from d and writes it to the remote in
// the background. The returned entry is already visible through Entries; if
// the write fails it is removed again and the Op ends rolled back.
func (m *Manager) CreateEntry(d entry.Draft) (entry.JournalEntry, *Op, error) {
	if err := d.Validate(); err != nil {
		return entry.JournalEntry{}, nil, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return entry.JournalEntry{}, nil, ErrNoIdentity
	}

	e := entry.New(d, m.now())
	moodBackground(&e, len(m.entries))
	data, err := json.Marshal(e)
	if err != nil {
		return entry.JournalEntry{}, nil, fmt.Errorf("journal: encode entry: %w", err)
	}

	op := m.newOpLocked(OpCreate, e.ID)
	op.entry = e.Clone()
	m.entries = append(m.entries, e)
	m.afterChangeLocked()

	ident := m.identity.ID
	m.dispatchLocked(op, ident, func(ctx context.Context) error {
		return m.remote.Write(ctx, ident, e.ID, data)
	})
	return e.Clone(), op, nil
}

// SetFavorited flips the favorite flag locally and patches the remote.
func (m *Manager) SetFavorited(id string, v bool) (*Op, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	op := m.patchLocked(idx, entry.Patch{IsFavorited: entry.Bool(v)})
	m.afterChangeLocked()
	return op, nil
}

// SetPinned pins or unpins id. Pinning clears every other pinned entry first,
// one patch each; the returned ops end with the one for id.
func (m *Manager) SetPinned(id string, v bool) ([]*Op, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.lookupLocked(id)
	if err != nil {
		return nil, err
	}

	var ops []*Op
	if v {
		for i := range m.entries {
			if i != idx && m.entries[i].IsPinned {
				ops = append(ops, m.patchLocked(i, entry.Patch{IsPinned: entry.Bool(false)}))
			}
		}
	}
	ops = append(ops, m.patchLocked(idx, entry.Patch{IsPinned: entry.Bool(v)}))
	m.afterChangeLocked()
	return ops, nil
}

// ChangeBackground swaps the presentation pair of id. An empty textColor
// keeps the current one. A pinned entry is republished to the widget.
func (m *Manager) ChangeBackground(id, background, textColor string) (*Op, error) {
	if background == "" {
		return nil, fmt.Errorf("%w: background required", ErrInvalidDraft)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	p := entry.Patch{BackgroundImage: entry.String(background)}
	if textColor != "" {
		p.TextColor = entry.String(textColor)
	}
	op := m.patchLocked(idx, p)
	m.afterChangeLocked()
	return op, nil
}

// DeleteEntry removes id locally and deletes it remotely. On failure the
// entry is put back at its date position.
func (m *Manager) DeleteEntry(id string) (*Op, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, err := m.lookupLocked(id)
	if err != nil {
		return nil, err
	}

	op := m.newOpLocked(OpDelete, id)
	op.entry = m.entries[idx].Clone()
	m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	m.afterChangeLocked()

	ident := m.identity.ID
	m.dispatchLocked(op, ident, func(ctx context.Context) error {
		return m.remote.Delete(ctx, ident, id)
	})
	return op, nil
}

func (m *Manager) lookupLocked(id string) (int, error) {
	if m.identity == nil {
		return -1, ErrNoIdentity
	}
	idx := indexOf(m.entries, id)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return idx, nil
}

func (m *Manager) newOpLocked(kind OpKind, entryID string) *Op {
	m.opSeq++
	op := newOp(m.opSeq, m.gen, kind, entryID)
	m.pending[op.ID] = op
	return op
}

func (m *Manager) patchLocked(idx int, p entry.Patch) *Op {
	e := &m.entries[idx]
	p.Apply(e)
	op := m.newOpLocked(OpPatch, e.ID)
	op.patch = p

	ident, id, fields := m.identity.ID, e.ID, p.Fields()
	m.dispatchLocked(op, ident, func(ctx context.Context) error {
		return m.remote.Patch(ctx, ident, id, fields)
	})
	return op
}

// dispatchLocked queues call behind the entry's earlier remote calls. Calls
// for one entry reach the remote one at a time, in issue order.
func (m *Manager) dispatchLocked(op *Op, ident string, call func(ctx context.Context) error) {
	op.queue = ident + "\x00" + op.EntryID
	op.call = call
	m.queues[op.queue] = append(m.queues[op.queue], op)
	if len(m.queues[op.queue]) == 1 {
		m.start(op)
	}
}

// start runs the op's call off the coordination lock and hands its result
// back through complete.
func (m *Manager) start(op *Op) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		m.complete(op, op.call(ctx))
	}()
}

func (m *Manager) complete(op *Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, op.ID)
	m.settleLocked(op, err)
	m.advanceLocked(op, err)
}

func (m *Manager) settleLocked(op *Op, err error) {
	if err == nil {
		if op.gen == m.gen {
			op.confirmedAt = m.now()
			m.confirmed[op.ID] = op
		}
		op.settle(OpConfirmed, nil)
		m.emit(Event{Type: EventOpConfirmed, EntryID: op.EntryID, Op: op})
		return
	}

	if op.gen != m.gen {
		// The collection it touched is gone; nothing to roll back.
		m.log.Debug("remote call failed after detach", "op", op.Kind, "id", op.EntryID, "err", err)
		op.settle(failedState(op.Kind), err)
		return
	}

	switch op.Kind {
	case OpCreate:
		if idx := indexOf(m.entries, op.EntryID); idx >= 0 {
			m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
			m.afterChangeLocked()
		}
		m.log.Warn("create failed, rolled back", "id", op.EntryID, "err", err)
	case OpDelete:
		if indexOf(m.entries, op.EntryID) < 0 {
			m.entries = insertSorted(m.entries, op.entry.Clone())
			m.entries = m.normalizePinsLocked(m.entries)
			m.afterChangeLocked()
		}
		m.log.Warn("delete failed, restored", "id", op.EntryID, "err", err)
	case OpPatch:
		m.log.Warn("patch failed", "id", op.EntryID, "fields", op.patch.Fields(), "err", err)
	}
	op.settle(failedState(op.Kind), err)
	m.emit(Event{Type: EventOpFailed, EntryID: op.EntryID, Op: op, Err: err})
}

// advanceLocked pops op off its queue and starts the next call. A failed
// create takes every queued op for the entry down with it.
func (m *Manager) advanceLocked(op *Op, err error) {
	queue := m.queues[op.queue][1:]
	if err != nil && op.Kind == OpCreate {
		for _, next := range queue {
			delete(m.pending, next.ID)
			cause := fmt.Errorf("journal: create of %s failed: %w", op.EntryID, err)
			next.settle(failedState(next.Kind), cause)
			if next.gen == m.gen {
				m.emit(Event{Type: EventOpFailed, EntryID: next.EntryID, Op: next, Err: cause})
			}
		}
		queue = nil
	}
	if len(queue) == 0 {
		delete(m.queues, op.queue)
		return
	}
	m.queues[op.queue] = queue
	m.start(queue[0])
}

func failedState(kind OpKind) OpState {
	if kind == OpPatch {
		return OpFailed
	}
	return OpRolledBack
}
