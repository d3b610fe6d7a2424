// Package store defines the remote entry store the journal engine syncs
// against, plus a diskv-backed implementation that pushes snapshots on
// filesystem change.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

var (
	// ErrNotFound is returned by Patch and Delete for unknown entries.
	ErrNotFound = errors.New("store: entry not found")
	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("store: closed")
)

// Record is one raw entry document as held by the remote.
type Record struct {
	ID   string
	Data []byte
}

// Snapshot is the full, date-ordered listing of an identity's entries.
type Snapshot struct {
	Identity string
	Records  []Record
}

// Subscription delivers snapshots until closed.
type Subscription interface {
	Snapshots() <-chan Snapshot
	Close() error
}

// Remote is the durable store reachable only through writes and a push
// subscription. Every call may fail independently.
type Remote interface {
	Subscribe(ctx context.Context, identity string) (Subscription, error)
	Write(ctx context.Context, identity, id string, data []byte) error
	Patch(ctx context.Context, identity, id string, fields map[string]any) error
	Delete(ctx context.Context, identity, id string) error
}

// SortRecords orders records by their "date" field, then id. Records whose
// date cannot be read sort last; decoding them is left to the consumer.
func SortRecords(records []Record) {
	type keyed struct {
		date time.Time
		ok   bool
	}
	keys := make(map[string]keyed, len(records))
	for _, r := range records {
		var peek struct {
			Date time.Time `json:"date"`
		}
		err := json.Unmarshal(r.Data, &peek)
		keys[r.ID] = keyed{date: peek.Date, ok: err == nil}
	}
	sort.SliceStable(records, func(i, j int) bool {
		left, right := keys[records[i].ID], keys[records[j].ID]
		switch {
		case left.ok && !right.ok:
			return true
		case !left.ok && right.ok:
			return false
		case left.ok && right.ok && !left.date.Equal(right.date):
			return left.date.Before(right.date)
		default:
			return records[i].ID < records[j].ID
		}
	})
}

// MergePatch applies fields onto a JSON object document.
func MergePatch(data []byte, fields map[string]any) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		doc[k] = raw
	}
	return json.Marshal(doc)
}

// offer delivers snap keeping only the newest undelivered snapshot when the
// consumer lags. Must only be called from the channel's single producer.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
