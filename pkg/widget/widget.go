// Package widget writes the pinned entry to a key/value area read by an
// out-of-process widget renderer.
package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tableflip.dev/whisper/pkg/entry"
)

const (
	KeyText       = "widget.text"
	KeyMood       = "widget.mood"
	KeyBackground = "widget.background"
	KeyTextColor  = "widget.textColor"
	// KeyTimestamp is the commit marker: the payload time plus a token unique
	// to each publish. It is written last and removed first; readers treat
	// the area as empty without it.
	KeyTimestamp = "widget.timestamp"
)

var fieldKeys = []string{KeyText, KeyMood, KeyBackground, KeyTextColor}

// ErrNoKey is returned by SharedStorage.GetString for missing keys.
var ErrNoKey = errors.New("widget: key not set")

// SharedStorage is the storage area shared with the widget process.
type SharedStorage interface {
	SetString(key, value string) error
	GetString(key string) (string, error)
	RemoveKey(key string) error
}

// Notifier asks the host to refresh the widget. No acknowledgment is
// expected.
type Notifier interface {
	Notify()
}

// NotifierFunc adapts a func to Notifier.
type NotifierFunc func()

func (f NotifierFunc) Notify() {
	if f != nil {
		f()
	}
}

// Payload is what the widget renders.
type Payload struct {
	Text            string
	Mood            string
	BackgroundImage string
	TextColor       string
	Timestamp       time.Time
}

// FromEntry builds the payload for a pinned entry.
func FromEntry(e entry.JournalEntry) Payload {
	return Payload{
		Text:            e.Text,
		Mood:            e.Mood,
		BackgroundImage: e.BackgroundImage,
		TextColor:       e.TextColor,
		Timestamp:       e.Date,
	}
}

// Bridge serializes writes to the shared area.
type Bridge struct {
	mu      sync.Mutex
	storage SharedStorage
	notify  Notifier
	seq     uint64
}

// New creates a bridge. notify may be nil.
func New(storage SharedStorage, notify Notifier) *Bridge {
	return &Bridge{storage: storage, notify: notify}
}

// Publish replaces the widget contents with p.
func (b *Bridge) Publish(ctx context.Context, p Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.storage.RemoveKey(KeyTimestamp); err != nil {
		return fmt.Errorf("widget: remove %s: %w", KeyTimestamp, err)
	}
	values := map[string]string{
		KeyText:       p.Text,
		KeyMood:       p.Mood,
		KeyBackground: p.BackgroundImage,
		KeyTextColor:  p.TextColor,
	}
	for _, key := range fieldKeys {
		if err := b.storage.SetString(key, values[key]); err != nil {
			return fmt.Errorf("widget: set %s: %w", key, err)
		}
	}
	stamp := p.Timestamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	b.seq++
	marker := fmt.Sprintf("%s#%d.%d", entry.FormatTime(stamp), time.Now().UnixNano(), b.seq)
	if err := b.storage.SetString(KeyTimestamp, marker); err != nil {
		return fmt.Errorf("widget: set %s: %w", KeyTimestamp, err)
	}
	b.poke()
	return nil
}

// Clear removes every widget key.
func (b *Bridge) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range append([]string{KeyTimestamp}, fieldKeys...) {
		if err := b.storage.RemoveKey(key); err != nil {
			return fmt.Errorf("widget: remove %s: %w", key, err)
		}
	}
	b.poke()
	return nil
}

func (b *Bridge) poke() {
	if b.notify != nil {
		go b.notify.Notify()
	}
}

// Read is the reader side: it returns the committed payload, or ok=false
// when nothing is published. A read racing a writer is retried.
func Read(storage SharedStorage) (Payload, bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		before, err := storage.GetString(KeyTimestamp)
		if errors.Is(err, ErrNoKey) {
			return Payload{}, false, nil
		}
		if err != nil {
			return Payload{}, false, err
		}
		values := make(map[string]string, len(fieldKeys))
		for _, key := range fieldKeys {
			v, err := storage.GetString(key)
			if err != nil && !errors.Is(err, ErrNoKey) {
				return Payload{}, false, err
			}
			values[key] = v
		}
		after, err := storage.GetString(KeyTimestamp)
		if err != nil || after != before {
			continue
		}
		stamp, err := parseMarker(before)
		if err != nil {
			return Payload{}, false, fmt.Errorf("widget: parse timestamp: %w", err)
		}
		return Payload{
			Text:            values[KeyText],
			Mood:            values[KeyMood],
			BackgroundImage: values[KeyBackground],
			TextColor:       values[KeyTextColor],
			Timestamp:       stamp,
		}, true, nil
	}
	return Payload{}, false, errors.New("widget: storage kept changing during read")
}

// parseMarker returns the payload time carried by a commit marker. Markers
// written without a token are accepted as a bare timestamp.
func parseMarker(marker string) (time.Time, error) {
	if i := strings.LastIndexByte(marker, '#'); i >= 0 {
		marker = marker[:i]
	}
	return time.Parse(time.RFC3339Nano, marker)
}
