package widget

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPublishThenRead(t *testing.T) {
	for name, storage := range map[string]SharedStorage{
		"memory": NewMemoryStorage(),
		"diskv":  mustDiskv(t),
	} {
		t.Run(name, func(t *testing.T) {
			notified := make(chan struct{}, 4)
			b := New(storage, NotifierFunc(func() { notified <- struct{}{} }))
			ctx := context.Background()

			if _, ok, err := Read(storage); err != nil || ok {
				t.Fatalf("expected empty area, ok=%v err=%v", ok, err)
			}

			stamp := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
			want := Payload{Text: "Breathe and let it pass.", Mood: "calm", BackgroundImage: "bg_dusk", TextColor: "#FFFFFF", Timestamp: stamp}
			if err := b.Publish(ctx, want); err != nil {
				t.Fatalf("publish: %v", err)
			}
			got, ok, err := Read(storage)
			if err != nil || !ok {
				t.Fatalf("read: ok=%v err=%v", ok, err)
			}
			if got.Text != want.Text || got.Mood != want.Mood || got.BackgroundImage != want.BackgroundImage || got.TextColor != want.TextColor {
				t.Fatalf("unexpected payload: %+v", got)
			}
			if !got.Timestamp.Equal(stamp) {
				t.Fatalf("expected timestamp %v, got %v", stamp, got.Timestamp)
			}

			if err := b.Clear(ctx); err != nil {
				t.Fatalf("clear: %v", err)
			}
			if _, ok, err := Read(storage); err != nil || ok {
				t.Fatalf("expected cleared area, ok=%v err=%v", ok, err)
			}
			for _, key := range append([]string{KeyTimestamp}, fieldKeys...) {
				if _, err := storage.GetString(key); err != ErrNoKey {
					t.Fatalf("expected %s removed, got %v", key, err)
				}
			}

			select {
			case <-notified:
			case <-time.After(time.Second):
				t.Fatal("expected host notification")
			}
		})
	}
}

func TestReadIgnoresFieldsWithoutCommitMarker(t *testing.T) {
	storage := NewMemoryStorage()
	_ = storage.SetString(KeyText, "half written")
	if _, ok, err := Read(storage); err != nil || ok {
		t.Fatalf("expected no payload without marker, ok=%v err=%v", ok, err)
	}
}

// racingStorage runs during once, right after the first read of the
// background key.
type racingStorage struct {
	*MemoryStorage
	once   sync.Once
	during func()
}

func (r *racingStorage) GetString(key string) (string, error) {
	v, err := r.MemoryStorage.GetString(key)
	if key == KeyBackground {
		r.once.Do(r.during)
	}
	return v, err
}

func TestReadRetriesWhenSamePayloadIsRepublished(t *testing.T) {
	storage := &racingStorage{MemoryStorage: NewMemoryStorage()}
	b := New(storage, nil)
	ctx := context.Background()
	stamp := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	dawn := Payload{Text: "Rest.", Mood: "tired", BackgroundImage: "bg_dawn", TextColor: "#1B1B1B", Timestamp: stamp}
	if err := b.Publish(ctx, dawn); err != nil {
		t.Fatalf("publish: %v", err)
	}
	night := dawn
	night.BackgroundImage, night.TextColor = "bg_night", "#FFFFFF"
	storage.during = func() {
		if err := b.Publish(ctx, night); err != nil {
			t.Errorf("republish: %v", err)
		}
	}

	got, ok, err := Read(storage)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if got.BackgroundImage != "bg_night" || got.TextColor != "#FFFFFF" {
		t.Fatalf("torn read: background=%s textColor=%s", got.BackgroundImage, got.TextColor)
	}
	if !got.Timestamp.Equal(stamp) {
		t.Fatalf("expected timestamp %v, got %v", stamp, got.Timestamp)
	}
}

func mustDiskv(t *testing.T) *DiskvStorage {
	t.Helper()
	s, err := NewDiskvStorage(t.TempDir())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	return s
}
