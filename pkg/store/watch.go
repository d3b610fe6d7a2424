package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ThrottleDelay coalesces bursts of filesystem writes into one snapshot.
var ThrottleDelay = 50 * time.Millisecond

type watchSubscription struct {
	snapshots chan Snapshot
	cancel    context.CancelFunc
	done      chan struct{}
}

func (w *watchSubscription) Snapshots() <-chan Snapshot { return w.snapshots }

func (w *watchSubscription) Close() error {
	w.cancel()
	<-w.done
	return nil
}

// Subscribe emits the current snapshot for identity, then a fresh snapshot
// after every change to the identity's directory. The channel is closed once
// ctx is done, Close is called, or the watcher fails.
func (s *Diskv) Subscribe(ctx context.Context, identity string) (Subscription, error) {
	if err := s.ensureIdentity(identity); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	dir := s.identityDir(identity)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("store: watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &watchSubscription{
		snapshots: make(chan Snapshot, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(sub.snapshots)
		defer func() {
			if err := watcher.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "store: watcher close: %v\n", err)
			}
		}()

		// Only this goroutine produces, so offer may drain stale snapshots.
		refresh := make(chan struct{}, 1)
		throttle := newEventThrottle(ThrottleDelay)
		defer throttle.Stop()

		offer(sub.snapshots, s.List(ctx, identity))

		for {
			select {
			case <-ctx.Done():
				return
			case <-refresh:
				offer(sub.snapshots, s.List(ctx, identity))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Unclassifiable failure; resend the full listing to stay in sync.
				fmt.Fprintf(os.Stderr, "store: watch %s: %v\n", dir, err)
				throttle.Enqueue(refresh)
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				throttle.Enqueue(refresh)
			}
		}
	}()

	return sub, nil
}

// eventThrottle coalesces rapid change notifications so subscribers receive
// one snapshot per burst of filesystem activity instead of one per write.
type eventThrottle struct {
	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
}

func newEventThrottle(delay time.Duration) *eventThrottle {
	return &eventThrottle{delay: delay}
}

func (t *eventThrottle) Enqueue(refresh chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		return
	}
	t.timer = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		t.timer = nil
		t.mu.Unlock()
		select {
		case refresh <- struct{}{}:
		default:
		}
	})
}

func (t *eventThrottle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
