// Package identity tracks who is signed in and notifies on change.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Identity is a signed-in user.
type Identity struct {
	ID string
}

// ErrInvalid is returned when signing in without an id.
var ErrInvalid = errors.New("identity: id required")

// Provider exposes the current identity and a change stream. A nil
// *Identity on the stream means signed out.
type Provider interface {
	Current(ctx context.Context) (*Identity, error)
	Watch(ctx context.Context) <-chan *Identity
	SignIn(ctx context.Context, id Identity) error
	SignOut(ctx context.Context) error
}

// watchers fans identity changes out to Watch callers.
type watchers struct {
	mu   sync.Mutex
	subs map[chan *Identity]struct{}
}

func (w *watchers) add(ctx context.Context) <-chan *Identity {
	ch := make(chan *Identity, 8)
	w.mu.Lock()
	if w.subs == nil {
		w.subs = make(map[chan *Identity]struct{})
	}
	w.subs[ch] = struct{}{}
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		delete(w.subs, ch)
		close(ch)
		w.mu.Unlock()
	}()
	return ch
}

func (w *watchers) broadcast(id *Identity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.subs {
		var cp *Identity
		if id != nil {
			v := *id
			cp = &v
		}
		select {
		case ch <- cp:
		default:
		}
	}
}

// MemoryProvider keeps the identity in process.
type MemoryProvider struct {
	mu      sync.Mutex
	current *Identity
	watch   watchers
}

// NewMemoryProvider starts signed in as initial when it is non-nil.
func NewMemoryProvider(initial *Identity) *MemoryProvider {
	p := &MemoryProvider{}
	if initial != nil {
		v := *initial
		p.current = &v
	}
	return p
}

func (p *MemoryProvider) Current(context.Context) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, nil
	}
	v := *p.current
	return &v, nil
}

func (p *MemoryProvider) Watch(ctx context.Context) <-chan *Identity {
	return p.watch.add(ctx)
}

func (p *MemoryProvider) SignIn(_ context.Context, id Identity) error {
	id.ID = strings.TrimSpace(id.ID)
	if id.ID == "" {
		return ErrInvalid
	}
	p.mu.Lock()
	p.current = &id
	p.mu.Unlock()
	p.watch.broadcast(&id)
	return nil
}

func (p *MemoryProvider) SignOut(context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	p.watch.broadcast(nil)
	return nil
}
