package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service is the keyring service name.
	Service = "whisper"
	keyUser = "current-identity"
)

// KeyringProvider persists the signed-in identity in the OS keyring so it
// survives between CLI invocations. Change notifications are in-process.
type KeyringProvider struct {
	Service string
	watch   watchers
}

// NewKeyringProvider uses the default service name when service is empty.
func NewKeyringProvider(service string) *KeyringProvider {
	if service == "" {
		service = Service
	}
	return &KeyringProvider{Service: service}
}

func (p *KeyringProvider) Current(context.Context) (*Identity, error) {
	id, err := keyring.Get(p.Service, keyUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identity: read keyring: %w", err)
	}
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return &Identity{ID: id}, nil
}

func (p *KeyringProvider) Watch(ctx context.Context) <-chan *Identity {
	return p.watch.add(ctx)
}

func (p *KeyringProvider) SignIn(_ context.Context, id Identity) error {
	id.ID = strings.TrimSpace(id.ID)
	if id.ID == "" {
		return ErrInvalid
	}
	if err := keyring.Set(p.Service, keyUser, id.ID); err != nil {
		return fmt.Errorf("identity: write keyring: %w", err)
	}
	p.watch.broadcast(&id)
	return nil
}

func (p *KeyringProvider) SignOut(context.Context) error {
	err := keyring.Delete(p.Service, keyUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("identity: clear keyring: %w", err)
	}
	p.watch.broadcast(nil)
	return nil
}
