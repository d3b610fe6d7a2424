package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

// Diskv is a Remote backed by a diskv tree, one directory per identity. Any
// process writing the same tree (another CLI invocation, a sync daemon)
// becomes visible to subscribers through Watch.
type Diskv struct {
	d        *diskv.Diskv
	basePath string
}

// Open creates a Diskv remote rooted at basePath.
func Open(basePath string) (*Diskv, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, errors.New("store: base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}
	return &Diskv{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		TempDir:           filepath.Join(basePath, ".tmp"),
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		CacheSizeMax:      0, // other processes write the same tree
	}), basePath: basePath}, nil
}

// Write stores the full entry document.
func (s *Diskv) Write(ctx context.Context, identity, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ensureIdentity(identity); err != nil {
		return err
	}
	if err := s.d.Write(toKey(identity, id), data); err != nil {
		return fmt.Errorf("store: write %s: %w", id, err)
	}
	return nil
}

// Patch merges fields into an existing document.
func (s *Diskv) Patch(ctx context.Context, identity, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := toKey(identity, id)
	if !s.d.Has(key) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	data, err := s.d.Read(key)
	if err != nil {
		return fmt.Errorf("store: read %s: %w", id, err)
	}
	merged, err := MergePatch(data, fields)
	if err != nil {
		return fmt.Errorf("store: patch %s: %w", id, err)
	}
	if err := s.d.Write(key, merged); err != nil {
		return fmt.Errorf("store: write %s: %w", id, err)
	}
	return nil
}

// Delete removes a document.
func (s *Diskv) Delete(ctx context.Context, identity, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := toKey(identity, id)
	if !s.d.Has(key) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("store: erase %s: %w", id, err)
	}
	return nil
}

// List reads the current snapshot for identity. Unreadable files are
// reported on stderr and skipped.
func (s *Diskv) List(ctx context.Context, identity string) Snapshot {
	prefix := toIdentity(identity) + "/"
	snap := Snapshot{Identity: identity}
	for key := range s.d.KeysPrefix(prefix, ctx.Done()) {
		data, err := s.d.Read(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "store: %s: %s\n", key, err)
			continue
		}
		snap.Records = append(snap.Records, Record{ID: keyToPathTransform(key).FileName, Data: data})
	}
	SortRecords(snap.Records)
	return snap
}

// EraseIdentity drops every document for identity.
func (s *Diskv) EraseIdentity(identity string) error {
	return os.RemoveAll(s.identityDir(identity))
}

func (s *Diskv) ensureIdentity(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return errors.New("store: identity required")
	}
	if err := os.MkdirAll(s.identityDir(identity), 0o755); err != nil {
		return fmt.Errorf("store: ensure identity directory: %w", err)
	}
	return nil
}

func (s *Diskv) identityDir(identity string) string {
	return filepath.Join(s.basePath, toIdentity(identity))
}

func keyToPathTransform(s string) *diskv.PathKey {
	idx := strings.Index(s, "/")
	if idx < 0 {
		return &diskv.PathKey{Path: []string{}, FileName: s}
	}
	return &diskv.PathKey{
		Path:     []string{s[:idx]},
		FileName: s[idx+1:],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	if len(pathKey.Path) == 0 {
		return pathKey.FileName
	}
	return fmt.Sprintf("%s/%s", strings.Join(pathKey.Path, "/"), pathKey.FileName)
}

// toKey makes `identity/id`
func toKey(identity, id string) string {
	return fmt.Sprintf("%s/%s", toIdentity(identity), id)
}

func toIdentity(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
