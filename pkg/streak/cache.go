package streak

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/peterbourgon/diskv/v3"
)

// Cache remembers the last computed streak per identity so it can be shown
// before the first snapshot arrives. The entry collection always wins.
type Cache struct {
	d *diskv.Diskv
}

// OpenCache opens (creating if needed) a cache directory.
func OpenCache(dir string) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("streak: cache directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("streak: ensure cache directory: %w", err)
	}
	return &Cache{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 4 * 1024,
	})}, nil
}

// Load returns the cached streak, ok=false when none is stored.
func (c *Cache) Load(identity string) (int, bool) {
	key := cacheKey(identity)
	if !c.d.Has(key) {
		return 0, false
	}
	b, err := c.d.Read(key)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(b))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Store saves n for identity.
func (c *Cache) Store(identity string, n int) error {
	if err := c.d.WriteString(cacheKey(identity), strconv.Itoa(n)); err != nil {
		return fmt.Errorf("streak: store: %w", err)
	}
	return nil
}

// Forget drops the cached value for identity.
func (c *Cache) Forget(identity string) error {
	key := cacheKey(identity)
	if !c.d.Has(key) {
		return nil
	}
	return c.d.Erase(key)
}

func cacheKey(identity string) string {
	return "streak-" + base64.RawURLEncoding.EncodeToString([]byte(identity))
}
