// Package cache is a content-addressed store for raw HTTP responses.
// Entries are keyed by a hash of the URL and live as plain files under a
// configured directory; freshness is enforced on read.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Cache struct {
	path string
	ttl  time.Duration
}

func New(path string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Cache{path: path, ttl: ttl}, nil
}

// Hash returns the stable cache key for a URL.
func Hash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached payload for key. An entry older than the TTL is
// a miss.
func (c *Cache) Get(key string) ([]byte, bool) {
	path := c.filePath(key)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Save stores the payload for key, overwriting any previous entry.
func (c *Cache) Save(key string, data []byte) error {
	path := c.filePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache subdir: %w", err)
	}

	// Write-then-rename so concurrent writers never expose a partial entry.
	tmp, err := os.CreateTemp(filepath.Dir(path), key+".tmp")
	if err != nil {
		return fmt.Errorf("creating cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

// Remove deletes the entry for key and reports whether one existed.
func (c *Cache) Remove(key string) bool {
	return os.Remove(c.filePath(key)) == nil
}

// filePath fans entries out over two-character subdirectories to keep any
// single directory small.
func (c *Cache) filePath(key string) string {
	if len(key) < 2 {
		return filepath.Join(c.path, key)
	}
	return filepath.Join(c.path, key[:2], key)
}
