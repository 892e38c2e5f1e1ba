// Package assets handles descriptor loading and caching from data
// directories.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/vf3-assembler/internal/logger"
	"github.com/Faultbox/vf3-assembler/pkg/formats"
)

// ErrNotFound is returned when no directory holds the requested descriptor.
var ErrNotFound = errors.New("descriptor not found")

// Manager resolves descriptor prefixes to parsed descriptors. It implements
// formats.Library.
type Manager struct {
	dirs  []string
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddDir adds a descriptor directory to the manager.
// Directories are searched in reverse order (last added = highest priority).
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("opening descriptor dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("opening descriptor dir %s: not a directory", dir)
	}

	m.mu.Lock()
	m.dirs = append(m.dirs, dir)
	m.mu.Unlock()

	return nil
}

// Load returns the descriptor for prefix, parsing <PREFIX>.TXT on first use.
// File names match case-insensitively.
func (m *Manager) Load(prefix string) (*formats.Descriptor, error) {
	key := strings.ToLower(prefix)

	// Check cache first
	if d, ok := m.cache.Get(key); ok {
		return d, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Search directories in reverse order
	for i := len(m.dirs) - 1; i >= 0; i-- {
		path, ok := findFile(m.dirs[i], key+".txt")
		if !ok {
			continue
		}
		d, err := formats.ParseDescriptorFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		logger.Debug("descriptor loaded",
			zap.String("prefix", key),
			zap.String("path", path),
			zap.Int("blocks", len(d.Order)),
		)
		m.cache.Set(key, d)
		return d, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, prefix)
}

// Lookup implements formats.Library. Parse failures count as misses and are
// logged.
func (m *Manager) Lookup(prefix string) (*formats.Descriptor, bool) {
	d, err := m.Load(prefix)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("descriptor unreadable", zap.String("prefix", prefix), zap.Error(err))
		}
		return nil, false
	}
	return d, true
}

// List returns the descriptor prefixes available across all directories,
// lower-cased and without duplicates.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for i := len(m.dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(m.dirs[i])
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := strings.ToLower(e.Name())
			if e.IsDir() || filepath.Ext(name) != ".txt" {
				continue
			}
			prefix := strings.TrimSuffix(name, ".txt")
			if !seen[prefix] {
				seen[prefix] = true
				out = append(out, prefix)
			}
		}
	}
	return out
}

// Close drops all directories and cached descriptors.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs = nil
	m.cache.Clear()
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

func findFile(dir, lowerName string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.ToLower(e.Name()) == lowerName {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

// Cache is a simple in-memory cache for parsed descriptors.
type Cache struct {
	data map[string]*formats.Descriptor
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*formats.Descriptor),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (*formats.Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return d, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, d *formats.Descriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = d
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*formats.Descriptor)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

var _ formats.Library = (*Manager)(nil)
