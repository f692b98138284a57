package nutrients

import (
	"sync"

	"github.com/noot-app/macroplan-mcp-server/internal/types"
)

// Food is a resolved food: its display name, standardized key and profile
type Food struct {
	Key     string                `json:"key"`
	Name    string                `json:"name"`
	Profile types.NutrientProfile `json:"profile"`
	Source  string                `json:"source"`
}

// Cache maps standardized food names to resolved foods. It is shared by every planning
// session in the process and never invalidated; concurrent writers for the same key only
// cause a redundant lookup.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Food
}

var sharedCache = NewCache()

// SharedCache returns the process-wide cache
func SharedCache() *Cache {
	return sharedCache
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Food)}
}

// Get returns the cached food for a standardized key
func (c *Cache) Get(key string) (Food, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.entries[key]
	return f, ok
}

// Put stores a food under its key
func (c *Cache) Put(f Food) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[f.Key] = f
}

// Len returns the number of cached foods
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
