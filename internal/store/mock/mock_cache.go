package mock

import (
	"context"
	"sync"
	"time"
)

// MockCache simulates a shared payload cache such as Redis. Expiry is not
// simulated; TTLs are recorded for inspection.
type MockCache struct {
	data map[string]string
	ttls map[string]time.Duration
	mu   sync.RWMutex
}

// NewMockCache creates a new mock cache
func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

// Get returns the payload under key. A miss yields "" and no error.
func (c *MockCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data[key], nil
}

// Put stores a payload.
func (c *MockCache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

// Delete removes payloads.
func (c *MockCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.data, key)
		delete(c.ttls, key)
	}
	return nil
}

// TTL returns the ttl recorded for key.
func (c *MockCache) TTL(key string) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ttls[key]
}

// Len returns the number of stored payloads.
func (c *MockCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
