package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/jira-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrCacheKeyNotFound  = errors.New("key not found")
	ErrCacheEntryExpired = errors.New("cache entry expired")
)

// CacheEntry is one cached response body with its expiry.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	ETag      string    `json:"etag,omitempty"`
}

// Expired reports whether the entry's TTL has elapsed.
func (e *CacheEntry) Expired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache is the backend interface for response caching.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheOptions are common options applied to any backend.
type CacheOptions struct {
	// TTL is the default time-to-live for entries stored without an
	// explicit expiry.
	TTL time.Duration

	// KeyPrefix namespaces all keys, useful when one backend serves several
	// clients.
	KeyPrefix string

	// MaxValueSize rejects oversized bodies instead of caching them.
	MaxValueSize int
}

// DefaultCacheOptions returns default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		TTL:          constants.DefaultCacheTTL,
		MaxValueSize: constants.MaxCacheValueSize,
	}
}

// MemoryCache is an in-memory cache with a fixed entry limit. When full, the
// entry closest to expiry is evicted first.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	maxSize int
}

// NewMemoryCache creates a new memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
	}
}

// Get retrieves an entry. Expired entries are removed and reported as a
// cache miss with a distinct error.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
	}

	if entry.Expired() {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()

		return nil, fmt.Errorf("cache entry expired: %s: %w", key, ErrCacheEntryExpired)
	}

	return entry, nil
}

// Set stores an entry, evicting the entry closest to expiry when the cache
// is full.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	c.entries[key] = entry

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)

	return nil
}

// Has reports whether a live entry exists for the key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]

	return ok && !entry.Expired()
}

// Cleanup removes expired entries. Callers run it periodically; the cache
// starts no goroutines of its own.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.Expired() {
			delete(c.entries, key)
		}
	}
}

// evictLocked drops the entry with the earliest expiry. Caller holds the
// write lock.
func (c *MemoryCache) evictLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
	)

	for key, entry := range c.entries {
		if oldestKey == "" || entry.ExpiresAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.ExpiresAt
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// NATSKVConfig configures the NATS JetStream KV cache backend.
type NATSKVConfig struct {
	// URLs are the NATS server URLs.
	URLs []string

	// Bucket is the KV bucket name. Created when missing.
	Bucket string

	// TTL is applied at the bucket level on creation.
	TTL time.Duration

	// Optional credentials
	Username  string
	Password  string
	Token     string
	CredsFile string
}

// NATSKVCache stores entries in a NATS JetStream key-value bucket, letting
// several processes share one response cache.
type NATSKVCache struct {
	conn    *nats.Conn
	kv      nats.KeyValue
	maxSize int
}

// NewNATSKVCache connects to NATS and binds (or creates) the configured
// bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil || len(config.URLs) == 0 || config.Bucket == "" {
		return nil, ErrNATSConfigRequired
	}

	opts := []nats.Option{nats.Name("jira-client-cache")}

	switch {
	case config.CredsFile != "":
		opts = append(opts, nats.UserCredentials(config.CredsFile))
	case config.Token != "":
		opts = append(opts, nats.Token(config.Token))
	case config.Username != "":
		opts = append(opts, nats.UserInfo(config.Username, config.Password))
	}

	conn, err := nats.Connect(strings.Join(config.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	jetStream, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	kv, err := jetStream.KeyValue(config.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		ttl := config.TTL
		if ttl == 0 {
			ttl = constants.DefaultCacheTTL
		}

		kv, err = jetStream.CreateKeyValue(&nats.KeyValueConfig{
			Bucket: config.Bucket,
			TTL:    ttl,
		})
	}

	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("binding KV bucket %q: %w", config.Bucket, err)
	}

	return &NATSKVCache{
		conn:    conn,
		kv:      kv,
		maxSize: constants.MaxCacheValueSize,
	}, nil
}

// Get retrieves an entry from the bucket. Expiry is still checked
// client-side since bucket TTLs are coarse.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kvEntry, err := c.kv.Get(encodeNATSKey(key))
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
		}

		return nil, fmt.Errorf("reading cache key %q: %w", key, err)
	}

	var entry CacheEntry

	err = json.Unmarshal(kvEntry.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry %q: %w", key, err)
	}

	if entry.Expired() {
		_ = c.kv.Delete(encodeNATSKey(key))

		return nil, fmt.Errorf("cache entry expired: %s: %w", key, ErrCacheEntryExpired)
	}

	return &entry, nil
}

// Set stores an entry in the bucket.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	if len(entry.Data) > c.maxSize {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(entry.Data))
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry %q: %w", key, err)
	}

	_, err = c.kv.Put(encodeNATSKey(key), data)
	if err != nil {
		return fmt.Errorf("writing cache key %q: %w", key, err)
	}

	return nil
}

// Delete removes an entry from the bucket.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(encodeNATSKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting cache key %q: %w", key, err)
	}

	return nil
}

// Clear removes every entry from the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	keys, err := c.kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}

		return fmt.Errorf("listing cache keys: %w", err)
	}

	for _, key := range keys {
		_ = c.kv.Delete(key)
	}

	return nil
}

// Has reports whether a live entry exists for the key.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	entry, err := c.Get(ctx, key)

	return err == nil && entry != nil
}

// Close releases the NATS connection.
func (c *NATSKVCache) Close() {
	c.conn.Close()
}

// encodeNATSKey maps arbitrary cache keys onto the restricted NATS KV key
// alphabet.
func encodeNATSKey(key string) string {
	replacer := strings.NewReplacer("/", ".", "?", "_", "&", "_", "=", "-", " ", "-")

	return replacer.Replace(key)
}

// ResponseCache is the read-through layer the transport consults for GET
// requests. It tracks the keys it has written so mutating verbs can
// invalidate by path prefix through any backend.
type ResponseCache struct {
	cache Cache
	ttl   time.Duration

	mu   sync.Mutex
	keys map[string]struct{}
}

// NewResponseCache wraps a backend with read-through semantics.
func NewResponseCache(cache Cache, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}

	return &ResponseCache{
		cache: cache,
		ttl:   ttl,
		keys:  make(map[string]struct{}),
	}
}

// Key derives the cache key for a request path and encoded query.
func (rc *ResponseCache) Key(path, query string) string {
	if query == "" {
		return path
	}

	return path + "?" + query
}

// Lookup returns a cached body, or nil on any miss.
func (rc *ResponseCache) Lookup(ctx context.Context, key string) []byte {
	entry, err := rc.cache.Get(ctx, key)
	if err != nil {
		return nil
	}

	return entry.Data
}

// Store caches a response body under the key.
func (rc *ResponseCache) Store(ctx context.Context, key string, body []byte) {
	entry := &CacheEntry{
		Data:      body,
		ExpiresAt: time.Now().Add(rc.ttl),
	}

	err := rc.cache.Set(ctx, key, entry)
	if err != nil {
		return
	}

	rc.mu.Lock()
	rc.keys[key] = struct{}{}
	rc.mu.Unlock()
}

// InvalidatePrefix drops every tracked key under the path prefix. Mutating
// verbs call it so stale reads never follow a write.
func (rc *ResponseCache) InvalidatePrefix(ctx context.Context, prefix string) {
	rc.mu.Lock()

	var stale []string

	for key := range rc.keys {
		if strings.HasPrefix(key, prefix) {
			stale = append(stale, key)
			delete(rc.keys, key)
		}
	}

	rc.mu.Unlock()

	for _, key := range stale {
		_ = rc.cache.Delete(ctx, key)
	}
}
