package jira_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/jira-client/pkg/jira"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	t.Parallel()

	cache := jira.NewMemoryCache(10)
	ctx := context.Background()

	entry := &jira.CacheEntry{
		Data:      []byte("test data"),
		ExpiresAt: time.Now().Add(1 * time.Hour),
		ETag:      "abc123",
	}

	// Set entry
	err := cache.Set(ctx, "key1", entry)
	require.NoError(t, err)

	// Get entry
	retrieved, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, retrieved.Data)
	assert.Equal(t, entry.ETag, retrieved.ETag)
}

func TestMemoryCache_GetNonExistent(t *testing.T) {
	t.Parallel()

	cache := jira.NewMemoryCache(10)
	ctx := context.Background()

	_, err := cache.Get(ctx, "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key not found")
}

func TestMemoryCache_GetExpired(t *testing.T) {
	t.Parallel()

	cache := jira.NewMemoryCache(10)
	ctx := context.Background()

	entry := &jira.CacheEntry{
		Data:      []byte("test data"),
		ExpiresAt: time.Now().Add(-1 * time.Hour), // Already expired
		ETag:      "abc123",
	}

	err := cache.Set(ctx, "key1", entry)
	require.NoError(t, err)

	_, err = cache.Get(ctx, "key1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry expired")
}

func TestMemoryCache_Delete(t *testing.T) {
	t.Parallel()

	cache := jira.NewMemoryCache(10)
	ctx := context.Background()

	entry := &jira.CacheEntry{
		Data:      []byte("test data"),
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}

	// Set and verify
	err := cache.Set(ctx, "key1", entry)
	require.NoError(t, err)
	assert.True(t, cache.Has(ctx, "key1"))

	// Delete
	err = cache.Delete(ctx, "key1")
	require.NoError(t, err)

	// Verify deleted
	assert.False(t, cache.Has(ctx, "key1"))
}

func TestMemoryCache_Clear(t *testing.T) {
	t.Parallel()

	cache := jira.NewMemoryCache(10)
	ctx := context.Background()

	// Add multiple entries
	for i := range 3 {
		entry := &jira.CacheEntry{
			Data:      []byte("test data"),
			ExpiresAt: time.Now().Add(1 * time.Hour),
		}
		_ = cache.Set(ctx, string(rune('a'+i)), entry)
	}

	// Verify entries exist
	assert.True(t, cache.Has(ctx, "a"))
	assert.True(t, cache.Has(ctx, "b"))
	assert.True(t, cache.Has(ctx, "c"))

	// Clear cache
	err := cache.Clear(ctx)
	require.NoError(t, err)

	// Verify all cleared
	assert.False(t, cache.Has(ctx, "a"))
	assert.False(t, cache.Has(ctx, "b"))
	assert.False(t, cache.Has(ctx, "c"))
}

func TestMemoryCache_MaxSize(t *testing.T) {
	t.Parallel()

	cache := jira.NewMemoryCache(2)
	ctx := context.Background()

	// Add entries past max size
	for i := range 3 {
		entry := &jira.CacheEntry{
			Data:      []byte("test data"),
			ExpiresAt: time.Now().Add(time.Duration(i+1) * time.Hour),
		}
		_ = cache.Set(ctx, string(rune('a'+i)), entry)
	}

	// The cache should have evicted the entry closest to expiry
	has := 0

	for i := range 3 {
		if cache.Has(ctx, string(rune('a'+i))) {
			has++
		}
	}

	assert.LessOrEqual(t, has, 2)
}

func TestMemoryCache_Cleanup(t *testing.T) {
	t.Parallel()

	cache := jira.NewMemoryCache(10)
	ctx := context.Background()

	// Add expired and non-expired entries
	expiredEntry := &jira.CacheEntry{
		Data:      []byte("expired"),
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}
	validEntry := &jira.CacheEntry{
		Data:      []byte("valid"),
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}

	_ = cache.Set(ctx, "expired", expiredEntry)
	_ = cache.Set(ctx, "valid", validEntry)

	// Run cleanup
	cache.Cleanup()

	// Valid entry should still exist
	assert.True(t, cache.Has(ctx, "valid"))
	// Expired entry should be gone
	assert.False(t, cache.Has(ctx, "expired"))
}

func TestNoOpCache(t *testing.T) {
	t.Parallel()

	cache := jira.NewNoOpCache()
	ctx := context.Background()

	entry := &jira.CacheEntry{
		Data:      []byte("test data"),
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}

	// Set is accepted but nothing is stored
	err := cache.Set(ctx, "key1", entry)
	require.NoError(t, err)

	_, err = cache.Get(ctx, "key1")
	require.Error(t, err)
	assert.False(t, cache.Has(ctx, "key1"))
}

func TestCacheChain_FallsThrough(t *testing.T) {
	t.Parallel()

	primary := jira.NewMemoryCache(10)
	secondary := jira.NewMemoryCache(10)
	chain := jira.NewCacheChain(primary, secondary)
	ctx := context.Background()

	entry := &jira.CacheEntry{
		Data:      []byte("test data"),
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}

	// Populate only the secondary cache
	err := secondary.Set(ctx, "key1", entry)
	require.NoError(t, err)

	retrieved, err := chain.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, retrieved.Data)

	// Sets go to every layer
	err = chain.Set(ctx, "key2", entry)
	require.NoError(t, err)
	assert.True(t, primary.Has(ctx, "key2"))
	assert.True(t, secondary.Has(ctx, "key2"))
}

func TestResponseCache_LookupAndStore(t *testing.T) {
	t.Parallel()

	responseCache := jira.NewResponseCache(jira.NewMemoryCache(10), 1*time.Hour)
	ctx := context.Background()

	key := responseCache.Key("issue/TEST-1", "")

	// Miss before store
	assert.Nil(t, responseCache.Lookup(ctx, key))

	responseCache.Store(ctx, key, []byte(`{"key":"TEST-1"}`))

	body := responseCache.Lookup(ctx, key)
	assert.JSONEq(t, `{"key":"TEST-1"}`, string(body))
}

func TestResponseCache_KeyIncludesQuery(t *testing.T) {
	t.Parallel()

	responseCache := jira.NewResponseCache(jira.NewMemoryCache(10), 1*time.Hour)

	plain := responseCache.Key("search", "")
	withQuery := responseCache.Key("search", "jql=project%3DTEST")

	assert.NotEqual(t, plain, withQuery)
}

func TestResponseCache_InvalidatePrefix(t *testing.T) {
	t.Parallel()

	responseCache := jira.NewResponseCache(jira.NewMemoryCache(10), 1*time.Hour)
	ctx := context.Background()

	issueKey := responseCache.Key("issue/TEST-1", "")
	projectKey := responseCache.Key("project/TEST", "")

	responseCache.Store(ctx, issueKey, []byte(`{"key":"TEST-1"}`))
	responseCache.Store(ctx, projectKey, []byte(`{"key":"TEST"}`))

	responseCache.InvalidatePrefix(ctx, responseCache.Key("issue", ""))

	assert.Nil(t, responseCache.Lookup(ctx, issueKey))
	assert.NotNil(t, responseCache.Lookup(ctx, projectKey))
}

func TestNewCacheFromConfig(t *testing.T) {
	t.Parallel()

	// Default config builds a memory cache
	cache, err := jira.NewCacheFromConfig(jira.DefaultCacheConfig())
	require.NoError(t, err)
	require.NotNil(t, cache)

	// The none type disables caching via a no-op backend
	cache, err = jira.NewCacheFromConfig(&jira.CacheConfig{Type: jira.CacheTypeNone})
	require.NoError(t, err)
	assert.IsType(t, &jira.NoOpCache{}, cache)

	// Unknown backends are rejected
	_, err = jira.NewCacheFromConfig(&jira.CacheConfig{Type: "bogus"})
	require.ErrorIs(t, err, jira.ErrUnsupportedCacheType)
}
