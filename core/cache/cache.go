// Package cache provides the type-aware semantic response cache. Keys are
// derived from the normalized query text and the classified type, so the
// same words classified differently never collide. FORM and CONTACT
// responses are never cached under any configuration.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clinref/clinref/helper"
	"github.com/clinref/clinref/model"
	gocache "github.com/patrickmn/go-cache"
)

// Backend is a pluggable cache store
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryBackend is an in-process Backend with per-entry expiry
type MemoryBackend struct {
	store *gocache.Cache
}

// NewMemoryBackend creates an in-process backend. Expired entries are
// purged every cleanupInterval.
func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	return &MemoryBackend{store: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, found := m.store.Get(key)
	if !found {
		return nil, false, nil
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.store.Set(key, value, ttl)
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// SemanticCache caches complete responses keyed by query text and type.
// Backend failures degrade to cache misses, they never fail a query.
type SemanticCache struct {
	cfg     *model.PipelineConfig
	backend Backend
	log     *slog.Logger
}

// NewSemanticCache creates a cache over the given backend
func NewSemanticCache(cfg *model.PipelineConfig, backend Backend, log *slog.Logger) *SemanticCache {
	return &SemanticCache{cfg: cfg, backend: backend, log: log}
}

// Key derives the cache key from the query text and its classified type.
// The text is PHI-scrubbed and normalized before hashing, so two phrasings
// differing only in patient identifiers share an entry.
func (c *SemanticCache) Key(text string, queryType model.QueryType) string {
	normalized := normalizeKeyText(ScrubPHI(text))
	sum := sha256.Sum256([]byte(string(queryType) + "|" + normalized))
	return hex.EncodeToString(sum[:])
}

// neverCache reports the types excluded from caching regardless of
// configuration: on-call schedules and the form registry must always be
// consulted live.
func neverCache(queryType model.QueryType) bool {
	return queryType == model.QueryTypeForm || queryType == model.QueryTypeContact
}

// Get returns a cached response for the query, or nil on miss. FORM and
// CONTACT queries always miss.
func (c *SemanticCache) Get(ctx context.Context, text string, queryType model.QueryType) *model.QueryResponse {
	if neverCache(queryType) || !c.cfg.Cacheable(queryType) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CacheTimeout)
	defer cancel()

	data, found, err := c.backend.Get(ctx, c.Key(text, queryType))
	if err != nil {
		c.log.Warn("cache get failed, treating as miss", "error", err)
		return nil
	}
	if !found {
		return nil
	}

	response := &model.QueryResponse{}
	if err := json.Unmarshal(data, response); err != nil {
		c.log.Warn("cache entry undecodable, treating as miss", "error", err)
		return nil
	}
	response.CacheHit = true
	return response
}

// Set stores a response under the query's key with the type's TTL. FORM and
// CONTACT responses are dropped. Backend failures are logged and swallowed.
func (c *SemanticCache) Set(ctx context.Context, text string, queryType model.QueryType, response *model.QueryResponse) {
	if neverCache(queryType) || !c.cfg.Cacheable(queryType) {
		return
	}
	ttl := c.cfg.CacheTTLs[queryType]
	if ttl <= 0 {
		return
	}

	stored := *response
	stored.CacheHit = false
	stored.Text = ScrubPHI(stored.Text)

	data, err := json.Marshal(&stored)
	if err != nil {
		c.log.Warn("cache set skipped", "error", helper.NewError("marshal cached response", err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CacheTimeout)
	defer cancel()
	if err := c.backend.Set(ctx, c.Key(text, queryType), data, ttl); err != nil {
		c.log.Warn("cache set failed", "error", err)
	}
}

// Invalidate removes the entry for a query, used after document reloads
func (c *SemanticCache) Invalidate(ctx context.Context, text string, queryType model.QueryType) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CacheTimeout)
	defer cancel()
	err := c.backend.Delete(ctx, c.Key(text, queryType))
	if err != nil {
		return helper.NewError("invalidate cache entry", fmt.Errorf("%w: %v", model.ErrCacheUnavailable, err))
	}
	return nil
}

// normalizeKeyText lowercases and collapses whitespace
func normalizeKeyText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
