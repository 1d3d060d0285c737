// Package cache is the two-tier client cache: a session map that never
// touches disk, and a small allow-list of keys mirrored to durable storage.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"dragonvpn-app/internal/logger"
	"dragonvpn-app/internal/metrics"
	"dragonvpn-app/internal/storage"

	"go.uber.org/zap"
)

// Namespace prefixes every key written to durable storage.
const Namespace = "dragon_vpn_"

const (
	KeySettings          = "settings"
	KeyInstructionsState = "instructions_state"
	KeyDevicePreferences = "device_preferences"

	KeyUser            = "user"
	KeyServices        = "services"
	KeySubscriptions   = "subscriptions"
	KeyPendingPayments = "pending_payments"
	KeyReferral        = "referral"
)

// Only these keys survive a restart. Everything else is rebuilt from the API.
var persistentKeys = map[string]struct{}{
	KeySettings:          {},
	KeyInstructionsState: {},
	KeyDevicePreferences: {},
}

func IsPersistent(key string) bool {
	_, ok := persistentKeys[key]
	return ok
}

// Lookup tiers reported to metrics.
const (
	TierSession = "session"
	TierDurable = "durable"
	TierMiss    = "miss"
)

type Cache struct {
	mu      sync.RWMutex
	session map[string][]byte
	store   storage.Store
	metrics *metrics.Metrics
}

type Option func(*Cache)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func New(store storage.Store, opts ...Option) *Cache {
	c := &Cache{
		session: make(map[string][]byte),
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init deletes every namespaced durable key that is not allow-listed.
func (c *Cache) Init(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, Namespace)
	if err != nil {
		return fmt.Errorf("failed to list stored keys: %w", err)
	}

	removed := 0
	for _, k := range keys {
		if IsPersistent(strings.TrimPrefix(k, Namespace)) {
			continue
		}
		if err := c.store.Delete(ctx, k); err != nil {
			return fmt.Errorf("failed to delete stale key %s: %w", k, err)
		}
		removed++
	}

	if removed > 0 {
		logger.FromCtx(ctx).Info("swept stale cache keys", zap.Int("removed", removed))
	}
	return nil
}

// Get decodes key into dest. The session map wins; allow-listed keys fall
// through to durable storage and are backfilled into the session.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	raw, ok := c.session[key]
	c.mu.RUnlock()

	if ok {
		if err := json.Unmarshal(raw, dest); err != nil {
			return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
		}
		c.metrics.CacheLookup(TierSession)
		return true, nil
	}

	if !IsPersistent(key) {
		c.metrics.CacheLookup(TierMiss)
		return false, nil
	}

	val, ok, err := c.store.Get(ctx, Namespace+key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s from storage: %w", key, err)
	}
	if !ok {
		c.metrics.CacheLookup(TierMiss)
		return false, nil
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("failed to decode stored %s: %w", key, err)
	}

	c.mu.Lock()
	c.session[key] = []byte(val)
	c.mu.Unlock()

	c.metrics.CacheLookup(TierDurable)
	return true, nil
}

// Set always updates the session map. It writes through to durable storage
// only when persist is set and key is allow-listed. Other persist requests
// are refused with a warning and any durable copy of key is removed.
func (c *Cache) Set(ctx context.Context, key string, value any, persist bool) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	c.mu.Lock()
	c.session[key] = raw
	c.mu.Unlock()

	if !persist {
		return nil
	}
	if !IsPersistent(key) {
		logger.FromCtx(ctx).Warn("refusing to persist key outside the allow-list", zap.String("key", key))
		if err := c.store.Delete(ctx, Namespace+key); err != nil {
			return fmt.Errorf("failed to remove durable %s: %w", key, err)
		}
		return nil
	}

	if err := c.store.Set(ctx, Namespace+key, string(raw)); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.session, key)
	c.mu.Unlock()

	if IsPersistent(key) {
		return c.store.Delete(ctx, Namespace+key)
	}
	return nil
}

// Reset drops the session partition. Durable keys are kept.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.session = make(map[string][]byte)
	c.mu.Unlock()
}
