package cache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/db"
	"github.com/iuslabs/lexdex/internal/metrics"
)

// Tier identifies which cache level served a probe.
type Tier string

// Tier constants, fastest first.
const (
	TierL1   Tier = "L1"
	TierL2   Tier = "L2"
	TierL3   Tier = "L3"
	TierMiss Tier = "MISS"
)

// remote is the consumer interface for the shared tiers (L2/L3).
type remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	DelPattern(ctx context.Context, pattern string) (int, error)
}

// Config holds tier sizing and TTLs.
type Config struct {
	L1Size int
	L1TTL  time.Duration
	L2TTL  time.Duration
	L3TTL  time.Duration
}

// tierCounters tracks probes for one tier.
type tierCounters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// Manager is the cascading three-tier cache. L1 is process-local, L2 and L3
// share one remote store under different namespaces and TTLs. The cache is
// a derived view: every value is recomputable, so tier failures degrade to
// a miss instead of failing the caller.
type Manager struct {
	l1     *expirable.LRU[string, []byte]
	remote remote
	cfg    Config
	logger *zap.Logger

	l1c, l2c, l3c tierCounters
}

// NewManager creates a cache tier manager.
func NewManager(r remote, cfg Config, logger *zap.Logger) *Manager {
	if cfg.L1Size <= 0 {
		cfg.L1Size = 1024
	}
	return &Manager{
		l1:     expirable.NewLRU[string, []byte](cfg.L1Size, nil, cfg.L1TTL),
		remote: r,
		cfg:    cfg,
		logger: logger,
	}
}

// Get probes L1 → L2 → L3 and reports which tier served the value.
// A hit in a slower tier promotes the value into every faster tier.
func (m *Manager) Get(ctx context.Context, key Key) ([]byte, Tier) {
	if val, ok := m.l1.Get(key.tierKey(TierL1)); ok {
		m.l1c.hits.Add(1)
		metrics.CacheTierTotal.WithLabelValues("l1", "hit").Inc()
		return val, TierL1
	}
	m.l1c.misses.Add(1)
	metrics.CacheTierTotal.WithLabelValues("l1", "miss").Inc()

	if val, ok := m.remoteGet(ctx, key, TierL2, &m.l2c); ok {
		m.l1.Add(key.tierKey(TierL1), val)
		return val, TierL2
	}

	if val, ok := m.remoteGet(ctx, key, TierL3, &m.l3c); ok {
		m.promoteShared(ctx, key, TierL2, val, m.cfg.L2TTL)
		m.l1.Add(key.tierKey(TierL1), val)
		return val, TierL3
	}

	return nil, TierMiss
}

// Set populates all three tiers with their respective TTLs.
func (m *Manager) Set(ctx context.Context, key Key, value []byte) {
	m.SetLocal(key, value)
	m.SetShared(ctx, key, value)
}

// SetLocal writes only L1. For hot, ephemeral values.
func (m *Manager) SetLocal(key Key, value []byte) {
	m.l1.Add(key.tierKey(TierL1), value)
}

// SetShared writes only L2 and L3, skipping the local tier.
func (m *Manager) SetShared(ctx context.Context, key Key, value []byte) {
	m.promoteShared(ctx, key, TierL2, value, m.cfg.L2TTL)
	m.promoteShared(ctx, key, TierL3, value, m.cfg.L3TTL)
}

// Invalidate removes the key from every tier.
func (m *Manager) Invalidate(ctx context.Context, key Key) {
	m.l1.Remove(key.tierKey(TierL1))
	for _, t := range []Tier{TierL2, TierL3} {
		if err := m.remote.Del(ctx, key.tierKey(t)); err != nil {
			m.logger.Warn("Failed to invalidate cache key",
				zap.String("tier", string(t)), zap.String("key", key.String()), zap.Error(err))
		}
	}
}

// InvalidatePattern removes every key containing substr across all tiers
// and returns the total removed count. This is the staleness bound after a
// document mutation: the mutation event carries a fragment of the affected
// keys and everything matching is dropped.
func (m *Manager) InvalidatePattern(ctx context.Context, substr string) (int, error) {
	removed := 0

	for _, k := range m.l1.Keys() {
		if strings.Contains(k, substr) {
			m.l1.Remove(k)
			removed++
		}
	}

	var firstErr error
	for _, t := range []Tier{TierL2, TierL3} {
		pattern := keyPrefix + strings.ToLower(string(t)) + ":*" + substr + "*"
		n, err := m.remote.DelPattern(ctx, pattern)
		removed += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return removed, firstErr
}

// Clear drops every cached value in every tier.
func (m *Manager) Clear(ctx context.Context) error {
	m.l1.Purge()
	_, err := m.remote.DelPattern(ctx, keyPrefix+"*")
	return err
}

// TierStats holds probe counters for one tier.
type TierStats struct {
	Hits   int64
	Misses int64
}

// Stats is the per-tier and overall cache health snapshot.
type Stats struct {
	L1      TierStats
	L2      TierStats
	L3      TierStats
	HitRate float64
}

// Stats returns hit/miss counters per tier and the overall hit rate.
// The overall rate counts a probe as a hit if any tier served it.
func (m *Manager) Stats() Stats {
	s := Stats{
		L1: TierStats{Hits: m.l1c.hits.Load(), Misses: m.l1c.misses.Load()},
		L2: TierStats{Hits: m.l2c.hits.Load(), Misses: m.l2c.misses.Load()},
		L3: TierStats{Hits: m.l3c.hits.Load(), Misses: m.l3c.misses.Load()},
	}
	// Every probe touches L1 first, so L1 probes == total probes.
	total := s.L1.Hits + s.L1.Misses
	if total > 0 {
		served := s.L1.Hits + s.L2.Hits + s.L3.Hits
		s.HitRate = float64(served) / float64(total)
	}
	return s
}

func (m *Manager) remoteGet(ctx context.Context, key Key, t Tier, c *tierCounters) ([]byte, bool) {
	label := strings.ToLower(string(t))

	val, err := m.remote.Get(ctx, key.tierKey(t))
	if err != nil {
		c.misses.Add(1)
		if errors.Is(err, db.ErrKeyNotFound) {
			metrics.CacheTierTotal.WithLabelValues(label, "miss").Inc()
		} else {
			// Tier unavailability degrades to a miss and forces recomputation.
			metrics.CacheTierTotal.WithLabelValues(label, "error").Inc()
			m.logger.Warn("Cache tier unavailable, treating as miss",
				zap.String("tier", string(t)), zap.Error(err))
		}
		return nil, false
	}

	c.hits.Add(1)
	metrics.CacheTierTotal.WithLabelValues(label, "hit").Inc()
	return val, true
}

func (m *Manager) promoteShared(ctx context.Context, key Key, t Tier, value []byte, ttl time.Duration) {
	if err := m.remote.SetWithTTL(ctx, key.tierKey(t), value, ttl); err != nil {
		m.logger.Warn("Failed to write cache tier",
			zap.String("tier", string(t)), zap.String("key", key.String()), zap.Error(err))
	}
}
