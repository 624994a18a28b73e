package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/db"
	"github.com/iuslabs/lexdex/internal/domain/search/filter"
	"github.com/iuslabs/lexdex/internal/domain/search/mode"
)

// fakeRemote is an in-memory stand-in for the shared Redis tiers.
type fakeRemote struct {
	mu   sync.Mutex
	data map[string][]byte
	down bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: make(map[string][]byte)}
}

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errors.New("connection refused")
	}
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeRemote) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errors.New("connection refused")
	}
	f.data[key] = value
	return nil
}

func (f *fakeRemote) Del(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeRemote) DelPattern(_ context.Context, pattern string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// glob of the form prefix*substr* — match by the inner fragments
	frags := strings.Split(pattern, "*")
	n := 0
	for k := range f.data {
		match := strings.HasPrefix(k, frags[0])
		for _, fr := range frags[1:] {
			if fr != "" && !strings.Contains(k, fr) {
				match = false
			}
		}
		if match {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func newTestManager(r remote) *Manager {
	return NewManager(r, Config{
		L1Size: 16,
		L1TTL:  300 * time.Second,
		L2TTL:  time.Hour,
		L3TTL:  24 * time.Hour,
	}, zap.NewNop())
}

func testKey(query string) Key {
	return NewKey(query, "", filter.Filters{}, 0, 10, mode.Relevance)
}

func TestGet_MissThenL1Hit(t *testing.T) {
	m := newTestManager(newFakeRemote())
	ctx := context.Background()
	key := testKey("derecho laboral")

	if _, tier := m.Get(ctx, key); tier != TierMiss {
		t.Fatalf("expected MISS, got %s", tier)
	}

	m.Set(ctx, key, []byte("results"))

	val, tier := m.Get(ctx, key)
	if tier != TierL1 {
		t.Fatalf("expected L1, got %s", tier)
	}
	if string(val) != "results" {
		t.Errorf("unexpected value %q", val)
	}
}

func TestGet_L2HitPromotesToL1(t *testing.T) {
	r := newFakeRemote()
	m := newTestManager(r)
	ctx := context.Background()
	key := testKey("codigo civil")

	m.SetShared(ctx, key, []byte("v")) // skip local

	if _, tier := m.Get(ctx, key); tier != TierL2 {
		t.Fatalf("expected L2, got %s", tier)
	}
	// Promotion: next probe is served locally.
	if _, tier := m.Get(ctx, key); tier != TierL1 {
		t.Fatalf("expected L1 after promotion, got %s", tier)
	}
}

func TestGet_L3HitPromotesToL2AndL1(t *testing.T) {
	r := newFakeRemote()
	m := newTestManager(r)
	ctx := context.Background()
	key := testKey("coip")

	// Value only in L3, as if L2 already expired.
	m.SetShared(ctx, key, []byte("v"))
	if err := r.Del(ctx, key.tierKey(TierL2)); err != nil {
		t.Fatal(err)
	}

	if _, tier := m.Get(ctx, key); tier != TierL3 {
		t.Fatalf("expected L3, got %s", tier)
	}
	if _, ok := r.data[key.tierKey(TierL2)]; !ok {
		t.Error("L3 hit should repopulate L2")
	}
	if _, tier := m.Get(ctx, key); tier != TierL1 {
		t.Fatalf("expected L1 after promotion, got %s", tier)
	}
}

func TestGet_RemoteDownDegradesToMiss(t *testing.T) {
	r := newFakeRemote()
	r.down = true
	m := newTestManager(r)

	if _, tier := m.Get(context.Background(), testKey("q")); tier != TierMiss {
		t.Fatalf("expected MISS when remote is down, got %s", tier)
	}
}

func TestInvalidate(t *testing.T) {
	m := newTestManager(newFakeRemote())
	ctx := context.Background()
	key := testKey("ley de transito")

	m.Set(ctx, key, []byte("v"))
	m.Invalidate(ctx, key)

	if _, tier := m.Get(ctx, key); tier != TierMiss {
		t.Fatalf("expected MISS after invalidation, got %s", tier)
	}
}

func TestInvalidatePattern(t *testing.T) {
	m := newTestManager(newFakeRemote())
	ctx := context.Background()

	matching := testKey("derecho laboral")
	other := testKey("codigo civil")
	m.Set(ctx, matching, []byte("a"))
	m.Set(ctx, other, []byte("b"))

	// 1 L1 key + 2 shared tiers for the matching query.
	removed, err := m.InvalidatePattern(ctx, "laboral")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}

	if _, tier := m.Get(ctx, matching); tier != TierMiss {
		t.Fatalf("expected MISS for invalidated key, got %s", tier)
	}
	if _, tier := m.Get(ctx, other); tier != TierL1 {
		t.Fatalf("unrelated key should survive, got %s", tier)
	}
}

func TestStats(t *testing.T) {
	m := newTestManager(newFakeRemote())
	ctx := context.Background()
	key := testKey("q")

	m.Get(ctx, key)               // miss everywhere
	m.Set(ctx, key, []byte("v"))
	m.Get(ctx, key)               // L1 hit

	s := m.Stats()
	if s.L1.Hits != 1 || s.L1.Misses != 1 {
		t.Errorf("unexpected L1 stats: %+v", s.L1)
	}
	if s.HitRate != 0.5 {
		t.Errorf("expected hit rate 0.5, got %g", s.HitRate)
	}
}

func TestKey_Deterministic(t *testing.T) {
	f := filter.Filters{Jurisdictions: []string{"Ecuador", "Quito"}}
	g := filter.Filters{Jurisdictions: []string{"quito", "ecuador"}}

	a := NewKey("Código Civil", "", f, 0, 10, mode.Relevance)
	b := NewKey("codigo  civil", "", g, 0, 10, mode.Relevance)
	if a.String() != b.String() {
		t.Errorf("equivalent inputs compose different keys:\n%q\n%q", a, b)
	}

	c := NewKey("codigo civil", "", f, 10, 10, mode.Relevance)
	if a.String() == c.String() {
		t.Error("different pagination must compose different keys")
	}
}
