package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockStorePinger struct {
	err error
}

func (m *mockStorePinger) Ping(_ context.Context) error { return m.err }

type mockAnalyticsPinger struct {
	err error
}

func (m *mockAnalyticsPinger) PingContext(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockAnalyticsPinger{}, &mockEmbeddingChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"corpus_store", "analytics", "embedding"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_StoreErrorIsUnhealthy(t *testing.T) {
	svc := New(&mockStorePinger{err: errors.New("conn refused")}, &mockAnalyticsPinger{}, &mockEmbeddingChecker{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["corpus_store"] != CheckError {
		t.Errorf("expected corpus_store %q, got %q", CheckError, r.Checks["corpus_store"])
	}
	if r.Checks["embedding"] != CheckOK {
		t.Errorf("expected embedding %q, got %q", CheckOK, r.Checks["embedding"])
	}
}

func TestCheck_AnalyticsErrorDegrades(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockAnalyticsPinger{err: errors.New("pg down")}, &mockEmbeddingChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["analytics"] != CheckError {
		t.Errorf("expected analytics %q, got %q", CheckError, r.Checks["analytics"])
	}
	if r.Checks["corpus_store"] != CheckOK {
		t.Errorf("expected corpus_store %q, got %q", CheckOK, r.Checks["corpus_store"])
	}
}

func TestCheck_EmbeddingErrorDegrades(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockAnalyticsPinger{}, &mockEmbeddingChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["embedding"] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks["embedding"])
	}
}

func TestCheck_StoreErrorDominates(t *testing.T) {
	svc := New(
		&mockStorePinger{err: errors.New("store down")},
		&mockAnalyticsPinger{err: errors.New("pg down")},
		&mockEmbeddingChecker{err: errors.New("emb down")},
	)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	for _, name := range []string{"corpus_store", "analytics", "embedding"} {
		if r.Checks[name] != CheckError {
			t.Errorf("expected %s error", name)
		}
	}
}

func TestCheck_OptionalCheckersAbsent(t *testing.T) {
	svc := New(&mockStorePinger{}, nil, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["analytics"]; ok {
		t.Error("analytics check should be absent when pinger is nil")
	}
	if _, ok := r.Checks["embedding"]; ok {
		t.Error("embedding check should be absent when checker is nil")
	}
}
