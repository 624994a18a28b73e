package config

import "testing"

func validConfig() Config {
	cfg := Config{
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Cache.L1TTLSec != 300 || cfg.Cache.L2TTLSec != 3600 || cfg.Cache.L3TTLSec != 86400 {
		t.Errorf("unexpected tier TTL defaults: %d/%d/%d",
			cfg.Cache.L1TTLSec, cfg.Cache.L2TTLSec, cfg.Cache.L3TTLSec)
	}
	if cfg.Retrieval.SourceLimit != 100 {
		t.Errorf("expected source limit 100, got %d", cfg.Retrieval.SourceLimit)
	}
	if cfg.Retrieval.MultiSourceBoost != 1.2 {
		t.Errorf("expected boost 1.2, got %g", cfg.Retrieval.MultiSourceBoost)
	}
	if cfg.Query.BudgetMS != 2000 {
		t.Errorf("expected budget 2000ms, got %d", cfg.Query.BudgetMS)
	}
	if cfg.Query.SpellCheck == nil || !*cfg.Query.SpellCheck {
		t.Error("spell check should default to enabled")
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected http port 8080, got %d", cfg.HTTP.Port)
	}
}

func TestValidate_BadHTTPPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range http port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_BoostBelowOne(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.MultiSourceBoost = 0.8
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for boost below 1")
	}
}

func TestValidate_PageSizeOrdering(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultPageSize = 200
	cfg.Search.MaxPageSize = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default page size exceeds max")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LEXDEX_TEST_PASSWORD", "secret")

	out := string(expandEnvVars([]byte("password: ${LEXDEX_TEST_PASSWORD}\ndsn: ${LEXDEX_TEST_MISSING:-fallback}")))
	want := "password: secret\ndsn: fallback"
	if out != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, want)
	}
}
