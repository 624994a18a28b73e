package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the lexdex engine configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Database  DatabaseConfig  `yaml:"database"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Query     QueryConfig     `yaml:"query"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// MetricsConfig holds the prometheus listener settings.
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// DatabaseConfig holds Redis connection settings for the corpus store and
// the shared cache tiers.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// AnalyticsConfig holds the relational store settings.
type AnalyticsConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	MaxRetries  int    `yaml:"max_retries"`
	RateEveryMS int    `yaml:"rate_every_ms"` // min interval between requests
	RateBurst   int    `yaml:"rate_burst"`
}

// CacheConfig holds the cascading tier settings.
type CacheConfig struct {
	L1Size   int `yaml:"l1_size"`
	L1TTLSec int `yaml:"l1_ttl_sec"`
	L2TTLSec int `yaml:"l2_ttl_sec"`
	L3TTLSec int `yaml:"l3_ttl_sec"`
}

// RetrievalConfig holds candidate generation settings.
type RetrievalConfig struct {
	SourceLimit      int     `yaml:"source_limit"`       // per-source candidate ceiling
	MultiSourceBoost float64 `yaml:"multi_source_boost"` // applied when both sources agree
}

// RankingConfig holds the relevance fusion weights.
type RankingConfig struct {
	SemanticWeight   float64 `yaml:"semantic_weight"`
	TextRankWeight   float64 `yaml:"text_rank_weight"`
	PopularityWeight float64 `yaml:"popularity_weight"`
	AuthorityWeight  float64 `yaml:"authority_weight"`
	RecencyWeight    float64 `yaml:"recency_weight"`
	RecencyHalfLife  int     `yaml:"recency_half_life_years"`
}

// QueryConfig holds query understanding settings.
type QueryConfig struct {
	BudgetMS        int   `yaml:"budget_ms"`
	SpellCheck      *bool `yaml:"spell_check"`
	Expansion       *bool `yaml:"expansion"`
	EntityExtraction *bool `yaml:"entity_extraction"`
}

// SearchConfig holds pagination settings.
type SearchConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 15
	}
	if c.Metrics.Port <= 0 {
		c.Metrics.Port = 9090
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.MaxRetries <= 0 {
		c.Embedding.MaxRetries = 3
	}
	if c.Embedding.RateBurst <= 0 {
		c.Embedding.RateBurst = 1
	}
	if c.Cache.L1Size <= 0 {
		c.Cache.L1Size = 1024
	}
	if c.Cache.L1TTLSec <= 0 {
		c.Cache.L1TTLSec = 300
	}
	if c.Cache.L2TTLSec <= 0 {
		c.Cache.L2TTLSec = 3600
	}
	if c.Cache.L3TTLSec <= 0 {
		c.Cache.L3TTLSec = 86400
	}
	if c.Retrieval.SourceLimit <= 0 {
		c.Retrieval.SourceLimit = 100
	}
	if c.Retrieval.MultiSourceBoost <= 0 {
		c.Retrieval.MultiSourceBoost = 1.2
	}
	if c.Ranking.SemanticWeight <= 0 {
		c.Ranking.SemanticWeight = 0.40
	}
	if c.Ranking.TextRankWeight <= 0 {
		c.Ranking.TextRankWeight = 0.25
	}
	if c.Ranking.PopularityWeight <= 0 {
		c.Ranking.PopularityWeight = 0.15
	}
	if c.Ranking.AuthorityWeight <= 0 {
		c.Ranking.AuthorityWeight = 0.10
	}
	if c.Ranking.RecencyWeight <= 0 {
		c.Ranking.RecencyWeight = 0.10
	}
	if c.Ranking.RecencyHalfLife <= 0 {
		c.Ranking.RecencyHalfLife = 10
	}
	if c.Query.BudgetMS <= 0 {
		c.Query.BudgetMS = 2000
	}
	if c.Query.SpellCheck == nil {
		c.Query.SpellCheck = boolPtr(true)
	}
	if c.Query.Expansion == nil {
		c.Query.Expansion = boolPtr(true)
	}
	if c.Query.EntityExtraction == nil {
		c.Query.EntityExtraction = boolPtr(true)
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Retrieval.MultiSourceBoost < 1 {
		return fmt.Errorf("retrieval.multi_source_boost must be >= 1, got %g", c.Retrieval.MultiSourceBoost)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size %d exceeds max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	weights := []float64{
		c.Ranking.SemanticWeight, c.Ranking.TextRankWeight,
		c.Ranking.PopularityWeight, c.Ranking.AuthorityWeight, c.Ranking.RecencyWeight,
	}
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("ranking weights must be non-negative")
		}
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
