// Package config loads reckon.yaml plus .env overrides. The resulting
// Config is built once per process and passed by reference to every
// component.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/reckon-dev/reckon/internal/match"
	"github.com/reckon-dev/reckon/internal/store"
	"github.com/reckon-dev/reckon/internal/verify"
)

// FileName is the default configuration file.
const FileName = "reckon.yaml"

// Config is the top-level reckon.yaml structure.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Matching MatchingConfig `yaml:"matching"`
	Sync     SyncConfig     `yaml:"sync"`
	Verify   VerifyConfig   `yaml:"verify"`
	Import   ImportConfig   `yaml:"import"`
}

// DatabaseConfig enumerates the store settings.
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	PoolSize      int    `yaml:"pool_size"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

// MatchingConfig tunes the matcher. Amounts are decimal strings so the YAML
// never carries float money.
type MatchingConfig struct {
	NarrowWindowDays int                 `yaml:"narrow_window_days"`
	WideWindowDays   int                 `yaml:"wide_window_days"`
	AmountEpsilon    string              `yaml:"amount_epsilon"`
	MinConfidence    string              `yaml:"min_confidence"`
	VendorSynonyms   map[string][]string `yaml:"vendor_synonyms,omitempty"`
}

// SyncConfig points at the legacy export and names the entity types synced
// from it.
type SyncConfig struct {
	ExportDir string   `yaml:"export_dir"`
	Entities  []string `yaml:"entities"`
	PageSize  int      `yaml:"page_size"`
}

// VerifyConfig tunes the integrity verifier.
type VerifyConfig struct {
	TopN               int      `yaml:"top_n"`
	PaymentSources     []string `yaml:"payment_sources,omitempty"`
	NonNegativeSources []string `yaml:"non_negative_sources,omitempty"`
}

// ImportConfig controls CSV ingestion. YearHint resolves bare MMDD dates
// in bank exports that omit the year.
type ImportConfig struct {
	YearHint int `yaml:"year_hint,omitempty"`
}

// Load reads a reckon.yaml file, after loading .env so environment
// variables can override the database location without editing the file.
// Recognized overrides: RECKON_DB_PATH, RECKON_EXPORT_DIR,
// RECKON_DB_POOL_SIZE.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if v := os.Getenv("RECKON_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RECKON_EXPORT_DIR"); v != "" {
		cfg.Sync.ExportDir = v
	}
	if v := os.Getenv("RECKON_DB_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RECKON_DB_POOL_SIZE: %w", err)
		}
		cfg.Database.PoolSize = n
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with working defaults for a new project.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:          "reckon.db",
			PoolSize:      1,
			BusyTimeoutMS: 5000,
		},
		Matching: MatchingConfig{
			NarrowWindowDays: 3,
			WideWindowDays:   14,
			AmountEpsilon:    "0.02",
			MinConfidence:    "0.35",
		},
		Sync: SyncConfig{
			ExportDir: "legacy-export",
			Entities:  []string{"reservation", "pos"},
			PageSize:  500,
		},
		Verify: VerifyConfig{
			TopN: 10,
		},
		Import: ImportConfig{},
	}
}

// StoreConfig converts the database section.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Path:          c.Database.Path,
		PoolSize:      c.Database.PoolSize,
		BusyTimeoutMS: c.Database.BusyTimeoutMS,
	}
}

// MatcherConfig converts the matching section, falling back to matcher
// defaults for anything unset.
func (c *Config) MatcherConfig() (match.Config, error) {
	mc := match.DefaultConfig()
	if c.Matching.NarrowWindowDays > 0 {
		mc.NarrowWindowDays = c.Matching.NarrowWindowDays
	}
	if c.Matching.WideWindowDays > 0 {
		mc.WideWindowDays = c.Matching.WideWindowDays
	}
	if c.Matching.AmountEpsilon != "" {
		eps, err := decimal.NewFromString(c.Matching.AmountEpsilon)
		if err != nil {
			return mc, fmt.Errorf("invalid amount_epsilon: %w", err)
		}
		mc.AmountEpsilon = eps
	}
	if c.Matching.MinConfidence != "" {
		minConf, err := decimal.NewFromString(c.Matching.MinConfidence)
		if err != nil {
			return mc, fmt.Errorf("invalid min_confidence: %w", err)
		}
		mc.MinConfidence = minConf
	}
	if len(c.Matching.VendorSynonyms) > 0 {
		mc.VendorSynonyms = c.Matching.VendorSynonyms
	}
	return mc, nil
}

// VerifierOptions converts the verify section.
func (c *Config) VerifierOptions() verify.Options {
	return verify.Options{
		TopN:               c.Verify.TopN,
		PaymentSources:     c.Verify.PaymentSources,
		NonNegativeSources: c.Verify.NonNegativeSources,
	}
}
