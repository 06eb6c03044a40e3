// Package config resolves the sentry's process configuration from two
// layers: required/defaulted environment variables for secrets and
// endpoints, and an optional YAML file for the tuning constants spec.md §6
// says may be exposed as "constants or env vars".
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the process-level constants named throughout spec.md §4 and
// §6. Every field has a default matching the spec's numbers exactly.
type Tuning struct {
	WorkerCount             int           `yaml:"worker_count"`
	WorkQueueCapacity       int           `yaml:"work_queue_capacity"`
	AlertQueueCapacity      int           `yaml:"alert_queue_capacity"`
	SimilarityThreshold     float64       `yaml:"similarity_threshold"`
	DedupWindowSize         int           `yaml:"dedup_window_size"`
	CandidateCap            int           `yaml:"candidate_cap"`
	ProcessedPerItemCap     int           `yaml:"processed_per_item_cap"`
	PermutationConcurrency  int           `yaml:"permutation_concurrency"`
	PermutationRetries      int           `yaml:"permutation_retries"`
	PermutationTimeout      time.Duration `yaml:"permutation_timeout"`
	WHOISConcurrency        int           `yaml:"whois_concurrency"`
	WHOISTimeout            time.Duration `yaml:"whois_timeout"`
	WHOISCacheTTL           time.Duration `yaml:"whois_cache_ttl"`
	WHOISCacheCapacity      int           `yaml:"whois_cache_capacity"`
	WHOISMemoCapacity       int           `yaml:"whois_memo_capacity"`
	ReconnectInitialBackoff time.Duration `yaml:"reconnect_initial_backoff"`
	ReconnectMaxBackoff     time.Duration `yaml:"reconnect_max_backoff"`
}

// DefaultTuning returns the spec's canonical constants.
func DefaultTuning() Tuning {
	return Tuning{
		WorkerCount:             10,
		WorkQueueCapacity:       5000,
		AlertQueueCapacity:      1000,
		SimilarityThreshold:     0.8,
		DedupWindowSize:         10000,
		CandidateCap:            30,
		ProcessedPerItemCap:     20,
		PermutationConcurrency:  30,
		PermutationRetries:      3,
		PermutationTimeout:      10 * time.Second,
		WHOISConcurrency:        10,
		WHOISTimeout:            5 * time.Second,
		WHOISCacheTTL:           3600 * time.Second,
		WHOISCacheCapacity:      3000,
		WHOISMemoCapacity:       10000,
		ReconnectInitialBackoff: 1 * time.Second,
		ReconnectMaxBackoff:     60 * time.Second,
	}
}

// Config is the fully resolved process configuration.
type Config struct {
	CTWebSocketURL      string
	PermutationBaseURL  string
	BrandListPath       string
	OutputCSVPath       string
	LogLevel            string
	LogFile             string
	Tuning              Tuning
}

// Load resolves Config from the environment, overlaying an optional YAML
// tuning file named by SENTRY_CONFIG.
func Load() (Config, error) {
	cfg := Config{
		CTWebSocketURL:     getEnvOrDefault("CT_WEBSOCKET_URL", "ws://127.0.0.1:8080"),
		PermutationBaseURL: getEnvOrDefault("PERMUTATION_BASE_URL", "https://dnstwister.report/api"),
		BrandListPath:      getEnvOrDefault("BRAND_LIST_PATH", "data/websites.txt"),
		OutputCSVPath:      getEnvOrDefault("OUTPUT_CSV_PATH", "output/suspected_phishing.csv"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:            os.Getenv("LOG_FILE"),
		Tuning:             DefaultTuning(),
	}

	if path := os.Getenv("SENTRY_CONFIG"); path != "" {
		tuning, err := loadTuningFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load tuning file %s: %w", path, err)
		}
		cfg.Tuning = tuning
	}

	return cfg, nil
}

func loadTuningFile(path string) (Tuning, error) {
	tuning := DefaultTuning()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, err
	}

	var overlay struct {
		Tuning Tuning `yaml:"tuning"`
	}
	// Pre-filling the overlay with the defaults means yaml.Unmarshal only
	// overwrites the fields the file actually sets; absent fields keep
	// their default.
	overlay.Tuning = tuning
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return Tuning{}, err
	}

	return overlay.Tuning, nil
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
