package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/IshaanNene/isoscrape/internal/types"
)

// MaxWorkers is the hard upper bound on pool size.
const MaxWorkers = 128

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scraper.Workers < 1 {
		return fmt.Errorf("scraper.workers must be >= 1, got %d", cfg.Scraper.Workers)
	}
	if cfg.Scraper.Workers > MaxWorkers {
		return fmt.Errorf("scraper.workers must be <= %d, got %d", MaxWorkers, cfg.Scraper.Workers)
	}
	if cfg.Scraper.MaxProducts < 0 {
		return fmt.Errorf("scraper.max_products must be >= 0, got %d", cfg.Scraper.MaxProducts)
	}
	if cfg.Scraper.DispatchRate < 0 {
		return fmt.Errorf("scraper.dispatch_rate must be >= 0")
	}
	if cfg.Scraper.Resume && cfg.Scraper.CheckpointPath == "" {
		return fmt.Errorf("scraper.resume requires scraper.checkpoint_path")
	}

	if cfg.Browser.CreateAttempts < 1 {
		return fmt.Errorf("browser.create_attempts must be >= 1, got %d", cfg.Browser.CreateAttempts)
	}
	if cfg.Browser.CreateBackoffMax < cfg.Browser.CreateBackoffMin {
		return fmt.Errorf("browser.create_backoff_max must be >= browser.create_backoff_min")
	}
	if cfg.Browser.PageLoadTimeout <= 0 || cfg.Browser.ReadyTimeout <= 0 || cfg.Browser.ContentTimeout <= 0 {
		return fmt.Errorf("browser timeouts must be > 0")
	}
	if cfg.Browser.SettleScale < 0 {
		return fmt.Errorf("browser.settle_scale must be >= 0")
	}

	if cfg.Prober.Enabled && cfg.Prober.Timeout <= 0 {
		return fmt.Errorf("prober.timeout must be > 0")
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	if err := ValidateURL(cfg.Site.Origin); err != nil {
		return fmt.Errorf("site.origin: %w", err)
	}

	validFormats := map[string]bool{
		"csv": true, "xlsx": true, "json": true, "jsonl": true,
	}
	for _, f := range cfg.Output.Formats {
		if !validFormats[strings.ToLower(f)] {
			return fmt.Errorf("output format %q is not supported (valid: csv, xlsx, json, jsonl)", f)
		}
	}
	if cfg.Output.Prefix == "" {
		return fmt.Errorf("output.prefix must not be empty")
	}
	if cfg.Output.Mongo.Enabled && cfg.Output.Mongo.URI == "" {
		return fmt.Errorf("output.mongo.uri is required when mongo output is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https, got %q", types.ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", types.ErrInvalidURL)
	}
	return nil
}
