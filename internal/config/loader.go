package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied on top by the caller.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("ISOSCRAPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("isoscrape")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".isoscrape"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides bind.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scraper.workers", cfg.Scraper.Workers)
	v.SetDefault("scraper.max_products", cfg.Scraper.MaxProducts)
	v.SetDefault("scraper.input", cfg.Scraper.Input)
	v.SetDefault("scraper.dispatch_rate", cfg.Scraper.DispatchRate)
	v.SetDefault("scraper.checkpoint_path", cfg.Scraper.CheckpointPath)
	v.SetDefault("scraper.checkpoint_interval", cfg.Scraper.CheckpointInterval)
	v.SetDefault("scraper.resume", cfg.Scraper.Resume)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.no_sandbox", cfg.Browser.NoSandbox)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.user_agent", cfg.Browser.UserAgent)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)
	v.SetDefault("browser.low_memory_threshold", cfg.Browser.LowMemoryThreshold)
	v.SetDefault("browser.create_attempts", cfg.Browser.CreateAttempts)
	v.SetDefault("browser.create_backoff_min", cfg.Browser.CreateBackoffMin)
	v.SetDefault("browser.create_backoff_max", cfg.Browser.CreateBackoffMax)
	v.SetDefault("browser.page_load_timeout", cfg.Browser.PageLoadTimeout)
	v.SetDefault("browser.ready_timeout", cfg.Browser.ReadyTimeout)
	v.SetDefault("browser.content_timeout", cfg.Browser.ContentTimeout)
	v.SetDefault("browser.settle_scale", cfg.Browser.SettleScale)
	v.SetDefault("browser.post_ready_delay", cfg.Browser.PostReadyDelay)
	v.SetDefault("browser.post_content_delay", cfg.Browser.PostContentDelay)
	v.SetDefault("browser.image_delay", cfg.Browser.ImageDelay)
	v.SetDefault("browser.details_delay", cfg.Browser.DetailsDelay)
	v.SetDefault("browser.retry_extract_delay", cfg.Browser.RetryExtractDelay)
	v.SetDefault("browser.content_markers", cfg.Browser.ContentMarkers)

	v.SetDefault("prober.enabled", cfg.Prober.Enabled)
	v.SetDefault("prober.timeout", cfg.Prober.Timeout)
	v.SetDefault("prober.inspect_body", cfg.Prober.InspectBody)
	v.SetDefault("prober.max_body_size", cfg.Prober.MaxBodySize)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.rotation", cfg.Proxy.Rotation)

	v.SetDefault("site.origin", cfg.Site.Origin)
	v.SetDefault("site.vendor_name", cfg.Site.VendorName)
	v.SetDefault("site.image_path_segment", cfg.Site.ImagePathSegment)

	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.prefix", cfg.Output.Prefix)
	v.SetDefault("output.formats", cfg.Output.Formats)
	v.SetDefault("output.debug_dir", cfg.Output.DebugDir)
	v.SetDefault("output.mongo.enabled", cfg.Output.Mongo.Enabled)
	v.SetDefault("output.mongo.uri", cfg.Output.Mongo.URI)
	v.SetDefault("output.mongo.database", cfg.Output.Mongo.Database)
	v.SetDefault("output.mongo.collection", cfg.Output.Mongo.Collection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
