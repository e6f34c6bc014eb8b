package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for isoscrape.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper" yaml:"scraper"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Prober  ProberConfig  `mapstructure:"prober"  yaml:"prober"`
	Proxy   ProxyConfig   `mapstructure:"proxy"   yaml:"proxy"`
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Output  OutputConfig  `mapstructure:"output"  yaml:"output"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ScraperConfig controls the worker pool and task dispatch.
type ScraperConfig struct {
	Workers            int           `mapstructure:"workers"             yaml:"workers"`
	MaxProducts        int           `mapstructure:"max_products"        yaml:"max_products"`
	Input              string        `mapstructure:"input"               yaml:"input"`
	DispatchRate       float64       `mapstructure:"dispatch_rate"       yaml:"dispatch_rate"` // tasks per second, 0 = unpaced
	CheckpointPath     string        `mapstructure:"checkpoint_path"     yaml:"checkpoint_path"`
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval" yaml:"checkpoint_interval"`
	Resume             bool          `mapstructure:"resume"              yaml:"resume"`
}

// BrowserConfig controls browser sessions and the per-task wait schedule.
type BrowserConfig struct {
	Headless           bool          `mapstructure:"headless"             yaml:"headless"`
	Bin                string        `mapstructure:"bin"                  yaml:"bin"`
	NoSandbox          bool          `mapstructure:"no_sandbox"           yaml:"no_sandbox"`
	Stealth            bool          `mapstructure:"stealth"              yaml:"stealth"`
	UserAgent          string        `mapstructure:"user_agent"           yaml:"user_agent"`
	WindowSize         string        `mapstructure:"window_size"          yaml:"window_size"`
	LowMemoryThreshold int           `mapstructure:"low_memory_threshold" yaml:"low_memory_threshold"`
	CreateAttempts     int           `mapstructure:"create_attempts"      yaml:"create_attempts"`
	CreateBackoffMin   time.Duration `mapstructure:"create_backoff_min"   yaml:"create_backoff_min"`
	CreateBackoffMax   time.Duration `mapstructure:"create_backoff_max"   yaml:"create_backoff_max"`
	PageLoadTimeout    time.Duration `mapstructure:"page_load_timeout"    yaml:"page_load_timeout"`
	ReadyTimeout       time.Duration `mapstructure:"ready_timeout"        yaml:"ready_timeout"`
	ContentTimeout     time.Duration `mapstructure:"content_timeout"      yaml:"content_timeout"`
	SettleScale        float64       `mapstructure:"settle_scale"         yaml:"settle_scale"`
	PostReadyDelay     time.Duration `mapstructure:"post_ready_delay"     yaml:"post_ready_delay"`
	PostContentDelay   time.Duration `mapstructure:"post_content_delay"   yaml:"post_content_delay"`
	ImageDelay         time.Duration `mapstructure:"image_delay"          yaml:"image_delay"`
	DetailsDelay       time.Duration `mapstructure:"details_delay"        yaml:"details_delay"`
	RetryExtractDelay  time.Duration `mapstructure:"retry_extract_delay"  yaml:"retry_extract_delay"`
	ContentMarkers     []string      `mapstructure:"content_markers"      yaml:"content_markers"`
}

// ProberConfig controls the pre-render status check.
type ProberConfig struct {
	Enabled     bool          `mapstructure:"enabled"      yaml:"enabled"`
	Timeout     time.Duration `mapstructure:"timeout"      yaml:"timeout"`
	InspectBody bool          `mapstructure:"inspect_body" yaml:"inspect_body"`
	MaxBodySize int64         `mapstructure:"max_body_size" yaml:"max_body_size"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// SiteConfig describes the vendor catalog being scraped.
type SiteConfig struct {
	Origin           string `mapstructure:"origin"             yaml:"origin"`
	VendorName       string `mapstructure:"vendor_name"        yaml:"vendor_name"`
	ImagePathSegment string `mapstructure:"image_path_segment" yaml:"image_path_segment"`
}

// OutputConfig controls result files and sinks.
type OutputConfig struct {
	Dir      string      `mapstructure:"dir"       yaml:"dir"`
	Prefix   string      `mapstructure:"prefix"    yaml:"prefix"`
	Formats  []string    `mapstructure:"formats"   yaml:"formats"`
	DebugDir string      `mapstructure:"debug_dir" yaml:"debug_dir"`
	Mongo    MongoConfig `mapstructure:"mongo"     yaml:"mongo"`
}

// MongoConfig controls the optional MongoDB product sink.
type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultUserAgent is sent by both the prober and browser sessions.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			Workers:            2,
			CheckpointInterval: 30 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:           false,
			NoSandbox:          true,
			Stealth:            true,
			UserAgent:          DefaultUserAgent,
			WindowSize:         "1920,1080",
			LowMemoryThreshold: 8,
			CreateAttempts:     3,
			CreateBackoffMin:   1 * time.Second,
			CreateBackoffMax:   3 * time.Second,
			PageLoadTimeout:    30 * time.Second,
			ReadyTimeout:       30 * time.Second,
			ContentTimeout:     10 * time.Second,
			SettleScale:        1.0,
			PostReadyDelay:     8 * time.Second,
			PostContentDelay:   3 * time.Second,
			ImageDelay:         1 * time.Second,
			DetailsDelay:       2 * time.Second,
			RetryExtractDelay:  2 * time.Second,
			ContentMarkers: []string{
				".Details_customHorizontal",
				".Details_customVertical",
				"h1",
			},
		},
		Prober: ProberConfig{
			Enabled:     true,
			Timeout:     5 * time.Second,
			MaxBodySize: 2 * 1024 * 1024, // 2MB
		},
		Proxy: ProxyConfig{
			Enabled:  false,
			Rotation: "round_robin",
		},
		Site: SiteConfig{
			Origin:           "https://isotope.com",
			VendorName:       "Cambridge Isotope",
			ImagePathSegment: "/product/image/",
		},
		Output: OutputConfig{
			Dir:     ".",
			Prefix:  "products",
			Formats: []string{"csv", "xlsx"},
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "isoscrape",
				Collection: "products",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
