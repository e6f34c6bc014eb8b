package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/fetcher"
)

var (
	cfgFile      string
	verbose      bool
	threads      int
	maxProducts  int
	headless     bool
	urlsFile     string
	outputPrefix string
	outputDir    string
	formats      []string
	checkpoint   string
	resume       bool
	assumeYes    bool
	dispatchRate float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "isoscrape",
		Short: "isoscrape: concurrent product catalog scraper",
		Long: `isoscrape renders product pages in headless browser sessions and
extracts catalog fields (name, CAS numbers, formula, purity, enrichment...).

Each URL is probed first, rendered in its own browser session, and classified
as a product, a skipped not-found page, or a failure. Results are written to
CSV and XLSX with skip and fail lists next to them.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape product pages",
		Long:  "Scrape the configured product URLs with a bounded pool of browser sessions.",
		Args:  cobra.NoArgs,
		RunE:  runScrape,
	}

	cmd.Flags().IntVarP(&threads, "threads", "t", 2, "number of concurrent workers")
	cmd.Flags().IntVarP(&maxProducts, "max-products", "n", 0, "maximum number of URLs to scrape (0 = all)")
	cmd.Flags().BoolVar(&headless, "headless", false, "run browsers without a window")
	cmd.Flags().StringVarP(&urlsFile, "urls-file", "u", "", "file with URLs (.json array or one per line)")
	cmd.Flags().StringVarP(&outputPrefix, "output-prefix", "o", "", "output file name prefix")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "output directory")
	cmd.Flags().StringSliceVarP(&formats, "formats", "f", nil, "output formats: csv, xlsx, json, jsonl")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "checkpoint file path")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the checkpoint file")
	cmd.Flags().BoolVar(&assumeYes, "yes", false, "skip the high concurrency confirmation")
	cmd.Flags().Float64Var(&dispatchRate, "rate", 0, "maximum tasks started per second (0 = unpaced)")

	return cmd
}

// checkCmd creates the "check" subcommand, which verifies a browser session
// can be created and closed.
func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Launch and close one browser session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			factory := fetcher.NewBrowserFactory(cfg, logger)
			start := time.Now()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			session, err := factory.NewSession(ctx)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			if err := session.Close(); err != nil {
				return fmt.Errorf("close session: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ Browser session OK (%s, low memory: %v)\n",
				time.Since(start).Round(time.Millisecond), factory.LowMemory())
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "isoscrape %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "Scraper:\n")
	fmt.Fprintf(out, "  Workers:           %d\n", cfg.Scraper.Workers)
	fmt.Fprintf(out, "  Max Products:      %d\n", cfg.Scraper.MaxProducts)
	fmt.Fprintf(out, "  Input:             %s\n", orDefault(cfg.Scraper.Input, "(built-in list)"))
	fmt.Fprintf(out, "  Dispatch Rate:     %.2f/s\n", cfg.Scraper.DispatchRate)
	fmt.Fprintf(out, "  Checkpoint:        %s\n", orDefault(cfg.Scraper.CheckpointPath, "(disabled)"))
	fmt.Fprintf(out, "\nBrowser:\n")
	fmt.Fprintf(out, "  Headless:          %v\n", cfg.Browser.Headless)
	fmt.Fprintf(out, "  Stealth:           %v\n", cfg.Browser.Stealth)
	fmt.Fprintf(out, "  Low Memory Above:  %d workers\n", cfg.Browser.LowMemoryThreshold)
	fmt.Fprintf(out, "  Create Attempts:   %d\n", cfg.Browser.CreateAttempts)
	fmt.Fprintf(out, "  Page Load Timeout: %s\n", cfg.Browser.PageLoadTimeout)
	fmt.Fprintf(out, "  Content Timeout:   %s\n", cfg.Browser.ContentTimeout)
	fmt.Fprintf(out, "\nProber:\n")
	fmt.Fprintf(out, "  Enabled:           %v\n", cfg.Prober.Enabled)
	fmt.Fprintf(out, "  Timeout:           %s\n", cfg.Prober.Timeout)
	fmt.Fprintf(out, "  Inspect Body:      %v\n", cfg.Prober.InspectBody)
	fmt.Fprintf(out, "\nProxy:\n")
	fmt.Fprintf(out, "  Enabled:           %v\n", cfg.Proxy.Enabled)
	fmt.Fprintf(out, "  Rotation:          %s\n", cfg.Proxy.Rotation)
	fmt.Fprintf(out, "  Count:             %d\n", len(cfg.Proxy.URLs))
	fmt.Fprintf(out, "\nSite:\n")
	fmt.Fprintf(out, "  Origin:            %s\n", cfg.Site.Origin)
	fmt.Fprintf(out, "\nOutput:\n")
	fmt.Fprintf(out, "  Dir:               %s\n", cfg.Output.Dir)
	fmt.Fprintf(out, "  Prefix:            %s\n", cfg.Output.Prefix)
	fmt.Fprintf(out, "  Formats:           %s\n", strings.Join(cfg.Output.Formats, ", "))
	fmt.Fprintf(out, "  MongoDB:           %v\n", cfg.Output.Mongo.Enabled)
	fmt.Fprintf(out, "\nMetrics:\n")
	fmt.Fprintf(out, "  Enabled:           %v\n", cfg.Metrics.Enabled)
	fmt.Fprintf(out, "  Port:              %d\n", cfg.Metrics.Port)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logging.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config. Only
// flags that were set explicitly override the loaded values.
func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Lookup("threads") != nil && flags.Changed("threads") {
		cfg.Scraper.Workers = threads
	}
	if maxProducts > 0 {
		cfg.Scraper.MaxProducts = maxProducts
	}
	if flags.Lookup("headless") != nil && flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if urlsFile != "" {
		cfg.Scraper.Input = urlsFile
	}
	if outputPrefix != "" {
		cfg.Output.Prefix = outputPrefix
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if len(formats) > 0 {
		var fs []string
		for _, f := range formats {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				fs = append(fs, f)
			}
		}
		cfg.Output.Formats = fs
	}
	if checkpoint != "" {
		cfg.Scraper.CheckpointPath = checkpoint
	}
	if resume {
		cfg.Scraper.Resume = true
	}
	if dispatchRate > 0 {
		cfg.Scraper.DispatchRate = dispatchRate
	}
}

// confirmHighConcurrency prints warnings for large pools and, above 64
// workers, asks for a literal "yes" unless assumeYes is set.
func confirmHighConcurrency(in io.Reader, out io.Writer, workers int, assumeYes bool) bool {
	switch {
	case workers > 64:
		fmt.Fprintf(out, "⚠️  %d workers is extremely high.\n", workers)
		fmt.Fprintf(out, "   Expect heavy memory use (about 200MB per browser) and likely IP bans.\n")
		if assumeYes {
			return true
		}
		fmt.Fprint(out, "   Type 'yes' to continue: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return false
		}
		return strings.TrimSpace(strings.ToLower(line)) == "yes"
	case workers > 16:
		fmt.Fprintf(out, "⚠️  %d workers: high risk of IP bans, about %dMB of browser memory.\n", workers, workers*200)
	case workers > 8:
		fmt.Fprintf(out, "ℹ️  %d workers: low memory browser options enabled.\n", workers)
	}
	return true
}
