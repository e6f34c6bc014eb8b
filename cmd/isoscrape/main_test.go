package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/engine"
	"github.com/IshaanNene/isoscrape/internal/types"
)

func TestConfirmHighConcurrency(t *testing.T) {
	tests := []struct {
		name      string
		workers   int
		input     string
		assumeYes bool
		want      bool
		wantOut   string
	}{
		{"default pool", 2, "", false, true, ""},
		{"notice", 10, "", false, true, "low memory"},
		{"warning", 32, "", false, true, "IP bans"},
		{"prompt accepted", 100, "yes\n", false, true, "Type 'yes'"},
		{"prompt accepted uppercase", 100, " YES \n", false, true, "Type 'yes'"},
		{"prompt declined", 100, "y\n", false, false, "Type 'yes'"},
		{"prompt eof", 100, "", false, false, "Type 'yes'"},
		{"assume yes", 100, "", true, true, "extremely high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			got := confirmHighConcurrency(strings.NewReader(tt.input), &out, tt.workers, tt.assumeYes)
			if got != tt.want {
				t.Errorf("confirmHighConcurrency() = %v, want %v", got, tt.want)
			}
			if tt.wantOut == "" && out.Len() != 0 {
				t.Errorf("unexpected output %q", out.String())
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output %q does not contain %q", out.String(), tt.wantOut)
			}
			if tt.assumeYes && strings.Contains(out.String(), "Type 'yes'") {
				t.Error("prompted despite assumeYes")
			}
		})
	}
}

func TestApplyCLIOverrides(t *testing.T) {
	cmd := scrapeCmd()
	if err := cmd.ParseFlags([]string{
		"-t", "12",
		"-n", "5",
		"--headless",
		"-u", "urls.json",
		"-o", "run",
		"-d", "out",
		"-f", "CSV, json",
		"--rate", "2.5",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	t.Cleanup(resetFlags)

	cfg := config.DefaultConfig()
	applyCLIOverrides(cmd, cfg)

	if cfg.Scraper.Workers != 12 {
		t.Errorf("workers = %d, want 12", cfg.Scraper.Workers)
	}
	if cfg.Scraper.MaxProducts != 5 {
		t.Errorf("max products = %d, want 5", cfg.Scraper.MaxProducts)
	}
	if !cfg.Browser.Headless {
		t.Error("headless not applied")
	}
	if cfg.Scraper.Input != "urls.json" {
		t.Errorf("input = %q", cfg.Scraper.Input)
	}
	if cfg.Output.Prefix != "run" || cfg.Output.Dir != "out" {
		t.Errorf("output = %q/%q", cfg.Output.Dir, cfg.Output.Prefix)
	}
	if got := strings.Join(cfg.Output.Formats, ","); got != "csv,json" {
		t.Errorf("formats = %q, want csv,json", got)
	}
	if cfg.Scraper.DispatchRate != 2.5 {
		t.Errorf("rate = %v, want 2.5", cfg.Scraper.DispatchRate)
	}
}

func TestApplyCLIOverridesKeepsConfigWhenUnset(t *testing.T) {
	cmd := scrapeCmd()
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	t.Cleanup(resetFlags)

	cfg := config.DefaultConfig()
	cfg.Scraper.Workers = 6
	cfg.Browser.Headless = true
	applyCLIOverrides(cmd, cfg)

	if cfg.Scraper.Workers != 6 {
		t.Errorf("workers overridden to %d", cfg.Scraper.Workers)
	}
	if !cfg.Browser.Headless {
		t.Error("headless overridden by unset flag")
	}
	if got := strings.Join(cfg.Output.Formats, ","); got != "csv,xlsx" {
		t.Errorf("formats = %q, want defaults", got)
	}
}

func TestApplyCLIOverridesWithoutScrapeFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	applyCLIOverrides(&cobra.Command{Use: "check"}, cfg)
	if cfg.Scraper.Workers != 2 {
		t.Errorf("workers = %d, want 2", cfg.Scraper.Workers)
	}
}

func TestPrintConfig(t *testing.T) {
	var out strings.Builder
	printConfig(&out, config.DefaultConfig())

	for _, want := range []string{"Workers:           2", "(built-in list)", "csv, xlsx", "https://isotope.com"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("config output missing %q", want)
		}
	}
}

func TestFinishCheckpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		runErr   error
		wantKept bool
	}{
		{"completed run", nil, false},
		{"interrupted run", context.Canceled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := engine.NewCheckpointManager(filepath.Join(t.TempDir(), "checkpoint.json"), "run")
			if err := cm.Save(types.Results{Products: []*types.Product{types.NewProduct("https://isotope.com/a")}}); err != nil {
				t.Fatalf("save: %v", err)
			}

			finishCheckpoint(cm, tt.runErr, logger)

			if got := cm.HasCheckpoint(); got != tt.wantKept {
				t.Errorf("checkpoint kept = %v, want %v", got, tt.wantKept)
			}
		})
	}

	finishCheckpoint(nil, nil, logger)
}

func resetFlags() {
	threads, maxProducts = 2, 0
	headless, resume, assumeYes = false, false, false
	urlsFile, outputPrefix, outputDir, checkpoint = "", "", "", ""
	formats = nil
	dispatchRate = 0
}
