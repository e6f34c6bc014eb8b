package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/engine"
	"github.com/IshaanNene/isoscrape/internal/fetcher"
	"github.com/IshaanNene/isoscrape/internal/input"
	"github.com/IshaanNene/isoscrape/internal/observability"
	"github.com/IshaanNene/isoscrape/internal/parser"
	"github.com/IshaanNene/isoscrape/internal/pipeline"
	"github.com/IshaanNene/isoscrape/internal/storage"
	"github.com/IshaanNene/isoscrape/internal/types"
)

// errAborted is returned when the high concurrency prompt is declined.
var errAborted = errors.New("aborted by user")

// runScrape executes the scrape command.
func runScrape(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	if !confirmHighConcurrency(os.Stdin, cmd.ErrOrStderr(), cfg.Scraper.Workers, assumeYes) {
		return errAborted
	}

	urls, err := input.Load(cfg.Scraper.Input, logger)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	// Serves until the command returns.
	serveCtx, stopServe := context.WithCancel(context.Background())
	defer stopServe()

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(serveCtx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	var proxyMgr *fetcher.ProxyManager
	if cfg.Proxy.Enabled {
		proxyMgr = fetcher.NewProxyManager(&cfg.Proxy, logger)
	}

	var prober engine.Prober
	if cfg.Prober.Enabled {
		sp := fetcher.NewStatusProber(cfg, proxyMgr, logger)
		defer sp.Close()
		prober = sp
	}

	factory := fetcher.NewBrowserFactory(cfg, logger, fetcher.WithBrowserProxy(proxyMgr))
	extractor := parser.NewExtractor(cfg.Site, logger)
	task := engine.NewTask(cfg, prober, factory, extractor, pipeline.Default(logger), metrics, logger)

	var opts []engine.Option
	var cm *engine.CheckpointManager
	if cfg.Scraper.CheckpointPath != "" {
		cm = engine.NewCheckpointManager(cfg.Scraper.CheckpointPath, runID)
		opts = append(opts, engine.WithCheckpoint(cm))
	}
	coord := engine.NewCoordinator(cfg, task, metrics, logger, opts...)

	writer := newWriter(serveCtx, cfg, runID, logger)
	defer writer.Close()

	out := cmd.OutOrStdout()
	flush := sync.OnceValues(func() (*storage.Report, error) {
		return writeResults(out, writer, coord.Collector().Snapshot())
	})

	defer func() {
		if r := recover(); r != nil {
			logger.Error("unexpected panic, saving collected results", "panic", r)
			if _, ferr := flush(); ferr != nil {
				logger.Error("best-effort save failed", "error", ferr)
			}
			err = fmt.Errorf("scrape panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go handleSignals(done, cancel, flush, logger)

	logger.Info("starting scrape",
		"urls", len(urls),
		"workers", cfg.Scraper.Workers,
		"max_products", cfg.Scraper.MaxProducts,
		"headless", cfg.Browser.Headless,
		"low_memory", factory.LowMemory(),
	)

	start := time.Now()
	_, runErr := coord.Run(ctx, urls)
	if runErr != nil {
		logger.Error("scrape failed, saving collected results", "error", runErr)
	}

	report, writeErr := flush()
	if report != nil {
		if writeErr == nil {
			metrics.ProductsStored.Add(int64(report.Summary.Success))
		}
		for _, f := range report.Files {
			fmt.Fprintf(out, "   Saved: %s\n", f)
		}
	}
	fmt.Fprintf(out, "\n✅ Scrape finished in %s (%d sessions launched)\n",
		time.Since(start).Round(time.Millisecond), factory.Launched())

	finishCheckpoint(cm, errors.Join(runErr, writeErr, ctx.Err()), logger)

	return errors.Join(runErr, writeErr)
}

// finishCheckpoint removes the checkpoint once a run completed and its
// results were saved. Interrupted or failed runs keep it for --resume.
func finishCheckpoint(cm *engine.CheckpointManager, runErr error, logger *slog.Logger) {
	if cm == nil {
		return
	}
	if runErr != nil {
		logger.Info("checkpoint kept for resume", "path", cm.Path())
		return
	}
	if err := cm.Clean(); err != nil {
		logger.Warn("remove checkpoint failed", "path", cm.Path(), "error", err)
		return
	}
	logger.Debug("checkpoint removed", "path", cm.Path())
}

// newWriter builds the result writer, attaching MongoDB when enabled. A
// database that cannot be reached is logged and skipped.
func newWriter(ctx context.Context, cfg *config.Config, runID string, logger *slog.Logger) *storage.Writer {
	var opts []storage.WriterOption
	if m := cfg.Output.Mongo; m.Enabled {
		ms, err := storage.NewMongoStorage(ctx, m.URI, m.Database, m.Collection, runID, logger)
		if err != nil {
			logger.Warn("mongodb sink disabled", "error", err)
		} else {
			opts = append(opts, storage.WithSink(ms))
		}
	}
	return storage.NewWriter(&cfg.Output, logger, opts...)
}

func writeResults(out io.Writer, w *storage.Writer, results types.Results) (*storage.Report, error) {
	report, err := w.Write(context.Background(), results)
	if report != nil {
		storage.PrintSummary(out, report.Summary)
	}
	return report, err
}

// handleSignals cancels dispatch on the first signal. A second signal saves
// the results collected so far and exits with status 130.
func handleSignals(done <-chan struct{}, cancel context.CancelFunc, flush func() (*storage.Report, error), logger *slog.Logger) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Warn("received signal, finishing in-flight tasks (signal again to save and exit)", "signal", sig)
		cancel()
	case <-done:
		return
	}

	select {
	case sig := <-sigCh:
		logger.Warn("received second signal, saving collected results", "signal", sig)
		if _, err := flush(); err != nil {
			logger.Error("save failed", "error", err)
		}
		os.Exit(130)
	case <-done:
	}
}
