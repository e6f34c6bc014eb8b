package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/fetcher"
	"github.com/IshaanNene/isoscrape/internal/observability"
	"github.com/IshaanNene/isoscrape/internal/parser"
	"github.com/IshaanNene/isoscrape/internal/retry"
	"github.com/IshaanNene/isoscrape/internal/types"
)

// Task drives one URL from probe to classified outcome.
type Task struct {
	cfg       *config.Config
	prober    Prober
	factory   fetcher.SessionFactory
	extractor *parser.Extractor
	pipeline  Pipeline
	metrics   *observability.Metrics
	logger    *slog.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	settle func(workers int, scale float64) time.Duration
}

// NewTask wires a Task. prober may be nil to skip the existence check.
func NewTask(
	cfg *config.Config,
	prober Prober,
	factory fetcher.SessionFactory,
	extractor *parser.Extractor,
	pipeline Pipeline,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Task {
	return &Task{
		cfg:       cfg,
		prober:    prober,
		factory:   factory,
		extractor: extractor,
		pipeline:  pipeline,
		metrics:   metrics,
		logger:    logger.With("component", "task"),
		sleep:     retry.Sleep,
		settle:    SettleDelay,
	}
}

// Run processes a URL. It always returns an outcome; panics are recovered
// and classified Failed.
func (t *Task) Run(ctx context.Context, workerID int, rawURL string) (out types.Outcome) {
	start := time.Now()
	logger := t.logger.With("worker_id", workerID, "url", rawURL)

	defer func() {
		if r := recover(); r != nil {
			t.metrics.TasksPanicked.Add(1)
			logger.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
			out = types.Failed(rawURL, &types.TaskError{
				URL:   rawURL,
				Stage: "panic",
				Err:   fmt.Errorf("%w: %v", types.ErrTaskPanic, r),
			})
		}
		out.WorkerID = workerID
		out.Duration = time.Since(start)
	}()

	return t.run(ctx, logger, workerID, rawURL)
}

func (t *Task) run(ctx context.Context, logger *slog.Logger, workerID int, rawURL string) types.Outcome {
	if t.prober != nil {
		t.metrics.ProbesTotal.Add(1)
		switch status := t.prober.Probe(ctx, rawURL); status {
		case fetcher.StatusNotFound:
			t.metrics.ProbesNotFound.Add(1)
			logger.Info("skipping page, probe reports not found")
			return types.Skipped(rawURL, ReasonProbeNotFound)
		case fetcher.StatusUnknown:
			t.metrics.ProbesUnknown.Add(1)
			logger.Debug("probe inconclusive, rendering anyway")
		case fetcher.StatusError:
			logger.Debug("probe returned an error status, rendering anyway")
		}
	}

	sess, err := t.factory.NewSession(ctx)
	if err != nil {
		t.metrics.SessionsFailed.Add(1)
		logger.Error("browser session unavailable", "error", err)
		return types.Failed(rawURL, err)
	}
	t.metrics.SessionsCreated.Add(1)
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("session close error", "error", err)
		}
		t.metrics.SessionsClosed.Add(1)
	}()

	bc := &t.cfg.Browser

	if err := sess.Navigate(ctx, rawURL, bc.PageLoadTimeout); err != nil {
		return t.fail(logger, rawURL, "navigate", err)
	}
	t.wait(ctx, t.settle(t.cfg.Scraper.Workers, bc.SettleScale))

	if err := sess.WaitReady(ctx, bc.ReadyTimeout); err != nil {
		return t.fail(logger, rawURL, "ready", err)
	}
	t.wait(ctx, bc.PostReadyDelay)

	if err := sess.WaitAny(ctx, bc.ContentMarkers, bc.ContentTimeout); err != nil {
		logger.Warn("content markers did not appear, extracting anyway", "error", err)
	} else {
		t.wait(ctx, bc.PostContentDelay)
	}

	title, err := sess.Title(ctx)
	if err != nil {
		return t.fail(logger, rawURL, "title", err)
	}
	if parser.IsNotFoundTitle(title) {
		logger.Info("skipping page, rendered title reports not found", "title", title)
		return types.Skipped(rawURL, ReasonRenderedNotFound)
	}

	t.wait(ctx, bc.ImageDelay+bc.DetailsDelay)

	markup, err := sess.HTML(ctx)
	if err != nil {
		return t.fail(logger, rawURL, "snapshot", err)
	}
	product := t.extractor.Extract(parser.NewDocument(rawURL, title, markup))

	if parser.NeedsRetry(product) {
		t.metrics.DetailsRetries.Add(1)
		logger.Debug("details missing, re-reading page")
		t.wait(ctx, bc.RetryExtractDelay)
		if fresh, err := sess.HTML(ctx); err != nil {
			logger.Warn("re-snapshot failed", "error", err)
		} else {
			markup = fresh
			t.extractor.Retry(parser.NewDocument(rawURL, title, fresh), product)
		}
	}

	product, err = t.pipeline.Process(product)
	if err != nil {
		return t.fail(logger, rawURL, "pipeline", err)
	}

	if !product.HasCoreData() {
		t.metrics.RecordsEmpty.Add(1)
		logger.Warn("no core fields extracted", "title", title)
		t.dumpPage(logger, workerID, markup)
	} else {
		logger.Info("product extracted",
			"name", product.Name,
			"product_number", product.ProductNumber,
			"cas_labeled", product.CASLabeled,
		)
	}
	return types.Success(product)
}

func (t *Task) fail(logger *slog.Logger, rawURL, stage string, err error) types.Outcome {
	logger.Error("task failed", "stage", stage, "error", err)
	return types.Failed(rawURL, &types.TaskError{URL: rawURL, Stage: stage, Err: err})
}

// wait sleeps for d. Task contexts are detached from cancellation, so the
// error is only reachable through a deadline.
func (t *Task) wait(ctx context.Context, d time.Duration) {
	_ = t.sleep(ctx, d)
}

// dumpPage writes the rendered markup of an empty record for inspection.
func (t *Task) dumpPage(logger *slog.Logger, workerID int, markup string) {
	dir := t.cfg.Output.DebugDir
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("create debug dir", "error", err)
		return
	}
	name := fmt.Sprintf("debug_page_%d_%s.html", workerID, time.Now().Format("20060102_150405.000"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(markup), 0o644); err != nil {
		logger.Warn("write debug page", "path", path, "error", err)
		return
	}
	logger.Info("saved debug page", "path", path)
}
