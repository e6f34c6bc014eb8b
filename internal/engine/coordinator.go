package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/observability"
	"github.com/IshaanNene/isoscrape/internal/types"
)

// Coordinator fans URLs out to a fixed pool of workers and gathers every
// outcome into a Collector.
type Coordinator struct {
	cfg        *config.Config
	runner     Runner
	collector  *Collector
	checkpoint *CheckpointManager
	metrics    *observability.Metrics
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithCheckpoint enables periodic snapshots and, if configured, resume.
func WithCheckpoint(cm *CheckpointManager) Option {
	return func(c *Coordinator) { c.checkpoint = cm }
}

// WithCollector sets the collector outcomes are added to.
func WithCollector(col *Collector) Option {
	return func(c *Coordinator) { c.collector = col }
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg *config.Config, runner Runner, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:       cfg,
		runner:    runner,
		collector: NewCollector(),
		metrics:   metrics,
		logger:    logger.With("component", "coordinator"),
	}
	if r := cfg.Scraper.DispatchRate; r > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(r), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collector returns the collector outcomes are added to.
func (c *Coordinator) Collector() *Collector { return c.collector }

// Plan applies the product cap and drops URLs a resumed checkpoint already
// classified. Input order is kept.
func (c *Coordinator) Plan(urls []string, done map[string]bool) []string {
	if n := c.cfg.Scraper.MaxProducts; n > 0 && len(urls) > n {
		urls = urls[:n]
	}
	if len(done) == 0 {
		return urls
	}
	planned := make([]string, 0, len(urls))
	for _, u := range urls {
		if !done[u] {
			planned = append(planned, u)
		}
	}
	return planned
}

// Run processes the URLs and returns the collected results. Cancelling ctx
// stops dispatch only; tasks already handed to a worker run to completion.
func (c *Coordinator) Run(ctx context.Context, urls []string) (types.Results, error) {
	done, err := c.resume()
	if err != nil {
		return c.collector.Snapshot(), err
	}

	planned := c.Plan(urls, done)
	workers := min(c.cfg.Scraper.Workers, len(planned))
	start := time.Now()

	c.logger.Info("scrape starting",
		"urls", len(planned),
		"input", len(urls),
		"resumed", len(done),
		"workers", workers,
	)
	if len(planned) == 0 {
		return c.collector.Snapshot(), nil
	}

	taskCtx := context.WithoutCancel(ctx)
	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go c.worker(taskCtx, i, jobs, len(planned), &wg)
	}

	stopCheckpoint := c.autoCheckpoint()

	dispatched := 0
	c.metrics.QueueDepth.Store(int64(len(planned)))
dispatch:
	for _, u := range planned {
		if ctx.Err() != nil {
			break
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				break dispatch
			}
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- u:
			dispatched++
			c.metrics.TasksDispatched.Add(1)
			c.metrics.QueueDepth.Store(int64(len(planned) - dispatched))
		}
	}
	close(jobs)

	if dispatched < len(planned) {
		c.logger.Warn("dispatch interrupted, draining in-flight tasks",
			"dispatched", dispatched,
			"not_dispatched", len(planned)-dispatched,
		)
	}

	wg.Wait()
	stopCheckpoint()

	results := c.collector.Snapshot()
	c.logger.Info("scrape finished",
		"products", len(results.Products),
		"skipped", len(results.Skipped),
		"failed", len(results.Failed),
		"elapsed", time.Since(start).Round(time.Millisecond),
		"metrics", c.metrics.Snapshot(),
	)
	return results, nil
}

func (c *Coordinator) worker(ctx context.Context, id int, jobs <-chan string, total int, wg *sync.WaitGroup) {
	defer wg.Done()

	for u := range jobs {
		out := c.runJob(ctx, id, u)

		c.collector.Add(out)
		switch out.Status {
		case types.StatusSuccess:
			c.metrics.TasksSucceeded.Add(1)
		case types.StatusSkipped:
			c.metrics.TasksSkipped.Add(1)
		default:
			c.metrics.TasksFailed.Add(1)
		}

		c.logger.Info("task complete",
			"worker_id", id,
			"url", u,
			"status", out.Status,
			"duration", out.Duration.Round(time.Millisecond),
			"progress", fmt.Sprintf("%d/%d", c.metrics.TasksSucceeded.Load()+c.metrics.TasksSkipped.Load()+c.metrics.TasksFailed.Load(), total),
		)
	}
}

// runJob runs one URL. A panicking runner yields a failed outcome so the
// worker keeps draining jobs.
func (c *Coordinator) runJob(ctx context.Context, id int, u string) (out types.Outcome) {
	c.metrics.ActiveWorkers.Add(1)
	defer func() {
		c.metrics.ActiveWorkers.Add(-1)
		if r := recover(); r != nil {
			c.metrics.TasksPanicked.Add(1)
			c.logger.Error("worker recovered from panic",
				"worker_id", id,
				"url", u,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			out = types.Failed(u, &types.TaskError{
				URL:   u,
				Stage: "worker",
				Err:   fmt.Errorf("%w: %v", types.ErrTaskPanic, r),
			})
			out.WorkerID = id
		}
	}()
	return c.runner.Run(ctx, id, u)
}

// resume restores a checkpoint into the collector. Failed URLs are not
// restored so they are dispatched again.
func (c *Coordinator) resume() (map[string]bool, error) {
	if c.checkpoint == nil || !c.cfg.Scraper.Resume {
		return nil, nil
	}
	if !c.checkpoint.HasCheckpoint() {
		c.logger.Info("no checkpoint found, starting fresh", "path", c.checkpoint.Path())
		return nil, nil
	}
	prev, err := c.checkpoint.Load()
	if err != nil {
		return nil, fmt.Errorf("resume: %w", err)
	}
	prev.Failed = nil
	c.collector.Restore(prev)

	done := make(map[string]bool, len(prev.Products)+len(prev.Skipped))
	for _, p := range prev.Products {
		done[p.URL] = true
	}
	for _, o := range prev.Skipped {
		done[o.URL] = true
	}
	c.logger.Info("resumed from checkpoint",
		"path", c.checkpoint.Path(),
		"products", len(prev.Products),
		"skipped", len(prev.Skipped),
	)
	return done, nil
}

// autoCheckpoint periodically saves the collector. The returned func stops
// the loop and writes a final snapshot.
func (c *Coordinator) autoCheckpoint() func() {
	if c.checkpoint == nil {
		return func() {}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	interval := c.cfg.Scraper.CheckpointInterval

	if interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					if err := c.checkpoint.Save(c.collector.Snapshot()); err != nil {
						c.logger.Error("checkpoint save failed", "error", err)
					} else {
						c.logger.Debug("checkpoint saved")
					}
				}
			}
		}()
	}

	return func() {
		close(stop)
		wg.Wait()
		if err := c.checkpoint.Save(c.collector.Snapshot()); err != nil {
			c.logger.Error("final checkpoint save failed", "error", err)
		}
	}
}
