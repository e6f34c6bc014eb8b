package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/fetcher"
	"github.com/IshaanNene/isoscrape/internal/observability"
	"github.com/IshaanNene/isoscrape/internal/parser"
	"github.com/IshaanNene/isoscrape/internal/pipeline"
	"github.com/IshaanNene/isoscrape/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

const productPage = `<html><head><title>D-Glucose - Cambridge Isotope</title></head><body>
<h1>D-Glucose (U-13C6, 99%)</h1>
<div class="Details_customHorizontal"><span class="Details_name">CAS Number Labeled</span><span>110187-42-3</span></div>
<div class="Details_customVertical"><span class="Details_name">Formula</span><span>*C6H12O6</span></div>
</body></html>`

// --- Fakes ---

type fakeProber struct {
	status fetcher.PageStatus
	calls  atomic.Int32
}

func (p *fakeProber) Probe(ctx context.Context, url string) fetcher.PageStatus {
	p.calls.Add(1)
	return p.status
}

type fakeSession struct {
	title       string
	htmls       []string // successive HTML snapshots; the last one repeats
	navigateErr error
	waitAnyErr  error
	panicOnHTML bool

	snapshots int
	closed    atomic.Int32
}

func (s *fakeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return s.navigateErr
}

func (s *fakeSession) WaitReady(ctx context.Context, timeout time.Duration) error { return nil }

func (s *fakeSession) WaitAny(ctx context.Context, selectors []string, timeout time.Duration) error {
	return s.waitAnyErr
}

func (s *fakeSession) Title(ctx context.Context) (string, error) { return s.title, nil }

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	if s.panicOnHTML {
		panic("renderer crashed")
	}
	i := min(s.snapshots, len(s.htmls)-1)
	s.snapshots++
	return s.htmls[i], nil
}

func (s *fakeSession) Close() error {
	s.closed.Add(1)
	return nil
}

type fakeFactory struct {
	newSession func() *fakeSession
	err        error

	mu       sync.Mutex
	calls    int
	sessions []*fakeSession
}

func (f *fakeFactory) NewSession(ctx context.Context) (fetcher.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, &types.SessionError{Attempts: 3, Err: f.err}
	}
	s := f.newSession()
	f.sessions = append(f.sessions, s)
	return s, nil
}

func sessionOf(title string, htmls ...string) func() *fakeSession {
	return func() *fakeSession { return &fakeSession{title: title, htmls: htmls} }
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Browser.SettleScale = 0
	cfg.Browser.PostReadyDelay = 0
	cfg.Browser.PostContentDelay = 0
	cfg.Browser.ImageDelay = 0
	cfg.Browser.DetailsDelay = 0
	cfg.Browser.RetryExtractDelay = 0
	return cfg
}

func newTestTask(cfg *config.Config, prober Prober, factory fetcher.SessionFactory) (*Task, *observability.Metrics) {
	metrics := observability.NewMetrics(testLogger())
	task := NewTask(cfg, prober, factory,
		parser.NewExtractor(cfg.Site, testLogger()),
		pipeline.Default(testLogger()),
		metrics, testLogger())
	task.sleep = func(context.Context, time.Duration) error { return nil }
	return task, metrics
}

// --- Task Tests ---

func TestTaskSuccess(t *testing.T) {
	factory := &fakeFactory{newSession: sessionOf("D-Glucose - Cambridge Isotope", productPage)}
	task, _ := newTestTask(testConfig(), &fakeProber{status: fetcher.StatusOK}, factory)

	out := task.Run(context.Background(), 3, "https://isotope.com/glucose-cdlm-4895")
	if out.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s (%s)", out.Status, out.Reason)
	}
	p := out.Product
	if p.Name != "D-Glucose (U-13C6, 99%)" || p.CASLabeled != "110187-42-3" || p.Formula != "*C6H12O6" {
		t.Errorf("unexpected record: %+v", p)
	}
	if p.ProductNumber != "CDLM-4895" {
		t.Errorf("expected CDLM-4895, got %q", p.ProductNumber)
	}
	if out.WorkerID != 3 {
		t.Errorf("expected worker id 3, got %d", out.WorkerID)
	}
	if got := factory.sessions[0].closed.Load(); got != 1 {
		t.Errorf("expected session closed once, got %d", got)
	}
}

func TestTaskProbeNotFoundSkipsWithoutSession(t *testing.T) {
	factory := &fakeFactory{newSession: sessionOf("x", productPage)}
	task, metrics := newTestTask(testConfig(), &fakeProber{status: fetcher.StatusNotFound}, factory)

	out := task.Run(context.Background(), 1, "https://isotope.com/gone")
	if out.Status != types.StatusSkipped || out.Reason != ReasonProbeNotFound {
		t.Fatalf("expected probe skip, got %s (%s)", out.Status, out.Reason)
	}
	if factory.calls != 0 {
		t.Errorf("factory must not be called, got %d calls", factory.calls)
	}
	if metrics.ProbesNotFound.Load() != 1 {
		t.Error("expected not_found probe counted")
	}
}

func TestTaskProbeErrorStillRenders(t *testing.T) {
	for _, status := range []fetcher.PageStatus{fetcher.StatusError, fetcher.StatusUnknown} {
		factory := &fakeFactory{newSession: sessionOf("t", productPage)}
		task, _ := newTestTask(testConfig(), &fakeProber{status: status}, factory)

		if out := task.Run(context.Background(), 1, "https://isotope.com/x"); out.Status != types.StatusSuccess {
			t.Errorf("%s: expected success, got %s", status, out.Status)
		}
		if factory.calls != 1 {
			t.Errorf("%s: expected a session to be created", status)
		}
	}
}

func TestTaskRenderedNotFound(t *testing.T) {
	factory := &fakeFactory{newSession: sessionOf("Page cannot be found", productPage)}
	task, _ := newTestTask(testConfig(), nil, factory)

	out := task.Run(context.Background(), 1, "https://isotope.com/x")
	if out.Status != types.StatusSkipped || out.Reason != ReasonRenderedNotFound {
		t.Fatalf("expected rendered skip, got %s (%s)", out.Status, out.Reason)
	}
	if factory.sessions[0].closed.Load() != 1 {
		t.Error("session must be closed on skip")
	}
}

func TestTaskFactoryFailure(t *testing.T) {
	factory := &fakeFactory{err: errors.New("chrome missing")}
	task, metrics := newTestTask(testConfig(), nil, factory)

	out := task.Run(context.Background(), 1, "https://isotope.com/x")
	if out.Status != types.StatusFailed {
		t.Fatalf("expected failure, got %s", out.Status)
	}
	if !errors.Is(out.Err, types.ErrSessionCreate) {
		t.Errorf("expected ErrSessionCreate, got %v", out.Err)
	}
	if metrics.SessionsFailed.Load() != 1 {
		t.Error("expected failed session counted")
	}
}

func TestTaskNavigateFailureClosesSession(t *testing.T) {
	factory := &fakeFactory{newSession: func() *fakeSession {
		return &fakeSession{navigateErr: errors.New("net::ERR_TIMED_OUT"), htmls: []string{""}}
	}}
	task, _ := newTestTask(testConfig(), nil, factory)

	out := task.Run(context.Background(), 1, "https://isotope.com/x")
	var te *types.TaskError
	if out.Status != types.StatusFailed || !errors.As(out.Err, &te) || te.Stage != "navigate" {
		t.Fatalf("expected navigate failure, got %s %v", out.Status, out.Err)
	}
	if factory.sessions[0].closed.Load() != 1 {
		t.Error("session must be closed on failure")
	}
}

func TestTaskPanicRecovered(t *testing.T) {
	factory := &fakeFactory{newSession: func() *fakeSession {
		return &fakeSession{title: "t", panicOnHTML: true}
	}}
	task, metrics := newTestTask(testConfig(), nil, factory)

	out := task.Run(context.Background(), 2, "https://isotope.com/x")
	if out.Status != types.StatusFailed || !errors.Is(out.Err, types.ErrTaskPanic) {
		t.Fatalf("expected recovered panic, got %s %v", out.Status, out.Err)
	}
	if out.WorkerID != 2 {
		t.Errorf("worker id lost on panic path: %d", out.WorkerID)
	}
	if factory.sessions[0].closed.Load() != 1 {
		t.Error("session must be closed on panic")
	}
	if metrics.TasksPanicked.Load() != 1 {
		t.Error("expected panic counted")
	}
}

func TestTaskContentTimeoutTolerated(t *testing.T) {
	factory := &fakeFactory{newSession: func() *fakeSession {
		return &fakeSession{title: "t", htmls: []string{productPage}, waitAnyErr: context.DeadlineExceeded}
	}}
	task, _ := newTestTask(testConfig(), nil, factory)

	if out := task.Run(context.Background(), 1, "https://isotope.com/x"); out.Status != types.StatusSuccess {
		t.Fatalf("marker timeout should be tolerated, got %s", out.Status)
	}
}

func TestTaskRetriesDetailsFromFreshSnapshot(t *testing.T) {
	factory := &fakeFactory{newSession: sessionOf("t", "<html><body><h1>Loading...</h1></body></html>", productPage)}
	task, metrics := newTestTask(testConfig(), nil, factory)

	out := task.Run(context.Background(), 1, "https://isotope.com/x")
	if out.Status != types.StatusSuccess {
		t.Fatalf("expected success, got %s", out.Status)
	}
	if out.Product.CASLabeled != "110187-42-3" {
		t.Errorf("expected details from second snapshot, got %+v", out.Product)
	}
	if metrics.DetailsRetries.Load() != 1 {
		t.Errorf("expected 1 details retry, got %d", metrics.DetailsRetries.Load())
	}
	if factory.sessions[0].snapshots != 2 {
		t.Errorf("expected 2 snapshots, got %d", factory.sessions[0].snapshots)
	}
}

func TestTaskEmptyRecordIsSuccessAndDumped(t *testing.T) {
	cfg := testConfig()
	cfg.Output.DebugDir = t.TempDir()
	factory := &fakeFactory{newSession: sessionOf("t", "<html><body></body></html>")}
	task, metrics := newTestTask(cfg, nil, factory)

	out := task.Run(context.Background(), 1, "https://isotope.com/about")
	if out.Status != types.StatusSuccess {
		t.Fatalf("empty record should still succeed, got %s", out.Status)
	}
	if metrics.RecordsEmpty.Load() != 1 {
		t.Error("expected empty record counted")
	}
	entries, err := os.ReadDir(cfg.Output.DebugDir)
	if err != nil || len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "debug_page_1_") {
		t.Errorf("expected one debug page, got %v (%v)", entries, err)
	}
}

func TestSettleDelayBounds(t *testing.T) {
	tests := []struct {
		workers int
		lo, hi  time.Duration
	}{
		{2, 3 * time.Second, 6 * time.Second},
		{8, 3 * time.Second, 6 * time.Second},
		{9, 5 * time.Second, 10 * time.Second},
		{17, 8 * time.Second, 15 * time.Second},
	}
	for _, tt := range tests {
		for i := 0; i < 50; i++ {
			if d := SettleDelay(tt.workers, 1); d < tt.lo || d > tt.hi {
				t.Fatalf("workers=%d: %s outside [%s, %s]", tt.workers, d, tt.lo, tt.hi)
			}
		}
	}
	if d := SettleDelay(4, 0); d != 0 {
		t.Errorf("zero scale should give zero delay, got %s", d)
	}
}

// --- Collector Tests ---

func TestCollectorConcurrentAdd(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u := fmt.Sprintf("https://isotope.com/%d", i)
			switch i % 3 {
			case 0:
				c.Add(types.Success(types.NewProduct(u)))
			case 1:
				c.Add(types.Skipped(u, "not found"))
			default:
				c.Add(types.Failed(u, errors.New("boom")))
			}
			_ = c.Snapshot()
		}(i)
	}
	wg.Wait()

	r := c.Snapshot()
	if len(r.Products) != 34 || len(r.Skipped) != 33 || len(r.Failed) != 33 {
		t.Errorf("unexpected partition %d/%d/%d", len(r.Products), len(r.Skipped), len(r.Failed))
	}
	if r.Total() != 100 {
		t.Errorf("expected 100 outcomes, got %d", r.Total())
	}
}

// --- Coordinator Tests ---

type funcRunner func(ctx context.Context, workerID int, url string) types.Outcome

func (f funcRunner) Run(ctx context.Context, workerID int, url string) types.Outcome {
	return f(ctx, workerID, url)
}

// classifyBySuffix maps ".../ok-N" to Success, ".../skip-N" to Skipped and
// anything else to Failed.
func classifyBySuffix(ctx context.Context, workerID int, u string) types.Outcome {
	switch {
	case strings.Contains(u, "/ok-"):
		return types.Success(types.NewProduct(u))
	case strings.Contains(u, "/skip-"):
		return types.Skipped(u, ReasonProbeNotFound)
	default:
		return types.Failed(u, errors.New("boom"))
	}
}

func urlsOf(kinds ...string) []string {
	urls := make([]string, len(kinds))
	for i, k := range kinds {
		urls[i] = fmt.Sprintf("https://isotope.com/%s-%d", k, i)
	}
	return urls
}

func TestCoordinatorPartitionsEveryURL(t *testing.T) {
	cfg := testConfig()
	cfg.Scraper.Workers = 4
	metrics := observability.NewMetrics(testLogger())
	c := NewCoordinator(cfg, funcRunner(classifyBySuffix), metrics, testLogger())

	urls := urlsOf("ok", "skip", "fail", "ok", "ok", "skip", "fail", "ok", "ok", "ok")
	r, err := c.Run(context.Background(), urls)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(r.Products) != 6 || len(r.Skipped) != 2 || len(r.Failed) != 2 {
		t.Errorf("unexpected partition %d/%d/%d", len(r.Products), len(r.Skipped), len(r.Failed))
	}
	if r.Total() != len(urls) {
		t.Errorf("expected %d outcomes, got %d", len(urls), r.Total())
	}
	if metrics.TasksDispatched.Load() != int64(len(urls)) {
		t.Errorf("expected %d dispatched, got %d", len(urls), metrics.TasksDispatched.Load())
	}
}

func TestCoordinatorRecoversRunnerPanic(t *testing.T) {
	cfg := testConfig()
	cfg.Scraper.Workers = 1
	metrics := observability.NewMetrics(testLogger())

	urls := urlsOf("ok", "panic", "ok", "ok")
	runner := funcRunner(func(ctx context.Context, id int, u string) types.Outcome {
		if strings.Contains(u, "/panic-") {
			panic("nil page")
		}
		return types.Success(types.NewProduct(u))
	})
	c := NewCoordinator(cfg, runner, metrics, testLogger())

	r, err := c.Run(context.Background(), urls)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(r.Products) != 3 || len(r.Failed) != 1 {
		t.Fatalf("unexpected partition %d/%d/%d", len(r.Products), len(r.Skipped), len(r.Failed))
	}

	failed := r.Failed[0]
	if failed.URL != urls[1] {
		t.Errorf("failed URL = %q, want %q", failed.URL, urls[1])
	}
	if !errors.Is(failed.Err, types.ErrTaskPanic) {
		t.Errorf("expected ErrTaskPanic, got %v", failed.Err)
	}
	var te *types.TaskError
	if !errors.As(failed.Err, &te) || te.Stage != "worker" {
		t.Errorf("expected worker TaskError, got %v", failed.Err)
	}
	if metrics.TasksPanicked.Load() != 1 || metrics.TasksFailed.Load() != 1 {
		t.Errorf("panicked=%d failed=%d, want 1/1", metrics.TasksPanicked.Load(), metrics.TasksFailed.Load())
	}
	if metrics.ActiveWorkers.Load() != 0 {
		t.Errorf("active workers = %d after run", metrics.ActiveWorkers.Load())
	}
}

func TestCoordinatorCapKeepsOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Scraper.Workers = 1
	cfg.Scraper.MaxProducts = 3

	var mu sync.Mutex
	var seen []string
	runner := funcRunner(func(ctx context.Context, id int, u string) types.Outcome {
		mu.Lock()
		seen = append(seen, u)
		mu.Unlock()
		return types.Success(types.NewProduct(u))
	})

	urls := urlsOf("ok", "ok", "ok", "ok", "ok")
	c := NewCoordinator(cfg, runner, observability.NewMetrics(testLogger()), testLogger())
	r, _ := c.Run(context.Background(), urls)

	if r.Total() != 3 {
		t.Fatalf("expected 3 outcomes, got %d", r.Total())
	}
	for i, u := range seen {
		if u != urls[i] {
			t.Errorf("position %d: expected %s, got %s", i, urls[i], u)
		}
	}
}

func TestCoordinatorBoundsConcurrency(t *testing.T) {
	cfg := testConfig()
	cfg.Scraper.Workers = 3

	var active, peak atomic.Int32
	runner := funcRunner(func(ctx context.Context, id int, u string) types.Outcome {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return types.Success(types.NewProduct(u))
	})

	c := NewCoordinator(cfg, runner, observability.NewMetrics(testLogger()), testLogger())
	if _, err := c.Run(context.Background(), urlsOf("ok", "ok", "ok", "ok", "ok", "ok", "ok", "ok", "ok", "ok")); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 3 {
		t.Errorf("peak concurrency %d exceeds 3 workers", peak.Load())
	}
}

func TestCoordinatorCancelStopsDispatchOnly(t *testing.T) {
	cfg := testConfig()
	cfg.Scraper.Workers = 1

	ctx, cancel := context.WithCancel(context.Background())
	var inFlightCancelled atomic.Bool
	runner := funcRunner(func(taskCtx context.Context, id int, u string) types.Outcome {
		cancel()
		if taskCtx.Err() != nil {
			inFlightCancelled.Store(true)
		}
		return types.Success(types.NewProduct(u))
	})

	metrics := observability.NewMetrics(testLogger())
	c := NewCoordinator(cfg, runner, metrics, testLogger())
	urls := urlsOf("ok", "ok", "ok", "ok", "ok", "ok", "ok", "ok", "ok", "ok")
	r, err := c.Run(ctx, urls)
	if err != nil {
		t.Fatal(err)
	}

	if inFlightCancelled.Load() {
		t.Error("in-flight task context must not be cancelled")
	}
	dispatched := metrics.TasksDispatched.Load()
	if dispatched == 0 || dispatched > 2 {
		t.Errorf("expected dispatch to stop early, dispatched %d", dispatched)
	}
	if int64(r.Total()) != dispatched {
		t.Errorf("every dispatched URL needs an outcome: %d outcomes, %d dispatched", r.Total(), dispatched)
	}
}

func TestCoordinatorEmptyInput(t *testing.T) {
	c := NewCoordinator(testConfig(), funcRunner(classifyBySuffix), observability.NewMetrics(testLogger()), testLogger())
	r, err := c.Run(context.Background(), nil)
	if err != nil || r.Total() != 0 {
		t.Errorf("expected empty results, got %d (%v)", r.Total(), err)
	}
}

// --- Checkpoint Tests ---

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	cm := NewCheckpointManager(path, "run-1")

	p := types.NewProduct("https://isotope.com/ok-0")
	p.CASLabeled = "110187-42-3"
	in := types.Results{
		Products: []*types.Product{p},
		Skipped:  []types.Outcome{types.Skipped("https://isotope.com/skip-1", ReasonProbeNotFound)},
		Failed:   []types.Outcome{types.Failed("https://isotope.com/fail-2", errors.New("boom"))},
	}
	if err := cm.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !cm.HasCheckpoint() {
		t.Fatal("expected checkpoint on disk")
	}

	out, err := cm.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out.Products) != 1 || out.Products[0].CASLabeled != "110187-42-3" {
		t.Errorf("products not restored: %+v", out.Products)
	}
	if len(out.Skipped) != 1 || out.Skipped[0].Reason != ReasonProbeNotFound {
		t.Errorf("skipped not restored: %+v", out.Skipped)
	}
	if len(out.Failed) != 1 || out.Failed[0].Reason != "boom" {
		t.Errorf("failed not restored: %+v", out.Failed)
	}

	if err := cm.Clean(); err != nil || cm.HasCheckpoint() {
		t.Errorf("clean failed: %v", err)
	}
}

func TestCheckpointLoadMissing(t *testing.T) {
	cm := NewCheckpointManager(filepath.Join(t.TempDir(), "none.json"), "run")
	r, err := cm.Load()
	if err != nil || r.Total() != 0 {
		t.Errorf("missing checkpoint should be empty, got %d (%v)", r.Total(), err)
	}
}

func TestCoordinatorResumeSkipsClassifiedURLs(t *testing.T) {
	urls := urlsOf("ok", "skip", "fail", "ok")
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	prev := types.Results{
		Products: []*types.Product{types.NewProduct(urls[0])},
		Skipped:  []types.Outcome{types.Skipped(urls[1], ReasonProbeNotFound)},
		Failed:   []types.Outcome{types.Failed(urls[2], errors.New("boom"))},
	}
	if err := NewCheckpointManager(path, "old").Save(prev); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Scraper.Resume = true
	cfg.Scraper.CheckpointPath = path

	var mu sync.Mutex
	var ran []string
	runner := funcRunner(func(ctx context.Context, id int, u string) types.Outcome {
		mu.Lock()
		ran = append(ran, u)
		mu.Unlock()
		return types.Success(types.NewProduct(u))
	})

	c := NewCoordinator(cfg, runner, observability.NewMetrics(testLogger()), testLogger(),
		WithCheckpoint(NewCheckpointManager(path, "new")))
	r, err := c.Run(context.Background(), urls)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(ran) != 2 {
		t.Fatalf("expected only the failed and new URLs to run, ran %v", ran)
	}
	if len(r.Products) != 3 || len(r.Skipped) != 1 || len(r.Failed) != 0 {
		t.Errorf("unexpected merged partition %d/%d/%d", len(r.Products), len(r.Skipped), len(r.Failed))
	}

	saved, err := NewCheckpointManager(path, "check").Load()
	if err != nil || saved.Total() != 4 {
		t.Errorf("expected final checkpoint with 4 outcomes, got %d (%v)", saved.Total(), err)
	}
}

func TestCoordinatorResumeWithoutCheckpoint(t *testing.T) {
	urls := urlsOf("ok", "ok", "ok")
	path := filepath.Join(t.TempDir(), "missing.json")

	cfg := testConfig()
	cfg.Scraper.Resume = true
	cfg.Scraper.CheckpointPath = path

	var ran atomic.Int64
	runner := funcRunner(func(ctx context.Context, id int, u string) types.Outcome {
		ran.Add(1)
		return types.Success(types.NewProduct(u))
	})

	cm := NewCheckpointManager(path, "fresh")
	c := NewCoordinator(cfg, runner, observability.NewMetrics(testLogger()), testLogger(), WithCheckpoint(cm))
	r, err := c.Run(context.Background(), urls)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if ran.Load() != 3 || len(r.Products) != 3 {
		t.Errorf("expected every URL to run, ran %d, products %d", ran.Load(), len(r.Products))
	}
	if !cm.HasCheckpoint() {
		t.Error("expected final checkpoint to be written")
	}
}
