// Package engine runs product pages through a bounded pool of workers.
// Every dispatched URL ends as exactly one Success, Skipped or Failed outcome.
package engine

import (
	"context"
	"time"

	"github.com/IshaanNene/isoscrape/internal/fetcher"
	"github.com/IshaanNene/isoscrape/internal/retry"
	"github.com/IshaanNene/isoscrape/internal/types"
)

// Prober is the pre-render existence check.
type Prober interface {
	Probe(ctx context.Context, url string) fetcher.PageStatus
}

// Pipeline is the post-extraction record processor.
type Pipeline interface {
	Process(p *types.Product) (*types.Product, error)
}

// Runner processes one URL into an Outcome. Task is the production Runner.
type Runner interface {
	Run(ctx context.Context, workerID int, url string) types.Outcome
}

// Skip reasons.
const (
	ReasonProbeNotFound    = "not found (probe)"
	ReasonRenderedNotFound = "not found (rendered)"
)

// SettleDelay picks the post-navigation wait, longer for larger pools.
func SettleDelay(workers int, scale float64) time.Duration {
	var lo, hi time.Duration
	switch {
	case workers > 16:
		lo, hi = 8*time.Second, 15*time.Second
	case workers > 8:
		lo, hi = 5*time.Second, 10*time.Second
	default:
		lo, hi = 3*time.Second, 6*time.Second
	}
	return time.Duration(float64(retry.Jitter(lo, hi)) * scale)
}
