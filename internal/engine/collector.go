package engine

import (
	"sync"

	"github.com/IshaanNene/isoscrape/internal/types"
)

// Collector aggregates outcomes from concurrent workers.
type Collector struct {
	mu       sync.Mutex
	products []*types.Product
	skipped  []types.Outcome
	failed   []types.Outcome
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add files an outcome under its status.
func (c *Collector) Add(out types.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch out.Status {
	case types.StatusSuccess:
		c.products = append(c.products, out.Product)
	case types.StatusSkipped:
		c.skipped = append(c.skipped, out)
	default:
		c.failed = append(c.failed, out)
	}
}

// Restore seeds the collector with results from an earlier run.
func (c *Collector) Restore(r types.Results) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = append(c.products, r.Products...)
	c.skipped = append(c.skipped, r.Skipped...)
	c.failed = append(c.failed, r.Failed...)
}

// Snapshot returns a copy of the collected results. It is safe to call
// while workers are still adding.
func (c *Collector) Snapshot() types.Results {
	c.mu.Lock()
	defer c.mu.Unlock()

	return types.Results{
		Products: append([]*types.Product(nil), c.products...),
		Skipped:  append([]types.Outcome(nil), c.skipped...),
		Failed:   append([]types.Outcome(nil), c.failed...),
	}
}
