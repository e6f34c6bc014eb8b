package pipeline

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/IshaanNene/isoscrape/internal/types"
)

// Middleware processes a product record after extraction.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a record in place or returns a replacement.
	Process(p *types.Product) (*types.Product, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the pipeline every scrape runs: whitespace cleanup, then
// CAS check-digit validation. Extracted text is already decoded, so values
// are never re-parsed as markup.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewCASCheckMiddleware(logger))
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the record through all middleware in order. Records are never
// dropped; a middleware that returns nil without an error is a bug.
func (p *Pipeline) Process(product *types.Product) (*types.Product, error) {
	current := product

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.TaskError{URL: product.URL, Stage: "pipeline/" + mw.Name(), Err: err}
		}
		if result == nil {
			return nil, &types.TaskError{URL: product.URL, Stage: "pipeline/" + mw.Name(), Err: errNilProduct}
		}
		current = result
	}

	return current, nil
}

var errNilProduct = errors.New("middleware returned no product")

// --- Built-in Middleware ---

// TrimMiddleware collapses whitespace in every column.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(p *types.Product) (*types.Product, error) {
	for _, col := range types.ProductColumns {
		if s := p.Get(col); s != "" {
			p.Set(col, strings.Join(strings.Fields(s), " "))
		}
	}
	return p, nil
}
