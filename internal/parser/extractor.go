package parser

import (
	"log/slog"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/types"
)

// Extractor runs every field extractor over a page snapshot.
type Extractor struct {
	site   config.SiteConfig
	logger *slog.Logger
}

// NewExtractor creates an Extractor for the configured site.
func NewExtractor(site config.SiteConfig, logger *slog.Logger) *Extractor {
	return &Extractor{
		site:   site,
		logger: logger.With("component", "extractor"),
	}
}

// Extract builds a record from the snapshot. The details primary pass runs
// first; the source regex pass runs only when it found neither CAS number.
func (e *Extractor) Extract(doc *Document) *types.Product {
	p := types.NewProduct(doc.URL)
	p.PageTitle = doc.Title
	p.Name = ExtractName(doc, e.site.VendorName)
	p.ProductNumber = ProductNumber(doc.URL)
	p.ImageURL = ExtractImage(doc, e.site.Origin, e.site.ImagePathSegment)
	p.Description = ExtractDescription(doc)

	primary := ExtractDetails(doc, p)
	secondary := 0
	if p.CASLabeled == "" && p.CASUnlabeled == "" {
		secondary = ExtractDetailsFromSource(doc.HTML, p)
	}

	e.logger.Debug("fields extracted",
		"url", doc.URL,
		"details", primary,
		"from_source", secondary,
	)
	return p
}

// NeedsRetry reports whether the details should be read again from a
// fresh snapshot.
func NeedsRetry(p *types.Product) bool {
	return !p.HasDetails()
}

// Retry reruns the details primary pass over a fresh snapshot. Existing
// values are kept.
func (e *Extractor) Retry(doc *Document, p *types.Product) int {
	n := ExtractDetails(doc, p)
	e.logger.Debug("details retry", "url", doc.URL, "filled", n)
	return n
}
