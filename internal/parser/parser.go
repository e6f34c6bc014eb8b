// Package parser turns a rendered product page into a types.Product.
package parser

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a snapshot of a rendered page. The parsed views are built
// lazily and at most once.
type Document struct {
	URL   string
	Title string
	HTML  string

	queryOnce sync.Once
	query     *goquery.Document
	queryErr  error

	nodeOnce sync.Once
	node     *html.Node
	nodeErr  error
}

// NewDocument creates a snapshot from the page URL, title and markup.
func NewDocument(pageURL, title, markup string) *Document {
	return &Document{URL: pageURL, Title: title, HTML: markup}
}

// Query returns the goquery view of the document.
func (d *Document) Query() (*goquery.Document, error) {
	d.queryOnce.Do(func() {
		d.query, d.queryErr = goquery.NewDocumentFromReader(strings.NewReader(d.HTML))
	})
	return d.query, d.queryErr
}

// Node returns the x/net/html tree of the document.
func (d *Document) Node() (*html.Node, error) {
	d.nodeOnce.Do(func() {
		d.node, d.nodeErr = html.Parse(strings.NewReader(d.HTML))
	})
	return d.node, d.nodeErr
}

// IsNotFoundTitle reports whether a page title marks a missing product.
func IsNotFoundTitle(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "not found") || strings.Contains(t, "page cannot be found")
}

// cleanText collapses runs of whitespace and trims the result.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
