package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/parser"
	"github.com/IshaanNene/isoscrape/internal/types"
)

// PageStatus is the result of a cheap existence check.
type PageStatus string

const (
	StatusOK       PageStatus = "ok"
	StatusNotFound PageStatus = "not_found"
	StatusError    PageStatus = "error"
	StatusUnknown  PageStatus = "unknown"
)

// StatusProber classifies URLs with a HEAD request before a browser is launched.
type StatusProber struct {
	client    *http.Client
	cfg       *config.ProberConfig
	userAgent string
	logger    *slog.Logger
}

// NewStatusProber creates a prober. proxyMgr may be nil.
func NewStatusProber(cfg *config.Config, proxyMgr *ProxyManager, logger *slog.Logger) *StatusProber {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Prober.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.Scraper.Workers + 1,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.Prober.Timeout,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		DisableCompression:  true, // decoded by hand, including brotli
	}
	if proxyMgr != nil && proxyMgr.Count() > 0 {
		transport.Proxy = proxyMgr.ProxyFunc()
	}

	return &StatusProber{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Prober.Timeout,
		},
		cfg:       &cfg.Prober,
		userAgent: cfg.Browser.UserAgent,
		logger:    logger.With("component", "status_prober"),
	}
}

// Probe checks a URL. It never fails: transport errors map to StatusUnknown.
func (p *StatusProber) Probe(ctx context.Context, rawURL string) PageStatus {
	method := http.MethodHead
	if p.cfg.InspectBody {
		method = http.MethodGet
	}

	code, title, err := p.do(ctx, method, rawURL)
	if err == nil && method == http.MethodHead &&
		(code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented) {
		code, title, err = p.do(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		p.logger.Debug("probe transport error", "error", &types.ProbeError{URL: rawURL, Err: err})
		return StatusUnknown
	}

	status := Classify(code, title)
	p.logger.Debug("probe complete", "url", rawURL, "code", code, "status", status)
	return status
}

// Close releases idle connections.
func (p *StatusProber) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Classify maps a response status code and optional page title to a PageStatus.
func Classify(code int, title string) PageStatus {
	switch {
	case code == http.StatusNotFound:
		return StatusNotFound
	case code >= 400:
		return StatusError
	case code == http.StatusOK:
		if title != "" && parser.IsNotFoundTitle(title) {
			return StatusNotFound
		}
		return StatusOK
	default:
		return StatusUnknown
	}
}

// do performs one request and returns the status code and, for inspected GETs, the page title.
func (p *StatusProber) do(ctx context.Context, method, rawURL string) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if method == http.MethodGet && p.cfg.InspectBody {
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if method != http.MethodGet || !p.cfg.InspectBody || resp.StatusCode != http.StatusOK {
		return resp.StatusCode, "", nil
	}

	var reader io.Reader = resp.Body
	if p.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, p.cfg.MaxBodySize)
	}
	reader, err = decompressReader(resp, reader)
	if err != nil {
		return resp.StatusCode, "", nil
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		// Status alone is still a usable answer.
		return resp.StatusCode, "", nil
	}
	return resp.StatusCode, strings.TrimSpace(doc.Find("title").First().Text()), nil
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}
