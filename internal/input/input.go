// Package input loads the list of product URLs to scrape.
package input

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/types"
)

// DefaultURLs is used when no input file is configured. The last two pages
// no longer exist and exercise the skip path.
var DefaultURLs = []string{
	"https://isotope.com/carbohydrates/d-glucose-1-13c-6-13c-6-6-d2-cdlm-4895",
	"https://isotope.com/minimal-media-reagents/d-glucose-u-13c6-clm-1396-1",
	"https://isotope.com/dimethyl-sulfoxide-d6-dlm-10-10",
	"https://isotope.com/amino-acids/free-amino-acids/l-alanine-1-13c-clm-116-pk",
	"https://isotope.com/chloroform-d-dlm-7-10",
	"https://isotope.com/methanol-d4-dlm-24-10",
}

// Load returns the URLs in path, or DefaultURLs when path is empty. Blank
// and non-http(s) entries are dropped with a warning.
func Load(path string, logger *slog.Logger) ([]string, error) {
	logger = logger.With("component", "input")

	var raw []string
	if path == "" {
		raw = append(raw, DefaultURLs...)
		logger.Info("using built-in URL list", "count", len(raw))
	} else {
		var err error
		raw, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded URLs from file", "path", path, "count", len(raw))
	}

	urls := Sanitize(raw, logger)
	if len(urls) == 0 {
		return nil, types.ErrNoInput
	}
	return urls, nil
}

// LoadFile reads a .json file (array of strings or of objects with a "url"
// key) or a newline-delimited text file.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		urls, err := ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return urls, nil
	}
	return ParseText(bytes.NewReader(data))
}

// ParseJSON decodes an array whose elements are URL strings or objects
// carrying a "url" key. Elements of any other shape are ignored.
func ParseJSON(data []byte) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("expected a JSON array: %w", err)
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			urls = append(urls, s)
			continue
		}
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.URL != "" {
			urls = append(urls, obj.URL)
		}
	}
	return urls, nil
}

// ParseText reads one URL per line, skipping blank lines and # comments.
func ParseText(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input lines: %w", err)
	}
	return urls, nil
}

// Sanitize trims entries and drops the ones that are not absolute http(s)
// URLs. Order and duplicates are kept.
func Sanitize(raw []string, logger *slog.Logger) []string {
	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		u = strings.TrimSpace(u)
		if err := config.ValidateURL(u); err != nil {
			logger.Warn("dropping input entry", "entry", u, "error", err)
			continue
		}
		urls = append(urls, u)
	}
	return urls
}
