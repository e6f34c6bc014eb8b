package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/types"
)

// TimestampLayout is the generation timestamp embedded in every output name.
const TimestampLayout = "20060102_150405"

// Report describes what a Write produced.
type Report struct {
	Timestamp string
	Files     []string
	Summary   Summary
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSink adds a non-file product sink such as MongoDB.
func WithSink(s Storage) WriterOption {
	return func(w *Writer) { w.sinks.Add(s) }
}

// WithClock overrides the time source used for file names.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// Writer persists a run's final results.
type Writer struct {
	cfg    *config.OutputConfig
	sinks  *MultiStorage
	now    func() time.Time
	logger *slog.Logger
}

// NewWriter creates a result writer for the given output settings.
func NewWriter(cfg *config.OutputConfig, logger *slog.Logger, opts ...WriterOption) *Writer {
	w := &Writer{
		cfg:    cfg,
		sinks:  NewMultiStorage(nil, logger),
		now:    time.Now,
		logger: logger.With("component", "writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write serializes products to every configured format and writes the skip
// and fail lists. With zero products no tabular file is created. Errors from
// individual outputs are collected and returned together.
func (w *Writer) Write(ctx context.Context, results types.Results) (*Report, error) {
	ts := w.now().Format(TimestampLayout)
	report := &Report{
		Timestamp: ts,
		Summary:   Summarize(results),
	}

	var errs []error

	if len(results.Products) == 0 {
		w.logger.Warn("no products collected, skipping tabular output")
	} else {
		for _, format := range w.cfg.Formats {
			format = strings.ToLower(strings.TrimSpace(format))
			path := w.path(w.cfg.Prefix+"_"+ts, Extension(format))
			if err := w.writeFormat(format, path, results.Products); err != nil {
				errs = append(errs, &types.StorageError{Backend: format, Path: path, Err: err})
				continue
			}
			report.Files = append(report.Files, path)
		}

		if w.sinks.Len() > 0 {
			if err := ctx.Err(); err != nil {
				errs = append(errs, &types.StorageError{Backend: w.sinks.Name(), Err: err})
			} else if err := w.sinks.Store(results.Products); err != nil {
				errs = append(errs, err)
			}
		}
	}

	lists := []struct {
		name string
		urls []string
	}{
		{"skipped_urls", results.SkippedURLs()},
		{"failed_urls", results.FailedURLs()},
	}
	for _, l := range lists {
		if len(l.urls) == 0 {
			continue
		}
		path := w.path(l.name+"_"+ts, ".txt")
		if err := writeLines(path, l.urls); err != nil {
			errs = append(errs, &types.StorageError{Backend: "text", Path: path, Err: err})
			continue
		}
		report.Files = append(report.Files, path)
	}

	w.logger.Info("results written",
		"products", len(results.Products),
		"skipped", len(results.Skipped),
		"failed", len(results.Failed),
		"files", len(report.Files),
	)

	return report, errors.Join(errs...)
}

// Close releases every sink.
func (w *Writer) Close() error {
	return w.sinks.Close()
}

func (w *Writer) path(base, ext string) string {
	dir := w.cfg.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, base+ext)
}

func (w *Writer) writeFormat(format, path string, products []*types.Product) error {
	s, err := NewFileStorage(format, path, w.logger)
	if err != nil {
		return err
	}
	if err := s.Store(products); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

func writeLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	for _, line := range lines {
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
