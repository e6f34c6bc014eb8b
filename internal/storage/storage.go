package storage

import (
	"errors"
	"log/slog"

	"github.com/IshaanNene/isoscrape/internal/types"
)

// Storage is the interface for all product sinks.
type Storage interface {
	// Store persists a batch of products.
	Store(products []*types.Product) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes products to multiple backends. Failures are wrapped
// in StorageError with the backend's name.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

// Add appends a backend.
func (s *MultiStorage) Add(backend Storage) {
	s.backends = append(s.backends, backend)
}

// Len returns the number of backends.
func (s *MultiStorage) Len() int { return len(s.backends) }

// Store writes to every backend and reports all failures.
func (s *MultiStorage) Store(products []*types.Product) error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Store(products); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			errs = append(errs, &types.StorageError{Backend: backend.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

func (s *MultiStorage) Close() error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, &types.StorageError{Backend: backend.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}
