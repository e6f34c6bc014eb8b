package fetcher

import (
	"context"
	"time"
)

// Session is a single browser instance owned by exactly one task.
type Session interface {
	// Navigate loads the URL, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitReady blocks until document.readyState is "complete".
	WaitReady(ctx context.Context, timeout time.Duration) error

	// WaitAny blocks until any of the selectors is present in the DOM.
	WaitAny(ctx context.Context, selectors []string, timeout time.Duration) error

	// Title returns the current document title.
	Title(ctx context.Context) (string, error)

	// HTML returns the current rendered document.
	HTML(ctx context.Context) (string, error)

	// Close tears the browser down. It is safe to call more than once.
	Close() error
}

// SessionFactory creates a fresh, isolated Session.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}
