package types

import (
	"time"
)

// Status is the terminal classification of a scrape task.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of processing exactly one URL.
type Outcome struct {
	URL     string
	Status  Status
	Product *Product // set for StatusSuccess only
	Reason  string
	Err     error // set for StatusFailed only

	WorkerID int
	Duration time.Duration
}

// Success builds a success outcome for a product.
func Success(p *Product) Outcome {
	return Outcome{URL: p.URL, Status: StatusSuccess, Product: p}
}

// Skipped builds a skipped outcome.
func Skipped(url, reason string) Outcome {
	return Outcome{URL: url, Status: StatusSkipped, Reason: reason}
}

// Failed builds a failed outcome.
func Failed(url string, err error) Outcome {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return Outcome{URL: url, Status: StatusFailed, Reason: reason, Err: err}
}

// Results is a point-in-time copy of the three outcome partitions.
type Results struct {
	Products []*Product
	Skipped  []Outcome
	Failed   []Outcome
}

// Total returns the number of classified URLs.
func (r Results) Total() int {
	return len(r.Products) + len(r.Skipped) + len(r.Failed)
}

// SkippedURLs returns the URLs of all skipped outcomes.
func (r Results) SkippedURLs() []string {
	return outcomeURLs(r.Skipped)
}

// FailedURLs returns the URLs of all failed outcomes.
func (r Results) FailedURLs() []string {
	return outcomeURLs(r.Failed)
}

func outcomeURLs(outs []Outcome) []string {
	urls := make([]string, len(outs))
	for i, o := range outs {
		urls[i] = o.URL
	}
	return urls
}
