package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/IshaanNene/isoscrape/internal/types"
)

// CheckpointManager saves and loads collected outcomes so an interrupted
// run can resume.
type CheckpointManager struct {
	path  string
	runID string
}

// checkpointData is the serializable run state.
type checkpointData struct {
	RunID     string              `json:"run_id"`
	Timestamp time.Time           `json:"timestamp"`
	Products  []*types.Product    `json:"products"`
	Skipped   []checkpointOutcome `json:"skipped"`
	Failed    []checkpointOutcome `json:"failed"`
}

type checkpointOutcome struct {
	URL    string `json:"url"`
	Reason string `json:"reason,omitempty"`
}

// NewCheckpointManager creates a manager writing to path.
func NewCheckpointManager(path, runID string) *CheckpointManager {
	return &CheckpointManager{path: path, runID: runID}
}

// Path returns the checkpoint file location.
func (cm *CheckpointManager) Path() string { return cm.path }

// Save serializes the results to disk.
func (cm *CheckpointManager) Save(r types.Results) error {
	if dir := filepath.Dir(cm.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data := checkpointData{
		RunID:     cm.runID,
		Timestamp: time.Now(),
		Products:  r.Products,
		Skipped:   toCheckpointOutcomes(r.Skipped),
		Failed:    toCheckpointOutcomes(r.Failed),
	}

	// Write to temp file, then rename (atomic write)
	tmpPath := cm.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create checkpoint file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close checkpoint file: %w", err)
	}

	if err := os.Rename(tmpPath, cm.path); err != nil {
		return fmt.Errorf("rename checkpoint file: %w", err)
	}
	return nil
}

// Load reads a checkpoint. A missing file yields empty results and no error.
func (cm *CheckpointManager) Load() (types.Results, error) {
	f, err := os.Open(cm.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.Results{}, nil
		}
		return types.Results{}, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()

	var data checkpointData
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return types.Results{}, fmt.Errorf("decode checkpoint: %w", err)
	}

	r := types.Results{Products: data.Products}
	for _, o := range data.Skipped {
		r.Skipped = append(r.Skipped, types.Skipped(o.URL, o.Reason))
	}
	for _, o := range data.Failed {
		r.Failed = append(r.Failed, types.Failed(o.URL, errors.New(o.Reason)))
	}
	return r, nil
}

// HasCheckpoint returns true if a checkpoint file exists.
func (cm *CheckpointManager) HasCheckpoint() bool {
	_, err := os.Stat(cm.path)
	return err == nil
}

// Clean removes the checkpoint file.
func (cm *CheckpointManager) Clean() error {
	if err := os.Remove(cm.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func toCheckpointOutcomes(outs []types.Outcome) []checkpointOutcome {
	res := make([]checkpointOutcome, len(outs))
	for i, o := range outs {
		res[i] = checkpointOutcome{URL: o.URL, Reason: o.Reason}
	}
	return res
}
