package update

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

const (
	recordFileName = "update-in-progress.json"
	staleAfter     = 10 * time.Minute
)

// Record marks a relay that has left the first generation but whose final
// generation has not yet reported back.
type Record struct {
	StartedAt   time.Time `json:"started_at"`
	FromPath    string    `json:"from_path"`
	FromVersion string    `json:"from_version"`
	ToPath      string    `json:"to_path"`
	ToVersion   string    `json:"to_version"`
	StatusFile  string    `json:"status_file,omitempty"`
}

// RecordPath returns the path of the record inside stateDir.
func RecordPath(stateDir string) string {
	return filepath.Join(stateDir, recordFileName)
}

// LoadRecord reads the in-flight record. A missing file yields nil, nil.
func LoadRecord(stateDir string) (*Record, error) {
	data, err := os.ReadFile(RecordPath(stateDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveRecord writes rec, creating stateDir as needed.
func SaveRecord(stateDir string, rec *Record) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(RecordPath(stateDir), data, 0o644)
}

// ClearRecord removes the record; a missing one is not an error.
func ClearRecord(stateDir string) error {
	err := os.Remove(RecordPath(stateDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// IsStale is true when the relay should long since have finished, i.e. an
// earlier update was interrupted.
func (r *Record) IsStale(now time.Time) bool {
	return now.Sub(r.StartedAt) >= staleAfter
}
