package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/synnergy-labs/slpindexer/internal/model"
)

// MarkFile persists the "{database_name}.mark" processing mark (spec.md
// §3, §6) that drives back-fill restart, writing through a temp-file-then-
// rename so a crash mid-write never leaves a half-written mark behind for
// the next restart to read.
type MarkFile struct {
	path string
}

// NewMarkFile builds a MarkFile rooted at "{dir}/{databaseName}.mark".
func NewMarkFile(dir, databaseName string) *MarkFile {
	return &MarkFile{path: fmt.Sprintf("%s/%s.mark", dir, databaseName)}
}

// Load reads the mark, returning the zero mark if the file does not yet
// exist (a fresh node with no prior back-fill progress).
func (m *MarkFile) Load() (*model.ProcessingMark, error) {
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return &model.ProcessingMark{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mark file: %w", err)
	}
	var mark model.ProcessingMark
	if err := json.Unmarshal(raw, &mark); err != nil {
		return nil, fmt.Errorf("parse mark file: %w", err)
	}
	return &mark, nil
}

// Save atomically rewrites the mark file: marshal to a temp file in the
// same directory, then rename over the target, which is atomic on the
// same filesystem.
func (m *MarkFile) Save(mark *model.ProcessingMark) error {
	raw, err := json.Marshal(mark)
	if err != nil {
		return fmt.Errorf("marshal mark: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write temp mark file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("rename mark file into place: %w", err)
	}
	return nil
}
