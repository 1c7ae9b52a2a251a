package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/synnergy-labs/slpindexer/internal/model"
)

// UnvalidatedDump appends field-bags that failed pre-acceptance validation
// to "unvalidated.{slp_type}" (spec.md §6/§7b), one JSON line per record,
// opened lazily per slp_type so a network that never sees SLP2 traffic
// never creates an SLP2 dump file.
type UnvalidatedDump struct {
	dir string

	mu    sync.Mutex
	files map[model.Family]*os.File
}

// NewUnvalidatedDump builds a dump writer rooted at dir.
func NewUnvalidatedDump(dir string) *UnvalidatedDump {
	return &UnvalidatedDump{dir: dir, files: make(map[model.Family]*os.File)}
}

// Append writes rec plus the failing reason to the dump file for
// rec.SlpType, opening it if this is the first failure seen for that
// family.
func (u *UnvalidatedDump) Append(rec *model.Record, reason string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	f, ok := u.files[rec.SlpType]
	if !ok {
		path := fmt.Sprintf("%s/unvalidated.%s", u.dir, rec.SlpType)
		var err error
		f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open unvalidated dump %s: %w", path, err)
		}
		u.files[rec.SlpType] = f
	}

	entry := struct {
		Reason string       `json:"reason"`
		Record *model.Record `json:"record"`
	}{Reason: reason, Record: rec}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal unvalidated entry: %w", err)
	}
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("write unvalidated entry: %w", err)
	}
	return nil
}

// Close closes every file this dump has opened.
func (u *UnvalidatedDump) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	var firstErr error
	for _, f := range u.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
