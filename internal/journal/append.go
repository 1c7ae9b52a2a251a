package journal

import (
	"context"
	"fmt"

	"github.com/synnergy-labs/slpindexer/internal/model"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

// Appender derives PoH for incoming records and appends them to the
// journal, serialised per spec.md §4.5's "exclusive lock for the duration
// of a block's parsing" rule. The lock itself lives with the caller (the
// BlockParser in internal/ingest); Appender just needs to be called
// strictly in (height, index) order.
type Appender struct {
	hash    HashFunc
	journal store.JournalStore
}

// NewAppender builds an Appender bound to the given hash algorithm and
// journal store.
func NewAppender(hash HashFunc, journal store.JournalStore) *Appender {
	return &Appender{hash: hash, journal: journal}
}

// Append computes rec's PoH, stores it on the record (legit stays unset;
// the contract engine flips it), and inserts it into the journal.
// Invariant J1 (uniqueness) is enforced by the underlying store.
func (a *Appender) Append(ctx context.Context, rec *model.Record) error {
	if rec.Legit != model.LegitUnset {
		return fmt.Errorf("journal: new records must start legit=unset")
	}
	poh, err := DerivePoH(ctx, a.hash, a.journal, rec)
	if err != nil {
		return fmt.Errorf("derive poh: %w", err)
	}
	rec.PoH = poh
	if err := a.journal.Append(ctx, rec); err != nil {
		return fmt.Errorf("append journal record: %w", err)
	}
	return nil
}
