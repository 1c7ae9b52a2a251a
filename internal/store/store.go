// Package store defines the document-store boundary the journal, engine
// and ingest packages are written against. The document database driver
// itself is an external collaborator (spec.md §1) — only this interface
// and an in-memory reference implementation (for tests and for running
// the replay engine standalone) live here.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/synnergy-labs/slpindexer/internal/model"
)

// Collections is the full set of persisted stores spec.md §6 names:
// journal, contracts, slp1, slp2, rejected, plus the processing mark.
type Collections interface {
	Journal() JournalStore
	Contracts() ContractStore
	SLP1() SLP1Store
	SLP2() SLP2Store
	Rejected() RejectedStore
	Mark() MarkStore
}

// JournalStore holds append-only Records, unique on (height, index).
type JournalStore interface {
	// Append inserts rec. It fails if (rec.Height, rec.Index) already
	// exists (invariant J1).
	Append(ctx context.Context, rec *model.Record) error
	// SetLegit performs the compare-and-set transition unset -> true|false
	// described in spec.md Design Notes: at-most-once via a store-level
	// constraint, not a handler-side check.
	SetLegit(ctx context.Context, height uint64, index uint16, legit model.Legit, comment string, poh []byte) error
	// Get fetches a single record by blockstamp.
	Get(ctx context.Context, height uint64, index uint16) (*model.Record, bool, error)
	// LastLegitPoH returns the PoH of the most recently appended record in
	// family with legit == true, or nil if none exists yet (spec.md §4.3:
	// records with legit != true are skipped for chaining).
	LastLegitPoH(ctx context.Context, family model.Family) ([]byte, error)
	// All returns every record in (height, index) order, for replay/tests.
	All(ctx context.Context) ([]*model.Record, error)
}

// ContractStore holds Contracts, unique on TokenID.
type ContractStore interface {
	Insert(ctx context.Context, c *model.Contract) error
	Get(ctx context.Context, tokenID string) (*model.Contract, bool, error)
	Update(ctx context.Context, c *model.Contract) error
}

// SLP1Store holds SLP1Wallets, unique on (Address, TokenID).
type SLP1Store interface {
	Get(ctx context.Context, address, tokenID string) (*model.SLP1Wallet, bool, error)
	Upsert(ctx context.Context, w *model.SLP1Wallet) error
	ByToken(ctx context.Context, tokenID string) ([]*model.SLP1Wallet, error)
}

// SLP2Store holds SLP2Wallets, unique on (Address, TokenID).
type SLP2Store interface {
	Get(ctx context.Context, address, tokenID string) (*model.SLP2Wallet, bool, error)
	Upsert(ctx context.Context, w *model.SLP2Wallet) error
	Delete(ctx context.Context, address, tokenID string) error
	ByToken(ctx context.Context, tokenID string) ([]*model.SLP2Wallet, error)
}

// RejectedStore holds copies of Records that failed engine checks,
// unique on (height, index).
type RejectedStore interface {
	Insert(ctx context.Context, r *model.Rejected) error
	ByToken(ctx context.Context, tokenID string) ([]*model.Rejected, error)
}

// MarkStore persists the single processing mark (spec.md §3).
type MarkStore interface {
	Get(ctx context.Context) (*model.ProcessingMark, error)
	Set(ctx context.Context, m *model.ProcessingMark) error
}

// Memory is an in-memory Collections implementation satisfying the same
// unique-index invariants a document store would enforce. It is the
// reference store used by tests and standalone replay.
type Memory struct {
	mu        sync.Mutex
	journal   map[string]*model.Record // key: "H#I"
	order     []string                 // insertion order, already height/index ascending
	contracts map[string]*model.Contract
	slp1      map[string]*model.SLP1Wallet // key: "address|tokenId"
	slp2      map[string]*model.SLP2Wallet
	rejected  map[string]*model.Rejected
	mark      *model.ProcessingMark
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		journal:   make(map[string]*model.Record),
		contracts: make(map[string]*model.Contract),
		slp1:      make(map[string]*model.SLP1Wallet),
		slp2:      make(map[string]*model.SLP2Wallet),
		rejected:  make(map[string]*model.Rejected),
	}
}

func stampKey(h uint64, i uint16) string { return fmt.Sprintf("%d#%d", h, i) }
func walletKey(address, tokenID string) string { return address + "|" + tokenID }

func (m *Memory) Journal() JournalStore     { return (*memJournal)(m) }
func (m *Memory) Contracts() ContractStore  { return (*memContracts)(m) }
func (m *Memory) SLP1() SLP1Store           { return (*memSLP1)(m) }
func (m *Memory) SLP2() SLP2Store           { return (*memSLP2)(m) }
func (m *Memory) Rejected() RejectedStore   { return (*memRejected)(m) }
func (m *Memory) Mark() MarkStore           { return (*memMark)(m) }
