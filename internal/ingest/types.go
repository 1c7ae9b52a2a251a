// Package ingest implements the block intake pipeline (spec.md §4.5):
// webhook reception plus historical back-fill feeding one ordered FIFO
// block queue, a single-threaded BlockParser that holds an exclusive lock
// for the duration of a block so journal append and PoH derivation stay
// serial, and pre-acceptance field validation.
package ingest

import (
	"context"
	"encoding/json"
)

// Transaction is the base-layer collaborator's per-transfer shape this
// package needs: enough to recognise a standard transfer carrying a
// vendor-field SLP payload (spec.md §4.5).
type Transaction struct {
	Txid        string `json:"id"`
	Type        string `json:"type"`
	VendorField string `json:"vendorField"`
	Emitter     string `json:"sender"`
	Receiver    string `json:"recipient"`
	Amount      uint64 `json:"amount"`
}

// StandardTransferType is the base-layer transaction type the parser
// accepts vendor fields from (spec.md §4.5: "a type indicating a standard
// transfer").
const StandardTransferType = "transfer"

// Block is the base-layer collaborator's per-block shape.
type Block struct {
	Height               uint64        `json:"height"`
	Timestamp            int64         `json:"timestamp"`
	NumberOfTransactions int           `json:"numberOfTransactions"`
	Transactions         []Transaction `json:"transactions,omitempty"`
}

// BaseLayerClient is the external base-layer RPC collaborator (spec.md
// §1: "out of scope ... only their interfaces appear"). ParseImplemented
// by a real client elsewhere; this package only depends on the interface.
type BaseLayerClient interface {
	// FetchBlockTransactions returns every transaction of the block at
	// height from the given peer, paginated internally by the
	// implementation (spec.md §4.5).
	FetchBlockTransactions(ctx context.Context, peer string, height uint64) ([]Transaction, error)
	// ListBlocks returns base-layer blocks in ascending height order
	// starting at fromHeight, for the back-fill paginator (spec.md §4.5(ii)).
	ListBlocks(ctx context.Context, peer string, fromHeight uint64, pageSize int) ([]Block, error)
}

// WebhookEnvelope is the base-layer webhook body shape spec.md §6 names:
// `{timestamp, event, data}`.
type WebhookEnvelope struct {
	Timestamp int64           `json:"timestamp"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

// WebhookBlockEvent is the "block.applied" event's data payload: enough of
// a Block to enqueue, filtered by spec.md §4.5(i) to
// numberOfTransactions >= 1.
type WebhookBlockEvent struct {
	Height               uint64 `json:"height"`
	Timestamp            int64  `json:"timestamp"`
	NumberOfTransactions int    `json:"numberOfTransactions"`
}

const blockAppliedEvent = "block.applied"

// DecodeWebhookBlock parses a webhook body and extracts the block it
// announces, returning ok=false if the event is not block.applied or the
// block has no transactions (spec.md §4.5(i)'s subscription filter).
func DecodeWebhookBlock(body []byte) (Block, bool, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Block{}, false, err
	}
	if env.Event != blockAppliedEvent {
		return Block{}, false, nil
	}
	var ev WebhookBlockEvent
	if err := json.Unmarshal(env.Data, &ev); err != nil {
		return Block{}, false, err
	}
	if ev.NumberOfTransactions < 1 {
		return Block{}, false, nil
	}
	return Block{Height: ev.Height, Timestamp: ev.Timestamp, NumberOfTransactions: ev.NumberOfTransactions}, true, nil
}
