// Package consensus implements the PoH gossip consensus of spec.md §4.7:
// a pending-quorum table keyed by blockstamp, consensus/consent message
// handling, and bounded forwarding. It replaces the teacher corpus's
// global mutable consensus-job map with an explicit Table value the node
// composition root owns and passes by reference into workers
// (SPEC_FULL.md Design Notes §9).
package consensus

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/synnergy-labs/slpindexer/internal/gossip"
	"github.com/synnergy-labs/slpindexer/internal/journal"
	"github.com/synnergy-labs/slpindexer/internal/model"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

// Pending is a PoH ratification in progress for one blockstamp (spec.md
// §4.7 "Consensus(poh, callback)").
type Pending struct {
	PoH      []byte
	Quorum   int
	Callback func()
	fired    bool
}

// Table is the guarded map of pending consensus entries (spec.md §5's
// "Consensus.JOB (map; guarded by a mutex; insert/increment/trigger are
// atomic under that mutex)").
type Table struct {
	mu      sync.Mutex
	entries map[string]*Pending
}

// NewTable builds an empty pending table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*Pending)}
}

// Bind registers a pending consensus for blockstamp with the record's
// already-computed PoH, to be ratified as peer consents arrive.
func (t *Table) Bind(blockstamp string, poh []byte, callback func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[blockstamp] = &Pending{PoH: poh, Callback: callback}
}

// ConsensusMessage is the `{"consensus": {...}}` gossip primitive of
// spec.md §4.7, broadcast by the node that wants a record ratified.
type ConsensusMessage struct {
	Origin     string `json:"origin"`
	Blockstamp string `json:"blockstamp"`
	Hash       string `json:"hash"`
	// N and X are the origin-pinned peer count and the hop-visit counter
	// that bound forwarding (spec.md §4.7, SPEC_FULL.md Open Question #5):
	// n is fixed at broadcast time and never recomputed by a forwarder.
	N int `json:"n"`
	X int `json:"x"`
}

// ConsentMessage is the unicast reply of spec.md §4.7:
// `{"consent": {"blockstamp":"H#I","poh":POH}}`.
type ConsentMessage struct {
	Blockstamp string `json:"blockstamp"`
	PoH        string `json:"poh"`
}

// Broadcast computes rec's canonical-field hash, binds a pending entry
// keyed by its blockstamp, and enqueues the consensus message to every
// known peer (spec.md §4.7). n is pinned to the peer count at broadcast
// time, as SPEC_FULL.md Open Question #5 resolves.
func Broadcast(table *Table, broadcaster *gossip.Broadcaster, hash journal.HashFunc, originURL string, peers []string, rec *model.Record, callback func()) error {
	seed, err := journal.CanonicalSeed(rec)
	if err != nil {
		return fmt.Errorf("canonicalize record for consensus: %w", err)
	}
	fieldHash := hash(seed)
	stamp := rec.Stamp().String()
	table.Bind(stamp, rec.PoH, callback)

	msg := struct {
		Consensus ConsensusMessage `json:"consensus"`
	}{Consensus: ConsensusMessage{
		Origin: originURL, Blockstamp: stamp, Hash: hex.EncodeToString(fieldHash),
		N: len(peers), X: 0,
	}}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal consensus message: %w", err)
	}
	broadcaster.Enqueue(gossip.BroadcastJob{Body: body, Peers: peers})
	return nil
}

// HandleConsensus is the peer-side receipt of a consensus message
// (spec.md §4.7): look up the local record at the referenced blockstamp,
// and if synced to it, compute the chained PoH and unicast a consent back
// to origin; otherwise forward, bounded by N/X, to a random other peer.
func HandleConsensus(ctx context.Context, hash journal.HashFunc, journalStore store.JournalStore, transport gossip.Transport, registry *gossip.Registry, selfURL string, raw json.RawMessage) error {
	var msg ConsensusMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("parse consensus message: %w", err)
	}
	var height uint64
	var index uint16
	if _, err := fmt.Sscanf(msg.Blockstamp, "%d#%d", &height, &index); err != nil {
		return fmt.Errorf("parse blockstamp %q: %w", msg.Blockstamp, err)
	}

	rec, ok, err := journalStore.Get(ctx, height, index)
	if err != nil {
		return fmt.Errorf("lookup record %s: %w", msg.Blockstamp, err)
	}
	if !ok {
		return forward(ctx, transport, registry, selfURL, msg)
	}

	prev, err := journalStore.LastLegitPoH(ctx, rec.SlpType)
	if err != nil {
		return fmt.Errorf("lookup previous poh: %w", err)
	}
	msgHash, err := hex.DecodeString(msg.Hash)
	if err != nil {
		return fmt.Errorf("decode consensus hash: %w", err)
	}
	combined := append(append([]byte{}, prev...), msgHash...)
	poh := hash(combined)

	consent := struct {
		Consent ConsentMessage `json:"consent"`
	}{Consent: ConsentMessage{Blockstamp: msg.Blockstamp, PoH: hex.EncodeToString(poh)}}
	body, err := json.Marshal(consent)
	if err != nil {
		return fmt.Errorf("marshal consent message: %w", err)
	}
	return transport.PostMessage(ctx, msg.Origin, body)
}

// forward re-broadcasts a consensus message this node cannot yet answer
// to one random other peer, bounded by the origin-pinned N and the
// visit-counter X (spec.md §4.7: "its termination relies on x < n").
func forward(ctx context.Context, transport gossip.Transport, registry *gossip.Registry, selfURL string, msg ConsensusMessage) error {
	if msg.X >= msg.N {
		return nil
	}
	candidates := make([]string, 0)
	for _, p := range registry.List() {
		if p != selfURL {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	next := candidates[rand.Intn(len(candidates))]
	msg.X++
	body, err := json.Marshal(struct {
		Consensus ConsensusMessage `json:"consensus"`
	}{Consensus: msg})
	if err != nil {
		return fmt.Errorf("marshal forwarded consensus message: %w", err)
	}
	return transport.PostMessage(ctx, next, body)
}

// HandleConsent processes an inbound consent, incrementing the pending
// entry's quorum iff the consent's PoH matches, and firing the bound
// callback exactly once the quorum reaches ⌈|PEERS|/2⌉ (spec.md §4.7,
// §8 "fires iff at least ⌈|PEERS|/2⌉ peers respond with the same PoH").
func HandleConsent(table *Table, peerCount int, raw json.RawMessage) error {
	var msg ConsentMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("parse consent message: %w", err)
	}
	poh, err := hex.DecodeString(msg.PoH)
	if err != nil {
		return fmt.Errorf("decode consent poh: %w", err)
	}

	table.mu.Lock()
	pending, ok := table.entries[msg.Blockstamp]
	if !ok || pending.fired {
		table.mu.Unlock()
		return nil
	}
	if !bytes.Equal(poh, pending.PoH) {
		table.mu.Unlock()
		return nil
	}
	pending.Quorum++
	threshold := int(math.Ceil(float64(peerCount) / 2))
	fire := pending.Quorum >= threshold
	var cb func()
	if fire {
		pending.fired = true
		cb = pending.Callback
		delete(table.entries, msg.Blockstamp)
	}
	table.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}
