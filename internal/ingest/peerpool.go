package ingest

import (
	"math/rand"
	"sync"

	"github.com/synnergy-labs/slpindexer/internal/errs"
)

// PeerPool is the BlockParser's candidate set of base-layer API peers
// (spec.md §7d/e): the peer in use is dropped on an IntegrityBreach or
// PeerRPCFailure and a new one is chosen at random; the set is rebuilt
// from the configured seed list once it shrinks to <=1 (spec.md §7e).
type PeerPool struct {
	mu      sync.Mutex
	seed    []string
	current []string
	rand    *rand.Rand
}

// NewPeerPool seeds the pool from the network config's "api peer" list.
func NewPeerPool(seed []string, src rand.Source) *PeerPool {
	p := &PeerPool{seed: append([]string{}, seed...), rand: rand.New(src)}
	p.current = append([]string{}, seed...)
	return p
}

// Current returns the peer presently in use: the head of the candidate
// set, which is the first seed peer until a Drop reshuffles the set. An
// empty set is rebuilt from the seed list in random order first.
func (p *PeerPool) Current() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.current) == 0 {
		p.rebuildLocked()
	}
	if len(p.current) == 0 {
		return "", errs.New(errs.PeerRPCFailure, "no base-layer api peers configured")
	}
	return p.current[0], nil
}

// Drop removes peer from the candidate set and rebuilds from the seed
// list once the set shrinks to <=1 (spec.md §7e).
func (p *PeerPool) Drop(peer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.current[:0:0]
	for _, c := range p.current {
		if c != peer {
			out = append(out, c)
		}
	}
	p.current = out
	if len(p.current) <= 1 {
		p.rebuildLocked()
	} else {
		p.shuffleLocked()
	}
}

func (p *PeerPool) rebuildLocked() {
	p.current = append([]string{}, p.seed...)
	p.shuffleLocked()
}

func (p *PeerPool) shuffleLocked() {
	p.rand.Shuffle(len(p.current), func(i, j int) {
		p.current[i], p.current[j] = p.current[j], p.current[i]
	})
}
