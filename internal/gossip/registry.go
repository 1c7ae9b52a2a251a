// Package gossip implements the peer registry, discovery, broadcast and
// message-dispatch workers of spec.md §4.6: a bounded PEERS set, single-
// threaded Broadcaster and Messenger tasks, and a dedup Memory, replacing
// the teacher corpus's global mutable peer maps with an explicit Registry
// value owned by the caller (SPEC_FULL.md Design Notes §9).
package gossip

import "sync"

// Registry is the bounded PEERS set of spec.md §4.6, mutated only by the
// Messenger and discovery logic under its own mutex.
type Registry struct {
	mu    sync.Mutex
	limit int
	peers map[string]struct{}
}

// NewRegistry builds an empty registry bounded at limit entries.
func NewRegistry(limit int) *Registry {
	return &Registry{limit: limit, peers: make(map[string]struct{})}
}

// Add inserts peer if it is not already present and the set is not yet at
// its limit. It reports whether the peer was newly added.
func (r *Registry) Add(peer string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[peer]; ok {
		return false
	}
	if len(r.peers) >= r.limit {
		return false
	}
	r.peers[peer] = struct{}{}
	return true
}

// Remove drops peer from the set.
func (r *Registry) Remove(peer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, peer)
}

// Has reports whether peer is already known.
func (r *Registry) Has(peer string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.peers[peer]
	return ok
}

// List returns a snapshot of the current peer set.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.peers))
	for p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Len reports the current peer count, used for the consensus quorum
// threshold ⌈|PEERS|/2⌉ (spec.md §4.7).
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// AtLimit reports whether the set has reached its configured bound,
// spec.md §4.6's prospection stop condition ("|PEERS| > peer_limit").
func (r *Registry) AtLimit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers) >= r.limit
}
