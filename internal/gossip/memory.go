package gossip

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is the bounded dedup hash-memory of spec.md §4.6: it evicts the
// oldest entry on overflow, so the Messenger never re-dispatches a
// message it has already processed.
type Memory struct {
	cache *lru.Cache[string, struct{}]
}

// NewMemory builds a Memory bounded at size entries.
func NewMemory(size int) (*Memory, error) {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &Memory{cache: cache}, nil
}

// CanonicalHash hashes payload for use as a dedup key, the "canonical
// hash of the body" spec.md §4.5(i) names.
func CanonicalHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// SeenBefore reports whether key has already been recorded, recording it
// if not. The LRU eviction means a key can resurface as "unseen" once it
// has aged out of the bounded memory, which is the intended behaviour for
// a bounded, not exact, dedup set.
func (m *Memory) SeenBefore(key string) bool {
	if m.cache.Contains(key) {
		return true
	}
	m.cache.Add(key, struct{}{})
	return false
}
