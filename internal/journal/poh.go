// Package journal implements PoH derivation and append (spec.md §4.3): the
// hash chain that lets peers cross-verify a record's place in the
// sequence, and the SLP1 atomic-exchange helper the contract engine's
// SEND/NEWOWNER handlers build on.
package journal

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // PoH hash choice is a pinned network parameter, not a security primitive
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/synnergy-labs/slpindexer/internal/model"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

// HashFunc computes a hash digest for PoH chaining. The algorithm is a
// per-network config choice (SPEC_FULL.md Open Question #2); callers get
// one from NewHasher instead of calling crypto/sha256 or crypto/md5
// directly, so the choice cannot silently vary within one journal.
type HashFunc func([]byte) []byte

// NewHasher resolves "sha256" or "md5" to a HashFunc. Unknown names
// default to sha256, matching config.Network.HashAlgorithm's default.
func NewHasher(algorithm string) HashFunc {
	switch algorithm {
	case "md5":
		return func(b []byte) []byte {
			sum := md5.Sum(b) //nolint:gosec
			return sum[:]
		}
	default:
		return func(b []byte) []byte {
			sum := sha256.Sum256(b)
			return sum[:]
		}
	}
}

// operationFields is the canonical-JSON-able subset of a Record that PoH
// chains over: the record's identifying fields (height, index, txid,
// slp_type, tp, id, emitter, receiver, cost) plus its operation-specific
// fields, not bookkeeping (timestamp, legit, comment, poh itself).
type operationFields struct {
	Height   uint64      `json:"height"`
	Index    uint16      `json:"index"`
	Txid     string      `json:"txid"`
	SlpType  model.Family `json:"slp_type"`
	Tp       model.Op    `json:"tp"`
	ID       string      `json:"id"`
	Emitter  string      `json:"emitter"`
	Receiver string      `json:"receiver"`
	Cost     uint64      `json:"cost"`
	Fields   map[string]interface{} `json:"fields"`
}

// CanonicalSeed renders rec's operation-specific fields as canonical JSON:
// sorted keys, no whitespace (spec.md §4.3). encoding/json already emits
// map keys in sorted order, so building the variable part as a
// map[string]interface{} and letting json.Marshal run gives a canonical
// encoding without a bespoke canonicalizer — no library in the reference
// corpus provides one specifically for this (see DESIGN.md).
func CanonicalSeed(rec *model.Record) ([]byte, error) {
	fields := map[string]interface{}{}
	if rec.DeSet() {
		fields["de"] = rec.DeValue()
	}
	if rec.Qt != nil {
		fields["qt"] = rec.Qt.String()
	}
	if rec.Sy != "" {
		fields["sy"] = rec.Sy
	}
	if rec.Na != "" {
		fields["na"] = rec.Na
	}
	if rec.Du != "" {
		fields["du"] = rec.Du
	}
	if rec.No != "" {
		fields["no"] = rec.No
	}
	if rec.Pa != nil {
		fields["pa"] = *rec.Pa
	}
	if rec.Mi != nil {
		fields["mi"] = *rec.Mi
	}
	if rec.Ch != 0 {
		fields["ch"] = rec.Ch
	}
	if rec.Dt != "" {
		fields["dt"] = rec.Dt
	}

	of := operationFields{
		Height: rec.Height, Index: rec.Index, Txid: rec.Txid,
		SlpType: rec.SlpType, Tp: rec.Tp, ID: rec.ID,
		Emitter: rec.Emitter, Receiver: rec.Receiver, Cost: rec.Cost,
		Fields: fields,
	}
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sortedView(of)); err != nil {
		return nil, fmt.Errorf("canonicalize record fields: %w", err)
	}
	out := buf.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}

// sortedView converts of to a map so json.Marshal's deterministic
// alphabetical map-key ordering produces a canonical encoding regardless
// of struct field declaration order.
func sortedView(of operationFields) map[string]interface{} {
	raw, _ := json.Marshal(of)
	var m map[string]interface{}
	_ = json.Unmarshal(raw, &m)
	return m
}

// DerivePoH computes PoH[N] = H(PoH[N-1] || H(canonical(fields_N)))
// (spec.md §4.3, invariant J3), where PoH[N-1] is the previous record's
// PoH in the same family with legit == true (empty if none exists yet).
func DerivePoH(ctx context.Context, hash HashFunc, journal store.JournalStore, rec *model.Record) ([]byte, error) {
	seed, err := CanonicalSeed(rec)
	if err != nil {
		return nil, err
	}
	seedHash := hash(seed)

	prev, err := journal.LastLegitPoH(ctx, rec.SlpType)
	if err != nil {
		return nil, fmt.Errorf("fetch previous poh: %w", err)
	}
	combined := append(append([]byte{}, prev...), seedHash...)
	return hash(combined), nil
}

// VerifyPoH recomputes rec's PoH against prevPoH and reports whether it
// matches rec.PoH, the property spec.md §8 quantifies as the first
// testable invariant.
func VerifyPoH(hash HashFunc, rec *model.Record, prevPoH []byte) (bool, error) {
	seed, err := CanonicalSeed(rec)
	if err != nil {
		return false, err
	}
	seedHash := hash(seed)
	combined := append(append([]byte{}, prevPoH...), seedHash...)
	want := hash(combined)
	return bytes.Equal(want, rec.PoH), nil
}
