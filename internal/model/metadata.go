package model

import (
	"fmt"
	"sort"
)

// MetaPair is one (key,value) entry of an SLP2 metadata bag.
type MetaPair struct {
	Key   string
	Value string
}

// PackMetadata flattens pairs into the length-prefixed wire form used by
// both the smartbridge ADDMETA varia and the stored wallet metadata blob:
// a sequence of `<u8 length><bytes>` strings, [k1,v1,k2,v2,...], sorted by
// len(k)+len(v) ascending (spec.md §4.1).
func PackMetadata(pairs []MetaPair) ([]byte, error) {
	sorted := make([]MetaPair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Key)+len(sorted[i].Value) < len(sorted[j].Key)+len(sorted[j].Value)
	})
	var out []byte
	for _, p := range sorted {
		kb, err := lengthPrefixed(p.Key)
		if err != nil {
			return nil, err
		}
		vb, err := lengthPrefixed(p.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, vb...)
	}
	return out, nil
}

func lengthPrefixed(s string) ([]byte, error) {
	if len(s) > 255 {
		return nil, fmt.Errorf("metadata field exceeds 255 bytes: %d", len(s))
	}
	return append([]byte{byte(len(s))}, []byte(s)...), nil
}

// UnpackMetadata is the inverse of PackMetadata: it decodes a flat sequence
// of length-prefixed strings into (key,value) pairs. An odd number of
// strings, or a length prefix overrunning the buffer, is an error.
func UnpackMetadata(blob []byte) ([]MetaPair, error) {
	var strs []string
	i := 0
	for i < len(blob) {
		n := int(blob[i])
		i++
		if i+n > len(blob) {
			return nil, fmt.Errorf("metadata length prefix overruns buffer")
		}
		strs = append(strs, string(blob[i:i+n]))
		i += n
	}
	if len(strs)%2 != 0 {
		return nil, fmt.Errorf("metadata has an odd number of fields")
	}
	pairs := make([]MetaPair, 0, len(strs)/2)
	for j := 0; j < len(strs); j += 2 {
		pairs = append(pairs, MetaPair{Key: strs[j], Value: strs[j+1]})
	}
	return pairs, nil
}

// MergeMetadata appends incoming pairs to existing, overwriting any key
// that already exists, and returns the re-sorted, re-packed blob. Used by
// ADDMETA.
func MergeMetadata(existing []byte, incoming []MetaPair) ([]byte, error) {
	pairs, err := UnpackMetadata(existing)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]string, len(pairs)+len(incoming))
	order := make([]string, 0, len(pairs)+len(incoming))
	for _, p := range pairs {
		if _, ok := byKey[p.Key]; !ok {
			order = append(order, p.Key)
		}
		byKey[p.Key] = p.Value
	}
	for _, p := range incoming {
		if _, ok := byKey[p.Key]; !ok {
			order = append(order, p.Key)
		}
		byKey[p.Key] = p.Value
	}
	merged := make([]MetaPair, 0, len(order))
	for _, k := range order {
		merged = append(merged, MetaPair{Key: k, Value: byKey[k]})
	}
	return PackMetadata(merged)
}

// RemoveMetadataKeys drops the named keys from the blob and returns the
// re-packed result. Used by VOIDMETA.
func RemoveMetadataKeys(existing []byte, keys []string) ([]byte, error) {
	pairs, err := UnpackMetadata(existing)
	if err != nil {
		return nil, err
	}
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	kept := make([]MetaPair, 0, len(pairs))
	for _, p := range pairs {
		if !drop[p.Key] {
			kept = append(kept, p)
		}
	}
	return PackMetadata(kept)
}

// ConcatMetadata concatenates multiple wallets' raw blobs into a single
// decoded, de-duplicated (last-write-wins) bag, used by CLONE and by the
// "token-wide metadata" definition of spec.md §3.
func ConcatMetadata(blobs [][]byte) ([]MetaPair, error) {
	byKey := make(map[string]string)
	order := make([]string, 0)
	for _, b := range blobs {
		pairs, err := UnpackMetadata(b)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			if _, ok := byKey[p.Key]; !ok {
				order = append(order, p.Key)
			}
			byKey[p.Key] = p.Value
		}
	}
	out := make([]MetaPair, 0, len(order))
	for _, k := range order {
		out = append(out, MetaPair{Key: k, Value: byKey[k]})
	}
	return out, nil
}
