// Package config loads a named network's {network}.json plus an ordered
// milestones.json and exposes the height-indexed Ask lookup spec.md §4.2
// describes, the way pkg/config.Load layers the teacher's YAML tree
// through viper.
package config

import (
	"fmt"
	"regexp"
	"sort"
)

// Milestone is a point-in-time override of protocol parameters, activated
// at a given base-layer height (spec.md §4.2).
type Milestone struct {
	Height uint64                 `mapstructure:"height" json:"height"`
	Values map[string]interface{} `mapstructure:",remain" json:"values"`
}

// Network is a named config: a top-level value map plus a sorted list of
// milestones (spec.md §4.2).
type Network struct {
	Name       string                 `mapstructure:"name" json:"name"`
	Values     map[string]interface{} `mapstructure:"values" json:"values"`
	Milestones []Milestone            `mapstructure:"milestones" json:"milestones"`

	// compiled is derived from Values["serialized regex"] at Load time.
	compiled *regexp.Regexp
}

// RequiredKeys lists the top-level keys spec.md §4.2 mandates.
var RequiredKeys = []string{
	"database name", "api peer", "webhook peer", "master address",
	"blocktime", "peer limit", "slp types", "slp fields", "slp formats",
	"cost", "denied tickers", "input types", "serialized regex",
}

// Validate checks that every required key is present either at the top
// level or in at least one milestone, and that milestones are sorted.
func (n *Network) Validate() error {
	for _, k := range RequiredKeys {
		if _, ok := n.Values[k]; ok {
			continue
		}
		found := false
		for _, m := range n.Milestones {
			if _, ok := m.Values[k]; ok {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("config %q missing required key %q", n.Name, k)
		}
	}
	for i := 1; i < len(n.Milestones); i++ {
		if n.Milestones[i].Height < n.Milestones[i-1].Height {
			return fmt.Errorf("config %q milestones not sorted by height", n.Name)
		}
	}
	return nil
}

// sortMilestones orders milestones ascending by activation height, the
// merge order spec.md §4.2 assumes.
func (n *Network) sortMilestones() {
	sort.SliceStable(n.Milestones, func(i, j int) bool {
		return n.Milestones[i].Height < n.Milestones[j].Height
	})
}

// Ask returns the value for key, applying spec.md §4.2's lookup rule:
// the top-level override wins if present; otherwise the entry from the
// latest milestone whose activation height is <= height (or the latest
// milestone overall, if height is nil).
func (n *Network) Ask(key string, height *uint64) (interface{}, bool) {
	if v, ok := n.Values[key]; ok {
		return v, true
	}
	var best interface{}
	found := false
	for _, m := range n.Milestones {
		if height != nil && m.Height > *height {
			break
		}
		if v, ok := m.Values[key]; ok {
			best = v
			found = true
		}
	}
	return best, found
}

// Merge folds src into dst following spec.md §4.2's per-kind rule:
// scalars overwrite, mappings shallow-merge, sequences concatenate and
// deduplicate. It returns a new map and never mutates dst or src.
func Merge(dst, src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		existing, ok := out[k]
		if !ok {
			out[k] = v
			continue
		}
		out[k] = mergeValue(existing, v)
	}
	return out
}

func mergeValue(existing, incoming interface{}) interface{} {
	switch e := existing.(type) {
	case map[string]interface{}:
		if i, ok := incoming.(map[string]interface{}); ok {
			return Merge(e, i)
		}
	case []interface{}:
		if i, ok := incoming.([]interface{}); ok {
			return concatDedup(e, i)
		}
	}
	return incoming
}

func concatDedup(a, b []interface{}) []interface{} {
	seen := make(map[interface{}]bool, len(a)+len(b))
	out := make([]interface{}, 0, len(a)+len(b))
	for _, v := range append(append([]interface{}{}, a...), b...) {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Regex returns the compiled "serialized regex" gate for this network,
// compiling it lazily on first use.
func (n *Network) Regex() (*regexp.Regexp, error) {
	if n.compiled != nil {
		return n.compiled, nil
	}
	v, ok := n.Ask("serialized regex", nil)
	if !ok {
		return nil, fmt.Errorf("config %q has no serialized regex", n.Name)
	}
	pattern, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("config %q serialized regex is not a string", n.Name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile serialized regex: %w", err)
	}
	n.compiled = re
	return re, nil
}

// HashAlgorithm resolves the PoH hash algorithm pinned for this network
// (Open Question #2 in SPEC_FULL.md §7): "sha256" (default) or "md5",
// fixed per-network and never mixed mid-lifetime.
func (n *Network) HashAlgorithm() string {
	v, ok := n.Ask("poh hash", nil)
	if !ok {
		return "sha256"
	}
	s, ok := v.(string)
	if !ok || (s != "sha256" && s != "md5") {
		return "sha256"
	}
	return s
}
