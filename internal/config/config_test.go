package config

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sha256Sum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestAskPrefersTopLevelOverride(t *testing.T) {
	n := &Network{
		Values:     map[string]interface{}{"cost": 50.0},
		Milestones: []Milestone{{Height: 10, Values: map[string]interface{}{"cost": 100.0}}},
	}
	v, ok := n.Ask("cost", nil)
	if !ok || v.(float64) != 50.0 {
		t.Fatalf("expected top-level override 50.0, got %v", v)
	}
}

func TestAskReturnsLatestMilestoneAtOrBeforeHeight(t *testing.T) {
	n := &Network{
		Values: map[string]interface{}{},
		Milestones: []Milestone{
			{Height: 10, Values: map[string]interface{}{"cost": 100.0}},
			{Height: 20, Values: map[string]interface{}{"cost": 200.0}},
		},
	}
	h := uint64(15)
	v, ok := n.Ask("cost", &h)
	if !ok || v.(float64) != 100.0 {
		t.Fatalf("expected milestone@10 value 100.0, got %v", v)
	}
	h2 := uint64(25)
	v2, ok := n.Ask("cost", &h2)
	if !ok || v2.(float64) != 200.0 {
		t.Fatalf("expected milestone@20 value 200.0, got %v", v2)
	}
}

func TestMergeRules(t *testing.T) {
	dst := map[string]interface{}{
		"scalar": "a",
		"mapping": map[string]interface{}{"x": 1.0},
		"seq":     []interface{}{"a", "b"},
	}
	src := map[string]interface{}{
		"scalar":  "b",
		"mapping": map[string]interface{}{"y": 2.0},
		"seq":     []interface{}{"b", "c"},
	}
	out := Merge(dst, src)
	if out["scalar"] != "b" {
		t.Fatalf("expected scalar overwrite, got %v", out["scalar"])
	}
	m := out["mapping"].(map[string]interface{})
	if m["x"] != 1.0 || m["y"] != 2.0 {
		t.Fatalf("expected shallow-merged mapping, got %v", m)
	}
	seq := out["seq"].([]interface{})
	if len(seq) != 3 {
		t.Fatalf("expected concatenated+deduped seq of 3, got %v", seq)
	}
}

func TestValidateRequiresAllKeys(t *testing.T) {
	n := &Network{Name: "test", Values: map[string]interface{}{}}
	if err := n.Validate(); err == nil {
		t.Fatalf("expected validation failure for missing required keys")
	}
}

func TestWebhookKeyVerify(t *testing.T) {
	auth := "abc123"
	verification := "salt"
	sum := sha256Sum(auth + verification)
	k := &WebhookKey{Verification: verification, Hash: sum}
	if !k.Verify(auth) {
		t.Fatalf("expected verification to succeed")
	}
	if k.Verify("wrong") {
		t.Fatalf("expected verification to fail for wrong token")
	}
}
