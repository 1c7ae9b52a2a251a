package consensus

import (
	"encoding/hex"
	"encoding/json"
	"testing"
)

func consentBody(t *testing.T, blockstamp string, poh []byte) json.RawMessage {
	t.Helper()
	body, err := json.Marshal(ConsentMessage{Blockstamp: blockstamp, PoH: hex.EncodeToString(poh)})
	if err != nil {
		t.Fatalf("marshal consent: %v", err)
	}
	return body
}

// TestQuorumFiresOnceAtCeilHalfPeers mirrors spec.md scenario S6: with
// |PEERS|=4, a mismatched consent does not count, two matching consents
// reach quorum=2 >= ceil(4/2)=2 and the callback fires exactly once, and a
// further matching consent after the fire is a no-op.
func TestQuorumFiresOnceAtCeilHalfPeers(t *testing.T) {
	table := NewTable()
	poh := []byte{0xAA, 0xBB}
	otherPoH := []byte{0x01, 0x02}
	fired := 0
	table.Bind("100#1", poh, func() { fired++ })

	if err := HandleConsent(table, 4, consentBody(t, "100#1", poh)); err != nil {
		t.Fatalf("consent 1: %v", err)
	}
	if fired != 0 {
		t.Fatalf("expected no fire yet, quorum=1 < ceil(4/2)=2")
	}

	if err := HandleConsent(table, 4, consentBody(t, "100#1", otherPoH)); err != nil {
		t.Fatalf("mismatched consent: %v", err)
	}
	if fired != 0 {
		t.Fatalf("expected mismatched poh not to count toward quorum")
	}

	if err := HandleConsent(table, 4, consentBody(t, "100#1", poh)); err != nil {
		t.Fatalf("consent 2: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected exactly one fire at quorum=2, got %d", fired)
	}

	// A further matching consent after the entry has been removed is a no-op.
	if err := HandleConsent(table, 4, consentBody(t, "100#1", poh)); err != nil {
		t.Fatalf("consent after fire: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected no additional fire after quorum already reached, got %d", fired)
	}
}

func TestHandleConsentIgnoresUnknownBlockstamp(t *testing.T) {
	table := NewTable()
	if err := HandleConsent(table, 4, consentBody(t, "999#1", []byte{0x01})); err != nil {
		t.Fatalf("expected no error for unknown blockstamp, got %v", err)
	}
}
