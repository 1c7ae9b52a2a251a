package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/gossip"
)

func newHandler(t *testing.T, lookup WebhookKeyLookup) *Handler {
	t.Helper()
	mem, err := gossip.NewMemory(8)
	if err != nil {
		t.Fatalf("new memory: %v", err)
	}
	messenger := gossip.NewMessenger(mem, gossip.Handlers{}, nil, nil)
	registry := gossip.NewRegistry(10)
	registry.Add("http://peer-a")
	return NewHandler(messenger, registry, lookup, nil)
}

func keyFor(authorization, verification string) *config.WebhookKey {
	sum := sha256.Sum256([]byte(authorization + verification))
	return &config.WebhookKey{Verification: verification, Hash: hex.EncodeToString(sum[:])}
}

func TestBlocksAcceptsValidWebhookAuth(t *testing.T) {
	key := keyFor("secret-token", "salt")
	h := newHandler(t, func(authorization string) (*config.WebhookKey, error) { return key, nil })

	req := httptest.NewRequest(http.MethodPost, "/blocks", strings.NewReader(`{"event":"block.applied"}`))
	req.Header.Set("Authorization", "secret-token")
	rec := httptest.NewRecorder()
	h.Blocks(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestBlocksRejectsInvalidWebhookAuth(t *testing.T) {
	key := keyFor("secret-token", "salt")
	h := newHandler(t, func(authorization string) (*config.WebhookKey, error) { return key, nil })

	req := httptest.NewRequest(http.MethodPost, "/blocks", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "wrong-token")
	rec := httptest.NewRecorder()
	h.Blocks(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMessageEnqueuesAndReturnsImmediately(t *testing.T) {
	h := newHandler(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(`{"hello":{"peer":"http://x"}}`))
	rec := httptest.NewRecorder()
	h.Message(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
}

func TestMessageLivenessReturnsOK(t *testing.T) {
	h := newHandler(t, nil)
	req := httptest.NewRequest(http.MethodHead, "/message", nil)
	rec := httptest.NewRecorder()
	h.MessageLiveness(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPeersReturnsRegistryList(t *testing.T) {
	h := newHandler(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/peers", nil)
	rec := httptest.NewRecorder()
	h.Peers(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "peer-a") {
		t.Fatalf("expected peer-a in response body, got %s", rec.Body.String())
	}
}
