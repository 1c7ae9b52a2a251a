package gossip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport is the outbound side of spec.md §4.6/§4.8: POSTing gossip
// messages and GETting a peer's own list. The inbound HTTP surface
// (internal/httpapi) is a separate, external-facing concern; this is only
// what a worker needs to talk to another node.
type Transport interface {
	PostMessage(ctx context.Context, peer string, body []byte) error
	GetPeers(ctx context.Context, peer string) ([]string, error)
}

// HTTPTransport is the default Transport, a thin net/http client wrapper
// mirroring the teacher corpus's plain net/http usage (walletserver has no
// outbound client of its own; this follows the same minimal-wrapper shape
// its handlers use for inbound requests).
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport builds a transport with the §5 "single configurable
// client timeout" (spec.md: "≈30s during back-fill"; gossip calls use the
// same client at a shorter default since they are request/response, not
// bulk fetches).
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{Client: &http.Client{Timeout: timeout}}
}

func (t *HTTPTransport) PostMessage(ctx context.Context, peer string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peer+"/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post to %s: %w", peer, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("post to %s: status %d", peer, resp.StatusCode)
	}
	return nil
}

func (t *HTTPTransport) GetPeers(ctx context.Context, peer string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, peer+"/peers", nil)
	if err != nil {
		return nil, fmt.Errorf("build get request: %w", err)
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get peers from %s: %w", peer, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read peers response from %s: %w", peer, err)
	}
	var peers []string
	if err := json.Unmarshal(raw, &peers); err != nil {
		return nil, fmt.Errorf("parse peers response from %s: %w", peer, err)
	}
	return peers, nil
}
