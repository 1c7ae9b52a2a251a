package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/gossip"
)

// WebhookKeyLookup resolves the stored verification key for an inbound
// Authorization token, so Handler does not need to know the on-disk
// layout of "<md5(authorization)>.key" files (spec.md §6) directly.
type WebhookKeyLookup func(authorization string) (*config.WebhookKey, error)

// Handler holds the inbound surface's collaborators: the Messenger queue
// every accepted payload is forwarded to, the peer registry GET /peers
// answers from, and the webhook key lookup POST /blocks authenticates
// against (spec.md §4.8).
type Handler struct {
	Messenger *gossip.Messenger
	Registry  *gossip.Registry
	LookupKey WebhookKeyLookup
	Log       *logrus.Entry
}

// NewHandler builds a Handler from its collaborators.
func NewHandler(messenger *gossip.Messenger, registry *gossip.Registry, lookup WebhookKeyLookup, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{Messenger: messenger, Registry: registry, LookupKey: lookup, Log: log.WithField("component", "http")}
}

// Blocks handles POST /blocks: authenticate the caller by recomputing
// SHA256(authorization || stored verification) against the stored hash
// (spec.md §4.5(i)), then enqueue the body and return immediately
// (spec.md §4.8: "handlers return immediately").
func (h *Handler) Blocks(w http.ResponseWriter, r *http.Request) {
	authorization := r.Header.Get("Authorization")
	if len(authorization) > 32 {
		authorization = authorization[:32]
	}
	key, err := h.LookupKey(authorization)
	if err != nil || key == nil || !key.Verify(authorization) {
		h.Log.WithField("remote", r.RemoteAddr).Warn("webhook authentication failed")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	h.Messenger.Enqueue(gossip.Inbound{Kind: gossip.KindBlock, Body: body})
	w.WriteHeader(http.StatusAccepted)
}

// Message handles POST /message: forward the raw gossip payload to the
// Messenger (spec.md §4.8).
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	h.Messenger.Enqueue(gossip.Inbound{Kind: gossip.KindMessage, Body: body})
	w.WriteHeader(http.StatusAccepted)
}

// MessageLiveness handles HEAD /message: a bare liveness probe with no
// side effects (spec.md §4.8).
func (h *Handler) MessageLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Peers handles GET /peers: the caller's known peer set, the shape
// internal/gossip's discovery and consensus forwarding consume from each
// other (spec.md §4.6/§4.8).
func (h *Handler) Peers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Registry.List())
}
