package gossip

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// HelloMessage is the discovery message shape of spec.md §4.6:
// `{"hello":{"peer":URL}}`.
type HelloMessage struct {
	Hello struct {
		Peer string `json:"peer"`
	} `json:"hello"`
}

// Prospect implements spec.md §4.6's recursive peer prospection: GET
// target's own /peers list, add any peer it names that we don't already
// know, and for any peer we already know that target's list is missing,
// send it a hello so the link becomes bidirectional. It recurses into
// newly-learned peers, stopping as soon as the registry reaches its
// configured limit.
func Prospect(ctx context.Context, transport Transport, registry *Registry, target string, log *logrus.Entry) {
	prospect(ctx, transport, registry, target, make(map[string]bool), log)
}

func prospect(ctx context.Context, transport Transport, registry *Registry, target string, visited map[string]bool, log *logrus.Entry) {
	if visited[target] || registry.AtLimit() {
		return
	}
	visited[target] = true
	registry.Add(target)

	theirList, err := transport.GetPeers(ctx, target)
	if err != nil {
		if log != nil {
			log.WithError(err).WithField("peer", target).Debug("prospection target unreachable")
		}
		return
	}

	known := make(map[string]bool, len(theirList))
	for _, p := range theirList {
		known[p] = true
		if registry.AtLimit() {
			return
		}
		if registry.Add(p) {
			prospect(ctx, transport, registry, p, visited, log)
		}
	}

	for _, ours := range registry.List() {
		if ours == target || known[ours] {
			continue
		}
		msg := HelloMessage{}
		msg.Hello.Peer = ours
		body, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		_ = transport.PostMessage(ctx, target, body)
	}
}
