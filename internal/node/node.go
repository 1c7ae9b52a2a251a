// Package node is the composition root: it owns the peer registry, the
// consensus pending table and the derived stores, and wires the
// Messenger's dispatch closures to the ingest, gossip and consensus
// packages. This is the explicit Node value SPEC_FULL.md's Design Notes
// §9 calls for, replacing the teacher corpus's global mutable peer and
// consensus-job maps.
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/consensus"
	"github.com/synnergy-labs/slpindexer/internal/engine"
	"github.com/synnergy-labs/slpindexer/internal/gossip"
	"github.com/synnergy-labs/slpindexer/internal/ingest"
	"github.com/synnergy-labs/slpindexer/internal/journal"
	"github.com/synnergy-labs/slpindexer/internal/model"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

// Config bundles everything needed to build a Node.
type Config struct {
	Network      *config.Network
	Store        store.Collections
	BaseLayer    ingest.BaseLayerClient
	SelfURL      string
	DataDir      string
	PeerLimit    int
	MemorySize   int
	ClientTimeout time.Duration
	Log          *logrus.Logger
}

// Node is the running indexer: every long-lived worker task of spec.md §5
// plus the collaborators they share.
type Node struct {
	cfg Config

	Hash        journal.HashFunc
	Appender    *journal.Appender
	Engine      *engine.Engine
	Registry    *gossip.Registry
	Memory      *gossip.Memory
	Transport   gossip.Transport
	Broadcaster *gossip.Broadcaster
	Messenger   *gossip.Messenger
	Consensus   *consensus.Table
	BlockQueue  *ingest.BlockQueue
	PeerPool    *ingest.PeerPool
	BlockParser *ingest.BlockParser
	Processor   *ingest.Processor
	Mark        ingest.MarkStore
	Unvalidated *ingest.UnvalidatedDump

	log *logrus.Entry
}

// New wires every component listed in spec.md §2's component table into
// one Node, ready for Start.
func New(cfg Config) (*Node, error) {
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.PeerLimit <= 0 {
		cfg.PeerLimit = 50
	}
	if cfg.MemorySize <= 0 {
		cfg.MemorySize = 10000
	}

	hash := journal.NewHasher(cfg.Network.HashAlgorithm())
	appender := journal.NewAppender(hash, cfg.Store.Journal())
	eng := engine.New(engine.Deps{
		Contracts: cfg.Store.Contracts(), SLP1: cfg.Store.SLP1(), SLP2: cfg.Store.SLP2(), Network: cfg.Network,
	}, cfg.Store.Journal(), cfg.Store.Rejected())

	registry := gossip.NewRegistry(cfg.PeerLimit)
	memory, err := gossip.NewMemory(cfg.MemorySize)
	if err != nil {
		return nil, fmt.Errorf("build dedup memory: %w", err)
	}
	transport := gossip.NewHTTPTransport(cfg.ClientTimeout)
	broadcaster := gossip.NewBroadcaster(transport, cfg.Log.WithField("node", cfg.SelfURL))
	consensusTable := consensus.NewTable()

	blockQueue := ingest.NewBlockQueue()
	apiPeers := stringList(cfg.Network.Ask("api peer", nil))
	peerPool := ingest.NewPeerPool(apiPeers, rand.NewSource(time.Now().UnixNano()))
	unvalidated := ingest.NewUnvalidatedDump(cfg.DataDir)
	blockParser := ingest.NewBlockParser(blockQueue, cfg.BaseLayer, peerPool, cfg.Network, cfg.Store.Contracts(), appender, eng, unvalidated, hash, cfg.Log.WithField("node", cfg.SelfURL))

	databaseNameVal, _ := cfg.Network.Ask("database name", nil)
	databaseName, _ := databaseNameVal.(string)
	mark := ingest.NewMarkFile(cfg.DataDir, databaseName)
	processor := ingest.NewProcessor(blockQueue, cfg.BaseLayer, peerPool, cfg.Network, mark, cfg.Log.WithField("node", cfg.SelfURL))

	n := &Node{
		cfg: cfg, Hash: hash, Appender: appender, Engine: eng,
		Registry: registry, Memory: memory, Transport: transport, Broadcaster: broadcaster,
		Consensus: consensusTable, BlockQueue: blockQueue, PeerPool: peerPool,
		BlockParser: blockParser, Processor: processor, Mark: mark, Unvalidated: unvalidated,
		log: cfg.Log.WithField("node", cfg.SelfURL),
	}

	n.Messenger = gossip.NewMessenger(memory, gossip.Handlers{
		OnHello:     n.onHello,
		OnConsensus: n.onConsensus,
		OnConsent:   n.onConsent,
		OnBlock:     n.onBlock,
	}, processor.Active, cfg.Log.WithField("node", cfg.SelfURL))

	return n, nil
}

// Start launches every long-lived worker task (spec.md §5): the
// Messenger, the Broadcaster, the BlockParser, and the back-fill
// Processor.
func (n *Node) Start(ctx context.Context) {
	go n.Messenger.Run(ctx)
	go n.Broadcaster.Run(ctx)
	go n.BlockParser.Run(ctx)
	go func() {
		if err := n.Processor.Run(ctx); err != nil {
			n.log.WithError(err).Error("backfill processor stopped")
		}
	}()
}

// Stop releases every worker's queue, per spec.md §5's STOP-flag-plus-
// sentinel shutdown pattern; the BlockParser's lock is released as soon
// as its in-flight block finishes, since it only ever holds it for one
// Pop/parse cycle.
func (n *Node) Stop() {
	n.Messenger.Stop()
	n.Broadcaster.Stop()
	n.BlockQueue.Stop()
}

// RatifyRecord binds and broadcasts a PoH consensus request for rec, the
// node-initiated half of spec.md §4.7.
func (n *Node) RatifyRecord(rec *model.Record, callback func()) error {
	return consensus.Broadcast(n.Consensus, n.Broadcaster, n.Hash, n.cfg.SelfURL, n.Registry.List(), rec, callback)
}

func (n *Node) onHello(ctx context.Context, peer string) {
	if peer == "" || peer == n.cfg.SelfURL {
		return
	}
	gossip.Prospect(ctx, n.Transport, n.Registry, peer, n.log)
}

func (n *Node) onConsensus(ctx context.Context, raw json.RawMessage) error {
	return consensus.HandleConsensus(ctx, n.Hash, n.cfg.Store.Journal(), n.Transport, n.Registry, n.cfg.SelfURL, raw)
}

func (n *Node) onConsent(ctx context.Context, raw json.RawMessage) error {
	return consensus.HandleConsent(n.Consensus, n.Registry.Len(), raw)
}

func (n *Node) onBlock(ctx context.Context, body []byte) error {
	b, ok, err := ingest.DecodeWebhookBlock(body)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	n.BlockQueue.Push(b)
	return nil
}

func stringList(v interface{}, ok bool) []string {
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
