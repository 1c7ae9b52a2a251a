package gossip

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// InboundKind distinguishes the two payload sources the Messenger drains:
// gossip messages from /message and webhook blocks from /blocks
// (spec.md §4.6).
type InboundKind int

const (
	KindMessage InboundKind = iota
	KindBlock
)

// Inbound is one payload queued for the Messenger.
type Inbound struct {
	Kind InboundKind
	Body []byte
}

// Handlers are the Messenger's dispatch targets, kept as plain functions
// rather than an imported type so this package never needs to import
// internal/consensus or internal/ingest: the node composition root wires
// the closures (SPEC_FULL.md Design Notes §9, "explicit Node value").
type Handlers struct {
	OnHello     func(ctx context.Context, peer string)
	OnConsensus func(ctx context.Context, raw json.RawMessage) error
	OnConsent   func(ctx context.Context, raw json.RawMessage) error
	OnBlock     func(ctx context.Context, body []byte) error
}

// Messenger is the single-threaded worker of spec.md §4.6: it dedups
// inbound payloads by canonical body hash, then dispatches hello,
// consensus and consent message subtypes, or forwards a webhook block,
// unless back-fill is still active (spec.md: "drops webhook blocks while
// the back-fill processor is still active, to avoid double-ingest").
type Messenger struct {
	queue          *queue[Inbound]
	memory         *Memory
	handlers       Handlers
	backfillActive func() bool
	log            *logrus.Entry
}

// NewMessenger builds a Messenger. backfillActive is polled once per
// inbound block to decide whether to suppress it.
func NewMessenger(memory *Memory, handlers Handlers, backfillActive func() bool, log *logrus.Entry) *Messenger {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if backfillActive == nil {
		backfillActive = func() bool { return false }
	}
	return &Messenger{
		queue: newQueue[Inbound](), memory: memory, handlers: handlers,
		backfillActive: backfillActive, log: log.WithField("component", "messenger"),
	}
}

// Enqueue submits a payload for dispatch without blocking the HTTP
// handler that received it (spec.md §4.8: "handlers return immediately").
func (m *Messenger) Enqueue(item Inbound) { m.queue.Push(item) }

// Run drains the queue until Stop is called.
func (m *Messenger) Run(ctx context.Context) {
	for {
		item, ok := m.queue.Pop()
		if !ok {
			return
		}
		if err := m.dispatch(ctx, item); err != nil {
			m.log.WithError(err).Error("dispatch failed")
		}
	}
}

// Stop releases the worker loop.
func (m *Messenger) Stop() { m.queue.Stop() }

func (m *Messenger) dispatch(ctx context.Context, item Inbound) error {
	key := CanonicalHash(item.Body)
	if m.memory.SeenBefore(key) {
		return nil
	}

	if item.Kind == KindBlock {
		if m.backfillActive() {
			m.log.Debug("dropping webhook block while backfill is active")
			return nil
		}
		if m.handlers.OnBlock != nil {
			return m.handlers.OnBlock(ctx, item.Body)
		}
		return nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(item.Body, &envelope); err != nil {
		return err
	}
	if raw, ok := envelope["hello"]; ok {
		var hello struct {
			Peer string `json:"peer"`
		}
		if err := json.Unmarshal(raw, &hello); err != nil {
			return err
		}
		if m.handlers.OnHello != nil {
			m.handlers.OnHello(ctx, hello.Peer)
		}
		return nil
	}
	if raw, ok := envelope["consensus"]; ok {
		if m.handlers.OnConsensus != nil {
			return m.handlers.OnConsensus(ctx, raw)
		}
		return nil
	}
	if raw, ok := envelope["consent"]; ok {
		if m.handlers.OnConsent != nil {
			return m.handlers.OnConsent(ctx, raw)
		}
		return nil
	}
	return nil
}
