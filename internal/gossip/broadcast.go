package gossip

import (
	"context"

	"github.com/sirupsen/logrus"
)

// BroadcastJob is one unit of outbound fan-out: a message to POST to a
// set of peers (spec.md §4.6 "a single worker draining a queue of
// (endpoint, message, peers...) jobs").
type BroadcastJob struct {
	Body  []byte
	Peers []string
}

// Broadcaster is the single-threaded worker of spec.md §4.6: callers
// never block on the network, they just enqueue a job.
type Broadcaster struct {
	queue     *queue[BroadcastJob]
	transport Transport
	log       *logrus.Entry
}

// NewBroadcaster builds a Broadcaster bound to transport.
func NewBroadcaster(transport Transport, log *logrus.Entry) *Broadcaster {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Broadcaster{queue: newQueue[BroadcastJob](), transport: transport, log: log.WithField("component", "broadcaster")}
}

// Enqueue submits a job without blocking on the network.
func (b *Broadcaster) Enqueue(job BroadcastJob) { b.queue.Push(job) }

// Run drains the queue until Stop is called, logging and continuing past
// any single peer's delivery failure (spec.md §7: PeerRPCFailure is
// non-fatal to the worker loop).
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		job, ok := b.queue.Pop()
		if !ok {
			return
		}
		for _, peer := range job.Peers {
			if err := b.transport.PostMessage(ctx, peer, job.Body); err != nil {
				b.log.WithError(err).WithField("peer", peer).Warn("broadcast delivery failed")
			}
		}
	}
}

// Stop releases the worker loop, per spec.md §5's STOP-flag-plus-sentinel
// shutdown pattern.
func (b *Broadcaster) Stop() { b.queue.Stop() }
