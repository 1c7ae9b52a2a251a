package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/errs"
	"github.com/synnergy-labs/slpindexer/internal/model"
)

// PageSize bounds a single ListBlocks page during back-fill.
const PageSize = 100

// MarkStore persists the processing mark that drives back-fill restart
// (spec.md §3). MarkFile implements it directly; a store.MarkStore-backed
// adapter can too, for deployments keeping the mark in the document store
// instead of "{database_name}.mark".
type MarkStore interface {
	Load() (*model.ProcessingMark, error)
	Save(m *model.ProcessingMark) error
}

// Processor is the single-threaded back-fill task of spec.md §4.5(ii): it
// paginates base-layer blocks in ascending height, filters to blocks with
// at least one transaction past the last parsed height, and enqueues each
// onto the shared BlockQueue, updating the mark after every enqueue.
type Processor struct {
	queue  *BlockQueue
	client BaseLayerClient
	peers  *PeerPool
	net    *config.Network
	mark   MarkStore
	log    *logrus.Entry

	active bool
}

// NewProcessor wires a Processor from its collaborators.
func NewProcessor(queue *BlockQueue, client BaseLayerClient, peers *PeerPool, net *config.Network, mark MarkStore, log *logrus.Entry) *Processor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Processor{queue: queue, client: client, peers: peers, net: net, mark: mark, log: log.WithField("component", "processor")}
}

// Active reports whether back-fill is still in progress, the signal the
// gossip Messenger checks to suppress webhook blocks (spec.md §4.6).
func (pr *Processor) Active() bool { return pr.active }

// Run drives back-fill to the chain tip, then stops being Active; it
// yields (via a short sleep) after each page, matching spec.md §5's
// "yields after each page" scheduling note. It exits when ctx is
// cancelled or a page comes back short of PageSize (caught up).
func (pr *Processor) Run(ctx context.Context) error {
	pr.active = true
	defer func() { pr.active = false }()

	mark, err := pr.mark.Load()
	if err != nil {
		return errs.Wrap(errs.Fatal, err, "load processing mark")
	}

	from := pr.startHeight(mark)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		peer, err := pr.peers.Current()
		if err != nil {
			return err
		}
		blocks, err := pr.client.ListBlocks(ctx, peer, from, PageSize)
		if err != nil {
			pr.peers.Drop(peer)
			pr.log.WithError(err).Warn("backfill page fetch failed, retrying with a new peer")
			continue
		}

		for _, b := range blocks {
			if b.NumberOfTransactions < 1 || b.Height <= mark.LastParsedBlock {
				continue
			}
			pr.queue.Push(b)
			mark.LastParsedBlock = b.Height
			mark.Peer = peer
			mark.Rebuild = false
			if err := pr.mark.Save(mark); err != nil {
				return errs.Wrap(errs.Fatal, err, "save processing mark")
			}
			from = b.Height + 1
		}

		if len(blocks) < PageSize {
			return nil // caught up to the chain tip
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// startHeight resolves spec.md §4.5(ii)'s restart point:
// max(min(milestones.keys), mark.last_parsed_block), where the minimum
// milestone height is 0 when there are no milestones. When the mark's
// Rebuild flag is set it returns min(milestones.keys) and ignores the
// mark's height.
func (pr *Processor) startHeight(mark *model.ProcessingMark) uint64 {
	minMilestone := uint64(0)
	if len(pr.net.Milestones) > 0 {
		minMilestone = pr.net.Milestones[0].Height
		for _, m := range pr.net.Milestones {
			if m.Height < minMilestone {
				minMilestone = m.Height
			}
		}
	}
	if mark.Rebuild {
		return minMilestone
	}
	if mark.LastParsedBlock > minMilestone {
		return mark.LastParsedBlock
	}
	return minMilestone
}
