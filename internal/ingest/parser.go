package ingest

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/synnergy-labs/slpindexer/internal/codec"
	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/engine"
	"github.com/synnergy-labs/slpindexer/internal/errs"
	"github.com/synnergy-labs/slpindexer/internal/journal"
	"github.com/synnergy-labs/slpindexer/internal/model"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

// HashFunc is the network-pinned digest used for GENESIS id derivation,
// matching the journal's PoH hash choice (SPEC_FULL.md Open Question #2).
type HashFunc = journal.HashFunc

// BlockParser is the single-threaded worker of spec.md §4.5: it dequeues
// one block at a time and holds LOCK for the duration of parsing it, so
// journal append and PoH derivation stay serial (spec.md §5).
type BlockParser struct {
	queue    *BlockQueue
	client   BaseLayerClient
	peers    *PeerPool
	net      *config.Network
	contract store.ContractStore
	appender *journal.Appender
	engine   *engine.Engine
	dump     *UnvalidatedDump
	hash     HashFunc
	log      *logrus.Entry

	lock sync.Mutex
}

// NewBlockParser wires a BlockParser from its collaborators.
func NewBlockParser(queue *BlockQueue, client BaseLayerClient, peers *PeerPool, net *config.Network, contract store.ContractStore, appender *journal.Appender, eng *engine.Engine, dump *UnvalidatedDump, hash HashFunc, log *logrus.Entry) *BlockParser {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &BlockParser{
		queue: queue, client: client, peers: peers, net: net, contract: contract,
		appender: appender, engine: eng, dump: dump, hash: hash,
		log: log.WithField("component", "blockparser"),
	}
}

// Run drains the queue until it is stopped, logging around each block's
// processing and continuing past any non-fatal error (spec.md §7:
// "each worker catches around its loop body ... and continues").
func (p *BlockParser) Run(ctx context.Context) {
	for {
		b, ok := p.queue.Pop()
		if !ok {
			return
		}
		if err := p.parseBlock(ctx, b); err != nil {
			p.log.WithError(err).WithField("height", b.Height).Error("block parse failed")
		}
	}
}

// parseBlock implements spec.md §4.5's per-block algorithm. It holds LOCK
// for its entire duration.
func (p *BlockParser) parseBlock(ctx context.Context, b Block) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	peer, err := p.peers.Current()
	if err != nil {
		p.queue.PushFront(b)
		return err
	}

	txs, err := p.client.FetchBlockTransactions(ctx, peer, b.Height)
	if err != nil {
		p.peers.Drop(peer)
		p.queue.PushFront(b)
		return errs.Wrap(errs.PeerRPCFailure, err, "fetch block transactions")
	}
	if len(txs) != b.NumberOfTransactions {
		p.peers.Drop(peer)
		p.queue.PushFront(b)
		return errs.New(errs.IntegrityBreach, "transaction count mismatch")
	}

	table, err := p.net.FormatTable(b.Height)
	if err != nil {
		return err
	}
	blocktime, _ := p.net.Ask("blocktime", &b.Height)
	blocktimeSeconds, _ := blocktime.(float64)
	n := len(txs)

	for i, tx := range txs {
		index := uint16(i + 1) // 1-based within block, spec.md §3
		if tx.Type != StandardTransferType || tx.VendorField == "" {
			continue
		}
		if err := p.parseTransaction(ctx, b, tx, index, table, blocktimeSeconds, n); err != nil {
			p.log.WithError(err).WithField("txid", tx.Txid).Debug("transaction skipped")
		}
	}
	return nil
}

// parseTransaction normalises one transaction's vendor field into a
// Record and runs it through validation, journal append and the contract
// engine (spec.md §4.5). Failures here are non-fatal: InvalidSmartbridge
// and FieldValidationFailure drop or divert the single transaction, never
// the whole block.
func (p *BlockParser) parseTransaction(ctx context.Context, b Block, tx Transaction, index uint16, table *codec.FormatTable, blocktimeSeconds float64, n int) error {
	rec, err := DecodeVendorField(table, tx.VendorField, p.tokenScale(ctx))
	if err != nil {
		if errs.Is(err, errs.InvalidSmartbridge) {
			return nil
		}
		return err
	}

	rec.Height = b.Height
	rec.Index = index
	rec.Txid = tx.Txid
	rec.Emitter = tx.Emitter
	rec.Receiver = tx.Receiver
	rec.Cost = tx.Amount
	rec.Timestamp = float64(b.Timestamp) + blocktimeSeconds/float64(n+1)*float64(index)

	if rec.Tp == model.OpGenesis {
		rec.ID = DeriveGenesisID(p.hash, rec.SlpType, rec.Sy, b.Height, tx.Txid)
		if DeniedTicker(p.net, b.Height, rec.Sy) {
			return errs.New(errs.FieldValidationFailure, "sy: denied ticker")
		}
	}

	if err := ValidateFields(p.net, b.Height, rec); err != nil {
		if p.dump != nil {
			_ = p.dump.Append(rec, err.Error())
		}
		return err
	}

	if err := p.appender.Append(ctx, rec); err != nil {
		return err
	}
	if _, err := p.engine.Apply(ctx, rec); err != nil {
		return err
	}
	return nil
}

// tokenScale resolves a tokenID to its declared scale via the contracts
// store, for decoding a plain-JSON vendor field's decimal `qt` (spec.md
// §3 "Conversions ... preserve the scale exactly").
func (p *BlockParser) tokenScale(ctx context.Context) func(tokenID string) int32 {
	return func(tokenID string) int32 {
		c, ok, err := p.contract.Get(ctx, tokenID)
		if err != nil || !ok {
			return 0
		}
		return c.Scale
	}
}
