package engine

import (
	"context"

	"github.com/synnergy-labs/slpindexer/internal/journal"
	"github.com/synnergy-labs/slpindexer/internal/model"
)

func (e *Engine) registerSLP1() {
	e.register(model.SLP1, model.OpGenesis, slp1Genesis)
	e.register(model.SLP1, model.OpBurn, slp1Burn)
	e.register(model.SLP1, model.OpMint, slp1Mint)
	e.register(model.SLP1, model.OpSend, slp1Send)
	e.register(model.SLP1, model.OpNewOwner, slp1NewOwner)
	e.register(model.SLP1, model.OpFreeze, slp1Freeze(true))
	e.register(model.SLP1, model.OpUnfreeze, slp1Freeze(false))
	e.register(model.SLP1, model.OpPause, slp1PauseResume(true))
	e.register(model.SLP1, model.OpResume, slp1PauseResume(false))
}

// slp1Genesis inserts a new contract and the owner's initial wallet
// (spec.md §4.4 SLP1 GENESIS).
func slp1Genesis(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP1, model.OpGenesis, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	if master, ok := masterAddress(d.Network); ok && rec.Receiver != master {
		return Err("receiver is not master address")
	}
	if rec.Qt == nil || !rec.Qt.IsIntegral() {
		return Err("qt must be integral for genesis")
	}
	scale := rec.DeValue()
	mi := rec.Mi != nil && *rec.Mi
	pa := rec.Pa != nil && *rec.Pa

	minted := *rec.Qt
	if mi {
		minted = model.Zero(scale)
	}
	ct := &model.Contract{
		TokenID: rec.ID, Height: rec.Height, Index: rec.Index,
		Type: model.SLP1, Name: rec.Na, Symbol: rec.Sy, Owner: rec.Emitter,
		Document: rec.Du, Notes: rec.No, Paused: false,
		PauseCapable: pa, MintCapable: mi, Scale: scale,
		GlobalSupply: rec.Qt, Minted: &minted,
	}
	zero := model.Zero(scale)
	ct.Burned, ct.Crossed = &zero, &zero
	if err := d.Contracts.Insert(ctx, ct); err != nil {
		return Err("contract already exists")
	}
	owner := &model.SLP1Wallet{Address: rec.Emitter, TokenID: rec.ID, Balance: minted, Owner: true, BlockStamp: rec.Stamp()}
	if err := d.SLP1.Upsert(ctx, owner); err != nil {
		return Err("failed to create owner wallet")
	}
	return Ok()
}

// slp1Burn debits the owner's wallet and increments burned (spec.md §4.4
// SLP1 BURN). "Owner" here is the record's emitter, checked against the
// wallet's Owner flag per the wallet monotonicity and ownership rules.
func slp1Burn(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP1, model.OpBurn, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	if master, ok := masterAddress(d.Network); ok && rec.Receiver != master {
		return Err("receiver is not master address")
	}
	ct, ok, err := d.Contracts.Get(ctx, rec.ID)
	if err != nil || !ok {
		return Err("unknown tokenId")
	}
	if ct.Paused {
		return Err("contract is paused")
	}
	if rec.Qt == nil || !rec.Qt.IsIntegral() {
		return Err("qt must be integral for burn")
	}
	w, ok, err := d.SLP1.Get(ctx, rec.Emitter, rec.ID)
	if err != nil || !ok || !w.Owner {
		return Err("emitter is not the owner wallet")
	}
	if !stampAdvances(rec, w.BlockStamp) {
		return Err("blockstamp does not advance wallet")
	}
	if !w.Balance.GreaterThanOrEqual(*rec.Qt) {
		return Err("balance insufficient for burn")
	}
	w.Balance = w.Balance.Sub(*rec.Qt)
	w.BlockStamp = rec.Stamp()
	if err := d.SLP1.Upsert(ctx, w); err != nil {
		return Err("failed to debit owner wallet")
	}
	newBurned := ct.Burned.Add(*rec.Qt)
	ct.Burned = &newBurned
	if err := d.Contracts.Update(ctx, ct); err != nil {
		return Err("failed to update burned counter")
	}
	return Ok()
}

// slp1Mint credits the owner and increments minted, bounded by
// globalSupply (spec.md §4.4 SLP1 MINT).
func slp1Mint(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP1, model.OpMint, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	if master, ok := masterAddress(d.Network); ok && rec.Receiver != master {
		return Err("receiver is not master address")
	}
	ct, ok, err := d.Contracts.Get(ctx, rec.ID)
	if err != nil || !ok {
		return Err("unknown tokenId")
	}
	if !ct.MintCapable {
		return Err("genesis did not declare mi=true")
	}
	if rec.Qt == nil || !rec.Qt.IsIntegral() {
		return Err("qt must be integral for mint")
	}
	w, ok, err := d.SLP1.Get(ctx, rec.Emitter, rec.ID)
	if err != nil || !ok || !w.Owner {
		return Err("emitter is not the owner wallet")
	}
	if !stampAdvances(rec, w.BlockStamp) {
		return Err("blockstamp does not advance wallet")
	}
	projected := ct.Minted.Add(*ct.Burned).Add(*ct.Crossed).Add(*rec.Qt)
	if projected.GreaterThan(*ct.GlobalSupply) {
		return Err("overflows allowed supply")
	}
	w.Balance = w.Balance.Add(*rec.Qt)
	w.BlockStamp = rec.Stamp()
	if err := d.SLP1.Upsert(ctx, w); err != nil {
		return Err("failed to credit owner wallet")
	}
	newMinted := ct.Minted.Add(*rec.Qt)
	ct.Minted = &newMinted
	if err := d.Contracts.Update(ctx, ct); err != nil {
		return Err("failed to update minted counter")
	}
	return Ok()
}

// slp1Send executes the atomic exchange between emitter and receiver
// (spec.md §4.4 SLP1 SEND). The precondition is `balance > qt` (strict),
// carried unchanged from spec.md — see SPEC_FULL.md Open Question #1.
func slp1Send(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP1, model.OpSend, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	ct, ok, err := d.Contracts.Get(ctx, rec.ID)
	if err != nil || !ok {
		return Err("unknown tokenId")
	}
	if ct.Paused {
		return Err("contract is paused")
	}
	emitter, ok, err := d.SLP1.Get(ctx, rec.Emitter, rec.ID)
	if err != nil || !ok {
		return Err("emitter wallet does not exist")
	}
	if emitter.Frozen {
		return Err("emitter wallet is frozen")
	}
	if rec.Qt == nil || !emitter.Balance.GreaterThan(*rec.Qt) {
		return Err("balance not strictly greater than qt")
	}
	if !stampAdvances(rec, emitter.BlockStamp) {
		return Err("blockstamp does not advance emitter wallet")
	}
	ok2, err := journal.ExchangeSLP1(ctx, d.SLP1, rec.ID, rec.Emitter, rec.Receiver, *rec.Qt, rec.Stamp())
	if err != nil || !ok2 {
		return Err("exchange failed")
	}
	return Ok()
}

// slp1NewOwner transfers the emitter's entire balance to the receiver and
// flips ownership (spec.md §4.4 SLP1 NEWOWNER).
func slp1NewOwner(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP1, model.OpNewOwner, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	ct, ok, err := d.Contracts.Get(ctx, rec.ID)
	if err != nil || !ok {
		return Err("unknown tokenId")
	}
	emitter, ok, err := d.SLP1.Get(ctx, rec.Emitter, rec.ID)
	if err != nil || !ok || !emitter.Owner {
		return Err("emitter is not the current owner")
	}
	if !stampAdvances(rec, emitter.BlockStamp) {
		return Err("blockstamp does not advance emitter wallet")
	}
	whole := emitter.Balance
	ok2, err := journal.ExchangeSLP1(ctx, d.SLP1, rec.ID, rec.Emitter, rec.Receiver, whole, rec.Stamp())
	if err != nil || !ok2 {
		return Err("exchange failed")
	}
	emitter.Balance = emitter.Balance.Sub(whole)
	emitter.Owner = false
	emitter.BlockStamp = rec.Stamp()
	if err := d.SLP1.Upsert(ctx, emitter); err != nil {
		return Err("failed to clear previous owner flag")
	}
	receiver, ok, err := d.SLP1.Get(ctx, rec.Receiver, rec.ID)
	if err != nil || !ok {
		return Err("receiver wallet missing after exchange")
	}
	receiver.Owner = true
	if err := d.SLP1.Upsert(ctx, receiver); err != nil {
		return Err("failed to set new owner flag")
	}
	ct.Owner = rec.Receiver
	if err := d.Contracts.Update(ctx, ct); err != nil {
		return Err("failed to update contract owner")
	}
	return Ok()
}

// slp1Freeze returns a handler toggling the receiver's frozen flag,
// restricted to the token owner (spec.md §4.4 SLP1 FREEZE/UNFREEZE).
func slp1Freeze(frozen bool) Handler {
	op := model.OpFreeze
	if !frozen {
		op = model.OpUnfreeze
	}
	return func(ctx context.Context, d Deps, rec *model.Record) Result {
		if !costSatisfied(d.Network, model.SLP1, op, rec.Height, rec.Cost) {
			return Err("cost below milestone minimum")
		}
		_, ok, err := d.Contracts.Get(ctx, rec.ID)
		if err != nil || !ok {
			return Err("unknown tokenId")
		}
		emitter, ok, err := d.SLP1.Get(ctx, rec.Emitter, rec.ID)
		if err != nil || !ok || !emitter.Owner {
			return Err("emitter is not the owner")
		}
		w, ok, err := d.SLP1.Get(ctx, rec.Receiver, rec.ID)
		if err != nil || !ok {
			return Err("receiver wallet does not exist")
		}
		if !stampAdvances(rec, w.BlockStamp) {
			return Err("blockstamp does not advance receiver wallet")
		}
		w.Frozen = frozen
		w.BlockStamp = rec.Stamp()
		if err := d.SLP1.Upsert(ctx, w); err != nil {
			return Err("failed to update frozen flag")
		}
		return Ok()
	}
}

// slp1PauseResume returns a handler toggling the contract's paused flag,
// restricted to the token owner and requiring pa=true on genesis
// (spec.md §4.4 SLP1 PAUSE/RESUME).
func slp1PauseResume(paused bool) Handler {
	op := model.OpPause
	if !paused {
		op = model.OpResume
	}
	return func(ctx context.Context, d Deps, rec *model.Record) Result {
		ct, ok, err := d.Contracts.Get(ctx, rec.ID)
		if err != nil || !ok {
			return Err("unknown tokenId")
		}
		if !ct.PauseCapable {
			return Err("genesis did not declare pa=true")
		}
		if !costSatisfied(d.Network, model.SLP1, op, rec.Height, rec.Cost) {
			return Err("cost below milestone minimum")
		}
		if master, ok := masterAddress(d.Network); ok && rec.Receiver != master {
			return Err("receiver is not master address")
		}
		emitter, ok, err := d.SLP1.Get(ctx, rec.Emitter, rec.ID)
		if err != nil || !ok || !emitter.Owner {
			return Err("emitter is not the owner")
		}
		ct.Paused = paused
		if err := d.Contracts.Update(ctx, ct); err != nil {
			return Err("failed to update paused flag")
		}
		return Ok()
	}
}

// stampAdvances enforces the common blockstamp-monotonicity precondition:
// every op touching a wallet requires the op's H#I to be strictly greater
// than the wallet's current blockstamp (spec.md §4.4).
func stampAdvances(rec *model.Record, current model.BlockStamp) bool {
	return rec.Stamp().Greater(current)
}
