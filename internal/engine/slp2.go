package engine

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/synnergy-labs/slpindexer/internal/model"
)

func (e *Engine) registerSLP2() {
	e.register(model.SLP2, model.OpGenesis, slp2Genesis)
	e.register(model.SLP2, model.OpNewOwner, slp2NewOwner)
	e.register(model.SLP2, model.OpPause, slp2PauseResume(true))
	e.register(model.SLP2, model.OpResume, slp2PauseResume(false))
	e.register(model.SLP2, model.OpAuthMeta, slp2AuthMeta)
	e.register(model.SLP2, model.OpRevokeMeta, slp2RevokeMeta)
	e.register(model.SLP2, model.OpAddMeta, slp2AddMeta)
	e.register(model.SLP2, model.OpVoidMeta, slp2VoidMeta)
	e.register(model.SLP2, model.OpClone, slp2Clone)
}

// slp2Genesis inserts a contract and the owner's empty-metadata wallet
// (spec.md §4.4 SLP2 GENESIS).
func slp2Genesis(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP2, model.OpGenesis, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	if master, ok := masterAddress(d.Network); ok && rec.Receiver != master {
		return Err("receiver is not master address")
	}
	pa := rec.Pa != nil && *rec.Pa
	ct := &model.Contract{
		TokenID: rec.ID, Height: rec.Height, Index: rec.Index,
		Type: model.SLP2, Name: rec.Na, Symbol: rec.Sy, Owner: rec.Emitter,
		Document: rec.Du, Notes: rec.No, PauseCapable: pa,
	}
	if err := d.Contracts.Insert(ctx, ct); err != nil {
		return Err("contract already exists")
	}
	owner := &model.SLP2Wallet{Address: rec.Emitter, TokenID: rec.ID, Owner: true, BlockStamp: rec.Stamp()}
	if err := d.SLP2.Upsert(ctx, owner); err != nil {
		return Err("failed to create owner wallet")
	}
	return Ok()
}

// slp2NewOwner creates the receiver wallet if missing and flips ownership
// flags (spec.md §4.4 SLP2 NEWOWNER).
func slp2NewOwner(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP2, model.OpNewOwner, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	ct, ok, err := d.Contracts.Get(ctx, rec.ID)
	if err != nil || !ok {
		return Err("unknown tokenId")
	}
	emitter, ok, err := d.SLP2.Get(ctx, rec.Emitter, rec.ID)
	if err != nil || !ok || !emitter.Owner {
		return Err("emitter is not the current owner")
	}
	receiver, ok, err := d.SLP2.Get(ctx, rec.Receiver, rec.ID)
	if err != nil {
		return Err("failed to look up receiver wallet")
	}
	if !ok {
		receiver = &model.SLP2Wallet{Address: rec.Receiver, TokenID: rec.ID}
	}
	emitter.Owner = false
	emitter.BlockStamp = rec.Stamp()
	if err := d.SLP2.Upsert(ctx, emitter); err != nil {
		return Err("failed to clear previous owner flag")
	}
	receiver.Owner = true
	receiver.BlockStamp = rec.Stamp()
	if err := d.SLP2.Upsert(ctx, receiver); err != nil {
		return Err("failed to set new owner flag")
	}
	ct.Owner = rec.Receiver
	if err := d.Contracts.Update(ctx, ct); err != nil {
		return Err("failed to update contract owner")
	}
	return Ok()
}

// slp2PauseResume toggles the contract's paused flag, owner-only and
// requiring pa=true on genesis (spec.md §4.4 SLP2 PAUSE/RESUME).
func slp2PauseResume(paused bool) Handler {
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
		if !costSatisfied(d.Network, model.SLP2, op, rec.Height, rec.Cost) {
			return Err("cost below milestone minimum")
		}
		if master, ok := masterAddress(d.Network); ok && rec.Receiver != master {
			return Err("receiver is not master address")
		}
		emitter, ok, err := d.SLP2.Get(ctx, rec.Emitter, rec.ID)
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

// slp2AuthMeta inserts the receiver as an unauthorised-to-owner editor
// wallet (spec.md §4.4 SLP2 AUTHMETA).
func slp2AuthMeta(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP2, model.OpAuthMeta, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	_, ok, err := d.Contracts.Get(ctx, rec.ID)
	if err != nil || !ok {
		return Err("unknown tokenId")
	}
	emitter, ok, err := d.SLP2.Get(ctx, rec.Emitter, rec.ID)
	if err != nil || !ok || !emitter.Owner {
		return Err("emitter is not the owner")
	}
	if _, exists, err := d.SLP2.Get(ctx, rec.Receiver, rec.ID); err != nil {
		return Err("failed to look up receiver wallet")
	} else if exists {
		return Err("receiver is already an slp2 wallet for this token")
	}
	w := &model.SLP2Wallet{Address: rec.Receiver, TokenID: rec.ID, Owner: false, BlockStamp: rec.Stamp()}
	if err := d.SLP2.Upsert(ctx, w); err != nil {
		return Err("failed to create authorised wallet")
	}
	return Ok()
}

// slp2RevokeMeta deletes the receiver's SLP2 wallet (spec.md §4.4 SLP2
// REVOKEMETA): Authorised -> Revoked is terminal.
func slp2RevokeMeta(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP2, model.OpRevokeMeta, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	_, ok, err := d.Contracts.Get(ctx, rec.ID)
	if err != nil || !ok {
		return Err("unknown tokenId")
	}
	emitter, ok, err := d.SLP2.Get(ctx, rec.Emitter, rec.ID)
	if err != nil || !ok || !emitter.Owner {
		return Err("emitter is not the owner")
	}
	if _, exists, err := d.SLP2.Get(ctx, rec.Receiver, rec.ID); err != nil || !exists {
		return Err("receiver is not an slp2 wallet for this token")
	}
	if err := d.SLP2.Delete(ctx, rec.Receiver, rec.ID); err != nil {
		return Err("failed to delete authorised wallet")
	}
	return Ok()
}

// slp2AddMeta appends the emitter's metadata, either a single (na,dt)
// pair or a JSON object in dt (spec.md §4.4 SLP2 ADDMETA).
func slp2AddMeta(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP2, model.OpAddMeta, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	if master, ok := masterAddress(d.Network); ok && rec.Receiver != master {
		return Err("receiver is not master address")
	}
	_, ok, err := d.Contracts.Get(ctx, rec.ID)
	if err != nil || !ok {
		return Err("unknown tokenId")
	}
	w, ok, err := d.SLP2.Get(ctx, rec.Emitter, rec.ID)
	if err != nil || !ok {
		return Err("emitter is not an slp2 wallet for this token")
	}
	pairs, res := addMetaPairs(rec)
	if !res.OK {
		return res
	}
	merged, err := model.MergeMetadata(w.Metadata, pairs)
	if err != nil {
		return Err("failed to merge metadata")
	}
	w.Metadata = merged
	w.BlockStamp = rec.Stamp()
	if err := d.SLP2.Upsert(ctx, w); err != nil {
		return Err("failed to store metadata")
	}
	return Ok()
}

func addMetaPairs(rec *model.Record) ([]model.MetaPair, Result) {
	if rec.Na != "" {
		return []model.MetaPair{{Key: rec.Na, Value: rec.Dt}}, Ok()
	}
	if rec.Dt == "" {
		return nil, Err("addmeta requires na/dt pair or a json object in dt")
	}
	var bag map[string]string
	if err := json.Unmarshal([]byte(rec.Dt), &bag); err != nil {
		return nil, Err("dt is neither a na pair nor a valid json object")
	}
	pairs := make([]model.MetaPair, 0, len(bag))
	for k, v := range bag {
		pairs = append(pairs, model.MetaPair{Key: k, Value: v})
	}
	return pairs, Ok()
}

// slp2VoidMeta removes keys from the emitter's metadata (spec.md §4.4
// SLP2 VOIDMETA). The keys are taken from the VOIDMETA record itself: its
// na, or else the keys of a JSON object in its dt. No referenced record is
// looked up, so a VOIDMETA whose dt holds a txid (as the smartbridge
// VOIDMETA variant decodes it) is rejected.
func slp2VoidMeta(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP2, model.OpVoidMeta, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	if master, ok := masterAddress(d.Network); ok && rec.Receiver != master {
		return Err("receiver is not master address")
	}
	_, ok, err := d.Contracts.Get(ctx, rec.ID)
	if err != nil || !ok {
		return Err("unknown tokenId")
	}
	w, ok, err := d.SLP2.Get(ctx, rec.Emitter, rec.ID)
	if err != nil || !ok {
		return Err("emitter is not an slp2 wallet for this token")
	}
	keys, res := voidMetaKeys(rec)
	if !res.OK {
		return res
	}
	out, err := model.RemoveMetadataKeys(w.Metadata, keys)
	if err != nil {
		return Err("failed to remove metadata keys")
	}
	w.Metadata = out
	w.BlockStamp = rec.Stamp()
	if err := d.SLP2.Upsert(ctx, w); err != nil {
		return Err("failed to store metadata")
	}
	return Ok()
}

func voidMetaKeys(rec *model.Record) ([]string, Result) {
	if rec.Na != "" {
		return []string{rec.Na}, Ok()
	}
	if rec.Dt == "" {
		return nil, Err("voidmeta requires na or a json object in dt")
	}
	var bag map[string]string
	if err := json.Unmarshal([]byte(rec.Dt), &bag); err != nil {
		return nil, Err("dt is neither na nor a valid json object")
	}
	keys := make([]string, 0, len(bag))
	for k := range bag {
		keys = append(keys, k)
	}
	return keys, Ok()
}

// slp2Clone derives a new tokenId and copies the source token's combined
// metadata into a single new owner wallet (spec.md §4.4 SLP2 CLONE).
func slp2Clone(ctx context.Context, d Deps, rec *model.Record) Result {
	if !costSatisfied(d.Network, model.SLP2, model.OpClone, rec.Height, rec.Cost) {
		return Err("cost below milestone minimum")
	}
	if master, ok := masterAddress(d.Network); ok && rec.Receiver != master {
		return Err("receiver is not master address")
	}
	ct, ok, err := d.Contracts.Get(ctx, rec.ID)
	if err != nil || !ok {
		return Err("unknown tokenId")
	}
	emitter, ok, err := d.SLP2.Get(ctx, rec.Emitter, rec.ID)
	if err != nil || !ok || !emitter.Owner {
		return Err("emitter is not the owner")
	}
	wallets, err := d.SLP2.ByToken(ctx, rec.ID)
	if err != nil {
		return Err("failed to enumerate source wallets")
	}
	blobs := make([][]byte, 0, len(wallets))
	for _, w := range wallets {
		blobs = append(blobs, w.Metadata)
	}
	merged, err := model.ConcatMetadata(blobs)
	if err != nil {
		return Err("failed to concatenate source metadata")
	}
	packed, err := model.PackMetadata(merged)
	if err != nil {
		return Err("failed to pack cloned metadata")
	}

	newID := deriveCloneID(rec, ct.Symbol)
	newCt := &model.Contract{
		TokenID: newID, Height: rec.Height, Index: rec.Index,
		Type: model.SLP2, Name: ct.Name, Symbol: ct.Symbol, Owner: rec.Emitter,
		Document: ct.Document, Notes: ct.Notes, PauseCapable: ct.PauseCapable,
	}
	if err := d.Contracts.Insert(ctx, newCt); err != nil {
		return Err("cloned tokenId already exists")
	}
	owner := &model.SLP2Wallet{Address: rec.Emitter, TokenID: newID, Owner: true, Metadata: packed, BlockStamp: rec.Stamp()}
	if err := d.SLP2.Upsert(ctx, owner); err != nil {
		return Err("failed to create cloned owner wallet")
	}
	return Ok()
}

// deriveCloneID computes the new token id the same way GENESIS ids are
// derived (spec.md §4.5, `get_token_id` in the original): md5 over
// "SLPTYPE.symbol.height.txid", which is always exactly 32 hex chars
// (spec.md §3 "id 32-hex"). symbol is the source GENESIS record's symbol
// (the contract's Symbol field, unchanged since genesis), not the CLONE
// record's own (empty) Sy field. height/txid are the CLONE record's own.
func deriveCloneID(rec *model.Record, symbol string) string {
	seed := fmt.Sprintf("%s.%s.%d.%s", strings.ToUpper(string(rec.SlpType)), symbol, rec.Height, rec.Txid)
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])
}
