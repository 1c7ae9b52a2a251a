package engine

import (
	"context"
	"testing"

	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/model"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

func testNetwork(t *testing.T) *config.Network {
	t.Helper()
	return &config.Network{
		Name: "test",
		Values: map[string]interface{}{
			"master address": "master",
			"cost": map[string]interface{}{
				"_slp1": map[string]interface{}{"GENESIS": float64(0), "SEND": float64(0), "MINT": float64(0)},
				"_slp2": map[string]interface{}{"GENESIS": float64(0), "ADDMETA": float64(0), "CLONE": float64(0)},
			},
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, store.Collections) {
	t.Helper()
	mem := store.NewMemory()
	deps := Deps{Contracts: mem.Contracts(), SLP1: mem.SLP1(), SLP2: mem.SLP2(), Network: testNetwork(t)}
	return New(deps, mem.Journal(), mem.Rejected()), mem
}

func qtAmount(units int64) *model.Amount {
	a := model.NewAmount(units, 0)
	return &a
}

// journalled appends rec to mem's journal, which Engine.Apply expects to
// have happened before it runs, and returns rec.
func journalled(t *testing.T, mem store.Collections, rec *model.Record) *model.Record {
	t.Helper()
	if err := mem.Journal().Append(context.Background(), rec); err != nil {
		t.Fatalf("journal append: %v", err)
	}
	return rec
}

func TestEngineSLP1GenesisThenSend(t *testing.T) {
	ctx := context.Background()
	e, mem := newTestEngine(t)

	genesis := &model.Record{
		Height: 1, Index: 1, Txid: "g1", SlpType: model.SLP1, Tp: model.OpGenesis,
		ID: "tok1", Emitter: "alice", Receiver: "master", Sy: "TOK", Qt: qtAmount(1000),
	}
	res, err := e.Apply(ctx, journalled(t, mem, genesis))
	if err != nil {
		t.Fatalf("genesis apply: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected genesis to pass, got %q", res.Comment)
	}

	send := &model.Record{
		Height: 2, Index: 1, Txid: "s1", SlpType: model.SLP1, Tp: model.OpSend,
		ID: "tok1", Emitter: "alice", Receiver: "bob", Qt: qtAmount(400),
	}
	res, err = e.Apply(ctx, journalled(t, mem, send))
	if err != nil {
		t.Fatalf("send apply: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected send to pass, got %q", res.Comment)
	}

	alice, _, _ := mem.SLP1().Get(ctx, "alice", "tok1")
	bob, _, _ := mem.SLP1().Get(ctx, "bob", "tok1")
	if alice.Balance.String() != "600" {
		t.Fatalf("expected alice balance 600, got %s", alice.Balance)
	}
	if bob.Balance.String() != "400" {
		t.Fatalf("expected bob balance 400, got %s", bob.Balance)
	}
}

func TestEngineSLP1SendRejectsEqualBalance(t *testing.T) {
	ctx := context.Background()
	e, mem := newTestEngine(t)

	genesis := &model.Record{
		Height: 1, Index: 1, Txid: "g1", SlpType: model.SLP1, Tp: model.OpGenesis,
		ID: "tok1", Emitter: "alice", Receiver: "master", Qt: qtAmount(500),
	}
	if res, err := e.Apply(ctx, journalled(t, mem, genesis)); err != nil || !res.OK {
		t.Fatalf("genesis failed: %v %q", err, res.Comment)
	}

	send := &model.Record{
		Height: 2, Index: 1, Txid: "s1", SlpType: model.SLP1, Tp: model.OpSend,
		ID: "tok1", Emitter: "alice", Receiver: "bob", Qt: qtAmount(500),
	}
	res, err := e.Apply(ctx, journalled(t, mem, send))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.OK {
		t.Fatalf("expected send of exactly the full balance to be rejected (strict >)")
	}
}

func TestEngineSLP1ApplyIsNotReapplicable(t *testing.T) {
	ctx := context.Background()
	e, mem := newTestEngine(t)
	rec := &model.Record{
		Height: 1, Index: 1, Txid: "g1", SlpType: model.SLP1, Tp: model.OpGenesis,
		ID: "tok1", Emitter: "alice", Receiver: "master", Qt: qtAmount(10),
	}
	if res, err := e.Apply(ctx, journalled(t, mem, rec)); err != nil || !res.OK {
		t.Fatalf("first apply failed: %v %q", err, res.Comment)
	}
	if _, err := e.Apply(ctx, rec); err == nil {
		t.Fatalf("expected re-application of a replayed record to be refused")
	}
}

func TestEngineSLP1MintRejectsOverSupply(t *testing.T) {
	ctx := context.Background()
	e, mem := newTestEngine(t)
	mi := true
	genesis := &model.Record{
		Height: 1, Index: 1, Txid: "g1", SlpType: model.SLP1, Tp: model.OpGenesis,
		ID: "tok1", Emitter: "alice", Receiver: "master", Qt: qtAmount(100), Mi: &mi,
	}
	if res, err := e.Apply(ctx, journalled(t, mem, genesis)); err != nil || !res.OK {
		t.Fatalf("genesis failed: %v %q", err, res.Comment)
	}
	mint := &model.Record{
		Height: 2, Index: 1, Txid: "m1", SlpType: model.SLP1, Tp: model.OpMint,
		ID: "tok1", Emitter: "alice", Receiver: "master", Qt: qtAmount(200),
	}
	res, err := e.Apply(ctx, journalled(t, mem, mint))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.OK || res.Comment != "overflows allowed supply" {
		t.Fatalf("expected mint beyond global supply to be rejected, got ok=%v %q", res.OK, res.Comment)
	}
}

func TestEngineSLP2GenesisAddMetaAndClone(t *testing.T) {
	ctx := context.Background()
	e, mem := newTestEngine(t)

	genesis := &model.Record{
		Height: 1, Index: 1, Txid: "g1", SlpType: model.SLP2, Tp: model.OpGenesis,
		ID: "meta1", Emitter: "alice", Receiver: "master", Sy: "MT", Na: "Meta Token",
	}
	if res, err := e.Apply(ctx, journalled(t, mem, genesis)); err != nil || !res.OK {
		t.Fatalf("genesis failed: %v %q", err, res.Comment)
	}

	add := &model.Record{
		Height: 2, Index: 1, Txid: "a1", SlpType: model.SLP2, Tp: model.OpAddMeta,
		ID: "meta1", Emitter: "alice", Receiver: "master", Na: "color", Dt: "blue",
	}
	if res, err := e.Apply(ctx, journalled(t, mem, add)); err != nil || !res.OK {
		t.Fatalf("addmeta failed: %v %q", err, res.Comment)
	}

	clone := &model.Record{
		Height: 3, Index: 1, Txid: "c1", SlpType: model.SLP2, Tp: model.OpClone,
		ID: "meta1", Emitter: "alice", Receiver: "master", Sy: "MT",
	}
	res, err := e.Apply(ctx, journalled(t, mem, clone))
	if err != nil {
		t.Fatalf("clone apply: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected clone to pass, got %q", res.Comment)
	}

	newID := deriveCloneID(clone, "MT")
	ct, ok, _ := mem.Contracts().Get(ctx, newID)
	if !ok {
		t.Fatalf("expected cloned contract to exist")
	}
	if ct.Symbol != "MT" {
		t.Fatalf("expected cloned contract to carry source symbol, got %q", ct.Symbol)
	}
	owner, ok, _ := mem.SLP2().Get(ctx, "alice", newID)
	if !ok {
		t.Fatalf("expected cloned owner wallet to exist")
	}
	pairs, err := model.UnpackMetadata(owner.Metadata)
	if err != nil {
		t.Fatalf("unpack cloned metadata: %v", err)
	}
	found := false
	for _, p := range pairs {
		if p.Key == "color" && p.Value == "blue" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected cloned metadata to carry source pairs, got %v", pairs)
	}
}

func TestEngineSLP2PauseRequiresPauseCapable(t *testing.T) {
	ctx := context.Background()
	e, mem := newTestEngine(t)
	genesis := &model.Record{
		Height: 1, Index: 1, Txid: "g1", SlpType: model.SLP2, Tp: model.OpGenesis,
		ID: "meta1", Emitter: "alice", Receiver: "master",
	}
	if res, err := e.Apply(ctx, journalled(t, mem, genesis)); err != nil || !res.OK {
		t.Fatalf("genesis failed: %v %q", err, res.Comment)
	}
	pause := &model.Record{
		Height: 2, Index: 1, Txid: "p1", SlpType: model.SLP2, Tp: model.OpPause,
		ID: "meta1", Emitter: "alice",
	}
	res, err := e.Apply(ctx, journalled(t, mem, pause))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.OK {
		t.Fatalf("expected pause to be rejected when genesis did not declare pa=true")
	}
}
