package journal

import (
	"context"
	"testing"

	"github.com/synnergy-labs/slpindexer/internal/model"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

func TestAppendChainsPoH(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	appender := NewAppender(NewHasher("sha256"), mem.Journal())

	qt1 := model.NewAmount(1000, 0)
	r1 := &model.Record{Height: 10, Index: 1, Txid: "a", SlpType: model.SLP1, Tp: model.OpGenesis, ID: "tok", Qt: &qt1}
	if err := appender.Append(ctx, r1); err != nil {
		t.Fatalf("append r1: %v", err)
	}
	if len(r1.PoH) == 0 {
		t.Fatalf("expected non-empty poh")
	}
	// mark legit so it chains for the next record.
	if err := mem.Journal().SetLegit(ctx, 10, 1, model.LegitTrue, "", r1.PoH); err != nil {
		t.Fatalf("set legit: %v", err)
	}

	qt2 := model.NewAmount(5, 0)
	r2 := &model.Record{Height: 10, Index: 2, Txid: "b", SlpType: model.SLP1, Tp: model.OpBurn, ID: "tok", Qt: &qt2}
	if err := appender.Append(ctx, r2); err != nil {
		t.Fatalf("append r2: %v", err)
	}

	ok, err := VerifyPoH(NewHasher("sha256"), r2, r1.PoH)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected r2's poh to verify against r1's poh")
	}
}

func TestAppendRejectsDuplicateStamp(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	appender := NewAppender(NewHasher("sha256"), mem.Journal())
	qt := model.NewAmount(1, 0)
	r := &model.Record{Height: 1, Index: 1, SlpType: model.SLP1, Tp: model.OpGenesis, Qt: &qt}
	if err := appender.Append(ctx, r); err != nil {
		t.Fatalf("first append: %v", err)
	}
	r2 := &model.Record{Height: 1, Index: 1, SlpType: model.SLP1, Tp: model.OpGenesis, Qt: &qt}
	if err := appender.Append(ctx, r2); err == nil {
		t.Fatalf("expected duplicate (height,index) to be rejected")
	}
}

func TestSetLegitIsOneShot(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	j := mem.Journal()
	qt := model.NewAmount(1, 0)
	r := &model.Record{Height: 1, Index: 1, SlpType: model.SLP1, Tp: model.OpGenesis, Qt: &qt}
	if err := j.Append(ctx, r); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.SetLegit(ctx, 1, 1, model.LegitTrue, "", nil); err != nil {
		t.Fatalf("first setlegit: %v", err)
	}
	if err := j.SetLegit(ctx, 1, 1, model.LegitFalse, "replay", nil); err == nil {
		t.Fatalf("expected re-application to be refused")
	}
}

func TestExchangeSLP1CreditsAndDebits(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	wallets := mem.SLP1()
	src := &model.SLP1Wallet{Address: "A", TokenID: "tok", Balance: model.NewAmount(1000, 2)}
	if err := wallets.Upsert(ctx, src); err != nil {
		t.Fatalf("seed src: %v", err)
	}
	stamp := model.BlockStamp{Height: 11, Index: 1}
	ok, err := ExchangeSLP1(ctx, wallets, "tok", "A", "B", model.NewAmount(250, 2), stamp)
	if err != nil || !ok {
		t.Fatalf("exchange failed: ok=%v err=%v", ok, err)
	}
	srcAfter, _, _ := wallets.Get(ctx, "A", "tok")
	dstAfter, _, _ := wallets.Get(ctx, "B", "tok")
	if srcAfter.Balance.String() != "750.00" {
		t.Fatalf("expected src 750.00, got %s", srcAfter.Balance)
	}
	if dstAfter.Balance.String() != "250.00" {
		t.Fatalf("expected dst 250.00, got %s", dstAfter.Balance)
	}
}

func TestExchangeSLP1ReversesOnInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	wallets := mem.SLP1()
	src := &model.SLP1Wallet{Address: "A", TokenID: "tok", Balance: model.NewAmount(10, 2)}
	_ = wallets.Upsert(ctx, src)
	stamp := model.BlockStamp{Height: 11, Index: 1}
	ok, err := ExchangeSLP1(ctx, wallets, "tok", "A", "B", model.NewAmount(1000, 2), stamp)
	if err == nil || ok {
		t.Fatalf("expected exchange to fail on insufficient balance")
	}
	dstAfter, exists, _ := wallets.Get(ctx, "B", "tok")
	if exists && dstAfter.Balance.Cmp(model.Zero(2)) != 0 {
		t.Fatalf("expected dst credit to be reversed, got %v", dstAfter)
	}
}
