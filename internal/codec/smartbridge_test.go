package codec

import (
	"regexp"
	"testing"

	"github.com/synnergy-labs/slpindexer/internal/model"
)

func testTable() *FormatTable {
	return &FormatTable{
		Regex: regexp.MustCompile(`^_slp[12]://[0-9a-f]+`),
		OpCode: map[model.Family]map[model.Op]byte{
			model.SLP1: {model.OpGenesis: 0x01, model.OpSend: 0x02, model.OpBurn: 0x03},
			model.SLP2: {model.OpGenesis: 0x01},
		},
		CodeOp: map[model.Family]map[byte]model.Op{
			model.SLP1: {0x01: model.OpGenesis, 0x02: model.OpSend, 0x03: model.OpBurn},
			model.SLP2: {0x01: model.OpGenesis},
		},
		Variants: map[model.Family]map[byte]Variant{
			model.SLP1: {
				0x01: {Family: model.SLP1, Op: model.OpGenesis, HasVaria: true, Fields: []FieldSpec{
					{Name: "tp", Kind: KindU8}, {Name: "de", Kind: KindU8},
					{Name: "qt", Kind: KindU64}, {Name: "pa", Kind: KindBool}, {Name: "mi", Kind: KindBool},
				}},
				0x02: {Family: model.SLP1, Op: model.OpSend, Fields: []FieldSpec{
					{Name: "tp", Kind: KindU8}, {Name: "id", Kind: KindFixedBytes, Width: 16},
					{Name: "qt", Kind: KindU64},
				}},
				0x03: {Family: model.SLP1, Op: model.OpBurn, Fields: []FieldSpec{
					{Name: "tp", Kind: KindU8}, {Name: "id", Kind: KindFixedBytes, Width: 16},
					{Name: "qt", Kind: KindU64},
				}},
			},
			model.SLP2: {
				0x01: {Family: model.SLP2, Op: model.OpGenesis, HasVaria: true, Fields: []FieldSpec{
					{Name: "tp", Kind: KindU8}, {Name: "pa", Kind: KindBool},
				}},
			},
		},
	}
}

func TestPackUnpackGenesisRoundTrip(t *testing.T) {
	table := testTable()
	pa, mi := false, true
	qt := model.NewAmount(1000, 0)
	rec := &model.Record{
		SlpType: model.SLP1, Tp: model.OpGenesis, Qt: &qt, Pa: &pa, Mi: &mi,
		Sy: "FOO", Na: "Foo Token", Du: "https://example.com/foo.json", No: "a note",
	}
	rec.SetDe(0)

	wire, err := Pack(table, rec)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(wire) > MaxWireLength {
		t.Fatalf("wire too long: %d", len(wire))
	}

	got, err := Unpack(table, wire)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got.Tp != model.OpGenesis || got.SlpType != model.SLP1 {
		t.Fatalf("unexpected op/family: %+v", got)
	}
	if got.Qt.Cmp(qt) != 0 {
		t.Fatalf("qt mismatch: got %s want %s", got.Qt, qt)
	}
	if got.Pa == nil || *got.Pa != pa {
		t.Fatalf("pa mismatch")
	}
	if got.Mi == nil || *got.Mi != mi {
		t.Fatalf("mi mismatch")
	}
	if got.Sy != rec.Sy || got.Na != rec.Na || got.Du != rec.Du || got.No != rec.No {
		t.Fatalf("varia mismatch: got sy=%q na=%q du=%q no=%q", got.Sy, got.Na, got.Du, got.No)
	}
}

func TestPackUnpackSLP2GenesisVaria(t *testing.T) {
	table := testTable()
	pa := true
	rec := &model.Record{
		SlpType: model.SLP2, Tp: model.OpGenesis, Pa: &pa,
		Sy: "BAR", Na: "Bar Meta Token", Du: "", No: "",
	}

	wire, err := Pack(table, rec)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	got, err := Unpack(table, wire)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got.Sy != rec.Sy || got.Na != rec.Na || got.Du != rec.Du || got.No != rec.No {
		t.Fatalf("varia mismatch: got sy=%q na=%q du=%q no=%q", got.Sy, got.Na, got.Du, got.No)
	}
}

func TestPackUnpackSendWithID(t *testing.T) {
	table := testTable()
	qt := model.NewAmount(250, 2)
	rec := &model.Record{SlpType: model.SLP1, Tp: model.OpSend, ID: "aabbccdd00000000000000000000beef", Qt: &qt}
	rec.SetDe(2)

	wire, err := Pack(table, rec)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	got, err := Unpack(table, wire)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("id mismatch: got %s want %s", got.ID, rec.ID)
	}
}

func TestUnpackRejectsBadPrefix(t *testing.T) {
	table := testTable()
	if _, err := Unpack(table, "not-a-smartbridge"); err == nil {
		t.Fatalf("expected InvalidSmartbridge error")
	}
}

func TestUnpackRejectsOverLength(t *testing.T) {
	table := testTable()
	long := "_slp1://" + string(make([]byte, MaxWireLength))
	if _, err := Unpack(table, long); err == nil {
		t.Fatalf("expected rejection of over-length wire string")
	}
}

func TestChunkBudgetAndSplit(t *testing.T) {
	budget := ChunkBudget(16)
	if budget <= 0 {
		t.Fatalf("expected positive budget, got %d", budget)
	}
	pairs := []model.MetaPair{
		{Key: "author", Value: "alice"},
		{Key: "license", Value: "MIT"},
	}
	chunks, err := ChunkMetadata(pairs, 8)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected metadata to split across chunks, got %d", len(chunks))
	}
}
