package ingest

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/model"
)

func TestBlockQueueFIFOOrder(t *testing.T) {
	q := NewBlockQueue()
	q.Push(Block{Height: 1})
	q.Push(Block{Height: 2})
	b, ok := q.Pop()
	if !ok || b.Height != 1 {
		t.Fatalf("expected height 1 first, got %+v ok=%v", b, ok)
	}
	b, ok = q.Pop()
	if !ok || b.Height != 2 {
		t.Fatalf("expected height 2 second, got %+v ok=%v", b, ok)
	}
}

func TestBlockQueuePushFrontRequeuesAtHead(t *testing.T) {
	q := NewBlockQueue()
	q.Push(Block{Height: 2})
	q.PushFront(Block{Height: 1})
	b, ok := q.Pop()
	if !ok || b.Height != 1 {
		t.Fatalf("expected requeued block at head, got %+v ok=%v", b, ok)
	}
}

func TestBlockQueueStopUnblocksPop(t *testing.T) {
	q := NewBlockQueue()
	q.Stop()
	_, ok := q.Pop()
	if ok {
		t.Fatalf("expected Pop on a stopped empty queue to return ok=false")
	}
}

func TestPeerPoolDropRebuildsFromSeedWhenExhausted(t *testing.T) {
	seed := []string{"http://a", "http://b"}
	inSeed := func(p string) bool { return p == "http://a" || p == "http://b" }
	p := NewPeerPool(seed, rand.NewSource(1))
	first, err := p.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	p.Drop(first)
	second, err := p.Current()
	if err != nil {
		t.Fatalf("current after drop: %v", err)
	}
	if !inSeed(second) {
		t.Fatalf("expected peer after rebuild to come from seed, got %q", second)
	}
}

func TestPeerPoolCurrentErrorsOnEmptySeed(t *testing.T) {
	p := NewPeerPool(nil, rand.NewSource(1))
	if _, err := p.Current(); err == nil {
		t.Fatalf("expected error when no peers are configured")
	}
}

func TestMarkFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mf := NewMarkFile(dir, "testdb")

	loaded, err := mf.Load()
	if err != nil {
		t.Fatalf("load missing mark: %v", err)
	}
	if loaded.LastParsedBlock != 0 {
		t.Fatalf("expected zero mark for missing file, got %+v", loaded)
	}

	mark := &model.ProcessingMark{LastParsedBlock: 42, Peer: "http://a"}
	if err := mf.Save(mark); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded, err := mf.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.LastParsedBlock != 42 || reloaded.Peer != "http://a" {
		t.Fatalf("expected round-tripped mark, got %+v", reloaded)
	}

	if _, err := os.Stat(filepath.Join(dir, "testdb.mark.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be renamed away, stat err=%v", err)
	}
}

func TestUnvalidatedDumpAppendsOnePerFamily(t *testing.T) {
	dir := t.TempDir()
	dump := NewUnvalidatedDump(dir)
	defer dump.Close()

	rec := &model.Record{SlpType: model.SLP1, Tp: model.OpSend}
	if err := dump.Append(rec, "qt: invalid decimal"); err != nil {
		t.Fatalf("append: %v", err)
	}
	path := filepath.Join(dir, "unvalidated._slp1")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected non-empty dump file")
	}
}

func networkWithFormats() *config.Network {
	return &config.Network{
		Name: "test",
		Values: map[string]interface{}{
			"input types": map[string]interface{}{
				"_slp1": map[string]interface{}{"SEND": 1.0, "GENESIS": 0.0},
			},
		},
	}
}

func TestValidateFieldsRejectsBadID(t *testing.T) {
	net := networkWithFormats()
	rec := &model.Record{SlpType: model.SLP1, Tp: model.OpSend, ID: "not-hex"}
	if err := ValidateFields(net, 1, rec); err == nil {
		t.Fatalf("expected id validation failure")
	}
}

func TestValidateFieldsAcceptsWellFormedRecord(t *testing.T) {
	net := networkWithFormats()
	qt := model.NewAmount(5, 0)
	rec := &model.Record{SlpType: model.SLP1, Tp: model.OpSend, ID: "0123456789abcdef0123456789abcdef", Qt: &qt}
	if err := ValidateFields(net, 1, rec); err != nil {
		t.Fatalf("expected well-formed record to validate, got %v", err)
	}
}

func TestValidateFieldsRejectsUnrecognisedOp(t *testing.T) {
	net := networkWithFormats()
	rec := &model.Record{SlpType: model.SLP1, Tp: model.OpBurn}
	if err := ValidateFields(net, 1, rec); err == nil {
		t.Fatalf("expected BURN (not in this milestone's input types) to be rejected")
	}
}

func TestDecodeVendorFieldPrefersJSON(t *testing.T) {
	rec, err := DecodeVendorField(nil, `{"_slp1":{"tp":"SEND","qt":"12.50"}}`, func(string) int32 { return 2 })
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.SlpType != model.SLP1 || rec.Tp != model.OpSend {
		t.Fatalf("expected decoded SLP1 SEND, got %+v", rec)
	}
	if rec.Qt == nil || rec.Qt.String() != "12.50" {
		t.Fatalf("expected qt 12.50, got %v", rec.Qt)
	}
}

func TestDeriveGenesisIDIs32Hex(t *testing.T) {
	hash := func(b []byte) []byte {
		sum := make([]byte, 32)
		copy(sum, b)
		return sum
	}
	id := DeriveGenesisID(hash, model.SLP1, "TOK", 10, "txid1")
	if len(id) != 32 {
		t.Fatalf("expected 32 hex chars (16 bytes), got %d: %q", len(id), id)
	}
}
