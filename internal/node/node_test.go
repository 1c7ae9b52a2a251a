package node

import (
	"context"
	"testing"
	"time"

	"github.com/synnergy-labs/slpindexer/internal/config"
	"github.com/synnergy-labs/slpindexer/internal/ingest"
	"github.com/synnergy-labs/slpindexer/internal/store"
)

type fakeBaseLayer struct{}

func (fakeBaseLayer) FetchBlockTransactions(ctx context.Context, peer string, height uint64) ([]ingest.Transaction, error) {
	return nil, nil
}

func (fakeBaseLayer) ListBlocks(ctx context.Context, peer string, fromHeight uint64, pageSize int) ([]ingest.Block, error) {
	return nil, nil
}

func testNetwork() *config.Network {
	return &config.Network{
		Name: "test",
		Values: map[string]interface{}{
			"database name":    "testdb",
			"poh hash":         "sha256",
			"serialized regex": "^_slp[12]://[0-9a-f]+$",
			"input types": map[string]interface{}{
				"_slp1": map[string]interface{}{"GENESIS": 0.0, "SEND": 1.0},
			},
			"slp formats": map[string]interface{}{
				"_slp1": map[string]interface{}{
					"GENESIS": []interface{}{"u8"},
					"SEND":    []interface{}{"u8"},
				},
			},
		},
	}
}

// TestNewWiresEveryComponent is a smoke test that node.New succeeds and
// every collaborator it is supposed to build is non-nil, without
// actually starting any worker goroutine.
func TestNewWiresEveryComponent(t *testing.T) {
	n, err := New(Config{
		Network:   testNetwork(),
		Store:     store.NewMemory(),
		BaseLayer: fakeBaseLayer{},
		SelfURL:   "http://self",
		DataDir:   t.TempDir(),
		PeerLimit: 5,
	})
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	if n.Registry == nil || n.Memory == nil || n.Messenger == nil || n.Broadcaster == nil {
		t.Fatalf("expected gossip collaborators to be wired")
	}
	if n.BlockParser == nil || n.Processor == nil || n.BlockQueue == nil || n.PeerPool == nil {
		t.Fatalf("expected ingest collaborators to be wired")
	}
	if n.Consensus == nil || n.Engine == nil || n.Appender == nil {
		t.Fatalf("expected journal/engine/consensus collaborators to be wired")
	}
}

// TestStartAndStopReleaseWorkers starts every worker goroutine and then
// stops them, exercising the STOP-flag-plus-sentinel shutdown path
// without leaving goroutines behind.
func TestStartAndStopReleaseWorkers(t *testing.T) {
	n, err := New(Config{
		Network:   testNetwork(),
		Store:     store.NewMemory(),
		BaseLayer: fakeBaseLayer{},
		SelfURL:   "http://self",
		DataDir:   t.TempDir(),
		PeerLimit: 5,
	})
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	cancel()
	n.Stop()
}
