package gossip

import (
	"context"
	"encoding/json"
	"testing"
)

func TestRegistryBoundedAtLimit(t *testing.T) {
	r := NewRegistry(2)
	if !r.Add("a") || !r.Add("b") {
		t.Fatalf("expected first two adds to succeed")
	}
	if r.Add("c") {
		t.Fatalf("expected add beyond limit to fail")
	}
	if !r.AtLimit() {
		t.Fatalf("expected registry to report at-limit")
	}
	if r.Len() != 2 {
		t.Fatalf("expected len 2, got %d", r.Len())
	}
	r.Remove("a")
	if r.AtLimit() {
		t.Fatalf("expected registry to no longer be at-limit after remove")
	}
	if !r.Add("c") {
		t.Fatalf("expected add to succeed after remove freed a slot")
	}
}

func TestRegistryAddIsIdempotent(t *testing.T) {
	r := NewRegistry(5)
	if !r.Add("a") {
		t.Fatalf("expected first add to succeed")
	}
	if r.Add("a") {
		t.Fatalf("expected duplicate add to report false")
	}
	if r.Len() != 1 {
		t.Fatalf("expected len 1, got %d", r.Len())
	}
}

func TestMemoryDedupsByCanonicalHash(t *testing.T) {
	mem, err := NewMemory(8)
	if err != nil {
		t.Fatalf("new memory: %v", err)
	}
	key := CanonicalHash([]byte(`{"hello":{"peer":"http://a"}}`))
	if mem.SeenBefore(key) {
		t.Fatalf("expected first sighting to report false")
	}
	if !mem.SeenBefore(key) {
		t.Fatalf("expected second sighting to report true")
	}
}

func TestMemoryEvictsOldestOnOverflow(t *testing.T) {
	mem, err := NewMemory(2)
	if err != nil {
		t.Fatalf("new memory: %v", err)
	}
	mem.SeenBefore("a")
	mem.SeenBefore("b")
	mem.SeenBefore("c") // evicts "a"
	if mem.SeenBefore("a") {
		t.Fatalf("expected evicted key to report unseen")
	}
}

func TestMessengerDispatchesHello(t *testing.T) {
	mem, _ := NewMemory(8)
	var gotPeer string
	m := NewMessenger(mem, Handlers{
		OnHello: func(ctx context.Context, peer string) { gotPeer = peer },
	}, nil, nil)

	body, _ := json.Marshal(map[string]interface{}{"hello": map[string]string{"peer": "http://peer-a"}})
	if err := m.dispatch(context.Background(), Inbound{Kind: KindMessage, Body: body}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if gotPeer != "http://peer-a" {
		t.Fatalf("expected hello handler to receive peer-a, got %q", gotPeer)
	}
}

func TestMessengerSuppressesDuplicateMessages(t *testing.T) {
	mem, _ := NewMemory(8)
	calls := 0
	m := NewMessenger(mem, Handlers{
		OnHello: func(ctx context.Context, peer string) { calls++ },
	}, nil, nil)

	body, _ := json.Marshal(map[string]interface{}{"hello": map[string]string{"peer": "http://peer-a"}})
	item := Inbound{Kind: KindMessage, Body: body}
	_ = m.dispatch(context.Background(), item)
	_ = m.dispatch(context.Background(), item)
	if calls != 1 {
		t.Fatalf("expected hello to dispatch exactly once, got %d", calls)
	}
}

func TestMessengerSuppressesBlocksDuringBackfill(t *testing.T) {
	mem, _ := NewMemory(8)
	called := false
	m := NewMessenger(mem, Handlers{
		OnBlock: func(ctx context.Context, body []byte) error { called = true; return nil },
	}, func() bool { return true }, nil)

	if err := m.dispatch(context.Background(), Inbound{Kind: KindBlock, Body: []byte(`{}`)}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if called {
		t.Fatalf("expected block to be suppressed while backfill is active")
	}
}

func TestMessengerDispatchesBlocksWhenBackfillInactive(t *testing.T) {
	mem, _ := NewMemory(8)
	called := false
	m := NewMessenger(mem, Handlers{
		OnBlock: func(ctx context.Context, body []byte) error { called = true; return nil },
	}, func() bool { return false }, nil)

	if err := m.dispatch(context.Background(), Inbound{Kind: KindBlock, Body: []byte(`{}`)}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !called {
		t.Fatalf("expected block handler to run when backfill is inactive")
	}
}

type fakeTransport struct {
	peers map[string][]string
	posts []string
}

func (f *fakeTransport) PostMessage(ctx context.Context, peer string, body []byte) error {
	f.posts = append(f.posts, peer)
	return nil
}

func (f *fakeTransport) GetPeers(ctx context.Context, peer string) ([]string, error) {
	return f.peers[peer], nil
}

func TestProspectLearnsTransitivePeers(t *testing.T) {
	transport := &fakeTransport{peers: map[string][]string{
		"http://b": {"http://c"},
		"http://c": {},
	}}
	registry := NewRegistry(10)
	Prospect(context.Background(), transport, registry, "http://b", nil)

	if !registry.Has("http://b") || !registry.Has("http://c") {
		t.Fatalf("expected both b and c to be known, got %v", registry.List())
	}
}

func TestProspectStopsAtRegistryLimit(t *testing.T) {
	transport := &fakeTransport{peers: map[string][]string{
		"http://b": {"http://c", "http://d"},
	}}
	registry := NewRegistry(1)
	Prospect(context.Background(), transport, registry, "http://b", nil)

	if registry.Len() != 1 {
		t.Fatalf("expected registry to stay at its limit of 1, got %d", registry.Len())
	}
}

func TestBroadcasterDeliversToAllPeers(t *testing.T) {
	transport := &fakeTransport{peers: map[string][]string{}}
	b := NewBroadcaster(transport, nil)
	b.Enqueue(BroadcastJob{Body: []byte("x"), Peers: []string{"http://a", "http://b"}})
	b.Stop()
	b.Run(context.Background())

	if len(transport.posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(transport.posts))
	}
}
