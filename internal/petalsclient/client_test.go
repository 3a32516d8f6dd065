package petalsclient

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/dreamware/petals/internal/petalserr"
	"github.com/dreamware/petals/internal/query"
	"github.com/dreamware/petals/internal/wire"
)

func startTestServer(t *testing.T, d *wire.Dispatcher) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	s := wire.NewServer(d, 2*time.Second, 2*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Serve(ctx, ln)

	return ln.Addr().String()
}

func TestQuerySendsRequestAndDecodesShardList(t *testing.T) {
	d := wire.NewDispatcher()
	d.Register("query", func(ctx context.Context, msg wire.Message) (wire.Response, error) {
		var req struct {
			Store string `json:"store"`
			Query query.Predicate
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			t.Fatalf("server failed to decode request: %v", err)
		}
		if req.Store != "s" {
			t.Errorf("expected store s, got %s", req.Store)
		}
		body, _ := json.Marshal([]string{"shard-a", "shard-b"})
		return wire.Response{Format: wire.FormatJSON, Payload: body}, nil
	})

	addr := startTestServer(t, d)
	c := New(addr)
	c.Retries = 1

	raw, _ := json.Marshal("inactive")
	got, err := c.Query(context.Background(), "s", query.Predicate{Field: "status", Value: raw})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 2 || got[0] != "shard-a" || got[1] != "shard-b" {
		t.Errorf("unexpected shards: %v", got)
	}
}

func TestQueryPropagatesServerError(t *testing.T) {
	d := wire.NewDispatcher()
	d.Register("query", func(ctx context.Context, msg wire.Message) (wire.Response, error) {
		return wire.Response{}, petalserr.New(petalserr.KindMalformedPredicate, "zero-rule composite")
	})
	addr := startTestServer(t, d)
	c := New(addr)
	c.Retries = 1

	raw, _ := json.Marshal("x")
	_, err := c.Query(context.Background(), "s", query.Predicate{Field: "missing", Value: raw})
	if err == nil {
		t.Error("expected error for a failed query evaluation")
	}
}
