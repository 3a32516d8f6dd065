// Command petalsd serves data-skipping index queries over the TCP/XML
// wire protocol described in spec.md §6.
//
// Architecture:
//
//	┌────────────────────────────────────────────┐
//	│                  petalsd                     │
//	├────────────────────────────────────────────┤
//	│  wire.Server (TCP, framed XML)                │
//	│    query     -> query.Evaluator               │
//	│    kv_get    -> kvstore.TTLStore               │
//	│    kv_set    -> kvstore.TTLStore               │
//	├────────────────────────────────────────────┤
//	│  catalog.Catalog  (lazy, backed by storage)   │
//	│  storage.Backend  (local FS or blob store)    │
//	└────────────────────────────────────────────┘
//
// Configuration (environment variables):
//   - PETALS_INDEX_DIR: local index root, used when PETALS_BLOB_BASE_URL is unset
//   - PETALS_BLOB_BASE_URL / PETALS_BLOB_BUCKET: blob-store backend, if set
//   - PETALS_LISTEN: TCP listen address (default ":9090")
//   - PETALS_READ_TIMEOUT_SECONDS / PETALS_WRITE_TIMEOUT_SECONDS: socket deadlines
//   - PETALS_KV_DEFAULT_TTL_SECONDS: default TTL for the kv side-store
package main

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/petals/internal/catalog"
	"github.com/dreamware/petals/internal/config"
	"github.com/dreamware/petals/internal/kvstore"
	"github.com/dreamware/petals/internal/petalserr"
	"github.com/dreamware/petals/internal/query"
	"github.com/dreamware/petals/internal/storage"
	"github.com/dreamware/petals/internal/wire"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

func main() {
	srvCfg := config.ServerConfigFromEnv()
	backend := newBackend()

	cat := catalog.New(backend)
	ctx := context.Background()
	if err := cat.LoadFromBackend(ctx, ""); err != nil {
		logFatal("loading catalog: %v", err)
	}

	evaluator := query.NewEvaluator(cat, catalog.NewShardOrdinals())
	kv := kvstore.New(srvCfg.KVDefaultTTL)

	dispatcher := wire.NewDispatcher()
	dispatcher.Register("query", queryHandler(evaluator))
	dispatcher.Register("kv_get", kvGetHandler(kv))
	dispatcher.Register("kv_set", kvSetHandler(kv))
	dispatcher.Register("message", echoHandler())

	server := wire.NewServer(dispatcher, srvCfg.ReadTimeout, srvCfg.WriteTimeout)

	ln, err := net.Listen("tcp", srvCfg.ListenAddr)
	if err != nil {
		logFatal("listen: %v", err)
	}

	serveCtx, cancel := context.WithCancel(ctx)
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	go kv.RunSweeper(sweepCtx, time.Second)

	go func() {
		log.Printf("petalsd listening on %s", srvCfg.ListenAddr)
		if err := server.Serve(serveCtx, ln); err != nil {
			logFatal("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cancel()
	cancelSweep()
	log.Println("petalsd stopped")
}

func newBackend() storage.Backend {
	if base := os.Getenv("PETALS_BLOB_BASE_URL"); base != "" {
		bucket := os.Getenv("PETALS_BLOB_BUCKET")
		return storage.NewBlobStoreBackend(base, bucket)
	}
	root := os.Getenv("PETALS_INDEX_DIR")
	if root == "" {
		root = "./index"
	}
	return storage.NewLocalFSBackend(root)
}

func queryHandler(evaluator *query.Evaluator) wire.HandlerFunc {
	return func(ctx context.Context, msg wire.Message) (wire.Response, error) {
		var req struct {
			Store string          `json:"store"`
			Query query.Predicate `json:"query"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return wire.Response{}, petalserr.Wrap(petalserr.KindProtocolError, "", err)
		}

		shards, err := evaluator.Eval(ctx, req.Query, req.Store)
		if err != nil {
			return wire.Response{}, err
		}

		body, err := json.Marshal(shards)
		if err != nil {
			return wire.Response{}, petalserr.Wrap(petalserr.KindProtocolError, "", err)
		}
		return wire.Response{Format: wire.FormatJSON, Payload: body}, nil
	}
}

func kvGetHandler(kv *kvstore.TTLStore) wire.HandlerFunc {
	return func(ctx context.Context, msg wire.Message) (wire.Response, error) {
		var req struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return wire.Response{}, petalserr.Wrap(petalserr.KindProtocolError, "", err)
		}
		value, err := kv.Get(req.Key)
		if err != nil {
			return wire.Response{}, petalserr.Newf(petalserr.KindProtocolError, "kv_get: %v", err)
		}
		return wire.Response{Format: wire.FormatText, Payload: value}, nil
	}
}

func kvSetHandler(kv *kvstore.TTLStore) wire.HandlerFunc {
	return func(ctx context.Context, msg wire.Message) (wire.Response, error) {
		var req struct {
			Key        string `json:"key"`
			Value      string `json:"value"`
			TTLSeconds int    `json:"ttl_seconds"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return wire.Response{}, petalserr.Wrap(petalserr.KindProtocolError, "", err)
		}
		kv.Set(req.Key, []byte(req.Value), time.Duration(req.TTLSeconds)*time.Second)
		return wire.Response{Format: wire.FormatText, Payload: []byte("ok")}, nil
	}
}

func echoHandler() wire.HandlerFunc {
	return func(ctx context.Context, msg wire.Message) (wire.Response, error) {
		return wire.Response{Format: msg.Format, Payload: msg.Payload}, nil
	}
}
