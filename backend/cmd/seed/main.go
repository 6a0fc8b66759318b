package main

import (
	"context"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"gst-graph/backend/internal/graph"
	"gst-graph/backend/internal/ingest"
	"gst-graph/backend/pkg/config"
	"gst-graph/backend/pkg/logger"
)

func main() {
	dataDir := flag.String("data-dir", "", "Directory containing vendors.csv and invoices.csv (defaults to DATA_DIR)")
	reset := flag.Bool("reset", false, "Clear the graph before loading")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting graph seeding...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	dir := cfg.DataDir
	if *dataDir != "" {
		dir = *dataDir
	}

	store := newStore(cfg)
	ctx := context.Background()
	if err := store.Connect(ctx); err != nil {
		log.Fatal("Failed to connect graph backend",
			zap.String("backend", string(cfg.GraphBackend)),
			zap.Error(err),
		)
	}
	defer store.Close(context.Background())

	if *reset {
		log.Info("Clearing existing graph data")
		if err := store.Clear(ctx); err != nil {
			log.Fatal("Failed to clear graph", zap.Error(err))
		}
	}

	if err := store.CreateConstraints(ctx); err != nil {
		log.Fatal("Failed to create constraints", zap.Error(err))
	}

	vendors, invoices, err := ingest.LoadDir(ctx, dir, store)
	if err != nil {
		log.Fatal("Failed to load CSV data", zap.Error(err))
	}

	log.Info("Seeding complete",
		zap.String("dir", dir),
		zap.Int("vendors", vendors),
		zap.Int("invoices", invoices),
	)
}

func newStore(cfg *config.Config) graph.Store {
	switch cfg.GraphBackend {
	case config.BackendNeo4j:
		return graph.NewNeo4jStore(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	case config.BackendNeptune:
		return graph.NewNeptuneStore(cfg.NeptuneEndpoint)
	case config.BackendArango:
		return graph.NewArangoStore(cfg.ArangoURL, cfg.ArangoDB, cfg.ArangoUser, cfg.ArangoPassword)
	default:
		return graph.NewMemoryStore()
	}
}
