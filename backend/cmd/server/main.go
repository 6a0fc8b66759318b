package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gst-graph/backend/internal/api"
	"gst-graph/backend/internal/graph"
	"gst-graph/backend/internal/ingest"
	"gst-graph/backend/internal/reconcile"
	"gst-graph/backend/internal/risk"
	"gst-graph/backend/pkg/config"
	"gst-graph/backend/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting GST graph reconciliation server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize the graph store for the configured backend. Connect failures
	// are fatal: the process must not run half-initialized.
	store := newStore(cfg)
	ctx := context.Background()
	if err := store.Connect(ctx); err != nil {
		log.Fatal("Failed to connect graph backend",
			zap.String("backend", string(cfg.GraphBackend)),
			zap.Error(err),
		)
	}
	defer store.Close(context.Background())

	if err := store.CreateConstraints(ctx); err != nil {
		log.Fatal("Failed to create constraints", zap.Error(err))
	}

	if err := seed(ctx, cfg, store, log); err != nil {
		log.Fatal("Failed to load seed data", zap.Error(err))
	}

	// Initialize the engines around the store handle
	scorer := risk.NewEngine(store)
	reconciler := reconcile.NewEngine(store, scorer, cfg.MaxCycleDepth)
	handler := api.NewHandler(cfg, store, reconciler, scorer)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(api.RequestID())
	router.Use(api.RequestLogger(log))
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler.Register(router)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("backend", string(cfg.GraphBackend)),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// newStore builds the store for the configured backend.
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

// seed loads the static seed data when the graph is empty, then re-applies
// any previously uploaded CSVs so uploads survive restarts.
func seed(ctx context.Context, cfg *config.Config, store graph.Store, log *zap.Logger) error {
	summary, err := store.Summary(ctx)
	if err != nil {
		return err
	}
	if summary.VendorCount == 0 {
		log.Info("Graph is empty, loading seed data", zap.String("dir", cfg.DataDir))
		vendors, invoices, err := ingest.LoadDir(ctx, cfg.DataDir, store)
		if err != nil {
			return err
		}
		log.Info("Seed data loaded", zap.Int("vendors", vendors), zap.Int("invoices", invoices))
	}

	uploads, _ := filepath.Glob(filepath.Join(cfg.UploadsDir, "*.csv"))
	if len(uploads) > 0 {
		log.Info("Re-applying uploaded CSVs", zap.String("dir", cfg.UploadsDir))
		vendors, invoices, err := ingest.LoadDir(ctx, cfg.UploadsDir, store)
		if err != nil {
			return err
		}
		log.Info("Uploads re-applied", zap.Int("vendors", vendors), zap.Int("invoices", invoices))
	}
	return nil
}
