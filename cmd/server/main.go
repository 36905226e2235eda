package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/djvaroli/cinemai/internal/adapter"
	"github.com/djvaroli/cinemai/internal/agent"
	"github.com/djvaroli/cinemai/internal/graph"
	"github.com/djvaroli/cinemai/internal/memory"
	"github.com/djvaroli/cinemai/internal/observability"
	"github.com/djvaroli/cinemai/internal/prompts"
	"github.com/djvaroli/cinemai/internal/session"
	"github.com/djvaroli/cinemai/pkg/config"
	"github.com/djvaroli/cinemai/pkg/logger"
)

func main() {
	if err := logger.Init("development", false); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURL,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	executor := graph.NewExecutor(driver)
	if err := executor.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	lib, err := prompts.Load(cfg.PromptDir)
	if err != nil {
		log.Fatal("Failed to load prompt templates", zap.Error(err))
	}

	store, err := memory.NewSnapshotStore(cfg.MemoryDir, cfg.MemoryDB)
	if err != nil {
		log.Fatal("Failed to open snapshot store", zap.Error(err))
	}
	defer store.Close()

	llm := adapter.NewLLMAdapter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.Temperature)
	metrics := observability.NewMetrics("cinemai")
	dispatcher := agent.NewDispatcher(
		agent.NewClassifier(llm, lib),
		agent.NewTranslator(llm, lib),
		executor,
		agent.NewComposer(llm, lib),
		agent.NewIntegrator(llm, lib),
		cfg.MemoryWindow,
	)
	dispatcher.SetMetrics(metrics)

	sessions := session.NewManager(store)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	registerRoutes(router, dispatcher, sessions, metrics, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
	log.Info("Server stopped")
}

// ginLogger adapts gin request logging to zap
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
