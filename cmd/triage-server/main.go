// cmd/triage-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"claims-triage/internal/claims"
	"claims-triage/internal/common/aws"
	"claims-triage/internal/common/config"
	"claims-triage/internal/common/database"
	"claims-triage/internal/common/logger"
	"claims-triage/internal/common/observability"
	"claims-triage/internal/models"
	"claims-triage/internal/notify"
	"claims-triage/internal/pipeline"
	"claims-triage/internal/routing"
	"claims-triage/internal/rules"
	"claims-triage/internal/scoring"
	"claims-triage/internal/search"
	"claims-triage/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting triage server...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Claim Store: Postgres when configured, in-memory otherwise ---
	var claimStore claims.Store
	if cfg.Database.Postgres.Host != "" {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		pgStore := claims.NewPostgresStore(pg.DB, log)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("claims schema migration failed", zap.Error(err))
		}
		claimStore = pgStore
		zapLog.Info("PostgreSQL claim store ready")
	} else {
		claimStore = claims.NewMemoryStore(log)
		zapLog.Info("No postgres host configured, using in-memory claim store")
	}

	// --- Rule Store ---
	ruleStore := rules.NewStore(cfg.Storage.RulesFile, log)
	if cfg.Routing.SeedDefaultRules {
		ruleStore.SeedDefaults()
	}

	// --- Routing Engine ---
	engine := routing.NewEngine(ruleStore, log,
		routing.WithClaimStore(claimStore),
		routing.WithFraudThreshold(cfg.Routing.FraudOverrideThreshold),
		routing.WithWorkers(cfg.Routing.RerouteWorkers),
	)

	// Every rule mutation triggers a full reroute pass against the
	// post-mutation snapshot.
	ruleStore.Subscribe(func(snapshot models.RuleSnapshot) {
		go engine.RerouteStored(context.Background(), snapshot)
	})

	// --- Pipeline Options ---
	opts := []pipeline.Option{pipeline.WithObservability(obs)}

	if cfg.Database.Redis.Address != "" {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()

		opts = append(opts, pipeline.WithCache(redisClient.Client, config.GetDuration(cfg.Routing.DecisionCacheTTL)))
		zapLog.Info("Redis decision cache enabled")
	}

	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		opts = append(opts, pipeline.WithIndexer(search.NewIndexer(esClient, cfg.Database.Elasticsearch.Index, log)))
		zapLog.Info("Elasticsearch decision indexing enabled")
	}

	if cfg.Notifications.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.SNS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		opts = append(opts, pipeline.WithNotifier(notify.New(snsClient, cfg.Notifications.SNS.TopicARN, log)))
		zapLog.Info("SNS fraud referral alerts enabled")
	}

	// Heuristic scoring is authoritative until a model artifact is wired in.
	scorer := scoring.New(nil, log)

	claimPipeline := pipeline.New(scorer, engine, claimStore, log, opts...)

	// --- API Server ---
	api := server.New(claimPipeline, claimStore, ruleStore, engine, log)
	apiServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: api.Routes(),
	}
	go func() {
		zapLog.Info("API server listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("API server failed", zap.Error(err))
		}
	}()

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status":        "ready",
				"rules_version": fmt.Sprintf("%d", ruleStore.Version()),
				"time":          time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("addr", cfg.Server.MetricsAddr))
		if err := http.ListenAndServe(cfg.Server.MetricsAddr, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping triage server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down API server", zap.Error(err))
	}

	zapLog.Info("Triage server stopped gracefully")
}
