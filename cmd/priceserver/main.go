package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/spglobal/priceservice/internal/audit"
	"github.com/spglobal/priceservice/internal/config"
	"github.com/spglobal/priceservice/internal/feed"
	"github.com/spglobal/priceservice/internal/metrics"
	"github.com/spglobal/priceservice/internal/mirror"
	"github.com/spglobal/priceservice/internal/price"
	"github.com/spglobal/priceservice/internal/priceservice"
	"github.com/spglobal/priceservice/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/priceserver.local.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting priceserver",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"feed_url", cfg.Feed.URL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	pgPool, err := connectPostgres(ctx, cfg.Audit.Postgres)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("postgres connected", "host", cfg.Audit.Postgres.Host, "database", cfg.Audit.Postgres.Name)

	redisClient := redis.NewClient(&redis.Options{
		Addr:        cfg.Mirror.Addr,
		Password:    cfg.Mirror.Password,
		DB:          cfg.Mirror.DB,
		DialTimeout: cfg.Mirror.DialTimeout,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	logger.Info("redis connected", "addr", cfg.Mirror.Addr)

	metricsInstance := metrics.New()
	if err := metricsInstance.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}
	metrics.ServeHTTP(cfg.Metrics.Port, cfg.Metrics.Path, logger)

	svc := priceservice.New(
		priceservice.WithLogger(logger),
		priceservice.WithObserver(metricsInstance),
	)

	auditWriter := audit.NewWriter(audit.WriterConfig{
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
	}, svc, pgPool, logger)
	if err := auditWriter.Start(ctx); err != nil {
		logger.Error("failed to start audit writer", "error", err)
		os.Exit(1)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		auditWriter.Stop(stopCtx)
	}()

	mirrorWriter := mirror.NewWriter(redisClient, cfg.Mirror.KeyPrefix, svc, logger)
	go mirrorWriter.Run(ctx)

	adapter := feed.NewAdapter(feed.AdapterConfig{
		ClientConfig: feed.ClientConfig{
			URL:          cfg.Feed.URL,
			PingTimeout:  cfg.Feed.PingInterval,
			WriteTimeout: cfg.Feed.ReadTimeout,
		},
		BatchWindow:        time.Second,
		ReconnectBaseDelay: cfg.Feed.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Feed.ReconnectMaxDelay,
	}, svc, logger)

	go func() {
		if err := adapter.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("feed adapter stopped unexpectedly", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: newQueryHandler(svc, logger),
	}
	go func() {
		logger.Info("starting query http server", "port", cfg.HTTP.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("query http server error", "error", err)
		}
	}()

	logger.Info("priceserver running", "instance_id", cfg.Instance.ID, "http_port", cfg.HTTP.Port)

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	<-mirrorWriter.Done()

	logger.Info("priceserver stopped")
}

// connectPostgres opens a connection pool for the audit trail sink.
func connectPostgres(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		cfg.SSLMode,
	)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// queryResponse is the wire shape of a single price, used both as the
// read endpoints' response body and, unmarshaled as a list, as the
// bulk-ingest endpoint's request body.
type queryResponse struct {
	InstrumentID string         `json:"instrument_id,omitempty"`
	AsOf         time.Time      `json:"as_of,omitempty"`
	Payload      map[string]any `json:"payload,omitempty"`
}

func toQueryResponse(rec price.Record) queryResponse {
	return queryResponse{
		InstrumentID: rec.InstrumentID(),
		AsOf:         rec.AsOf(),
		Payload:      rec.Payload(),
	}
}

// newQueryHandler builds the net/http surface over svc: the read
// endpoints (GetLatestPrice, GetLatestPrices, GetAllLatestPrices) plus
// POST /batches/{id}/prices, a bulk-ingest endpoint for backfills and
// out-of-band corrections that exercises UploadPrices directly rather
// than the one-record-at-a-time path the feed adapter uses.
func newQueryHandler(svc *priceservice.Service, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/prices/latest", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("instrument_id")
		if id == "" {
			http.Error(w, "instrument_id is required", http.StatusBadRequest)
			return
		}
		rec, ok := svc.GetLatestPrice(id)
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, logger, toQueryResponse(rec))
	})

	mux.HandleFunc("/prices/latest/batch", func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query()["instrument_id"]
		if ids == nil {
			ids = []string{}
		}
		results, err := svc.GetLatestPrices(ids)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out := make(map[string]queryResponse, len(results))
		for id, rec := range results {
			out[id] = toQueryResponse(rec)
		}
		writeJSON(w, logger, out)
	})

	mux.HandleFunc("/prices", func(w http.ResponseWriter, r *http.Request) {
		results := svc.GetAllLatestPrices()
		out := make(map[string]queryResponse, len(results))
		for id, rec := range results {
			out[id] = toQueryResponse(rec)
		}
		writeJSON(w, logger, out)
	})

	mux.HandleFunc("/batches/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/prices") {
			http.NotFound(w, r)
			return
		}
		batchID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/batches/"), "/prices")
		if batchID == "" {
			http.Error(w, "batch id is required", http.StatusBadRequest)
			return
		}

		var frames []queryResponse
		if err := json.NewDecoder(r.Body).Decode(&frames); err != nil {
			http.Error(w, fmt.Sprintf("decode request body: %v", err), http.StatusBadRequest)
			return
		}

		records := make([]price.Record, 0, len(frames))
		for _, f := range frames {
			rec, err := price.NewRecord(f.InstrumentID, f.AsOf, f.Payload)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			records = append(records, rec)
		}

		if err := svc.UploadPrices(price.BatchID(batchID), records); err != nil {
			logger.Warn("bulk upload failed", "batch_id", batchID, "submitted", len(records), "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response failed", "error", err)
	}
}
