package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"llhlsabr/internal/abr/domain"
	"llhlsabr/internal/api/ws"
	"llhlsabr/internal/app"
	historymongo "llhlsabr/internal/history/mongo"
	"llhlsabr/internal/metrics"
	"llhlsabr/internal/simulate"
	"llhlsabr/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "llhlsabr-sim")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "llhlsabr-sim"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("abrRule", string(cfg.Engine.ABRRule)),
		slog.Bool("useLoLpPlayback", cfg.Engine.UseLoLpPlayback),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var history *historymongo.Repository
	if mongoClient, err := connectMongo(rootCtx, cfg.MongoURI); err != nil {
		logger.Warn("mongo connect failed, decision history sink disabled", slog.String("error", err.Error()))
	} else {
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		history = historymongo.NewRepository(mongoClient, cfg.MongoDatabase, cfg.MongoCollection)
	}

	hub := ws.NewHub(logger)
	go hub.Run()
	defer hub.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", hub.ServeHTTP)
	mux.HandleFunc("/simulate", handleSimulate(cfg.Engine, hub, history, logger))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// handleSimulate accepts a JSON Timeline fixture, replays it through a
// fresh orchestrator built from the process's engine config, streams
// the resulting decisions to the websocket hub and the Mongo history
// sink (if configured), and returns the decisions as the response
// body.
func handleSimulate(engineCfg domain.Config, hub *ws.Hub, history *historymongo.Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var tl simulate.Timeline
		if err := json.NewDecoder(r.Body).Decode(&tl); err != nil {
			http.Error(w, "invalid timeline: "+err.Error(), http.StatusBadRequest)
			return
		}

		feed, err := simulate.NewFeed(engineCfg, tl, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		decisions := feed.Run(tl)
		for _, d := range decisions {
			metrics.CurrentQualityIndex.Set(float64(d.Quality))
			metrics.CatchupRate.Set(d.Rate)
			metrics.DecisionsTotal.WithLabelValues(string(d.Rule)).Inc()
			hub.Broadcast("decision", d)
		}
		metrics.BandwidthEstimateBps.Set(feed.Orchestrator().Estimator.GetEstimate())
		metrics.RuleSwitchesTotal.Add(float64(feed.Orchestrator().RuleSwitches()))

		if history != nil {
			if err := history.RecordBatch(r.Context(), decisions); err != nil {
				logger.Warn("history record failed", slog.String("error", err.Error()))
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(decisions)
	}
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, mongooptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		return nil, err
	}
	return client, nil
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
