package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"dca-core/internal/api"
	"dca-core/internal/engine"
	"dca-core/internal/events"
	"dca-core/internal/monitor"
	"dca-core/pkg/config"
	"dca-core/pkg/db"
	"dca-core/pkg/logger"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a bearer token for this operator id and exit")
	tokenTTL := flag.Duration("token-ttl", 72*time.Hour, "lifetime of an issued token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if *issueToken != "" {
		token, err := api.GenerateToken(*issueToken, cfg.JWTSecret, time.Now().Add(*tokenTTL))
		if err != nil {
			log.Fatal().Err(err).Msg("issue token")
		}
		fmt.Println(token)
		return
	}

	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}
	log.Info().Str("version", buildVersion).Str("port", cfg.Port).Msg("starting dca decision service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitor.NewMetrics(reg, bus.Dropped)

	// The trade log is optional; without it Monte Carlo needs explicit trades.
	var trades engine.TradeSource
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Warn().Err(err).Msg("trade log unavailable; pair-based simulations disabled")
	} else {
		defer database.Close()
		trades = database.Trades()
		log.Info().Str("path", cfg.DBPath).Msg("trade log opened")
	}

	s := cfg.Strategy
	engService := engine.NewImpl(engine.Config{
		Risk:              s.Risk,
		DCA:               s.DCA,
		Regime:            s.Regime,
		Slippage:          s.Slippage,
		Indicators:        s.Indicators,
		MonteCarloRuns:    s.MonteCarlo.Simulations,
		MonteCarloSeed:    s.MonteCarlo.Seed,
		MonteCarloWorkers: s.MonteCarlo.Workers,
		StartingBalance:   cfg.StartingBalance,
		ContextIdleTTL:    cfg.ContextIdleTTL,
		Trades:            trades,
		Bus:               bus,
		Metrics:           metrics,
		Meta:              engine.SystemStatus{Version: buildVersion},
	})
	go engService.Run(ctx)

	// Risk alerts
	mon := &monitor.Monitor{Bus: bus, Sink: monitor.LogSink{Logger: log.With().Str("component", "alerts").Logger()}}
	mon.Start(ctx)

	// API
	server := api.NewServer(engService, bus, reg, cfg.JWTSecret)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("api server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutting down")

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
