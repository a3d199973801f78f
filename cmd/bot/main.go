package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/berserkkv/traderrs/internal/api"
	"github.com/berserkkv/traderrs/internal/bot"
	"github.com/berserkkv/traderrs/internal/collector"
	"github.com/berserkkv/traderrs/internal/config"
	"github.com/berserkkv/traderrs/internal/market"
	"github.com/berserkkv/traderrs/internal/repository"
	"github.com/berserkkv/traderrs/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}))
	}
	log.Println("[INFO] traderrs starting...")

	// Init market connector
	var connector market.Connector
	if cfg.Market.Connector == "mock" {
		connector = &market.MockConnector{}
	} else {
		connector = market.NewBinanceConnector(cfg.Market.APIKey, cfg.Market.SecretKey)
	}
	log.Printf("[INFO] market connector: %s", connector.Name())

	// Init repository. Running without durable history is only allowed when
	// explicitly configured; a broken store aborts startup.
	var repo repository.Repository
	if cfg.Database.SQLitePath != "" {
		sr, err := repository.NewSQLiteRepository(cfg.Database.SQLitePath, cfg.Trading.InitialCapital)
		if err != nil {
			log.Fatalf("[FATAL] init sqlite repository: %v", err)
		}
		repo = sr
		defer sr.Close()
	} else {
		repo = repository.NewNoopRepository()
	}

	// Build the fleet: one bot per (strategy, timeframe, symbol) triple.
	fleet := buildFleet(cfg)
	log.Printf("[INFO] fleet built: %d bots", len(fleet.Bots()))

	// Rehydrate yesterday's state
	states, err := repo.LoadBotState()
	if err != nil {
		log.Printf("[WARN] load bot state: %v", err)
	} else if len(states) > 0 {
		fleet.Rehydrate(states)
		log.Printf("[INFO] rehydrated %d persisted bot records", len(states))
	}

	col := collector.New(connector, fleet, cfg.Market.CandleLimit, cfg.Market.MaxInFlight)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the two scheduling loops
	entry := scheduler.NewEntryScheduler(fleet, col, connector,
		cfg.Schedule.EntryInterval.Std(), cfg.Schedule.SettleDelay.Std())
	go entry.Run(ctx)

	monitor := scheduler.NewPositionMonitor(fleet, col, repo, cfg.Schedule.MonitorInterval.Std())
	go monitor.Run(ctx)

	// Daily rollover at midnight
	rollover := scheduler.NewRollover(fleet, repo)
	if err := rollover.Start(cfg.Schedule.RolloverCron); err != nil {
		log.Fatalf("[FATAL] register rollover: %v", err)
	}
	defer rollover.Stop()

	// Status API. A failed bind aborts startup; Run returns nil on a clean
	// shutdown.
	server := api.NewServer(fleet, repo, connector.Name(), cfg.Server.Addr)
	go func() {
		if err := server.Run(ctx); err != nil {
			log.Fatalf("[FATAL] status API: %v", err)
		}
	}()

	if os.Getenv("SCAN_ON_START") == "true" {
		log.Println("[INFO] SCAN_ON_START enabled, scanning now")
		go entry.ScanNow(ctx)
	}

	log.Println("[INFO] traderrs is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	// Give the monitor's writer a moment to flush queued orders.
	time.Sleep(500 * time.Millisecond)
	log.Println("[INFO] traderrs stopped")
}

func buildFleet(cfg *config.Config) *bot.Fleet {
	var bots []*bot.Bot
	for _, strategyName := range cfg.Fleet.Strategies {
		for _, timeframe := range cfg.Fleet.Timeframes {
			for _, symbol := range cfg.Fleet.Symbols {
				bots = append(bots, bot.New(bot.Config{
					Symbol:                      symbol,
					Timeframe:                   timeframe,
					StrategyName:                strategyName,
					InitialCapital:              cfg.Trading.InitialCapital,
					DeactivationFloor:           cfg.Trading.DeactivationFloor,
					Leverage:                    cfg.Trading.Leverage,
					TakeProfitRatio:             cfg.Trading.TakeProfitRatio,
					StopLossRatio:               cfg.Trading.StopLossRatio,
					TrailingStopActivationPoint: cfg.Trading.TrailingStopActivationPoint,
				}))
			}
		}
	}
	return bot.NewFleet(bots)
}
