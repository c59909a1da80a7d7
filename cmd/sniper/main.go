// Package main runs the sniper bot: a low-frequency discovery loop that
// screens fresh tokens into positions and a high-frequency monitoring loop
// that walks the exit-trigger ladder for every open position, both bound
// to one durable state store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-sniper/internal/advisor"
	"solana-sniper/internal/breaker"
	"solana-sniper/internal/config"
	"solana-sniper/internal/cooldown"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/engine"
	"solana-sniper/internal/executor"
	"solana-sniper/internal/feeds"
	"solana-sniper/internal/filter"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/scanner"
	"solana-sniper/internal/storage"
	chstore "solana-sniper/internal/storage/clickhouse"
	"solana-sniper/internal/storage/memory"
	"solana-sniper/internal/storage/migrations"
	pgstore "solana-sniper/internal/storage/postgres"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (defaults apply if empty)")
		mode       = flag.String("mode", "", "override execution mode: simulate or live")
		resume     = flag.Bool("resume", false, "clear a session halt and exit")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[sniper] ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if *mode != "" {
		cfg.Mode = *mode
		if err := cfg.Validate(); err != nil {
			logger.Fatalf("config: %v", err)
		}
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" && cfg.Storage.PostgresDSN == "" {
		cfg.Storage.PostgresDSN = dsn
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer cleanup()

	brk := breaker.New(store, breaker.Config{
		MaxDrawdownSOL:      cfg.Breaker.MaxDrawdownSOL,
		SessionLossLimitSOL: cfg.Breaker.SessionLossLimitSOL,
		MaxPositions:        cfg.MaxPositions,
	})

	if *resume {
		if err := brk.Resume(ctx); err != nil {
			logger.Fatalf("resume: %v", err)
		}
		logger.Println("session halt cleared")
		return
	}

	if err := run(ctx, cfg, store, brk, logger); err != nil && ctx.Err() == nil {
		logger.Fatalf("run: %v", err)
	}

	reportOpenPositions(store, logger)
}

// run wires the components and blocks until shutdown.
func run(ctx context.Context, cfg config.Config, store storage.StateStore, brk *breaker.Breaker, logger *log.Logger) error {
	metrics := observability.NewMetrics("solana_sniper")

	screener := feeds.NewScreenerClient(cfg.Feeds.ScreenerURL, cfg.AdapterTimeout,
		cfg.Feeds.ScreenerRPS, cfg.Feeds.ScreenerBurst)

	adapters := []feeds.SourceAdapter{
		feeds.NewTrendingAdapter(screener),
		feeds.NewBoostedAdapter(screener),
		feeds.NewTopGainersAdapter(screener),
	}
	if cfg.Feeds.LaunchStreamURL != "" {
		adapters = append(adapters, feeds.NewLaunchStreamAdapter(ctx, cfg.Feeds.LaunchStreamURL, logger))
	}

	pricer := feeds.NewScreenerPriceLookup(screener)

	var exec executor.Executor
	if cfg.Mode == config.ModeLive {
		exec = executor.NewHTTPExecutor(cfg.Feeds.ExecutionURL, cfg.Feeds.ExecutionTimeout)
		logger.Println("LIVE mode: trades will execute on-chain")
	} else {
		exec = executor.NewSimulated(pricer, cfg.Feeds.SimSlippagePct)
		logger.Println("simulate mode: no trades leave the process")
	}

	cooldowns := cooldown.New(store, cfg.Cooldown.ProfitExit, cfg.Cooldown.LossExit)

	pipeline := filter.New(filter.Config{
		MinSignals:      cfg.Entry.MinSignals,
		StrongTrendPct:  cfg.Entry.StrongTrendPct,
		StrongPumpPct:   cfg.Entry.StrongPumpPct,
		MinBuySellRatio: cfg.Entry.MinBuySellRatio,
		MinPumpPct:      cfg.Entry.MinPumpPct,
		MaxPumpPct:      cfg.Entry.MaxPumpPct,
		MinLiquidityUSD: cfg.Entry.MinLiquidityUSD,
		LiquidityFloorByTag: map[domain.Tag]float64{
			domain.TagLaunchpad: cfg.Entry.LaunchpadLiquidityUSD,
		},
		MaxAge:       cfg.Entry.MaxAge,
		DumpFloorPct: cfg.Entry.DumpFloorPct,
	}, cooldowns.IsOnCooldown)

	var sink engine.TradeSink
	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		defer conn.Close()
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		sink = chstore.NewTradeSink(conn)
		logger.Println("trade analytics sink enabled")
	}

	scan, err := scanner.New(scanner.Options{
		Adapters:       adapters,
		Store:          store,
		Pipeline:       pipeline,
		Breaker:        brk,
		Executor:       exec,
		Advisor:        advisor.Noop{},
		Interval:       cfg.ScanInterval,
		AdapterTimeout: cfg.AdapterTimeout,
		TopK: map[domain.Tier]int{
			domain.TierLaunch:  cfg.Entry.LaunchTopK,
			domain.TierSocial:  cfg.Entry.SocialTopK,
			domain.TierGeneric: cfg.Entry.GenericTopK,
		},
		SizeSOL:    cfg.PositionSizeSOL,
		MaxSizeSOL: cfg.MaxPositionSizeSOL,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}

	ladder := make([]engine.Rung, len(cfg.Exits.TakeProfitLadder))
	for i, r := range cfg.Exits.TakeProfitLadder {
		ladder[i] = engine.Rung{ThresholdPct: r.ThresholdPct, SellPct: r.SellPct}
	}
	monitor, err := engine.NewMonitor(engine.MonitorOptions{
		Store:     store,
		Pricer:    pricer,
		Executor:  exec,
		Cooldowns: cooldowns,
		Breaker:   brk,
		Exits: engine.ExitConfig{
			FlashCrashPct:    cfg.Exits.FlashCrashPct,
			StopLossPct:      cfg.Exits.StopLossPct,
			TakeProfitLadder: ladder,
			TrailingStopPct:  cfg.Exits.TrailingStopPct,
			MaxHold:          cfg.Exits.MaxHold,
			MinPnlToHoldPct:  cfg.Exits.MinPnlToHoldPct,
		},
		Interval: cfg.MonitorInterval,
		Logger:   logger,
		Metrics:  metrics,
		Sink:     sink,
	})
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("metrics server: %v", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
		logger.Printf("metrics on %s/metrics", cfg.MetricsAddr)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- scan.Run(ctx) }()
	go func() { errCh <- monitor.Run(ctx) }()

	// Both loops exit only on context cancellation; wait for both so no
	// store operation is in flight when we report and leave.
	err1 := <-errCh
	err2 := <-errCh
	if ctx.Err() != nil {
		return nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// openStore selects the configured backend.
func openStore(ctx context.Context, cfg config.Config, logger *log.Logger) (storage.StateStore, func(), error) {
	if cfg.Storage.Backend == "postgres" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store, err := pgstore.NewStateStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Println("postgres state store ready")
		return store, pool.Close, nil
	}

	logger.Println("in-memory state store: state will not survive a restart")
	return memory.NewStateStore(), func() {}, nil
}

// reportOpenPositions lists what is still open at shutdown. Positions are
// never auto-closed: resolving them is an explicit operator action.
func reportOpenPositions(store storage.StateStore, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	positions, err := store.ListPositions(ctx)
	if err != nil {
		logger.Printf("shutdown report: %v", err)
		return
	}
	if len(positions) == 0 {
		logger.Println("shutdown: no open positions")
		return
	}
	logger.Printf("shutdown: %d positions remain OPEN and were not closed:", len(positions))
	for _, p := range positions {
		logger.Printf("  %s (%s): %.4f SOL at %.8f since %s",
			p.Mint, p.Symbol, p.SizeSOL, p.EntryPrice, p.EntryTime.Format(time.RFC3339))
	}
}
