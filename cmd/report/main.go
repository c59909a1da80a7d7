// Package main prints a session report from the state store: session P&L,
// win rate, exits by reason, and the full trade history. Read-only; it is
// safe to run while the bot is trading against the same postgres store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
	pgstore "solana-sniper/internal/storage/postgres"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config")
		trades     = flag.Bool("trades", false, "print every trade, not just the summary")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Fatalf("load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" && cfg.Storage.PostgresDSN == "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if cfg.Storage.Backend != "postgres" {
		logger.Fatal("report needs a durable store; set storage.backend to postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	store, err := pgstore.NewStateStore(ctx, pool)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}

	if err := report(ctx, store, *trades); err != nil {
		logger.Fatalf("report: %v", err)
	}
}

// reportStore is the read-only slice of the state store the report needs.
type reportStore interface {
	GetSession(ctx context.Context) (*domain.SessionState, error)
	ListTrades(ctx context.Context) ([]*domain.ClosedTrade, error)
	ListPositions(ctx context.Context) ([]*domain.Position, error)
}

func report(ctx context.Context, store reportStore, printTrades bool) error {
	sess, err := store.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	trades, err := store.ListTrades(ctx)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}
	positions, err := store.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}

	fmt.Println("=== Session ===")
	fmt.Printf("realized pnl:  %+.4f SOL\n", sess.RealizedPnlSOL)
	fmt.Printf("peak pnl:      %+.4f SOL\n", sess.PeakPnlSOL)
	fmt.Printf("drawdown:      %.4f SOL\n", sess.Drawdown())
	if sess.Halted {
		fmt.Printf("HALTED:        %s\n", sess.HaltReason)
	}

	fmt.Printf("\n=== Trades (%d fills) ===\n", len(trades))
	if len(trades) > 0 {
		printSummary(trades)
	}
	if printTrades {
		fmt.Println()
		for _, t := range trades {
			printTrade(t)
		}
	}

	if len(positions) > 0 {
		fmt.Printf("\n=== Open positions (%d) ===\n", len(positions))
		for _, p := range positions {
			fmt.Printf("%-44s %-8s %8.4f SOL  entry %.8f  last %.8f  pnl %+6.2f%%\n",
				p.Mint, p.Symbol, p.SizeSOL, p.EntryPrice, p.LastPrice, p.PnlPercent(p.LastPrice))
		}
	}
	return nil
}

// printSummary aggregates fills: win rate counts full closes only, since a
// profitable rung followed by a stop-out is one losing round trip.
func printSummary(trades []*domain.ClosedTrade) {
	var wins, losses int
	var totalPnl float64
	byReason := make(map[string]int)
	byMint := make(map[string]float64)

	for _, t := range trades {
		totalPnl += t.PnlSOL
		byReason[t.ExitReason]++
		byMint[t.Mint] += t.PnlSOL
		if t.Partial {
			continue
		}
		if byMint[t.Mint] > 0 {
			wins++
		} else {
			losses++
		}
		// One round trip done; the same mint may re-enter after cooldown.
		delete(byMint, t.Mint)
	}

	closed := wins + losses
	fmt.Printf("total pnl:     %+.4f SOL\n", totalPnl)
	if closed > 0 {
		fmt.Printf("round trips:   %d (%d wins, %d losses, %.1f%% win rate)\n",
			closed, wins, losses, 100*float64(wins)/float64(closed))
	}

	reasons := make([]string, 0, len(byReason))
	for r := range byReason {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	fmt.Println("exits by reason:")
	for _, r := range reasons {
		fmt.Printf("  %-14s %d\n", r, byReason[r])
	}
}

func printTrade(t *domain.ClosedTrade) {
	kind := "full"
	if t.Partial {
		kind = "part"
	}
	fmt.Printf("%s  %-44s %-8s %s %-13s %8.4f SOL  %.8f -> %.8f  pnl %+6.2f%% (%+.4f SOL)  held %v\n",
		t.ExitTime.Format("2006-01-02 15:04:05"), t.Mint, t.Symbol, kind, t.ExitReason,
		t.SizeSOL, t.EntryPrice, t.ExitPrice, t.PnlPercent, t.PnlSOL,
		t.HoldDuration.Round(time.Second))
}
