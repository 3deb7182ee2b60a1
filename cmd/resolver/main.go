package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"binarybets/internal/app"
	"binarybets/internal/config"
	"binarybets/internal/jobs"
	"binarybets/internal/logger"
)

// resolver runs a single resolution pass and prints what happened. Useful for
// cron setups that do not keep the API server's background loops running.
func main() {
	policy := flag.String("policy", "all", "continuous, deadline or all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New("binarybets-resolver", cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	a, err := app.New(cfg, zl, prometheus.NewRegistry())
	if err != nil {
		zl.Fatal("failed to build application", zap.Error(err))
	}
	defer a.Close()

	var resolvers []*jobs.MarketResolver
	switch *policy {
	case "all":
		resolvers = a.Resolvers
	case string(jobs.PolicyContinuous), string(jobs.PolicyDeadline):
		resolvers = append(resolvers, a.Resolver(jobs.Policy(*policy)))
	default:
		zl.Fatal("unknown policy", zap.String("policy", *policy))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runners []runner
	for _, r := range resolvers {
		runners = append(runners, r)
	}
	failed := report(ctx, runners, os.Stdout, zl)

	if failed {
		// os.Exit skips deferred calls
		a.Close()
		_ = zl.Sync()
		os.Exit(1)
	}
}

type runner interface {
	Policy() jobs.Policy
	RunOnce(ctx context.Context) (jobs.RunSummary, error)
}

// report runs each resolver once and renders one table row per successful
// pass. It reports whether any pass failed.
func report(ctx context.Context, runners []runner, out io.Writer, zl *zap.Logger) bool {
	table := tablewriter.NewWriter(out)
	table.Header("Policy", "Run", "Candidates", "Resolved", "Kept open", "Errored", "Skipped", "Duration")

	failed := false
	for _, r := range runners {
		summary, err := r.RunOnce(ctx)
		if err != nil {
			zl.Error("resolver pass failed", zap.String("policy", string(r.Policy())), zap.Error(err))
			failed = true
			continue
		}
		_ = table.Append(
			string(summary.Policy),
			summary.RunID,
			fmt.Sprintf("%d", summary.Candidates),
			fmt.Sprintf("%d", summary.Resolved),
			fmt.Sprintf("%d", summary.KeptOpen),
			fmt.Sprintf("%d", summary.Errored),
			fmt.Sprintf("%d", summary.Skipped),
			summary.Duration.Round(time.Millisecond).String(),
		)
	}
	_ = table.Render()
	return failed
}
