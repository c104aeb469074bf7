// Command steward runs the autonomous realm steward for Hegemon.
// It observes the realm, triages unrest and vassal pressure with fixed
// rules, and acts via the admin API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/hegemon/internal/config"
	"github.com/talgya/hegemon/internal/steward"
)

func main() {
	cfg, err := config.LoadSteward()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if cfg.AdminKey == "" {
		slog.Error("HEGEMON_ADMIN_KEY is required")
		os.Exit(1)
	}

	slog.Info("Hegemon steward starting",
		"api_url", cfg.APIURL,
		"interval", cfg.Interval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observer := steward.NewObserver(cfg.APIURL)
	actor := steward.NewActor(cfg.APIURL, cfg.AdminKey)
	mem := steward.LoadMemory(cfg.MemoryPath)

	// Process start order says nothing about HTTP readiness.
	slog.Info("waiting for realm API...")
	if err := steward.WaitForAPI(ctx, observer, 5*time.Minute); err != nil {
		slog.Error("realm API unavailable", "error", err)
		os.Exit(1)
	}

	// Run first cycle immediately.
	runCycle(observer, actor, mem)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runCycle(observer, actor, mem)
		case <-ctx.Done():
			slog.Info("shutting down")
			fmt.Println("Steward stopped.")
			return
		}
	}
}

func runCycle(observer *steward.Observer, actor *steward.Actor, mem *steward.CycleMemory) {
	if _, err := steward.RunCycle(observer, actor, mem); err != nil {
		slog.Error("steward cycle failed", "error", err)
	}
}
