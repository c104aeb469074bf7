// Command hegemon runs the realm stability simulation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hegemon/internal/api"
	"github.com/talgya/hegemon/internal/config"
	"github.com/talgya/hegemon/internal/economy"
	"github.com/talgya/hegemon/internal/engine"
	"github.com/talgya/hegemon/internal/entropy"
	"github.com/talgya/hegemon/internal/officials"
	"github.com/talgya/hegemon/internal/persistence"
	"github.com/talgya/hegemon/internal/scenario"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Hegemon realm simulation",
		"difficulty", cfg.Difficulty,
		"seed", cfg.Seed,
		"era", cfg.Era,
	)

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or Generate Realm ───────────────────────────────────────
	gen := scenario.DefaultGenConfig()
	gen.Seed = int64(cfg.Seed)

	var (
		model    *economy.Model
		saved    *engine.State
		registry *officials.Registry
	)
	if db.HasWorldState() {
		slog.Info("found saved realm, loading...")

		st, err := db.LoadState()
		if err != nil {
			slog.Error("failed to load realm", "error", err)
			os.Exit(1)
		}
		saved = &st

		ms, ok, err := db.LoadEconomy()
		if err != nil {
			slog.Error("failed to load economy", "error", err)
			os.Exit(1)
		}
		if !ok {
			slog.Warn("saved realm has no economy, regenerating from seed")
			ms = scenario.Generate(gen).Economy
		}
		model = economy.NewModel(ms)

		slog.Info("realm restored",
			"day", st.Day,
			"date", engine.SimDate(st.Day),
			"strata", len(st.Strata),
			"vassals", len(st.Vassals),
			"events", len(st.Events),
		)
	} else {
		slog.Info("no saved realm found, generating...")
		realm := scenario.Generate(gen)
		model = economy.NewModel(realm.Economy)
		registry = officials.NewRegistry(realm.Officials)

		for _, o := range realm.Officials {
			slog.Info("official",
				"name", o.Name,
				"origin", o.SourceStratum,
				"prestige", o.Prestige,
				"loyalty", o.Loyalty,
			)
		}
		slog.Info("realm generated",
			"strata", len(realm.Economy.Strata),
			"nations", len(realm.Economy.Nations),
			"treasury", humanize.Commaf(realm.Economy.Player.Treasury),
		)
	}

	rng := entropy.New(cfg.RandomOrgKey, cfg.Seed)

	// ── Simulation ────────────────────────────────────────────────────
	sim, err := engine.New(engine.Options{
		Catalog:    catalog,
		Difficulty: cfg.Difficulty,
		Economy:    model,
		Rand:       rng,
		Officials:  registry,
		Era:        cfg.Era,
	})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}
	if saved != nil {
		sim.Import(*saved)
	} else if err := db.SaveWorldState(sim, model); err != nil {
		// Save on fresh generation only (loaded realms are already saved).
		slog.Error("initial save failed", "error", err)
	}

	eng := engine.NewEngine(sim.Day(), cfg.TickInterval, float64(cfg.Speed))
	eng.OnDay = func(day int) {
		sim.TickDay(day)
	}
	eng.OnMonth = func(day int) {
		sim.TickMonth(day)
		// Auto-save monthly.
		if err := db.SaveWorldState(sim, model); err != nil {
			slog.Error("monthly save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("HEGEMON_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Econ:     model,
		Hub:      api.NewHub(),
		Port:     cfg.APIPort,
		AdminKey: cfg.AdminKey,
		RelayKey: cfg.RelayKey,

		CORSOrigins: cfg.CORSOrigins,
	}
	apiServer.Start(ctx)

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Printf("\nHegemon is running: %d strata, %d vassals.\n", len(sim.Strata()), len(sim.Vassals()))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	if day := sim.Day(); day > 0 {
		fmt.Printf("Resuming from day %d (%s)\n", day, engine.SimDate(day))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveWorldState(sim, model); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. Realm saved.")
}
