package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evosim/config"
	"evosim/sim"
	"evosim/storage"
	"evosim/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, config 0 = time-based)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot (overrides config)")
	storePath := flag.String("store", "", "SQLite checkpoint database path (overrides config)")
	maxGenerations := flag.Int("max-generations", 0, "Stop after N generations (0 = use config)")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}
	if *storePath != "" {
		cfg.Storage.Path = *storePath
	}
	if *maxGenerations > 0 {
		cfg.Simulation.MaxGenerations = *maxGenerations
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = cfg.Simulation.Seed
	}
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	output, err := telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to snapshot config", "error", err)
	}

	opts := []sim.RunnerOption{sim.WithOutput(output)}

	if cfg.Storage.Path != "" {
		store := storage.NewSQLiteStore(cfg.Storage.Path)
		if err := store.Init(ctx); err != nil {
			slog.Error("failed to open checkpoint store", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		runID, err := store.BeginRun(ctx, cfg, rngSeed)
		if err != nil {
			slog.Error("failed to begin run", "error", err)
			os.Exit(1)
		}
		slog.Info("checkpointing enabled", "run_id", runID, "path", cfg.Storage.Path)
		opts = append(opts, sim.WithStore(store))
	}

	runner := sim.NewRunner(cfg, rng, opts...)

	slog.Info("starting simulation",
		"seed", rngSeed,
		"population", cfg.Evolution.PopulationSize,
		"generations", cfg.Simulation.MaxGenerations,
		"world", cfg.World.Width*cfg.World.Height,
	)

	if err := runner.Run(ctx); err != nil {
		if ctx.Err() != nil {
			slog.Info("interrupted", "generation", runner.Generation())
			return
		}
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	slog.Info("simulation complete", "generations", runner.Generation())
}
