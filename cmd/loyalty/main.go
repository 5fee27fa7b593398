// Loyalty - Customer loyalty classification from yearly revenue.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/opensource-finance/loyalty/internal/config"
	"github.com/opensource-finance/loyalty/internal/domain"
	"github.com/opensource-finance/loyalty/internal/ingest"
	"github.com/opensource-finance/loyalty/internal/pipeline"
	"github.com/opensource-finance/loyalty/internal/repository"
	"github.com/opensource-finance/loyalty/internal/rules"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("LOYALTY_CONFIG"), "YAML configuration file")
	envFile := flag.String("env-file", "", "dotenv file to load (default .env when present)")
	input := flag.String("input", "", "input revenue CSV (overrides config)")
	outputDir := flag.String("output-dir", "", "directory for the dataset file (overrides config)")
	format := flag.String("format", "", "dataset format: csv or sqlite (overrides config)")
	noProgress := flag.Bool("no-progress", false, "disable the progress bar")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("loyalty %s (%s, %s)\n", Version, Commit, BuildDate)
		return
	}

	var dotenv []string
	if *envFile != "" {
		dotenv = append(dotenv, *envFile)
	}

	// Load configuration
	cfg, err := config.Load(*configPath, dotenv...)
	if err != nil {
		fatal("failed to load configuration", err)
	}
	if *input != "" {
		cfg.Input.Path = *input
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if err := config.Validate(cfg); err != nil {
		fatal("invalid configuration", err)
	}

	closeLog := setupLogging(cfg.Logging)
	defer closeLog()

	slog.Info("starting loyalty analysis",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"input", cfg.Input.Path,
		"output_format", cfg.Output.Format,
		"output_dir", cfg.Output.Dir,
		"evaluation_start_year", cfg.Loyalty.EvaluationStartYear,
		"evaluation_end_year", cfg.Loyalty.EvaluationEndYear,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, !*noProgress); err != nil {
		closeLog()
		fatal("loyalty analysis failed", err)
	}
}

func run(ctx context.Context, cfg *domain.Config, progress bool) error {
	out := newNarrator(os.Stdout)
	out.header(cfg, time.Now())

	// Resolve the writer before any work so a bad format fails early
	writer, err := repository.New(cfg.Output)
	if err != nil {
		return err
	}

	engine, err := rules.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize rule engine: %w", err)
	}
	guardIDs := make([]string, 0, engine.GuardsCount())
	for _, g := range engine.GetLoadedGuards() {
		guardIDs = append(guardIDs, g.ID)
	}
	slog.Debug("rule engine initialized", "guards_count", len(guardIDs), "guards", guardIDs)

	out.step(1, "LOADING DATA")
	years := cfg.Loyalty.EvaluationYears()
	records, err := ingest.LoadFile(cfg.Input.Path, cfg.Input, years)
	if err != nil {
		var mce *ingest.MissingColumnsError
		if errors.As(err, &mce) {
			out.missingColumns(mce)
		}
		return err
	}
	out.loaded(len(records))

	opts := pipeline.Options{}
	var bar *progressbar.ProgressBar
	if progress {
		bar = progressbar.Default(int64(len(records)), "classifying")
		opts.Progress = func() { _ = bar.Add(1) }
	}

	result, err := pipeline.Run(ctx, records, cfg.Loyalty, engine, opts)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	out.duplicates(result.Stats)
	out.step(2, "CLEANING DATA")
	out.cleaning(result.Stats, years)
	out.step(3, "CALCULATING LOYALTY METRICS")
	out.metrics(result.Stats, cfg.Loyalty)
	out.step(4, "DETERMINING LOYALTY STATUS")
	out.statuses(result.Stats)
	out.step(5, "PREPARING OUTPUT FILE")
	out.prepared(len(result.Dataset.Rows))
	out.step(6, "QUALITY VALIDATION")
	out.validation(result.Validation, &result.Dataset)

	out.step(7, "SAVING OUTPUT")
	path, err := writer.Write(ctx, &result.Dataset, result.Validation)
	if err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	slog.Info("dataset written", "path", path, "rows", len(result.Dataset.Rows), "run_id", result.Dataset.RunID)
	out.saved(path, result.Dataset)
	out.complete(path, result.Stats, time.Now())

	if !result.Validation.Passed() {
		for _, c := range result.Validation.Failed() {
			slog.Warn("validation check failed after write", "check", c.Name, "detail", c.Detail)
		}
	}
	return nil
}

// setupLogging installs the default logger on stderr, mirrored to a
// rotating file when configured. The returned func closes the file.
func setupLogging(cfg domain.LoggingConfig) func() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	closer := func() {}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		w = io.MultiWriter(os.Stderr, file)
		closer = func() { _ = file.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))

	return closer
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
