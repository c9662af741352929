package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/analyzer"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/config"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/fleet"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/irradiance"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/report"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/server"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/storage"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

func main() {
	// init packages
	cfg := config.Configured()
	provider := irradiance.Configured()
	a := analyzer.Configured(&cfg.Ingest, provider)
	runner := fleet.Configured(a)
	s := storage.Configured()
	auditor := fleet.ConfiguredAuditor(runner, s, cfg)
	writer := report.Configured()

	// init server
	srv := server.Configured(auditor, s)
	serve := lflag.Bool("serve", false, "Serve the HTTP API instead of running a single audit")

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	if *serve {
		// Run will block until context is canceled or error happens
		if err := srv.Run(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
			os.Exit(1)
		}
		log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
		return
	}

	if err := runOnce(ctx, auditor, writer); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "audit failed", "error", err)
		os.Exit(1)
	}
}

// runOnce audits the fleet once and writes the report. A run without results
// is not a failure; nothing is written.
func runOnce(ctx context.Context, auditor *fleet.Auditor, writer *report.Writer) error {
	run, err := auditor.Audit(ctx, types.Month{})
	if err != nil {
		return err
	}

	for _, res := range run.Results {
		log.Ctx(ctx).InfoContext(
			ctx,
			"plant result",
			slog.String("plantID", res.PlantID),
			slog.Float64("actualKWh", report.RoundKWh(res.ActualKWh)),
			slog.Float64("expectedKWh", report.RoundKWh(res.ExpectedKWh)),
			slog.Float64("performanceRatio", report.RoundPR(res.PerformanceRatio)),
			slog.String("classification", string(res.Classification)),
		)
	}

	path, err := writer.Write(ctx, run.FleetSummary)
	if errors.Is(err, report.ErrEmptySummary) {
		log.Ctx(ctx).WarnContext(
			ctx,
			"nothing to report",
			slog.String("runID", run.ID),
			slog.String("month", run.Month.String()),
			slog.Int("skipped", len(run.Skipped)),
			slog.Int("discarded", len(run.Discarded)),
		)
		return nil
	}
	if err != nil {
		return err
	}
	log.Ctx(ctx).InfoContext(ctx, "audit complete", slog.String("runID", run.ID), slog.String("report", path))
	return nil
}
