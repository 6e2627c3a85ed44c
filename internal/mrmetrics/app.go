package mrmetrics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kaartgroup/mrmetrics/internal/config"
	"github.com/kaartgroup/mrmetrics/internal/maproulette"
	"github.com/kaartgroup/mrmetrics/internal/metrics"
	"github.com/kaartgroup/mrmetrics/internal/report"
)

type Application struct {
	Config     *config.Config
	Logger     *slog.Logger
	Client     *maproulette.Client
	Resolver   *metrics.Resolver
	Aggregator *metrics.Aggregator
}

func New(cfg *config.Config) (*Application, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	store, err := metrics.DefaultStore()
	if err != nil {
		return nil, err
	}

	client := maproulette.NewClient(cfg.BaseURL, cfg.APIKey, cfg.VerifyCert, cfg.Timeout)
	resolver := metrics.NewResolver(store, client, logger)

	return &Application{
		Config:     cfg,
		Logger:     logger,
		Client:     client,
		Resolver:   resolver,
		Aggregator: metrics.NewAggregator(resolver, client, logger),
	}, nil
}

// FetchMetrics runs one aggregation and logs its outcome.
func (app *Application) FetchMetrics(ctx context.Context, usernames []string, start, end time.Time, kind maproulette.MetricKind) (*metrics.Table, error) {
	app.Logger.Info("fetching metrics",
		"users", len(usernames),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"metric", string(kind),
	)

	table, err := app.Aggregator.Aggregate(ctx, usernames, start, end, kind)
	if err != nil {
		app.Logger.Error("failed to fetch metrics", "error", err)
		return nil, err
	}

	snap := app.Aggregator.Progress().Snapshot()
	app.Logger.Info("metrics fetched",
		"rows", len(table.Users()),
		"columns", len(table.Dates()),
		"skipped_pages", snap.SkippedPages,
	)

	if resolved := len(table.Users()); resolved < len(usernames) {
		app.Logger.Warn("some usernames could not be resolved",
			"requested", len(usernames), "resolved", resolved)
	}

	return table, nil
}

// Export writes the table with the given exporter.
func (app *Application) Export(table *metrics.Table, exporter report.TableExporter, destination string) error {
	if err := exporter.Export(table, destination); err != nil {
		app.Logger.Error("export failed", "file", destination, "error", err)
		return fmt.Errorf("failed to export table: %w", err)
	}

	app.Logger.Info("table exported", "file", destination)
	return nil
}
