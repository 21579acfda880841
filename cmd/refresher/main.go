// Package main is the entrypoint for the refresher Lambda function.
//
// An EventBridge rule invokes it every minute with {"task":"refresh_tick"};
// each invocation runs exactly one refresh tick across the active hubs. A
// daily rule sends {"task":"export_archive"}, and operators may invoke it
// with an explicit reference_time to backfill an archive day. Rules without
// an input transformer deliver the full event envelope; its detail carries
// the same payload.
//
// This file handles dependency wiring (cold start) and delegates the work to
// internal/scheduler.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"hubwatch/internal/app"
	"hubwatch/internal/config"
	"hubwatch/internal/scheduler"
)

// tickRunner is the part of *scheduler.Refresher the handler drives.
type tickRunner interface {
	Tick(ctx context.Context) (scheduler.TickReport, error)
	RefreshAdvisories(ctx context.Context) error
}

// archiveExporter is the part of *scheduler.ArchiveExporter the handler
// drives.
type archiveExporter interface {
	ExportPreviousDay(ctx context.Context) error
	ExportAt(ctx context.Context, ref time.Time) error
}

func main() {
	logger := app.NewLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("refresher Lambda initializing (cold start)")

	provider := config.NewSecretProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL"))
	if err := config.ResolveSecrets(provider); err != nil {
		logger.Error("failed to resolve SSM secrets", "error", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(provider)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = app.NewLogger(cfg.LogLevel)

	// Nothing scrapes Prometheus in Lambda; tick metrics reach CloudWatch
	// when ENABLE_CLOUDWATCH is set.
	p, err := app.Build(context.Background(), cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		logger.Error("failed to build refresh pipeline", "error", err)
		os.Exit(1)
	}

	var exporter archiveExporter
	if p.Exporter != nil {
		exporter = p.Exporter
	}

	logger.Info("refresher Lambda initialized",
		"version", cfg.Build.Version,
		"archive_bucket", cfg.Archive.Bucket,
		"hub_concurrency", cfg.Refresh.HubConcurrency,
	)

	lambda.Start(newHandler(p.Refresher, exporter, logger))
}

// decodePayload accepts either a bare TaskPayload or an EventBridge envelope
// whose detail is a TaskPayload.
func decodePayload(raw json.RawMessage) (scheduler.TaskPayload, error) {
	var payload scheduler.TaskPayload
	if len(raw) == 0 || string(raw) == "null" {
		return payload, nil
	}

	var envelope events.CloudWatchEvent
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.DetailType != "" {
		if len(envelope.Detail) == 0 || string(envelope.Detail) == "null" {
			return payload, nil
		}
		raw = envelope.Detail
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("decode task payload: %w", err)
	}
	return payload, nil
}

// newHandler creates the Lambda handler. An empty task runs a refresh tick.
func newHandler(refresher tickRunner, exporter archiveExporter, logger *slog.Logger) func(ctx context.Context, raw json.RawMessage) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		payload, err := decodePayload(raw)
		if err != nil {
			logger.ErrorContext(ctx, "invalid invocation payload", "error", err)
			return "", err
		}
		task := payload.Task
		if task == "" {
			task = scheduler.TaskRefreshTick
		}
		logger.InfoContext(ctx, "refresher handler invoked", "task", task)

		switch task {
		case scheduler.TaskRefreshTick:
			report, err := refresher.Tick(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "refresh tick failed", "error", err)
				return "", fmt.Errorf("refresh tick: %w", err)
			}
			s := report.Summary()
			result := fmt.Sprintf("tick complete: %d hubs, %d failed, %d snapshots changed",
				len(report.Hubs), s.Failures(), s.SnapshotsChanged)
			logger.InfoContext(ctx, result,
				"duration_ms", report.Duration.Milliseconds(),
				"notified", report.Notified,
			)
			return result, nil

		case scheduler.TaskRefreshAdvisory:
			if err := refresher.RefreshAdvisories(ctx); err != nil {
				logger.ErrorContext(ctx, "advisory refresh failed", "error", err)
				return "", fmt.Errorf("advisory refresh: %w", err)
			}
			return "advisory refresh complete", nil

		case scheduler.TaskExportArchive:
			if exporter == nil {
				return "", fmt.Errorf("archive export requested but ARCHIVE_BUCKET is not set")
			}
			var err error
			if payload.ReferenceTime != nil {
				err = exporter.ExportAt(ctx, *payload.ReferenceTime)
			} else {
				err = exporter.ExportPreviousDay(ctx)
			}
			if err != nil {
				logger.ErrorContext(ctx, "archive export failed", "error", err)
				return "", fmt.Errorf("archive export: %w", err)
			}
			return "archive export complete", nil

		default:
			return "", fmt.Errorf("unknown task %q", payload.Task)
		}
	}
}
