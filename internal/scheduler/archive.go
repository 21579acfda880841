package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zstd"

	"hubwatch/internal/types"
)

// S3API is the subset of the S3 client used by ArchiveExporter.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveActuals lists the recorded actuals of a hub-local date.
type ArchiveActuals interface {
	ListByDate(ctx context.Context, hub string, date types.Date) ([]types.HourlyActual, error)
}

// ArchiveSnapshots lists the snapshots of a hub-local date.
type ArchiveSnapshots interface {
	HoursForDate(ctx context.Context, hub string, date types.Date) ([]types.Snapshot, error)
}

// DayArchive is the document written per hub and day.
type DayArchive struct {
	HubCode    string               `json:"iata"`
	Date       types.Date           `json:"date"`
	ExportedAt time.Time            `json:"exported_at"`
	Actuals    []types.HourlyActual `json:"actuals"`
	Snapshots  []types.Snapshot     `json:"snapshots"`
}

// ArchiveKey returns the object key of a hub's archive for date.
func ArchiveKey(hub string, date types.Date) string {
	return fmt.Sprintf("archive/%s/%s.json.zst", hub, date)
}

// ArchiveExporter writes one zstd-compressed JSON archive per active hub and
// day to S3. Re-exporting a day overwrites the object.
type ArchiveExporter struct {
	client    S3API
	bucket    string
	hubs      HubLister
	actuals   ArchiveActuals
	snapshots ArchiveSnapshots
	clock     clockwork.Clock
	logger    *slog.Logger
}

// ArchiveExporterConfig holds the dependencies of an ArchiveExporter.
type ArchiveExporterConfig struct {
	Client    S3API
	Bucket    string
	Hubs      HubLister
	Actuals   ArchiveActuals
	Snapshots ArchiveSnapshots
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// NewArchiveExporter creates an ArchiveExporter.
func NewArchiveExporter(cfg ArchiveExporterConfig) *ArchiveExporter {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ArchiveExporter{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		hubs:      cfg.Hubs,
		actuals:   cfg.Actuals,
		snapshots: cfg.Snapshots,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// ExportPreviousDay exports, for every active hub, the hub-local day before
// the current one.
func (e *ArchiveExporter) ExportPreviousDay(ctx context.Context) error {
	return e.exportRelative(ctx, e.clock.Now(), -1)
}

// ExportAt exports, for every active hub, the hub-local day preceding ref.
// It is used for manual backfills.
func (e *ArchiveExporter) ExportAt(ctx context.Context, ref time.Time) error {
	return e.exportRelative(ctx, ref, -1)
}

func (e *ArchiveExporter) exportRelative(ctx context.Context, ref time.Time, days int) error {
	hubs, err := e.hubs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active hubs: %w", err)
	}
	var errs []error
	for _, hub := range hubs {
		loc, err := hub.Location()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		date := types.DateOf(ref.In(loc)).AddDays(days)
		if err := e.ExportHubDay(ctx, hub.Code, date); err != nil {
			e.logger.ErrorContext(ctx, "archive export failed", "hub", hub.Code, "date", date.String(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ExportHubDay writes the archive of one hub and date.
func (e *ArchiveExporter) ExportHubDay(ctx context.Context, hub string, date types.Date) error {
	actuals, err := e.actuals.ListByDate(ctx, hub, date)
	if err != nil {
		return fmt.Errorf("load actuals: %w", err)
	}
	snaps, err := e.snapshots.HoursForDate(ctx, hub, date)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}

	body, err := encodeArchive(DayArchive{
		HubCode:    hub,
		Date:       date,
		ExportedAt: e.clock.Now().UTC(),
		Actuals:    actuals,
		Snapshots:  snaps,
	})
	if err != nil {
		return err
	}

	key := ArchiveKey(hub, date)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(e.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("zstd"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", e.bucket, key, err)
	}
	e.logger.InfoContext(ctx, "archive exported",
		"hub", hub,
		"date", date.String(),
		"actuals", len(actuals),
		"snapshots", len(snaps),
		"bytes", len(body),
	)
	return nil
}

func encodeArchive(a DayArchive) ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal archive: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}
