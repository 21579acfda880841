// Package app wires the hubwatch components from a loaded Config. Both the
// long-running API process and the refresher Lambda build their pipeline here
// so the two deployments refresh hubs identically.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"hubwatch/internal/advisory"
	"hubwatch/internal/config"
	"hubwatch/internal/db"
	"hubwatch/internal/external"
	"hubwatch/internal/metrics"
	"hubwatch/internal/notify"
	"hubwatch/internal/scheduler"
	"hubwatch/internal/timeline"
)

// NewLogger creates a JSON slog.Logger on stdout for level. Unknown levels
// fall back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}

// Pipeline is the set of wired components shared by every entrypoint.
type Pipeline struct {
	Config      *config.Config
	Pool        *pgxpool.Pool
	Hubs        *db.HubRepository
	Actuals     *timeline.ActualsStore
	Snapshots   *timeline.SnapshotStore
	Expander    *advisory.Expander
	Broadcaster *notify.Broadcaster
	Metrics     *metrics.Metrics
	Refresher   *scheduler.Refresher
	// Exporter is nil when no archive bucket is configured.
	Exporter *scheduler.ArchiveExporter
	Service  *timeline.Service
	Clock    clockwork.Clock
	Logger   *slog.Logger

	closers []func()
}

// Build connects to the database and AWS and wires the refresh pipeline and
// the read service. reg receives the Prometheus collectors. The caller owns
// the returned Pipeline and must Close it.
func Build(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		Config:      cfg,
		Clock:       clockwork.NewRealClock(),
		Logger:      logger,
		Broadcaster: notify.NewBroadcaster(),
		Expander:    advisory.NewExpander(cfg.Refresh.CarryoverLastHour),
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	p.Pool = pool
	p.closers = append(p.closers, pool.Close)

	awsCfg, err := LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.Hubs = db.NewHubRepository(pool)
	p.Actuals = timeline.NewActualsStore(db.NewHourlyActualRepository(pool))
	p.Snapshots = timeline.NewSnapshotStore(db.NewSnapshotRepository(pool), p.Clock)
	p.Metrics = metrics.New(reg)

	registry := external.NewClientRegistry(cfg.Upstream, p.Clock, logger)

	p.Refresher = scheduler.NewRefresher(scheduler.RefresherConfig{
		Hubs:           p.Hubs,
		Forecasts:      registry.Forecast,
		Advisories:     registry.Advisory,
		Actuals:        p.Actuals,
		Snapshots:      p.Snapshots,
		Constraints:    advisory.NewConstraintLog(cfg.Refresh.ConstraintLogPath),
		Notifier:       p.notifiers(awsCfg),
		Recorder:       p.recorders(awsCfg),
		Expander:       p.Expander,
		HubConcurrency: cfg.Refresh.HubConcurrency,
		HubTimeout:     cfg.Refresh.HubTickTimeout,
		AdvisoryTTL:    cfg.Refresh.AdvisoryCacheTTL,
		Clock:          p.Clock,
		Logger:         logger.With("component", "refresher"),
	})

	if cfg.Archive.Bucket != "" {
		p.Exporter = scheduler.NewArchiveExporter(scheduler.ArchiveExporterConfig{
			Client:    s3.NewFromConfig(awsCfg, withS3PathStyle(cfg.AWS)),
			Bucket:    cfg.Archive.Bucket,
			Hubs:      p.Hubs,
			Actuals:   p.Actuals,
			Snapshots: p.Snapshots,
			Clock:     p.Clock,
			Logger:    logger.With("component", "archive"),
		})
	}

	p.Service = timeline.NewService(timeline.ServiceConfig{
		Hubs:      p.Hubs,
		Actuals:   p.Actuals,
		Snapshots: p.Snapshots,
		Advisory:  p.Refresher,
		Ground:    p.Refresher,
		Expander:  p.Expander,
		Clock:     p.Clock,
		Logger:    logger,
	})
	return p, nil
}

// Prepare applies the schema and seeds the hub catalogue. Seeding only inserts
// missing hubs, so it is safe on every start.
func (p *Pipeline) Prepare(ctx context.Context) error {
	if err := db.Migrate(ctx, p.Pool); err != nil {
		return err
	}
	hubs, err := p.Config.HubCatalogue()
	if err != nil {
		return fmt.Errorf("hub catalogue: %w", err)
	}
	n, err := p.Hubs.Seed(ctx, hubs)
	if err != nil {
		return fmt.Errorf("seed hubs: %w", err)
	}
	p.Logger.Info("schema ready", "hubs_seeded", n)
	return nil
}

// NewRunner creates the in-process scheduler for the pipeline.
func (p *Pipeline) NewRunner() *scheduler.Runner {
	rc := scheduler.RunnerConfig{
		TickInterval:     p.Config.Refresh.Interval,
		AdvisoryInterval: p.Config.Refresh.AdvisoryInterval,
		StuckCeiling:     p.Config.Refresh.StuckCeiling,
		ExportAt:         p.Config.Archive.ExportAt,
		Skips:            p.Metrics,
		Clock:            p.Clock,
		Logger:           p.Logger.With("component", "runner"),
	}
	if p.Exporter != nil {
		rc.Exporter = p.Exporter
	}
	return scheduler.NewRunner(p.Refresher, rc)
}

// Close releases the pool and the notifier connections in reverse order.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}

func (p *Pipeline) notifiers(awsCfg aws.Config) notify.Notifier {
	n := notify.Multi{p.Broadcaster}
	if url := p.Config.Notify.SQSQueueURL; url != "" {
		n = append(n, notify.NewSQSPublisher(sqs.NewFromConfig(awsCfg), url))
	}
	if brokers := p.Config.Notify.KafkaBrokers; len(brokers) > 0 {
		kp := notify.NewKafkaPublisher(brokers, p.Config.Notify.KafkaTopic)
		n = append(n, kp)
		p.closers = append(p.closers, func() {
			if err := kp.Close(); err != nil {
				p.Logger.Warn("close kafka writer", "error", err)
			}
		})
	}
	return n
}

func (p *Pipeline) recorders(awsCfg aws.Config) metrics.TickRecorder {
	r := metrics.Recorders{p.Metrics}
	if p.Config.Observability.EnableCloudWatch {
		r = append(r, metrics.NewCloudWatchTickMetrics(
			cloudwatch.NewFromConfig(awsCfg),
			p.Config.Observability.MetricNamespace,
			p.Logger.With("component", "cloudwatch"),
		))
	}
	return r
}

// LoadAWSConfig loads the SDK configuration for cfg.Region. A non-empty
// EndpointURL points every client at LocalStack.
func LoadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config (region=%s): %w", cfg.Region, err)
	}
	if cfg.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.EndpointURL)
	}
	return awsCfg, nil
}

// LocalStack serves buckets only in path style.
func withS3PathStyle(cfg config.AWSConfig) func(*s3.Options) {
	return func(o *s3.Options) {
		o.UsePathStyle = cfg.EndpointURL != ""
	}
}
