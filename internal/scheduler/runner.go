package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"
)

// tickGuard tracks in-flight ticks. Overlapping ticks are allowed; a new tick
// is refused only while an earlier one has been running longer than ceiling.
type tickGuard struct {
	clock   clockwork.Clock
	ceiling time.Duration

	mu       sync.Mutex
	next     uint64
	inflight map[uint64]time.Time
}

func newTickGuard(clock clockwork.Clock, ceiling time.Duration) *tickGuard {
	return &tickGuard{clock: clock, ceiling: ceiling, inflight: make(map[uint64]time.Time)}
}

// begin registers a tick. ok is false when an in-flight tick is stuck; stuck
// reports how long the oldest one has been running.
func (g *tickGuard) begin() (id uint64, stuck time.Duration, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock.Now()
	for _, started := range g.inflight {
		if age := now.Sub(started); age > g.ceiling && age > stuck {
			stuck = age
		}
	}
	if stuck > 0 {
		return 0, stuck, false
	}
	g.next++
	g.inflight[g.next] = now
	return g.next, 0, true
}

func (g *tickGuard) end(id uint64) {
	g.mu.Lock()
	delete(g.inflight, id)
	g.mu.Unlock()
}

// SkipRecorder counts ticks refused by the overlap guard.
type SkipRecorder interface {
	RecordSkippedTick()
}

// Exporter writes the daily archive.
type Exporter interface {
	ExportPreviousDay(ctx context.Context) error
}

// RunnerConfig holds the cadences of a Runner.
type RunnerConfig struct {
	TickInterval     time.Duration
	AdvisoryInterval time.Duration
	StuckCeiling     time.Duration
	// ExportAt is the UTC "HH:MM" at which the daily archive is written. It is
	// ignored when Exporter is nil.
	ExportAt string
	Exporter Exporter
	Skips    SkipRecorder
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Runner schedules refresh ticks, advisory refreshes and the daily archive
// export on a gocron scheduler.
type Runner struct {
	sched     *gocron.Scheduler
	refresher *Refresher
	cfg       RunnerConfig
	guard     *tickGuard
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a Runner for refresher.
func NewRunner(refresher *Refresher, cfg RunnerConfig) *Runner {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		sched:     gocron.NewScheduler(time.UTC),
		refresher: refresher,
		cfg:       cfg,
		guard:     newTickGuard(cfg.Clock, cfg.StuckCeiling),
		logger:    cfg.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the jobs and starts the scheduler in the background. The
// first tick and advisory refresh run immediately.
func (r *Runner) Start() error {
	if _, err := r.sched.Every(r.cfg.TickInterval).Do(r.RunTick); err != nil {
		return fmt.Errorf("schedule refresh tick: %w", err)
	}
	if _, err := r.sched.Every(r.cfg.AdvisoryInterval).Do(r.runAdvisoryRefresh); err != nil {
		return fmt.Errorf("schedule advisory refresh: %w", err)
	}
	if r.cfg.Exporter != nil {
		if _, err := r.sched.Every(1).Day().At(r.cfg.ExportAt).WaitForSchedule().Do(r.runExport); err != nil {
			return fmt.Errorf("schedule archive export: %w", err)
		}
	}
	r.sched.StartAsync()
	r.logger.Info("scheduler started",
		"tick_interval", r.cfg.TickInterval.String(),
		"advisory_interval", r.cfg.AdvisoryInterval.String(),
		"archive_export", r.cfg.Exporter != nil,
	)
	return nil
}

// Stop stops scheduling, cancels running jobs and waits for them to return.
func (r *Runner) Stop() {
	r.sched.Stop()
	r.cancel()
	r.wg.Wait()
}

// RunTick runs one refresh tick unless an earlier tick is stuck past the
// ceiling.
func (r *Runner) RunTick() {
	id, stuck, ok := r.guard.begin()
	if !ok {
		r.logger.Error("skipping refresh tick, previous tick is stuck", "running_for", stuck.String())
		if r.cfg.Skips != nil {
			r.cfg.Skips.RecordSkippedTick()
		}
		return
	}
	defer r.guard.end(id)
	r.wg.Add(1)
	defer r.wg.Done()

	if _, err := r.refresher.Tick(r.ctx); err != nil {
		r.logger.Error("refresh tick failed", "error", err)
	}
}

func (r *Runner) runAdvisoryRefresh() {
	r.wg.Add(1)
	defer r.wg.Done()
	if err := r.refresher.RefreshAdvisories(r.ctx); err != nil {
		r.logger.Warn("advisory refresh failed", "error", err)
	}
}

func (r *Runner) runExport() {
	r.wg.Add(1)
	defer r.wg.Done()
	if err := r.cfg.Exporter.ExportPreviousDay(r.ctx); err != nil {
		r.logger.Error("archive export failed", "error", err)
	}
}
