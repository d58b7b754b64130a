package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ademidov/newspulse/app/ingest"
)

// IngestRunner is what the scheduler needs from the ingestion pipeline.
type IngestRunner interface {
	Run(ctx context.Context) (*ingest.Report, error)
	IsRunning() bool
	LastReport() *ingest.Report
}

// Scheduler triggers ingestion runs on a fixed interval, with an
// immediate run at startup. The run guard lives in the runner; a tick
// that lands while a manual run is active is dropped with a log, never
// queued behind it.
type Scheduler struct {
	runner   IngestRunner
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	nextRun time.Time
}

func NewScheduler(runner IngestRunner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:   runner,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.setNextRun(time.Now().Add(s.interval))
		s.trigger("startup")

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.setNextRun(time.Now().Add(s.interval))
				s.trigger("interval")
			}
		}
	}()

	slog.Info("Ingestion scheduler started", "interval", s.interval.String())
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Ingestion scheduler stopped")
}

func (s *Scheduler) trigger(reason string) {
	report, err := s.runner.Run(s.ctx)
	if err != nil {
		if errors.Is(err, ingest.ErrRunInProgress) {
			slog.Warn("Scheduled ingestion skipped, run already active", "trigger", reason)
			return
		}
		slog.Error("Scheduled ingestion failed", "trigger", reason, "error", err)
		return
	}

	slog.Info("Scheduled ingestion finished", "trigger", reason,
		"new", report.Total, "purged", report.Purged)
}

func (s *Scheduler) setNextRun(t time.Time) {
	s.mu.Lock()
	s.nextRun = t
	s.mu.Unlock()
}

// Status is a serializable snapshot for the API.
type Status struct {
	Running    bool           `json:"running"`
	Interval   string         `json:"interval"`
	NextRun    *time.Time     `json:"next_run,omitempty"`
	LastReport *ingest.Report `json:"last_report,omitempty"`
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	nextRun := s.nextRun
	s.mu.Unlock()

	status := Status{
		Running:    s.runner.IsRunning(),
		Interval:   s.interval.String(),
		LastReport: s.runner.LastReport(),
	}
	if !nextRun.IsZero() {
		status.NextRun = &nextRun
	}
	return status
}
