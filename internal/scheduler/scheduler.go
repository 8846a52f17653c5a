// Package scheduler runs the daemon's periodic jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ameistad/carenote/internal/logging"
	"github.com/robfig/cron/v3"
)

const (
	JobWeeklyRefresh = "weekly-refresh"
	JobLogRetention  = "log-retention"

	DefaultRetentionSchedule = "@daily"
)

// WeeklyRefresher recomputes the weekly analyses, see weekly.Service.
type WeeklyRefresher interface {
	RefreshRecent(ctx context.Context, now time.Time) (int, error)
}

type Config struct {
	// RefreshSchedule is a standard five-field cron expression.
	RefreshSchedule   string
	RetentionSchedule string
	RetentionDays     int
	// RetentionDirs are cleaned of files older than RetentionDays.
	RetentionDirs []string
}

type Scheduler struct {
	cron      *cron.Cron
	cfg       Config
	refresher WeeklyRefresher
	logger    *slog.Logger
	entries   map[string]cron.EntryID

	mu  sync.Mutex
	ctx context.Context
}

func New(cfg Config, refresher WeeklyRefresher, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RetentionSchedule == "" {
		cfg.RetentionSchedule = DefaultRetentionSchedule
	}

	cronLogger := slogAdapter{logger: logger}
	s := &Scheduler{
		cron: cron.New(cron.WithLogger(cronLogger), cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		cfg:       cfg,
		refresher: refresher,
		logger:    logger,
		entries:   map[string]cron.EntryID{},
		ctx:       context.Background(),
	}

	if refresher != nil && cfg.RefreshSchedule != "" {
		if err := s.add(JobWeeklyRefresh, cfg.RefreshSchedule, func() { s.RunWeeklyRefresh(s.context()) }); err != nil {
			return nil, err
		}
	}
	if cfg.RetentionDays > 0 && len(cfg.RetentionDirs) > 0 {
		if err := s.add(JobLogRetention, cfg.RetentionSchedule, func() { s.RunLogRetention() }); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string, job func()) error {
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}
	s.entries[name] = id
	return nil
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Jobs returns the names of the scheduled jobs.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.entries))
	for _, name := range []string{JobWeeklyRefresh, JobLogRetention} {
		if _, ok := s.entries[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Next returns the next run of the named job, or the zero time when it is not scheduled
// or the scheduler is not running.
func (s *Scheduler) Next(name string) time.Time {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// Run starts the jobs and blocks until ctx is done. Running jobs are waited for before it returns.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	for _, name := range s.Jobs() {
		s.logger.Info("Scheduled job", "job", name, "next", s.Next(name))
	}

	<-ctx.Done()
	s.logger.Debug("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// RunWeeklyRefresh recomputes the weekly analyses of last week.
func (s *Scheduler) RunWeeklyRefresh(ctx context.Context) {
	if s.refresher == nil {
		return
	}
	started := time.Now()
	n, err := s.refresher.RefreshRecent(ctx, started)
	if err != nil {
		s.logger.Error("Weekly refresh failed", "job", JobWeeklyRefresh, "error", err)
		return
	}
	s.logger.Info("Weekly refresh finished", "job", JobWeeklyRefresh, "customers", n, "duration", time.Since(started))
}

// RunLogRetention removes old uploads and log files. It returns the number of files removed.
func (s *Scheduler) RunLogRetention() int {
	total := 0
	for _, dir := range s.cfg.RetentionDirs {
		n, err := logging.CleanOldFiles(dir, s.cfg.RetentionDays)
		if err != nil {
			s.logger.Warn("Failed to clean old files", "job", JobLogRetention, "dir", dir, "error", err)
			continue
		}
		total += n
	}
	if total > 0 {
		s.logger.Info("Removed old files", "job", JobLogRetention, "count", total, "retention_days", s.cfg.RetentionDays)
	}
	return total
}

// slogAdapter lets cron log through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Debug("cron: "+msg, keysAndValues...)
}

func (a slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	a.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
