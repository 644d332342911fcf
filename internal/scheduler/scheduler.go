// Package scheduler runs the out-of-band plan maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/service"
)

// jobTimeout bounds one full pass over every user.
const jobTimeout = 30 * time.Minute

// PlanMaintainer is the part of the plan service the jobs drive.
type PlanMaintainer interface {
	UpdateWeeklySummary(ctx context.Context, userID string) error
	ReconcileWeekIndex(ctx context.Context, userID string) (*service.ReconcileReport, error)
}

// UserLister enumerates every user that has a training plan index.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// RunStats counts the outcome of one job pass.
type RunStats struct {
	Users  int
	Failed int
}

// Manager owns the cron scheduler and its jobs.
type Manager struct {
	cron  *cron.Cron
	cfg   config.SchedulerConfig
	plans PlanMaintainer
	users UserLister
	log   *logger.Logger
}

// NewManager creates a scheduler with seconds precision. Jobs are registered by Start.
func NewManager(cfg config.SchedulerConfig, plans PlanMaintainer, users UserLister, log *logger.Logger) *Manager {
	log = log.With("component", "scheduler")
	cl := cronLogger{log}
	return &Manager{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		cfg:   cfg,
		plans: plans,
		users: users,
		log:   log,
	}
}

// Start registers every job and starts the scheduler.
func (m *Manager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()
	m.log.Info("Scheduler started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop waits for running jobs to finish.
func (m *Manager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("Scheduler stopped")
}

func (m *Manager) registerJobs() error {
	// 1. Weekly summaries, ahead of the Monday generations
	if _, err := m.cron.AddFunc(m.cfg.WeeklySummarySpec, m.job("weekly_summary", m.RunWeeklySummaries)); err != nil {
		return fmt.Errorf("schedule weekly summary %q: %w", m.cfg.WeeklySummarySpec, err)
	}
	// 2. Week index repair
	if _, err := m.cron.AddFunc(m.cfg.ReconcileSpec, m.job("reconcile_week_index", m.RunReconcile)); err != nil {
		return fmt.Errorf("schedule week index reconcile %q: %w", m.cfg.ReconcileSpec, err)
	}
	return nil
}

func (m *Manager) job(name string, run func(context.Context) (RunStats, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		started := time.Now()
		m.log.Info("Starting job", "job", name)
		stats, err := run(ctx)
		if err != nil {
			m.log.Error("Job failed", "job", name, "error", err)
			return
		}
		m.log.Info("Completed job", "job", name, "users", stats.Users, "failed", stats.Failed, "took", time.Since(started))
	}
}

// RunWeeklySummaries refreshes the latest week summary of every user.
func (m *Manager) RunWeeklySummaries(ctx context.Context) (RunStats, error) {
	return m.forEachUser(ctx, "weekly_summary", func(ctx context.Context, userID string) error {
		return m.plans.UpdateWeeklySummary(ctx, userID)
	})
}

// RunReconcile repairs the week index of every user.
func (m *Manager) RunReconcile(ctx context.Context) (RunStats, error) {
	return m.forEachUser(ctx, "reconcile_week_index", func(ctx context.Context, userID string) error {
		report, err := m.plans.ReconcileWeekIndex(ctx, userID)
		if err != nil {
			return err
		}
		for _, w := range report.Dangling {
			m.log.Warn("Dangling week index entry", "user_id", userID, "year", w.Year, "label", w.Label, "week_id", w.WeekID)
		}
		return nil
	})
}

// forEachUser runs fn for every user. A failing user is logged and skipped.
func (m *Manager) forEachUser(ctx context.Context, name string, fn func(context.Context, string) error) (RunStats, error) {
	ids, err := m.users.ListUserIDs(ctx)
	if err != nil {
		return RunStats{}, fmt.Errorf("list users: %w", err)
	}
	stats := RunStats{Users: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := fn(ctx, id); err != nil {
			stats.Failed++
			m.log.Error("Job failed for user", "job", name, "user_id", id, "error", err)
		}
	}
	return stats, nil
}

// cronLogger routes the scheduler's own messages to our logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
