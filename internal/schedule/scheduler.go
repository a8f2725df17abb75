// File: internal/schedule/scheduler.go

// Package schedule runs the collection job at fixed times of day in the
// configured timezone. A launch shortly after a scheduled time still
// triggers that run, so a restart never silently skips a slot.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mpadilha/redcollect/internal/config"
)

// Job is the unit of scheduled work.
type Job func(ctx context.Context)

// Scheduler wraps a cron runner over the configured times of day.
type Scheduler struct {
	cfg      config.ScheduleConfig
	location *time.Location
	job      Job
	logger   *zap.Logger

	cron   *cron.Cron
	runCtx context.Context
}

// New builds a scheduler. Every configured HH:MM time becomes one cron
// entry; overlapping runs are skipped rather than queued, a collection pass
// can outlast the gap to the next slot.
func New(cfg config.ScheduleConfig, job Job, logger *zap.Logger) (*Scheduler, error) {
	location := time.Local
	if cfg.Timezone != "" {
		var err error
		location, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, err)
		}
	}

	s := &Scheduler{
		cfg:      cfg,
		location: location,
		job:      job,
		logger:   logger.Named("schedule"),
	}

	cronLog := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLocation(location),
		cron.WithChain(cron.SkipIfStillRunning(cronLog), cron.Recover(cronLog)),
	)
	for _, t := range cfg.Times {
		spec, err := cronSpec(t)
		if err != nil {
			return nil, err
		}
		slot := t
		if _, err := s.cron.AddFunc(spec, func() { s.fire(slot) }); err != nil {
			return nil, fmt.Errorf("could not schedule %q: %w", t, err)
		}
	}
	return s, nil
}

// Run starts the schedule and blocks until the context ends. When the
// process comes up within the startup window after a slot, that slot's run
// happens immediately before the cron loop takes over.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runCtx = ctx

	if slot, due := missedSlot(time.Now().In(s.location), s.cfg.Times, s.cfg.StartupWindow); due {
		s.logger.Info("Started inside the startup window, running the missed slot now.",
			zap.String("slot", slot))
		s.job(ctx)
	}

	s.logger.Info("Schedule active.",
		zap.Strings("times", s.cfg.Times),
		zap.String("timezone", s.location.String()))
	s.cron.Start()

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	return ctx.Err()
}

func (s *Scheduler) fire(slot string) {
	if s.runCtx == nil || s.runCtx.Err() != nil {
		return
	}
	s.logger.Info("Scheduled run starting.", zap.String("slot", slot))
	start := time.Now()
	s.job(s.runCtx)
	s.logger.Info("Scheduled run finished.",
		zap.String("slot", slot), zap.Duration("elapsed", time.Since(start)))
}

// cronSpec converts "HH:MM" into a daily five-field cron spec.
func cronSpec(t string) (string, error) {
	parts := strings.SplitN(t, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("schedule time %q is not in HH:MM form", t)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("schedule time %q has an invalid hour", t)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("schedule time %q has an invalid minute", t)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// missedSlot reports the most recent configured slot that falls inside the
// window before now, checking yesterday's occurrence when the window spans
// midnight.
func missedSlot(now time.Time, times []string, window time.Duration) (string, bool) {
	if window <= 0 {
		return "", false
	}
	var (
		best    string
		bestAge = window + 1
	)
	for _, t := range times {
		parts := strings.SplitN(t, ":", 2)
		if len(parts) != 2 {
			continue
		}
		hour, err1 := strconv.Atoi(parts[0])
		minute, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			continue
		}
		occurrence := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if occurrence.After(now) {
			occurrence = occurrence.AddDate(0, 0, -1)
		}
		if age := now.Sub(occurrence); age <= window && age < bestAge {
			best, bestAge = t, age
		}
	}
	return best, best != ""
}

// cronLogger adapts zap to the cron logger interface.
type cronLogger struct {
	log *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
