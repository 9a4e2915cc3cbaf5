// Package jobs runs the periodic housekeeping around the live chart.
package jobs

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger deletes samples older than a cutoff.
type Purger interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Stats reports the in-memory chart state.
type Stats interface {
	Len() int
	Points() int
}

// Subscriber is the feed side of a product refresh.
type Subscriber interface {
	SetProducts(products []string)
	Close() error
}

// Resolver turns the configured products into the ones currently streamable.
type Resolver func(ctx context.Context) []string

// Scheduler wraps a seconds-resolution cron.
type Scheduler struct {
	Cron   *cron.Cron
	Logger *zap.Logger
	Ctx    context.Context
	Now    func() time.Time
}

func NewScheduler(ctx context.Context, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		Logger: logger,
		Ctx:    ctx,
		Now:    time.Now,
	}
}

// AddRetention deletes persisted samples older than retention.
func (s *Scheduler) AddRetention(schedule string, purger Purger, retention time.Duration) error {
	if _, err := s.Cron.AddFunc(schedule, func() { s.runRetention(purger, retention) }); err != nil {
		return fmt.Errorf("register retention job: %w", err)
	}
	return nil
}

// AddStats logs the series and client counts.
func (s *Scheduler) AddStats(schedule string, stats Stats, clients func() int) error {
	if _, err := s.Cron.AddFunc(schedule, func() { s.runStats(stats, clients) }); err != nil {
		return fmt.Errorf("register stats job: %w", err)
	}
	return nil
}

// AddProductRefresh re-resolves the product list and resubscribes the feed
// when it changed.
func (s *Scheduler) AddProductRefresh(schedule string, resolve Resolver, sub Subscriber, current []string) error {
	active := slices.Clone(current)
	job := func() {
		next := resolve(s.Ctx)
		if len(next) == 0 || slices.Equal(next, active) {
			return
		}
		s.Logger.Info("product list changed, resubscribing",
			zap.Strings("from", active), zap.Strings("to", next))
		active = next
		sub.SetProducts(next)
		// the listener reconnects and subscribes with the new list
		_ = sub.Close()
	}
	if _, err := s.Cron.AddFunc(schedule, job); err != nil {
		return fmt.Errorf("register product refresh job: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

func (s *Scheduler) runRetention(purger Purger, retention time.Duration) {
	ctx, cancel := context.WithTimeout(s.Ctx, 30*time.Second)
	defer cancel()

	cutoff := s.Now().Add(-retention)
	n, err := purger.DeleteBefore(ctx, cutoff)
	if err != nil {
		s.Logger.Warn("failed to purge old samples", zap.Time("before", cutoff), zap.Error(err))
		return
	}
	if n > 0 {
		s.Logger.Info("purged old samples", zap.Int64("deleted", n), zap.Time("before", cutoff))
	}
}

func (s *Scheduler) runStats(stats Stats, clients func() int) {
	s.Logger.Info("chart stats",
		zap.Int("series", stats.Len()),
		zap.Int("points", stats.Points()),
		zap.Int("clients", clients()))
}
