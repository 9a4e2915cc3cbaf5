package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"livechart/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakePurger struct {
	cutoffs []time.Time
	err     error
}

func (f *fakePurger) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, before)
	return 3, f.err
}

type fakeStats struct{}

func (fakeStats) Len() int    { return 2 }
func (fakeStats) Points() int { return 7 }

type fakeSubscriber struct {
	products [][]string
	closed   int
}

func (f *fakeSubscriber) SetProducts(p []string) { f.products = append(f.products, p) }
func (f *fakeSubscriber) Close() error           { f.closed++; return nil }

func newScheduler(t *testing.T) (*jobs.Scheduler, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	s := jobs.NewScheduler(context.Background(), zap.New(core))
	s.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return s, logs
}

// runOnly runs the single registered job synchronously.
func runOnly(t *testing.T, s *jobs.Scheduler) {
	t.Helper()
	entries := s.Cron.Entries()
	require.Len(t, entries, 1)
	entries[0].Job.Run()
}

// go test -v --run TestRetentionJob
func TestRetentionJob(t *testing.T) {
	s, logs := newScheduler(t)
	p := &fakePurger{}
	require.NoError(t, s.AddRetention("0 */10 * * * *", p, time.Hour))

	runOnly(t, s)
	require.Len(t, p.cutoffs, 1)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), p.cutoffs[0])
	assert.Equal(t, 1, logs.FilterMessage("purged old samples").Len())

	p.err = errors.New("db down")
	runOnly(t, s)
	assert.Equal(t, 1, logs.FilterMessage("failed to purge old samples").Len())
}

// go test -v --run TestStatsJob
func TestStatsJob(t *testing.T) {
	s, logs := newScheduler(t)
	require.NoError(t, s.AddStats("*/30 * * * * *", fakeStats{}, func() int { return 4 }))

	runOnly(t, s)
	entries := logs.FilterMessage("chart stats").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(2), fields["series"])
	assert.Equal(t, int64(7), fields["points"])
	assert.Equal(t, int64(4), fields["clients"])
}

// go test -v --run TestProductRefreshJob
func TestProductRefreshJob(t *testing.T) {
	s, _ := newScheduler(t)
	sub := &fakeSubscriber{}
	next := []string{"BTC-USD", "ETH-USD"}
	resolve := func(context.Context) []string { return next }
	require.NoError(t, s.AddProductRefresh("0 0 0 * * *", resolve, sub, []string{"BTC-USD", "ETH-USD"}))

	// unchanged list leaves the feed alone
	runOnly(t, s)
	assert.Empty(t, sub.products)
	assert.Zero(t, sub.closed)

	next = []string{"BTC-USD", "SOL-USD"}
	runOnly(t, s)
	require.Len(t, sub.products, 1)
	assert.Equal(t, []string{"BTC-USD", "SOL-USD"}, sub.products[0])
	assert.Equal(t, 1, sub.closed)

	// same list again is not a change any more
	runOnly(t, s)
	assert.Equal(t, 1, sub.closed)

	// an empty catalog result never unsubscribes everything
	next = nil
	runOnly(t, s)
	assert.Equal(t, 1, sub.closed)
}

// go test -v --run TestInvalidSchedule
func TestInvalidSchedule(t *testing.T) {
	s, _ := newScheduler(t)
	assert.Error(t, s.AddStats("not a cron", fakeStats{}, func() int { return 0 }))
	assert.Error(t, s.AddRetention("* * *", &fakePurger{}, time.Hour))
}

// go test -v --run TestStartStop
func TestStartStop(t *testing.T) {
	s, logs := newScheduler(t)
	require.NoError(t, s.AddStats("* * * * * *", fakeStats{}, func() int { return 0 }))
	s.Start()
	s.Stop()
	assert.Equal(t, 1, logs.FilterMessage("scheduler started").Len())
	assert.Equal(t, 1, logs.FilterMessage("scheduler stopped").Len())
}
