// Package storage defines where accepted price samples are persisted so a
// restarted service can redraw its chart.
package storage

import (
	"context"
	"time"
)

// Sample is one accepted price observation.
type Sample struct {
	Product    string
	Price      float64
	ObservedAt time.Time
}

// SampleStore persists samples. RecentSamples returns at most limit samples,
// oldest first.
type SampleStore interface {
	SaveSample(ctx context.Context, s Sample) error
	RecentSamples(ctx context.Context, product string, limit int) ([]Sample, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// Noop is used when persistence is disabled.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (Noop) SaveSample(context.Context, Sample) error { return nil }
func (Noop) RecentSamples(context.Context, string, int) ([]Sample, error) {
	return nil, nil
}
func (Noop) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }
func (Noop) Close() error                                           { return nil }
