// Package series keeps a fixed-capacity rolling window of (timestamp, price)
// samples per product symbol.
package series

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Manager owns the catalog of series. It is safe for concurrent use; samples
// for one symbol are expected in arrival order.
type Manager struct {
	mu          sync.RWMutex
	capacity    int
	order       []string // first-seen order, drives draw order
	data        map[string]*ring
	lastUpdated string
}

// New creates an empty Manager.
func New(opts Options) *Manager {
	capacity := opts.MaxPointsPerSeries
	if capacity <= 0 {
		capacity = DefaultMaxPointsPerSeries
	}
	return &Manager{
		capacity: capacity,
		data:     make(map[string]*ring),
	}
}

// RecordSample appends a sample to the symbol's series, creating the series on
// first use and evicting the oldest sample once capacity is exceeded.
// A rejected sample leaves the catalog unchanged.
func (m *Manager) RecordSample(symbol string, price float64, ts time.Time) error {
	if symbol == "" {
		return ErrEmptySymbol
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: %s %v", ErrNonFinitePrice, symbol, price)
	}
	if ts.IsZero() {
		return fmt.Errorf("%w: %s", ErrZeroTimestamp, symbol)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.data[symbol]
	if ok {
		if newest, _ := r.newest(); ts.Before(newest) {
			return fmt.Errorf("%w: %s %s < %s", ErrOutOfOrder, symbol,
				ts.Format(time.RFC3339Nano), newest.Format(time.RFC3339Nano))
		}
	} else {
		r = newRing(m.capacity)
		m.data[symbol] = r
		m.order = append(m.order, symbol)
	}

	r.push(ts, price)
	m.lastUpdated = symbol
	return nil
}

// Snapshot returns a deep copy of all series.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := Snapshot{
		Series:      make([]Series, 0, len(m.order)),
		LastUpdated: m.lastUpdated,
	}
	for _, symbol := range m.order {
		times, prices := m.data[symbol].copyOut()
		out.Series = append(out.Series, Series{Symbol: symbol, Times: times, Prices: prices})
	}
	return out
}

// Series returns a copy of a single series.
func (m *Manager) Series(symbol string) (Series, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.data[symbol]
	if !ok {
		return Series{}, false
	}
	times, prices := r.copyOut()
	return Series{Symbol: symbol, Times: times, Prices: prices}, true
}

// Symbols returns the tracked symbols in first-seen order.
func (m *Manager) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Len returns the number of tracked series.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Points returns the number of samples held across all series.
func (m *Manager) Points() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, r := range m.data {
		total += r.size
	}
	return total
}

// Capacity returns the per-series window size.
func (m *Manager) Capacity() int { return m.capacity }

// Reset drops every series.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.order = nil
	m.data = make(map[string]*ring)
	m.lastUpdated = ""
}
