package series

import (
	"errors"
	"time"
)

// DefaultMaxPointsPerSeries is the rolling window used when Options leaves it unset.
const DefaultMaxPointsPerSeries = 100

var (
	ErrEmptySymbol    = errors.New("series: empty symbol")
	ErrNonFinitePrice = errors.New("series: price is not finite")
	ErrZeroTimestamp  = errors.New("series: zero timestamp")
	ErrOutOfOrder     = errors.New("series: timestamp older than newest sample")
)

// Options configures a Manager.
type Options struct {
	MaxPointsPerSeries int
}

// Series is one symbol's rolling window. Times and Prices are index-aligned,
// oldest first.
type Series struct {
	Symbol string      `json:"symbol"`
	Times  []time.Time `json:"times"`
	Prices []float64   `json:"prices"`
}

// Len returns the number of samples in the series.
func (s Series) Len() int { return len(s.Times) }

// Bounds returns the oldest and newest timestamps.
func (s Series) Bounds() (oldest, newest time.Time, ok bool) {
	if len(s.Times) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.Times[0], s.Times[len(s.Times)-1], true
}

// Snapshot is a point-in-time copy of every tracked series in first-seen order.
// It shares no memory with the Manager that produced it.
type Snapshot struct {
	Series      []Series `json:"series"`
	LastUpdated string   `json:"last_updated,omitempty"`
}

// Get returns the series for symbol.
func (s Snapshot) Get(symbol string) (Series, bool) {
	for _, ser := range s.Series {
		if ser.Symbol == symbol {
			return ser, true
		}
	}
	return Series{}, false
}
