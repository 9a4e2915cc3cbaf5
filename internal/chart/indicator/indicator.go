// Package indicator computes moving-average overlays over a price series.
package indicator

import (
	"errors"
	"fmt"
	"time"

	"livechart/internal/chart/series"

	"github.com/shopspring/decimal"
)

type Signal string

const (
	SignalNone Signal = ""
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
)

// Overlay is a short/long simple moving average pair.
type Overlay struct {
	ShortWindow int
	LongWindow  int
}

func (o Overlay) Validate() error {
	if o.ShortWindow <= 0 {
		return fmt.Errorf("short window must be > 0, got %d", o.ShortWindow)
	}
	if o.LongWindow <= o.ShortWindow {
		return errors.New("long window must be greater than the short window")
	}
	return nil
}

// Line is a moving average aligned with the tail of its series: Values[i]
// belongs to Times[i].
type Line struct {
	Window int
	Times  []time.Time
	Values []float64
}

// Result holds both averages of one series and the crossover signal at its
// newest sample.
type Result struct {
	Short  Line
	Long   Line
	Signal Signal
}

// SMA returns the simple moving average of prices over window, one value per
// sample from index window-1 on. It returns nil when there are fewer than
// window prices.
func SMA(prices []float64, window int) []float64 {
	if window <= 0 || len(prices) < window {
		return nil
	}

	// decimal keeps the running sum exact while samples enter and leave
	n := decimal.NewFromInt(int64(window))
	sum := decimal.Zero
	out := make([]float64, 0, len(prices)-window+1)
	for i, p := range prices {
		sum = sum.Add(decimal.NewFromFloat(p))
		if i >= window {
			sum = sum.Sub(decimal.NewFromFloat(prices[i-window]))
		}
		if i >= window-1 {
			avg, _ := sum.Div(n).Float64()
			out = append(out, avg)
		}
	}
	return out
}

// Crossover compares the short and long averages over the newest prices:
// buy when the short average is above the long one, sell when below. There is
// no signal until the series holds LongWindow prices.
func Crossover(prices []float64, o Overlay) Signal {
	if o.ShortWindow <= 0 || o.LongWindow <= 0 || len(prices) < o.LongWindow {
		return SignalNone
	}
	short := mean(prices[len(prices)-o.ShortWindow:])
	long := mean(prices[len(prices)-o.LongWindow:])

	switch short.Cmp(long) {
	case 1:
		return SignalBuy
	case -1:
		return SignalSell
	default:
		return SignalNone
	}
}

// Compute builds both averages of s and its current signal.
func Compute(s series.Series, o Overlay) Result {
	return Result{
		Short:  line(s, o.ShortWindow),
		Long:   line(s, o.LongWindow),
		Signal: Crossover(s.Prices, o),
	}
}

func line(s series.Series, window int) Line {
	values := SMA(s.Prices, window)
	l := Line{Window: window, Values: values}
	if values != nil {
		l.Times = s.Times[len(s.Times)-len(values):]
	}
	return l
}

func mean(prices []float64) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(decimal.NewFromFloat(p))
	}
	return sum.Div(decimal.NewFromInt(int64(len(prices))))
}
