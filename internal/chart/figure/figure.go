// Package figure turns a series snapshot into the trace/layout document the
// browser hands to Plotly.react.
package figure

import (
	"fmt"
	"time"

	"livechart/internal/chart/indicator"
	"livechart/internal/chart/series"
)

// RangePolicy decides which series bound the visible x-range.
type RangePolicy string

const (
	// RangeLatest bounds the x-range by the most recently updated series.
	RangeLatest RangePolicy = "latest"
	// RangeUnion bounds the x-range by every series.
	RangeUnion RangePolicy = "union"
)

// ParseRangePolicy validates a configured policy name.
func ParseRangePolicy(s string) (RangePolicy, error) {
	switch p := RangePolicy(s); p {
	case RangeLatest, RangeUnion:
		return p, nil
	case "":
		return RangeUnion, nil
	default:
		return "", fmt.Errorf("invalid range policy: %s", s)
	}
}

type Options struct {
	Title       string
	XAxisTitle  string
	YAxisTitle  string
	LineWidth   int
	RangePolicy RangePolicy
	// Overlay adds moving-average traces and signals; nil disables it.
	Overlay *indicator.Overlay
}

type Figure struct {
	Data    []Trace        `json:"data"`
	Layout  Layout         `json:"layout"`
	Signals []SymbolSignal `json:"signals,omitempty"`
}

// SymbolSignal is the crossover signal of one series at its newest sample.
type SymbolSignal struct {
	Symbol string           `json:"symbol"`
	Signal indicator.Signal `json:"signal"`
}

type Trace struct {
	X    []time.Time `json:"x"`
	Y    []float64   `json:"y"`
	Name string      `json:"name"`
	Mode string      `json:"mode"`
	Line Line        `json:"line"`
}

type Line struct {
	Width int    `json:"width"`
	Dash  string `json:"dash,omitempty"`
}

type Layout struct {
	Title string `json:"title"`
	XAxis Axis      `json:"xaxis"`
	YAxis ValueAxis `json:"yaxis"`
}

// Axis leaves Range empty to let the chart autorange.
type Axis struct {
	Title string      `json:"title"`
	Range []time.Time `json:"range,omitempty"`
}

type ValueAxis struct {
	Title string    `json:"title"`
	Range []float64 `json:"range,omitempty"`
}

// Build renders snap into a Figure. The traces alias the snapshot's slices, so
// the snapshot must not be modified afterwards.
func Build(snap series.Snapshot, opts Options) Figure {
	width := opts.LineWidth
	if width <= 0 {
		width = 2
	}

	fig := Figure{
		Data: make([]Trace, 0, len(snap.Series)),
		Layout: Layout{
			Title: opts.Title,
			XAxis: Axis{Title: opts.XAxisTitle},
			YAxis: ValueAxis{Title: opts.YAxisTitle},
		},
	}
	for _, s := range snap.Series {
		fig.Data = append(fig.Data, Trace{
			X:    s.Times,
			Y:    s.Prices,
			Name: s.Symbol,
			Mode: "lines",
			Line: Line{Width: width},
		})
	}

	if lo, hi, ok := xRange(snap, opts.RangePolicy); ok {
		fig.Layout.XAxis.Range = []time.Time{lo, hi}
	}
	if opts.Overlay != nil {
		addOverlay(&fig, snap, *opts.Overlay, width)
	}
	return fig
}

// overlayPadding widens the y-range by this fraction of its span on each side.
const overlayPadding = 0.05

// addOverlay appends "<symbol> SMA(n)" traces after the price traces, records
// each series' signal and fits the y-range to prices and averages.
func addOverlay(fig *Figure, snap series.Snapshot, o indicator.Overlay, width int) {
	var lo, hi float64
	seen := false
	widen := func(values []float64) {
		for _, v := range values {
			if !seen || v < lo {
				lo = v
			}
			if !seen || v > hi {
				hi = v
			}
			seen = true
		}
	}

	for _, s := range snap.Series {
		widen(s.Prices)
		r := indicator.Compute(s, o)
		for _, l := range []indicator.Line{r.Short, r.Long} {
			if len(l.Values) == 0 {
				continue
			}
			widen(l.Values)
			fig.Data = append(fig.Data, Trace{
				X:    l.Times,
				Y:    l.Values,
				Name: fmt.Sprintf("%s SMA(%d)", s.Symbol, l.Window),
				Mode: "lines",
				Line: Line{Width: width, Dash: "dot"},
			})
		}
		if r.Signal != indicator.SignalNone {
			fig.Signals = append(fig.Signals, SymbolSignal{Symbol: s.Symbol, Signal: r.Signal})
		}
	}

	if seen {
		pad := (hi - lo) * overlayPadding
		fig.Layout.YAxis.Range = []float64{lo - pad, hi + pad}
	}
}

func xRange(snap series.Snapshot, policy RangePolicy) (lo, hi time.Time, ok bool) {
	if policy == RangeLatest {
		s, found := snap.Get(snap.LastUpdated)
		if !found {
			return time.Time{}, time.Time{}, false
		}
		return s.Bounds()
	}

	for _, s := range snap.Series {
		oldest, newest, has := s.Bounds()
		if !has {
			continue
		}
		if !ok || oldest.Before(lo) {
			lo = oldest
		}
		if !ok || newest.After(hi) {
			hi = newest
		}
		ok = true
	}
	return lo, hi, ok
}
