package figure_test

import (
	"encoding/json"
	"testing"
	"time"

	"livechart/internal/chart/figure"
	"livechart/internal/chart/indicator"
	"livechart/internal/chart/series"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func snapshot(t *testing.T) series.Snapshot {
	t.Helper()
	m := series.New(series.Options{})
	require.NoError(t, m.RecordSample("BTC", 100, at(0)))
	require.NoError(t, m.RecordSample("ETH", 50, at(5)))
	require.NoError(t, m.RecordSample("ETH", 51, at(20)))
	require.NoError(t, m.RecordSample("BTC", 101, at(10)))
	return m.Snapshot()
}

// go test -v --run TestBuildTraces
func TestBuildTraces(t *testing.T) {
	fig := figure.Build(snapshot(t), figure.Options{
		Title:      "Real-Time Cryptocurrency Prices",
		XAxisTitle: "Time",
		YAxisTitle: "Price (USD)",
	})

	require.Len(t, fig.Data, 2)
	assert.Equal(t, "BTC", fig.Data[0].Name)
	assert.Equal(t, "ETH", fig.Data[1].Name)
	assert.Equal(t, "lines", fig.Data[0].Mode)
	assert.Equal(t, 2, fig.Data[0].Line.Width, "default line width")
	assert.Equal(t, []float64{100, 101}, fig.Data[0].Y)
	assert.Equal(t, []time.Time{at(0), at(10)}, fig.Data[0].X)

	assert.Equal(t, "Real-Time Cryptocurrency Prices", fig.Layout.Title)
	assert.Equal(t, "Time", fig.Layout.XAxis.Title)
	assert.Equal(t, "Price (USD)", fig.Layout.YAxis.Title)
}

// go test -v --run TestBuildRangePolicies
func TestBuildRangePolicies(t *testing.T) {
	snap := snapshot(t) // BTC was updated last: [0s, 10s]; ETH spans [5s, 20s]

	latest := figure.Build(snap, figure.Options{RangePolicy: figure.RangeLatest})
	assert.Equal(t, []time.Time{at(0), at(10)}, latest.Layout.XAxis.Range)

	union := figure.Build(snap, figure.Options{RangePolicy: figure.RangeUnion})
	assert.Equal(t, []time.Time{at(0), at(20)}, union.Layout.XAxis.Range)
}

// go test -v --run TestBuildEmpty
func TestBuildEmpty(t *testing.T) {
	for _, p := range []figure.RangePolicy{figure.RangeLatest, figure.RangeUnion} {
		fig := figure.Build(series.Snapshot{}, figure.Options{RangePolicy: p})
		assert.Empty(t, fig.Data)
		assert.Nil(t, fig.Layout.XAxis.Range)
	}
}

// go test -v --run TestFigureJSON
func TestFigureJSON(t *testing.T) {
	m := series.New(series.Options{})
	require.NoError(t, m.RecordSample("BTC-USD", 64000.5, at(0)))

	fig := figure.Build(m.Snapshot(), figure.Options{Title: "t", LineWidth: 3, RangePolicy: figure.RangeLatest})
	data, err := json.Marshal(fig)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"data": [{"x": ["2024-05-01T12:00:00Z"], "y": [64000.5], "name": "BTC-USD", "mode": "lines", "line": {"width": 3}}],
		"layout": {
			"title": "t",
			"xaxis": {"title": "", "range": ["2024-05-01T12:00:00Z", "2024-05-01T12:00:00Z"]},
			"yaxis": {"title": ""}
		}
	}`, string(data))
}

// go test -v --run TestParseRangePolicy
func TestParseRangePolicy(t *testing.T) {
	p, err := figure.ParseRangePolicy("latest")
	require.NoError(t, err)
	assert.Equal(t, figure.RangeLatest, p)

	p, err = figure.ParseRangePolicy("")
	require.NoError(t, err)
	assert.Equal(t, figure.RangeUnion, p)

	_, err = figure.ParseRangePolicy("everything")
	assert.Error(t, err)
}

// go test -v --run TestBuildOverlay
func TestBuildOverlay(t *testing.T) {
	m := series.New(series.Options{})
	for i, p := range []float64{10, 20, 30, 40, 50} {
		require.NoError(t, m.RecordSample("BTC", p, at(i)))
	}
	for i, p := range []float64{9, 8} {
		require.NoError(t, m.RecordSample("ETH", p, at(i)))
	}

	fig := figure.Build(m.Snapshot(), figure.Options{
		Overlay: &indicator.Overlay{ShortWindow: 2, LongWindow: 4},
	})

	// price traces first, then the averages; ETH is too short for the long one
	require.Len(t, fig.Data, 5)
	assert.Equal(t, "BTC", fig.Data[0].Name)
	assert.Equal(t, "ETH", fig.Data[1].Name)

	short := fig.Data[2]
	assert.Equal(t, "BTC SMA(2)", short.Name)
	assert.Equal(t, []float64{15, 25, 35, 45}, short.Y)
	assert.Equal(t, []time.Time{at(1), at(2), at(3), at(4)}, short.X)
	assert.Equal(t, "dot", short.Line.Dash)

	long := fig.Data[3]
	assert.Equal(t, "BTC SMA(4)", long.Name)
	assert.Equal(t, []float64{25, 35}, long.Y)
	assert.Equal(t, []time.Time{at(3), at(4)}, long.X)

	assert.Equal(t, "ETH SMA(2)", fig.Data[4].Name)
	assert.Equal(t, []float64{8.5}, fig.Data[4].Y)

	require.Len(t, fig.Signals, 1)
	assert.Equal(t, figure.SymbolSignal{Symbol: "BTC", Signal: indicator.SignalBuy}, fig.Signals[0])

	// y-range spans 8..50 padded by 5% of the span
	require.Len(t, fig.Layout.YAxis.Range, 2)
	assert.InDelta(t, 8-2.1, fig.Layout.YAxis.Range[0], 1e-9)
	assert.InDelta(t, 50+2.1, fig.Layout.YAxis.Range[1], 1e-9)
}

// go test -v --run TestBuildWithoutOverlay
func TestBuildWithoutOverlay(t *testing.T) {
	fig := figure.Build(snapshot(t), figure.Options{})
	assert.Len(t, fig.Data, 2)
	assert.Empty(t, fig.Signals)
	assert.Empty(t, fig.Layout.YAxis.Range, "no overlay leaves the y-axis on autorange")
}
