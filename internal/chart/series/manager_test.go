package series_test

import (
	"math"
	"testing"
	"time"

	"livechart/internal/chart/series"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

// go test -v --run TestRecordSampleUnderCapacity
func TestRecordSampleUnderCapacity(t *testing.T) {
	m := series.New(series.Options{})
	require.Equal(t, 100, m.Capacity())

	for i := 0; i < 100; i++ {
		require.NoError(t, m.RecordSample("BTC", float64(i), at(i)))
	}

	s, ok := m.Snapshot().Get("BTC")
	require.True(t, ok)
	require.Equal(t, 100, s.Len())
	for i := 0; i < 100; i++ {
		assert.Equal(t, at(i), s.Times[i])
		assert.Equal(t, float64(i), s.Prices[i])
	}
}

// go test -v --run TestRecordSampleEvictsOldest
func TestRecordSampleEvictsOldest(t *testing.T) {
	m := series.New(series.Options{MaxPointsPerSeries: 100})

	for p := 1; p <= 101; p++ {
		require.NoError(t, m.RecordSample("BTC", float64(p), at(p)))
	}

	s, ok := m.Series("BTC")
	require.True(t, ok)
	require.Equal(t, 100, s.Len())
	assert.Equal(t, 2.0, s.Prices[0])
	assert.Equal(t, 101.0, s.Prices[99])
	assert.Equal(t, at(2), s.Times[0])
	assert.Equal(t, at(101), s.Times[99])
}

// go test -v --run TestRecordSampleKeepsMostRecentWindow
func TestRecordSampleKeepsMostRecentWindow(t *testing.T) {
	m := series.New(series.Options{MaxPointsPerSeries: 7})

	const n = 53
	for i := 0; i < n; i++ {
		require.NoError(t, m.RecordSample("ETH", float64(i), at(i)))
	}

	s, _ := m.Series("ETH")
	require.Equal(t, 7, s.Len())
	for i := 0; i < 7; i++ {
		assert.Equal(t, float64(n-7+i), s.Prices[i])
		assert.Equal(t, at(n-7+i), s.Times[i])
	}
	assert.Equal(t, 7, m.Points())
}

// go test -v --run TestSnapshotExample
func TestSnapshotExample(t *testing.T) {
	m := series.New(series.Options{})
	t1, t2, t3 := at(1), at(2), at(3)

	require.NoError(t, m.RecordSample("BTC", 100, t1))
	require.NoError(t, m.RecordSample("BTC", 101, t2))
	require.NoError(t, m.RecordSample("ETH", 50, t3))

	snap := m.Snapshot()
	require.Len(t, snap.Series, 2)
	assert.Equal(t, series.Series{Symbol: "BTC", Times: []time.Time{t1, t2}, Prices: []float64{100, 101}}, snap.Series[0])
	assert.Equal(t, series.Series{Symbol: "ETH", Times: []time.Time{t3}, Prices: []float64{50}}, snap.Series[1])
	assert.Equal(t, "ETH", snap.LastUpdated)
	assert.Equal(t, []string{"BTC", "ETH"}, m.Symbols())
}

// go test -v --run TestSeriesAreIndependent
func TestSeriesAreIndependent(t *testing.T) {
	m := series.New(series.Options{MaxPointsPerSeries: 3})

	for i := 0; i < 10; i++ {
		require.NoError(t, m.RecordSample("BTC", float64(i), at(i)))
	}
	require.NoError(t, m.RecordSample("ETH", 1, at(0)))

	btc, _ := m.Series("BTC")
	eth, _ := m.Series("ETH")
	assert.Equal(t, []float64{7, 8, 9}, btc.Prices)
	assert.Equal(t, []float64{1}, eth.Prices)
	assert.Equal(t, 2, m.Len())
}

// go test -v --run TestSnapshotIdempotent
func TestSnapshotIdempotent(t *testing.T) {
	m := series.New(series.Options{MaxPointsPerSeries: 5})
	for i := 0; i < 8; i++ {
		require.NoError(t, m.RecordSample("BTC", float64(i), at(i)))
	}

	assert.Equal(t, m.Snapshot(), m.Snapshot())
}

// go test -v --run TestSnapshotIsACopy
func TestSnapshotIsACopy(t *testing.T) {
	m := series.New(series.Options{MaxPointsPerSeries: 5})
	require.NoError(t, m.RecordSample("BTC", 1, at(1)))

	snap := m.Snapshot()
	snap.Series[0].Prices[0] = 999
	snap.Series[0].Times[0] = time.Time{}

	require.NoError(t, m.RecordSample("BTC", 2, at(2)))
	s, _ := m.Series("BTC")
	assert.Equal(t, []float64{1, 2}, s.Prices)
	assert.Equal(t, at(1), s.Times[0])
	assert.Len(t, snap.Series[0].Prices, 1, "snapshot must not observe later samples")
}

// go test -v --run TestRecordSampleRejects
func TestRecordSampleRejects(t *testing.T) {
	m := series.New(series.Options{})
	require.NoError(t, m.RecordSample("BTC", 1, at(10)))

	tests := []struct {
		name   string
		symbol string
		price  float64
		ts     time.Time
		want   error
	}{
		{"empty symbol", "", 1, at(11), series.ErrEmptySymbol},
		{"nan", "BTC", math.NaN(), at(11), series.ErrNonFinitePrice},
		{"+inf", "BTC", math.Inf(1), at(11), series.ErrNonFinitePrice},
		{"-inf", "ETH", math.Inf(-1), at(11), series.ErrNonFinitePrice},
		{"zero time", "BTC", 1, time.Time{}, series.ErrZeroTimestamp},
		{"out of order", "BTC", 1, at(9), series.ErrOutOfOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.RecordSample(tt.symbol, tt.price, tt.ts)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// Nothing above changed the catalog, and ETH was never created.
	assert.Equal(t, []string{"BTC"}, m.Symbols())
	s, _ := m.Series("BTC")
	assert.Equal(t, []float64{1}, s.Prices)

	// Equal timestamps are in order.
	assert.NoError(t, m.RecordSample("BTC", 2, at(10)))
}

// go test -v --run TestReset
func TestReset(t *testing.T) {
	m := series.New(series.Options{})
	require.NoError(t, m.RecordSample("BTC", 1, at(1)))

	m.Reset()

	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Snapshot().Series)
	assert.Empty(t, m.Snapshot().LastUpdated)
	_, ok := m.Series("BTC")
	assert.False(t, ok)

	// A reset series accepts older timestamps again.
	assert.NoError(t, m.RecordSample("BTC", 1, at(0)))
}

// go test -v --run TestSeriesBounds
func TestSeriesBounds(t *testing.T) {
	_, _, ok := series.Series{}.Bounds()
	assert.False(t, ok)

	s := series.Series{Times: []time.Time{at(1), at(2), at(5)}, Prices: []float64{1, 2, 3}}
	oldest, newest, ok := s.Bounds()
	require.True(t, ok)
	assert.Equal(t, at(1), oldest)
	assert.Equal(t, at(5), newest)
}
