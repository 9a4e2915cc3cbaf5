package series

import "time"

// ring is a fixed-capacity FIFO of samples. Pushing into a full ring
// overwrites the oldest sample.
type ring struct {
	times  []time.Time
	prices []float64
	head   int // index of the oldest sample
	size   int
}

func newRing(capacity int) *ring {
	return &ring{
		times:  make([]time.Time, capacity),
		prices: make([]float64, capacity),
	}
}

// push appends a sample and reports whether the oldest one was evicted.
func (r *ring) push(ts time.Time, price float64) bool {
	capacity := len(r.times)
	if r.size < capacity {
		i := (r.head + r.size) % capacity
		r.times[i] = ts
		r.prices[i] = price
		r.size++
		return false
	}

	r.times[r.head] = ts
	r.prices[r.head] = price
	r.head = (r.head + 1) % capacity
	return true
}

// newest returns the most recently pushed timestamp.
func (r *ring) newest() (time.Time, bool) {
	if r.size == 0 {
		return time.Time{}, false
	}
	return r.times[(r.head+r.size-1)%len(r.times)], true
}

// copyOut returns the samples oldest first as freshly allocated slices.
func (r *ring) copyOut() ([]time.Time, []float64) {
	times := make([]time.Time, r.size)
	prices := make([]float64, r.size)
	for i := 0; i < r.size; i++ {
		j := (r.head + i) % len(r.times)
		times[i] = r.times[j]
		prices[i] = r.prices[j]
	}
	return times, prices
}
