// Package latency keeps a rolling window of pipeline round-trip times.
package latency

import (
	"math"
	"sync"
	"time"
)

// DefaultSize is the number of samples kept when no size is given.
const DefaultSize = 10

// Window is a bounded FIFO of the most recent round-trip durations.
type Window struct {
	mu      sync.Mutex
	size    int
	samples []time.Duration
}

// NewWindow creates a window holding at most size samples.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultSize
	}
	return &Window{size: size, samples: make([]time.Duration, 0, size)}
}

// Push records a completed round trip, evicting the oldest sample when full.
func (w *Window) Push(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) == w.size {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.size-1]
	}
	w.samples = append(w.samples, d)
}

// Average returns the mean of the retained samples in milliseconds,
// rounded to the nearest millisecond. An empty window averages to zero.
func (w *Window) Average() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range w.samples {
		total += s
	}
	ms := float64(total) / float64(time.Millisecond) / float64(len(w.samples))
	return int64(math.Round(ms))
}

// Len returns the number of retained samples.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.samples)
}
