package observability

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histMinMicros = 1
	histMaxMicros = int64(time.Hour / time.Microsecond)
	histSigFigs   = 3
)

// Latency is a concurrency-safe HDR histogram of durations with
// microsecond resolution, for callers who want percentiles without a
// Prometheus scrape.
type Latency struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// LatencySnapshot is a point-in-time summary of a [Latency].
type LatencySnapshot struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
}

func NewLatency() *Latency {
	return &Latency{
		hist: hdrhistogram.New(histMinMicros, histMaxMicros, histSigFigs),
	}
}

// Record adds d, clamped to the histogram's trackable range.
func (l *Latency) Record(d time.Duration) {
	if l == nil {
		return
	}

	us := d.Microseconds()
	us = max(us, histMinMicros)
	us = min(us, histMaxMicros)

	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.hist.RecordValue(us) // in range after clamping
}

// Snapshot summarises everything recorded so far.
func (l *Latency) Snapshot() LatencySnapshot {
	if l == nil {
		return LatencySnapshot{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hist.TotalCount() == 0 {
		return LatencySnapshot{}
	}

	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }

	return LatencySnapshot{
		Count: l.hist.TotalCount(),
		Min:   us(l.hist.Min()),
		Max:   us(l.hist.Max()),
		Mean:  us(int64(l.hist.Mean())),
		P50:   us(l.hist.ValueAtQuantile(50)),
		P90:   us(l.hist.ValueAtQuantile(90)),
		P99:   us(l.hist.ValueAtQuantile(99)),
	}
}

// Reset discards all recorded values.
func (l *Latency) Reset() {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.hist.Reset()
}
