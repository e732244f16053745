// Package perf provides the performance-marking utility used to bracket
// instance initialization. Measurements are exported as a Prometheus
// histogram.
package perf

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Marker records named points in time and measures the span between two of them.
type Marker interface {
	Mark(label string)
	Measure(name, startLabel, endLabel string)
}

// Recorder is a Marker backed by a Prometheus histogram keyed by measure name.
type Recorder struct {
	mu       sync.Mutex
	marks    map[string]time.Time
	duration *prometheus.HistogramVec
	now      func() time.Time
}

// NewRecorder creates a Recorder and registers its histogram with reg.
// A nil reg leaves the histogram unregistered.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "loom",
			Name:      "measure_duration_seconds",
			Help:      "Duration between two performance marks.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
		[]string{"measure"},
	)
	if reg != nil {
		if err := reg.Register(duration); err != nil {
			return nil, err
		}
	}
	return &Recorder{
		marks:    make(map[string]time.Time),
		duration: duration,
		now:      time.Now,
	}, nil
}

// Mark records the current time under label.
func (r *Recorder) Mark(label string) {
	r.mu.Lock()
	r.marks[label] = r.now()
	r.mu.Unlock()
}

// Measure observes the time between startLabel and endLabel under name.
// Both marks are consumed. Missing marks make the call a no-op.
func (r *Recorder) Measure(name, startLabel, endLabel string) {
	r.mu.Lock()
	start, okStart := r.marks[startLabel]
	end, okEnd := r.marks[endLabel]
	delete(r.marks, startLabel)
	delete(r.marks, endLabel)
	r.mu.Unlock()

	if !okStart || !okEnd {
		return
	}
	r.duration.WithLabelValues(name).Observe(end.Sub(start).Seconds())
}

// Pending returns the number of marks not yet consumed by Measure.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.marks)
}

// Collector exposes the underlying histogram, e.g. for testutil.
func (r *Recorder) Collector() prometheus.Collector {
	return r.duration
}
