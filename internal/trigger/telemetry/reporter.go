package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/banshee-data/triggeralgs/internal/monitoring"
	"github.com/banshee-data/triggeralgs/internal/timeutil"
)

// Sink receives snapshots from a Reporter.
type Sink interface {
	Report(name string, s Snapshot)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(name string, s Snapshot)

func (f SinkFunc) Report(name string, s Snapshot) { f(name, s) }

// LogSink writes each snapshot through monitoring.Logf.
type LogSink struct{}

func (LogSink) Report(name string, s Snapshot) {
	monitoring.Logf("[telemetry] %s: in=%d out=%d anomalies=%d input_skew=%.1fms output_skew=%.1fms",
		name, s.Inputs, s.Outputs, s.Anomalies, s.InputSkewMs, s.OutputSkewMs)
}

// Collector keeps every snapshot it receives, per name.
type Collector struct {
	mu        sync.Mutex
	snapshots map[string][]Snapshot
}

func NewCollector() *Collector {
	return &Collector{snapshots: make(map[string][]Snapshot)}
}

func (c *Collector) Report(name string, s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[name] = append(c.snapshots[name], s)
}

// Snapshots returns a copy of the snapshots reported under name.
func (c *Collector) Snapshots(name string) []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Snapshot(nil), c.snapshots[name]...)
}

// Tee fans each report out to every sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(name string, s Snapshot) {
		for _, sink := range sinks {
			sink.Report(name, s)
		}
	})
}

// Reporter samples a set of named Counters on a fixed interval.
type Reporter struct {
	interval time.Duration
	sink     Sink
	clock    timeutil.Clock

	mu       sync.Mutex
	counters map[string]*Counters
}

// NewReporter returns a reporter that sends snapshots to sink every
// interval of clock. A nil clock ticks in real time.
func NewReporter(interval time.Duration, sink Sink, clock timeutil.Clock) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Reporter{interval: interval, sink: sink, clock: clock, counters: make(map[string]*Counters)}
}

// Track adds c to the set sampled under name.
func (r *Reporter) Track(name string, c *Counters) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] = c
}

// Run reports until ctx is cancelled, then reports once more so the final
// counts are always seen. It returns nil on cancellation.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.ReportNow()
			return nil
		case <-ticker.C():
			r.ReportNow()
		}
	}
}

// ReportNow sends one snapshot of every tracked Counters.
func (r *Reporter) ReportNow() {
	r.mu.Lock()
	tracked := make(map[string]*Counters, len(r.counters))
	for k, v := range r.counters {
		tracked[k] = v
	}
	r.mu.Unlock()
	for name, c := range tracked {
		r.sink.Report(name, c.Snapshot())
	}
}
