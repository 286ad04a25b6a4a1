// Package telemetry tracks how a maker keeps up with its input stream.
//
// Counters is written by the goroutine driving a maker and read by any
// number of reporters. All fields are atomics, so a Snapshot never blocks
// the writer.
package telemetry

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/banshee-data/triggeralgs/internal/timeutil"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// Counters holds the live counters for one maker.
type Counters struct {
	clock timeutil.Clock

	inputs    atomic.Uint64
	outputs   atomic.Uint64
	anomalies atomic.Uint64

	started atomic.Bool
	// Float64 bits, in milliseconds.
	offset     atomic.Uint64
	inputSkew  atomic.Uint64
	outputSkew atomic.Uint64
}

// NewCounters returns zeroed counters reading system time from clock. A
// nil clock reads the real clock.
func NewCounters(clock timeutil.Clock) *Counters {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Counters{clock: clock}
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Time      time.Time `json:"time"`
	Inputs    uint64    `json:"inputs"`
	Outputs   uint64    `json:"outputs"`
	Anomalies uint64    `json:"anomalies"`
	Started   bool      `json:"started"`
	// OffsetMs is system time minus data time at the first input.
	OffsetMs float64 `json:"offset_ms"`
	// InputSkewMs and OutputSkewMs are how far the stream has drifted
	// behind (positive) or ahead of its initial offset.
	InputSkewMs  float64 `json:"input_skew_ms"`
	OutputSkewMs float64 `json:"output_skew_ms"`
}

// TicksToMs converts detector clock ticks to milliseconds.
func TicksToMs(t trigger.Timestamp) float64 {
	return float64(t) * trigger.MsPerTick
}

func (c *Counters) lag(ts trigger.Timestamp) float64 {
	system := float64(c.clock.Now().UnixNano()) / 1e6
	return system - TicksToMs(ts)
}

// ObserveInput records an input with data time ts. The first input fixes
// the data/system offset that later skews are measured against.
func (c *Counters) ObserveInput(ts trigger.Timestamp) {
	c.inputs.Add(1)
	lag := c.lag(ts)
	if c.started.CompareAndSwap(false, true) {
		c.offset.Store(math.Float64bits(lag))
	}
	c.inputSkew.Store(math.Float64bits(lag - math.Float64frombits(c.offset.Load())))
}

// ObserveOutputs records n outputs, the latest at data time ts.
func (c *Counters) ObserveOutputs(n int, ts trigger.Timestamp) {
	if n <= 0 {
		return
	}
	c.outputs.Add(uint64(n))
	if !c.started.Load() {
		return
	}
	c.outputSkew.Store(math.Float64bits(c.lag(ts) - math.Float64frombits(c.offset.Load())))
}

// SetAnomalies records the maker's running anomaly count.
func (c *Counters) SetAnomalies(n uint64) { c.anomalies.Store(n) }

// AddAnomalies adds n anomalies seen outside the maker.
func (c *Counters) AddAnomalies(n uint64) { c.anomalies.Add(n) }

// Snapshot copies the counters.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Time:         c.clock.Now(),
		Inputs:       c.inputs.Load(),
		Outputs:      c.outputs.Load(),
		Anomalies:    c.anomalies.Load(),
		Started:      c.started.Load(),
		OffsetMs:     math.Float64frombits(c.offset.Load()),
		InputSkewMs:  math.Float64frombits(c.inputSkew.Load()),
		OutputSkewMs: math.Float64frombits(c.outputSkew.Load()),
	}
}
