// Package activity holds the makers that turn a time-ordered stream of
// trigger primitives into trigger activities.
//
// Every maker is a single-owner state machine: Apply is called once per
// primitive, in arrival order, and returns the activities that input
// completed. Flush emits whatever would be emitted if time advanced to a
// horizon, and is called at the end of a stream.
package activity

import (
	"fmt"

	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/registry"
)

// Maker builds activities from primitives. A Maker is not safe for
// concurrent use.
type Maker interface {
	// Configure applies params. Unset options keep their defaults. It
	// must be called once before the first Apply.
	Configure(p config.Params) error
	// Apply consumes one primitive and returns the activities it completed.
	Apply(tp trigger.Primitive) []trigger.Activity
	// Flush returns any activity pending as of horizon.
	Flush(horizon trigger.Timestamp) []trigger.Activity
}

// AnomalyCounter is implemented by makers that drop anomalous input.
type AnomalyCounter interface {
	Anomalies() uint64
}

// Registry is the activity maker registry.
type Registry = registry.Registry[Maker]

// NewRegistry returns an empty activity maker registry.
func NewRegistry() *Registry { return registry.New[Maker]() }

// RegisterAll registers every activity maker under its algorithm name.
func RegisterAll(r *Registry) error {
	ctors := []struct {
		algo trigger.Algorithm
		ctor registry.Constructor[Maker]
	}{
		{trigger.AlgorithmADCSimpleWindow, func() Maker { return NewADCSimpleWindow() }},
		{trigger.AlgorithmHorizontalMuon, func() Maker { return NewHorizontalMuon() }},
		{trigger.AlgorithmChannelAdjacency, func() Maker { return NewChannelAdjacency() }},
		{trigger.AlgorithmPlaneCoincidence, func() Maker { return NewPlaneCoincidence() }},
		{trigger.AlgorithmChannelDistance, func() Maker { return NewChannelDistance() }},
		{trigger.AlgorithmBundle, func() Maker { return NewBundle() }},
		{trigger.AlgorithmPrescale, func() Maker { return NewPrescale() }},
		{trigger.AlgorithmDBSCAN, func() Maker { return NewDBSCAN() }},
	}
	for _, c := range ctors {
		if err := r.Register(c.algo.String(), c.ctor); err != nil {
			return err
		}
	}
	return nil
}

// badConfig wraps trigger.ErrBadConfiguration with the maker name.
func badConfig(algo trigger.Algorithm, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", algo, fmt.Sprintf(format, args...), trigger.ErrBadConfiguration)
}

// parseConfig decodes p, wrapping decode failures as configuration errors.
func parseConfig(algo trigger.Algorithm, p config.Params) (*config.MakerConfig, error) {
	cfg, err := config.ParseMakerConfig(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", algo, err, trigger.ErrBadConfiguration)
	}
	return cfg, nil
}

// orderGuard drops primitives that start before the previous accepted one.
type orderGuard struct {
	algo      trigger.Algorithm
	started   bool
	last      trigger.Timestamp
	anomalies uint64
}

func (g *orderGuard) accept(tp trigger.Primitive) bool {
	if g.started && tp.TimeStart < g.last {
		g.anomalies++
		trigger.Anomalyf("%s: out-of-order primitive dropped: prev %d, current %d, channel %d",
			g.algo, g.last, tp.TimeStart, tp.Channel)
		return false
	}
	g.started = true
	g.last = tp.TimeStart
	return true
}

// Anomalies returns the number of primitives dropped so far.
func (g *orderGuard) Anomalies() uint64 { return g.anomalies }

func logTP(algo trigger.Algorithm, tp trigger.Primitive) {
	trigger.Tracef("%s: tp start %d, adc sum %d, tot %d, adc peak %d, channel %d",
		algo, tp.TimeStart, tp.ADCIntegral, tp.TimeOverThreshold, tp.ADCPeak, tp.Channel)
}
