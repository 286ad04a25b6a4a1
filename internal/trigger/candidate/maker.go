// Package candidate holds the makers that turn trigger activities into
// trigger candidates.
//
// The contract matches the activity makers: Apply once per activity in
// arrival order, Flush at the end of a stream, Configure before use.
package candidate

import (
	"fmt"

	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/registry"
)

// Maker builds candidates from activities. A Maker is not safe for
// concurrent use.
type Maker interface {
	Configure(p config.Params) error
	Apply(ta trigger.Activity) []trigger.Candidate
	Flush(horizon trigger.Timestamp) []trigger.Candidate
}

// Registry is the candidate maker registry.
type Registry = registry.Registry[Maker]

// NewRegistry returns an empty candidate maker registry.
func NewRegistry() *Registry { return registry.New[Maker]() }

// RegisterAll registers every candidate maker under its algorithm name.
func RegisterAll(r *Registry) error {
	ctors := []struct {
		algo trigger.Algorithm
		ctor registry.Constructor[Maker]
	}{
		{trigger.AlgorithmADCSimpleWindow, func() Maker { return NewPassthrough(trigger.AlgorithmADCSimpleWindow) }},
		{trigger.AlgorithmHorizontalMuon, func() Maker { return NewPassthrough(trigger.AlgorithmHorizontalMuon) }},
		{trigger.AlgorithmChannelAdjacency, func() Maker { return NewChannelAdjacency() }},
		{trigger.AlgorithmPlaneCoincidence, func() Maker { return NewPlaneCoincidence() }},
		{trigger.AlgorithmChannelDistance, func() Maker { return NewTPCount(trigger.AlgorithmChannelDistance) }},
		{trigger.AlgorithmDBSCAN, func() Maker { return NewTPCount(trigger.AlgorithmDBSCAN) }},
		{trigger.AlgorithmBundle, func() Maker { return NewBundle() }},
		{trigger.AlgorithmPrescale, func() Maker { return NewPrescale() }},
		{trigger.AlgorithmSupernova, func() Maker { return NewSupernova() }},
	}
	for _, c := range ctors {
		if err := r.Register(c.algo.String(), c.ctor); err != nil {
			return err
		}
	}
	return nil
}

func badConfig(algo trigger.Algorithm, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s: %w", algo, fmt.Sprintf(format, args...), trigger.ErrBadConfiguration)
}

func parseConfig(algo trigger.Algorithm, p config.Params) (*config.MakerConfig, error) {
	cfg, err := config.ParseMakerConfig(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", algo, err, trigger.ErrBadConfiguration)
	}
	return cfg, nil
}

// since returns now-start, or 0 when now is earlier. Activities are not
// guaranteed to arrive in start order.
func since(now, start trigger.Timestamp) trigger.Timestamp {
	if now < start {
		return 0
	}
	return now - start
}

// before returns t-d, clamped at zero.
func before(t, d trigger.Timestamp) trigger.Timestamp {
	if d > t {
		return 0
	}
	return t - d
}

func candidateType(algo trigger.Algorithm) trigger.CandidateType {
	return trigger.CandidateType(algo)
}
