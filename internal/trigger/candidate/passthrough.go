package candidate

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// Passthrough turns every activity into its own candidate. It serves the
// makers whose activity stage already made the decision.
type Passthrough struct {
	algo trigger.Algorithm
}

// NewPassthrough returns a 1:1 maker tagged with algo.
func NewPassthrough(algo trigger.Algorithm) *Passthrough {
	return &Passthrough{algo: algo}
}

// Configure accepts no options beyond the common ones and validates them.
func (m *Passthrough) Configure(p config.Params) error {
	_, err := parseConfig(m.algo, p)
	return err
}

func (m *Passthrough) Apply(ta trigger.Activity) []trigger.Candidate {
	tc := trigger.Candidate{
		TimeStart:     ta.TimeStart,
		TimeEnd:       ta.TimeEnd,
		TimeCandidate: ta.TimeActivity,
		DetID:         ta.DetID,
		Type:          candidateType(m.algo),
		Algorithm:     m.algo,
		Inputs:        []trigger.ActivitySummary{ta.Summary()},
	}
	trigger.Tracef("%s: emitting candidate at %d", m.algo, tc.TimeCandidate)
	return []trigger.Candidate{tc}
}

func (m *Passthrough) Flush(trigger.Timestamp) []trigger.Candidate { return nil }
