package candidate

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// DefaultMaxTPCount caps the primitives behind one candidate.
const DefaultMaxTPCount = 1000

// TPCount merges consecutive activities into one candidate until adding
// the next would push the primitive count past max_tp_count. It serves
// both channel_distance and dbscan, whose activities are already compact
// clusters.
type TPCount struct {
	algo    trigger.Algorithm
	max     int
	pending []trigger.Activity
	count   int
}

// NewTPCount returns a maker tagged with algo.
func NewTPCount(algo trigger.Algorithm) *TPCount {
	return &TPCount{algo: algo, max: DefaultMaxTPCount}
}

func (m *TPCount) Configure(p config.Params) error {
	cfg, err := parseConfig(m.algo, p)
	if err != nil {
		return err
	}
	m.max = cfg.GetMaxTPCount(DefaultMaxTPCount)
	m.pending = m.pending[:0]
	m.count = 0
	return nil
}

func (m *TPCount) Apply(ta trigger.Activity) []trigger.Candidate {
	n := ta.Summary().NPrimitives
	if len(m.pending) == 0 {
		m.pending = append(m.pending, ta)
		m.count = n
		return nil
	}
	if m.count+n > m.max {
		tc := m.construct()
		m.pending = append(m.pending[:0], ta)
		m.count = n
		return []trigger.Candidate{tc}
	}
	m.pending = append(m.pending, ta)
	m.count += n
	return nil
}

// Flush emits the open candidate regardless of horizon; it only closes on
// count.
func (m *TPCount) Flush(trigger.Timestamp) []trigger.Candidate {
	if len(m.pending) == 0 {
		return nil
	}
	tc := m.construct()
	m.pending = m.pending[:0]
	m.count = 0
	return []trigger.Candidate{tc}
}

func (m *TPCount) construct() trigger.Candidate {
	first, last := m.pending[0], m.pending[len(m.pending)-1]
	tc := trigger.Candidate{
		TimeStart:     first.TimeStart,
		TimeEnd:       last.TimeEnd,
		TimeCandidate: last.TimeStart,
		DetID:         first.DetID,
		Type:          candidateType(m.algo),
		Algorithm:     m.algo,
		Inputs:        trigger.Summaries(m.pending),
	}
	trigger.Tracef("%s: emitting candidate from %d activities, %d primitives", m.algo, len(m.pending), m.count)
	return tc
}
