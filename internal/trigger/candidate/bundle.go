package candidate

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// DefaultBundleSize emits one candidate per activity.
const DefaultBundleSize = 1

// Bundle groups every bundle_size consecutive activities into one
// candidate spanning them.
type Bundle struct {
	size      int
	pending   []trigger.Activity
	oversized uint64
}

// NewBundle returns a maker with bundle_size 1.
func NewBundle() *Bundle {
	return &Bundle{size: DefaultBundleSize}
}

func (m *Bundle) Configure(p config.Params) error {
	cfg, err := parseConfig(trigger.AlgorithmBundle, p)
	if err != nil {
		return err
	}
	m.size = cfg.GetBundleSize(DefaultBundleSize)
	m.pending = m.pending[:0]
	return nil
}

func (m *Bundle) Apply(ta trigger.Activity) []trigger.Candidate {
	m.pending = append(m.pending, ta)
	if len(m.pending) < m.size {
		return nil
	}
	if len(m.pending) > m.size {
		m.oversized++
		trigger.Anomalyf("%s: bundle holds %d activities, size is %d", trigger.AlgorithmBundle, len(m.pending), m.size)
	}
	tc := m.construct()
	m.pending = m.pending[:0]
	return []trigger.Candidate{tc}
}

// Flush emits a partial bundle.
func (m *Bundle) Flush(trigger.Timestamp) []trigger.Candidate {
	if len(m.pending) == 0 {
		return nil
	}
	tc := m.construct()
	m.pending = m.pending[:0]
	return []trigger.Candidate{tc}
}

// Anomalies returns how many bundles exceeded the configured size.
func (m *Bundle) Anomalies() uint64 { return m.oversized }

func (m *Bundle) construct() trigger.Candidate {
	front, back := m.pending[0], m.pending[len(m.pending)-1]
	return trigger.Candidate{
		TimeStart:     front.TimeStart,
		TimeEnd:       back.TimeEnd,
		TimeCandidate: front.TimeStart,
		DetID:         front.DetID,
		Type:          trigger.CandidateTypeBundle,
		Algorithm:     trigger.AlgorithmBundle,
		Inputs:        trigger.Summaries(m.pending),
	}
}
