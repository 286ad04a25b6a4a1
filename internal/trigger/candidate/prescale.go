package candidate

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// DefaultPrescale keeps every activity.
const DefaultPrescale = 1

// Prescale emits a candidate for one activity in every prescale, starting
// with the first.
type Prescale struct {
	prescale      uint64
	readoutBefore trigger.Timestamp
	readoutAfter  trigger.Timestamp
	count         uint64
}

func NewPrescale() *Prescale {
	return &Prescale{prescale: DefaultPrescale}
}

func (m *Prescale) Configure(p config.Params) error {
	cfg, err := parseConfig(trigger.AlgorithmPrescale, p)
	if err != nil {
		return err
	}
	m.prescale = cfg.GetPrescale(DefaultPrescale)
	m.readoutBefore = trigger.Timestamp(cfg.GetReadoutWindowTicksBefore(0))
	m.readoutAfter = trigger.Timestamp(cfg.GetReadoutWindowTicksAfter(0))
	m.count = 0
	return nil
}

func (m *Prescale) Apply(ta trigger.Activity) []trigger.Candidate {
	n := m.count
	m.count++
	if n%m.prescale != 0 {
		return nil
	}
	return []trigger.Candidate{{
		TimeStart:     before(ta.TimeStart, m.readoutBefore),
		TimeEnd:       ta.TimeEnd + m.readoutAfter,
		TimeCandidate: ta.TimeStart,
		DetID:         ta.DetID,
		Type:          trigger.CandidateTypePrescale,
		Algorithm:     trigger.AlgorithmPrescale,
		Inputs:        []trigger.ActivitySummary{ta.Summary()},
	}}
}

func (m *Prescale) Flush(trigger.Timestamp) []trigger.Candidate { return nil }
