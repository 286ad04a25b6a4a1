package candidate

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// Supernova defaults. The readout reaches back a fixed 8 s (500M ticks).
const (
	DefaultSupernovaTimeWindow   = 500000000
	DefaultSupernovaThreshold    = 3
	DefaultSupernovaHitThreshold = 3
	SupernovaLookback            = 500000000
)

// Supernova counts busy activities over a long time window and emits a
// whole-detector candidate when the count passes a threshold.
type Supernova struct {
	timeWindow   trigger.Timestamp
	threshold    int
	hitThreshold int

	buffer []trigger.Activity
}

func NewSupernova() *Supernova {
	return &Supernova{
		timeWindow:   DefaultSupernovaTimeWindow,
		threshold:    DefaultSupernovaThreshold,
		hitThreshold: DefaultSupernovaHitThreshold,
	}
}

func (m *Supernova) Configure(p config.Params) error {
	cfg, err := parseConfig(trigger.AlgorithmSupernova, p)
	if err != nil {
		return err
	}
	m.timeWindow = trigger.Timestamp(cfg.GetTimeWindow(DefaultSupernovaTimeWindow))
	m.threshold = cfg.GetThreshold(DefaultSupernovaThreshold)
	m.hitThreshold = cfg.GetHitThreshold(DefaultSupernovaHitThreshold)
	m.buffer = m.buffer[:0]
	return nil
}

func (m *Supernova) Apply(ta trigger.Activity) []trigger.Candidate {
	now := ta.TimeStart
	m.expire(now)

	if ta.Summary().NPrimitives > m.hitThreshold {
		m.buffer = append(m.buffer, ta)
	}
	if len(m.buffer) <= m.threshold {
		return nil
	}
	tc := trigger.Candidate{
		TimeStart:     before(now, SupernovaLookback),
		TimeEnd:       ta.TimeEnd,
		TimeCandidate: now,
		DetID:         trigger.WholeDetector,
		Type:          trigger.CandidateTypeSupernova,
		Algorithm:     trigger.AlgorithmSupernova,
		Inputs:        trigger.Summaries(m.buffer),
	}
	trigger.Opsf("%s: burst of %d activities at %d", tc.Algorithm, len(m.buffer), now)
	clear(m.buffer)
	m.buffer = m.buffer[:0]
	return []trigger.Candidate{tc}
}

// Flush ages the buffer to horizon. A burst emits as soon as it passes
// the threshold, so there is never anything pending.
func (m *Supernova) Flush(horizon trigger.Timestamp) []trigger.Candidate {
	m.expire(horizon)
	return nil
}

// Len returns the number of buffered activities.
func (m *Supernova) Len() int { return len(m.buffer) }

func (m *Supernova) expire(now trigger.Timestamp) {
	n := 0
	for n < len(m.buffer) && since(now, m.buffer[n].TimeStart) > m.timeWindow {
		n++
	}
	if n > 0 {
		clear(m.buffer[:n])
		m.buffer = m.buffer[n:]
	}
}
