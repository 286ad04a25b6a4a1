package candidate

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/window"
)

// DefaultPlaneReadoutTicks is the PlaneCoincidence readout margin.
const DefaultPlaneReadoutTicks = 30000

// PlaneCoincidence windows activities and emits the window when it is
// complete and its ADC sum exceeds a threshold. With trigger_on_adc off it
// passes every activity through as its own candidate.
type PlaneCoincidence struct {
	windowLength  trigger.Timestamp
	triggerOnADC  bool
	adcThreshold  uint64
	readoutBefore trigger.Timestamp
	readoutAfter  trigger.Timestamp

	win *window.Window[trigger.Activity]
}

// NewPlaneCoincidence returns a maker in passthrough mode.
func NewPlaneCoincidence() *PlaneCoincidence {
	return &PlaneCoincidence{
		windowLength:  DefaultWindowLength,
		adcThreshold:  DefaultADCThreshold,
		readoutBefore: DefaultPlaneReadoutTicks,
		readoutAfter:  DefaultPlaneReadoutTicks,
		win:           window.NewActivityWindow(),
	}
}

// Configure rejects trigger_on_n_channels, which has no candidate logic.
func (m *PlaneCoincidence) Configure(p config.Params) error {
	algo := trigger.AlgorithmPlaneCoincidence
	cfg, err := parseConfig(algo, p)
	if err != nil {
		return err
	}
	if cfg.GetTriggerOnNChannels(false) {
		return badConfig(algo, "trigger_on_n_channels is not supported")
	}
	m.triggerOnADC = cfg.GetTriggerOnADC(false)
	m.windowLength = trigger.Timestamp(cfg.GetWindowLength(DefaultWindowLength))
	m.adcThreshold = cfg.GetADCThreshold(DefaultADCThreshold)
	m.readoutBefore = trigger.Timestamp(cfg.GetReadoutWindowTicksBefore(DefaultPlaneReadoutTicks))
	m.readoutAfter = trigger.Timestamp(cfg.GetReadoutWindowTicksAfter(DefaultPlaneReadoutTicks))
	if !m.triggerOnADC {
		trigger.Opsf("%s: no trigger flags set, every activity becomes a candidate", algo)
	}
	return nil
}

func (m *PlaneCoincidence) Apply(ta trigger.Activity) []trigger.Candidate {
	if m.win.IsEmpty() {
		m.win.Reset(ta)
		if !m.triggerOnADC {
			tc := m.construct()
			m.win.Clear()
			return []trigger.Candidate{tc}
		}
		return nil
	}
	if since(ta.TimeStart, m.win.TimeStart()) < m.windowLength {
		m.win.Add(ta)
		return nil
	}
	if m.win.ADCIntegral() > m.adcThreshold {
		tc := m.construct()
		m.win.Reset(ta)
		return []trigger.Candidate{tc}
	}
	m.win.Move(ta, m.windowLength)
	return nil
}

func (m *PlaneCoincidence) Flush(horizon trigger.Timestamp) []trigger.Candidate {
	if m.win.IsEmpty() || since(horizon, m.win.TimeStart()) < m.windowLength {
		return nil
	}
	if m.triggerOnADC && m.win.ADCIntegral() > m.adcThreshold {
		tc := m.construct()
		m.win.Clear()
		return []trigger.Candidate{tc}
	}
	m.win.Expire(horizon, m.windowLength)
	return nil
}

// construct spans the readout from before the window start to after the
// end of the last primitive of the last activity.
func (m *PlaneCoincidence) construct() trigger.Candidate {
	start := m.win.TimeStart()
	last := m.win.Back()
	end := last.TimeEnd
	if n := len(last.Inputs); n > 0 {
		end = last.Inputs[n-1].TimeEnd()
	}
	tc := trigger.Candidate{
		TimeStart:     before(start, m.readoutBefore),
		TimeEnd:       end + m.readoutAfter,
		TimeCandidate: start,
		DetID:         last.DetID,
		Type:          trigger.CandidateTypePlaneCoincidence,
		Algorithm:     trigger.AlgorithmPlaneCoincidence,
		Inputs:        trigger.Summaries(m.win.Inputs()),
	}
	trigger.Diagf("%s: emitting candidate, %s", tc.Algorithm, m.win)
	return tc
}
