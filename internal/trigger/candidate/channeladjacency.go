package candidate

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/window"
)

// Windowed candidate defaults.
const (
	DefaultWindowLength       = 80000
	DefaultADCThreshold       = 1200000
	DefaultNChannelsThreshold = 600
	DefaultReadoutTicks       = 32768
)

// ChannelAdjacency collects activities in a time window and emits the
// window as soon as its ADC sum or distinct channel count passes a
// threshold. The readout window is centred on the window start.
type ChannelAdjacency struct {
	windowLength       trigger.Timestamp
	triggerOnADC       bool
	triggerOnNChannels bool
	adcThreshold       uint64
	nChannelsThreshold int
	readoutBefore      trigger.Timestamp
	readoutAfter       trigger.Timestamp

	win *window.Window[trigger.Activity]
}

// NewChannelAdjacency returns a maker with default parameters. Both
// trigger flags are off, so it must be configured before use.
func NewChannelAdjacency() *ChannelAdjacency {
	return &ChannelAdjacency{
		windowLength:       DefaultWindowLength,
		adcThreshold:       DefaultADCThreshold,
		nChannelsThreshold: DefaultNChannelsThreshold,
		readoutBefore:      DefaultReadoutTicks,
		readoutAfter:       DefaultReadoutTicks,
		win:                window.NewActivityWindow(),
	}
}

// Configure fails when neither trigger_on_adc nor trigger_on_n_channels is
// set, since the maker could then never trigger.
func (m *ChannelAdjacency) Configure(p config.Params) error {
	algo := trigger.AlgorithmChannelAdjacency
	cfg, err := parseConfig(algo, p)
	if err != nil {
		return err
	}
	m.triggerOnADC = cfg.GetTriggerOnADC(false)
	m.triggerOnNChannels = cfg.GetTriggerOnNChannels(false)
	if !m.triggerOnADC && !m.triggerOnNChannels {
		return badConfig(algo, "trigger_on_adc and trigger_on_n_channels are both false")
	}
	m.windowLength = trigger.Timestamp(cfg.GetWindowLength(DefaultWindowLength))
	m.adcThreshold = cfg.GetADCThreshold(DefaultADCThreshold)
	m.nChannelsThreshold = cfg.GetNChannelsThreshold(DefaultNChannelsThreshold)
	m.readoutBefore = trigger.Timestamp(cfg.GetReadoutWindowTicksBefore(DefaultReadoutTicks))
	m.readoutAfter = trigger.Timestamp(cfg.GetReadoutWindowTicksAfter(DefaultReadoutTicks))
	return nil
}

func (m *ChannelAdjacency) Apply(ta trigger.Activity) []trigger.Candidate {
	switch {
	case m.win.IsEmpty():
		m.win.Reset(ta)
	case since(ta.TimeStart, m.win.TimeStart()) < m.windowLength:
		m.win.Add(ta)
	default:
		m.win.Move(ta, m.windowLength)
	}

	triggered := (m.triggerOnADC && m.win.ADCIntegral() > m.adcThreshold) ||
		(m.triggerOnNChannels && m.win.NChannelsHit() > m.nChannelsThreshold)
	if !triggered {
		return nil
	}
	tc := m.construct()
	m.win.Clear()
	return []trigger.Candidate{tc}
}

// Flush ages the window to horizon. A window that could trigger has
// already done so, so nothing is emitted.
func (m *ChannelAdjacency) Flush(horizon trigger.Timestamp) []trigger.Candidate {
	m.win.Expire(horizon, m.windowLength)
	return nil
}

func (m *ChannelAdjacency) construct() trigger.Candidate {
	start := m.win.TimeStart()
	tc := trigger.Candidate{
		TimeStart:     before(start, m.readoutBefore),
		TimeEnd:       start + m.readoutAfter,
		TimeCandidate: start,
		DetID:         m.win.Back().DetID,
		Type:          trigger.CandidateTypeChannelAdjacency,
		Algorithm:     trigger.AlgorithmChannelAdjacency,
		Inputs:        trigger.Summaries(m.win.Inputs()),
	}
	trigger.Diagf("%s: emitting candidate, %s", tc.Algorithm, m.win)
	return tc
}
