package activity

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/window"
)

// ADCSimpleWindow defaults.
const (
	DefaultWindowLength = 8000
	DefaultADCThreshold = 1200000
)

// ADCSimpleWindow emits the window when its ADC sum exceeds a threshold.
type ADCSimpleWindow struct {
	orderGuard
	windowLength trigger.Timestamp
	adcThreshold uint64
	win          *window.Window[trigger.Primitive]
}

// NewADCSimpleWindow returns a maker with default parameters.
func NewADCSimpleWindow() *ADCSimpleWindow {
	return &ADCSimpleWindow{
		orderGuard:   orderGuard{algo: trigger.AlgorithmADCSimpleWindow},
		windowLength: DefaultWindowLength,
		adcThreshold: DefaultADCThreshold,
		win:          window.NewPrimitiveWindow(),
	}
}

// Configure reads window_length and adc_threshold.
func (m *ADCSimpleWindow) Configure(p config.Params) error {
	cfg, err := parseConfig(m.algo, p)
	if err != nil {
		return err
	}
	m.windowLength = trigger.Timestamp(cfg.GetWindowLength(DefaultWindowLength))
	m.adcThreshold = cfg.GetADCThreshold(DefaultADCThreshold)
	trigger.Opsf("%s: trigger when the ADC sum within %d ticks exceeds %d",
		m.algo, m.windowLength, m.adcThreshold)
	return nil
}

func (m *ADCSimpleWindow) Apply(tp trigger.Primitive) []trigger.Activity {
	if !m.accept(tp) {
		return nil
	}
	if m.win.IsEmpty() {
		m.win.Reset(tp)
		return nil
	}
	if tp.TimeStart-m.win.TimeStart() < m.windowLength {
		m.win.Add(tp)
		return nil
	}
	if m.win.ADCIntegral() > m.adcThreshold {
		ta := m.construct()
		m.win.Reset(tp)
		return []trigger.Activity{ta}
	}
	m.win.Move(tp, m.windowLength)
	trigger.Tracef("%s: %s", m.algo, m.win)
	return nil
}

func (m *ADCSimpleWindow) Flush(horizon trigger.Timestamp) []trigger.Activity {
	if !windowDue(m.win, horizon, m.windowLength) {
		return nil
	}
	if m.win.ADCIntegral() > m.adcThreshold {
		ta := m.construct()
		m.win.Clear()
		return []trigger.Activity{ta}
	}
	m.win.Expire(horizon, m.windowLength)
	return nil
}

func (m *ADCSimpleWindow) construct() trigger.Activity {
	trigger.Diagf("%s: emitting activity, %s", m.algo, m.win)
	return trigger.NewActivity(m.win.Inputs(), m.algo)
}

// windowDue reports whether an input at horizon would close w.
func windowDue[T window.Element](w *window.Window[T], horizon, length trigger.Timestamp) bool {
	if w.IsEmpty() || horizon < w.TimeStart() {
		return false
	}
	return horizon-w.TimeStart() >= length
}
