package activity

import (
	"github.com/banshee-data/triggeralgs/internal/channelmap"
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/adjacency"
	"github.com/banshee-data/triggeralgs/internal/trigger/window"
)

// PlaneCoincidence defaults.
const (
	DefaultPlaneWindowLength       = 3000
	DefaultPlaneADCThreshold       = 300000
	DefaultPlaneAdjacencyThreshold = 15
	DefaultPlaneAdjTolerance       = 5
	DefaultPlaneAdjMaxGap          = 3
)

// PlaneCoincidence keeps one window per readout plane and looks for a
// low-energy deposit seen on all three: the summed ADC of the U, Y and Z
// windows must exceed a threshold and the collection (Z) window must hold a
// channel run of at least the adjacency threshold. The condition is only
// checked once the Z window is complete. On a trigger the activity is built
// from the Z window and all three windows restart together.
type PlaneCoincidence struct {
	orderGuard
	windowLength       trigger.Timestamp
	adcThreshold       uint64
	adjacencyThreshold int
	adj                adjacency.Params
	chmap              channelmap.Map

	windows     [3]*window.Window[trigger.Primitive] // U, Y, Z
	unconnected uint64
}

// NewPlaneCoincidence returns a maker with default parameters and the
// built-in channel map.
func NewPlaneCoincidence() *PlaneCoincidence {
	m := &PlaneCoincidence{
		orderGuard:         orderGuard{algo: trigger.AlgorithmPlaneCoincidence},
		windowLength:       DefaultPlaneWindowLength,
		adcThreshold:       DefaultPlaneADCThreshold,
		adjacencyThreshold: DefaultPlaneAdjacencyThreshold,
		adj:                adjacency.Params{Tolerance: DefaultPlaneAdjTolerance, MaxGap: DefaultPlaneAdjMaxGap},
		chmap:              channelmap.ColdboxMap(),
	}
	for i := range m.windows {
		m.windows[i] = window.NewPrimitiveWindow()
	}
	return m
}

// Configure reads the window, threshold and adjacency options and loads
// channel_map when set. Multiplicity triggering is not supported.
func (m *PlaneCoincidence) Configure(p config.Params) error {
	cfg, err := parseConfig(m.algo, p)
	if err != nil {
		return err
	}
	if cfg.GetTriggerOnNChannels(false) {
		return badConfig(m.algo, "trigger_on_n_channels is not supported")
	}
	chmap, err := channelmap.Load(cfg.GetChannelMap())
	if err != nil {
		return badConfig(m.algo, "channel map: %v", err)
	}
	m.chmap = chmap
	m.windowLength = trigger.Timestamp(cfg.GetWindowLength(DefaultPlaneWindowLength))
	m.adcThreshold = cfg.GetADCThreshold(DefaultPlaneADCThreshold)
	m.adjacencyThreshold = cfg.GetAdjacencyThreshold(DefaultPlaneAdjacencyThreshold)
	m.adj = adjacency.Params{
		Tolerance: cfg.GetAdjTolerance(DefaultPlaneAdjTolerance),
		MaxGap:    cfg.GetAdjMaxGap(DefaultPlaneAdjMaxGap),
	}
	return nil
}

// SetChannelMap replaces the channel map.
func (m *PlaneCoincidence) SetChannelMap(chmap channelmap.Map) { m.chmap = chmap }

// Anomalies counts out-of-order and unconnected-channel primitives.
func (m *PlaneCoincidence) Anomalies() uint64 {
	return m.orderGuard.Anomalies() + m.unconnected
}

func (m *PlaneCoincidence) windowFor(p channelmap.Plane) *window.Window[trigger.Primitive] {
	switch p {
	case channelmap.PlaneU:
		return m.windows[0]
	case channelmap.PlaneY:
		return m.windows[1]
	case channelmap.PlaneZ:
		return m.windows[2]
	}
	return nil
}

func (m *PlaneCoincidence) Apply(tp trigger.Primitive) []trigger.Activity {
	if !m.accept(tp) {
		return nil
	}
	plane := m.chmap.PlaneOf(tp.Channel)
	w := m.windowFor(plane)
	if w == nil {
		m.unconnected++
		trigger.Tracef("%s: dropping primitive on unconnected channel %d", m.algo, tp.Channel)
		return nil
	}
	if w.IsEmpty() {
		w.Reset(tp)
		return nil
	}

	added := false
	if tp.TimeStart-w.TimeStart() < m.windowLength {
		w.Add(tp)
		added = true
	}

	z := m.windows[2]
	if !z.IsEmpty() && tp.TimeStart-z.TimeStart() > m.windowLength && m.triggered() {
		ta := m.construct()
		for _, other := range m.windows {
			if other == w {
				other.Reset(tp)
			} else {
				other.Clear()
			}
		}
		return []trigger.Activity{ta}
	}

	if !added {
		w.Move(tp, m.windowLength)
	}
	return nil
}

func (m *PlaneCoincidence) Flush(horizon trigger.Timestamp) []trigger.Activity {
	z := m.windows[2]
	var out []trigger.Activity
	if !z.IsEmpty() && horizon > z.TimeStart() && horizon-z.TimeStart() > m.windowLength && m.triggered() {
		out = append(out, m.construct())
		for _, w := range m.windows {
			w.Clear()
		}
		return out
	}
	for _, w := range m.windows {
		w.Expire(horizon, m.windowLength)
	}
	return out
}

func (m *PlaneCoincidence) triggered() bool {
	z := m.windows[2]
	adc := m.windows[0].ADCIntegral() + m.windows[1].ADCIntegral() + z.ADCIntegral()
	if adc <= m.adcThreshold {
		return false
	}
	return adjacency.MaxRunPrimitives(z.Inputs(), m.adj) >= m.adjacencyThreshold
}

func (m *PlaneCoincidence) construct() trigger.Activity {
	trigger.Diagf("%s: emitting low energy trigger, U adc %d, Y adc %d, Z %s",
		m.algo, m.windows[0].ADCIntegral(), m.windows[1].ADCIntegral(), m.windows[2])
	return trigger.NewActivity(m.windows[2].Inputs(), m.algo)
}
