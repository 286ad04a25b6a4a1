package activity

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/adjacency"
	"github.com/banshee-data/triggeralgs/internal/trigger/window"
)

// ChannelAdjacency finds every track in a full window. It repeatedly takes
// the longest channel run out of the window contents and emits it while the
// run is longer than the threshold, so one window can yield several
// disjoint tracks. A window with at least one track restarts at the closing
// input; otherwise it slides.
type ChannelAdjacency struct {
	orderGuard
	windowLength       trigger.Timestamp
	adjacencyThreshold int
	adj                adjacency.Params
	prescale           uint64
	printTPInfo        bool

	win     *window.Window[trigger.Primitive]
	taCount uint64
}

// NewChannelAdjacency returns a maker with default parameters.
func NewChannelAdjacency() *ChannelAdjacency {
	return &ChannelAdjacency{
		orderGuard:         orderGuard{algo: trigger.AlgorithmChannelAdjacency},
		windowLength:       DefaultWindowLength,
		adjacencyThreshold: DefaultAdjacencyThreshold,
		adj:                adjacency.Params{Tolerance: DefaultAdjTolerance, MaxGap: DefaultAdjMaxGap},
		prescale:           DefaultPrescale,
		win:                window.NewPrimitiveWindow(),
	}
}

func (m *ChannelAdjacency) Configure(p config.Params) error {
	cfg, err := parseConfig(m.algo, p)
	if err != nil {
		return err
	}
	m.windowLength = trigger.Timestamp(cfg.GetWindowLength(DefaultWindowLength))
	m.adjacencyThreshold = cfg.GetAdjacencyThreshold(DefaultAdjacencyThreshold)
	m.adj = adjacency.Params{
		Tolerance: cfg.GetAdjTolerance(DefaultAdjTolerance),
		MaxGap:    cfg.GetAdjMaxGap(DefaultAdjMaxGap),
	}
	m.prescale = cfg.GetPrescale(DefaultPrescale)
	m.printTPInfo = cfg.GetPrintTPInfo()
	return nil
}

func (m *ChannelAdjacency) Apply(tp trigger.Primitive) []trigger.Activity {
	if !m.accept(tp) {
		return nil
	}
	if m.printTPInfo {
		logTP(m.algo, tp)
	}
	if m.win.IsEmpty() {
		m.win.Reset(tp)
		return nil
	}
	if tp.TimeStart-m.win.TimeStart() < m.windowLength {
		m.win.Add(tp)
		return nil
	}
	out, found := m.tracks()
	if found {
		m.win.Reset(tp)
	} else {
		m.win.Move(tp, m.windowLength)
	}
	return out
}

func (m *ChannelAdjacency) Flush(horizon trigger.Timestamp) []trigger.Activity {
	if !windowDue(m.win, horizon, m.windowLength) {
		return nil
	}
	out, found := m.tracks()
	if found {
		m.win.Clear()
	} else {
		m.win.Expire(horizon, m.windowLength)
	}
	return out
}

// tracks extracts runs from the window until none exceeds the threshold.
// found is true when at least one track was seen, even if every one of
// them was prescaled away.
func (m *ChannelAdjacency) tracks() (out []trigger.Activity, found bool) {
	rest := m.win.Inputs()
	for len(rest) > 0 {
		run, length, remaining := adjacency.LongestRun(rest, adjacency.PrimitiveChannel, m.adj)
		if length <= m.adjacencyThreshold {
			break
		}
		found = true
		m.taCount++
		if m.taCount%m.prescale == 0 {
			ta := trigger.NewActivity(run, m.algo)
			trigger.Diagf("%s: emitting track of %d channels, channels %d-%d, adc %d",
				m.algo, length, ta.ChannelStart, ta.ChannelEnd, ta.ADCIntegral)
			out = append(out, ta)
		}
		rest = remaining
	}
	return out, found
}
