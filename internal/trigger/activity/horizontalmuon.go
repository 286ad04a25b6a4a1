package activity

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/adjacency"
	"github.com/banshee-data/triggeralgs/internal/trigger/window"
)

// HorizontalMuon defaults.
const (
	DefaultMuonADCThreshold   = 3000000
	DefaultNChannelsThreshold = 400
	DefaultAdjacencyThreshold = 15
	DefaultAdjTolerance       = 3
	DefaultAdjMaxGap          = 5
	DefaultTOTThreshold       = 5000
	DefaultPrescale           = 1
)

// HorizontalMuon evaluates several predicates on each full window, in a
// configurable priority order, and emits the window on the first one that
// holds. Every predicate hit counts towards the prescale; a hit that is
// prescaled away slides the window like a miss.
type HorizontalMuon struct {
	orderGuard
	windowLength       trigger.Timestamp
	adcThreshold       uint64
	nChannelsThreshold int
	adjacencyThreshold int
	adj                adjacency.Params
	totThreshold       trigger.Timestamp
	prescale           uint64
	enabled            map[Predicate]bool
	priority           []Predicate
	printTPInfo        bool

	win          *window.Window[trigger.Primitive]
	taCount      uint64
	maxAdjacency int
}

// NewHorizontalMuon returns a maker with default parameters: only the
// adjacency predicate is enabled.
func NewHorizontalMuon() *HorizontalMuon {
	return &HorizontalMuon{
		orderGuard:         orderGuard{algo: trigger.AlgorithmHorizontalMuon},
		windowLength:       DefaultWindowLength,
		adcThreshold:       DefaultMuonADCThreshold,
		nChannelsThreshold: DefaultNChannelsThreshold,
		adjacencyThreshold: DefaultAdjacencyThreshold,
		adj:                adjacency.Params{Tolerance: DefaultAdjTolerance, MaxGap: DefaultAdjMaxGap},
		totThreshold:       DefaultTOTThreshold,
		prescale:           DefaultPrescale,
		enabled:            map[Predicate]bool{PredicateAdjacency: true},
		priority:           DefaultPriority,
		win:                window.NewPrimitiveWindow(),
	}
}

func (m *HorizontalMuon) Configure(p config.Params) error {
	cfg, err := parseConfig(m.algo, p)
	if err != nil {
		return err
	}
	priority, err := parsePriority(m.algo, cfg.GetPriority(defaultPriorityNames()))
	if err != nil {
		return err
	}
	m.windowLength = trigger.Timestamp(cfg.GetWindowLength(DefaultWindowLength))
	m.adcThreshold = cfg.GetADCThreshold(DefaultMuonADCThreshold)
	m.nChannelsThreshold = cfg.GetNChannelsThreshold(DefaultNChannelsThreshold)
	m.adjacencyThreshold = cfg.GetAdjacencyThreshold(DefaultAdjacencyThreshold)
	m.adj = adjacency.Params{
		Tolerance: cfg.GetAdjTolerance(DefaultAdjTolerance),
		MaxGap:    cfg.GetAdjMaxGap(DefaultAdjMaxGap),
	}
	m.totThreshold = trigger.Timestamp(cfg.GetTOTThreshold(DefaultTOTThreshold))
	m.prescale = cfg.GetPrescale(DefaultPrescale)
	m.enabled = map[Predicate]bool{
		PredicateADC:       cfg.GetTriggerOnADC(false),
		PredicateNChannels: cfg.GetTriggerOnNChannels(false),
		PredicateAdjacency: cfg.GetTriggerOnAdjacency(true),
		PredicateTOT:       cfg.GetTriggerOnTOT(false),
	}
	m.priority = priority
	m.printTPInfo = cfg.GetPrintTPInfo()

	if !m.anyEnabled() {
		trigger.Opsf("%s: every predicate is disabled, windows will slide without emitting", m.algo)
	}
	return nil
}

func (m *HorizontalMuon) anyEnabled() bool {
	for _, p := range m.priority {
		if m.enabled[p] {
			return true
		}
	}
	return false
}

func (m *HorizontalMuon) Apply(tp trigger.Primitive) []trigger.Activity {
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
	if ta, ok := m.evaluate(&tp); ok {
		m.win.Reset(tp)
		return []trigger.Activity{ta}
	}
	m.win.Move(tp, m.windowLength)
	return nil
}

func (m *HorizontalMuon) Flush(horizon trigger.Timestamp) []trigger.Activity {
	if !windowDue(m.win, horizon, m.windowLength) {
		return nil
	}
	if ta, ok := m.evaluate(nil); ok {
		m.win.Clear()
		return []trigger.Activity{ta}
	}
	m.win.Expire(horizon, m.windowLength)
	return nil
}

// evaluate checks the enabled predicates in priority order against the
// full window. tp is the input closing the window, or nil at a flush.
func (m *HorizontalMuon) evaluate(tp *trigger.Primitive) (trigger.Activity, bool) {
	for _, p := range m.priority {
		if !m.enabled[p] || !m.satisfied(p, tp) {
			continue
		}
		m.taCount++
		if m.taCount%m.prescale != 0 {
			trigger.Tracef("%s: %s hit %d prescaled away", m.algo, p, m.taCount)
			return trigger.Activity{}, false
		}
		trigger.Diagf("%s: emitting %s trigger, %s, longest run so far %d",
			m.algo, p, m.win, m.maxAdjacency)
		return trigger.NewActivity(m.win.Inputs(), m.algo), true
	}
	return trigger.Activity{}, false
}

func (m *HorizontalMuon) satisfied(p Predicate, tp *trigger.Primitive) bool {
	switch p {
	case PredicateADC:
		return m.win.ADCIntegral() > m.adcThreshold
	case PredicateNChannels:
		return m.win.NChannelsHit() > m.nChannelsThreshold
	case PredicateAdjacency:
		run := adjacency.MaxRunPrimitives(m.win.Inputs(), m.adj)
		if run > m.maxAdjacency {
			m.maxAdjacency = run
		}
		return run > m.adjacencyThreshold
	case PredicateTOT:
		return tp != nil && tp.TimeOverThreshold > m.totThreshold
	}
	return false
}
