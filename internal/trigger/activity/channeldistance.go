package activity

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// ChannelDistance defaults.
const (
	DefaultMaxChannelDistance = 50
	DefaultMinTPs             = 20
)

// ChannelDistance grows an activity from its first primitive. A primitive
// within max_channel_distance of the channels accepted so far joins it and
// widens the bounds; others are skipped. Once a primitive arrives more than
// window_length after the first one, the activity is emitted if it holds
// at least min_tps primitives and a new one starts at that primitive.
type ChannelDistance struct {
	orderGuard
	windowLength       trigger.Timestamp
	maxChannelDistance int64
	minTPs             int

	current      []trigger.Primitive
	lower, upper int64
	skipped      uint64
}

// NewChannelDistance returns a maker with default parameters.
func NewChannelDistance() *ChannelDistance {
	return &ChannelDistance{
		orderGuard:         orderGuard{algo: trigger.AlgorithmChannelDistance},
		windowLength:       DefaultWindowLength,
		maxChannelDistance: DefaultMaxChannelDistance,
		minTPs:             DefaultMinTPs,
	}
}

func (m *ChannelDistance) Configure(p config.Params) error {
	cfg, err := parseConfig(m.algo, p)
	if err != nil {
		return err
	}
	m.windowLength = trigger.Timestamp(cfg.GetWindowLength(DefaultWindowLength))
	m.maxChannelDistance = int64(cfg.GetMaxChannelDistance(DefaultMaxChannelDistance))
	m.minTPs = cfg.GetMinTPs(DefaultMinTPs)
	return nil
}

// Skipped returns the number of primitives left out for being too far in
// channel from the open activity.
func (m *ChannelDistance) Skipped() uint64 { return m.skipped }

func (m *ChannelDistance) start(tp trigger.Primitive) {
	m.current = append(m.current[:0], tp)
	ch := int64(tp.Channel)
	m.lower = ch - m.maxChannelDistance
	m.upper = ch + m.maxChannelDistance
}

func (m *ChannelDistance) Apply(tp trigger.Primitive) []trigger.Activity {
	if !m.accept(tp) {
		return nil
	}
	if len(m.current) == 0 {
		m.start(tp)
		return nil
	}

	if tp.TimeStart-m.current[0].TimeStart > m.windowLength {
		out := m.close()
		m.start(tp)
		return out
	}

	ch := int64(tp.Channel)
	if ch > m.upper || ch < m.lower {
		m.skipped++
		return nil
	}
	m.current = append(m.current, tp)
	m.lower = min(m.lower, ch-m.maxChannelDistance)
	m.upper = max(m.upper, ch+m.maxChannelDistance)
	return nil
}

// Flush emits the open activity if horizon is past its window.
func (m *ChannelDistance) Flush(horizon trigger.Timestamp) []trigger.Activity {
	if len(m.current) == 0 || horizon < m.current[0].TimeStart ||
		horizon-m.current[0].TimeStart <= m.windowLength {
		return nil
	}
	out := m.close()
	m.current = m.current[:0]
	return out
}

func (m *ChannelDistance) close() []trigger.Activity {
	if len(m.current) < m.minTPs {
		trigger.Tracef("%s: dropping activity with %d primitives (min %d)", m.algo, len(m.current), m.minTPs)
		return nil
	}
	ta := trigger.NewActivity(m.current, m.algo)
	trigger.Diagf("%s: emitting activity with %d primitives, channels %d-%d",
		m.algo, len(ta.Inputs), ta.ChannelStart, ta.ChannelEnd)
	return []trigger.Activity{ta}
}
