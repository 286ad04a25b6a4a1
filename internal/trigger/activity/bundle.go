package activity

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// DefaultBundleSize is the number of primitives per bundle.
const DefaultBundleSize = 1

// Bundle groups primitives into fixed-size activities in arrival order.
type Bundle struct {
	size      int
	buf       []trigger.Primitive
	oversized uint64
}

// NewBundle returns a maker with default parameters.
func NewBundle() *Bundle {
	return &Bundle{size: DefaultBundleSize}
}

func (m *Bundle) Configure(p config.Params) error {
	cfg, err := parseConfig(trigger.AlgorithmBundle, p)
	if err != nil {
		return err
	}
	m.size = cfg.GetBundleSize(DefaultBundleSize)
	return nil
}

// Anomalies counts bundles emitted above the configured size.
func (m *Bundle) Anomalies() uint64 { return m.oversized }

func (m *Bundle) Apply(tp trigger.Primitive) []trigger.Activity {
	m.buf = append(m.buf, tp)
	switch {
	case len(m.buf) == m.size:
		trigger.Tracef("%s: emitting bundle of %d primitives", trigger.AlgorithmBundle, len(m.buf))
	case len(m.buf) > m.size:
		m.oversized++
		trigger.Anomalyf("%s: emitting oversized bundle of %d primitives (size %d)",
			trigger.AlgorithmBundle, len(m.buf), m.size)
	default:
		return nil
	}
	ta := bundleActivity(m.buf)
	m.buf = m.buf[:0]
	return []trigger.Activity{ta}
}

// Flush emits the partial bundle, whatever the horizon.
func (m *Bundle) Flush(trigger.Timestamp) []trigger.Activity {
	if len(m.buf) == 0 {
		return nil
	}
	ta := bundleActivity(m.buf)
	m.buf = m.buf[:0]
	return []trigger.Activity{ta}
}

// bundleActivity takes its time and channel span from the first and last
// primitive by arrival and its peak from the largest ADC peak.
func bundleActivity(tps []trigger.Primitive) trigger.Activity {
	ta := trigger.NewActivity(tps, trigger.AlgorithmBundle)
	first, last := tps[0], tps[len(tps)-1]
	ta.TimeStart = first.TimeStart
	ta.TimeEnd = last.TimeStart
	ta.ChannelStart = first.Channel
	ta.ChannelEnd = last.Channel
	ta.DetID = first.DetID
	return ta
}
