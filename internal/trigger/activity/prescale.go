package activity

import (
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// Prescale emits a one-primitive activity for every prescale-th input,
// starting with the first.
type Prescale struct {
	prescale uint64
	count    uint64
}

// NewPrescale returns a maker that passes every primitive through.
func NewPrescale() *Prescale {
	return &Prescale{prescale: DefaultPrescale}
}

func (m *Prescale) Configure(p config.Params) error {
	cfg, err := parseConfig(trigger.AlgorithmPrescale, p)
	if err != nil {
		return err
	}
	m.prescale = cfg.GetPrescale(DefaultPrescale)
	trigger.Opsf("%s: using activity prescale %d", trigger.AlgorithmPrescale, m.prescale)
	return nil
}

func (m *Prescale) Apply(tp trigger.Primitive) []trigger.Activity {
	n := m.count
	m.count++
	if n%m.prescale != 0 {
		return nil
	}
	trigger.Tracef("%s: emitting prescaled activity %d", trigger.AlgorithmPrescale, n)
	return []trigger.Activity{trigger.NewActivity([]trigger.Primitive{tp}, trigger.AlgorithmPrescale)}
}

// Flush has nothing to emit; Prescale holds no primitives.
func (m *Prescale) Flush(trigger.Timestamp) []trigger.Activity { return nil }
