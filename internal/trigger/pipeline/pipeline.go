// Package pipeline chains an activity maker and a candidate maker into a
// TP -> TA -> TC pipeline and runs one pipeline per detector partition.
package pipeline

import (
	"fmt"
	"math"

	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/activity"
	"github.com/banshee-data/triggeralgs/internal/trigger/candidate"
	"github.com/banshee-data/triggeralgs/internal/trigger/telemetry"
)

// EndOfStream is the flush horizon that closes everything a maker holds.
const EndOfStream trigger.Timestamp = math.MaxUint64

// Registries holds the sealed maker registries a pipeline is built from.
type Registries struct {
	Activities *activity.Registry
	Candidates *candidate.Registry
}

// NewRegistries registers every known maker and seals both registries.
func NewRegistries() (*Registries, error) {
	acts := activity.NewRegistry()
	if err := activity.RegisterAll(acts); err != nil {
		return nil, fmt.Errorf("failed to register activity makers: %w", err)
	}
	cands := candidate.NewRegistry()
	if err := candidate.RegisterAll(cands); err != nil {
		return nil, fmt.Errorf("failed to register candidate makers: %w", err)
	}
	acts.Seal()
	cands.Seal()
	return &Registries{Activities: acts, Candidates: cands}, nil
}

// Output is what one call into a Pipeline produced.
type Output struct {
	Activities []trigger.Activity
	Candidates []trigger.Candidate
}

// Pipeline feeds every activity from its activity maker straight into its
// candidate maker. It is not safe for concurrent use.
type Pipeline struct {
	activity  activity.Maker
	candidate candidate.Maker

	// Activity and Candidate count the inputs and outputs of each stage.
	Activity  *telemetry.Counters
	Candidate *telemetry.Counters
}

// New builds and configures the makers named by cfg.
func New(cfg *config.PipelineConfig, regs *Registries) (*Pipeline, error) {
	am, err := regs.Activities.Build(cfg.Activity.Name)
	if err != nil {
		return nil, fmt.Errorf("activity maker: %w", err)
	}
	if err := am.Configure(cfg.Activity.Params); err != nil {
		return nil, err
	}
	cm, err := regs.Candidates.Build(cfg.Candidate.Name)
	if err != nil {
		return nil, fmt.Errorf("candidate maker: %w", err)
	}
	if err := cm.Configure(cfg.Candidate.Params); err != nil {
		return nil, err
	}
	return &Pipeline{
		activity:  am,
		candidate: cm,
		Activity:  telemetry.NewCounters(nil),
		Candidate: telemetry.NewCounters(nil),
	}, nil
}

// Apply runs one primitive through both stages.
func (p *Pipeline) Apply(tp trigger.Primitive) Output {
	p.Activity.ObserveInput(tp.TimeStart)
	tas := p.activity.Apply(tp)
	return p.candidates(tas)
}

// Flush closes both stages at horizon. Activities released by the
// activity flush reach the candidate maker before it is flushed itself.
func (p *Pipeline) Flush(horizon trigger.Timestamp) Output {
	out := p.candidates(p.activity.Flush(horizon))
	tcs := p.candidate.Flush(horizon)
	p.observeCandidates(tcs)
	out.Candidates = append(out.Candidates, tcs...)
	return out
}

func (p *Pipeline) candidates(tas []trigger.Activity) Output {
	if len(tas) > 0 {
		p.Activity.ObserveOutputs(len(tas), tas[len(tas)-1].TimeStart)
	}
	p.pollAnomalies()

	var out Output
	out.Activities = tas
	for _, ta := range tas {
		p.Candidate.ObserveInput(ta.TimeStart)
		tcs := p.candidate.Apply(ta)
		p.observeCandidates(tcs)
		out.Candidates = append(out.Candidates, tcs...)
	}
	return out
}

func (p *Pipeline) observeCandidates(tcs []trigger.Candidate) {
	if len(tcs) > 0 {
		p.Candidate.ObserveOutputs(len(tcs), tcs[len(tcs)-1].TimeCandidate)
	}
	if ac, ok := p.candidate.(activity.AnomalyCounter); ok {
		p.Candidate.SetAnomalies(ac.Anomalies())
	}
}

func (p *Pipeline) pollAnomalies() {
	if ac, ok := p.activity.(activity.AnomalyCounter); ok {
		p.Activity.SetAnomalies(ac.Anomalies())
	}
}
