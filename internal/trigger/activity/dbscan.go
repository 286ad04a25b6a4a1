package activity

import (
	"errors"
	"fmt"

	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/dbscan"
)

// DBSCAN emits one activity per finalized density cluster.
type DBSCAN struct {
	engine *dbscan.Incremental
}

// NewDBSCAN returns a maker with default clustering parameters.
func NewDBSCAN() *DBSCAN {
	return &DBSCAN{engine: mustIncremental(dbscan.DefaultParams())}
}

func mustIncremental(p dbscan.Params) *dbscan.Incremental {
	e, err := dbscan.NewIncremental(p)
	if err != nil {
		panic(fmt.Sprintf("dbscan: %v", err))
	}
	return e
}

// Configure reads eps, min_pts, time_scale and max_hits. It replaces the
// engine, discarding any retained primitives.
func (m *DBSCAN) Configure(p config.Params) error {
	cfg, err := parseConfig(trigger.AlgorithmDBSCAN, p)
	if err != nil {
		return err
	}
	params := dbscan.Params{
		Eps:       cfg.GetEps(dbscan.DefaultEps),
		MinPts:    cfg.GetMinPts(dbscan.DefaultMinPts),
		TimeScale: cfg.GetTimeScale(dbscan.DefaultTimeScale),
		MaxHits:   cfg.GetMaxHits(dbscan.DefaultMaxHits),
	}
	e, err := dbscan.NewIncremental(params)
	if err != nil {
		return badConfig(trigger.AlgorithmDBSCAN, "%v", err)
	}
	m.engine = e
	return nil
}

// Anomalies returns the number of out-of-order primitives dropped.
func (m *DBSCAN) Anomalies() uint64 { return m.engine.Dropped() }

// Retained returns the number of primitives held by the engine.
func (m *DBSCAN) Retained() int { return m.engine.Len() }

func (m *DBSCAN) Apply(tp trigger.Primitive) []trigger.Activity {
	clusters, err := m.engine.Add(tp)
	if err != nil {
		if errors.Is(err, dbscan.ErrOutOfOrder) {
			trigger.Anomalyf("%s: %v", trigger.AlgorithmDBSCAN, err)
		}
		return nil
	}
	return m.activities(clusters)
}

func (m *DBSCAN) Flush(horizon trigger.Timestamp) []trigger.Activity {
	return m.activities(m.engine.Flush(horizon))
}

func (m *DBSCAN) activities(clusters []dbscan.Cluster) []trigger.Activity {
	if len(clusters) == 0 {
		return nil
	}
	out := make([]trigger.Activity, 0, len(clusters))
	for _, c := range clusters {
		if c.Forced {
			trigger.Opsf("%s: cluster of %d primitives emitted early at the hit cap",
				trigger.AlgorithmDBSCAN, len(c.Primitives))
		}
		out = append(out, trigger.NewActivity(c.Primitives, trigger.AlgorithmDBSCAN))
	}
	return out
}
