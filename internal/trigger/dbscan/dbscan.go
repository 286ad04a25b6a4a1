// Package dbscan clusters trigger primitives incrementally with a
// density-based rule over (time, channel).
//
// A primitive becomes a point at x = (time_start - t0) / TimeScale and
// y = channel. Two points are neighbours when their Euclidean distance is
// at most Eps. A point is core when its neighbourhood, counting itself,
// holds at least MinPts points. Clusters are the connected components of
// core points. A non-core point with a core neighbour is a border point and
// joins the cluster of its earliest-arrived core neighbour.
//
// Points arrive in time order, so x never decreases. Once the newest point
// is more than 3*Eps (in x) past a cluster's latest core point, nothing
// that arrives later can change the cluster's cores, its borders or their
// assignment. The cluster is then complete, emitted and forgotten. The
// result is the same whether points arrive one at a time or in batches,
// and equals ClusterBatch run over the whole sequence.
package dbscan

import (
	"errors"
	"fmt"
	"math"
)

// Defaults applied by DefaultParams.
const (
	DefaultEps       = 10.0
	DefaultMinPts    = 3
	DefaultTimeScale = 32.0 // ticks per x unit (one 512 ns TPC sample)
	DefaultMaxHits   = 10000
)

// ErrOutOfOrder is returned by Add for a primitive older than the last
// accepted one. The engine state is unchanged.
var ErrOutOfOrder = errors.New("primitive out of time order")

// Params contains parameters for the clustering engine.
type Params struct {
	Eps       float64 // neighbourhood radius in (x, channel) units
	MinPts    int     // neighbourhood size, including the point, for a core point
	TimeScale float64 // clock ticks per x unit
	MaxHits   int     // retained point cap; 0 means unbounded
}

// DefaultParams returns the parameters used by the DBSCAN activity maker.
func DefaultParams() Params {
	return Params{
		Eps:       DefaultEps,
		MinPts:    DefaultMinPts,
		TimeScale: DefaultTimeScale,
		MaxHits:   DefaultMaxHits,
	}
}

// Validate checks that the parameters can form clusters.
func (p Params) Validate() error {
	if !(p.Eps > 0) || math.IsInf(p.Eps, 0) {
		return fmt.Errorf("eps must be positive and finite, got %v", p.Eps)
	}
	if p.MinPts < 1 {
		return fmt.Errorf("min_pts must be at least 1, got %d", p.MinPts)
	}
	if !(p.TimeScale > 0) || math.IsInf(p.TimeScale, 0) {
		return fmt.Errorf("time_scale must be positive and finite, got %v", p.TimeScale)
	}
	if p.MaxHits < 0 {
		return fmt.Errorf("max_hits must be non-negative, got %d", p.MaxHits)
	}
	return nil
}
