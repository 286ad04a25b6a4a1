package dbscan

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// Cluster is a finalized group of primitives, in arrival order.
type Cluster struct {
	Primitives []trigger.Primitive
	// Cores is the number of core points in the cluster.
	Cores int
	// Forced is set when the cluster was emitted before it was complete
	// because the engine reached MaxHits.
	Forced bool

	firstID uint64
}

type hit struct {
	id         uint64
	prim       trigger.Primitive
	x, y       float64
	neighbours []uint64 // ascending ids, may name hits already removed
	count      int      // neighbourhood size including self; never decreases
	core       bool
}

// Incremental is the streaming clustering engine. It is owned by one maker
// and is not safe for concurrent use.
type Incremental struct {
	params Params
	index  *spatialIndex
	hits   map[uint64]*hit
	order  []uint64 // retained ids, oldest first

	// Union-find over core ids. Roots are the oldest core of a component.
	parent   map[uint64]uint64
	members  map[uint64][]uint64
	maxCoreX map[uint64]float64

	nextID  uint64
	started bool
	t0      trigger.Timestamp
	last    trigger.Timestamp

	dropped uint64
	forced  uint64
}

// NewIncremental returns an empty engine.
func NewIncremental(p Params) (*Incremental, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Incremental{
		params:   p,
		index:    newSpatialIndex(p.Eps),
		hits:     make(map[uint64]*hit),
		parent:   make(map[uint64]uint64),
		members:  make(map[uint64][]uint64),
		maxCoreX: make(map[uint64]float64),
	}, nil
}

// Params returns the engine parameters.
func (e *Incremental) Params() Params { return e.params }

// Len returns the number of primitives currently retained.
func (e *Incremental) Len() int { return len(e.hits) }

// Dropped returns the number of out-of-order primitives rejected so far.
func (e *Incremental) Dropped() uint64 { return e.dropped }

// Forced returns the number of clusters emitted early because of MaxHits.
func (e *Incremental) Forced() uint64 { return e.forced }

// FirstTime returns the time of the first accepted primitive.
func (e *Incremental) FirstTime() trigger.Timestamp { return e.t0 }

func (e *Incremental) xOf(ts trigger.Timestamp) float64 {
	return float64(ts-e.t0) / e.params.TimeScale
}

// Add incorporates tp and returns every cluster that became complete. A
// primitive older than the previous one is rejected with ErrOutOfOrder.
func (e *Incremental) Add(tp trigger.Primitive) ([]Cluster, error) {
	if e.started && tp.TimeStart < e.last {
		e.dropped++
		return nil, fmt.Errorf("%w: previous %d, current %d", ErrOutOfOrder, e.last, tp.TimeStart)
	}
	if !e.started {
		e.started = true
		e.t0 = tp.TimeStart
	}
	e.last = tp.TimeStart

	h := &hit{id: e.nextID, prim: tp, x: e.xOf(tp.TimeStart), y: float64(tp.Channel), count: 1}
	e.nextID++

	e.index.query(h.x, h.y, func(id uint64) {
		n := e.hits[id]
		if within(h.x, h.y, n.x, n.y, e.params.Eps) {
			h.neighbours = append(h.neighbours, id)
		}
	})
	slices.Sort(h.neighbours)
	h.count += len(h.neighbours)

	e.hits[h.id] = h
	e.index.insert(h.id, h.x, h.y)
	e.order = append(e.order, h.id)

	var promoted []*hit
	if h.count >= e.params.MinPts {
		h.core = true
		promoted = append(promoted, h)
	}
	for _, id := range h.neighbours {
		n := e.hits[id]
		n.neighbours = append(n.neighbours, h.id)
		n.count++
		if !n.core && n.count >= e.params.MinPts {
			n.core = true
			promoted = append(promoted, n)
		}
	}
	for _, c := range promoted {
		e.join(c)
	}

	out := e.collect(h.x)
	out = append(out, e.enforceCap()...)
	e.trim(h.x)
	return out, nil
}

// AddBatch adds tps in order and returns the clusters completed along the
// way and the number of primitives rejected as out of order.
func (e *Incremental) AddBatch(tps []trigger.Primitive) ([]Cluster, int) {
	var out []Cluster
	rejected := 0
	for _, tp := range tps {
		cs, err := e.Add(tp)
		if err != nil {
			rejected++
			continue
		}
		out = append(out, cs...)
	}
	return out, rejected
}

// Flush finalizes every cluster that would be complete if time had advanced
// to horizon. Passing math.MaxUint64 finalizes everything.
func (e *Incremental) Flush(horizon trigger.Timestamp) []Cluster {
	if !e.started || horizon < e.t0 {
		return nil
	}
	nowX := math.Inf(1)
	if horizon != math.MaxUint64 {
		nowX = e.xOf(horizon)
	}
	out := e.collect(nowX)
	e.trim(nowX)
	return out
}

func (e *Incremental) find(id uint64) uint64 {
	root := id
	for e.parent[root] != root {
		root = e.parent[root]
	}
	for id != root {
		next := e.parent[id]
		e.parent[id] = root
		id = next
	}
	return root
}

// join registers a newly promoted core point and links it with every core
// neighbour already registered.
func (e *Incremental) join(c *hit) {
	e.parent[c.id] = c.id
	e.members[c.id] = []uint64{c.id}
	e.maxCoreX[c.id] = c.x
	for _, id := range c.neighbours {
		n, ok := e.hits[id]
		if !ok || !n.core {
			continue
		}
		if _, registered := e.parent[id]; registered {
			e.union(c.id, id)
		}
	}
}

func (e *Incremental) union(a, b uint64) {
	ra, rb := e.find(a), e.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	e.parent[rb] = ra
	e.members[ra] = append(e.members[ra], e.members[rb]...)
	if e.maxCoreX[rb] > e.maxCoreX[ra] {
		e.maxCoreX[ra] = e.maxCoreX[rb]
	}
	delete(e.members, rb)
	delete(e.maxCoreX, rb)
}

// earliestCore returns the oldest retained core neighbour of h, or nil.
func (e *Incremental) earliestCore(h *hit) *hit {
	for _, id := range h.neighbours {
		if n, ok := e.hits[id]; ok && n.core {
			return n
		}
	}
	return nil
}

// collect finalizes every component whose latest core point is more than
// 3*Eps behind nowX.
func (e *Incremental) collect(nowX float64) []Cluster {
	horizon := nowX - 3*e.params.Eps
	var roots []uint64
	seen := make(map[uint64]bool)
	for _, id := range e.order {
		h := e.hits[id]
		if !(h.x < horizon) {
			break
		}
		if !h.core {
			continue
		}
		r := e.find(id)
		if seen[r] {
			continue
		}
		seen[r] = true
		if e.maxCoreX[r] < horizon {
			roots = append(roots, r)
		}
	}
	return e.finalize(roots, false)
}

// enforceCap emits or drops the oldest points until at most MaxHits remain.
func (e *Incremental) enforceCap() []Cluster {
	if e.params.MaxHits == 0 {
		return nil
	}
	var out []Cluster
	for len(e.hits) > e.params.MaxHits {
		h := e.hits[e.order[0]]
		switch c := e.earliestCore(h); {
		case h.core:
			out = append(out, e.finalize([]uint64{e.find(h.id)}, true)...)
		case c != nil:
			out = append(out, e.finalize([]uint64{e.find(c.id)}, true)...)
		default:
			e.remove(h)
			e.compact()
		}
	}
	return out
}

// trim forgets noise points that can no longer gain a core neighbour.
func (e *Incremental) trim(nowX float64) {
	horizon := nowX - 2*e.params.Eps
	removed := false
	for _, id := range e.order {
		h := e.hits[id]
		if !(h.x < horizon) {
			break
		}
		if h.core || e.earliestCore(h) != nil {
			continue
		}
		e.remove(h)
		removed = true
	}
	if removed {
		e.compact()
	}
}

func (e *Incremental) finalize(roots []uint64, forced bool) []Cluster {
	if len(roots) == 0 {
		return nil
	}
	out := make([]Cluster, 0, len(roots))
	for _, r := range roots {
		cores := e.members[r]
		ids := slices.Clone(cores)
		in := make(map[uint64]bool, len(cores))
		for _, id := range cores {
			in[id] = true
		}
		for _, id := range cores {
			for _, nid := range e.hits[id].neighbours {
				n, ok := e.hits[nid]
				if !ok || n.core || in[nid] {
					continue
				}
				if c := e.earliestCore(n); c != nil && e.find(c.id) == r {
					in[nid] = true
					ids = append(ids, nid)
				}
			}
		}
		slices.Sort(ids)

		cl := Cluster{
			Primitives: make([]trigger.Primitive, 0, len(ids)),
			Cores:      len(cores),
			Forced:     forced,
			firstID:    ids[0],
		}
		for _, id := range ids {
			cl.Primitives = append(cl.Primitives, e.hits[id].prim)
		}
		for _, id := range ids {
			e.remove(e.hits[id])
		}
		delete(e.members, r)
		delete(e.maxCoreX, r)
		out = append(out, cl)
		if forced {
			e.forced++
		}
	}
	e.compact()
	sort.SliceStable(out, func(i, j int) bool { return out[i].firstID < out[j].firstID })
	return out
}

func (e *Incremental) remove(h *hit) {
	delete(e.hits, h.id)
	delete(e.parent, h.id)
	e.index.remove(h.id, h.x, h.y)
}

func (e *Incremental) compact() {
	e.order = slices.DeleteFunc(e.order, func(id uint64) bool {
		_, ok := e.hits[id]
		return !ok
	})
}
