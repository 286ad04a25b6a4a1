package dbscan

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/triggeralgs/internal/trigger"
)

func prim(ts trigger.Timestamp, ch trigger.Channel) trigger.Primitive {
	return trigger.Primitive{TimeStart: ts, Channel: ch, TimeOverThreshold: 16, ADCIntegral: 100, ADCPeak: 20}
}

// twoTracks returns p1..p10: a five-hit and a four-hit track far apart in
// channel plus one isolated noise hit, in time order.
func twoTracks() []trigger.Primitive {
	return []trigger.Primitive{
		prim(0, 100),
		prim(32, 101),
		prim(40, 300),
		prim(64, 102),
		prim(70, 301),
		prim(96, 103),
		prim(100, 302),
		prim(128, 104),
		prim(130, 900),
		prim(140, 303),
	}
}

func sortedMembers(cs []Cluster) [][]trigger.Primitive {
	sorted := append([]Cluster(nil), cs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].firstID < sorted[j].firstID })
	out := make([][]trigger.Primitive, len(sorted))
	for i, c := range sorted {
		out[i] = c.Primitives
	}
	return out
}

func newEngine(t *testing.T, p Params) *Incremental {
	t.Helper()
	e, err := NewIncremental(p)
	require.NoError(t, err)
	return e
}

func TestIncrementalOneAtATimeMatchesBatches(t *testing.T) {
	t.Parallel()
	params := DefaultParams()
	tps := twoTracks()

	single := newEngine(t, params)
	var got1 []Cluster
	for _, tp := range tps {
		cs, err := single.Add(tp)
		require.NoError(t, err)
		got1 = append(got1, cs...)
	}
	got1 = append(got1, single.Flush(math.MaxUint64)...)

	batched := newEngine(t, params)
	a, rejected := batched.AddBatch(tps[:5])
	require.Zero(t, rejected)
	b, rejected := batched.AddBatch(tps[5:])
	require.Zero(t, rejected)
	got2 := append(append(a, b...), batched.Flush(math.MaxUint64)...)

	if diff := cmp.Diff(sortedMembers(got1), sortedMembers(got2)); diff != "" {
		t.Errorf("batched delivery changed clusters (-single +batched):\n%s", diff)
	}
	require.Len(t, got1, 2)
	assert.Len(t, got1[0].Primitives, 5)
	assert.Len(t, got1[1].Primitives, 4)
	assert.Zero(t, single.Len(), "flush should leave nothing behind")
}

func TestIncrementalEmitsWhenClusterCanNoLongerGrow(t *testing.T) {
	t.Parallel()
	e := newEngine(t, DefaultParams())
	for _, tp := range twoTracks() {
		cs, err := e.Add(tp)
		require.NoError(t, err)
		require.Empty(t, cs)
	}

	// 3*eps*time_scale = 960 ticks past the last core of each track.
	cs, err := e.Add(prim(2000, 500))
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, trigger.Channel(100), cs[0].Primitives[0].Channel)
	assert.Equal(t, trigger.Channel(300), cs[1].Primitives[0].Channel)
	assert.False(t, cs[0].Forced)

	// The noise hit and both tracks are gone; only the new hit remains.
	assert.Equal(t, 1, e.Len())
}

func TestIncrementalRejectsOutOfOrder(t *testing.T) {
	t.Parallel()
	e := newEngine(t, DefaultParams())
	_, err := e.Add(prim(100, 1))
	require.NoError(t, err)

	_, err = e.Add(prim(50, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfOrder))
	assert.Equal(t, uint64(1), e.Dropped())
	assert.Equal(t, 1, e.Len())

	// Equal timestamps are in order.
	_, err = e.Add(prim(100, 2))
	assert.NoError(t, err)
}

func TestIncrementalFirstTimeAnchorsFlush(t *testing.T) {
	t.Parallel()
	p := DefaultParams()
	e := newEngine(t, p)
	assert.Equal(t, p, e.Params())
	assert.Zero(t, e.FirstTime())

	for _, tp := range []trigger.Primitive{prim(500, 10), prim(510, 11), prim(520, 12)} {
		_, err := e.Add(tp)
		require.NoError(t, err)
	}
	assert.Equal(t, trigger.Timestamp(500), e.FirstTime())

	// A horizon before the first primitive finalizes nothing.
	assert.Empty(t, e.Flush(400))
	assert.Equal(t, 3, e.Len())
	assert.Len(t, e.Flush(math.MaxUint64), 1)
}

func TestIncrementalMaxHitsForcesEmission(t *testing.T) {
	t.Parallel()
	p := DefaultParams()
	p.MaxHits = 4
	e := newEngine(t, p)

	var got []Cluster
	for i := 0; i < 6; i++ {
		cs, err := e.Add(prim(trigger.Timestamp(i), trigger.Channel(10+i)))
		require.NoError(t, err)
		got = append(got, cs...)
	}
	require.NotEmpty(t, got)
	assert.True(t, got[0].Forced)
	assert.LessOrEqual(t, e.Len(), 4)
	assert.NotZero(t, e.Forced())
}

func TestParamsValidate(t *testing.T) {
	t.Parallel()
	bad := []Params{
		{Eps: 0, MinPts: 3, TimeScale: 1},
		{Eps: 1, MinPts: 0, TimeScale: 1},
		{Eps: 1, MinPts: 3, TimeScale: 0},
		{Eps: math.Inf(1), MinPts: 3, TimeScale: 1},
		{Eps: 1, MinPts: 3, TimeScale: 1, MaxHits: -1},
	}
	for _, p := range bad {
		_, err := NewIncremental(p)
		assert.Error(t, err, "%+v", p)
	}
	assert.NoError(t, DefaultParams().Validate())
}

// TestIncrementalMatchesBatchReference streams random primitives through the
// engine and compares the finalized clusters with a batch run over the same
// sequence.
func TestIncrementalMatchesBatchReference(t *testing.T) {
	t.Parallel()
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		params := Params{Eps: 4, MinPts: 3, TimeScale: 8}

		var tps []trigger.Primitive
		var ts trigger.Timestamp
		for i := 0; i < 400; i++ {
			ts += trigger.Timestamp(rng.Intn(12))
			tps = append(tps, prim(ts, trigger.Channel(rng.Intn(40))))
		}
		// A few stragglers exercise out-of-order rejection in both paths.
		tps = append(tps, prim(ts/2, 3), prim(ts+1, 4))

		e := newEngine(t, params)
		stream, _ := e.AddBatch(tps)
		stream = append(stream, e.Flush(math.MaxUint64)...)

		want := ClusterBatch(tps, params)
		if diff := cmp.Diff(sortedMembers(want), sortedMembers(stream)); diff != "" {
			t.Fatalf("seed %d: incremental differs from batch (-batch +incremental):\n%s", seed, diff)
		}
	}
}

func TestClusterBatchEmpty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, ClusterBatch(nil, DefaultParams()))
}

func TestSpatialIndexRemove(t *testing.T) {
	t.Parallel()
	si := newSpatialIndex(1)
	si.insert(1, 0.5, 0.5)
	si.insert(2, 0.6, 0.6)
	si.remove(1, 0.5, 0.5)

	var seen []uint64
	si.query(0.5, 0.5, func(id uint64) { seen = append(seen, id) })
	assert.Equal(t, []uint64{2}, seen)

	si.remove(2, 0.6, 0.6)
	assert.Empty(t, si.grid)
}
