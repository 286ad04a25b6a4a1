package dbscan

import (
	"sort"

	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// ClusterBatch runs the clustering rule over a whole primitive sequence at once.
// It applies the same out-of-order rejection and border assignment as
// Incremental, so its output equals the incremental output followed by a
// full Flush. MaxHits is ignored.
func ClusterBatch(tps []trigger.Primitive, params Params) []Cluster {
	if len(tps) == 0 {
		return nil
	}

	// Accept the same points the streaming engine would.
	points := make([]trigger.Primitive, 0, len(tps))
	for _, tp := range tps {
		if len(points) > 0 && tp.TimeStart < points[len(points)-1].TimeStart {
			continue
		}
		points = append(points, tp)
	}

	n := len(points)
	t0 := points[0].TimeStart
	xs := make([]float64, n)
	ys := make([]float64, n)
	si := newSpatialIndex(params.Eps)
	for i, p := range points {
		xs[i] = float64(p.TimeStart-t0) / params.TimeScale
		ys[i] = float64(p.Channel)
		si.insert(uint64(i), xs[i], ys[i])
	}

	// regionQuery returns neighbours of i, including i, in ascending order.
	regionQuery := func(i int) []int {
		var out []int
		si.query(xs[i], ys[i], func(id uint64) {
			j := int(id)
			if within(xs[i], ys[i], xs[j], ys[j], params.Eps) {
				out = append(out, j)
			}
		})
		sort.Ints(out)
		return out
	}

	neighbours := make([][]int, n)
	core := make([]bool, n)
	for i := range points {
		neighbours[i] = regionQuery(i)
		core[i] = len(neighbours[i]) >= params.MinPts
	}

	labels := make([]int, n) // 0=unassigned, >0=clusterID
	clusterID := 0
	for i := 0; i < n; i++ {
		if !core[i] || labels[i] != 0 {
			continue
		}
		clusterID++
		expandCores(neighbours, core, labels, i, clusterID)
	}

	// Border points join the cluster of their earliest core neighbour.
	for i := 0; i < n; i++ {
		if core[i] {
			continue
		}
		for _, j := range neighbours[i] {
			if core[j] {
				labels[i] = labels[j]
				break
			}
		}
	}

	return buildClusters(points, labels, core, clusterID)
}

// expandCores labels every core point density-connected to seed.
func expandCores(neighbours [][]int, core []bool, labels []int, seed, clusterID int) {
	labels[seed] = clusterID
	queue := []int{seed}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		for _, j := range neighbours[idx] {
			if !core[j] || labels[j] != 0 {
				continue
			}
			labels[j] = clusterID
			queue = append(queue, j)
		}
	}
}

// buildClusters groups labelled points and orders clusters by their first
// member.
func buildClusters(points []trigger.Primitive, labels []int, core []bool, maxClusterID int) []Cluster {
	clusters := make([]Cluster, maxClusterID)
	for i := range clusters {
		clusters[i].firstID = ^uint64(0)
	}
	for i, label := range labels {
		if label == 0 {
			continue
		}
		c := &clusters[label-1]
		c.Primitives = append(c.Primitives, points[i])
		if core[i] {
			c.Cores++
		}
		if uint64(i) < c.firstID {
			c.firstID = uint64(i)
		}
	}
	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].firstID < clusters[j].firstID })
	return clusters
}
