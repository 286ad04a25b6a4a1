package dbscan

import (
	"math"
	"slices"
)

// spatialIndex buckets points into a regular grid so neighbourhood queries
// only look at the 3x3 cells around a point. Cell size should match eps.
type spatialIndex struct {
	cellSize float64
	grid     map[int64][]uint64 // cell ID -> hit IDs
}

func newSpatialIndex(cellSize float64) *spatialIndex {
	return &spatialIndex{
		cellSize: cellSize,
		grid:     make(map[int64][]uint64),
	}
}

func (si *spatialIndex) cellOf(x, y float64) (int64, int64) {
	return int64(math.Floor(x / si.cellSize)), int64(math.Floor(y / si.cellSize))
}

// cellID pairs two signed cell coordinates into one key using zigzag
// encoding followed by Szudzik's pairing function.
func cellID(cellX, cellY int64) int64 {
	var a, b int64
	if cellX >= 0 {
		a = 2 * cellX
	} else {
		a = -2*cellX - 1
	}
	if cellY >= 0 {
		b = 2 * cellY
	} else {
		b = -2*cellY - 1
	}
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

func (si *spatialIndex) insert(id uint64, x, y float64) {
	key := cellID(si.cellOf(x, y))
	si.grid[key] = append(si.grid[key], id)
}

func (si *spatialIndex) remove(id uint64, x, y float64) {
	key := cellID(si.cellOf(x, y))
	ids := si.grid[key]
	if i := slices.Index(ids, id); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		delete(si.grid, key)
		return
	}
	si.grid[key] = ids
}

// query calls visit for every indexed id in the 3x3 cell neighbourhood of
// (x, y). The caller applies the exact distance test.
func (si *spatialIndex) query(x, y float64, visit func(id uint64)) {
	cx, cy := si.cellOf(x, y)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, id := range si.grid[cellID(cx+dx, cy+dy)] {
				visit(id)
			}
		}
	}
}

func within(ax, ay, bx, by, eps float64) bool {
	dx := ax - bx
	dy := ay - by
	return dx*dx+dy*dy <= eps*eps
}
