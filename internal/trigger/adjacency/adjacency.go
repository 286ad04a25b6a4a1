// Package adjacency measures the longest run of hit channels in a set of
// primitives, tolerating a bounded number of missing channels.
//
// Channels are sorted ascending and walked in order. A step of one channel
// extends the run. A step of 2..MaxGap channels also extends it while the
// tolerance spent so far is below Tolerance, and charges the number of
// skipped channels (gap-1). Any other step closes the run and starts a new
// one. Repeated hits on one channel are skipped. The last channel never
// joins back onto the first.
package adjacency

import (
	"cmp"
	"slices"

	"github.com/banshee-data/triggeralgs/internal/trigger"
)

// Params controls gap tolerance.
type Params struct {
	// Tolerance is the budget of skipped channels a run may absorb.
	Tolerance int
	// MaxGap is the largest channel step that may be bridged. A MaxGap of
	// 1 or less disables bridging.
	MaxGap int
}

// PrimitiveChannel is the channel accessor for primitives.
func PrimitiveChannel(tp trigger.Primitive) trigger.Channel { return tp.Channel }

// walk visits the channel-sorted order of elems and reports each closed run
// as positions [start, end] into order together with its length in distinct
// channels.
func walk[T any](elems []T, channelOf func(T) trigger.Channel, p Params, closed func(start, end, length int)) []int {
	n := len(elems)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(channelOf(elems[a]), channelOf(elems[b]))
	})

	start, run, tol := 0, 1, 0
	for i := 0; i < n; i++ {
		if i == n-1 {
			closed(start, i, run)
			break
		}
		gap := int(channelOf(elems[order[i+1]]) - channelOf(elems[order[i]]))
		switch {
		case gap == 0:
			continue
		case gap == 1:
			run++
		case gap <= p.MaxGap && tol < p.Tolerance:
			run++
			tol += gap - 1
		default:
			closed(start, i, run)
			start, run, tol = i+1, 1, 0
		}
	}
	return order
}

// MaxRun returns the length, in distinct channels, of the longest run
// among elems. An empty set has run length 0 and a single element 1.
func MaxRun[T any](elems []T, channelOf func(T) trigger.Channel, p Params) int {
	best := 0
	walk(elems, channelOf, p, func(_, _, length int) {
		if length > best {
			best = length
		}
	})
	return best
}

// MaxRunPrimitives is MaxRun over primitive channels.
func MaxRunPrimitives(tps []trigger.Primitive, p Params) int {
	return MaxRun(tps, PrimitiveChannel, p)
}

// LongestRun returns the elements forming the longest run, in channel order
// and including repeated hits on the run's channels, the run length, and
// the remaining elements in their original order. On equal lengths the
// lower-channel run wins.
func LongestRun[T any](elems []T, channelOf func(T) trigger.Channel, p Params) (run []T, length int, rest []T) {
	if len(elems) == 0 {
		return nil, 0, nil
	}
	bestStart, bestEnd := 0, -1
	order := walk(elems, channelOf, p, func(start, end, l int) {
		if l > length {
			length, bestStart, bestEnd = l, start, end
		}
	})

	taken := make([]bool, len(elems))
	run = make([]T, 0, bestEnd-bestStart+1)
	for _, idx := range order[bestStart : bestEnd+1] {
		taken[idx] = true
		run = append(run, elems[idx])
	}
	rest = make([]T, 0, len(elems)-len(run))
	for i, e := range elems {
		if !taken[i] {
			rest = append(rest, e)
		}
	}
	return run, length, rest
}
