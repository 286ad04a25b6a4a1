package window

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/triggeralgs/internal/trigger"
)

func tp(ts trigger.Timestamp, ch trigger.Channel, adc uint64) trigger.Primitive {
	return trigger.Primitive{TimeStart: ts, Channel: ch, ADCIntegral: adc, TimeOverThreshold: 10}
}

// recount derives the window totals from scratch.
func recount[T Element](inputs []T) (uint64, int) {
	var sum uint64
	seen := map[trigger.Channel]struct{}{}
	for _, e := range inputs {
		sum += e.Integral()
		e.EachChannel(func(c trigger.Channel) { seen[c] = struct{}{} })
	}
	return sum, len(seen)
}

func TestWindowResetAddMove(t *testing.T) {
	t.Parallel()

	w := NewPrimitiveWindow()
	require.True(t, w.IsEmpty())

	w.Reset(tp(100, 1, 10))
	w.Add(tp(150, 2, 20))
	w.Add(tp(180, 2, 30))
	assert.Equal(t, trigger.Timestamp(100), w.TimeStart())
	assert.Equal(t, uint64(60), w.ADCIntegral())
	assert.Equal(t, 2, w.NChannelsHit())

	// 250 - 100 >= 100 evicts the first element; 250 - 150 >= 100 evicts the second.
	w.Move(tp(250, 3, 5), 100)
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, trigger.Timestamp(180), w.TimeStart())
	assert.Equal(t, uint64(35), w.ADCIntegral())
	assert.Equal(t, 2, w.NChannelsHit())
}

func TestWindowMoveEvictingEverythingResets(t *testing.T) {
	t.Parallel()

	w := NewPrimitiveWindow()
	w.Reset(tp(0, 1, 10))
	w.Add(tp(10, 2, 10))
	w.Move(tp(1000, 7, 3), 100)

	require.Equal(t, 1, w.Len())
	assert.Equal(t, trigger.Timestamp(1000), w.TimeStart())
	assert.Equal(t, uint64(3), w.ADCIntegral())
	assert.Equal(t, 1, w.NChannelsHit())
}

func TestWindowEvictionRemovesLastHitOnChannel(t *testing.T) {
	t.Parallel()

	w := NewPrimitiveWindow()
	w.Reset(tp(0, 5, 1))
	w.Add(tp(50, 6, 1))
	w.Add(tp(60, 6, 1))
	require.Equal(t, 2, w.NChannelsHit())

	w.Move(tp(100, 6, 1), 100)
	assert.Equal(t, 1, w.NChannelsHit(), "channel 5 should be gone after its only hit was evicted")
}

func TestWindowTiesKeptInArrivalOrder(t *testing.T) {
	t.Parallel()

	w := NewActivityWindow()
	a := trigger.Activity{ActivitySummary: trigger.ActivitySummary{TimeStart: 10, ADCIntegral: 1}}
	b := trigger.Activity{ActivitySummary: trigger.ActivitySummary{TimeStart: 10, ADCIntegral: 2}}
	c := trigger.Activity{ActivitySummary: trigger.ActivitySummary{TimeStart: 5, ADCIntegral: 3}}
	w.Reset(a)
	w.Add(b)
	w.Add(c)

	got := w.Inputs()
	require.Len(t, got, 3)
	assert.Equal(t, uint64(3), got[0].ADCIntegral)
	assert.Equal(t, uint64(1), got[1].ADCIntegral)
	assert.Equal(t, uint64(2), got[2].ADCIntegral)
	assert.Equal(t, trigger.Timestamp(5), w.TimeStart())
}

func TestActivityWindowCountsPrimitiveChannels(t *testing.T) {
	t.Parallel()

	ta := trigger.Activity{
		ActivitySummary: trigger.ActivitySummary{TimeStart: 0, ADCIntegral: 30},
		Inputs:          []trigger.Primitive{tp(0, 1, 10), tp(1, 2, 10), tp(2, 2, 10)},
	}
	w := NewActivityWindow()
	w.Reset(ta)
	assert.Equal(t, 2, w.NChannelsHit())

	w.Move(trigger.Activity{ActivitySummary: trigger.ActivitySummary{TimeStart: 500}}, 100)
	assert.Equal(t, 0, w.NChannelsHit())
	assert.Equal(t, uint64(0), w.ADCIntegral())
}

func TestWindowClear(t *testing.T) {
	t.Parallel()

	w := NewPrimitiveWindow()
	w.Reset(tp(10, 1, 10))
	w.Clear()
	assert.True(t, w.IsEmpty())
	assert.Zero(t, w.ADCIntegral())
	assert.Zero(t, w.NChannelsHit())
	assert.Zero(t, w.TimeStart())
	assert.Equal(t, "window is empty", w.String())
}

// TestWindowTotalsNeverDrift feeds a random stream through add/move and checks
// the running totals against a full recount after every operation.
func TestWindowTotalsNeverDrift(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	const length = 500
	w := NewPrimitiveWindow()
	var ts trigger.Timestamp

	for i := 0; i < 5000; i++ {
		ts += trigger.Timestamp(rng.Intn(40))
		x := tp(ts, trigger.Channel(rng.Intn(64)), uint64(rng.Intn(1<<20)))
		switch {
		case w.IsEmpty():
			w.Reset(x)
		case x.TimeStart-w.TimeStart() < length:
			w.Add(x)
		default:
			w.Move(x, length)
		}

		sum, channels := recount(w.Inputs())
		require.Equal(t, sum, w.ADCIntegral(), "step %d", i)
		require.Equal(t, channels, w.NChannelsHit(), "step %d", i)
		require.Equal(t, w.Front().TimeStart, w.TimeStart(), "step %d", i)
	}
}

func TestWindowExpire(t *testing.T) {
	t.Parallel()
	w := NewPrimitiveWindow()
	w.Reset(tp(0, 1, 10))
	w.Add(tp(50, 2, 20))
	w.Add(tp(90, 2, 30))

	assert.Zero(t, w.Expire(40, 100), "nothing is old enough")
	assert.Equal(t, 3, w.Len())

	assert.Equal(t, 1, w.Expire(120, 100))
	assert.Equal(t, trigger.Timestamp(50), w.TimeStart())
	assert.Equal(t, uint64(50), w.ADCIntegral())
	assert.Equal(t, 1, w.NChannelsHit())

	assert.Equal(t, 2, w.Expire(1000, 100))
	assert.True(t, w.IsEmpty())
	assert.Zero(t, w.ADCIntegral())
	assert.Zero(t, w.NChannelsHit())
}
