package activity

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/triggeralgs/internal/channelmap"
	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

func TestADCSimpleWindow(t *testing.T) {
	t.Parallel()
	m := NewADCSimpleWindow()
	configure(t, m, config.Params{"window_length": 100, "adc_threshold": 250})

	got := feed(m, []trigger.Primitive{
		tp(0, 1, 100),  // first input never triggers
		tp(10, 2, 100), // within the window
		tp(20, 3, 100),
		tp(150, 4, 10), // closes a 300 ADC window
	})
	require.Len(t, got, 1)
	ta := got[0]
	assert.Equal(t, trigger.Timestamp(0), ta.TimeStart)
	assert.Equal(t, trigger.Timestamp(30), ta.TimeEnd)
	assert.Equal(t, trigger.Channel(1), ta.ChannelStart)
	assert.Equal(t, trigger.Channel(3), ta.ChannelEnd)
	assert.Equal(t, uint64(300), ta.ADCIntegral)
	assert.Equal(t, trigger.AlgorithmADCSimpleWindow, ta.Algorithm)
	assert.Equal(t, trigger.DetID(3), ta.DetID)
	assert.Len(t, ta.Inputs, 3)
	assert.Equal(t, []trigger.Timestamp{150}, startTimes(m.win.Inputs()), "window restarts at the closing input")

	// Below threshold: the window slides and evicts everything.
	got = feed(m, []trigger.Primitive{tp(160, 5, 10), tp(300, 6, 10)})
	assert.Empty(t, got)
	assert.Equal(t, []trigger.Timestamp{300}, startTimes(m.win.Inputs()))

	assert.Empty(t, m.Flush(math.MaxUint64))
	assert.True(t, m.win.IsEmpty())
}

func TestADCSimpleWindowFlush(t *testing.T) {
	t.Parallel()
	m := NewADCSimpleWindow()
	configure(t, m, config.Params{"window_length": 100, "adc_threshold": 150})
	feed(m, []trigger.Primitive{tp(0, 1, 100), tp(10, 2, 100)})

	assert.Empty(t, m.Flush(50), "window not complete at horizon 50")
	assert.Equal(t, 2, m.win.Len())

	got := m.Flush(100)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(200), got[0].ADCIntegral)
	assert.True(t, m.win.IsEmpty())
	assert.Empty(t, m.Flush(math.MaxUint64))
}

func TestHorizontalMuonAllPredicatesDisabled(t *testing.T) {
	t.Parallel()
	m := NewHorizontalMuon()
	configure(t, m, config.Params{"window_length": 100, "trigger_on_adjacency": false})

	var tps []trigger.Primitive
	for i := 0; i < 50; i++ {
		tps = append(tps, tp(trigger.Timestamp(i*30), trigger.Channel(100+i), 1<<30))
	}
	assert.Empty(t, feed(m, tps))
	assert.Empty(t, m.Flush(math.MaxUint64))
	assert.True(t, m.win.IsEmpty())
}

func TestHorizontalMuonAdjacency(t *testing.T) {
	t.Parallel()
	m := NewHorizontalMuon()
	configure(t, m, config.Params{"window_length": 1000})

	var tps []trigger.Primitive
	for i := 0; i < 20; i++ {
		tps = append(tps, tp(trigger.Timestamp(i), trigger.Channel(100+i), 10))
	}
	tps = append(tps, tp(2000, 500, 10))

	got := feed(m, tps)
	require.Len(t, got, 1)
	assert.Equal(t, trigger.Channel(100), got[0].ChannelStart)
	assert.Equal(t, trigger.Channel(119), got[0].ChannelEnd)
	assert.Len(t, got[0].Inputs, 20)
	assert.Equal(t, 20, m.maxAdjacency)
}

// TestHorizontalMuonPriority is not parallel: it captures the global diag
// log stream.
func TestHorizontalMuonPriority(t *testing.T) {
	tests := []struct {
		name     string
		priority []any
		want     string
		notWant  string
	}{
		{"default order", nil, "emitting adc trigger", "emitting n_channels trigger"},
		{"multiplicity first", []any{"n_channels", "adc"}, "emitting n_channels trigger", "emitting adc trigger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			trigger.SetLogWriters(trigger.LogWriters{Diag: &buf})
			defer trigger.SetLogWriters(trigger.LogWriters{})

			p := config.Params{
				"window_length":         100,
				"trigger_on_adc":        true,
				"adc_threshold":         100,
				"trigger_on_n_channels": true,
				"n_channels_threshold":  1,
				"trigger_on_adjacency":  false,
			}
			if tt.priority != nil {
				p["priority"] = tt.priority
			}
			m := NewHorizontalMuon()
			configure(t, m, p)
			got := feed(m, []trigger.Primitive{tp(0, 1, 100), tp(10, 2, 100), tp(200, 3, 1)})
			require.Len(t, got, 1)
			assert.Contains(t, buf.String(), tt.want)
			assert.NotContains(t, buf.String(), tt.notWant)
		})
	}
}

func TestHorizontalMuonPrescale(t *testing.T) {
	t.Parallel()
	m := NewHorizontalMuon()
	configure(t, m, config.Params{
		"window_length":        100,
		"trigger_on_adc":       true,
		"adc_threshold":        50,
		"trigger_on_adjacency": false,
		"prescale":             2,
	})

	got := feed(m, []trigger.Primitive{tp(0, 1, 100), tp(200, 2, 100), tp(400, 3, 100)})
	require.Len(t, got, 1, "the first hit is prescaled away")
	assert.Equal(t, []trigger.Timestamp{200}, startTimes(got[0].Inputs))
}

func TestHorizontalMuonTOT(t *testing.T) {
	t.Parallel()
	m := NewHorizontalMuon()
	configure(t, m, config.Params{
		"window_length":        100,
		"trigger_on_tot":       true,
		"tot_threshold":        50,
		"trigger_on_adjacency": false,
	})

	long := tp(300, 2, 1)
	long.TimeOverThreshold = 100
	got := feed(m, []trigger.Primitive{tp(0, 1, 1), tp(150, 1, 1), long})
	require.Len(t, got, 1)
	assert.Equal(t, []trigger.Timestamp{150}, startTimes(got[0].Inputs))

	// The cutoff looks at the closing input, which a flush does not have.
	assert.Empty(t, m.Flush(math.MaxUint64))
}

func TestHorizontalMuonBadPriority(t *testing.T) {
	t.Parallel()
	for _, prio := range [][]any{{"adc", "bogus"}, {"adc", "adc"}} {
		err := NewHorizontalMuon().Configure(config.Params{"priority": prio})
		require.Error(t, err, "%v", prio)
		assert.True(t, errors.Is(err, trigger.ErrBadConfiguration))
	}
}

func TestChannelAdjacencyFindsEveryTrack(t *testing.T) {
	t.Parallel()
	params := config.Params{
		"window_length":       100,
		"adjacency_threshold": 3,
		"adj_tolerance":       0,
		"adj_max_gap":         1,
	}
	window := []trigger.Primitive{
		tp(0, 10, 1), tp(1, 11, 1), tp(2, 12, 1), tp(3, 13, 1), tp(4, 14, 1), // 5-channel track
		tp(5, 50, 1), tp(6, 51, 1), tp(7, 52, 1), tp(8, 53, 1), // 4-channel track
		tp(9, 80, 1), // isolated
		tp(200, 7, 1),
	}

	m := NewChannelAdjacency()
	configure(t, m, params)
	got := feed(m, window)
	require.Len(t, got, 2)
	assert.Equal(t, trigger.Channel(10), got[0].ChannelStart)
	assert.Equal(t, trigger.Channel(14), got[0].ChannelEnd)
	assert.Len(t, got[0].Inputs, 5)
	assert.Equal(t, trigger.Channel(50), got[1].ChannelStart)
	assert.Len(t, got[1].Inputs, 4)
	assert.Equal(t, []trigger.Timestamp{200}, startTimes(m.win.Inputs()))

	params["prescale"] = 2
	pm := NewChannelAdjacency()
	configure(t, pm, params)
	got = feed(pm, window)
	require.Len(t, got, 1)
	assert.Equal(t, trigger.Channel(50), got[0].ChannelStart)
}

func TestChannelAdjacencySlidesWithoutTrack(t *testing.T) {
	t.Parallel()
	m := NewChannelAdjacency()
	configure(t, m, config.Params{"window_length": 100, "adjacency_threshold": 3})
	got := feed(m, []trigger.Primitive{tp(0, 10, 1), tp(50, 40, 1), tp(120, 70, 1)})
	assert.Empty(t, got)
	assert.Equal(t, []trigger.Timestamp{50, 120}, startTimes(m.win.Inputs()))
}

func planeMap(t *testing.T) channelmap.Map {
	t.Helper()
	m, err := channelmap.NewRangeMap([]channelmap.Range{
		{First: 0, Last: 99, Plane: channelmap.PlaneU},
		{First: 100, Last: 199, Plane: channelmap.PlaneY},
		{First: 200, Last: 299, Plane: channelmap.PlaneZ},
	})
	require.NoError(t, err)
	return m
}

func newPlaneCoincidence(t *testing.T, adcThreshold int) *PlaneCoincidence {
	t.Helper()
	m := NewPlaneCoincidence()
	configure(t, m, config.Params{
		"window_length":       100,
		"adc_threshold":       adcThreshold,
		"adjacency_threshold": 3,
		"adj_tolerance":       0,
		"adj_max_gap":         1,
	})
	m.SetChannelMap(planeMap(t))
	return m
}

func TestPlaneCoincidenceTriggers(t *testing.T) {
	t.Parallel()
	m := newPlaneCoincidence(t, 250)

	got := feed(m, []trigger.Primitive{
		tp(0, 10, 100),  // U
		tp(1, 110, 100), // Y
		tp(2, 200, 50),  // Z
		tp(3, 201, 50),
		tp(4, 202, 50),
		tp(150, 500, 1000), // unconnected
		tp(150, 203, 50),   // completes the Z window
	})
	require.Len(t, got, 1)
	ta := got[0]
	assert.Equal(t, trigger.AlgorithmPlaneCoincidence, ta.Algorithm)
	assert.Equal(t, trigger.Channel(200), ta.ChannelStart)
	assert.Equal(t, trigger.Channel(202), ta.ChannelEnd)
	assert.Equal(t, uint64(150), ta.ADCIntegral)

	assert.True(t, m.windows[0].IsEmpty())
	assert.True(t, m.windows[1].IsEmpty())
	assert.Equal(t, []trigger.Timestamp{150}, startTimes(m.windows[2].Inputs()))
	assert.Equal(t, uint64(1), m.Anomalies())
}

func TestPlaneCoincidenceAddsInputOnce(t *testing.T) {
	t.Parallel()
	m := newPlaneCoincidence(t, 1<<40)

	got := feed(m, []trigger.Primitive{
		tp(0, 10, 1),   // U
		tp(0, 200, 1),  // Z
		tp(50, 11, 1),  // U, added
		tp(120, 12, 1), // U, past its window: slides
		tp(130, 110, 1),
		tp(140, 13, 1), // U, added while Z is complete
	})
	assert.Empty(t, got)
	assert.Equal(t, []trigger.Timestamp{50, 120, 140}, startTimes(m.windows[0].Inputs()))
}

func TestPlaneCoincidenceConfigErrors(t *testing.T) {
	t.Parallel()
	err := NewPlaneCoincidence().Configure(config.Params{"trigger_on_n_channels": true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, trigger.ErrBadConfiguration))

	err = NewPlaneCoincidence().Configure(config.Params{"channel_map": "/nonexistent/map.json"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, trigger.ErrBadConfiguration))
}

func TestChannelDistance(t *testing.T) {
	t.Parallel()
	m := NewChannelDistance()
	configure(t, m, config.Params{"window_length": 100, "max_channel_distance": 5, "min_tps": 3})

	got := feed(m, []trigger.Primitive{
		tp(0, 100, 1),
		tp(10, 104, 1),
		tp(20, 200, 1), // too far in channel
		tp(30, 108, 1), // reachable after the bounds widened
		tp(200, 300, 1),
	})
	require.Len(t, got, 1)
	assert.Equal(t, []trigger.Timestamp{0, 10, 30}, startTimes(got[0].Inputs))
	assert.Equal(t, trigger.Channel(100), got[0].ChannelStart)
	assert.Equal(t, trigger.Channel(108), got[0].ChannelEnd)
	assert.Equal(t, uint64(1), m.Skipped())

	// The open activity has two primitives, fewer than min_tps.
	assert.Empty(t, feed(m, []trigger.Primitive{tp(250, 301, 1)}))
	assert.Empty(t, m.Flush(math.MaxUint64))
	assert.Empty(t, m.current)
}

func TestChannelDistanceFlushEmits(t *testing.T) {
	t.Parallel()
	m := NewChannelDistance()
	configure(t, m, config.Params{"window_length": 100, "min_tps": 1})
	feed(m, []trigger.Primitive{tp(0, 10, 1), tp(5, 11, 1)})

	assert.Empty(t, m.Flush(100), "horizon must be past the window")
	got := m.Flush(math.MaxUint64)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Inputs, 2)
}
