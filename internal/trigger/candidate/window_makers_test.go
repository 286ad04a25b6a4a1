package candidate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
)

func TestChannelAdjacencyConfigure(t *testing.T) {
	t.Parallel()
	err := NewChannelAdjacency().Configure(nil)
	assert.True(t, errors.Is(err, trigger.ErrBadConfiguration))

	err = NewChannelAdjacency().Configure(config.Params{"trigger_on_n_channels": true})
	assert.NoError(t, err)
}

func TestChannelAdjacencyADC(t *testing.T) {
	t.Parallel()
	m := NewChannelAdjacency()
	configure(t, m, config.Params{
		"trigger_on_adc":              true,
		"adc_threshold":               1000,
		"window_length":               100,
		"readout_window_ticks_before": 2000,
		"readout_window_ticks_after":  50,
	})

	// 400 + 400 stays at threshold; the third pushes it over.
	out := feed(m, []trigger.Activity{ta(1000, 4, 100), ta(1020, 4, 100)})
	assert.Empty(t, out)

	out = m.Apply(ta(1050, 1, 300))
	require.Len(t, out, 1)
	tc := out[0]
	assert.Equal(t, trigger.Timestamp(0), tc.TimeStart, "readout start saturates at zero")
	assert.Equal(t, trigger.Timestamp(1050), tc.TimeEnd)
	assert.Equal(t, trigger.Timestamp(1000), tc.TimeCandidate)
	assert.Len(t, tc.Inputs, 3)
	assert.Equal(t, trigger.CandidateTypeChannelAdjacency, tc.Type)

	// The window was cleared, so the next activity starts afresh.
	assert.Empty(t, m.Apply(ta(1060, 1, 300)))
}

func TestChannelAdjacencyWindowSlides(t *testing.T) {
	t.Parallel()
	m := NewChannelAdjacency()
	configure(t, m, config.Params{
		"trigger_on_adc": true,
		"adc_threshold":  1000,
		"window_length":  100,
	})

	// Each activity alone is below threshold and they never share a window.
	for i := 0; i < 10; i++ {
		assert.Empty(t, m.Apply(ta(trigger.Timestamp(1000+200*i), 1, 600)))
	}
	assert.Nil(t, m.Flush(1<<40))
}

func TestChannelAdjacencyNChannels(t *testing.T) {
	t.Parallel()
	m := NewChannelAdjacency()
	configure(t, m, config.Params{
		"trigger_on_n_channels": true,
		"n_channels_threshold":  5,
	})
	// Both activities hit channels 100..103, so the distinct count is 4.
	assert.Empty(t, feed(m, []trigger.Activity{ta(0, 4, 1), ta(10, 4, 1)}))
	out := m.Apply(ta(20, 6, 1))
	require.Len(t, out, 1)
	assert.Len(t, out[0].Inputs, 3)
}

func TestPlaneCoincidencePassthrough(t *testing.T) {
	t.Parallel()
	m := NewPlaneCoincidence()
	configure(t, m, nil)
	out := feed(m, []trigger.Activity{ta(100, 1, 1), ta(110, 1, 1), ta(120, 1, 1)})
	require.Len(t, out, 3)
	for _, tc := range out {
		assert.Len(t, tc.Inputs, 1)
	}
}

func TestPlaneCoincidenceRejectsNChannels(t *testing.T) {
	t.Parallel()
	err := NewPlaneCoincidence().Configure(config.Params{"trigger_on_n_channels": true})
	assert.True(t, errors.Is(err, trigger.ErrBadConfiguration))
}

func TestPlaneCoincidenceADC(t *testing.T) {
	t.Parallel()
	m := NewPlaneCoincidence()
	configure(t, m, config.Params{
		"trigger_on_adc":              true,
		"adc_threshold":               500,
		"window_length":               100,
		"readout_window_ticks_before": 10,
		"readout_window_ticks_after":  20,
	})

	// The window only closes when an activity arrives past its end.
	assert.Empty(t, feed(m, []trigger.Activity{ta(1000, 3, 100), ta(1050, 3, 100)}))
	out := m.Apply(ta(1200, 1, 1))
	require.Len(t, out, 1)
	tc := out[0]
	assert.Equal(t, trigger.Timestamp(990), tc.TimeStart)
	assert.Equal(t, trigger.Timestamp(1050+10+20), tc.TimeEnd)
	assert.Equal(t, trigger.Timestamp(1000), tc.TimeCandidate)
	assert.Len(t, tc.Inputs, 2)

	// The triggering activity reset the window; it is below threshold.
	assert.Nil(t, m.Flush(1<<40))
}

func TestPlaneCoincidenceFlushEmitsDueWindow(t *testing.T) {
	t.Parallel()
	m := NewPlaneCoincidence()
	configure(t, m, config.Params{
		"trigger_on_adc": true,
		"adc_threshold":  500,
		"window_length":  100,
	})
	assert.Empty(t, m.Apply(ta(1000, 6, 100)))
	assert.Nil(t, m.Flush(1050), "window not yet complete")
	out := m.Flush(1100)
	require.Len(t, out, 1)
	assert.Nil(t, m.Flush(2000))
}
