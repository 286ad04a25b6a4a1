package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/registry"
	"github.com/banshee-data/triggeralgs/internal/trigger/telemetry"
	"github.com/banshee-data/triggeralgs/internal/trigger/tpio"
)

type memSink struct {
	mu      sync.Mutex
	records []tpio.Record
	err     error
}

func (s *memSink) Write(rec tpio.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func primitives(n int, detids ...trigger.DetID) []trigger.Primitive {
	var out []trigger.Primitive
	for i := 0; i < n; i++ {
		out = append(out, trigger.Primitive{
			TimeStart:         trigger.Timestamp(100 * (i + 1)),
			TimeOverThreshold: 10,
			TimePeak:          trigger.Timestamp(100*(i+1) + 5),
			Channel:           trigger.Channel(i % 50),
			ADCIntegral:       500,
			ADCPeak:           50,
			DetID:             detids[i%len(detids)],
			Type:              trigger.PrimitiveTypeTPC,
		})
	}
	return out
}

func regs(t *testing.T) *Registries {
	t.Helper()
	r, err := NewRegistries()
	require.NoError(t, err)
	assert.True(t, r.Activities.Sealed())
	assert.True(t, r.Candidates.Sealed())
	return r
}

func TestPartitionOf(t *testing.T) {
	t.Parallel()
	for id := trigger.DetID(0); id < 100; id++ {
		p := PartitionOf(id, 4)
		assert.GreaterOrEqual(t, p, 0)
		assert.Less(t, p, 4)
		assert.Equal(t, p, PartitionOf(id, 4), "stable")
		assert.Equal(t, 0, PartitionOf(id, 1))
	}
}

func TestPipelineBundleFlush(t *testing.T) {
	t.Parallel()
	cfg := &config.PipelineConfig{
		Activity:  config.AlgorithmConfig{Name: "bundle", Params: config.Params{"bundle_size": 3}},
		Candidate: config.AlgorithmConfig{Name: "bundle", Params: config.Params{"bundle_size": 2}},
	}
	p, err := New(cfg, regs(t))
	require.NoError(t, err)

	var tas []trigger.Activity
	var tcs []trigger.Candidate
	for _, tp := range primitives(4, 1) {
		out := p.Apply(tp)
		tas = append(tas, out.Activities...)
		tcs = append(tcs, out.Candidates...)
	}
	require.Len(t, tas, 1)
	assert.Empty(t, tcs)

	out := p.Flush(EndOfStream)
	require.Len(t, out.Activities, 1)
	require.Len(t, out.Candidates, 1)
	tc := out.Candidates[0]
	require.Len(t, tc.Inputs, 2)
	assert.Equal(t, 3, tc.Inputs[0].NPrimitives)
	assert.Equal(t, 1, tc.Inputs[1].NPrimitives)

	as := p.Activity.Snapshot()
	assert.Equal(t, uint64(4), as.Inputs)
	assert.Equal(t, uint64(2), as.Outputs)
	cs := p.Candidate.Snapshot()
	assert.Equal(t, uint64(2), cs.Inputs)
	assert.Equal(t, uint64(1), cs.Outputs)
}

func TestNewReportsConfigErrors(t *testing.T) {
	t.Parallel()
	r := regs(t)

	_, err := New(&config.PipelineConfig{
		Activity:  config.AlgorithmConfig{Name: "michel_electron"},
		Candidate: config.AlgorithmConfig{Name: "prescale"},
	}, r)
	assert.True(t, errors.Is(err, registry.ErrNotFound))

	_, err = New(&config.PipelineConfig{
		Activity:  config.AlgorithmConfig{Name: "prescale"},
		Candidate: config.AlgorithmConfig{Name: "channel_adjacency"},
	}, r)
	assert.True(t, errors.Is(err, trigger.ErrBadConfiguration))
}

func TestRunnerPartitions(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultPipelineConfig()
	parts := 3
	cfg.Partitions = &parts

	sink := &memSink{}
	col := telemetry.NewCollector()
	r, err := NewRunner(cfg, regs(t), sink, col)
	require.NoError(t, err)
	require.Len(t, r.Pipelines(), 3)
	assert.NotEmpty(t, r.RunID)

	tps := primitives(60, 1, 2, 3, 4, 5)
	require.NoError(t, r.Run(context.Background(), NewSliceSource(tps)))

	var nTA, nTC int
	for _, rec := range sink.records {
		assert.Equal(t, r.RunID, rec.RunID)
		switch {
		case rec.Activity != nil:
			nTA++
			assert.Equal(t, PartitionOf(rec.Activity.DetID, parts), rec.Partition)
		case rec.Candidate != nil:
			nTC++
			assert.Equal(t, PartitionOf(rec.Candidate.DetID, parts), rec.Partition)
		}
	}
	assert.Equal(t, 60, nTA)
	assert.Equal(t, 60, nTC)

	var inputs uint64
	for _, p := range r.Pipelines() {
		inputs += p.Activity.Snapshot().Inputs
	}
	assert.Equal(t, uint64(60), inputs)

	// The reporter always reports once on shutdown.
	assert.NotEmpty(t, col.Snapshots("p0/activity"))
}

func TestRunnerDBSCANByName(t *testing.T) {
	t.Parallel()
	cfg := &config.PipelineConfig{
		Activity: config.AlgorithmConfig{
			Name:   "dbscan",
			Params: config.Params{"eps": 10, "min_pts": 3, "time_scale": 32},
		},
		Candidate: config.AlgorithmConfig{
			Name:   "dbscan",
			Params: config.Params{"max_tp_count": 6},
		},
	}

	// Two tracks far apart in channel plus one isolated hit.
	var tps []trigger.Primitive
	hit := func(ts trigger.Timestamp, ch trigger.Channel) {
		tps = append(tps, trigger.Primitive{
			TimeStart: ts, TimeOverThreshold: 10, TimePeak: ts + 5,
			Channel: ch, ADCIntegral: 100, ADCPeak: 20, DetID: 7,
		})
	}
	hit(0, 100)
	hit(10, 300)
	hit(32, 101)
	hit(42, 301)
	hit(64, 102)
	hit(74, 302)
	hit(96, 103)
	hit(106, 303)
	hit(128, 104)
	hit(200, 900)

	sink := &memSink{}
	r, err := NewRunner(cfg, regs(t), sink, nil)
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), NewSliceSource(tps)))

	var tas []*trigger.Activity
	var tcs []*trigger.Candidate
	for _, rec := range sink.records {
		if rec.Activity != nil {
			tas = append(tas, rec.Activity)
		}
		if rec.Candidate != nil {
			tcs = append(tcs, rec.Candidate)
		}
	}
	require.Len(t, tas, 2)
	assert.Equal(t, trigger.AlgorithmDBSCAN, tas[0].Algorithm)
	assert.Equal(t, trigger.Channel(100), tas[0].ChannelStart)
	assert.Equal(t, trigger.Channel(104), tas[0].ChannelEnd)
	assert.Len(t, tas[0].Inputs, 5)
	assert.Equal(t, trigger.Channel(300), tas[1].ChannelStart)
	assert.Len(t, tas[1].Inputs, 4)

	// Five plus four primitives exceed max_tp_count, so each cluster gets
	// its own candidate.
	require.Len(t, tcs, 2)
	for i, tc := range tcs {
		assert.Equal(t, trigger.CandidateTypeDBSCAN, tc.Type)
		assert.Equal(t, trigger.DetID(7), tc.DetID)
		require.Len(t, tc.Inputs, 1)
		assert.Equal(t, len(tas[i].Inputs), tc.Inputs[0].NPrimitives)
	}

	p := r.Pipelines()[0]
	assert.Equal(t, uint64(10), p.Activity.Snapshot().Inputs)
	assert.Equal(t, uint64(2), p.Activity.Snapshot().Outputs)
	assert.Equal(t, uint64(2), p.Candidate.Snapshot().Outputs)
}

func TestRunnerSinkError(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk full")
	sink := &memSink{err: boom}
	r, err := NewRunner(config.DefaultPipelineConfig(), regs(t), sink, nil)
	require.NoError(t, err)

	err = r.Run(context.Background(), NewSliceSource(primitives(5000, 1)))
	assert.ErrorIs(t, err, boom)
}

func TestRunnerInvalidConfig(t *testing.T) {
	t.Parallel()
	zero := 0
	cfg := config.DefaultPipelineConfig()
	cfg.Partitions = &zero
	_, err := NewRunner(cfg, regs(t), &memSink{}, nil)
	assert.Error(t, err)
}
