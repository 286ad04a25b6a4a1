package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/telemetry"
	"github.com/banshee-data/triggeralgs/internal/trigger/tpio"
)

// partitionBuffer is the per-partition channel depth.
const partitionBuffer = 1024

// Source yields primitives until io.EOF. *tpio.Reader is a Source.
type Source interface {
	Next() (trigger.Primitive, error)
}

// SliceSource serves primitives from memory.
type SliceSource struct {
	tps []trigger.Primitive
}

func NewSliceSource(tps []trigger.Primitive) *SliceSource { return &SliceSource{tps: tps} }

func (s *SliceSource) Next() (trigger.Primitive, error) {
	if len(s.tps) == 0 {
		return trigger.Primitive{}, io.EOF
	}
	tp := s.tps[0]
	s.tps = s.tps[1:]
	return tp, nil
}

// Sink receives every record the runner produces. It must be safe for
// concurrent use; *tpio.Writer is.
type Sink interface {
	Write(rec tpio.Record) error
}

// PartitionOf maps a detector element onto one of n partitions. Every
// primitive of an element lands in the same partition, so each maker sees
// its element's stream in order.
func PartitionOf(id trigger.DetID, n int) int {
	if n <= 1 {
		return 0
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(id))
	return int(xxhash.Sum64(b[:]) % uint64(n))
}

// Runner drives one Pipeline per partition.
type Runner struct {
	RunID     string
	pipelines []*Pipeline
	sink      Sink
	reporter  *telemetry.Reporter
}

// NewRunner builds cfg.GetPartitions() pipelines. Telemetry for each
// stage of each partition is reported to tsink every report interval; a
// nil tsink disables reporting.
func NewRunner(cfg *config.PipelineConfig, regs *Registries, sink Sink, tsink telemetry.Sink) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	r := &Runner{RunID: uuid.NewString(), sink: sink}
	if tsink != nil {
		r.reporter = telemetry.NewReporter(cfg.GetReportInterval(), tsink, nil)
	}
	for i := 0; i < cfg.GetPartitions(); i++ {
		p, err := New(cfg, regs)
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", i, err)
		}
		r.pipelines = append(r.pipelines, p)
		if r.reporter != nil {
			r.reporter.Track(fmt.Sprintf("p%d/activity", i), p.Activity)
			r.reporter.Track(fmt.Sprintf("p%d/candidate", i), p.Candidate)
		}
	}
	trigger.Opsf("run %s: %s -> %s over %d partitions",
		r.RunID, cfg.Activity.Name, cfg.Candidate.Name, len(r.pipelines))
	return r, nil
}

// Pipelines returns the per-partition pipelines.
func (r *Runner) Pipelines() []*Pipeline { return r.pipelines }

// Run reads src to the end, shards each primitive by DetID and flushes
// every partition at end of stream. The first error cancels the run.
func (r *Runner) Run(ctx context.Context, src Source) error {
	g, gctx := errgroup.WithContext(ctx)

	repCtx, stopReporter := context.WithCancel(context.Background())
	repDone := make(chan struct{})
	if r.reporter != nil {
		go func() {
			defer close(repDone)
			_ = r.reporter.Run(repCtx)
		}()
	} else {
		close(repDone)
	}
	defer func() {
		stopReporter()
		<-repDone
	}()

	chans := make([]chan trigger.Primitive, len(r.pipelines))
	for i := range chans {
		chans[i] = make(chan trigger.Primitive, partitionBuffer)
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range chans {
				close(ch)
			}
		}()
		for {
			tp, err := src.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case chans[PartitionOf(tp.DetID, len(chans))] <- tp:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	for i, p := range r.pipelines {
		i, p := i, p
		g.Go(func() error {
			for tp := range chans[i] {
				if err := r.emit(i, p.Apply(tp)); err != nil {
					return err
				}
			}
			if gctx.Err() != nil {
				return nil
			}
			return r.emit(i, p.Flush(EndOfStream))
		})
	}

	return g.Wait()
}

func (r *Runner) emit(partition int, out Output) error {
	for i := range out.Activities {
		if err := r.sink.Write(tpio.Record{RunID: r.RunID, Partition: partition, Activity: &out.Activities[i]}); err != nil {
			return err
		}
	}
	for i := range out.Candidates {
		if err := r.sink.Write(tpio.Record{RunID: r.RunID, Partition: partition, Candidate: &out.Candidates[i]}); err != nil {
			return err
		}
	}
	return nil
}
