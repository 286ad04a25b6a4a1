package telemetry

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats describes one skew series in milliseconds.
type Stats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// Summary condenses a run of snapshots.
type Summary struct {
	Samples    int    `json:"samples"`
	Inputs     uint64 `json:"inputs"`
	Outputs    uint64 `json:"outputs"`
	Anomalies  uint64 `json:"anomalies"`
	InputSkew  Stats  `json:"input_skew_ms"`
	OutputSkew Stats  `json:"output_skew_ms"`
}

// Summarize computes skew statistics over the started snapshots and takes
// the counts from the last one.
func Summarize(snapshots []Snapshot) Summary {
	var in, out []float64
	var sum Summary
	for _, s := range snapshots {
		if !s.Started {
			continue
		}
		in = append(in, s.InputSkewMs)
		out = append(out, s.OutputSkewMs)
	}
	sum.Samples = len(in)
	if n := len(snapshots); n > 0 {
		last := snapshots[n-1]
		sum.Inputs, sum.Outputs, sum.Anomalies = last.Inputs, last.Outputs, last.Anomalies
	}
	sum.InputSkew = describe(in)
	sum.OutputSkew = describe(out)
	return sum
}

func describe(x []float64) Stats {
	if len(x) == 0 {
		return Stats{}
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	st := Stats{
		Mean: stat.Mean(sorted, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max:  sorted[len(sorted)-1],
	}
	if len(sorted) > 1 {
		st.StdDev = stat.StdDev(sorted, nil)
	}
	return st
}

func (s Summary) String() string {
	return fmt.Sprintf("%d samples, in=%d out=%d anomalies=%d, input skew mean %.2fms p95 %.2fms, output skew mean %.2fms p95 %.2fms",
		s.Samples, s.Inputs, s.Outputs, s.Anomalies,
		s.InputSkew.Mean, s.InputSkew.P95, s.OutputSkew.Mean, s.OutputSkew.P95)
}
