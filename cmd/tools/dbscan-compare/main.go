// Package main compares the incremental DBSCAN engine against the batch
// reference on the same primitive dump.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/banshee-data/triggeralgs/internal/trigger/dbscan"
	"github.com/banshee-data/triggeralgs/internal/trigger/tpio"
)

// Config holds configuration for the comparison.
type Config struct {
	Input      string
	Eps        float64
	MinPts     int
	TimeScale  float64
	MaxHits    int
	BatchSize  int
	OutputJSON string
}

// ComparisonResult holds the results of a comparison.
type ComparisonResult struct {
	Input            string        `json:"input"`
	Primitives       int           `json:"primitives"`
	Params           dbscan.Params `json:"params"`
	BatchSize        int           `json:"batch_size"`
	FirstTime        uint64        `json:"first_time"`
	Rejected         int           `json:"rejected"`
	Forced           uint64        `json:"forced"`
	ReferenceCount   int           `json:"reference_clusters"`
	IncrementalCount int           `json:"incremental_clusters"`
	Matched          int           `json:"matched"`
	OnlyReference    []string      `json:"only_reference,omitempty"`
	OnlyIncremental  []string      `json:"only_incremental,omitempty"`
	ReferenceMs      int64         `json:"reference_ms"`
	IncrementalMs    int64         `json:"incremental_ms"`
}

func main() {
	cfg := parseFlags()

	if cfg.Input == "" {
		log.Fatal("input file is required (-input)")
	}

	result, err := runComparison(cfg)
	if err != nil {
		log.Fatalf("Comparison failed: %v", err)
	}

	printResults(result)

	if cfg.OutputJSON != "" {
		if err := exportJSON(result, cfg.OutputJSON); err != nil {
			log.Printf("Warning: failed to export JSON: %v", err)
		} else {
			log.Printf("Results exported to: %s", cfg.OutputJSON)
		}
	}
	if len(result.OnlyReference) > 0 || len(result.OnlyIncremental) > 0 {
		os.Exit(1)
	}
}

func parseFlags() Config {
	cfg := Config{}
	def := dbscan.DefaultParams()

	flag.StringVar(&cfg.Input, "input", "", "Path to the TP dump")
	flag.Float64Var(&cfg.Eps, "eps", def.Eps, "Neighbourhood radius")
	flag.IntVar(&cfg.MinPts, "min-pts", def.MinPts, "Points for a core point, including itself")
	flag.Float64Var(&cfg.TimeScale, "time-scale", def.TimeScale, "Clock ticks per x unit")
	flag.IntVar(&cfg.MaxHits, "max-hits", 0, "Retained point cap for the incremental engine, 0 for unbounded")
	flag.IntVar(&cfg.BatchSize, "batch", 1, "Primitives per AddBatch call")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename")

	flag.Parse()

	return cfg
}

// key identifies a cluster by its members' start times and channels.
func key(c dbscan.Cluster) string {
	members := make([]string, len(c.Primitives))
	for i, tp := range c.Primitives {
		members[i] = fmt.Sprintf("%d/%d", tp.TimeStart, tp.Channel)
	}
	sort.Strings(members)
	return fmt.Sprint(members)
}

func runComparison(cfg Config) (*ComparisonResult, error) {
	tps, err := tpio.ReadFile(cfg.Input)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tps, func(i, j int) bool { return tps[i].TimeStart < tps[j].TimeStart })

	params := dbscan.Params{Eps: cfg.Eps, MinPts: cfg.MinPts, TimeScale: cfg.TimeScale, MaxHits: cfg.MaxHits}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	batch := cfg.BatchSize
	if batch < 1 {
		batch = 1
	}
	log.Printf("Comparing %d primitives from %s", len(tps), cfg.Input)

	start := time.Now()
	reference := dbscan.ClusterBatch(tps, params)
	refMs := time.Since(start).Milliseconds()

	engine, err := dbscan.NewIncremental(params)
	if err != nil {
		return nil, err
	}
	start = time.Now()
	var streamed []dbscan.Cluster
	rejected := 0
	for i := 0; i < len(tps); i += batch {
		cs, n := engine.AddBatch(tps[i:min(i+batch, len(tps))])
		streamed = append(streamed, cs...)
		rejected += n
	}
	streamed = append(streamed, engine.Flush(math.MaxUint64)...)
	incMs := time.Since(start).Milliseconds()

	result := &ComparisonResult{
		Input:            cfg.Input,
		Primitives:       len(tps),
		Params:           engine.Params(),
		FirstTime:        uint64(engine.FirstTime()),
		BatchSize:        batch,
		Rejected:         rejected,
		Forced:           engine.Forced(),
		ReferenceCount:   len(reference),
		IncrementalCount: len(streamed),
		ReferenceMs:      refMs,
		IncrementalMs:    incMs,
	}

	seen := make(map[string]int)
	for _, c := range reference {
		seen[key(c)]++
	}
	for _, c := range streamed {
		k := key(c)
		if seen[k] > 0 {
			seen[k]--
			result.Matched++
			continue
		}
		result.OnlyIncremental = append(result.OnlyIncremental, k)
	}
	for k, n := range seen {
		for ; n > 0; n-- {
			result.OnlyReference = append(result.OnlyReference, k)
		}
	}
	sort.Strings(result.OnlyReference)
	return result, nil
}

func printResults(result *ComparisonResult) {
	fmt.Println("\n=== DBSCAN Comparison Results ===")
	fmt.Printf("Input: %s\n", result.Input)
	fmt.Printf("Primitives: %d (rejected %d, first at %d)\n", result.Primitives, result.Rejected, result.FirstTime)
	fmt.Printf("Params: eps=%g min_pts=%d time_scale=%g max_hits=%d batch=%d\n",
		result.Params.Eps, result.Params.MinPts, result.Params.TimeScale, result.Params.MaxHits, result.BatchSize)

	fmt.Println("\n--- Clusters ---")
	fmt.Printf("Reference: %d in %d ms\n", result.ReferenceCount, result.ReferenceMs)
	fmt.Printf("Incremental: %d in %d ms (forced %d)\n", result.IncrementalCount, result.IncrementalMs, result.Forced)
	fmt.Printf("Matched: %d\n", result.Matched)
	fmt.Printf("Only in reference: %d\n", len(result.OnlyReference))
	fmt.Printf("Only in incremental: %d\n", len(result.OnlyIncremental))
}

func exportJSON(result *ComparisonResult, path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
