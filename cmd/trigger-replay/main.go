// Package main replays a trigger primitive dump through a TA -> TC
// pipeline and writes the activities and candidates as JSON lines.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/triggeralgs/internal/config"
	"github.com/banshee-data/triggeralgs/internal/monitoring"
	"github.com/banshee-data/triggeralgs/internal/trigger"
	"github.com/banshee-data/triggeralgs/internal/trigger/pipeline"
	"github.com/banshee-data/triggeralgs/internal/trigger/report"
	"github.com/banshee-data/triggeralgs/internal/trigger/telemetry"
	"github.com/banshee-data/triggeralgs/internal/trigger/tpio"
	"github.com/banshee-data/triggeralgs/internal/version"
)

// Config holds the command line options.
type Config struct {
	Input      string
	ConfigFile string
	Activity   string
	Candidate  string
	Partitions int
	Output     string
	PlotFile   string
	HTMLFile   string
	StatsFile  string
	Verbose    bool
	Trace      bool
	Version    bool
}

func main() {
	cfg := parseFlags()
	if cfg.Version {
		fmt.Println("trigger-replay", version.String())
		return
	}
	if cfg.Input == "" {
		log.Fatal("input file is required (-input)")
	}
	if _, err := os.Stat(cfg.Input); os.IsNotExist(err) {
		log.Fatalf("input file not found: %s", cfg.Input)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Replay failed: %v", err)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.Input, "input", "", "Path to the TP dump (time_start tot time_peak channel adc_integral adc_peak detid type)")
	flag.StringVar(&cfg.ConfigFile, "config", "", "Pipeline config file (.json, .yaml or .yml)")
	flag.StringVar(&cfg.Activity, "activity", "", "Activity maker name (overrides config)")
	flag.StringVar(&cfg.Candidate, "candidate", "", "Candidate maker name (overrides config)")
	flag.IntVar(&cfg.Partitions, "partitions", 0, "Number of parallel partitions (overrides config)")
	flag.StringVar(&cfg.Output, "output", "-", "JSON lines output file, - for stdout")
	flag.StringVar(&cfg.PlotFile, "plot", "", "Write a PNG event display to this path")
	flag.StringVar(&cfg.HTMLFile, "html", "", "Write an interactive HTML event display to this path")
	flag.StringVar(&cfg.StatsFile, "stats", "", "Write the telemetry summary as JSON to this path")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Log emitted objects and telemetry")
	flag.BoolVar(&cfg.Trace, "trace", false, "Log per-primitive detail")
	flag.BoolVar(&cfg.Version, "version", false, "Print the version and exit")

	flag.Parse()

	return cfg
}

func loadConfig(cfg Config) (*config.PipelineConfig, error) {
	pc := config.DefaultPipelineConfig()
	if cfg.ConfigFile != "" {
		loaded, err := config.LoadPipelineConfig(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		pc = loaded
	}
	if cfg.Activity != "" {
		pc.Activity = config.AlgorithmConfig{Name: cfg.Activity}
	}
	if cfg.Candidate != "" {
		pc.Candidate = config.AlgorithmConfig{Name: cfg.Candidate}
	}
	if cfg.Partitions > 0 {
		pc.Partitions = &cfg.Partitions
	}
	return pc, nil
}

func setupLogging(cfg Config) {
	w := trigger.LogWriters{Ops: monitoring.Writer("")}
	if cfg.Verbose {
		w.Diag = monitoring.Writer("")
	}
	if cfg.Trace {
		w.Trace = monitoring.Writer("")
	}
	trigger.SetLogWriters(w)
}

// displaySink records everything written for the event display.
type displaySink struct {
	next    pipeline.Sink
	display *report.Display
}

func (s displaySink) Write(rec tpio.Record) error {
	if rec.Activity != nil {
		s.display.AddActivities(*rec.Activity)
	}
	if rec.Candidate != nil {
		s.display.AddCandidates(*rec.Candidate)
	}
	return s.next.Write(rec)
}

// displaySource records every primitive read.
type displaySource struct {
	next    pipeline.Source
	display *report.Display
}

func (s displaySource) Next() (trigger.Primitive, error) {
	tp, err := s.next.Next()
	if err == nil {
		s.display.AddPrimitives(tp)
	}
	return tp, err
}

func run(ctx context.Context, cfg Config) error {
	setupLogging(cfg)
	log.Printf("trigger-replay %s", version.String())

	pc, err := loadConfig(cfg)
	if err != nil {
		return err
	}
	regs, err := pipeline.NewRegistries()
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if cfg.Output != "-" {
		f, err := os.Create(filepath.Clean(cfg.Output))
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	writer := tpio.NewWriter(out)

	in, err := os.Open(filepath.Clean(cfg.Input))
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	var sink pipeline.Sink = writer
	var src pipeline.Source = tpio.NewReader(in)
	var display *report.Display
	if cfg.PlotFile != "" || cfg.HTMLFile != "" {
		display = report.New(fmt.Sprintf("%s: %s -> %s", filepath.Base(cfg.Input), pc.Activity.Name, pc.Candidate.Name))
		sink = displaySink{next: sink, display: display}
		src = displaySource{next: src, display: display}
	}

	collector := telemetry.NewCollector()
	var tsink telemetry.Sink = collector
	if cfg.Verbose {
		tsink = telemetry.Tee(collector, telemetry.LogSink{})
	}

	runner, err := pipeline.NewRunner(pc, regs, sink, tsink)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := runner.Run(ctx, src); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	log.Printf("Run %s: wrote %d records in %.2fs", runner.RunID, writer.Count(), time.Since(start).Seconds())

	summaries := make(map[string]telemetry.Summary)
	for i, p := range runner.Pipelines() {
		for stage, c := range map[string]*telemetry.Counters{"activity": p.Activity, "candidate": p.Candidate} {
			name := fmt.Sprintf("p%d/%s", i, stage)
			snaps := append(collector.Snapshots(name), c.Snapshot())
			summaries[name] = telemetry.Summarize(snaps)
			log.Printf("%s: %s", name, summaries[name])
		}
	}
	if cfg.StatsFile != "" {
		if err := exportJSON(summaries, cfg.StatsFile); err != nil {
			log.Printf("Warning: failed to export stats: %v", err)
		}
	}

	if display != nil {
		if cfg.PlotFile != "" {
			if err := display.SavePNG(cfg.PlotFile); err != nil {
				return err
			}
			log.Printf("Event display written to: %s", cfg.PlotFile)
		}
		if cfg.HTMLFile != "" {
			if err := display.SaveHTML(cfg.HTMLFile); err != nil {
				return err
			}
			log.Printf("Event display written to: %s", cfg.HTMLFile)
		}
	}
	return nil
}

func exportJSON(v any, path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
