package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arbor-sim/arbortools/sim"
	_ "github.com/arbor-sim/arbortools/sim/relay" // registers the relay engine
	"github.com/arbor-sim/arbortools/sim/ring"
)

// Decomposition output formats.
const (
	decompTable = "table"
	decompYAML  = "yaml"
)

var (
	ringConfigPath     string    // YAML run configuration
	ringCells          int       // Number of cells in the ring
	ringThreads        int       // Worker threads
	ringGPUID          int       // GPU id, negative for none
	ringSeed           int64     // Seed for stochastic generators
	ringTFinal         float64   // Simulation end time (ms)
	ringDT             float64   // Time step (ms)
	ringWeight         float64   // Connection weight
	ringDelay          float64   // Connection delay (ms)
	ringEngine         string    // Registered engine name
	ringTraceDir       string    // Directory for sampled traces
	ringProbes         []int     // Probed gids
	ringSampleInterval float64   // Sampling interval (ms)
	ringDecompFormat   string    // Decomposition output format
	ringGeneratorTimes []float64 // Explicit generator event times
)

// ringCmd runs the ring network
var ringCmd = &cobra.Command{
	Use:   "ring",
	Short: "Simulate a ring network of cells",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := ring.DefaultConfig()
		if ringConfigPath != "" {
			loaded, err := ring.LoadConfig(ringConfigPath)
			if err != nil {
				logrus.Fatalf("Failed to load ring config: %v", err)
			}
			cfg = loaded
		}
		applyRingFlags(cmd, &cfg)
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid ring configuration: %v", err)
		}
		if ringDecompFormat != decompTable && ringDecompFormat != decompYAML {
			logrus.Fatalf("Unknown decomposition format %q (want %s or %s)", ringDecompFormat, decompTable, decompYAML)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := runRing(ctx, cmd.OutOrStdout(), cfg, ringEngine, ringTraceDir, ringDecompFormat); err != nil {
			logrus.Fatalf("Ring simulation failed: %v", err)
		}
	},
}

// applyRingFlags copies explicitly set flags over cfg, so they take
// precedence over the config file and defaults.
func applyRingFlags(cmd *cobra.Command, cfg *ring.Config) {
	flags := cmd.Flags()
	if flags.Changed("cells") {
		cfg.Cells = ringCells
	}
	if flags.Changed("threads") {
		cfg.Threads = ringThreads
	}
	if flags.Changed("gpu-id") {
		if ringGPUID < 0 {
			cfg.GPUID = nil
		} else {
			id := ringGPUID
			cfg.GPUID = &id
		}
	}
	if flags.Changed("seed") {
		cfg.Seed = ringSeed
	}
	if flags.Changed("tfinal") {
		cfg.TFinal = ringTFinal
	}
	if flags.Changed("dt") {
		cfg.DT = ringDT
	}
	if flags.Changed("weight") {
		cfg.Weight = ringWeight
	}
	if flags.Changed("delay") {
		cfg.Delay = ringDelay
	}
	if flags.Changed("probe") {
		cfg.Probes = append([]int(nil), ringProbes...)
	}
	if flags.Changed("sample-interval") {
		cfg.SampleInterval = ringSampleInterval
	}
	if flags.Changed("generator-times") {
		cfg.Generator.Kind = ring.GeneratorExplicit
		cfg.Generator.Times = append([]float64(nil), ringGeneratorTimes...)
	}
}

// runRing simulates cfg on the named engine and writes the run report to w.
func runRing(ctx context.Context, w io.Writer, cfg ring.Config, engineName, traceDir, decompFormat string) error {
	engine, err := sim.LookupEngine(engineName)
	if err != nil {
		return err
	}
	res, err := ring.Run(ctx, cfg, engine)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, res.Context)
	fmt.Fprintln(w, res.Recipe)
	fmt.Fprintln(w, res.Decomposition)
	if decompFormat == decompYAML {
		if err := res.Decomposition.WriteYAML(w); err != nil {
			return err
		}
	} else {
		res.Decomposition.WriteTable(w)
	}
	res.Meters.Report(w)

	fmt.Fprintf(w, "%s spikes from %s cells by t=%g ms:\n",
		humanize.Comma(int64(len(res.Spikes))), humanize.Comma(int64(len(res.SpikeCounts()))), res.Time)
	if err := res.WriteSpikes(w); err != nil {
		return err
	}

	if traceDir == "" {
		return nil
	}
	paths, err := res.WriteTraces(traceDir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		logrus.Infof("Wrote trace %s", p)
	}
	return nil
}

func init() {
	ringCmd.Flags().StringVar(&ringConfigPath, "config", "", "Path to a YAML ring configuration")
	ringCmd.Flags().IntVar(&ringCells, "cells", 100, "Number of cells in the ring")
	ringCmd.Flags().IntVar(&ringThreads, "threads", 4, "Number of worker threads")
	ringCmd.Flags().IntVar(&ringGPUID, "gpu-id", -1, "GPU id to use, negative for none")
	ringCmd.Flags().Int64Var(&ringSeed, "seed", 42, "Seed for stochastic event generators")
	ringCmd.Flags().Float64Var(&ringTFinal, "tfinal", 1000, "Simulation end time (ms)")
	ringCmd.Flags().Float64Var(&ringDT, "dt", 0.025, "Time step (ms)")
	ringCmd.Flags().Float64Var(&ringWeight, "weight", 0.01, "Weight of each ring connection")
	ringCmd.Flags().Float64Var(&ringDelay, "delay", 10, "Delay of each ring connection (ms)")
	ringCmd.Flags().Float64SliceVar(&ringGeneratorTimes, "generator-times", []float64{1}, "Comma-separated event times of the generator on the target cell (ms)")
	ringCmd.Flags().StringVar(&ringEngine, "engine", "relay", "Simulation engine")
	ringCmd.Flags().StringVar(&ringTraceDir, "trace-dir", "", "Directory to write sampled voltage traces to")
	ringCmd.Flags().IntSliceVar(&ringProbes, "probe", nil, "Gid of a cell whose voltage is sampled (can be repeated)")
	ringCmd.Flags().Float64Var(&ringSampleInterval, "sample-interval", 0.1, "Sampling interval (ms)")
	ringCmd.Flags().StringVar(&ringDecompFormat, "decomp-format", decompTable, "Decomposition output format (table, yaml)")

	rootCmd.AddCommand(ringCmd)
}
