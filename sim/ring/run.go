// Package ring builds and runs a ring network of cable cells: each cell
// excites the next after a fixed delay, so one input event travels around
// the ring for as long as the simulation runs.
package ring

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/arbor-sim/arbortools/sim"
	"github.com/arbor-sim/arbortools/sim/trace"
)

// Meter checkpoint names, in the order Run records them.
const (
	MeterRecipeCreate   = "recipe-create"
	MeterLoadBalance    = "load-balance"
	MeterSimulationInit = "simulation-init"
	MeterSimulationRun  = "simulation-run"
)

// Result is everything a ring run produced.
type Result struct {
	Context       sim.ExecutionContext
	Recipe        *Recipe
	Decomposition *sim.DomainDecomposition
	Spikes        []sim.Spike
	Traces        map[int]trace.Trace // membrane voltage per probed gid
	Meters        *sim.MeterManager
	Time          float64 // simulation time reached
}

// Run builds the ring described by cfg, decomposes it, simulates it on engine
// until cfg.TFinal and collects spikes and probe traces.
func Run(ctx context.Context, cfg Config, engine sim.Engine) (*Result, error) {
	meters := sim.NewMeterManager()
	meters.Start()

	ectx, err := sim.NewExecutionContext(cfg.Threads, cfg.GPUID)
	if err != nil {
		return nil, err
	}
	logrus.Infof("%s", ectx)

	recipe, err := NewRecipe(cfg)
	if err != nil {
		return nil, fmt.Errorf("building ring recipe: %w", err)
	}
	logrus.Debugf("%s", recipe)
	if err := meters.Checkpoint(MeterRecipeCreate); err != nil {
		return nil, err
	}

	hints := map[sim.CellKind]sim.PartitionHint{sim.CellKindCable: cfg.Partition}
	decomp, err := sim.PartitionLoadBalance(recipe, ectx, hints)
	if err != nil {
		return nil, fmt.Errorf("load balancing: %w", err)
	}
	logrus.Infof("%s", decomp)
	if err := meters.Checkpoint(MeterLoadBalance); err != nil {
		return nil, err
	}

	s, err := engine.NewSimulation(recipe, decomp, ectx)
	if err != nil {
		return nil, fmt.Errorf("creating simulation: %w", err)
	}
	spikes := sim.AttachSpikeRecorder(s)
	traces := sim.NewTraceRecorder()
	for _, gid := range cfg.Probes {
		if err := s.AddSampler(sim.CellMember{GID: gid, Index: 0}, cfg.SampleInterval, traces.Sampler()); err != nil {
			return nil, fmt.Errorf("adding sampler on cell %d: %w", gid, err)
		}
	}
	if err := meters.Checkpoint(MeterSimulationInit); err != nil {
		return nil, err
	}

	reached, err := s.Run(ctx, cfg.TFinal, cfg.DT)
	if err != nil {
		return nil, fmt.Errorf("running simulation (reached t=%g ms): %w", reached, err)
	}
	if err := meters.Checkpoint(MeterSimulationRun); err != nil {
		return nil, err
	}

	res := &Result{
		Context:       ectx,
		Recipe:        recipe,
		Decomposition: decomp,
		Spikes:        spikes.Spikes(),
		Traces:        make(map[int]trace.Trace, len(cfg.Probes)),
		Meters:        meters,
		Time:          reached,
	}
	for _, gid := range cfg.Probes {
		res.Traces[gid] = traces.Trace(sim.CellMember{GID: gid, Index: 0})
	}
	logrus.Infof("ring: %d spikes by t=%g ms", len(res.Spikes), reached)
	return res, nil
}

// TraceFileName is the file WriteTraces uses for the voltage trace of gid.
func TraceFileName(gid int) string {
	return fmt.Sprintf("trace_%d.0_vsoma.csv", gid)
}

// WriteTraces writes each probe trace into dir as CSV and returns the file
// paths in increasing gid order. dir is created if needed.
func (r *Result) WriteTraces(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}
	gids := make([]int, 0, len(r.Traces))
	for gid := range r.Traces {
		gids = append(gids, gid)
	}
	sort.Ints(gids)

	paths := make([]string, 0, len(gids))
	for _, gid := range gids {
		path := filepath.Join(dir, TraceFileName(gid))
		if err := trace.WriteTraceFile(path, r.Traces[gid]); err != nil {
			return paths, err
		}
		logrus.Debugf("wrote %d samples to %s", len(r.Traces[gid]), path)
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteSpikes writes one line per spike in delivery order.
func (r *Result) WriteSpikes(w io.Writer) error {
	for _, sp := range r.Spikes {
		if _, err := fmt.Fprintf(w, "<spike: source %s, time %g ms>\n", sp.Source, sp.Time); err != nil {
			return err
		}
	}
	return nil
}

// SpikeCounts returns the number of spikes emitted by each gid.
func (r *Result) SpikeCounts() map[int]int {
	counts := make(map[int]int)
	for _, sp := range r.Spikes {
		counts[sp.Source.GID]++
	}
	return counts
}
