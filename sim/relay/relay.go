// Package relay is a deterministic event-relay engine for sim recipes.
//
// Cable and LIF cells are modelled as point cells: each input event adds its
// weight to a potential that decays with time constant Tau, and a cell whose
// potential reaches Threshold fires Latency ms later and then ignores input
// for Refractory ms. Spike source cells fire at the times of their schedule.
// There is no membrane or cable model. Cells of kind benchmark are rejected.
//
// Time advances in epochs as long as the shortest connection delay. Within an
// epoch no spike can reach another cell, so cell groups advance concurrently
// on up to ExecutionContext.Threads goroutines; spikes are exchanged between
// epochs.
package relay

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/arbor-sim/arbortools/sim"
)

// Name is the name the engine is registered under.
const Name = "relay"

func init() {
	sim.RegisterEngine(Name, Engine{})
}

// Engine builds relay simulations.
type Engine struct{}

// target is the end point of a connection, resolved to a group and local index.
type target struct {
	group  int
	lid    int
	weight float64
	delay  float64
}

// location of a gid in the decomposition.
type location struct {
	group int
	lid   int
}

// Simulation is a relay simulation. It is not safe for concurrent use.
type Simulation struct {
	ectx        sim.ExecutionContext
	groups      []*cellGroup
	cells       map[int]location
	numProbes   map[int]int
	connections map[sim.CellMember][]target
	minDelay    float64

	t         float64
	numSpikes int
	callback  sim.SpikeCallback
}

var _ sim.Simulation = (*Simulation)(nil)

// NewSimulation instantiates r on the groups of d.
func (Engine) NewSimulation(r sim.Recipe, d *sim.DomainDecomposition, ectx sim.ExecutionContext) (sim.Simulation, error) {
	return New(r, d, ectx)
}

// New is NewSimulation returning the concrete type.
func New(r sim.Recipe, d *sim.DomainDecomposition, ectx sim.ExecutionContext) (*Simulation, error) {
	if err := ectx.Validate(); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("relay: nil domain decomposition")
	}
	if err := sim.ValidateRecipe(r); err != nil {
		return nil, err
	}
	if d.NumGlobalCells != r.NumCells() {
		return nil, fmt.Errorf("relay: decomposition has %d cells, recipe has %d", d.NumGlobalCells, r.NumCells())
	}

	s := &Simulation{
		ectx:        ectx,
		cells:       make(map[int]location, r.NumCells()),
		numProbes:   make(map[int]int, r.NumCells()),
		connections: make(map[sim.CellMember][]target),
		minDelay:    math.Inf(1),
	}
	for gi, desc := range d.Groups {
		if desc.Backend == sim.BackendGPU {
			logrus.Infof("relay: group %d (%d %s cells) requested the gpu backend, running on cpu", gi, len(desc.GIDs), desc.Kind)
		}
		g := &cellGroup{desc: desc, queue: newEventHeap()}
		for lid, gid := range desc.GIDs {
			if _, dup := s.cells[gid]; dup {
				return nil, fmt.Errorf("relay: cell %d assigned to more than one group", gid)
			}
			c, err := newCell(r, gid)
			if err != nil {
				return nil, err
			}
			g.cells = append(g.cells, c)
			for _, gen := range r.EventGenerators(gid) {
				g.generators = append(g.generators, generator{lid: lid, weight: gen.Weight, schedule: gen.Schedule})
			}
			s.cells[gid] = location{group: gi, lid: lid}
			s.numProbes[gid] = r.NumProbes(gid)
		}
		s.groups = append(s.groups, g)
	}
	if len(s.cells) != r.NumCells() {
		return nil, fmt.Errorf("relay: decomposition covers %d of %d cells", len(s.cells), r.NumCells())
	}

	for _, gid := range slices.Sorted(maps.Keys(s.cells)) {
		loc := s.cells[gid]
		for _, c := range r.ConnectionsOn(gid) {
			s.connections[c.Source] = append(s.connections[c.Source], target{
				group: loc.group, lid: loc.lid, weight: c.Weight, delay: c.Delay,
			})
			s.minDelay = math.Min(s.minDelay, c.Delay)
		}
	}
	s.Reset()
	logrus.Debugf("relay: %d cells in %d groups, min delay %v", len(s.cells), len(s.groups), s.minDelay)
	return s, nil
}

func newCell(r sim.Recipe, gid int) (cell, error) {
	desc, err := r.CellDescription(gid)
	if err != nil {
		return cell{}, fmt.Errorf("relay: cell %d: %w", gid, err)
	}
	c := cell{gid: gid, kind: desc.Kind()}
	switch d := desc.(type) {
	case *sim.CableCell:
		c.params = d.Params
	case *sim.LIFCell:
		c.params = d.Params
	case *sim.SpikeSourceCell:
		if d.Schedule == nil {
			return cell{}, fmt.Errorf("relay: spike source %d has no schedule", gid)
		}
		c.source = d.Schedule
		return c, nil
	default:
		return cell{}, fmt.Errorf("relay: cell %d: %w %q", gid, sim.ErrUnsupportedCellKind, desc.Kind())
	}
	if err := c.params.Validate(); err != nil {
		return cell{}, fmt.Errorf("relay: cell %d: %w", gid, err)
	}
	return c, nil
}

// Run advances the simulation to tfinal. dt must be positive and no longer
// than the shortest connection delay; event times are exact and do not snap
// to multiples of dt.
func (s *Simulation) Run(ctx context.Context, tfinal, dt float64) (float64, error) {
	if !(dt > 0) {
		return s.t, fmt.Errorf("relay: dt must be positive, got %v", dt)
	}
	if math.IsNaN(tfinal) || math.IsInf(tfinal, 0) {
		return s.t, fmt.Errorf("relay: tfinal must be finite, got %v", tfinal)
	}
	if s.minDelay < dt {
		return s.t, fmt.Errorf("relay: minimum connection delay %v is below dt %v", s.minDelay, dt)
	}
	for s.t < tfinal {
		if err := ctx.Err(); err != nil {
			return s.t, err
		}
		t1 := math.Min(s.t+s.minDelay, tfinal)
		if !(t1 > s.t) {
			return s.t, fmt.Errorf("relay: time does not advance past %v with minimum delay %v", s.t, s.minDelay)
		}
		if err := s.epoch(s.t, t1); err != nil {
			return s.t, err
		}
		s.t = t1
	}
	return s.t, nil
}

// epoch advances all groups over [t0, t1) and exchanges the spikes. An epoch
// always runs to completion; cancellation is only observed between epochs.
func (s *Simulation) epoch(t0, t1 float64) error {
	var eg errgroup.Group
	eg.SetLimit(s.ectx.Threads)
	for _, g := range s.groups {
		eg.Go(func() error {
			g.advance(t0, t1)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	var spikes []sim.Spike
	for _, g := range s.groups {
		spikes = append(spikes, g.spikes...)
		for _, smp := range g.samplers {
			if len(smp.buf) > 0 {
				smp.fn(smp.probe, smp.buf)
				smp.buf = nil
			}
		}
	}
	sim.SortSpikes(spikes)
	s.numSpikes += len(spikes)
	if s.callback != nil && len(spikes) > 0 {
		s.callback(spikes)
	}

	for _, spike := range spikes {
		for _, tg := range s.connections[spike.Source] {
			s.groups[tg.group].push(event{
				time:   spike.Time + tg.delay,
				kind:   eventDeliver,
				lid:    tg.lid,
				weight: tg.weight,
			})
		}
	}
	logrus.Debugf("relay: epoch [%g, %g) produced %d spikes", t0, t1, len(spikes))
	return nil
}

// Reset restores the state at time zero. Callbacks and samplers stay attached.
func (s *Simulation) Reset() {
	for _, g := range s.groups {
		g.reset()
	}
	s.t = 0
	s.numSpikes = 0
}

// SetGlobalSpikeCallback replaces the callback receiving all spikes.
func (s *Simulation) SetGlobalSpikeCallback(fn sim.SpikeCallback) {
	s.callback = fn
}

// AddSampler samples the potential of probe.GID every interval ms, starting
// at the first multiple of interval not before the current time.
func (s *Simulation) AddSampler(probe sim.CellMember, interval float64, fn sim.SamplerFunc) error {
	if !(interval > 0) || math.IsInf(interval, 0) {
		return fmt.Errorf("relay: sample interval must be positive and finite, got %v", interval)
	}
	if fn == nil {
		return fmt.Errorf("relay: nil sampler")
	}
	loc, ok := s.cells[probe.GID]
	if !ok {
		return fmt.Errorf("relay: probe %v: no such cell", probe)
	}
	if probe.Index < 0 || probe.Index >= s.numProbes[probe.GID] {
		return fmt.Errorf("relay: probe %v: index out of range [0, %d)", probe, s.numProbes[probe.GID])
	}
	g := s.groups[loc.group]
	g.samplers = append(g.samplers, &sampler{
		lid:      loc.lid,
		probe:    probe,
		interval: interval,
		k:        math.Ceil(s.t / interval),
		fn:       fn,
	})
	return nil
}

// NumSpikes is the number of spikes generated since construction or Reset.
func (s *Simulation) NumSpikes() int {
	return s.numSpikes
}

// Time is the time the simulation has reached.
func (s *Simulation) Time() float64 {
	return s.t
}
