package ring

import (
	"fmt"

	"github.com/arbor-sim/arbortools/sim"
)

// Recipe is a ring of cable cells: cell gid receives the spikes of cell
// gid-1 (cell 0 those of the last cell). One generator drives the ring.
type Recipe struct {
	cfg Config
	rng *sim.PartitionedRNG
}

var _ sim.Recipe = (*Recipe)(nil)

// NewRecipe builds the ring described by cfg.
func NewRecipe(cfg Config) (*Recipe, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Recipe{cfg: cfg, rng: sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))}, nil
}

func (r *Recipe) NumCells() int { return r.cfg.Cells }

func (r *Recipe) CellKind(int) sim.CellKind { return sim.CellKindCable }

func (r *Recipe) CellDescription(gid int) (sim.CellDescription, error) {
	if gid < 0 || gid >= r.cfg.Cells {
		return nil, fmt.Errorf("gid %d out of range [0, %d)", gid, r.cfg.Cells)
	}
	return sim.MakeCableCell(gid, r.cfg.Cell), nil
}

func (r *Recipe) NumSources(int) int { return 1 }
func (r *Recipe) NumTargets(int) int { return 1 }
func (r *Recipe) NumProbes(int) int  { return 1 }

// ConnectionsOn returns the single connection from the previous cell in the ring.
func (r *Recipe) ConnectionsOn(gid int) []sim.Connection {
	src := (gid - 1 + r.cfg.Cells) % r.cfg.Cells
	return []sim.Connection{{
		Source: sim.CellMember{GID: src, Index: 0},
		Dest:   sim.CellMember{GID: gid, Index: 0},
		Weight: r.cfg.Weight,
		Delay:  r.cfg.Delay,
	}}
}

// EventGenerators returns the generator on its target cell. Each call returns
// a new schedule, so simulations built from the same recipe do not share state.
func (r *Recipe) EventGenerators(gid int) []sim.EventGenerator {
	g := r.cfg.Generator
	if gid != g.Target {
		return nil
	}
	sched, err := g.schedule(r.rng.DeriveSeed(sim.SubsystemGenerator(gid, 0)))
	if err != nil {
		// unreachable: the configuration was validated by NewRecipe
		return nil
	}
	return []sim.EventGenerator{{
		Target:   sim.CellMember{GID: gid, Index: 0},
		Weight:   g.Weight,
		Schedule: sched,
	}}
}

func (r *Recipe) String() string {
	return fmt.Sprintf("<ring recipe: %d cells, weight %g, delay %g ms, %s generator on cell %d>",
		r.cfg.Cells, r.cfg.Weight, r.cfg.Delay, r.cfg.Generator.Kind, r.cfg.Generator.Target)
}
