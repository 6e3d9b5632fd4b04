package sim

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidRecipe is wrapped by all errors returned from ValidateRecipe.
	ErrInvalidRecipe = errors.New("invalid recipe")
	// ErrUnsupportedCellKind is returned by engines that cannot simulate a cell kind.
	ErrUnsupportedCellKind = errors.New("unsupported cell kind")
)

// Connection carries spikes from a source on one cell to a target on another,
// scaled by Weight and delivered Delay ms after the spike.
type Connection struct {
	Source CellMember
	Dest   CellMember
	Weight float64
	Delay  float64
}

// EventGenerator injects events of Weight into Target at the times of Schedule.
type EventGenerator struct {
	Target   CellMember
	Weight   float64
	Schedule Schedule
}

// Recipe describes a network model cell by cell. All methods are queried
// per gid in [0, NumCells()).
type Recipe interface {
	NumCells() int
	// CellKind must agree with the Kind of the description returned by CellDescription.
	CellKind(gid int) CellKind
	CellDescription(gid int) (CellDescription, error)
	NumSources(gid int) int
	NumTargets(gid int) int
	NumProbes(gid int) int
	// ConnectionsOn returns the connections terminating on gid.
	ConnectionsOn(gid int) []Connection
	EventGenerators(gid int) []EventGenerator
}

// ValidateRecipe checks the recipe for internal consistency: cell kinds are
// known and agree with descriptions, connection and generator end points exist, delays are
// positive. Returns the first violation found, wrapping ErrInvalidRecipe.
func ValidateRecipe(r Recipe) error {
	n := r.NumCells()
	if n < 0 {
		return fmt.Errorf("%w: negative cell count %d", ErrInvalidRecipe, n)
	}
	for gid := 0; gid < n; gid++ {
		desc, err := r.CellDescription(gid)
		if err != nil {
			return fmt.Errorf("%w: cell %d: %v", ErrInvalidRecipe, gid, err)
		}
		if desc == nil {
			return fmt.Errorf("%w: cell %d: nil description", ErrInvalidRecipe, gid)
		}
		if kind := r.CellKind(gid); !IsValidCellKind(string(kind)) {
			return fmt.Errorf("%w: cell %d: unknown cell kind %q", ErrInvalidRecipe, gid, kind)
		}
		if desc.Kind() != r.CellKind(gid) {
			return fmt.Errorf("%w: cell %d: kind %q does not match description kind %q",
				ErrInvalidRecipe, gid, r.CellKind(gid), desc.Kind())
		}
		for _, c := range r.ConnectionsOn(gid) {
			if err := validateConnection(r, gid, c); err != nil {
				return fmt.Errorf("%w: cell %d: %v", ErrInvalidRecipe, gid, err)
			}
		}
		for i, g := range r.EventGenerators(gid) {
			if g.Target.GID != gid {
				return fmt.Errorf("%w: cell %d: generator %d targets cell %d", ErrInvalidRecipe, gid, i, g.Target.GID)
			}
			if g.Target.Index < 0 || g.Target.Index >= r.NumTargets(gid) {
				return fmt.Errorf("%w: cell %d: generator %d target index %d out of range [0, %d)",
					ErrInvalidRecipe, gid, i, g.Target.Index, r.NumTargets(gid))
			}
			if g.Schedule == nil {
				return fmt.Errorf("%w: cell %d: generator %d has no schedule", ErrInvalidRecipe, gid, i)
			}
		}
	}
	return nil
}

func validateConnection(r Recipe, gid int, c Connection) error {
	if c.Dest.GID != gid {
		return fmt.Errorf("connection %v->%v does not terminate on this cell", c.Source, c.Dest)
	}
	if c.Dest.Index < 0 || c.Dest.Index >= r.NumTargets(gid) {
		return fmt.Errorf("connection target index %d out of range [0, %d)", c.Dest.Index, r.NumTargets(gid))
	}
	if c.Source.GID < 0 || c.Source.GID >= r.NumCells() {
		return fmt.Errorf("connection source cell %d out of range [0, %d)", c.Source.GID, r.NumCells())
	}
	if c.Source.Index < 0 || c.Source.Index >= r.NumSources(c.Source.GID) {
		return fmt.Errorf("connection source index %d out of range [0, %d)", c.Source.Index, r.NumSources(c.Source.GID))
	}
	if !(c.Delay > 0) || math.IsInf(c.Delay, 0) {
		return fmt.Errorf("connection delay must be positive and finite, got %v", c.Delay)
	}
	if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
		return fmt.Errorf("connection weight must be finite, got %v", c.Weight)
	}
	return nil
}

// StaticRecipe is a Recipe held in memory. Every cell has the same number of
// sources, targets and probes.
type StaticRecipe struct {
	Cells       []CellDescription
	Connections map[int][]Connection
	Generators  map[int][]EventGenerator
	Sources     int
	Targets     int
	Probes      int
}

func (r *StaticRecipe) NumCells() int { return len(r.Cells) }

func (r *StaticRecipe) CellKind(gid int) CellKind {
	if gid < 0 || gid >= len(r.Cells) || r.Cells[gid] == nil {
		return ""
	}
	return r.Cells[gid].Kind()
}

func (r *StaticRecipe) CellDescription(gid int) (CellDescription, error) {
	if gid < 0 || gid >= len(r.Cells) {
		return nil, fmt.Errorf("gid %d out of range [0, %d)", gid, len(r.Cells))
	}
	return r.Cells[gid], nil
}

func (r *StaticRecipe) NumSources(int) int { return r.Sources }
func (r *StaticRecipe) NumTargets(int) int { return r.Targets }
func (r *StaticRecipe) NumProbes(int) int  { return r.Probes }

func (r *StaticRecipe) ConnectionsOn(gid int) []Connection { return r.Connections[gid] }

func (r *StaticRecipe) EventGenerators(gid int) []EventGenerator { return r.Generators[gid] }
