package sim

import (
	"fmt"
	"math"
)

// CellKind identifies the model a cell is simulated with.
type CellKind string

const (
	CellKindCable       CellKind = "cable"
	CellKindLIF         CellKind = "lif"
	CellKindSpikeSource CellKind = "spike_source"
	CellKindBenchmark   CellKind = "benchmark"
)

// validCellKinds maps accepted cell kind strings.
var validCellKinds = map[CellKind]bool{
	CellKindCable:       true,
	CellKindLIF:         true,
	CellKindSpikeSource: true,
	CellKindBenchmark:   true,
}

// IsValidCellKind returns true if the given string is a recognized cell kind.
func IsValidCellKind(kind string) bool {
	return validCellKinds[CellKind(kind)]
}

// SupportsGPU reports whether cells of this kind can be placed in a GPU group.
func (k CellKind) SupportsGPU() bool {
	return k == CellKindCable
}

// CellMember addresses a source, target or probe on a cell.
type CellMember struct {
	GID   int
	Index int
}

func (m CellMember) String() string {
	return fmt.Sprintf("(%d, %d)", m.GID, m.Index)
}

// CellParameters configures a point cell that integrates weighted input
// events into a potential and spikes when the potential reaches Threshold.
type CellParameters struct {
	Threshold  float64 `yaml:"threshold"`  // potential at which the cell fires
	Latency    float64 `yaml:"latency"`    // ms between threshold crossing and spike
	Refractory float64 `yaml:"refractory"` // ms after a spike during which input is ignored
	Tau        float64 `yaml:"tau"`        // ms decay constant of the potential; 0 disables decay
}

// DefaultCellParameters returns parameters under which a single connection of
// weight 0.01 is enough to make a cell fire.
func DefaultCellParameters() CellParameters {
	return CellParameters{
		Threshold:  0.01,
		Latency:    0,
		Refractory: 2,
		Tau:        10,
	}
}

// Validate checks parameter ranges.
func (p CellParameters) Validate() error {
	if !(p.Threshold > 0) || math.IsInf(p.Threshold, 0) {
		return fmt.Errorf("threshold must be positive and finite, got %v", p.Threshold)
	}
	if p.Latency < 0 || math.IsNaN(p.Latency) {
		return fmt.Errorf("latency must be non-negative, got %v", p.Latency)
	}
	if p.Refractory < 0 || math.IsNaN(p.Refractory) {
		return fmt.Errorf("refractory period must be non-negative, got %v", p.Refractory)
	}
	if p.Tau < 0 || math.IsNaN(p.Tau) {
		return fmt.Errorf("tau must be non-negative, got %v", p.Tau)
	}
	return nil
}

// CellDescription is the engine-facing description of one cell.
type CellDescription interface {
	Kind() CellKind
}

// CableCell is a cell simulated with the cable model by engines that have one.
type CableCell struct {
	GID    int
	Params CellParameters
}

// MakeCableCell builds the description of cable cell gid.
func MakeCableCell(gid int, params CellParameters) *CableCell {
	return &CableCell{GID: gid, Params: params}
}

func (*CableCell) Kind() CellKind { return CellKindCable }

// LIFCell is a leaky integrate-and-fire cell.
type LIFCell struct {
	Params CellParameters
}

func (*LIFCell) Kind() CellKind { return CellKindLIF }

// SpikeSourceCell emits spikes at the times of its schedule and has no inputs.
type SpikeSourceCell struct {
	Schedule Schedule
}

func (*SpikeSourceCell) Kind() CellKind { return CellKindSpikeSource }

// BenchmarkCell models a cell with a fixed cost per spike. Engines without a
// cost model reject it.
type BenchmarkCell struct {
	Schedule      Schedule
	RealtimeRatio float64
}

func (*BenchmarkCell) Kind() CellKind { return CellKindBenchmark }
