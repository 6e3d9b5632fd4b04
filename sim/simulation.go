package sim

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/arbor-sim/arbortools/sim/trace"
)

// Spike is the firing of a source at a point in time.
type Spike struct {
	Source CellMember
	Time   float64
}

// SortSpikes orders spikes by time, then by source gid and index.
func SortSpikes(spikes []Spike) {
	slices.SortFunc(spikes, func(a, b Spike) int {
		return cmp.Or(
			cmp.Compare(a.Time, b.Time),
			cmp.Compare(a.Source.GID, b.Source.GID),
			cmp.Compare(a.Source.Index, b.Source.Index),
		)
	})
}

// SpikeCallback receives the spikes of one integration epoch, sorted with SortSpikes.
type SpikeCallback func(spikes []Spike)

// SamplerFunc receives the samples taken from probe during one integration epoch.
type SamplerFunc func(probe CellMember, samples []trace.Sample)

// Simulation is a network instantiated by an Engine.
type Simulation interface {
	// Run advances the simulation to tfinal using time step dt and returns the
	// time reached. It returns early with ctx.Err() if ctx is done.
	Run(ctx context.Context, tfinal, dt float64) (float64, error)
	// Reset restores the state at time zero. Callbacks and samplers stay attached.
	Reset()
	// SetGlobalSpikeCallback replaces the callback receiving all spikes.
	SetGlobalSpikeCallback(fn SpikeCallback)
	// AddSampler samples probe every interval ms.
	AddSampler(probe CellMember, interval float64, fn SamplerFunc) error
	// NumSpikes is the number of spikes generated since construction or Reset.
	NumSpikes() int
}

// Engine builds simulations.
type Engine interface {
	NewSimulation(r Recipe, d *DomainDecomposition, ectx ExecutionContext) (Simulation, error)
}

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]Engine)
)

// RegisterEngine makes e available under name. It panics if name is taken.
func RegisterEngine(name string, e Engine) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	if _, exists := engines[name]; exists {
		panic(fmt.Sprintf("sim: engine %q registered twice", name))
	}
	engines[name] = e
}

// LookupEngine returns the engine registered under name.
func LookupEngine(name string) (Engine, error) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	e, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (registered: %v)", name, engineNamesLocked())
	}
	return e, nil
}

// EngineNames returns the registered engine names in sorted order.
func EngineNames() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	return engineNamesLocked()
}

func engineNamesLocked() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SpikeRecorder collects every spike of a simulation.
type SpikeRecorder struct {
	mu     sync.Mutex
	spikes []Spike
}

// AttachSpikeRecorder installs a recorder as the global spike callback of s.
func AttachSpikeRecorder(s Simulation) *SpikeRecorder {
	rec := &SpikeRecorder{}
	s.SetGlobalSpikeCallback(rec.record)
	return rec
}

func (r *SpikeRecorder) record(spikes []Spike) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spikes = append(r.spikes, spikes...)
}

// Spikes returns a copy of the recorded spikes in the order they were delivered.
func (r *SpikeRecorder) Spikes() []Spike {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.spikes)
}

// Clear drops all recorded spikes.
func (r *SpikeRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spikes = nil
}

// TraceRecorder accumulates the samples of each probe into a trace.
type TraceRecorder struct {
	mu     sync.Mutex
	traces map[CellMember]trace.Trace
}

// NewTraceRecorder returns an empty TraceRecorder.
func NewTraceRecorder() *TraceRecorder {
	return &TraceRecorder{traces: make(map[CellMember]trace.Trace)}
}

// Sampler returns a SamplerFunc that appends into the recorder.
func (r *TraceRecorder) Sampler() SamplerFunc {
	return func(probe CellMember, samples []trace.Sample) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.traces[probe] = append(r.traces[probe], samples...)
	}
}

// Trace returns a copy of the samples recorded for probe.
func (r *TraceRecorder) Trace(probe CellMember) trace.Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.traces[probe])
}
