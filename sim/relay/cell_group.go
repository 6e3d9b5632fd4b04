package relay

import (
	"math"

	"github.com/arbor-sim/arbortools/sim"
	"github.com/arbor-sim/arbortools/sim/trace"
)

// cell is the state of one relay cell. Spike sources only use gid and source.
type cell struct {
	gid    int
	kind   sim.CellKind
	params sim.CellParameters
	source sim.Schedule

	v               float64 // potential at lastUpdate
	lastUpdate      float64
	refractoryUntil float64
}

func (c *cell) reset() {
	c.v = 0
	c.lastUpdate = 0
	c.refractoryUntil = math.Inf(-1)
	if c.source != nil {
		c.source.Reset()
	}
}

// potentialAt returns the potential at t >= lastUpdate.
func (c *cell) potentialAt(t float64) float64 {
	if c.params.Tau == 0 || c.v == 0 {
		return c.v
	}
	return c.v * math.Exp(-(t-c.lastUpdate)/c.params.Tau)
}

type generator struct {
	lid      int
	weight   float64
	schedule sim.Schedule
}

type sampler struct {
	lid      int
	probe    sim.CellMember
	interval float64
	k        float64 // index of the next sample; its time is k*interval
	fn       sim.SamplerFunc
	buf      []trace.Sample
}

func (s *sampler) next() float64 { return s.k * s.interval }

// cellGroup advances a set of cells independently of all other groups for
// the duration of one epoch.
type cellGroup struct {
	desc       sim.GroupDescription
	cells      []cell
	generators []generator
	samplers   []*sampler
	queue      *eventHeap
	seq        uint64

	spikes []sim.Spike // emitted during the current epoch
}

func (g *cellGroup) push(e event) {
	g.seq++
	e.seq = g.seq
	g.queue.schedule(e)
}

func (g *cellGroup) reset() {
	for i := range g.cells {
		g.cells[i].reset()
	}
	for _, gen := range g.generators {
		gen.schedule.Reset()
	}
	for _, s := range g.samplers {
		s.k = 0
		s.buf = nil
	}
	g.queue.clear()
	g.seq = 0
	g.spikes = nil
}

// advance processes all events in [t0, t1). Spikes are left in g.spikes and
// samples in the sampler buffers for the caller to collect.
func (g *cellGroup) advance(t0, t1 float64) {
	g.spikes = g.spikes[:0]
	for _, gen := range g.generators {
		for _, t := range gen.schedule.Events(t0, t1) {
			g.push(event{time: t, kind: eventDeliver, lid: gen.lid, weight: gen.weight})
		}
	}
	for lid := range g.cells {
		if src := g.cells[lid].source; src != nil {
			for _, t := range src.Events(t0, t1) {
				g.push(event{time: t, kind: eventFire, lid: lid})
			}
		}
	}

	for {
		e, ok := g.queue.peek()
		if !ok || e.time >= t1 {
			break
		}
		_, _ = g.queue.popNext()
		g.sampleThrough(e.time, true)
		g.apply(e)
	}
	g.sampleThrough(t1, false)
}

// sampleThrough records every pending sample with time before t, or at t
// when inclusive is set.
func (g *cellGroup) sampleThrough(t float64, inclusive bool) {
	for _, s := range g.samplers {
		for {
			ts := s.next()
			if ts > t || (ts == t && !inclusive) {
				break
			}
			s.buf = append(s.buf, trace.Sample{Time: ts, Value: g.cells[s.lid].potentialAt(ts)})
			s.k++
		}
	}
}

func (g *cellGroup) apply(e event) {
	c := &g.cells[e.lid]
	switch e.kind {
	case eventFire:
		g.spikes = append(g.spikes, sim.Spike{Source: sim.CellMember{GID: c.gid}, Time: e.time})
	case eventDeliver:
		if c.source != nil {
			return
		}
		c.v = c.potentialAt(e.time)
		c.lastUpdate = e.time
		if e.time < c.refractoryUntil {
			return
		}
		c.v += e.weight
		if c.v >= c.params.Threshold {
			c.v = 0
			c.refractoryUntil = e.time + c.params.Latency + c.params.Refractory
			g.push(event{time: e.time + c.params.Latency, kind: eventFire, lid: e.lid})
		}
	}
}
