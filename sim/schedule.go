package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"
)

// Schedule produces event times. Events returns the times in the half-open
// window [t0, t1) in increasing order. Successive calls must use contiguous,
// non-overlapping windows; Reset rewinds the schedule to time zero.
type Schedule interface {
	Events(t0, t1 float64) []float64
	Reset()
}

// ExplicitSchedule fires at a fixed list of times.
type ExplicitSchedule struct {
	times []float64
}

// NewExplicitSchedule returns a schedule firing at the given times. The
// times are copied and sorted.
func NewExplicitSchedule(times ...float64) *ExplicitSchedule {
	sorted := slices.Clone(times)
	slices.Sort(sorted)
	return &ExplicitSchedule{times: sorted}
}

func (s *ExplicitSchedule) Events(t0, t1 float64) []float64 {
	lo, _ := slices.BinarySearch(s.times, t0)
	hi, _ := slices.BinarySearch(s.times, t1)
	if lo >= hi {
		return nil
	}
	return slices.Clone(s.times[lo:hi])
}

func (s *ExplicitSchedule) Reset() {}

// RegularSchedule fires every Dt ms from TStart until, but not including, TStop.
type RegularSchedule struct {
	TStart, Dt, TStop float64
}

// NewRegularSchedule returns a regular schedule. A non-positive dt is rejected.
// Use math.Inf(1) for a schedule that never stops.
func NewRegularSchedule(tstart, dt, tstop float64) (*RegularSchedule, error) {
	if !(dt > 0) {
		return nil, fmt.Errorf("regular schedule dt must be positive, got %v", dt)
	}
	return &RegularSchedule{TStart: tstart, Dt: dt, TStop: tstop}, nil
}

func (s *RegularSchedule) Events(t0, t1 float64) []float64 {
	t0 = math.Max(t0, s.TStart)
	t1 = math.Min(t1, s.TStop)
	if t0 >= t1 {
		return nil
	}
	var times []float64
	// Times are computed from the index, not accumulated, to avoid drift.
	for i := math.Ceil((t0 - s.TStart) / s.Dt); ; i++ {
		t := s.TStart + i*s.Dt
		if t < t0 {
			continue
		}
		if t >= t1 {
			break
		}
		times = append(times, t)
	}
	return times
}

func (s *RegularSchedule) Reset() {}

// PoissonSchedule fires at exponentially distributed intervals with rate
// Freq events per ms (kHz), starting after TStart. The sequence is fully
// determined by Seed.
type PoissonSchedule struct {
	TStart float64
	Freq   float64
	Seed   uint64

	dist distuv.Exponential
	next float64
}

// NewPoissonSchedule returns a Poisson schedule. freq must be positive.
func NewPoissonSchedule(tstart, freq float64, seed uint64) (*PoissonSchedule, error) {
	if !(freq > 0) || math.IsInf(freq, 0) {
		return nil, fmt.Errorf("poisson schedule frequency must be positive and finite, got %v", freq)
	}
	s := &PoissonSchedule{TStart: tstart, Freq: freq, Seed: seed}
	s.Reset()
	return s, nil
}

func (s *PoissonSchedule) Events(t0, t1 float64) []float64 {
	var times []float64
	for s.next < t1 {
		if s.next >= t0 {
			times = append(times, s.next)
		}
		s.next += s.dist.Rand()
	}
	return times
}

func (s *PoissonSchedule) Reset() {
	s.dist = distuv.Exponential{Rate: s.Freq, Src: rand.NewPCG(s.Seed, 0)}
	s.next = s.TStart + s.dist.Rand()
}
