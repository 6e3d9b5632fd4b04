// Package trace reads and writes sampled time series ("traces") such as
// membrane voltage recordings. A trace file holds one "time,value" record
// per line; lines that do not have that shape are skipped.
// It has no dependencies on sim/.
package trace

// Sample is a single (time, value) pair.
type Sample struct {
	Time  float64
	Value float64
}

// Trace is an ordered sequence of samples. Order is the order in which the
// samples were read or recorded; times are not required to be monotonic.
type Trace []Sample

// Times returns the time column of the trace.
func (tr Trace) Times() []float64 {
	times := make([]float64, len(tr))
	for i, s := range tr {
		times[i] = s.Time
	}
	return times
}

// Values returns the value column of the trace. It always has the same
// length as Times.
func (tr Trace) Values() []float64 {
	values := make([]float64, len(tr))
	for i, s := range tr {
		values[i] = s.Value
	}
	return values
}

// Renderer consumes the two equal-length columns of a trace, e.g. to plot them.
type Renderer func(times, values []float64) error

// Render passes the trace columns to r.
func (tr Trace) Render(r Renderer) error {
	return r(tr.Times(), tr.Values())
}
