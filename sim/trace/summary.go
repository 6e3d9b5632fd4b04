package trace

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates statistics over a Trace.
type Summary struct {
	Count    int
	Start    float64 // time of the first sample
	End      float64 // time of the last sample
	Duration float64 // End - Start
	Min      float64
	Max      float64
	Mean     float64
	StdDev   float64 // sample standard deviation; 0 for fewer than two samples
}

// Summarize computes aggregate statistics over tr.
// Safe for nil or empty traces (returns the zero Summary).
func Summarize(tr Trace) Summary {
	if len(tr) == 0 {
		return Summary{}
	}
	values := tr.Values()
	summary := Summary{
		Count: len(tr),
		Start: tr[0].Time,
		End:   tr[len(tr)-1].Time,
		Min:   floats.Min(values),
		Max:   floats.Max(values),
	}
	summary.Duration = summary.End - summary.Start
	if len(values) < 2 {
		summary.Mean = values[0]
		return summary
	}
	summary.Mean, summary.StdDev = stat.MeanStdDev(values, nil)
	return summary
}

// WriteTable renders the summary as a two-column table.
func (s Summary) WriteTable(w io.Writer, title string) {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Trace", title})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.AppendBulk([][]string{
		{"samples", strconv.Itoa(s.Count)},
		{"start", f(s.Start)},
		{"end", f(s.End)},
		{"duration", f(s.Duration)},
		{"min", f(s.Min)},
		{"max", f(s.Max)},
		{"mean", f(s.Mean)},
		{"stddev", f(s.StdDev)},
	})
	table.Render()
}

// String implements fmt.Stringer.
func (s Summary) String() string {
	return fmt.Sprintf("%d samples over [%g, %g], value range [%g, %g], mean %g",
		s.Count, s.Start, s.End, s.Min, s.Max, s.Mean)
}
