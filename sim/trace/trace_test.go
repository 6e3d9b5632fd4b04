package trace

import (
	"errors"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-sim/arbortools/sim/internal/testutil"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Sample
		ok   bool
	}{
		{"valid", "0.025,-65.0", Sample{0.025, -65.0}, true},
		{"surrounding whitespace", "  1.5 ,\t2.5 \r", Sample{1.5, 2.5}, true},
		{"exponent notation", "1e-3,-7E2", Sample{0.001, -700}, true},
		{"extra fields ignored", "1,2,3,4", Sample{1, 2}, true},
		{"comment", "# comment", Sample{}, false},
		{"single field", "1.0", Sample{}, false},
		{"non-numeric fields", "abc,def", Sample{}, false},
		{"non-numeric time", "abc,1", Sample{}, false},
		{"non-numeric value", "1,abc", Sample{}, false},
		{"empty value", "1,", Sample{}, false},
		{"empty line", "", Sample{}, false},
		{"header row", "time,voltage", Sample{}, false},
		{"hexadecimal time", "0x1p-2,3", Sample{}, false},
		{"signed hexadecimal value", "1,-0X10", Sample{}, false},
		{"overflow becomes infinity", "1e400,-1e400", Sample{math.Inf(1), math.Inf(-1)}, true},
		{"underflow becomes zero", "1e-400,2", Sample{0, 2}, true},
		{"infinity literal", "inf,-Infinity", Sample{math.Inf(1), math.Inf(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadTrace_WellFormedLines_ReturnsAllSamplesInOrder(t *testing.T) {
	// GIVEN a file containing only well-formed time,value lines
	path := testutil.WriteFixture(t, "trace.csv", testutil.Lines(
		"0.0,-65.0",
		"0.025,-64.9",
		"0.05,-64.7",
		"0.075,-64.2",
	))

	// WHEN the trace is read
	tr, err := ReadTrace(path)

	// THEN there is one sample per line, in file order
	require.NoError(t, err)
	assert.Equal(t, Trace{{0.0, -65.0}, {0.025, -64.9}, {0.05, -64.7}, {0.075, -64.2}}, tr)
}

func TestReadTrace_MixedLines_SkipsMalformedAndKeepsOrder(t *testing.T) {
	// GIVEN a file where valid lines are interleaved with malformed ones
	path := testutil.WriteFixture(t, "trace.csv", testutil.Lines(
		"time,voltage",
		"0.0,-65.0",
		"",
		"# comment",
		"0.1,-64.8",
		"1.0",
		"abc,def",
		"0.2,-64.5",
	))

	// WHEN the trace is read
	tr, err := ReadTrace(path)

	// THEN only the valid lines appear, in their relative order, with no error
	require.NoError(t, err)
	assert.Equal(t, Trace{{0.0, -65.0}, {0.1, -64.8}, {0.2, -64.5}}, tr)
}

func TestReadTrace_GarbageLineScenario(t *testing.T) {
	path := testutil.WriteFixture(t, "trace.csv", "0.0,-65.0\n0.1,-64.8\ngarbage line\n0.2,-64.5\n")

	tr, err := ReadTrace(path)

	require.NoError(t, err)
	require.Len(t, tr, 3)
	assert.Equal(t, Trace{{0.0, -65.0}, {0.1, -64.8}, {0.2, -64.5}}, tr)
}

func TestReadTrace_ExtraFields_AreIgnored(t *testing.T) {
	path := testutil.WriteFixture(t, "trace.csv", "1,2,3,4")

	tr, err := ReadTrace(path)

	require.NoError(t, err)
	assert.Equal(t, Trace{{1.0, 2.0}}, tr)
}

func TestReadTrace_EmptyFile_ReturnsEmptyTrace(t *testing.T) {
	// GIVEN an empty file
	path := testutil.WriteFixture(t, "empty.csv", "")

	// WHEN the trace is read
	tr, err := ReadTrace(path)

	// THEN the result is an empty trace, not an error
	require.NoError(t, err)
	assert.NotNil(t, tr)
	assert.Empty(t, tr)
}

func TestReadTrace_OnlyMalformedLines_ReturnsEmptyTrace(t *testing.T) {
	path := testutil.WriteFixture(t, "junk.csv", testutil.Lines("junk", "more,junk", ";;;"))

	tr, err := ReadTrace(path)

	require.NoError(t, err)
	assert.Empty(t, tr)
}

func TestReadTrace_NonexistentPath_ReturnsNotExistError(t *testing.T) {
	// GIVEN a path that does not exist
	path := filepath.Join(t.TempDir(), "missing.csv")

	// WHEN the trace is read
	tr, err := ReadTrace(path)

	// THEN the open failure propagates as a resource error
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "expected fs.ErrNotExist, got %v", err)
	assert.Nil(t, tr)
}

func TestReadTrace_Directory_ReturnsReadError(t *testing.T) {
	// A directory opens fine on Linux but cannot be read as a file.
	_, err := ReadTrace(t.TempDir())

	assert.Error(t, err)
}

func TestReadTrace_SameFileTwice_ReturnsEqualTraces(t *testing.T) {
	path := testutil.WriteFixture(t, "trace.csv", testutil.Lines("0.0,-65.0", "bad", "0.1,-64.8"))

	first, err := ReadTrace(path)
	require.NoError(t, err)
	second, err := ReadTrace(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// Each call owns its result.
	first[0].Value = 0
	assert.Equal(t, -65.0, second[0].Value)
}

func TestReadTrace_NoTrailingNewline_ReadsLastLine(t *testing.T) {
	path := testutil.WriteFixture(t, "trace.csv", "0.0,-65.0\r\n0.1,-64.8")

	tr, err := ReadTrace(path)

	require.NoError(t, err)
	assert.Equal(t, Trace{{0.0, -65.0}, {0.1, -64.8}}, tr)
}

func TestReadTrace_CROnlyLineEndings(t *testing.T) {
	// GIVEN a file whose lines end in a bare carriage return
	path := testutil.WriteFixture(t, "trace.csv", "0.0,-65.0\r0.1,-64.8\r0.2,-64.5\r")

	// WHEN read
	tr, err := ReadTrace(path)

	// THEN every line is a record
	require.NoError(t, err)
	assert.Equal(t, Trace{{0.0, -65.0}, {0.1, -64.8}, {0.2, -64.5}}, tr)
}

func TestScan_MixedLineEndings(t *testing.T) {
	// GIVEN LF, CRLF and CR terminators, an empty CR line and no final terminator
	input := "0,1\n2,3\r\n4,5\r\r6,7"

	// WHEN scanned
	tr, stats, err := Scan(strings.NewReader(input))

	// THEN CRLF counts as one terminator and each CR or LF ends a line
	require.NoError(t, err)
	assert.Equal(t, Trace{{0, 1}, {2, 3}, {4, 5}, {6, 7}}, tr)
	assert.Equal(t, ScanStats{Lines: 5, Skipped: 1}, stats)
}

func TestReadTrace_VeryLongLine_IsParsed(t *testing.T) {
	// GIVEN a valid line whose ignored trailing field exceeds bufio.Scanner's
	// default token size
	long := "1.5,2.5," + strings.Repeat("x", 200_000)
	path := testutil.WriteFixture(t, "trace.csv", testutil.Lines(long, "3,4"))

	tr, err := ReadTrace(path)

	require.NoError(t, err)
	assert.Equal(t, Trace{{1.5, 2.5}, {3, 4}}, tr)
}

func TestScan_ReportsSkippedLines(t *testing.T) {
	// GIVEN input with 5 lines, 2 of them valid
	input := testutil.Lines("0,1", "", "nope", "2,3", "4")

	// WHEN scanned
	tr, stats, err := Scan(strings.NewReader(input))

	// THEN the counts describe what was dropped
	require.NoError(t, err)
	assert.Equal(t, Trace{{0, 1}, {2, 3}}, tr)
	assert.Equal(t, ScanStats{Lines: 5, Skipped: 3}, stats)
}

func TestAll_MatchesReadTraceAndIsRestartable(t *testing.T) {
	path := testutil.WriteFixture(t, "trace.csv", "0.0,-65.0\n0.1,-64.8\ngarbage line\n0.2,-64.5\n")
	want, err := ReadTrace(path)
	require.NoError(t, err)

	seq := All(path)
	for pass := 0; pass < 2; pass++ {
		var got Trace
		for s, err := range seq {
			require.NoError(t, err)
			got = append(got, s)
		}
		assert.Equal(t, want, got, "pass %d", pass)
	}
}

func TestAll_BreakEarly_StopsIteration(t *testing.T) {
	path := testutil.WriteFixture(t, "trace.csv", testutil.Lines("0,1", "1,2", "2,3"))

	var got Trace
	for s, err := range All(path) {
		require.NoError(t, err)
		got = append(got, s)
		if len(got) == 2 {
			break
		}
	}

	assert.Equal(t, Trace{{0, 1}, {1, 2}}, got)
}

func TestAll_NonexistentPath_YieldsErrorOnce(t *testing.T) {
	calls := 0
	for _, err := range All(filepath.Join(t.TempDir(), "missing.csv")) {
		calls++
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	}
	assert.Equal(t, 1, calls)
}

func TestTrace_Columns_HaveEqualLength(t *testing.T) {
	tr := Trace{{0, -65}, {0.1, -64.8}, {0.2, -64.5}}

	var gotTimes, gotValues []float64
	err := tr.Render(func(times, values []float64) error {
		gotTimes, gotValues = times, values
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.1, 0.2}, gotTimes)
	assert.Equal(t, []float64{-65, -64.8, -64.5}, gotValues)
}

func TestWriteTrace_ReadBackIdentically(t *testing.T) {
	// GIVEN a trace with values that need full precision
	want := Trace{{0, -65}, {0.025, -64.91234567891234}, {1e6, 1e-9}}
	path := filepath.Join(t.TempDir(), "out.csv")

	// WHEN written and read back
	require.NoError(t, WriteTraceFile(path, want))
	got, err := ReadTrace(path)

	// THEN nothing is lost
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
