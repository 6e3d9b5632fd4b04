package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"
)

// ScanStats counts the lines seen by Scan.
type ScanStats struct {
	Lines   int // lines read, including empty and malformed ones
	Skipped int // lines that did not yield a sample
}

// ParseLine parses one trace record. The line is split on commas; the first
// two fields, with surrounding whitespace trimmed, must both parse as decimal
// floats. Extra fields are ignored. ok is false for any line that does not match.
func ParseLine(line string) (s Sample, ok bool) {
	fields := strings.SplitN(line, ",", 3)
	if len(fields) < 2 {
		return Sample{}, false
	}
	t, ok := parseField(fields[0])
	if !ok {
		return Sample{}, false
	}
	v, ok := parseField(fields[1])
	if !ok {
		return Sample{}, false
	}
	return Sample{Time: t, Value: v}, true
}

// parseField parses a decimal float. Hexadecimal mantissas are rejected and
// magnitudes beyond float64 become ±Inf.
func parseField(field string) (float64, bool) {
	field = strings.TrimSpace(field)
	digits := strings.TrimLeft(field, "+-")
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, false
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// ReadTrace reads the trace file at path. Malformed lines are dropped
// silently, so a file without any valid line yields an empty trace and a nil
// error. Only failure to open or read the file is reported.
func ReadTrace(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}
	defer func() { _ = f.Close() }()

	tr, _, err := Scan(f)
	if err != nil {
		return nil, fmt.Errorf("reading trace %s: %w", path, err)
	}
	return tr, nil
}

// Scan reads trace records from r until EOF. Unlike ReadTrace it also reports
// how many lines were skipped; skipping is still not an error.
func Scan(r io.Reader) (Trace, ScanStats, error) {
	tr := Trace{}
	var stats ScanStats
	err := eachLine(r, func(line string) bool {
		stats.Lines++
		if s, ok := ParseLine(line); ok {
			tr = append(tr, s)
		} else {
			stats.Skipped++
		}
		return true
	})
	if err != nil {
		return nil, stats, err
	}
	return tr, stats, nil
}

// All returns a lazy sequence over the samples of the file at path. Every
// iteration reopens the file, so the sequence can be ranged over repeatedly.
// An open or read error is yielded once, with a zero Sample, and ends the
// sequence.
func All(path string) iter.Seq2[Sample, error] {
	return func(yield func(Sample, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(Sample{}, fmt.Errorf("opening trace: %w", err))
			return
		}
		defer func() { _ = f.Close() }()

		stopped := false
		err = eachLine(f, func(line string) bool {
			s, ok := ParseLine(line)
			if !ok {
				return true
			}
			if !yield(s, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(Sample{}, fmt.Errorf("reading trace %s: %w", path, err))
		}
	}
}

// eachLine calls fn for every line of r, without the line terminator, until
// fn returns false or r is exhausted. "\n", "\r\n" and a bare "\r" all end a
// line. Lines may be arbitrarily long.
func eachLine(r io.Reader, fn func(line string) bool) error {
	br := bufio.NewReader(r)
	var line []byte
	for {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				fn(string(line))
			}
			return nil
		}
		if err != nil {
			return err
		}
		switch b {
		case '\r':
			if next, err := br.Peek(1); err == nil && next[0] == '\n' {
				_, _ = br.ReadByte()
			}
		case '\n':
		default:
			line = append(line, b)
			continue
		}
		if !fn(string(line)) {
			return nil
		}
		line = line[:0]
	}
}
