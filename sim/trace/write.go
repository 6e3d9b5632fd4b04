package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteTrace writes tr as "time,value" lines. Floats are formatted with the
// shortest representation that round-trips, so ReadTrace returns tr exactly.
func WriteTrace(w io.Writer, tr Trace) error {
	writer := csv.NewWriter(w)
	for i, s := range tr {
		row := []string{
			strconv.FormatFloat(s.Time, 'g', -1, 64),
			strconv.FormatFloat(s.Value, 'g', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing trace sample %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTraceFile writes tr to a new file at path, truncating any existing one.
func WriteTraceFile(path string, tr Trace) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	if err := WriteTrace(file, tr); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
