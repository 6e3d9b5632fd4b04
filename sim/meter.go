package sim

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// Checkpoint is the cost of one phase measured by a MeterManager.
type Checkpoint struct {
	Name      string
	Wall      time.Duration // wall time since the previous checkpoint
	HeapAlloc uint64        // live heap bytes at the checkpoint
	HeapDelta int64         // change of HeapAlloc since the previous checkpoint
}

// MeterManager measures wall time and heap usage between named checkpoints.
type MeterManager struct {
	started     bool
	last        time.Time
	lastHeap    uint64
	checkpoints []Checkpoint

	now       func() time.Time
	heapAlloc func() uint64
}

// NewMeterManager returns a MeterManager that reads the wall clock and the Go heap.
func NewMeterManager() *MeterManager {
	return &MeterManager{now: time.Now, heapAlloc: readHeapAlloc}
}

func readHeapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Start begins measuring. Calling Start again discards earlier checkpoints.
func (m *MeterManager) Start() {
	m.started = true
	m.checkpoints = nil
	m.last = m.now()
	m.lastHeap = m.heapAlloc()
}

// Checkpoint records the cost of the phase that ends now.
func (m *MeterManager) Checkpoint(name string) error {
	if !m.started {
		return errors.New("meter manager: checkpoint before start")
	}
	now, heap := m.now(), m.heapAlloc()
	m.checkpoints = append(m.checkpoints, Checkpoint{
		Name:      name,
		Wall:      now.Sub(m.last),
		HeapAlloc: heap,
		HeapDelta: int64(heap) - int64(m.lastHeap),
	})
	m.last, m.lastHeap = now, heap
	return nil
}

// Checkpoints returns the recorded checkpoints in order.
func (m *MeterManager) Checkpoints() []Checkpoint {
	return append([]Checkpoint(nil), m.checkpoints...)
}

// Total is the wall time from Start to the last checkpoint.
func (m *MeterManager) Total() time.Duration {
	var total time.Duration
	for _, c := range m.checkpoints {
		total += c.Wall
	}
	return total
}

// Report writes one row per checkpoint and a total.
func (m *MeterManager) Report(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Meter", "Time (s)", "Heap delta", "Heap"})
	table.SetAutoWrapText(false)
	for _, c := range m.checkpoints {
		table.Append([]string{
			c.Name,
			fmt.Sprintf("%.3f", c.Wall.Seconds()),
			signedBytes(c.HeapDelta),
			humanize.Bytes(c.HeapAlloc),
		})
	}
	table.SetFooter([]string{"total", fmt.Sprintf("%.3f", m.Total().Seconds()), "", ""})
	table.Render()
}

func signedBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return "+" + humanize.Bytes(uint64(n))
}
