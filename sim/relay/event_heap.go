package relay

import "container/heap"

// eventKind orders events that share a timestamp. Lower values are processed first.
type eventKind int

const (
	eventDeliver eventKind = iota // weighted input arriving at a cell
	eventFire                     // a cell emitting a spike
)

// event is addressed to the cell with local index lid within its group.
type event struct {
	time   float64
	kind   eventKind
	seq    uint64
	lid    int
	weight float64
}

// eventHeap implements a priority queue with deterministic ordering.
// Ordering: time → kind → sequence number.
type eventHeap struct {
	events []event
}

func newEventHeap() *eventHeap {
	h := &eventHeap{events: make([]event, 0)}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *eventHeap) Len() int {
	return len(h.events)
}

// Less implements heap.Interface with deterministic ordering
func (h *eventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]

	// Primary: time (earlier first)
	if ei.time != ej.time {
		return ei.time < ej.time
	}

	// Secondary: kind (deliveries before fires at the same instant)
	if ei.kind != ej.kind {
		return ei.kind < ej.kind
	}

	// Tertiary: sequence number (insertion order)
	return ei.seq < ej.seq
}

// Swap implements heap.Interface
func (h *eventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

// Push implements heap.Interface
func (h *eventHeap) Push(x any) {
	h.events = append(h.events, x.(event))
}

// Pop implements heap.Interface
func (h *eventHeap) Pop() any {
	old := h.events
	n := len(old)
	item := old[n-1]
	h.events = old[0 : n-1]
	return item
}

func (h *eventHeap) schedule(e event) {
	heap.Push(h, e)
}

// popNext removes and returns the next event; ok is false when the heap is empty.
func (h *eventHeap) popNext() (e event, ok bool) {
	if h.Len() == 0 {
		return event{}, false
	}
	return heap.Pop(h).(event), true
}

// peek returns the next event without removing it.
func (h *eventHeap) peek() (e event, ok bool) {
	if h.Len() == 0 {
		return event{}, false
	}
	return h.events[0], true
}

func (h *eventHeap) clear() {
	h.events = h.events[:0]
}
