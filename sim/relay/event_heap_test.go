package relay

import "testing"

func TestEventHeap_OrdersByTimeThenKindThenSeq(t *testing.T) {
	h := newEventHeap()
	h.schedule(event{time: 2, kind: eventDeliver, seq: 1})
	h.schedule(event{time: 1, kind: eventFire, seq: 2})
	h.schedule(event{time: 1, kind: eventDeliver, seq: 4})
	h.schedule(event{time: 1, kind: eventDeliver, seq: 3})

	want := []event{
		{time: 1, kind: eventDeliver, seq: 3},
		{time: 1, kind: eventDeliver, seq: 4},
		{time: 1, kind: eventFire, seq: 2},
		{time: 2, kind: eventDeliver, seq: 1},
	}
	for i, w := range want {
		got, ok := h.popNext()
		if !ok {
			t.Fatalf("heap empty at %d", i)
		}
		if got != w {
			t.Errorf("event %d = %+v, want %+v", i, got, w)
		}
	}
	if _, ok := h.popNext(); ok {
		t.Error("expected empty heap")
	}
}

func TestEventHeap_PeekAndClear(t *testing.T) {
	h := newEventHeap()
	if _, ok := h.peek(); ok {
		t.Fatal("peek on empty heap should report !ok")
	}
	h.schedule(event{time: 5})
	h.schedule(event{time: 3})
	if e, _ := h.peek(); e.time != 3 {
		t.Errorf("peek time = %v, want 3", e.time)
	}
	if h.Len() != 2 {
		t.Errorf("peek must not remove, len = %d", h.Len())
	}
	h.clear()
	if h.Len() != 0 {
		t.Errorf("len after clear = %d", h.Len())
	}
}
