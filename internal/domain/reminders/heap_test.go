package reminders

import (
	"testing"
	"time"
)

func TestHeap_PopsInFireAtOrder(t *testing.T) {
	base := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)
	h := &reminderHeap{}

	h.push(&Reminder{EntryID: "c", FireAt: base.Add(3 * time.Hour)})
	h.push(&Reminder{EntryID: "a", FireAt: base.Add(1 * time.Hour)})
	h.push(&Reminder{EntryID: "b", FireAt: base.Add(2 * time.Hour)})

	for _, want := range []string{"a", "b", "c"} {
		got := h.pop()
		if got.EntryID != want {
			t.Fatalf("expected %s, got %s", want, got.EntryID)
		}
		if got.index != -1 {
			t.Fatalf("popped reminder should be detached, index=%d", got.index)
		}
	}
	if h.peek() != nil {
		t.Fatalf("expected empty heap")
	}
}

func TestHeap_RemoveMiddle(t *testing.T) {
	base := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)
	h := &reminderHeap{}

	a := &Reminder{EntryID: "a", FireAt: base.Add(1 * time.Hour)}
	b := &Reminder{EntryID: "b", FireAt: base.Add(2 * time.Hour)}
	c := &Reminder{EntryID: "c", FireAt: base.Add(3 * time.Hour)}
	h.push(a)
	h.push(b)
	h.push(c)

	if !h.remove(b) {
		t.Fatalf("expected removal to succeed")
	}
	if h.remove(b) {
		t.Fatalf("second removal should fail")
	}
	if h.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", h.Len())
	}
	if h.pop() != a || h.pop() != c {
		t.Fatalf("unexpected order after removal")
	}
}

func TestHeap_RemoveNotQueued(t *testing.T) {
	h := &reminderHeap{}
	r := &Reminder{EntryID: "x", index: -1}
	if h.remove(r) {
		t.Fatalf("removing a detached reminder should fail")
	}
}
