package reminders

import "container/heap"

// reminderHeap es un min-heap por FireAt. Cada Reminder guarda su índice para
// poder cancelarlo sin recorrer la cola.
type reminderHeap []*Reminder

func (h reminderHeap) Len() int           { return len(h) }
func (h reminderHeap) Less(i, j int) bool { return h[i].FireAt.Before(h[j].FireAt) }
func (h reminderHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *reminderHeap) Push(x any) {
	r := x.(*Reminder)
	r.index = len(*h)
	*h = append(*h, r)
}

func (h *reminderHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	r.index = -1
	*h = old[:n-1]
	return r
}

func (h *reminderHeap) push(r *Reminder) { heap.Push(h, r) }

func (h *reminderHeap) pop() *Reminder { return heap.Pop(h).(*Reminder) }

// remove saca r de la cola; false si ya no estaba encolado.
func (h *reminderHeap) remove(r *Reminder) bool {
	if r.index < 0 || r.index >= h.Len() || (*h)[r.index] != r {
		return false
	}
	heap.Remove(h, r.index)
	return true
}

func (h reminderHeap) peek() *Reminder {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}
