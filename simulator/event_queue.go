package simulator

import "container/heap"

// EventQueue is a priority queue for simulation events, ordered by timestamp.
// Events with equal timestamps come out in insertion order, which keeps runs
// bit-reproducible.
type EventQueue struct {
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates a new event queue
func NewEventQueue() *EventQueue {
	eq := &EventQueue{
		events: make(eventHeap, 0),
	}
	heap.Init(&eq.events)
	return eq
}

// Push adds an event to the queue
func (eq *EventQueue) Push(event Event) {
	heap.Push(&eq.events, eventEntry{event: event, seq: eq.nextSeq})
	eq.nextSeq++
}

// Pop removes and returns the next event
func (eq *EventQueue) Pop() Event {
	if eq.IsEmpty() {
		return nil
	}
	return heap.Pop(&eq.events).(eventEntry).event
}

// Peek returns the next event without removing it
func (eq *EventQueue) Peek() Event {
	if eq.IsEmpty() {
		return nil
	}
	return eq.events[0].event
}

// IsEmpty returns true if the queue is empty
func (eq *EventQueue) IsEmpty() bool {
	return eq.events.Len() == 0
}

// Len returns the number of events in the queue
func (eq *EventQueue) Len() int {
	return eq.events.Len()
}

// Clear removes all events from the queue
func (eq *EventQueue) Clear() {
	eq.events = make(eventHeap, 0)
	heap.Init(&eq.events)
}

// Events returns all events in the queue (for inspection/debugging)
// Note: This returns a copy to prevent external modification
func (eq *EventQueue) Events() []Event {
	events := make([]Event, len(eq.events))
	for i, e := range eq.events {
		events[i] = e.event
	}
	return events
}

// eventEntry pairs an event with its insertion sequence number for
// deterministic tie-breaking at equal timestamps
type eventEntry struct {
	event Event
	seq   uint64
}

// eventHeap implements heap.Interface for eventEntry
type eventHeap []eventEntry

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].event.Timestamp() != h[j].event.Timestamp() {
		return h[i].event.Timestamp() < h[j].event.Timestamp()
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(eventEntry))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
