package event

// Publisher is the narrow enqueue-only view handed to components that emit
// events (strategy, portfolio, execution handler). Only the dispatch loop
// holds the full Queue and may pop from it.
type Publisher interface {
	Publish(Event)
}

// Queue is a slice-backed FIFO. It is owned by a single dispatch loop and is
// not safe for concurrent use; the simulation is single-threaded by design.
type Queue struct {
	events []Event
}

// NewQueue creates an empty queue, optionally pre-sizing storage.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{events: make([]Event, 0, capacity)}
}

// Publish appends an event at the tail.
func (q *Queue) Publish(e Event) {
	q.events = append(q.events, e)
}

// Pop removes and returns the oldest event, reporting false when empty.
func (q *Queue) Pop() (Event, bool) {
	if len(q.events) == 0 {
		return nil, false
	}
	e := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return e, true
}

// Len reports the number of pending events.
func (q *Queue) Len() int { return len(q.events) }
