// Package queue is the in-memory priority event queue (spec §4.4): only
// events with run_at <= now are eligible, and eligible events are
// ordered by (state_priority, run_at) ascending so items nearer
// completion progress first. Built on container/heap rather than the
// teacher's plain ticker loop, since the teacher never needed priority
// ordering across heterogeneous work items.
package queue

import (
	"container/heap"
	"sync"
	"time"

	"reelarr/internal/models"
)

// heapItem wraps an Event with its insertion index, satisfying
// container/heap.Interface ordering by (priority, run_at).
type heapItem struct {
	event *models.Event
	index int
}

type priorityHeap []*heapItem

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	pi, pj := h[i].event.Priority(), h[j].event.Priority()
	if pi != pj {
		return pi < pj
	}
	return h[i].event.RunAt.Before(h[j].event.RunAt)
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priorityHeap) Push(x any) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// Queue is a thread-safe priority queue of pending Events, keyed
// additionally by ID so the event manager can look up and remove a
// specific in-flight event (e.g. on cancellation).
type Queue struct {
	mu      sync.Mutex
	heap    priorityHeap
	byID    map[string]*heapItem
	notEmpty chan struct{}
}

// New returns an empty Queue.
func New() *Queue {
	q := &Queue{
		byID:     make(map[string]*heapItem),
		notEmpty: make(chan struct{}, 1),
	}
	heap.Init(&q.heap)
	return q
}

// Push adds an event to the queue.
func (q *Queue) Push(event *models.Event) {
	q.mu.Lock()
	item := &heapItem{event: event}
	heap.Push(&q.heap, item)
	q.byID[event.ID] = item
	q.mu.Unlock()
	q.signal()
}

// Contains reports whether an event with the given ID is still queued
// (spec §4.7 add_event dedupe: "already in the queue or running").
func (q *Queue) Contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.byID[id]
	return ok
}

// Remove drops a queued event by ID, used when cancel_job reaches a
// still-pending event before a worker picked it up.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, item.index)
	delete(q.byID, id)
	return true
}

// Len returns the number of queued events, eligible or not.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// ErrEmpty is the "distinguished empty signal" spec §4.4 calls for: Next
// returns it when no eligible event exists, and the caller decides how
// to wait (sleep, poll, or block on the queue's NotifyNonEmpty channel).
var ErrEmpty = &emptyError{}

type emptyError struct{}

func (*emptyError) Error() string { return "queue: no eligible event" }

// Next pops the highest-priority eligible event as of now, or returns
// ErrEmpty if none qualifies. A future-scheduled event ranked above an
// eligible one (same or lower priority class, nearer run_at) is set
// aside and pushed back before returning, so it never blocks an
// eligible event behind it.
func (q *Queue) Next(now time.Time) (*models.Event, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var skipped []*models.Event
	defer func() {
		for _, e := range skipped {
			item := &heapItem{event: e}
			heap.Push(&q.heap, item)
			q.byID[e.ID] = item
		}
	}()

	for q.heap.Len() > 0 {
		top := heap.Pop(&q.heap).(*heapItem)
		delete(q.byID, top.event.ID)
		if top.event.Eligible(now) {
			return top.event, nil
		}
		skipped = append(skipped, top.event)
	}
	return nil, ErrEmpty
}

// NotifyNonEmpty returns a channel that receives a value shortly after a
// Push, letting a dispatch loop block instead of busy-polling.
func (q *Queue) NotifyNonEmpty() <-chan struct{} {
	return q.notEmpty
}

func (q *Queue) signal() {
	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
}
