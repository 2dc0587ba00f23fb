// Package queue provides a generic FIFO backed by a growable ring buffer.
//
// PushBack and PopFront are O(1) amortized. A Queue is not safe for
// concurrent use.
package queue

import "encoding/json"

const minCapacity = 8

// Queue is a FIFO of T. The zero value is an empty queue ready to use.
type Queue[T any] struct {
	buf  []T
	head int
	n    int
}

// New returns an empty queue with room for capacity items.
func New[T any](capacity int) *Queue[T] {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

// From returns a queue holding items in order.
func From[T any](items []T) *Queue[T] {
	q := New[T](len(items))
	for _, it := range items {
		q.PushBack(it)
	}
	return q
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	if q == nil {
		return 0
	}
	return q.n
}

// PushBack appends v at the tail.
func (q *Queue[T]) PushBack(v T) {
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = v
	q.n++
}

// PopFront removes and returns the head.
func (q *Queue[T]) PopFront() (T, bool) {
	var zero T
	if q.Len() == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	if q.n == 0 {
		q.head = 0
	}
	return v, true
}

// Front returns the head without removing it.
func (q *Queue[T]) Front() (T, bool) {
	var zero T
	if q.Len() == 0 {
		return zero, false
	}
	return q.buf[q.head], true
}

// At returns the i-th item from the head. It panics when i is out of range.
func (q *Queue[T]) At(i int) T {
	if i < 0 || i >= q.Len() {
		panic("queue: index out of range")
	}
	return q.buf[(q.head+i)%len(q.buf)]
}

// Items returns the queued items from head to tail as a new slice.
func (q *Queue[T]) Items() []T {
	out := make([]T, q.Len())
	for i := range out {
		out[i] = q.At(i)
	}
	return out
}

// Clear removes every item and keeps the allocated buffer.
func (q *Queue[T]) Clear() {
	var zero T
	for i := range q.buf {
		q.buf[i] = zero
	}
	q.head, q.n = 0, 0
}

// Clone returns an independent copy of q.
func (q *Queue[T]) Clone() *Queue[T] {
	return From(q.Items())
}

// MarshalJSON encodes the queue as a JSON array from head to tail.
func (q *Queue[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Items())
}

// UnmarshalJSON replaces the contents of q with a JSON array.
func (q *Queue[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*q = *From(items)
	return nil
}

func (q *Queue[T]) grow() {
	size := len(q.buf) * 2
	if size < minCapacity {
		size = minCapacity
	}
	buf := make([]T, size)
	for i := 0; i < q.n; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
