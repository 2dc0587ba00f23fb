package queue

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	var q Queue[int]
	for i := 0; i < 5; i++ {
		q.PushBack(i)
	}
	if q.Len() != 5 {
		t.Fatalf("Len: got %d, want 5", q.Len())
	}
	for want := 0; want < 5; want++ {
		got, ok := q.PopFront()
		if !ok || got != want {
			t.Fatalf("PopFront: got (%d, %v), want (%d, true)", got, ok, want)
		}
	}
	if _, ok := q.PopFront(); ok {
		t.Error("PopFront on empty queue should report false")
	}
	if _, ok := q.Front(); ok {
		t.Error("Front on empty queue should report false")
	}
}

func TestQueueWrapAndGrow(t *testing.T) {
	q := New[string](2)
	// Interleave pushes and pops so the head wraps before the buffer grows.
	for i := 0; i < 6; i++ {
		q.PushBack(string(rune('a' + i)))
	}
	for i := 0; i < 4; i++ {
		q.PopFront()
	}
	for i := 6; i < 20; i++ {
		q.PushBack(string(rune('a' + i)))
	}

	want := []string{"e", "f", "g", "h", "i", "j", "k", "l", "m", "n", "o", "p", "q", "r", "s", "t"}
	if got := q.Items(); !reflect.DeepEqual(got, want) {
		t.Errorf("Items: got %v, want %v", got, want)
	}
	if head, _ := q.Front(); head != "e" {
		t.Errorf("Front: got %q, want %q", head, "e")
	}
	if q.At(3) != "h" {
		t.Errorf("At(3): got %q, want %q", q.At(3), "h")
	}
}

func TestQueueClone(t *testing.T) {
	q := From([]int{1, 2, 3})
	c := q.Clone()
	c.PopFront()
	c.PushBack(4)

	if got := q.Items(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("original mutated: %v", got)
	}
	if got := c.Items(); !reflect.DeepEqual(got, []int{2, 3, 4}) {
		t.Errorf("clone: got %v", got)
	}
}

func TestQueueClear(t *testing.T) {
	q := From([]int{1, 2, 3})
	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("Len after Clear: %d", q.Len())
	}
	q.PushBack(9)
	if v, _ := q.Front(); v != 9 {
		t.Errorf("Front after Clear+Push: %d", v)
	}
}

func TestQueueAtOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	From([]int{1}).At(1)
}

func TestQueueJSON(t *testing.T) {
	q := From([]string{"alice", "bob"})
	q.PopFront()
	q.PushBack("carol")

	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["bob","carol"]` {
		t.Errorf("marshal: got %s", data)
	}

	var back Queue[string]
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := back.Items(); !reflect.DeepEqual(got, []string{"bob", "carol"}) {
		t.Errorf("unmarshal: got %v", got)
	}
}

func BenchmarkQueuePushPop(b *testing.B) {
	q := New[int](64)
	for i := 0; i < b.N; i++ {
		q.PushBack(i)
		if q.Len() > 32 {
			q.PopFront()
		}
	}
}
