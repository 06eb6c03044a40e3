package queue

import (
	"context"
	"testing"
	"time"
)

func TestPushPop_FIFO(t *testing.T) {
	q := New[int](4)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Push(ctx, i); err != nil {
			t.Fatalf("Push(%d) returned error: %v", i, err)
		}
	}

	for i := 0; i < 3; i++ {
		got, ok := q.Pop(ctx)
		if !ok {
			t.Fatalf("expected Pop to succeed")
		}
		if got != i {
			t.Fatalf("expected FIFO order %d, got %d", i, got)
		}
	}
}

func TestTryPush_FailsWhenFull(t *testing.T) {
	q := New[int](1)
	if !q.TryPush(1) {
		t.Fatalf("expected first TryPush to succeed")
	}
	if q.TryPush(2) {
		t.Fatalf("expected TryPush to fail when queue is full")
	}
}

func TestClose_DrainsThenSignalsDone(t *testing.T) {
	q := New[int](2)
	ctx := context.Background()
	q.TryPush(1)
	q.Close()

	got, ok := q.Pop(ctx)
	if !ok || got != 1 {
		t.Fatalf("expected buffered item to drain before close signal, got %v,%v", got, ok)
	}

	_, ok = q.Pop(ctx)
	if ok {
		t.Fatalf("expected Pop on empty closed queue to report ok=false")
	}
}

func TestPop_RespectsContextCancellation(t *testing.T) {
	q := New[int](1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.Pop(ctx)
	if ok {
		t.Fatalf("expected Pop on empty queue with cancelled context to report ok=false")
	}
}

func TestLenAndCap(t *testing.T) {
	q := New[int](5)
	if q.Cap() != 5 {
		t.Fatalf("expected Cap()=5, got %d", q.Cap())
	}
	q.TryPush(1)
	q.TryPush(2)
	if q.Len() != 2 {
		t.Fatalf("expected Len()=2, got %d", q.Len())
	}
}
