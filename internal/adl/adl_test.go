package adl

import "testing"

func TestInsertOrderedByWakeTime(t *testing.T) {
	l := NewList()
	l.InsertDelay(300, 3)
	l.InsertDelay(100, 1)
	l.InsertDelay(200, 2)

	if got := l.HeadWakeTime(); got != 100 {
		t.Fatalf("HeadWakeTime() = %d, want 100", got)
	}

	order := []int{1, 2, 3}
	for _, want := range order {
		if got := l.RemoveDelay(); got != want {
			t.Fatalf("RemoveDelay() = %d, want %d", got, want)
		}
	}
	if got := l.RemoveDelay(); got != Failure {
		t.Fatalf("RemoveDelay() on empty list = %d, want Failure", got)
	}
}

func TestHeadWakeTimeEmpty(t *testing.T) {
	l := NewList()
	if got := l.HeadWakeTime(); got != Failure {
		t.Fatalf("HeadWakeTime() on empty list = %d, want Failure", got)
	}
}

func TestInsertExhaustsFreeList(t *testing.T) {
	l := NewList()
	for i := 0; i < tableSize; i++ {
		if !l.InsertDelay(int64(i), i) {
			t.Fatalf("InsertDelay failed early at i=%d", i)
		}
	}
	if l.InsertDelay(999, 999) {
		t.Fatal("InsertDelay should fail once the free list is exhausted")
	}
}
