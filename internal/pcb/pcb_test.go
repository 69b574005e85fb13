package pcb

import "testing"

func TestAllocFree(t *testing.T) {
	p := NewPool()

	var got []int
	for i := 0; i < MaxProc; i++ {
		s := p.Alloc()
		if s == None {
			t.Fatalf("pool exhausted after %d allocations, want %d", i, MaxProc)
		}
		got = append(got, s)
	}

	if s := p.Alloc(); s != None {
		t.Fatalf("Alloc() on exhausted pool = %d, want None", s)
	}

	for _, s := range got {
		p.Free(s)
	}

	if s := p.Alloc(); s == None {
		t.Fatalf("Alloc() after Free() = None, want a slot")
	}
}

func TestQueueFIFO(t *testing.T) {
	p := NewPool()
	tail := MkEmptyQ()

	var slots [3]int
	for i := range slots {
		slots[i] = p.Alloc()
		p.InsertQ(&tail, slots[i])
	}

	for i := range slots {
		got := p.RemoveQ(&tail)
		if got != slots[i] {
			t.Fatalf("RemoveQ() #%d = %d, want %d", i, got, slots[i])
		}
	}

	if !EmptyQ(tail) {
		t.Fatalf("queue not empty after draining all inserted slots")
	}
}

func TestOutQMiddle(t *testing.T) {
	p := NewPool()
	tail := MkEmptyQ()

	a, b, c := p.Alloc(), p.Alloc(), p.Alloc()
	p.InsertQ(&tail, a)
	p.InsertQ(&tail, b)
	p.InsertQ(&tail, c)

	if got := p.OutQ(&tail, b); got != b {
		t.Fatalf("OutQ(b) = %d, want %d", got, b)
	}

	if got := p.RemoveQ(&tail); got != a {
		t.Fatalf("RemoveQ() = %d, want %d", got, a)
	}
	if got := p.RemoveQ(&tail); got != c {
		t.Fatalf("RemoveQ() = %d, want %d", got, c)
	}
}

func TestChildTree(t *testing.T) {
	p := NewPool()
	parent := p.Alloc()
	c1 := p.Alloc()
	c2 := p.Alloc()

	p.InsertChild(parent, c1)
	p.InsertChild(parent, c2)

	if p.EmptyChild(parent) {
		t.Fatalf("EmptyChild(parent) = true after inserting children")
	}

	if got := p.OutChild(c1); got != c1 {
		t.Fatalf("OutChild(c1) = %d, want %d", got, c1)
	}

	if got := p.RemoveChild(parent); got != c2 {
		t.Fatalf("RemoveChild(parent) = %d, want %d", got, c2)
	}

	if !p.EmptyChild(parent) {
		t.Fatalf("EmptyChild(parent) = false after removing all children")
	}
}
