// Package pcb implements the process control block pool, the free
// list, FIFO process queues, and the process tree used to track
// parent/child relationships between jobs.
//
// Rather than the intrusive pointer-linked nodes of the original
// kernel, every PCB lives at a fixed slot in a backing array and is
// referred to everywhere by its slot index. The sentinel index None
// (-1) takes the place of a nil pointer.
/*
 * JAEOS  - Process control blocks
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */
package pcb

import "github.com/jwagner/jaeos/internal/state"

// MaxProc is the number of PCB slots the pool carries, shared by the
// free list and every active queue.
const MaxProc = 20

// None is the sentinel slot index standing in for a nil pointer.
const None = -1

// PCB is one process control block. SemAdd is the ASL key of the
// semaphore the process is blocked on (a user semaphore's address in
// simulated memory, or a negative nucleus device-semaphore key), or
// None while the process is not blocked.
type PCB struct {
	next, prev       int
	parent, child    int
	nextSib, prevSib int

	// OldArea/NewArea/TrapSet are indexed by trap type (TLBTrap,
	// ProgTrap, SysTrap), the Go equivalent of the original's
	// Told_trap[TRAPTYPES]/Tnew_trap[TRAPTYPES] pass-up-or-die vectors.
	OldArea [TrapTypes]state.State
	NewArea [TrapTypes]state.State
	TrapSet [TrapTypes]bool

	S      state.State
	Time   int64
	SemAdd int
	InUse  bool
}

// Trap type indices into PCB.OldArea/NewArea/TrapSet.
const (
	TLBTrap = iota
	ProgTrap
	SysTrap
	TrapTypes
)

// Pool is the fixed backing array of PCBs plus the free list threaded
// through it. The zero value is not ready for use; call NewPool.
type Pool struct {
	table    [MaxProc]PCB
	freeTail int
}

// NewPool returns a pool with every slot on the free list.
func NewPool() *Pool {
	p := &Pool{freeTail: None}
	for i := range p.table {
		p.table[i].InUse = false
		p.free(i)
	}
	return p
}

func (p *Pool) at(i int) *PCB {
	if i == None {
		return nil
	}
	return &p.table[i]
}

func (p *Pool) wash(i int) {
	e := &p.table[i]
	e.next, e.prev = None, None
	e.parent, e.child = None, None
	e.nextSib, e.prevSib = None, None
	e.Time = 0
	e.SemAdd = None
	e.TrapSet = [TrapTypes]bool{}
}

// free returns slot i to the free list. Internal helper shared by
// Free and NewPool.
func (p *Pool) free(i int) {
	p.wash(i)
	p.InsertQ(&p.freeTail, i)
}

// Free returns a PCB slot that is no longer in use to the free list.
func (p *Pool) Free(i int) {
	p.table[i].InUse = false
	p.free(i)
}

// Alloc removes a slot from the free list and returns it, or None if
// the pool is exhausted.
func (p *Pool) Alloc() int {
	i := p.RemoveQ(&p.freeTail)
	if i == None {
		return None
	}
	p.wash(i)
	p.table[i].InUse = true
	return i
}

// Get returns a pointer to the PCB at slot i. i must not be None.
func (p *Pool) Get(i int) *PCB {
	return &p.table[i]
}

// MkEmptyQ returns an empty process queue tail.
func MkEmptyQ() int {
	return None
}

// EmptyQ reports whether the queue with the given tail is empty.
func EmptyQ(tail int) bool {
	return tail == None
}

// InsertQ appends slot p to the queue pointed at by tail, the circular
// doubly-linked queue discipline used for the ready queue, the PCB
// free list, and every semaphore's wait queue.
func (p *Pool) InsertQ(tail *int, i int) {
	e := p.at(i)
	if EmptyQ(*tail) {
		e.next, e.prev = i, i
	} else {
		tp := p.at(*tail)
		e.next = tp.next
		p.at(tp.next).prev = i
		tp.next = i
		e.prev = *tail
	}
	*tail = i
}

// HeadQ returns the slot at the head of the queue without removing
// it, or None if the queue is empty.
func (p *Pool) HeadQ(tail int) int {
	if EmptyQ(tail) {
		return None
	}
	return p.at(tail).next
}

// RemoveQ removes and returns the slot at the head of the queue
// pointed at by tail, or None if the queue is empty.
func (p *Pool) RemoveQ(tail *int) int {
	if EmptyQ(*tail) {
		return None
	}
	return p.OutQ(tail, p.at(*tail).next)
}

// OutQ removes slot i from the queue pointed at by tail, wherever in
// the queue it sits, and returns it. It returns None if the queue is
// empty or i is not a member.
func (p *Pool) OutQ(tail *int, i int) int {
	if EmptyQ(*tail) {
		return None
	}
	if i == *tail {
		t := p.at(*tail)
		if t.next != *tail {
			p.at(t.prev).next = t.next
			p.at(t.next).prev = t.prev
			*tail = t.prev
		} else {
			*tail = None
		}
		return i
	}

	cur := p.at(*tail).next
	for cur != *tail {
		if cur == i {
			e := p.at(cur)
			p.at(e.prev).next = e.next
			p.at(e.next).prev = e.prev
			e.prev, e.next = None, None
			return cur
		}
		cur = p.at(cur).next
	}
	return None
}

// EmptyChild reports whether the PCB at slot i has any children.
func (p *Pool) EmptyChild(i int) bool {
	return p.at(i).child == None
}

// InsertChild makes slot c a child of slot parent, at the head of the
// parent's sibling list.
func (p *Pool) InsertChild(parent, c int) {
	pe := p.at(parent)
	ce := p.at(c)
	if p.EmptyChild(parent) {
		ce.prevSib = None
	} else {
		p.at(pe.child).nextSib = c
		ce.prevSib = pe.child
	}
	ce.nextSib = None
	pe.child = c
	ce.parent = parent
}

// RemoveChild removes and returns the first child of slot parent, or
// None if it has no children.
func (p *Pool) RemoveChild(parent int) int {
	if p.EmptyChild(parent) {
		return None
	}
	pe := p.at(parent)
	c := pe.child
	ce := p.at(c)

	if ce.prevSib == None {
		ce.parent = None
		pe.child = None
		return c
	}

	pe.child = ce.prevSib
	p.at(ce.prevSib).nextSib = None
	ce.prevSib = None
	ce.parent = None
	return c
}

// OutChild removes slot i from its parent's child list, wherever
// among its siblings it sits, and returns it. It returns None if i
// has no parent.
func (p *Pool) OutChild(i int) int {
	e := p.at(i)
	if e.parent == None {
		return None
	}

	parent := p.at(e.parent)
	if i == parent.child {
		return p.RemoveChild(e.parent)
	}

	if e.prevSib == None {
		p.at(e.nextSib).prevSib = None
	} else {
		p.at(e.nextSib).prevSib = e.prevSib
		p.at(e.prevSib).nextSib = e.nextSib
		e.prevSib = None
	}
	e.nextSib = None
	e.parent = None
	return i
}

// Parent returns the parent slot of i, or None if it is a root.
func (p *Pool) Parent(i int) int { return p.at(i).parent }

// Child returns the first child slot of i, or None.
func (p *Pool) Child(i int) int { return p.at(i).child }

// NextSibling returns the next sibling slot of i, or None.
func (p *Pool) NextSibling(i int) int { return p.at(i).nextSib }
