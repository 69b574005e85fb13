// Package asl implements the Active Semaphore List: the set of
// semaphores that currently have at least one process blocked on
// them, each carrying its own wait queue.
//
// A semaphore is identified by an integer key rather than a pointer
// to its counter, since every semaphore table in this kernel (the
// device semaphore array, the mutex array, the master semaphore) is
// itself a plain slice indexed by small integers. The active list is
// a singly linked list kept in ascending key order behind a dummy
// sentinel head, exactly as the original scans it; here it is a
// slice-backed arena addressed by slot index instead of pointers.
/*
 * JAEOS  - Active Semaphore List
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
package asl

import (
	"math"

	"github.com/jwagner/jaeos/internal/pcb"
)

// None is the sentinel slot index standing in for a nil pointer.
const None = -1

// dummyKey sorts before every real semaphore key, taking the place of
// the original's dummy node at address zero.
const dummyKey = math.MinInt

type semd struct {
	next   int
	semAdd int
	procQ  int
}

// List is the Active Semaphore List plus its free pool. The zero
// value is not ready for use; call NewList.
type List struct {
	table   [pcb.MaxProc + 1]semd
	freeTop int
	active  int
}

// NewList returns a List with every descriptor on the free list and
// the dummy sentinel installed at the head of the active list.
func NewList() *List {
	l := &List{freeTop: None, active: None}
	for i := range l.table {
		l.freeDesc(i)
	}
	dummy := l.alloc()
	l.table[dummy].next = None
	l.table[dummy].semAdd = dummyKey
	l.active = dummy
	return l
}

func (l *List) freeDesc(i int) {
	l.table[i].procQ = None
	l.table[i].semAdd = None
	l.table[i].next = l.freeTop
	l.freeTop = i
}

func (l *List) alloc() int {
	if l.freeTop == None {
		return None
	}
	i := l.freeTop
	l.freeTop = l.table[i].next
	l.table[i].next = None
	l.table[i].procQ = None
	l.table[i].semAdd = None
	return i
}

// getPrevSemd returns the slot whose next pointer either names the
// descriptor for semAdd, or where one for semAdd would be inserted.
func (l *List) getPrevSemd(semAdd int) int {
	cur := l.active
	for l.table[cur].next != None && l.table[l.table[cur].next].semAdd < semAdd {
		cur = l.table[cur].next
	}
	return cur
}

// InsertBlocked adds p to the wait queue of the semaphore identified
// by semAdd, allocating a new descriptor for it if none exists yet.
// It reports true if the ASL is exhausted and the PCB could not be
// queued.
func (l *List) InsertBlocked(semAdd int, p int, pool *pcb.Pool) bool {
	prev := l.getPrevSemd(semAdd)

	if l.table[prev].next == None || l.table[l.table[prev].next].semAdd != semAdd {
		fresh := l.alloc()
		if fresh == None {
			return true
		}
		l.table[fresh].semAdd = semAdd
		l.table[fresh].procQ = pcb.MkEmptyQ()

		pool.Get(p).SemAdd = semAdd
		pool.InsertQ(&l.table[fresh].procQ, p)

		l.table[fresh].next = l.table[prev].next
		l.table[prev].next = fresh
		return false
	}

	target := l.table[prev].next
	pool.InsertQ(&l.table[target].procQ, p)
	pool.Get(p).SemAdd = semAdd
	return false
}

// RemoveBlocked removes and returns the PCB slot at the head of the
// wait queue for semAdd, freeing the descriptor if the queue becomes
// empty. It returns pcb.None if no such semaphore is active.
func (l *List) RemoveBlocked(semAdd int, pool *pcb.Pool) int {
	prev := l.getPrevSemd(semAdd)
	if l.table[prev].next == None || l.table[l.table[prev].next].semAdd != semAdd {
		return pcb.None
	}

	target := l.table[prev].next
	ret := pool.RemoveQ(&l.table[target].procQ)

	if pcb.EmptyQ(l.table[target].procQ) {
		l.table[prev].next = l.table[target].next
		l.freeDesc(target)
	}
	return ret
}

// OutBlocked removes the PCB slot p from whichever semaphore's wait
// queue it sits on, freeing the descriptor if the queue becomes
// empty. It returns pcb.None if p was not blocked on an active
// semaphore.
func (l *List) OutBlocked(p int, pool *pcb.Pool) int {
	semAdd := pool.Get(p).SemAdd
	prev := l.getPrevSemd(semAdd)
	if l.table[prev].next == None || l.table[l.table[prev].next].semAdd != semAdd {
		return pcb.None
	}

	target := l.table[prev].next
	ret := pool.OutQ(&l.table[target].procQ, p)
	if ret == pcb.None {
		return pcb.None
	}

	if pcb.EmptyQ(l.table[target].procQ) {
		l.table[prev].next = l.table[target].next
		l.freeDesc(target)
	}
	return ret
}

// HeadBlocked returns the PCB slot at the head of the wait queue for
// semAdd without removing it, or pcb.None if no such semaphore is
// active.
func (l *List) HeadBlocked(semAdd int, pool *pcb.Pool) int {
	prev := l.getPrevSemd(semAdd)
	if l.table[prev].next == None || l.table[l.table[prev].next].semAdd != semAdd {
		return pcb.None
	}
	return pool.HeadQ(l.table[l.table[prev].next].procQ)
}

// Active returns the semaphore key of every semaphore currently on
// the active list, in ascending key order, skipping the dummy
// sentinel. Read-only; exists for the operator console's diagnostic
// dump, not for any scheduling decision.
func (l *List) Active() []int {
	var keys []int
	for n := l.table[l.active].next; n != None; n = l.table[n].next {
		keys = append(keys, l.table[n].semAdd)
	}
	return keys
}
