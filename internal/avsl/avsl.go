// Package avsl implements the Active Virtual Semaphore List: a
// circular, unordered collection of (virtual semaphore address,
// process) pairs tracking which user processes are virtually blocked
// on a syscall-11/12 semaphore.
//
// As with internal/pcb and internal/asl, nodes live at fixed slots in
// a backing array rather than behind intrusive pointers; slots are
// referred to by index, with None (-1) standing in for nil.
/*
 * JAEOS  - Active Virtual Semaphore List
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
package avsl

// MaxProc+1 slots, matching initAVSL's virtSemdTable[MAXPROC+1].
const tableSize = 21

// None is the sentinel slot index standing in for a nil pointer.
const None = -1

type virtSemd struct {
	next, prev int
	semAddr    int
	procID     int
	inUse      bool
}

// List is the Active Virtual Semaphore List plus its free list, both
// backed by the same fixed array.
type List struct {
	table [tableSize]virtSemd
	head  int
	free  int
}

// NewList returns an empty AVSL with every slot on the free list.
func NewList() *List {
	l := &List{head: None, free: None}
	for i := range l.table {
		l.freeSlot(i)
	}
	return l
}

func (l *List) freeSlot(i int) {
	e := &l.table[i]
	e.inUse = false
	e.semAddr = 0
	e.procID = None
	e.next = l.free
	l.free = i
}

func (l *List) allocSlot() int {
	if l.free == None {
		return None
	}
	i := l.free
	l.free = l.table[i].next
	e := &l.table[i]
	e.next, e.prev = None, None
	e.semAddr = 0
	e.procID = None
	e.inUse = true
	return i
}

// InsertBlocked allocates a node for (semAddr, procID) and weaves it
// into the active list. It reports false if the free list is
// exhausted.
func (l *List) InsertBlocked(semAddr, procID int) bool {
	i := l.allocSlot()
	if i == None {
		return false
	}
	e := &l.table[i]
	e.semAddr = semAddr
	e.procID = procID

	if l.head == None {
		e.next, e.prev = i, i
		l.head = i
		return true
	}

	h := &l.table[l.head]
	e.next = l.head
	e.prev = h.prev
	l.table[h.prev].next = i
	h.prev = i
	return true
}

// RemoveBlocked finds the node whose semaphore address is semAddr,
// unweaves it, returns it to the free list, and returns the process ID
// it held. It returns None if no such node exists.
func (l *List) RemoveBlocked(semAddr int) int {
	if l.head == None {
		return None
	}

	cur := l.head
	for {
		e := &l.table[cur]
		if e.semAddr == semAddr {
			procID := e.procID
			if e.next == cur {
				l.head = None
			} else {
				l.table[e.prev].next = e.next
				l.table[e.next].prev = e.prev
				if cur == l.head {
					l.head = e.next
				}
			}
			l.freeSlot(cur)
			return procID
		}
		cur = e.next
		if cur == l.head {
			return None
		}
	}
}
