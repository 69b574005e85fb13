// Package adl implements the Active Delay List: a singly-linked list
// of (wake time, process) pairs kept in ascending wake-time order. The
// delay-daemon loop that drains it is usyscall.Kernel.RunDelayDaemon.
/*
 * JAEOS  - Active Delay List
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
package adl

// 21 slots; initADL's delaydTable has MAXUSERPROC+1 entries.
// JAEOS's spec sets MAXUSERPROC to 1, but the table is sized generously
// here since nothing about the list's algorithm depends on that cap.
const tableSize = 21

// None is the sentinel slot index standing in for a nil pointer.
const None = -1

// Failure is returned by RemoveDelay/HeadWakeTime when the list is
// empty, matching the original's FAILURE return value.
const Failure = -1

type delayd struct {
	next     int
	wakeTime int64
	procID   int
}

// List is the Active Delay List plus its free list.
type List struct {
	table [tableSize]delayd
	head  int
	free  int
}

// NewList returns an empty delay list with every slot on the free
// list.
func NewList() *List {
	l := &List{head: None, free: None}
	for i := range l.table {
		l.freeSlot(i)
	}
	return l
}

func (l *List) freeSlot(i int) {
	e := &l.table[i]
	e.wakeTime = -1
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
	l.table[i].next = None
	return i
}

// findPrevious returns the slot whose next entry is the first with a
// wake time not less than wakeTime, walking from the head.
func (l *List) findPrevious(wakeTime int64) int {
	cur := l.head
	for l.table[cur].next != None && l.table[l.table[cur].next].wakeTime < wakeTime {
		cur = l.table[cur].next
	}
	return cur
}

// HeadWakeTime returns the wake time of the earliest-waking process on
// the list, or Failure if the list is empty.
func (l *List) HeadWakeTime() int64 {
	if l.head == None {
		return Failure
	}
	return l.table[l.head].wakeTime
}

// InsertDelay inserts procID into the list at the position its
// wakeTime belongs, keeping the list sorted ascending. It reports
// false if the free list is exhausted.
func (l *List) InsertDelay(wakeTime int64, procID int) bool {
	i := l.allocSlot()
	if i == None {
		return false
	}
	e := &l.table[i]
	e.wakeTime = wakeTime
	e.procID = procID

	if l.head == None {
		l.head = i
		e.next = None
		return true
	}

	if wakeTime < l.table[l.head].wakeTime {
		e.next = l.head
		l.head = i
		return true
	}

	prev := l.findPrevious(wakeTime)
	e.next = l.table[prev].next
	l.table[prev].next = i
	return true
}

// RemoveDelay removes and returns the process ID of the earliest-
// waking entry, or Failure if the list is empty. Unlike
// findPrevious's ordering search, this always takes the head:
// insertion already keeps the list sorted, so the earliest wake time
// is always at the front.
func (l *List) RemoveDelay() int {
	if l.head == None {
		return Failure
	}
	i := l.head
	procID := l.table[i].procID
	l.head = l.table[i].next
	l.freeSlot(i)
	return procID
}

// Entry is one pending delay, exported read-only for diagnostics.
type Entry struct {
	ProcID   int
	WakeTime int64
}

// Entries returns every pending delay in wake-time order. Read-only;
// exists for the operator console's diagnostic dump.
func (l *List) Entries() []Entry {
	var out []Entry
	for i := l.head; i != None; i = l.table[i].next {
		out = append(out, Entry{ProcID: l.table[i].procID, WakeTime: l.table[i].wakeTime})
	}
	return out
}
