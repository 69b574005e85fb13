/*
 * JAEOS  - Device completion event scheduler
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
package machine

// eventCallback fires when a scheduled device completion matures. The
// line/unit it was scheduled against is passed back so the bus can
// raise the matching interrupt.
type eventCallback func(line, unit int)

type event struct {
	ticksLeft int
	line      int
	unit      int
	cb        eventCallback
	prev      *event
	next      *event
}

// eventList is a sorted relative-delta linked list of pending device
// completions: each node's ticksLeft is relative to the node before
// it, so advancing time by t only ever touches the head.
type eventList struct {
	head *event
	tail *event
}

// schedule queues cb to fire after the given number of ticks.
func (el *eventList) schedule(line, unit, ticks int, cb eventCallback) {
	if ticks <= 0 {
		cb(line, unit)
		return
	}

	ev := &event{line: line, unit: unit, ticksLeft: ticks, cb: cb}

	cur := el.head
	if cur == nil {
		el.head, el.tail = ev, ev
		return
	}

	for cur != nil {
		if ev.ticksLeft <= cur.ticksLeft {
			cur.ticksLeft -= ev.ticksLeft
			ev.prev = cur.prev
			ev.next = cur
			cur.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				el.head = ev
			}
			return
		}
		ev.ticksLeft -= cur.ticksLeft
		cur = cur.next
	}

	ev.prev = el.tail
	el.tail.next = ev
	el.tail = ev
}

// cancel removes any pending completion scheduled for (line, unit).
func (el *eventList) cancel(line, unit int) {
	cur := el.head
	for cur != nil {
		if cur.line == line && cur.unit == unit {
			if cur.next != nil {
				cur.next.ticksLeft += cur.ticksLeft
				cur.next.prev = cur.prev
			} else {
				el.tail = cur.prev
			}
			if cur.prev != nil {
				cur.prev.next = cur.next
			} else {
				el.head = cur.next
			}
			return
		}
		cur = cur.next
	}
}

// advance charges t ticks against the head of the list, firing every
// completion whose countdown reaches zero.
func (el *eventList) advance(t int) {
	cur := el.head
	if cur == nil {
		return
	}
	cur.ticksLeft -= t
	for cur != nil && cur.ticksLeft <= 0 {
		cur.cb(cur.line, cur.unit)
		el.head = cur.next
		if el.head != nil {
			el.head.prev = nil
		} else {
			el.tail = nil
		}
		cur = el.head
	}
}

// empty reports whether any completion is still pending.
func (el *eventList) empty() bool {
	return el.head == nil
}
