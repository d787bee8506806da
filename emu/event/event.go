/*
 * KI10 - Priority interrupt queue.
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

package event

/*
   Pending interrupts are held in time order. Each entry holds the
   number of checks remaining after the entry before it, so only the
   head delayed entry needs to be counted down. Entries whose delay has
   reached zero sit at the front of the queue and are candidates for
   delivery on their priority channel.
*/

// Callback is run when an entry's delay expires. It returns the new
// priority for the entry, zero drops the entry and a negative value keeps
// the queued priority.
type Callback = func(iarg int) int

type Event struct {
	time     int      // Checks after previous entry
	priority int      // PI channel 1-7, 0 for callback only
	dev      int      // Device code event belongs to
	cb       Callback // Function to callback
	iarg     int      // Integer argument
	prev     *Event
	next     *Event
}

type Queue struct {
	head *Event
	tail *Event
}

// Priority of event.
func (ev *Event) Priority() int {
	return ev.priority
}

// Device event was posted for.
func (ev *Event) Device() int {
	return ev.dev
}

// Remove event from queue, giving time to following event. An event
// no longer on the queue is ignored.
func (q *Queue) unlink(ev *Event) {
	if ev.prev == nil && q.head != ev {
		return
	}
	nxt := ev.next
	if nxt != nil {
		nxt.time += ev.time
		nxt.prev = ev.prev
	} else {
		q.tail = ev.prev
	}
	if ev.prev != nil {
		ev.prev.next = nxt
	} else {
		q.head = nxt
	}
	ev.prev = nil
	ev.next = nil
}

// Remove a delivered event. Selected events always have zero delay.
// An event already cancelled by a callback is ignored.
func (q *Queue) Remove(ev *Event) {
	q.unlink(ev)
}

// Cancel first event for device.
func (q *Queue) Cancel(dev int) bool {
	for ev := q.head; ev != nil; ev = ev.next {
		if ev.dev == dev {
			q.unlink(ev)
			return true
		}
	}
	return false
}

// Interrupt posts an interrupt for device on priority after delay checks.
// With clean set any entry already queued for the device is removed first.
// An entry is only created for a nonzero priority or a delayed callback,
// and never for a negative delay.
func (q *Queue) Interrupt(clean bool, delay int, dev int, priority int, cb Callback, iarg int) {
	if clean {
		q.Cancel(dev)
	}
	priority &= 7
	if priority == 0 && (delay == 0 || cb == nil) {
		return
	}
	if delay < 0 {
		return
	}

	ev := &Event{time: delay, priority: priority, dev: dev, cb: cb, iarg: iarg}

	// Scan for place to install it
	for evptr := q.head; evptr != nil; evptr = evptr.next {
		if ev.time < evptr.time {
			// Remove current time from next time
			evptr.time -= ev.time
			ev.prev = evptr.prev
			ev.next = evptr
			evptr.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				q.head = ev
			}
			return
		}
		// Make new event relative to this one
		ev.time -= evptr.time
	}

	// Get here, put it on tail of list
	ev.prev = q.tail
	if q.tail != nil {
		q.tail.next = ev
	} else {
		q.head = ev
	}
	q.tail = ev
}

// Check offers each ready entry to pick, in queue order. pick returns true
// when the priority is better than anything chosen so far, the last such
// entry is returned. The first delayed entry is then aged by one check.
// When it expires its callback and the callbacks of any entries expiring
// with it are run. delayed reports whether a delayed entry was found.
func (q *Queue) Check(pick func(priority int) bool) (sel *Event, delayed bool) {
	ev := q.head
	for ; ev != nil && ev.time == 0; ev = ev.next {
		if pick(ev.priority) {
			sel = ev
		}
	}
	if ev == nil {
		return sel, false
	}

	ev.time--
	if ev.time == 0 {
		for ev != nil && ev.time == 0 {
			nxt := ev.next
			if ev.cb != nil {
				if p := ev.cb(ev.iarg); p >= 0 {
					ev.priority = p & 7
				}
			}
			if ev.priority == 0 {
				q.unlink(ev)
			}
			ev = nxt
		}
	}
	return sel, true
}

// Clear all pending events.
func (q *Queue) Clear() {
	q.head = nil
	q.tail = nil
}

// Empty returns true if nothing queued.
func (q *Queue) Empty() bool {
	return q.head == nil
}

// Walk calls fn for each entry in order with its absolute delay.
func (q *Queue) Walk(fn func(delay int, dev int, priority int)) {
	t := 0
	for ev := q.head; ev != nil; ev = ev.next {
		t += ev.time
		fn(t, ev.dev, ev.priority)
	}
}
