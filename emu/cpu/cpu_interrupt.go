/*
 * KI10 - Priority interrupt system.
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

package cpu

import (
	"math/bits"

	"github.com/rcornwell/KI10/emu/event"
	"github.com/rcornwell/KI10/util/debug"
)

/*
   PI status, as read by CONI PI:

      11-17      21-27      28   29-35
      requests   in progress on  channels on

   Channel 1 is the highest priority. A channel is taken when it is on,
   higher than any channel in progress, and either has a program request
   or a device entry ready in the queue. The two instructions at 40+2n of
   the executive process table are run for channel n. If the first one
   skips the interrupt is dismissed, otherwise the second runs. Unless the
   instruction jumps away the channel is left at once.
*/

// Interrupt posts a device interrupt, see event.Queue.
func (c *CPU) Interrupt(clean bool, delay int, devNum uint16, priority int, cb event.Callback, iarg int) {
	c.queue.Interrupt(clean, delay, int(devNum), priority, cb, iarg)
	c.checkIRQ = true
}

// Select and run the highest priority pending interrupt.
func (c *CPU) checkInterrupt() {
	c.checkIRQ = false
	var highMask, prog uint64
	if (c.pi & BIT28) == 0 {
		highMask = 0x7f
	} else {
		highMask = (c.pi >> 8) & 0x7f
		if p := ((c.pi >> 18) &^ highMask) & 0x7f; p > highMask {
			prog = p
			highMask = p
		}
	}

	sel, delayed := c.queue.Check(func(p int) bool {
		mask := BIT28 >> p
		if p != 0 && (c.pi&mask) != 0 && mask > highMask {
			highMask = mask
			return true
		}
		return false
	})
	if delayed {
		c.checkIRQ = true
	}

	var level uint64
	switch {
	case sel != nil:
		level = uint64(sel.Priority())
		debug.Debugf("CPU", c.debugMsk, debugIRQ, "Interrupt level %d device %03o pc %06o",
			level, sel.Device(), c.pc)
		c.queue.Remove(sel)
	case prog != 0:
		level = uint64(8 - bits.Len64(highMask))
		debug.Debugf("CPU", c.debugMsk, debugIRQ, "Program interrupt level %d pc %06o", level, c.pc)
	default:
		return
	}
	c.checkIRQ = true

	if c.userMode {
		c.setUserMode(false)
	}
	c.interruptMode = true
	c.interruptSkip = true
	c.pi |= BIT20 >> level
	c.savePC = c.pc
	c.xct(c.readExecTable(piVector+2*level), false)
	if !c.interruptSkip {
		c.xct(c.readExecTable(piVector+2*level+1), false)
	}
	if c.interruptMode {
		c.pi &^= BIT20 >> level
		if (c.flags & flagUSR) != 0 {
			c.setUserMode(true)
		}
		c.interruptMode = false
	}
}

// Leave the highest channel in progress.
func (c *CPU) releaseHiInterrupt() {
	if (c.pi & BIT28) == 0 {
		return
	}
	for mask := BIT21; mask >= BIT27; mask >>= 1 {
		if (c.pi & mask) != 0 {
			c.pi &^= mask
			break
		}
	}
	c.checkIRQ = true
}

// PendingLights returns channels with ready queue entries in the layout
// of the channel on bits. Bit 28 is set when nothing is pending or in
// progress.
func (c *CPU) PendingLights() uint64 {
	var lights uint64
	c.queue.Walk(func(delay int, _ int, priority int) {
		if delay == 0 {
			lights |= BIT28 >> priority
		}
	})
	if lights == 0 && (c.pi&0x7f00) == 0 {
		lights = BIT28
	}
	return lights
}

// PI status word.
func (c *CPU) PIStatus() uint64 {
	return c.pi
}

// Advance ages queued device entries while the processor is stopped.
// Nothing is delivered. Returns true while an entry is still delayed.
func (c *CPU) Advance() bool {
	_, delayed := c.queue.Check(func(int) bool { return false })
	return delayed
}
