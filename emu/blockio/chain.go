/*
 * KI10 - Control word chains.
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

package blockio

import (
	"github.com/rcornwell/KI10/emu/memory"
	"github.com/rcornwell/KI10/emu/word"
)

/*
   Data channels locate buffers through a list of control words. Each
   word holds a negative word count and the address one before the
   buffer. A zero count is a jump to a new list, a zero word ends the
   transfer. In 22 bit mode the count is the top 14 bits and the address
   the low 22 bits, otherwise the count is in the left half and the
   address in the right.
*/

type Chain struct {
	Cwa     uint64 // Address of next control word.
	Cwc     uint64 // Count remaining at current address.
	Cda     uint64 // Current data address.
	In22Bit bool   // Controller in 22 bit mode.
}

// Start chain at initial control word address.
func (c *Chain) Start(icwa uint64) {
	c.Cwa = icwa
	c.Cwc = 0
	c.Cda = 0
}

// Next buffer address. Returns false at end of chain or when a control
// word can't be read.
func (c *Chain) Next(mem *memory.Memory) (uint64, bool) {
	for c.Cwc == 0 {
		cw, nxm := mem.GetWord(c.Cwa)
		if nxm || cw == 0 {
			return 0, false
		}
		c.Cwa = (c.Cwa + 1) & memory.AMASK
		if c.In22Bit {
			c.Cwc = (cw >> 22) & 0o37777
			c.Cda = cw & memory.AMASK
		} else {
			c.Cwc = word.Left(cw) & 0o37777
			c.Cda = word.Right(cw)
		}
		if c.Cwc == 0 {
			c.Cwa = c.Cda
		}
	}
	c.Cwc = (c.Cwc + 1) & 0o37777
	c.Cda = (c.Cda + 1) & memory.AMASK
	return c.Cda, true
}

// Completion word, next control word address and last data address.
func (c *Chain) Completion() uint64 {
	if c.In22Bit {
		return ((c.Cwa << 22) | c.Cda) & word.Mask
	}
	return word.Combine(c.Cwa, c.Cda)
}

// Completion word holding remaining count and last data address.
func (c *Chain) CountWord() uint64 {
	if c.In22Bit {
		return ((c.Cwc << 22) | c.Cda) & word.Mask
	}
	return word.Combine(c.Cwc, c.Cda)
}
