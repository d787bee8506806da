/*
 * KI10 - Byte instructions.
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
	"github.com/rcornwell/KI10/emu/word"
)

/*
   A byte pointer selects S bits of the word at its effective address,
   P bits from the right:

      0    5 6    11 12 13 14   17 18                 35
      +-----+-------+--+--+------+---------------------+
      |  P  |   S   |  |I |  X   |          Y          |
      +-----+-------+--+--+------+---------------------+

   Incrementing moves P down by S, stepping Y to the next word when the
   byte would not fit. First part done is set once the pointer has been
   stored so a page fail on the byte does not increment it again.
*/

// Advance byte pointer to next byte.
func incrementPointer(ptr uint64) uint64 {
	pos := int(ptr >> 30)
	size := int((ptr >> 24) & 0o77)
	pos -= size
	if pos < 0 {
		pos = (36 - size) & 0o77
		ptr = word.Combine(word.Left(ptr), ptr+1)
	}
	return uint64(pos)<<30 | (ptr & (1<<30 - 1))
}

// IBP, ILDB, LDB, IDPB, DPB.
func (c *CPU) opByte(step *stepInfo) {
	increment := step.opcode == 0o133 || step.opcode == 0o134 || step.opcode == 0o136
	var ptr uint64
	var ok bool
	if !increment || (c.flags&flagFPD) != 0 {
		if ptr, ok = c.getWord(step.ea, accessRead); !ok {
			return
		}
	} else {
		if ptr, ok = c.getWord(step.ea, accessModify); !ok {
			return
		}
		ptr = incrementPointer(ptr)
		c.modifyWord(ptr)
		c.flags |= flagFPD
	}

	if step.opcode != 0o133 {
		ea, ok := c.effectiveAddress(ptr)
		if !ok {
			return
		}
		addr := word.Right(ea)
		pos := int(ptr >> 30)
		size := min(int((ptr>>24)&0o77), 36-pos)
		load := step.opcode == 0o134 || step.opcode == 0o135
		switch {
		case load && size <= 0:
			c.acs[step.ac] = 0
		case load:
			data, ok := c.getWord(addr, accessRead|c.pxct)
			if !ok {
				return
			}
			c.acs[step.ac] = (data >> pos) & (uint64(1)<<size - 1)
		case size > 0:
			data, ok := c.getWord(addr, accessModify|c.pxct)
			if !ok {
				return
			}
			mask := (uint64(1)<<size - 1) << pos
			c.modifyWord(data&^mask | (c.acs[step.ac]<<pos)&mask)
		}
	}
	c.clearFlags(flagFPD)
}
