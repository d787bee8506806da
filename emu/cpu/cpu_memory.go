/*
 * KI10 - Paging and memory access.
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
	"github.com/rcornwell/KI10/emu/memory"
	"github.com/rcornwell/KI10/emu/word"
	"github.com/rcornwell/KI10/util/debug"
)

/*
   Each process table holds the page map as half words, one per 512 word
   page. A half word of page data is:

      18 19 20 21 22 23                 35
      +--+--+--+--+--+-------------------+
      |A |P |W |S |  |   physical page   |
      +--+--+--+--+--+-------------------+

   A access allowed, P public, W writable, S software. Executive pages
   below 340 are not mapped, 340-377 are mapped by the user process
   table and 400-777 by the executive process table.

   virtualMap returns page data with bit 18 set on failure and bit 22
   set for an unmapped page.
*/

// Address of word in a process table.
func (c *CPU) tableAddr(base, addr uint64) uint64 {
	if c.pageEnable {
		addr += base
	}
	return addr & memory.AMASK
}

func (c *CPU) readUserTable(addr uint64) uint64 {
	return c.mem.Read(c.tableAddr(c.userTable, addr))
}

func (c *CPU) writeUserTable(addr, data uint64) {
	c.mem.Write(c.tableAddr(c.userTable, addr), data&word.Mask)
}

func (c *CPU) readExecTable(addr uint64) uint64 {
	return c.mem.Read(c.tableAddr(c.execTable, addr))
}

func (c *CPU) writeExecTable(addr, data uint64) {
	c.mem.Write(c.tableAddr(c.execTable, addr), data&word.Mask)
}

// Read from process table of current mode.
func (c *CPU) readCurrentTable(addr uint64) uint64 {
	if c.userMode {
		return c.readUserTable(addr)
	}
	return c.readExecTable(addr)
}

// Check for a JRST 1 portal, the only way into a public page from
// a concealed one.
func (c *CPU) portal(pa uint64) bool {
	return (word.Left(c.mem.Read(pa&memory.AMASK)) & portalMask) == portalInst
}

// Look up page data for virtual address.
func (c *CPU) virtualMap(va uint64, access int) uint64 {
	va &= word.HalfMask
	page := va >> 9
	if !c.pageEnable {
		return BIT22 | page
	}

	user := c.userMode
	public := (c.flags & flagPUB) != 0
	if (access & accessPXCT) != 0 {
		sel := accessWritePXCT
		if (access & accessRead) != 0 {
			sel = accessReadPXCT
		}
		if (access & sel) != 0 {
			if (c.flags & flagIOT) != 0 {
				user = true
			}
			if (c.flags & flagAOV) != 0 {
				public = true
			}
		}
	}

	var mode uint64
	if user {
		mode = 1
	}
	execute := (access & accessExecute) != 0
	var pageData uint64
	switch {
	case !user && page < 0o340:
		if public && (!execute || !c.portal(va)) {
			c.pageFail = word.Combine(mode<<9|page, pageFailPublic)
			return BIT18 | BIT22 | page
		}
		return BIT22 | page
	case !user && page < 0o400:
		pageData = c.readUserTable(execPerUser + (page >> 1))
	case !user:
		pageData = c.readExecTable(page >> 1)
	case c.smallUser && (page&0o340) != 0:
		c.pageFail = word.Combine(mode<<9|page, pageFailSmall)
		return BIT18 | page
	default:
		pageData = c.readUserTable(page >> 1)
	}

	if (page & 1) == 0 {
		pageData = word.Left(pageData)
	} else {
		pageData = word.Right(pageData)
	}

	write := (access & accessWrite) != 0
	if (pageData&BIT18) == 0 || ((pageData&BIT20) == 0 && write) {
		code := (pageData >> 13) & 0o6
		if (pageData & BIT18) != 0 {
			code |= 0o10
		}
		if write {
			code |= 1
		}
		c.pageFail = word.Combine(mode<<9|page, code)
		if (pageData & BIT18) != 0 {
			return BIT18 | (pageData & 0o357777)
		}
		return 0o437777
	}

	if (pageData&BIT19) == 0 && public {
		if !execute || !c.portal((pageData&0o17777)<<9|(va&0o777)) {
			c.pageFail = word.Combine(mode<<9|page, pageFailPublic)
			return BIT18 | (pageData & 0o357777)
		}
	}

	if (pageData&BIT19) != 0 && execute {
		c.setFlags(flagPUB)
	}

	c.lastVA = va
	c.lastVAValid = true
	c.lastUser = user
	return pageData & 0o357777
}

// Convert virtual address to physical. A page failure stores the fail
// word and runs the page fail trap instruction.
func (c *CPU) mapAddress(va uint64, access int) (uint64, bool) {
	va &= word.HalfMask
	if !c.pageEnable {
		return va, true
	}
	pageData := c.virtualMap(va, access)
	if (pageData & BIT18) != 0 {
		debug.Debugf("CPU", c.debugMsk, debugPage, "Page fail %06o access %03o fail %012o pc %06o",
			va, access, c.pageFail, c.savePC)
		// Proprietary read violations let the instruction complete.
		if word.Right(c.pageFail) != pageFailPublic || (access&accessWrite) != 0 {
			c.pc = c.savePC
		}
		if c.userMode {
			c.writeUserTable(userPageFail, c.pageFail)
		} else {
			c.writeUserTable(execPageFail, c.pageFail)
		}
		if !c.interruptMode {
			c.xct(c.readCurrentTable(trapInst), true)
		}
		return 0, false
	}
	if (pageData & BIT22) != 0 {
		return va, true
	}
	return (pageData&0o17777)<<9 | (va & 0o777), true
}

// Read virtual word. Accumulator references under PXCT go to the
// previous context's block, or the executive stack.
func (c *CPU) getWord(va uint64, access int) (uint64, bool) {
	va &= word.HalfMask
	var data uint64
	var typ int
	switch {
	case va >= 16:
		pa, ok := c.mapAddress(va, access)
		if !ok {
			return 0, false
		}
		typ = modifyMemory
		data = c.mem.Read(pa)
		va = pa
	case (access & accessReadPXCT) == 0:
		typ = modifyAC
		data = c.acs[va]
	case (c.flags & flagIOT) == 0:
		typ = modifyStack
		data = c.readUserTable(c.execStack + va)
	case c.userRegSet != 0:
		typ = modifyAltAC
		data = c.fast[c.userRegSet][va]
	default:
		// User shadow area in memory.
		pa, ok := c.mapAddress(va, access)
		if !ok {
			return 0, false
		}
		typ = modifyMemory
		data = c.mem.Read(pa)
		va = pa
	}
	if (access & accessWrite) != 0 {
		c.modifyType = typ
		c.modifyAddress = va
	}
	return data, true
}

// Read word honouring PXCT.
func (c *CPU) readWord(va uint64) (uint64, bool) {
	return c.getWord(va, accessRead|c.pxct)
}

// Read word for later modifyWord.
func (c *CPU) readModify(va uint64) (uint64, bool) {
	return c.getWord(va, accessModify|c.pxct)
}

// Write word honouring PXCT.
func (c *CPU) writeWord(va, data uint64) bool {
	va &= word.HalfMask
	data &= word.Mask
	switch {
	case va >= 16:
		pa, ok := c.mapAddress(va, accessWrite|c.pxct)
		if !ok {
			return false
		}
		c.mem.Write(pa, data)
	case (c.pxct & accessWritePXCT) == 0:
		c.acs[va] = data
	case (c.flags & flagIOT) == 0:
		c.writeUserTable(c.execStack+va, data)
	case c.userRegSet != 0:
		c.fast[c.userRegSet][va] = data
	default:
		pa, ok := c.mapAddress(va, accessWrite|c.pxct)
		if !ok {
			return false
		}
		c.mem.Write(pa, data)
	}
	return true
}

// Write back word to where readModify found it.
func (c *CPU) modifyWord(data uint64) {
	data &= word.Mask
	switch c.modifyType {
	case modifyAC:
		c.acs[c.modifyAddress] = data
	case modifyMemory:
		c.mem.Write(c.modifyAddress, data)
	case modifyAltAC:
		c.fast[c.userRegSet][c.modifyAddress] = data
	case modifyStack:
		c.writeUserTable(c.execStack+c.modifyAddress, data)
	}
}

// Read a double word.
func (c *CPU) readDouble(va uint64) (uint64, uint64, bool) {
	hi, ok := c.readWord(va)
	if !ok {
		return 0, 0, false
	}
	lo, ok := c.readWord(va + 1)
	if !ok {
		return 0, 0, false
	}
	return hi, lo, true
}

// Write a double word. First part done marks the high word written so
// a page fail on the second word does not repeat it.
func (c *CPU) writeDouble(va, hi, lo uint64) bool {
	if (c.flags & flagFPD) == 0 {
		if !c.writeWord(va, hi) {
			return false
		}
	}
	c.flags |= flagFPD
	if !c.writeWord(va+1, lo) {
		return false
	}
	c.flags &^= flagFPD
	return true
}

/*
   The two low bits of most opcodes select where the operand comes from
   and where the result goes:

      0  Basic      C(E)          -> AC
      1  Immediate  0,,E          -> AC
      2  Memory     C(E)          -> E
      3  Both       C(E)          -> E and AC

   Moves differ in the memory form, which moves AC to E, and in the
   both form, which leaves AC 0 alone.
*/

// Fetch operand for instruction.
func (c *CPU) readOperand(step *stepInfo) (uint64, bool) {
	switch step.opcode & 3 {
	case 0:
		return c.readWord(step.ea)
	case 1:
		return step.ea, true
	}
	return c.readModify(step.ea)
}

// Store result of instruction, memory is written before the AC.
func (c *CPU) writeResult(step *stepInfo, data uint64) {
	data &= word.Mask
	if (step.opcode & 2) != 0 {
		c.modifyWord(data)
		if (step.opcode & 1) == 0 {
			return
		}
	}
	c.acs[step.ac] = data
}

// Fetch operand for move instructions.
func (c *CPU) readMove(step *stepInfo) (uint64, bool) {
	switch step.opcode & 3 {
	case 0:
		return c.readWord(step.ea)
	case 1:
		return step.ea, true
	case 2:
		return c.acs[step.ac], true
	}
	return c.readModify(step.ea)
}

// Store result of move instructions.
func (c *CPU) writeMove(step *stepInfo, data uint64) bool {
	data &= word.Mask
	switch step.opcode & 3 {
	case 2:
		return c.writeWord(step.ea, data)
	case 3:
		c.modifyWord(data)
		if step.ac == 0 {
			return true
		}
	}
	c.acs[step.ac] = data
	return true
}

// Store for set instructions which have no operand.
func (c *CPU) writeSet(step *stepInfo, data uint64) {
	if (step.opcode & 2) != 0 {
		if !c.writeWord(step.ea, data) {
			return
		}
	}
	if (step.opcode & 3) != 2 {
		c.acs[step.ac] = data & word.Mask
	}
}
