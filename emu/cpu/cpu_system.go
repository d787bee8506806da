/*
 * KI10 - I/O instructions and internal devices.
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
	dev "github.com/rcornwell/KI10/emu/device"
	"github.com/rcornwell/KI10/emu/word"
	"github.com/rcornwell/KI10/util/debug"
)

// Serial number reported by CONI PAG.
const serialNumber = 514

var ioName = [8]string{"BLKI", "DATAI", "BLKO", "DATAO", "CONO", "CONI", "CONSZ", "CONSO"}

// I/O instructions, only allowed in executive mode or with user I/O.
func (c *CPU) opIO(step *stepInfo) {
	if !c.privileged() {
		c.opUUO(step)
		return
	}
	code := int((step.inst >> 26) & 0o177)
	fn := (step.inst >> 23) & 7
	ea := step.ea
	debug.Debugf("CPU", c.debugMsk, debugIO, "%s %03o,%06o pc %06o", ioName[fn], code<<2, ea, c.savePC)

	if fn == ioBLKI || fn == ioBLKO {
		ptr, ok := c.readModify(ea)
		if !ok {
			return
		}
		ptr = word.Combine(word.Left(ptr)+1, ptr+1)
		c.modifyWord(ptr)
		c.skipSpecial(word.Left(ptr) != 0)
		ea = word.Right(ptr)
		fn++
	}

	d := c.bus.Code(code)
	var coni uint64
	if d != nil && fn >= ioCONI {
		coni = d.Coni()
	}
	switch fn {
	case ioDATAI:
		var data uint64
		if d != nil {
			data = d.Datai()
		}
		c.writeWord(ea, data)
	case ioDATAO:
		data, ok := c.readWord(ea)
		if ok && d != nil {
			d.Datao(data)
		}
	case ioCONO:
		if d != nil {
			d.Cono(ea)
		}
	case ioCONI:
		c.writeWord(ea, coni)
	case ioCONSZ:
		c.skipSpecial((coni & ea & word.HalfMask) == 0)
	case ioCONSO:
		c.skipSpecial((coni & ea & word.HalfMask) != 0)
	}
}

// ClockTick is the 60 Hz line clock. It sets clock done and requests an
// interrupt when enabled.
func (c *CPU) ClockTick() {
	if c.halted || (c.apr&BIT26) != 0 {
		return
	}
	c.apr |= BIT26
	if (c.apr & BIT25) != 0 {
		c.Interrupt(true, 0, dev.APR, int(c.apr), nil, 0)
	}
}

/*
   APR status:

      21     23      25        26     28       29   30-32      33-35
      clock  auto    clock     clock  I/O page NXM  error PI   clock PI
      on     restart interrupt done   fail
*/

type aprDevice struct {
	cpu *CPU
}

// Processor debug options are set through its APR device.
func (d *aprDevice) Debug(opt string) error {
	return d.cpu.Debug(opt)
}

func (d *aprDevice) Cono(e uint64) {
	c := d.cpu
	if (e & BIT20) != 0 {
		c.apr &^= BIT21
	}
	if (e & BIT22) != 0 {
		c.apr &^= BIT23
	}
	if (e & BIT24) != 0 {
		c.apr &^= BIT25
		c.Interrupt(true, -1, dev.APR, 0, nil, 0)
	}
	if (e & BIT26) != 0 {
		c.Interrupt(true, -1, dev.APR, 0, nil, 0)
	}
	c.apr |= e & (BIT21 | BIT23 | BIT25)
	c.apr &^= BIT26 | BIT28 | BIT29
	c.apr = (c.apr &^ 0o77) | (e & 0o77)
}

func (d *aprDevice) Coni() uint64 {
	return d.cpu.apr
}

// DATAO APR loads the console data switches.
func (d *aprDevice) Datao(data uint64) {
	d.cpu.dataSwitches = data
}

func (d *aprDevice) Datai() uint64 {
	return d.cpu.dataSwitches
}

type piDevice struct {
	cpu *CPU
}

func (d *piDevice) Cono(e uint64) {
	c := d.cpu
	if (e & BIT18) != 0 {
		c.apr &^= BIT22
	}
	if (e & BIT19) != 0 {
		c.apr &^= BIT19
	}
	if (e & BIT20) != 0 {
		c.apr &^= BIT20
	}
	if (e & BIT21) != 0 {
		c.apr |= BIT20
	}
	if (e & BIT22) != 0 {
		c.pi &^= (e & 0x7f) << 18
	}
	if (e & BIT23) != 0 {
		c.pi = 0
		c.queue.Clear()
	}
	if (e & BIT24) != 0 {
		c.pi |= (e & 0x7f) << 18
	}
	if (e & BIT25) != 0 {
		c.pi |= e & 0x7f
	}
	if (e & BIT26) != 0 {
		c.pi &^= e & 0x7f
	}
	if (e & BIT27) != 0 {
		c.pi &^= BIT28
	}
	if (e & BIT28) != 0 {
		c.pi |= BIT28
	}
	c.checkIRQ = true
}

// CONI PI has the operator switches in the left half.
func (d *piDevice) Coni() uint64 {
	return (d.cpu.opSwitches<<27 + d.cpu.pi) & word.Mask
}

func (d *piDevice) Datao(_ uint64) {
}

func (d *piDevice) Datai() uint64 {
	return 0
}

/*
   DATAO PAG loads the process table addresses. Each half only takes
   effect when its bit 0 is set:

      18 19-20 21 22     23-35
      +-+-----+--+------+---------------------+
      |V| AC  |S |enable|  process table page |
      +-+-----+--+------+---------------------+

   In the left half, AC selects the user accumulator block and S limits
   the user to small addresses. In the right half bit 22 enables paging.
*/

type pagDevice struct {
	cpu *CPU
}

// CONO PAG sets the executive stack base and the MAP counter.
func (d *pagDevice) Cono(e uint64) {
	c := d.cpu
	c.execStack = (e >> 9) & 0x1f0
	c.pagConi = (c.pagConi & 0x3ffe0) | (e & 0x1f)
}

func (d *pagDevice) Coni() uint64 {
	c := d.cpu
	c.pagConi &= 0x1f
	if !c.lastUser {
		c.pagConi |= BIT27
	}
	if !c.lastVAValid {
		c.pagConi |= BIT30
	} else {
		c.pagConi |= ^c.lastVA & 0x3fe00
	}
	return c.pagConi + serialNumber*BIT9
}

func (d *pagDevice) Datao(data uint64) {
	c := d.cpu
	left, right := word.Split(data)
	if (right & word.HalfSign) != 0 {
		c.execTable = (right & 0x1fff) << 9
		c.pageEnable = (right & 0o20000) != 0
		c.pagRight = right &^ word.HalfSign
	}
	if (left & word.HalfSign) != 0 {
		c.userTable = (left & 0x1fff) << 9
		c.smallUser = (left & 0o40000) != 0
		c.userRegSet = int((left >> 15) & 3)
		if c.userMode {
			c.setUserMode(true)
		}
		c.pagLeft = left &^ word.HalfSign
	}
	c.lastVAValid = false
	debug.Debugf("CPU", c.debugMsk, debugPage, "Pager exec %08o user %08o enable %v",
		c.execTable, c.userTable, c.pageEnable)
}

func (d *pagDevice) Datai() uint64 {
	return word.Combine(d.cpu.pagLeft, d.cpu.pagRight)
}
