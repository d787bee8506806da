/*
 * KI10 - KI10 processor.
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
	"errors"
	"log/slog"
	"strconv"

	dev "github.com/rcornwell/KI10/emu/device"
	disassembler "github.com/rcornwell/KI10/emu/disassemble"
	"github.com/rcornwell/KI10/emu/event"
	"github.com/rcornwell/KI10/emu/memory"
	"github.com/rcornwell/KI10/emu/word"
	"github.com/rcornwell/KI10/util/debug"
)

/*
   The KI10 was introduced by DEC in 1972 as the second processor of
   the PDP-10 family. It has 36 bit words and an 18 bit virtual address
   space mapped by a pager onto a 22 bit physical address space. There
   are four blocks of 16 fast accumulators, block 0 is used in executive
   mode and one of the others may be selected for the user.

   All instructions are one word long:

      0        8 9   12 13 14   17 18                     35
      +---------+------+--+------+-------------------------+
      | opcode  |  AC  |I |  X   |            Y            |
      +---------+------+--+------+-------------------------+

   I/O instructions replace the opcode and AC with:

      0  2 3         9 10  12
      +---+-----------+-----+
      |111|  device   | op  |
      +---+-----------+-----+

   The effective address is Y plus the right half of accumulator X when
   X is not zero. If I is set the word at that address supplies a new
   I, X and Y and the calculation repeats.
*/

const (
	// Debug options.
	debugInst = 1 << iota
	debugIRQ
	debugIO
	debugPage
	debugTrap
)

var debugOption = map[string]int{
	"INST": debugInst,
	"IRQ":  debugIRQ,
	"IO":   debugIO,
	"PAGE": debugPage,
	"TRAP": debugTrap,
}

// CPU holds the complete state of one processor.
type CPU struct {
	mem   *memory.Memory
	bus   *dev.Bus
	queue event.Queue

	pc     uint64        // Program counter
	savePC uint64        // Address of current instruction
	flags  uint64        // Processor flags
	fast   [4][16]uint64 // Fast memory accumulator blocks
	acs    *[16]uint64   // Accumulators in use
	halted bool          // Processor stopped
	table  [512]opFunc   // Operation table

	userMode      bool   // Executing in user mode
	pageEnable    bool   // Pager translating
	smallUser     bool   // User limited to 32 pages in each half
	userRegSet    int    // Accumulator block for user mode
	userTable     uint64 // Physical address of user process table
	execTable     uint64 // Physical address of executive process table
	execStack     uint64 // Offset of executive stack in user table
	pageFail      uint64 // Last page fail word
	lastVA        uint64 // Last virtual address mapped
	lastVAValid   bool   // lastVA holds an address
	lastUser      bool   // Last reference was in user space
	pxct          int    // Previous context flags of XCT
	modifyType    int    // Where read for modify came from
	modifyAddress uint64 // Address of read for modify

	interruptMode bool   // Executing an interrupt instruction
	interruptSkip bool   // Interrupt instruction did not skip
	checkIRQ      bool   // Interrupt queue needs examining
	pi            uint64 // Priority interrupt status
	apr           uint64 // Arithmetic processor status
	pagConi       uint64 // Pager status bits
	pagLeft       uint64 // Last user DATAO for DATAI
	pagRight      uint64 // Last exec DATAO for DATAI
	dataSwitches  uint64 // Console data switches
	opSwitches    uint64 // Console operator switches

	debugMsk int // Debug option mask.
}

// Create a processor on memory and register its internal devices.
func New(mem *memory.Memory, bus *dev.Bus) (*CPU, error) {
	c := &CPU{mem: mem, bus: bus}
	c.createTable()
	c.Reset()
	if err := bus.Add(dev.APR, "APR", &aprDevice{cpu: c}); err != nil {
		return nil, err
	}
	if err := bus.Add(dev.PI, "PI", &piDevice{cpu: c}); err != nil {
		return nil, err
	}
	if err := bus.Add(dev.PAG, "PAG", &pagDevice{cpu: c}); err != nil {
		return nil, err
	}
	return c, nil
}

// Reset processor to power on state.
func (c *CPU) Reset() {
	c.pc = 0
	c.savePC = 0
	c.flags = 0
	c.fast = [4][16]uint64{}
	c.acs = &c.fast[0]
	c.halted = true
	c.userMode = false
	c.pageEnable = false
	c.smallUser = false
	c.userRegSet = 0
	c.userTable = 0
	c.execTable = 0
	c.execStack = 0
	c.pageFail = 0
	c.lastVAValid = false
	c.pxct = 0
	c.interruptMode = false
	c.interruptSkip = false
	c.checkIRQ = false
	c.pi = 0
	c.apr = 0
	c.pagConi = 0
	c.pagLeft = 0
	c.pagRight = 0
	c.queue.Clear()
}

// Enable debug options.
func (c *CPU) Debug(opt string) error {
	flag, ok := debugOption[opt]
	if !ok {
		return errors.New("CPU debug option invalid: " + opt)
	}
	c.debugMsk |= flag
	return nil
}

// Start processor at address.
func (c *CPU) Start(addr uint64) {
	c.pc = addr & word.HalfMask
	c.halted = false
	slog.Info("CPU started", "pc", octal(c.pc))
}

// Continue from current PC.
func (c *CPU) Continue() {
	c.halted = false
}

// Stop processor.
func (c *CPU) Stop() {
	c.halted = true
}

// Halted returns true if the processor is stopped.
func (c *CPU) Halted() bool {
	return c.halted
}

// PC returns the program counter.
func (c *CPU) PC() uint64 {
	return c.pc
}

// Flags returns the processor flags.
func (c *CPU) Flags() uint64 {
	return c.flags
}

// Set console data switches.
func (c *CPU) SetSwitches(data uint64) {
	c.dataSwitches = data & word.Mask
}

// Set console operator switches read by CONI PI.
func (c *CPU) SetOpSwitches(data uint64) {
	c.opSwitches = data & 0o777
}

// Examine a word, addresses below 20 are the current accumulators.
func (c *CPU) Examine(addr uint64) (uint64, bool) {
	if addr < 16 {
		return c.acs[addr], true
	}
	v, nxm := c.mem.GetWord(addr & memory.AMASK)
	return v, !nxm
}

// Deposit a word, addresses below 20 are the current accumulators.
func (c *CPU) Deposit(addr, data uint64) bool {
	data &= word.Mask
	if addr < 16 {
		c.acs[addr] = data
		return true
	}
	return !c.mem.PutWord(addr&memory.AMASK, data)
}

// Step takes an interrupt, trap or one instruction.
func (c *CPU) Step() {
	if c.halted {
		return
	}
	if c.checkIRQ {
		c.checkInterrupt()
	}
	if (c.flags&flagTR3) != 0 && c.pageEnable {
		inst := c.readCurrentTable(trapInst + ((c.flags & flagTR3) >> 7))
		c.flags &^= flagTR3
		c.savePC = c.pc
		debug.Debugf("CPU", c.debugMsk, debugTrap, "Trap %012o at %06o", inst, c.pc)
		c.xct(inst, true)
		return
	}
	c.savePC = c.pc
	c.pc = (c.pc + 1) & word.HalfMask
	inst, ok := c.getWord(c.savePC, accessRead|accessExecute)
	if !ok {
		return
	}
	if (c.debugMsk & debugInst) != 0 {
		debug.Debugf("CPU", c.debugMsk, debugInst, "%s flags %06o", disassembler.PrintInst(c.savePC, inst), c.flags)
	}
	c.xct(inst, false)
}

// Execute one instruction word.
func (c *CPU) xct(inst uint64, trap bool) {
	step := stepInfo{
		inst:   inst,
		opcode: uint32(inst >> 27),
		ac:     (inst >> 23) & 0xf,
		trap:   trap,
	}
	ea, ok := c.effectiveAddress(inst)
	if !ok {
		return
	}
	step.eaWord = ea
	step.ea = word.Right(ea)
	c.table[step.opcode](&step)
}

// Compute effective address, the left half of the result is from the
// last index register or indirect word.
func (c *CPU) effectiveAddress(inst uint64) (uint64, bool) {
	ea := inst
	level := 0
	for {
		indirect := (ea & 0o20000000) != 0
		if x := (ea >> 18) & 0xf; x != 0 {
			ea = word.Combine(word.Left(c.acs[x]), c.acs[x]+ea)
		}
		if !indirect {
			break
		}
		level++
		if level > maxIndirect {
			c.pc = c.savePC
			slog.Warn("Indirection limit exceeded", "pc", octal(c.savePC))
			return 0, false
		}
		var ok bool
		ea, ok = c.getWord(word.Right(ea), accessRead)
		if !ok {
			return 0, false
		}
	}
	return ea, true
}

// Create function table.
func (c *CPU) createTable() {
	// 000 and 040-077 are MUUO, 001-037 are LUUO.
	for op := range 0o100 {
		c.table[op] = c.opUUO
	}

	copy(c.table[0o100:0o200], []opFunc{
		//  0         1          2          3          4          5          6          7
		c.opUUO, c.opUUO, c.opUUO, c.opUUO, c.opUUO, c.opUUO, c.opUUO, c.opUUO, // 10x
		c.opDFloat, c.opDFloat, c.opDFloat, c.opDFloat, c.opUUO, c.opUUO, c.opUUO, c.opUUO, // 11x
		c.opDMOVE, c.opDMOVN, c.opFIX, c.opUUO, c.opDMOVEM, c.opDMOVNM, c.opFIXR, c.opFLTR, // 12x
		c.opUFA, c.opDFN, c.opFSC, c.opByte, c.opByte, c.opByte, c.opByte, c.opByte, // 13x
		c.opFloat, c.opFloatLong, c.opFloat, c.opFloat, c.opFloat, c.opFloat, c.opFloat, c.opFloat, // 14x
		c.opFloat, c.opFloatLong, c.opFloat, c.opFloat, c.opFloat, c.opFloat, c.opFloat, c.opFloat, // 15x
		c.opFloat, c.opFloatLong, c.opFloat, c.opFloat, c.opFloat, c.opFloat, c.opFloat, c.opFloat, // 16x
		c.opFloat, c.opFDVL, c.opFloat, c.opFloat, c.opFloat, c.opFloat, c.opFloat, c.opFloat, // 17x
	})

	copy(c.table[0o200:0o300], []opFunc{
		//  0         1          2          3          4          5          6          7
		c.opMOVE, c.opMOVE, c.opMOVE, c.opMOVE, c.opMOVS, c.opMOVS, c.opMOVS, c.opMOVS, // 20x
		c.opMOVN, c.opMOVN, c.opMOVN, c.opMOVN, c.opMOVM, c.opMOVM, c.opMOVM, c.opMOVM, // 21x
		c.opIMUL, c.opIMUL, c.opIMUL, c.opIMUL, c.opMUL, c.opMUL, c.opMUL, c.opMUL, // 22x
		c.opIDIV, c.opIDIV, c.opIDIV, c.opIDIV, c.opDIV, c.opDIV, c.opDIV, c.opDIV, // 23x
		c.opASH, c.opROT, c.opLSH, c.opJFFO, c.opASHC, c.opROTC, c.opLSHC, c.opUUO, // 24x
		c.opEXCH, c.opBLT, c.opAOBJP, c.opAOBJN, c.opJRST, c.opJFCL, c.opXCT, c.opMAP, // 25x
		c.opPUSHJ, c.opPUSH, c.opPOP, c.opPOPJ, c.opJSR, c.opJSP, c.opJSA, c.opJRA, // 26x
		c.opADD, c.opADD, c.opADD, c.opADD, c.opSUB, c.opSUB, c.opSUB, c.opSUB, // 27x
	})

	for op := 0o300; op < 0o320; op++ {
		if op < 0o310 {
			c.table[op] = c.opCAI
		} else {
			c.table[op] = c.opCAM
		}
	}
	for op := 0o320; op < 0o400; op++ {
		switch op & 0o770 {
		case 0o320:
			c.table[op] = c.opJUMP
		case 0o330:
			c.table[op] = c.opSKIP
		case 0o340:
			c.table[op] = c.opAOJ
		case 0o350:
			c.table[op] = c.opAOS
		case 0o360:
			c.table[op] = c.opSOJ
		case 0o370:
			c.table[op] = c.opSOS
		}
	}
	for op := 0o400; op < 0o500; op++ {
		c.table[op] = c.opBool
	}
	for op := 0o500; op < 0o600; op++ {
		c.table[op] = c.opHalf
	}
	for op := 0o600; op < 0o700; op++ {
		c.table[op] = c.opTest
	}
	for op := 0o700; op < 0o1000; op++ {
		c.table[op] = c.opIO
	}
}

// Set user or executive mode and select accumulator block.
func (c *CPU) setUserMode(user bool) {
	c.userMode = user
	if user {
		c.acs = &c.fast[c.userRegSet]
	} else {
		c.acs = &c.fast[0]
	}
}

// Replace flags, switching accumulators if user mode changes.
func (c *CPU) writeFlags(flags uint64) {
	flags &= word.HalfMask
	if ((c.flags ^ flags) & flagUSR) != 0 {
		c.setUserMode((flags & flagUSR) != 0)
	}
	c.flags = flags
}

// Set flags, interrupt instructions can't set overflow or traps.
func (c *CPU) setFlags(mask uint64) {
	if c.interruptMode {
		mask &^= flagAOV | flagTR1 | flagTR2
	}
	if (mask & flagUSR) != 0 {
		c.setUserMode(true)
	}
	c.flags |= mask
}

// Clear flags.
func (c *CPU) clearFlags(mask uint64) {
	if (mask & flagUSR) != 0 {
		c.setUserMode(false)
	}
	c.flags &^= mask
}

// Privileged if not public and either executive or user I/O.
func (c *CPU) privileged() bool {
	return (c.flags&flagPUB) == 0 && (!c.userMode || (c.flags&flagIOT) != 0)
}

// PC word saved by jumps and traps, executive mode hides overflow.
func (c *CPU) pcWord() uint64 {
	flags := c.flags
	if (flags & flagUSR) == 0 {
		flags &^= flagAOV
	}
	return word.Combine(flags, c.pc)
}

func (c *CPU) jump(addr uint64) {
	c.pc = addr & word.HalfMask
}

func (c *CPU) skip() {
	c.pc = (c.pc + 1) & word.HalfMask
}

// Skip of an instruction that may be executed as an interrupt
// instruction, where a skip dismisses the interrupt.
func (c *CPU) skipSpecial(cond bool) {
	if cond {
		if !c.interruptMode {
			c.skip()
		}
	} else {
		c.interruptSkip = false
	}
}

// Condition of compare, skip and jump instructions on a signed result.
func condition(op uint32, cmp int) bool {
	switch op & 7 {
	case 1: // L
		return cmp < 0
	case 2: // E
		return cmp == 0
	case 3: // LE
		return cmp <= 0
	case 4: // A
		return true
	case 5: // GE
		return cmp >= 0
	case 6: // N
		return cmp != 0
	case 7: // G
		return cmp > 0
	}
	return false
}

// Signed compare of two words.
func compare(a, b uint64) int {
	sa := word.ToSigned(a)
	sb := word.ToSigned(b)
	switch {
	case sa == sb:
		return 0
	case sa > sb:
		return 1
	}
	return -1
}

func octal(v uint64) string {
	return strconv.FormatUint(v, 8)
}
