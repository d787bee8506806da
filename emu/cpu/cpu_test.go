/*
 * KI10 - Processor tests.
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
	"testing"

	dev "github.com/rcornwell/KI10/emu/device"
	"github.com/rcornwell/KI10/emu/memory"
	"github.com/rcornwell/KI10/emu/word"
)

// Device used to watch I/O instructions.
type testDevice struct {
	cono  uint64
	coni  uint64
	datao []uint64
	datai uint64
}

func (d *testDevice) Cono(e uint64)     { d.cono = e }
func (d *testDevice) Coni() uint64      { return d.coni }
func (d *testDevice) Datao(data uint64) { d.datao = append(d.datao, data) }
func (d *testDevice) Datai() uint64     { return d.datai }

const testDev uint16 = 0o200

func setup(t *testing.T) (*CPU, *testDevice) {
	t.Helper()
	bus := dev.NewBus()
	c, err := New(memory.New(256), bus)
	if err != nil {
		t.Fatalf("Unable to create CPU: %v", err)
	}
	td := &testDevice{}
	if err := bus.Add(testDev, "TST", td); err != nil {
		t.Fatalf("Unable to add test device: %v", err)
	}
	return c, td
}

// Build an instruction word.
func inst(op, ac, i, x, y uint64) uint64 {
	return op<<27 | ac<<23 | i<<22 | x<<18 | (y & word.HalfMask)
}

// Build an I/O instruction word.
func ioInst(devNum uint16, fn, y uint64) uint64 {
	return 7<<33 | uint64(devNum>>2)<<26 | fn<<23 | (y & word.HalfMask)
}

// Run from 1000 until a zero word or halt.
func (c *CPU) testInst(steps int) {
	c.Start(0o1000)
	for range steps {
		c.Step()
		if c.halted || c.mem.Read(c.pc) == 0 {
			break
		}
	}
}

func TestADDOverflow(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o270, 1, 0, 0, 0o2000)) // ADD 1,2000
	c.mem.Write(0o2000, 1)
	c.acs[1] = 0o377777777777
	c.testInst(10)
	if c.acs[1] != 0o400000000000 {
		t.Errorf("ADD result incorrect got: %012o wanted: %012o", c.acs[1], 0o400000000000)
	}
	if c.flags != flagAOV|flagTR1|flagC1 {
		t.Errorf("ADD flags incorrect got: %06o wanted: %06o", c.flags, flagAOV|flagTR1|flagC1)
	}
}

func TestADDModes(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o271, 1, 0, 0, 5))      // ADDI 1,5
	c.mem.Write(0o1001, inst(0o272, 1, 0, 0, 0o2000)) // ADDM 1,2000
	c.mem.Write(0o1002, inst(0o273, 2, 0, 0, 0o2001)) // ADDB 2,2001
	c.mem.Write(0o2000, 10)
	c.mem.Write(0o2001, word.Neg(3))
	c.acs[1] = 2
	c.acs[2] = 1
	c.testInst(10)
	if c.acs[1] != 7 {
		t.Errorf("ADDI result incorrect got: %012o wanted: %012o", c.acs[1], 7)
	}
	if v := c.mem.Read(0o2000); v != 17 {
		t.Errorf("ADDM result incorrect got: %012o wanted: %012o", v, 17)
	}
	if v := c.mem.Read(0o2001); v != word.Neg(2) || c.acs[2] != word.Neg(2) {
		t.Errorf("ADDB result incorrect got: %012o %012o wanted: %012o", v, c.acs[2], word.Neg(2))
	}
}

func TestSUB(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o275, 1, 0, 0, 0)) // SUBI 1,0
	c.acs[1] = 5
	c.testInst(10)
	if c.acs[1] != 5 {
		t.Errorf("SUBI result incorrect got: %012o wanted: %012o", c.acs[1], 5)
	}
	if c.flags != flagC0|flagC1 {
		t.Errorf("SUBI flags incorrect got: %06o wanted: %06o", c.flags, flagC0|flagC1)
	}
}

func TestAOJOverflow(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o340, 1, 0, 0, 0)) // AOJ 1,
	c.acs[1] = word.LowMask
	c.testInst(10)
	if c.acs[1] != word.Sign {
		t.Errorf("AOJ result incorrect got: %012o wanted: %012o", c.acs[1], word.Sign)
	}
	if (c.flags & flagAOV) == 0 {
		t.Errorf("AOJ did not set overflow flags: %06o", c.flags)
	}
}

func TestMULMaxNegative(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o224, 1, 0, 0, 0o2000)) // MUL 1,2000
	c.mem.Write(0o2000, word.Sign)
	c.acs[1] = word.Sign
	c.testInst(10)
	if c.acs[1] != word.Sign || c.acs[2] != word.Sign {
		t.Errorf("MUL result incorrect got: %012o %012o wanted: %012o %012o",
			c.acs[1], c.acs[2], word.Sign, word.Sign)
	}
	if c.flags != flagAOV|flagTR1 {
		t.Errorf("MUL flags incorrect got: %06o wanted: %06o", c.flags, flagAOV|flagTR1)
	}
}

func TestIMUL(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o221, 1, 0, 0, 6)) // IMULI 1,6
	c.acs[1] = word.Neg(7)
	c.testInst(10)
	if c.acs[1] != word.Neg(42) {
		t.Errorf("IMULI result incorrect got: %012o wanted: %012o", c.acs[1], word.Neg(42))
	}
	if c.flags != 0 {
		t.Errorf("IMULI flags set: %06o", c.flags)
	}
}

func TestIDIV(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o231, 1, 0, 0, 2)) // IDIVI 1,2
	c.acs[1] = word.Neg(7)
	c.testInst(10)
	if c.acs[1] != word.Neg(3) || c.acs[2] != word.Neg(1) {
		t.Errorf("IDIVI result incorrect got: %012o %012o wanted: %012o %012o",
			c.acs[1], c.acs[2], word.Neg(3), word.Neg(1))
	}

	// Divide by zero leaves AC alone.
	c.mem.Write(0o1000, inst(0o231, 1, 0, 0, 0)) // IDIVI 1,0
	c.acs[1] = 123
	c.acs[2] = 456
	c.flags = 0
	c.testInst(10)
	if c.acs[1] != 123 || c.acs[2] != 456 {
		t.Errorf("IDIVI by zero changed AC got: %012o %012o", c.acs[1], c.acs[2])
	}
	if c.flags != flagAOV|flagTR1|flagDCX {
		t.Errorf("IDIVI by zero flags incorrect got: %06o wanted: %06o", c.flags, flagAOV|flagTR1|flagDCX)
	}
}

func TestDIV(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o234, 1, 0, 0, 0o2000)) // DIV 1,2000
	c.mem.Write(0o2000, 10)
	c.acs[1] = 0
	c.acs[2] = 123
	c.testInst(10)
	if c.acs[1] != 12 || c.acs[2] != 3 {
		t.Errorf("DIV result incorrect got: %012o %012o wanted: %012o %012o", c.acs[1], c.acs[2], 12, 3)
	}
}

func TestMOVN(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o210, 1, 0, 0, 0o2000)) // MOVN 1,2000
	c.mem.Write(0o2000, word.Sign)
	c.testInst(10)
	if c.acs[1] != word.Sign {
		t.Errorf("MOVN result incorrect got: %012o wanted: %012o", c.acs[1], word.Sign)
	}
	if c.flags != flagAOV|flagTR1|flagC1 {
		t.Errorf("MOVN flags incorrect got: %06o wanted: %06o", c.flags, flagAOV|flagTR1|flagC1)
	}
}

func TestMOVES(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o202, 1, 0, 0, 0o2000)) // MOVEM 1,2000
	c.mem.Write(0o1001, inst(0o204, 2, 0, 0, 0o2000)) // MOVS 2,2000
	c.mem.Write(0o1002, inst(0o201, 3, 0, 2, 4))      // MOVEI 3,4(2)
	c.acs[1] = 0o123456654321
	c.testInst(10)
	if v := c.mem.Read(0o2000); v != 0o123456654321 {
		t.Errorf("MOVEM result incorrect got: %012o wanted: %012o", v, 0o123456654321)
	}
	if c.acs[2] != 0o654321123456 {
		t.Errorf("MOVS result incorrect got: %012o wanted: %012o", c.acs[2], 0o654321123456)
	}
	if c.acs[3] != 0o123462 {
		t.Errorf("MOVEI indexed incorrect got: %012o wanted: %012o", c.acs[3], 0o123462)
	}
}

func TestShifts(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o240, 1, 0, 0, 3))        // ASH 1,3
	c.mem.Write(0o1001, inst(0o240, 2, 0, 0, 0o777777)) // ASH 2,-1
	c.mem.Write(0o1002, inst(0o241, 3, 0, 0, 1))        // ROT 3,1
	c.mem.Write(0o1003, inst(0o242, 4, 0, 0, 0o777777)) // LSH 4,-1
	c.acs[1] = 1
	c.acs[2] = word.Neg(4)
	c.acs[3] = word.Sign
	c.acs[4] = word.Sign
	c.testInst(10)
	if c.acs[1] != 8 {
		t.Errorf("ASH left incorrect got: %012o wanted: %012o", c.acs[1], 8)
	}
	if c.acs[2] != word.Neg(2) {
		t.Errorf("ASH right incorrect got: %012o wanted: %012o", c.acs[2], word.Neg(2))
	}
	if c.acs[3] != 1 {
		t.Errorf("ROT incorrect got: %012o wanted: %012o", c.acs[3], 1)
	}
	if c.acs[4] != 0o200000000000 {
		t.Errorf("LSH incorrect got: %012o wanted: %012o", c.acs[4], 0o200000000000)
	}
	if c.flags != 0 {
		t.Errorf("Shift flags set: %06o", c.flags)
	}
}

func TestASHOverflow(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o240, 1, 0, 0, 1)) // ASH 1,1
	c.acs[1] = 0o200000000000
	c.testInst(10)
	if c.acs[1] != 0 {
		t.Errorf("ASH result incorrect got: %012o wanted: %012o", c.acs[1], 0)
	}
	if c.flags != flagAOV|flagTR1 {
		t.Errorf("ASH flags incorrect got: %06o wanted: %06o", c.flags, flagAOV|flagTR1)
	}
}

func TestJFFO(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o243, 1, 0, 0, 0o1005)) // JFFO 1,1005
	c.mem.Write(0o1005, inst(0o201, 5, 0, 0, 1))      // MOVEI 5,1
	c.acs[1] = 0o000100000000
	c.testInst(10)
	if c.acs[2] != 11 {
		t.Errorf("JFFO count incorrect got: %d wanted: %d", c.acs[2], 11)
	}
	if c.acs[5] != 1 {
		t.Errorf("JFFO did not jump")
	}
}

func TestBool(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o404, 1, 0, 0, 0o2000)) // AND 1,2000
	c.mem.Write(0o1001, inst(0o434, 2, 0, 0, 0o2000)) // IOR 2,2000
	c.mem.Write(0o1002, inst(0o430, 3, 0, 0, 0o2000)) // XOR 3,2000
	c.mem.Write(0o1003, inst(0o474, 4, 0, 0, 0))      // SETO 4,
	c.mem.Write(0o2000, 0o707070707070)
	c.acs[1] = 0o777000777000
	c.acs[2] = 0o000777000777
	c.acs[3] = 0o707070707070
	c.testInst(10)
	if c.acs[1] != 0o707000707000 {
		t.Errorf("AND incorrect got: %012o wanted: %012o", c.acs[1], 0o707000707000)
	}
	if c.acs[2] != 0o707777707777 {
		t.Errorf("IOR incorrect got: %012o wanted: %012o", c.acs[2], 0o707777707777)
	}
	if c.acs[3] != 0 {
		t.Errorf("XOR incorrect got: %012o wanted: %012o", c.acs[3], 0)
	}
	if c.acs[4] != word.Mask {
		t.Errorf("SETO incorrect got: %012o wanted: %012o", c.acs[4], word.Mask)
	}
}

func TestHalfWord(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o500, 1, 0, 0, 0o2000)) // HLL 1,2000
	c.mem.Write(0o1001, inst(0o505, 2, 0, 0, 0o1234)) // HRLI 2,1234
	c.mem.Write(0o2000, 0o123456654321)
	c.acs[1] = 0o111111222222
	c.acs[2] = 0o333333444444
	c.testInst(10)
	if c.acs[1] != 0o123456222222 {
		t.Errorf("HLL incorrect got: %012o wanted: %012o", c.acs[1], 0o123456222222)
	}
	if c.acs[2] != 0o001234444444 {
		t.Errorf("HRLI incorrect got: %012o wanted: %012o", c.acs[2], 0o001234444444)
	}
}

func TestTest(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o602, 1, 0, 0, 0o10)) // TRNE 1,10
	c.mem.Write(0o1001, inst(0o201, 5, 0, 0, 1))    // MOVEI 5,1
	c.mem.Write(0o1002, inst(0o660, 1, 0, 0, 0o10)) // TRO 1,10
	c.acs[1] = 0
	c.testInst(10)
	if c.acs[5] != 0 {
		t.Errorf("TRNE did not skip")
	}
	if c.acs[1] != 0o10 {
		t.Errorf("TRO incorrect got: %012o wanted: %012o", c.acs[1], 0o10)
	}
}

func TestCompareSkip(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o301, 1, 0, 0, 5))      // CAIL 1,5
	c.mem.Write(0o1001, inst(0o201, 5, 0, 0, 1))      // MOVEI 5,1
	c.mem.Write(0o1002, inst(0o332, 2, 0, 0, 0o2000)) // SKIPE 2,2000
	c.mem.Write(0o1003, inst(0o201, 6, 0, 0, 1))      // MOVEI 6,1
	c.mem.Write(0o1004, inst(0o201, 7, 0, 0, 1))      // MOVEI 7,1
	c.acs[1] = word.Neg(1)
	c.acs[2] = 0o777
	c.testInst(10)
	if c.acs[5] != 0 {
		t.Errorf("CAIL did not skip")
	}
	if c.acs[6] != 0 || c.acs[2] != 0 {
		t.Errorf("SKIPE did not skip or load got: %012o", c.acs[2])
	}
	if c.acs[7] != 1 {
		t.Errorf("Instruction after skip not executed")
	}
}

func TestAOBJN(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o350, 0, 0, 1, 0o2000)) // AOS 2000(1)
	c.mem.Write(0o1001, inst(0o253, 1, 0, 0, 0o1000)) // AOBJN 1,1000
	c.acs[1] = word.Combine(word.HalfMask-2, 0)       // -3,,0
	c.testInst(20)
	for i := range uint64(3) {
		if v := c.mem.Read(0o2000 + i); v != 1 {
			t.Errorf("AOS loop word %o got: %012o wanted: %012o", i, v, 1)
		}
	}
	if c.acs[1] != 0o3 {
		t.Errorf("AOBJN counter incorrect got: %012o wanted: %012o", c.acs[1], 3)
	}
}

func TestBLT(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o251, 1, 0, 0, 0o3003)) // BLT 1,3003
	for i := range uint64(4) {
		c.mem.Write(0o2000+i, 0o100+i)
	}
	c.acs[1] = word.Combine(0o2000, 0o3000)
	c.testInst(10)
	for i := range uint64(4) {
		if v := c.mem.Read(0o3000 + i); v != 0o100+i {
			t.Errorf("BLT word %o got: %012o wanted: %012o", i, v, 0o100+i)
		}
	}
	if v := c.mem.Read(0o3004); v != 0 {
		t.Errorf("BLT moved too far got: %012o", v)
	}
}

func TestPUSHJPOPJ(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o260, 0o17, 0, 0, 0o1100)) // PUSHJ 17,1100
	c.mem.Write(0o1001, inst(0o201, 5, 0, 0, 1))         // MOVEI 5,1
	c.mem.Write(0o1100, inst(0o263, 0o17, 0, 0, 0))      // POPJ 17,
	c.acs[0o17] = word.Combine(0o777766, 0o3777)
	c.testInst(10)
	if v := c.mem.Read(0o4000); word.Right(v) != 0o1001 {
		t.Errorf("PUSHJ stored incorrect PC got: %012o", v)
	}
	if c.acs[0o17] != word.Combine(0o777766, 0o3777) {
		t.Errorf("Stack pointer incorrect got: %012o", c.acs[0o17])
	}
	if c.acs[5] != 1 {
		t.Errorf("POPJ did not return")
	}
}

func TestJSR(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o264, 0, 0, 0, 0o2000)) // JSR 2000
	c.mem.Write(0o2001, inst(0o201, 5, 0, 0, 1))      // MOVEI 5,1
	c.testInst(10)
	if v := c.mem.Read(0o2000); v != 0o1001 {
		t.Errorf("JSR stored incorrect PC got: %012o wanted: %012o", v, 0o1001)
	}
	if c.acs[5] != 1 {
		t.Errorf("JSR did not jump")
	}
}

func TestXCT(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o256, 0, 0, 0, 0o2000)) // XCT 2000
	c.mem.Write(0o2000, inst(0o201, 5, 0, 0, 0o123))  // MOVEI 5,123
	c.testInst(10)
	if c.acs[5] != 0o123 {
		t.Errorf("XCT incorrect got: %012o wanted: %012o", c.acs[5], 0o123)
	}
}

func TestHalt(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o254, 4, 0, 0, 0o1234)) // HALT 1234
	c.testInst(10)
	if !c.Halted() {
		t.Errorf("JRST 4 did not halt")
	}
	if c.PC() != 0o1234 {
		t.Errorf("Halt PC incorrect got: %06o wanted: %06o", c.PC(), 0o1234)
	}
	// Stepping while halted does nothing.
	c.Step()
	if c.PC() != 0o1234 {
		t.Errorf("Halted processor stepped")
	}
}

func TestIndirectLimit(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o200, 1, 1, 0, 0o2000)) // MOVE 1,@2000
	c.mem.Write(0o2000, inst(0, 0, 1, 0, 0o2000))     // @2000
	c.acs[1] = 0o555
	c.Start(0o1000)
	c.Step()
	if c.PC() != 0o1000 {
		t.Errorf("Indirect loop PC incorrect got: %06o wanted: %06o", c.PC(), 0o1000)
	}
	if c.acs[1] != 0o555 {
		t.Errorf("Indirect loop changed AC got: %012o", c.acs[1])
	}
}

func TestLUUO(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o001, 2, 0, 0, 0o1234)) // LUUO 1
	c.mem.Write(0o41, inst(0o201, 3, 0, 0, 0o77))     // MOVEI 3,77
	c.testInst(10)
	if v := c.mem.Read(0o40); v != inst(0o001, 2, 0, 0, 0o1234) {
		t.Errorf("LUUO stored incorrect got: %012o wanted: %012o", v, inst(0o001, 2, 0, 0, 0o1234))
	}
	if c.acs[3] != 0o77 {
		t.Errorf("LUUO did not execute 41")
	}
}

func TestByte(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o135, 2, 0, 0, 0o2000)) // LDB 2,2000
	c.mem.Write(0o2000, 9<<30|9<<24|0o3000)
	c.mem.Write(0o3000, 0o123<<9)
	c.testInst(10)
	if c.acs[2] != 0o123 {
		t.Errorf("LDB incorrect got: %012o wanted: %012o", c.acs[2], 0o123)
	}
}

func TestILDBIDPB(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o134, 1, 0, 0, 0o2000)) // ILDB 1,2000
	c.mem.Write(0o1001, inst(0o134, 2, 0, 0, 0o2000)) // ILDB 2,2000
	c.mem.Write(0o1002, inst(0o136, 3, 0, 0, 0o2001)) // IDPB 3,2001
	c.mem.Write(0o2000, 0o44<<30|7<<24|0o3000)
	c.mem.Write(0o2001, 1<<30|7<<24|0o3000)
	c.mem.Write(0o3000, 0o101<<29|0o102<<22)
	c.acs[3] = 0o103
	c.testInst(10)
	if c.acs[1] != 0o101 || c.acs[2] != 0o102 {
		t.Errorf("ILDB incorrect got: %03o %03o wanted: %03o %03o", c.acs[1], c.acs[2], 0o101, 0o102)
	}
	if v := c.mem.Read(0o2000); v != 0o26<<30|7<<24|0o3000 {
		t.Errorf("ILDB pointer incorrect got: %012o", v)
	}
	// Pointer moves to next word.
	if v := c.mem.Read(0o2001); v != 0o35<<30|7<<24|0o3001 {
		t.Errorf("IDPB pointer incorrect got: %012o", v)
	}
	if v := c.mem.Read(0o3001); v != 0o103<<29 {
		t.Errorf("IDPB incorrect got: %012o wanted: %012o", v, 0o103<<29)
	}
	if (c.flags & flagFPD) != 0 {
		t.Errorf("First part done left set")
	}
}

func TestFloat(t *testing.T) {
	cases := []struct {
		name string
		op   uint64
		ac   uint64
		mem  uint64
		want uint64
	}{
		{"FAD", 0o140, 0o201400000000, 0o201400000000, 0o202400000000},     // 1.0 + 1.0
		{"FSB", 0o150, 0o201400000000, 0o201400000000, 0},                  // 1.0 - 1.0
		{"FSB neg", 0o150, 0o201400000000, 0o202400000000, 0o576400000000}, // 1.0 - 2.0
		{"FMP", 0o160, 0o201600000000, 0o202400000000, 0o202600000000},     // 1.5 * 2.0
		{"FDV", 0o170, 0o202600000000, 0o202400000000, 0o201600000000},     // 3.0 / 2.0
		{"FADR", 0o144, 0o201400000000, 0o576400000000, 0},                 // 1.0 + -1.0
	}
	for _, tc := range cases {
		c, _ := setup(t)
		c.mem.Write(0o1000, inst(tc.op, 1, 0, 0, 0o2000))
		c.mem.Write(0o2000, tc.mem)
		c.acs[1] = tc.ac
		c.testInst(10)
		if c.acs[1] != tc.want {
			t.Errorf("%s incorrect got: %012o wanted: %012o", tc.name, c.acs[1], tc.want)
		}
		if c.flags != 0 {
			t.Errorf("%s set flags: %06o", tc.name, c.flags)
		}
	}
}

func TestFloatDivideZero(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o170, 1, 0, 0, 0o2000)) // FDV 1,2000
	c.acs[1] = 0o201400000000
	c.testInst(10)
	if c.acs[1] != 0o201400000000 {
		t.Errorf("FDV by zero changed AC got: %012o", c.acs[1])
	}
	if c.flags != flagAOV|flagTR1|flagFOV|flagDCX {
		t.Errorf("FDV flags incorrect got: %06o wanted: %06o", c.flags, flagAOV|flagTR1|flagFOV|flagDCX)
	}
}

func TestFSC(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o132, 1, 0, 0, 3))        // FSC 1,3
	c.mem.Write(0o1001, inst(0o132, 2, 0, 0, 0o777777)) // FSC 2,-1
	c.acs[1] = 0o201400000000
	c.acs[2] = 0o201400000000
	c.testInst(10)
	if c.acs[1] != 0o204400000000 {
		t.Errorf("FSC up incorrect got: %012o wanted: %012o", c.acs[1], 0o204400000000)
	}
	if c.acs[2] != 0o200400000000 {
		t.Errorf("FSC down incorrect got: %012o wanted: %012o", c.acs[2], 0o200400000000)
	}

	// Exponent overflow.
	c.mem.Write(0o1000, inst(0o132, 1, 0, 0, 200))
	c.acs[1] = 0o201400000000
	c.flags = 0
	c.testInst(1)
	if c.flags != flagAOV|flagFOV|flagTR1 {
		t.Errorf("FSC overflow flags incorrect got: %06o wanted: %06o", c.flags, flagAOV|flagFOV|flagTR1)
	}
}

func TestFIX(t *testing.T) {
	cases := []struct {
		name string
		op   uint64
		mem  uint64
		want uint64
	}{
		{"FIX 2.5", 0o122, 0o202500000000, 2},
		{"FIXR 2.5", 0o126, 0o202500000000, 3},
		{"FIX -2.5", 0o122, 0o575300000000, word.Neg(2)},
		{"FIXR -2.5", 0o126, 0o575300000000, word.Neg(2)},
		{"FIX 0", 0o122, 0, 0},
	}
	for _, tc := range cases {
		c, _ := setup(t)
		c.mem.Write(0o1000, inst(tc.op, 1, 0, 0, 0o2000))
		c.mem.Write(0o2000, tc.mem)
		c.acs[1] = 0o777
		c.testInst(10)
		if c.acs[1] != tc.want {
			t.Errorf("%s incorrect got: %012o wanted: %012o", tc.name, c.acs[1], tc.want)
		}
	}

	// Too large.
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o122, 1, 0, 0, 0o2000))
	c.mem.Write(0o2000, 0o300400000000)
	c.acs[1] = 0o777
	c.testInst(10)
	if c.acs[1] != 0o777 || c.flags != flagAOV|flagTR1 {
		t.Errorf("FIX overflow incorrect got: %012o flags %06o", c.acs[1], c.flags)
	}
}

func TestFLTR(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o127, 1, 0, 0, 0o2000)) // FLTR 1,2000
	c.mem.Write(0o1001, inst(0o127, 2, 0, 0, 0o2001)) // FLTR 2,2001
	c.mem.Write(0o2000, 3)
	c.mem.Write(0o2001, word.Neg(1))
	c.testInst(10)
	if c.acs[1] != 0o202600000000 {
		t.Errorf("FLTR 3 incorrect got: %012o wanted: %012o", c.acs[1], 0o202600000000)
	}
	if c.acs[2] != 0o576400000000 {
		t.Errorf("FLTR -1 incorrect got: %012o wanted: %012o", c.acs[2], 0o576400000000)
	}
}

func TestUFA(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o130, 1, 0, 0, 0o2000)) // UFA 1,2000
	c.mem.Write(0o2000, 0o201400000000)
	c.acs[1] = 0o201400000000
	c.testInst(10)
	if c.acs[2] != 0o202400000000 {
		t.Errorf("UFA incorrect got: %012o wanted: %012o", c.acs[2], 0o202400000000)
	}
	if c.acs[1] != 0o201400000000 {
		t.Errorf("UFA changed AC got: %012o", c.acs[1])
	}
}

func TestDoubleFloat(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o110, 1, 0, 0, 0o2000)) // DFAD 1,2000
	c.mem.Write(0o1001, inst(0o112, 3, 0, 0, 0o2002)) // DFMP 3,2002
	c.mem.Write(0o2000, 0o201400000000)
	c.mem.Write(0o2001, 0)
	c.mem.Write(0o2002, 0o202400000000)
	c.mem.Write(0o2003, 0)
	c.acs[1] = 0o201400000000
	c.acs[3] = 0o201600000000
	c.testInst(10)
	if c.acs[1] != 0o202400000000 || c.acs[2] != 0 {
		t.Errorf("DFAD incorrect got: %012o %012o wanted: %012o %012o", c.acs[1], c.acs[2], 0o202400000000, 0)
	}
	if c.acs[3] != 0o202600000000 || c.acs[4] != 0 {
		t.Errorf("DFMP incorrect got: %012o %012o wanted: %012o %012o", c.acs[3], c.acs[4], 0o202600000000, 0)
	}
}

// Unnormalized operands divide exactly.
func TestDFDVUnnormalized(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o113, 1, 0, 0, 0o2000)) // DFDV 1,2000
	c.mem.Write(0o2000, 0)
	c.mem.Write(0o2001, 1)
	c.acs[1] = 0
	c.acs[2] = 1
	c.testInst(10)
	if c.acs[1] != 0o201400000000 || c.acs[2] != 0 {
		t.Errorf("DFDV incorrect got: %012o %012o wanted: %012o %012o", c.acs[1], c.acs[2], 0o201400000000, 0)
	}
	if c.flags != 0 {
		t.Errorf("DFDV flags incorrect got: %06o wanted: %06o", c.flags, 0)
	}
}

func TestDMOVN(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, inst(0o121, 1, 0, 0, 0o2000)) // DMOVN 1,2000
	c.mem.Write(0o1001, inst(0o124, 1, 0, 0, 0o2002)) // DMOVEM 1,2002
	c.mem.Write(0o2000, 0o201400000000)
	c.mem.Write(0o2001, 1)
	c.testInst(10)
	if c.acs[1] != 0o576377777777 || c.acs[2] != word.LowMask {
		t.Errorf("DMOVN incorrect got: %012o %012o", c.acs[1], c.acs[2])
	}
	if c.mem.Read(0o2002) != c.acs[1] || c.mem.Read(0o2003) != c.acs[2] {
		t.Errorf("DMOVEM incorrect got: %012o %012o", c.mem.Read(0o2002), c.mem.Read(0o2003))
	}
}

func TestPageFail(t *testing.T) {
	c, _ := setup(t)
	c.pageEnable = true
	c.execTable = 0o3000
	c.userTable = 0o2000
	c.mem.Write(0o1000, inst(0o200, 1, 0, 0, 0o400000)) // MOVE 1,400000
	c.mem.Write(0o3420, inst(0o201, 5, 0, 0, 0o123))    // MOVEI 5,123
	c.Start(0o1000)
	c.Step()
	if c.PC() != 0o1000 {
		t.Errorf("Page fail PC incorrect got: %06o wanted: %06o", c.PC(), 0o1000)
	}
	if v := c.mem.Read(0o2000 + execPageFail); v != 0o400000000 {
		t.Errorf("Page fail word incorrect got: %012o wanted: %012o", v, 0o400000000)
	}
	if c.acs[5] != 0o123 {
		t.Errorf("Page fail trap not executed")
	}
}

func TestPagedRead(t *testing.T) {
	c, _ := setup(t)
	c.pageEnable = true
	c.execTable = 0o3000
	c.userTable = 0o2000
	// Exec page 400 maps to physical page 20, accessible and writable.
	c.mem.Write(0o3200, word.Combine(BIT18|BIT20|0o20, 0))
	c.mem.Write(0o20123, 0o4444)
	c.mem.Write(0o1000, inst(0o200, 1, 0, 0, 0o400123)) // MOVE 1,400123
	c.testInst(1)
	if c.acs[1] != 0o4444 {
		t.Errorf("Paged read incorrect got: %012o wanted: %012o", c.acs[1], 0o4444)
	}
}

func TestInterrupt(t *testing.T) {
	c, _ := setup(t)
	c.pi = BIT28 | (BIT28 >> 3)
	c.mem.Write(0o46, inst(0o201, 7, 0, 0, 0o555)) // MOVEI 7,555
	c.mem.Write(0o1000, inst(0o201, 6, 0, 0, 1))   // MOVEI 6,1
	c.Interrupt(false, 0, testDev, 3, nil, 0)
	c.Start(0o1000)
	c.Step()
	if c.acs[7] != 0o555 {
		t.Errorf("Interrupt instruction not executed")
	}
	if c.acs[6] != 1 {
		t.Errorf("Instruction after interrupt not executed")
	}
	if !c.queue.Empty() {
		t.Errorf("Interrupt left on queue")
	}
	if (c.pi & (BIT20 >> 3)) != 0 {
		t.Errorf("Interrupt level left in progress: %06o", c.pi)
	}
}

func TestInterruptHeld(t *testing.T) {
	c, _ := setup(t)
	c.pi = BIT28 | (BIT28 >> 3)
	c.mem.Write(0o46, inst(0o264, 0, 0, 0, 0o2000))      // JSR 2000
	c.mem.Write(0o2001, inst(0o201, 5, 0, 0, 1))         // MOVEI 5,1
	c.mem.Write(0o2002, inst(0o254, 0o12, 1, 0, 0o2000)) // JRST 12,@2000
	c.mem.Write(0o1000, inst(0o201, 6, 0, 0, 1))         // MOVEI 6,1
	c.Interrupt(false, 0, testDev, 3, nil, 0)
	c.Start(0o1000)
	c.Step()
	if (c.pi & (BIT20 >> 3)) == 0 {
		t.Errorf("JSR did not hold interrupt level: %06o", c.pi)
	}
	if v := c.mem.Read(0o2000); word.Right(v) != 0o1000 {
		t.Errorf("JSR saved wrong PC got: %012o", v)
	}
	if c.acs[5] != 1 {
		t.Errorf("Interrupt routine not entered")
	}
	c.Step()
	if c.PC() != 0o1000 {
		t.Errorf("Dismiss did not return got: %06o", c.PC())
	}
	if (c.pi & (BIT20 >> 3)) != 0 {
		t.Errorf("JRST 10 did not release level: %06o", c.pi)
	}
	c.Step()
	if c.acs[6] != 1 {
		t.Errorf("Interrupted program not resumed")
	}
}

func TestInterruptDisabled(t *testing.T) {
	c, _ := setup(t)
	c.pi = BIT28 >> 3 // Channel on, system off
	c.mem.Write(0o46, inst(0o201, 7, 0, 0, 0o555))
	c.mem.Write(0o1000, inst(0o201, 6, 0, 0, 1))
	c.Interrupt(false, 0, testDev, 3, nil, 0)
	c.testInst(1)
	if c.acs[7] != 0 {
		t.Errorf("Interrupt taken with system off")
	}
	if c.queue.Empty() {
		t.Errorf("Interrupt removed from queue")
	}
}

func TestPIConoConi(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, ioInst(dev.PI, ioCONO, 0o2377)) // CONO PI,2377
	c.mem.Write(0o1001, ioInst(dev.PI, ioCONI, 0o2000)) // CONI PI,2000
	c.mem.Write(0o1002, ioInst(dev.PI, ioCONSO, 0o200)) // CONSO PI,200
	c.mem.Write(0o1003, inst(0o201, 5, 0, 0, 1))        // MOVEI 5,1
	c.mem.Write(0o1004, inst(0o201, 6, 0, 0, 1))        // MOVEI 6,1
	c.testInst(10)
	if v := c.mem.Read(0o2000); v != 0o377 {
		t.Errorf("CONI PI incorrect got: %012o wanted: %012o", v, 0o377)
	}
	if c.acs[5] != 0 || c.acs[6] != 1 {
		t.Errorf("CONSO did not skip")
	}
}

func TestDeviceIO(t *testing.T) {
	c, td := setup(t)
	td.coni = 0o10
	td.datai = 0o123
	c.mem.Write(0o1000, ioInst(testDev, ioCONO, 0o4321))  // CONO TST,4321
	c.mem.Write(0o1001, ioInst(testDev, ioDATAI, 0o2000)) // DATAI TST,2000
	c.mem.Write(0o1002, ioInst(testDev, ioCONSZ, 0o10))   // CONSZ TST,10
	c.mem.Write(0o1003, ioInst(testDev, ioBLKO, 0o2001))  // BLKO TST,2001
	c.mem.Write(0o1004, inst(0o201, 5, 0, 0, 1))          // MOVEI 5,1
	c.mem.Write(0o2001, word.Combine(0o777776, 0o2077))
	c.mem.Write(0o2100, 0o707)
	c.testInst(10)
	if td.cono != 0o4321 {
		t.Errorf("CONO incorrect got: %06o wanted: %06o", td.cono, 0o4321)
	}
	if v := c.mem.Read(0o2000); v != 0o123 {
		t.Errorf("DATAI incorrect got: %012o wanted: %012o", v, 0o123)
	}
	if len(td.datao) != 1 || td.datao[0] != 0o707 {
		t.Errorf("BLKO incorrect got: %v", td.datao)
	}
	if v := c.mem.Read(0o2001); v != word.Combine(0o777777, 0o2100) {
		t.Errorf("BLKO pointer incorrect got: %012o", v)
	}
	// CONSZ does not skip, BLKO does.
	if c.acs[5] != 0 {
		t.Errorf("BLKO did not skip")
	}
}

func TestUserIOTrap(t *testing.T) {
	c, _ := setup(t)
	c.mem.Write(0o1000, ioInst(dev.PI, ioCONO, 0o200)) // CONO PI,200
	c.mem.Write(0o434, word.Combine(0, 0o3000))
	c.Start(0o1000)
	c.writeFlags(flagUSR)
	c.Step()
	if (c.pi & BIT28) != 0 {
		t.Errorf("User CONO PI not trapped")
	}
	if c.PC() != 0o3000 {
		t.Errorf("MUUO new PC incorrect got: %06o wanted: %06o", c.PC(), 0o3000)
	}
	if v := c.mem.Read(muuoStore); v != ioInst(dev.PI, ioCONO, 0o200) {
		t.Errorf("MUUO store incorrect got: %012o", v)
	}
}

func TestClockTick(t *testing.T) {
	c, _ := setup(t)
	c.apr = BIT25 | 1
	c.pi = BIT28 | (BIT28 >> 1)
	c.mem.Write(0o42, ioInst(dev.APR, ioCONO, BIT26|BIT25|1)) // CONO APR,clear clock
	c.mem.Write(0o1000, inst(0o201, 6, 0, 0, 1))
	c.Start(0o1000)
	c.ClockTick()
	if (c.apr & BIT26) == 0 {
		t.Errorf("Clock done not set")
	}
	c.Step()
	if (c.apr & BIT26) != 0 {
		t.Errorf("Clock interrupt not serviced apr: %06o", c.apr)
	}
	if !c.queue.Empty() {
		t.Errorf("Clock interrupt left queued")
	}
}

func TestExamineDeposit(t *testing.T) {
	c, _ := setup(t)
	if !c.Deposit(5, 0o123) {
		t.Errorf("Deposit to AC failed")
	}
	if c.acs[5] != 0o123 {
		t.Errorf("Deposit to AC incorrect got: %012o", c.acs[5])
	}
	if !c.Deposit(0o1000, 0o777777777777) {
		t.Errorf("Deposit to memory failed")
	}
	v, ok := c.Examine(0o1000)
	if !ok || v != 0o777777777777 {
		t.Errorf("Examine incorrect got: %012o", v)
	}
	if _, ok := c.Examine(0o17777777); ok {
		t.Errorf("Examine of non existent memory succeeded")
	}
	if err := c.Debug("BOGUS"); err == nil {
		t.Errorf("Bad debug option accepted")
	}
	if err := c.Debug("INST"); err != nil {
		t.Errorf("Debug option rejected: %v", err)
	}
}

// Device timing runs while stopped, delivery waits for start.
func TestAdvance(t *testing.T) {
	c, _ := setup(t)
	fired := 0
	c.Interrupt(false, 3, testDev, 2, func(int) int {
		fired++
		return -1
	}, 0)
	for range 2 {
		if !c.Advance() {
			t.Errorf("Entry not delayed")
		}
	}
	if fired != 0 {
		t.Errorf("Callback ran early")
	}
	c.Advance()
	if fired != 1 {
		t.Errorf("Callback not run got: %d", fired)
	}
	if c.Advance() {
		t.Errorf("Delayed entry left after expiry")
	}
	if c.queue.Empty() {
		t.Errorf("Ready entry delivered while stopped")
	}
}
