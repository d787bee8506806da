/*
 * KI10 - Fixed point, logical and program control instructions.
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
	"log/slog"
	"math/bits"

	"github.com/holiman/uint256"

	"github.com/rcornwell/KI10/emu/word"
	"github.com/rcornwell/KI10/util/debug"
)

// Add with carry in, returns the sum and the flags to set.
func add(a, b, carry uint64) (uint64, uint64) {
	c1 := ((a & word.LowMask) + (b & word.LowMask) + carry) >> 35
	sum := a + b + carry
	c0 := sum >> 36
	var flags uint64
	if c0 != 0 {
		flags |= flagC0
	}
	if c1 != 0 {
		flags |= flagC1
	}
	if c0 != c1 {
		flags |= flagAOV | flagTR1
	}
	return sum & word.Mask, flags
}

func (c *CPU) increment(w uint64) uint64 {
	r, flags := add(w, 1, 0)
	c.setFlags(flags)
	return r
}

func (c *CPU) decrement(w uint64) uint64 {
	r, flags := add(w, word.Mask, 0)
	c.setFlags(flags)
	return r
}

func next(ac uint64) uint64 {
	return (ac + 1) & 0xf
}

// MOVE C(AC) <- C(E).
func (c *CPU) opMOVE(step *stepInfo) {
	if src, ok := c.readMove(step); ok {
		c.writeMove(step, src)
	}
}

// MOVS C(AC) <- swapped C(E).
func (c *CPU) opMOVS(step *stepInfo) {
	if src, ok := c.readMove(step); ok {
		c.writeMove(step, word.Swap(src))
	}
}

// MOVN C(AC) <- -C(E).
func (c *CPU) opMOVN(step *stepInfo) {
	src, ok := c.readMove(step)
	if !ok {
		return
	}
	dst := word.Neg(src)
	if !c.writeMove(step, dst) {
		return
	}
	switch dst {
	case word.Sign:
		c.setFlags(flagTR1 | flagAOV | flagC1)
	case 0:
		c.setFlags(flagC0 | flagC1)
	}
}

// MOVM C(AC) <- |C(E)|.
func (c *CPU) opMOVM(step *stepInfo) {
	src, ok := c.readMove(step)
	if !ok {
		return
	}
	dst := word.Abs(src)
	if c.writeMove(step, dst) && dst == word.Sign {
		c.setFlags(flagTR1 | flagAOV | flagC1)
	}
}

// IMUL single length product.
func (c *CPU) opIMUL(step *stepInfo) {
	src, ok := c.readOperand(step)
	if !ok {
		return
	}
	hi, lo := word.Mul(c.acs[step.ac], src)
	fits := (hi == 0 && !word.IsNeg(lo)) || (hi == word.Mask && word.IsNeg(lo))
	c.writeResult(step, lo)
	if !fits {
		c.setFlags(flagAOV | flagTR1)
	}
}

// MUL double length product.
func (c *CPU) opMUL(step *stepInfo) {
	src, ok := c.readOperand(step)
	if !ok {
		return
	}
	acc := c.acs[step.ac]
	hi, lo := word.Mul(acc, src)
	ovf := acc == word.Sign && src == word.Sign
	if ovf {
		lo = word.Sign
	}
	c.writeResult(step, hi)
	if (step.opcode & 3) != 2 {
		c.acs[next(step.ac)] = lo
	}
	if ovf {
		c.setFlags(flagTR1 | flagAOV)
	}
}

// IDIV single length divide, remainder to AC+1.
func (c *CPU) opIDIV(step *stepInfo) {
	src, ok := c.readOperand(step)
	if !ok {
		return
	}
	dividend := word.ToSigned(c.acs[step.ac])
	divisor := word.ToSigned(src)
	if divisor == 0 || (divisor == -1 && dividend == -int64(word.Sign)) {
		c.setFlags(flagAOV | flagTR1 | flagDCX)
		return
	}
	q, _ := word.FromSigned(dividend / divisor)
	r, _ := word.FromSigned(dividend % divisor)
	c.writeResult(step, q)
	if (step.opcode & 3) != 2 {
		c.acs[next(step.ac)] = r
	}
}

// DIV double length dividend in AC,AC+1.
func (c *CPU) opDIV(step *stepInfo) {
	src, ok := c.readOperand(step)
	if !ok {
		return
	}
	q, r, ok := word.Div(c.acs[step.ac], c.acs[next(step.ac)], src)
	if !ok {
		c.setFlags(flagAOV | flagTR1 | flagDCX)
		return
	}
	c.writeResult(step, q)
	if (step.opcode & 3) != 2 {
		c.acs[next(step.ac)] = r
	}
}

// Shift right filling with sign.
func shiftRight(w uint64, n uint64) uint64 {
	if word.IsNeg(w) {
		return ((w >> n) | (word.Mask << (36 - n))) & word.Mask
	}
	return w >> n
}

// Rotate count from effective address, negative counts rotate right.
func rotateCount(e uint64, width uint64) uint64 {
	if e < word.HalfSign {
		return (e % 256) % width
	}
	n := (word.HalfBase - e) % 256
	if n == 0 {
		n = 256
	}
	n %= width
	if n != 0 {
		n = width - n
	}
	return n
}

// ASH arithmetic shift.
func (c *CPU) opASH(step *stepInfo) {
	dst := c.acs[step.ac]
	if dst == 0 {
		return
	}
	if step.ea < word.HalfSign {
		n := min(step.ea, 35)
		if n == 0 {
			return
		}
		// Bits shifted through the sign must all match it.
		top := dst >> (35 - n)
		if top != 0 && top != (uint64(1)<<(n+1))-1 {
			c.setFlags(flagAOV | flagTR1)
		}
		dst = (dst & word.Sign) | ((dst << n) & word.LowMask)
	} else {
		dst = shiftRight(dst, min(word.HalfBase-step.ea, 35))
	}
	c.acs[step.ac] = dst
}

// ROT rotate.
func (c *CPU) opROT(step *stepInfo) {
	dst := c.acs[step.ac]
	n := rotateCount(step.ea, 36)
	if dst == 0 || n == 0 {
		return
	}
	c.acs[step.ac] = ((dst << n) | (dst >> (36 - n))) & word.Mask
}

// LSH logical shift.
func (c *CPU) opLSH(step *stepInfo) {
	dst := c.acs[step.ac]
	if dst == 0 || step.ea == 0 {
		return
	}
	if step.ea < word.HalfSign {
		if step.ea >= 36 {
			dst = 0
		} else {
			dst = (dst << step.ea) & word.Mask
		}
	} else {
		n := word.HalfBase - step.ea
		if n >= 36 {
			dst = 0
		} else {
			dst >>= n
		}
	}
	c.acs[step.ac] = dst
}

// JFFO jump if AC nonzero, count leading zeros into AC+1.
func (c *CPU) opJFFO(step *stepInfo) {
	src := c.acs[step.ac]
	if src == 0 {
		c.acs[next(step.ac)] = 0
		return
	}
	c.acs[next(step.ac)] = uint64(bits.LeadingZeros64(src) - 28)
	c.jump(step.ea)
}

func lowBits(n uint) *uint256.Int {
	m := word.Pow2(n)
	return m.Sub(m, uint256.NewInt(1))
}

// Double word as 71 bit value, sign of low word dropped.
func signedDouble(hi, lo uint64) *uint256.Int {
	v := uint256.NewInt(hi)
	v.Lsh(v, 35)
	return v.Or(v, uint256.NewInt(lo&word.LowMask))
}

// Double word as 72 bit value.
func rawDouble(hi, lo uint64) *uint256.Int {
	v := uint256.NewInt(hi)
	v.Lsh(v, 36)
	return v.Or(v, uint256.NewInt(lo))
}

// ASHC arithmetic shift of AC,AC+1 as a 70 bit magnitude with one sign.
func (c *CPU) opASHC(step *stepInfo) {
	ac2 := next(step.ac)
	hi := c.acs[step.ac]
	lo := c.acs[ac2]
	if step.ea == 0 || (hi == 0 && lo == 0) {
		return
	}
	sign := hi & word.Sign
	v := signedDouble(hi, lo)
	if step.ea < word.HalfSign {
		n := uint(min(step.ea, 71))
		top := new(uint256.Int).Set(v)
		width := uint(71)
		if n < 70 {
			top.Rsh(v, 70-n)
			width = n + 1
		}
		if !top.IsZero() && !top.Eq(lowBits(width)) {
			c.setFlags(flagAOV | flagTR1)
		}
		v.Lsh(v, n)
	} else {
		n := uint(min(word.HalfBase-step.ea, 71))
		if sign != 0 {
			v.Or(v, new(uint256.Int).Not(lowBits(71)))
		}
		v.SRsh(v, n)
	}
	v.And(v, lowBits(70))
	var t uint256.Int
	t.Rsh(v, 35)
	c.acs[step.ac] = sign | (t.Uint64() & word.LowMask)
	c.acs[ac2] = sign | (v.Uint64() & word.LowMask)
}

// ROTC rotate AC,AC+1 as 72 bits.
func (c *CPU) opROTC(step *stepInfo) {
	ac2 := next(step.ac)
	hi := c.acs[step.ac]
	lo := c.acs[ac2]
	n := uint(rotateCount(step.ea, 72))
	if n == 0 || (hi == 0 && lo == 0) {
		return
	}
	v := rawDouble(hi, lo)
	var r uint256.Int
	r.Rsh(v, 72-n)
	v.Lsh(v, n)
	v.Or(v, &r)
	c.splitRaw(step.ac, v)
}

// LSHC logical shift AC,AC+1 as 72 bits.
func (c *CPU) opLSHC(step *stepInfo) {
	ac2 := next(step.ac)
	hi := c.acs[step.ac]
	lo := c.acs[ac2]
	if step.ea == 0 || (hi == 0 && lo == 0) {
		return
	}
	v := rawDouble(hi, lo)
	if step.ea < word.HalfSign {
		if step.ea >= 72 {
			v.Clear()
		} else {
			v.Lsh(v, uint(step.ea))
		}
	} else {
		n := word.HalfBase - step.ea
		if n >= 72 {
			v.Clear()
		} else {
			v.Rsh(v, uint(n))
		}
	}
	c.splitRaw(step.ac, v)
}

// Store 72 bit value in AC,AC+1.
func (c *CPU) splitRaw(ac uint64, v *uint256.Int) {
	var t uint256.Int
	t.Rsh(v, 36)
	c.acs[ac] = t.Uint64() & word.Mask
	c.acs[next(ac)] = v.Uint64() & word.Mask
}

// EXCH exchange AC and memory.
func (c *CPU) opEXCH(step *stepInfo) {
	src, ok := c.readWord(step.ea)
	if !ok {
		return
	}
	if c.writeWord(step.ea, c.acs[step.ac]) {
		c.acs[step.ac] = src
	}
}

// BLT block transfer from source,,destination in AC to E.
func (c *CPU) opBLT(step *stepInfo) {
	src, dst := word.Split(c.acs[step.ac])
	for {
		data, ok := c.readWord(src)
		if !ok || !c.writeWord(dst, data) {
			c.acs[step.ac] = word.Combine(src, dst)
			return
		}
		src = (src + 1) & word.HalfMask
		dst++
		if dst > step.ea {
			return
		}
	}
}

// AOBJP add one to both halves, jump if positive.
func (c *CPU) opAOBJP(step *stepInfo) {
	dst := word.Combine(word.Left(c.acs[step.ac])+1, c.acs[step.ac]+1)
	c.acs[step.ac] = dst
	if !word.IsNeg(dst) {
		c.jump(step.ea)
	}
}

// AOBJN add one to both halves, jump if negative.
func (c *CPU) opAOBJN(step *stepInfo) {
	dst := word.Combine(word.Left(c.acs[step.ac])+1, c.acs[step.ac]+1)
	c.acs[step.ac] = dst
	if word.IsNeg(dst) {
		c.jump(step.ea)
	}
}

// JRST jump, AC selects restore interrupt, halt, restore flags and
// leave public mode.
func (c *CPU) opJRST(step *stepInfo) {
	if c.interruptMode {
		c.clearFlags(flagUSR)
	}
	if (step.ac&0o14) != 0 && !c.privileged() {
		c.opUUO(step)
		return
	}
	if (step.ac & 0o10) != 0 {
		c.releaseHiInterrupt()
	}
	if (step.ac & 0o4) != 0 {
		c.halted = true
		slog.Info("CPU halted", "pc", octal(c.pc))
	}
	if (step.ac & 0o2) != 0 {
		flags := word.Left(step.eaWord)
		if !c.privileged() {
			flags |= c.flags & (flagUSR | flagPUB)
			if (c.flags & flagIOT) == 0 {
				flags &^= flagIOT
			}
		}
		c.writeFlags(flags)
	}
	if (step.ac & 0o1) != 0 {
		c.flags &^= flagPUB
	}
	c.jump(step.ea)
}

// JFCL jump on flags selected by AC and clear them.
func (c *CPU) opJFCL(step *stepInfo) {
	mask := step.ac << 14
	if (c.flags & mask) != 0 {
		c.clearFlags(mask)
		c.jump(step.ea)
	}
}

// XCT execute word at E, in executive mode AC selects previous context.
func (c *CPU) opXCT(step *stepInfo) {
	if c.pxct != 0 {
		c.pxct = 0
	} else if !c.userMode {
		c.pxct = int(step.ac & 3)
	}
	if inst, ok := c.getWord(step.ea, accessRead|accessExecute); ok {
		c.xct(inst, false)
	}
	c.pxct = 0
}

// MAP page data for E into AC.
func (c *CPU) opMAP(step *stepInfo) {
	c.pagConi = (c.pagConi &^ 0x1f) | ((c.pagConi + 1) & 0x1f)
	c.acs[step.ac] = c.virtualMap(step.ea, accessWrite|c.pxct)
}

// Jumps from an interrupt instruction hold the interrupt level.
func (c *CPU) leaveInterrupt() {
	if c.interruptMode {
		c.clearFlags(flagUSR | flagPUB)
		c.interruptMode = false
	}
}

// PUSHJ push PC word and jump.
func (c *CPU) opPUSHJ(step *stepInfo) {
	src := c.pcWord()
	c.leaveInterrupt()
	ptr := c.acs[step.ac]
	dst := word.Combine(word.Left(ptr)+1, ptr+1)
	if !c.writeWord(word.Right(dst), src) {
		return
	}
	c.acs[step.ac] = dst
	c.clearFlags(flagFPD | flagAFI | flagTR2 | flagTR1)
	c.jump(step.ea)
	if word.Left(dst) == 0 {
		c.setFlags(flagTR2)
	}
}

// PUSH C(E) on stack.
func (c *CPU) opPUSH(step *stepInfo) {
	src, ok := c.readWord(step.ea)
	if !ok {
		return
	}
	ptr := c.acs[step.ac]
	left := (word.Left(ptr) + 1) & word.HalfMask
	if left == 0 {
		c.setFlags(flagTR2)
	}
	dst := word.Combine(left, ptr+1)
	if c.writeWord(word.Right(dst), src) {
		c.acs[step.ac] = dst
	}
}

// POP top of stack to E.
func (c *CPU) opPOP(step *stepInfo) {
	ptr := c.acs[step.ac]
	src, ok := c.readWord(word.Right(ptr))
	if !ok || !c.writeWord(step.ea, src) {
		return
	}
	if word.Left(ptr) == 0 {
		c.setFlags(flagTR2)
	}
	c.acs[step.ac] = word.Combine(word.Left(ptr)-1, ptr-1)
}

// POPJ pop PC and jump.
func (c *CPU) opPOPJ(step *stepInfo) {
	ptr := c.acs[step.ac]
	src, ok := c.readWord(word.Right(ptr))
	if !ok {
		return
	}
	c.jump(word.Right(src))
	if word.Left(ptr) == 0 {
		c.setFlags(flagTR2)
	}
	c.acs[step.ac] = word.Combine(word.Left(ptr)-1, ptr-1)
}

// JSR store PC word at E and jump to E+1.
func (c *CPU) opJSR(step *stepInfo) {
	dst := c.pcWord()
	c.leaveInterrupt()
	if c.writeWord(step.ea, dst) {
		c.clearFlags(flagFPD | flagAFI | flagTR2 | flagTR1)
		c.jump(step.ea + 1)
	}
}

// JSP PC word to AC and jump.
func (c *CPU) opJSP(step *stepInfo) {
	c.acs[step.ac] = c.pcWord()
	c.leaveInterrupt()
	c.clearFlags(flagFPD | flagAFI | flagTR2 | flagTR1)
	c.jump(step.ea)
}

// JSA store AC at E, E,,PC in AC and jump to E+1.
func (c *CPU) opJSA(step *stepInfo) {
	if c.interruptMode {
		c.clearFlags(flagUSR | flagPUB)
	}
	if c.writeWord(step.ea, c.acs[step.ac]) {
		c.acs[step.ac] = word.Combine(step.ea, c.pc)
		c.jump(step.ea + 1)
	}
}

// JRA restore AC from left half address and jump.
func (c *CPU) opJRA(step *stepInfo) {
	if src, ok := c.readWord(word.Left(c.acs[step.ac])); ok {
		c.acs[step.ac] = src
		c.jump(step.ea)
	}
}

// ADD.
func (c *CPU) opADD(step *stepInfo) {
	src, ok := c.readOperand(step)
	if !ok {
		return
	}
	sum, flags := add(c.acs[step.ac], src, 0)
	c.writeResult(step, sum)
	c.setFlags(flags)
}

// SUB, adds the complement with a carry in.
func (c *CPU) opSUB(step *stepInfo) {
	src, ok := c.readOperand(step)
	if !ok {
		return
	}
	diff, flags := add(c.acs[step.ac], ^src&word.Mask, 1)
	c.writeResult(step, diff)
	c.setFlags(flags)
}

// CAI compare AC with 0,,E and skip.
func (c *CPU) opCAI(step *stepInfo) {
	if condition(step.opcode, compare(c.acs[step.ac], step.ea)) {
		c.skip()
	}
}

// CAM compare AC with memory and skip.
func (c *CPU) opCAM(step *stepInfo) {
	src, ok := c.readWord(step.ea)
	if ok && condition(step.opcode, compare(c.acs[step.ac], src)) {
		c.skip()
	}
}

// JUMP on AC.
func (c *CPU) opJUMP(step *stepInfo) {
	if condition(step.opcode, compare(c.acs[step.ac], 0)) {
		c.jump(step.ea)
	}
}

// SKIP on memory, loads AC if not 0.
func (c *CPU) opSKIP(step *stepInfo) {
	src, ok := c.readWord(step.ea)
	if !ok {
		return
	}
	c.skipSpecial(condition(step.opcode, compare(src, 0)))
	if step.ac != 0 {
		c.acs[step.ac] = src
	}
}

// AOJ add one to AC and jump.
func (c *CPU) opAOJ(step *stepInfo) {
	dst := c.increment(c.acs[step.ac])
	c.acs[step.ac] = dst
	if condition(step.opcode, compare(dst, 0)) {
		c.jump(step.ea)
	}
}

// SOJ subtract one from AC and jump.
func (c *CPU) opSOJ(step *stepInfo) {
	dst := c.decrement(c.acs[step.ac])
	c.acs[step.ac] = dst
	if condition(step.opcode, compare(dst, 0)) {
		c.jump(step.ea)
	}
}

// Common to AOS and SOS.
func (c *CPU) stepMemory(step *stepInfo, delta uint64) {
	src, ok := c.readWord(step.ea)
	if !ok {
		return
	}
	dst, flags := add(src, delta, 0)
	if !c.writeWord(step.ea, dst) {
		return
	}
	c.setFlags(flags)
	c.skipSpecial(condition(step.opcode, compare(dst, 0)))
	if step.ac != 0 {
		c.acs[step.ac] = dst
	}
}

// AOS add one to memory and skip.
func (c *CPU) opAOS(step *stepInfo) {
	c.stepMemory(step, 1)
}

// SOS subtract one from memory and skip.
func (c *CPU) opSOS(step *stepInfo) {
	c.stepMemory(step, word.Mask)
}

// Boolean functions of AC and memory, indexed by bits 3-6 of opcode.
var boolOps = [16]func(ac, m uint64) uint64{
	func(_, _ uint64) uint64 { return 0 },         // SETZ
	func(a, m uint64) uint64 { return a & m },     // AND
	func(a, m uint64) uint64 { return ^a & m },    // ANDCA
	func(_, m uint64) uint64 { return m },         // SETM
	func(a, m uint64) uint64 { return a &^ m },    // ANDCM
	func(a, _ uint64) uint64 { return a },         // SETA
	func(a, m uint64) uint64 { return a ^ m },     // XOR
	func(a, m uint64) uint64 { return a | m },     // OR
	func(a, m uint64) uint64 { return ^a &^ m },   // ANDCB
	func(a, m uint64) uint64 { return ^(a ^ m) },  // EQV
	func(a, _ uint64) uint64 { return ^a },        // SETCA
	func(a, m uint64) uint64 { return ^a | m },    // ORCA
	func(_, m uint64) uint64 { return ^m },        // SETCM
	func(a, m uint64) uint64 { return a | ^m },    // ORCM
	func(a, m uint64) uint64 { return ^a | ^m },   // ORCB
	func(_, _ uint64) uint64 { return word.Mask }, // SETO
}

// 400-477 Boolean operations.
func (c *CPU) opBool(step *stepInfo) {
	fn := (step.opcode >> 2) & 0xf
	ac := c.acs[step.ac]
	switch fn {
	case 0o0, 0o5, 0o12, 0o17:
		// Result does not depend on memory.
		c.writeSet(step, boolOps[fn](ac, 0)&word.Mask)
		return
	}
	src, ok := c.readOperand(step)
	if !ok {
		return
	}
	c.writeResult(step, boolOps[fn](ac, src))
}

// 500-577 half word moves.
func (c *CPU) opHalf(step *stepInfo) {
	op := step.opcode
	dst, ok := c.readMove(step)
	if !ok {
		return
	}
	var src uint64
	if ((op ^ (op >> 3)) & 4) != 0 {
		src = word.Right(dst)
	} else {
		src = word.Left(dst)
	}
	switch (op >> 3) & 3 {
	case 0: // Insert into destination
		switch op & 3 {
		case 2:
			if dst, ok = c.readWord(step.ea); !ok {
				return
			}
		case 3:
		default:
			dst = c.acs[step.ac]
		}
	case 1: // Zeros
		dst = 0
	case 2: // Ones
		dst = word.Mask
	case 3: // Extend sign
		dst = 0
		if (src & word.HalfSign) != 0 {
			dst = word.Mask
		}
	}
	if (op & 0o40) != 0 {
		dst = word.Combine(word.Left(dst), src)
	} else {
		dst = word.Combine(src, word.Right(dst))
	}
	c.writeMove(step, dst)
}

// 600-677 test bits in AC, modify and skip.
func (c *CPU) opTest(step *stepInfo) {
	op := step.opcode
	var mask uint64
	switch op & 0o11 {
	case 0o0: // Right immediate
		mask = step.ea
	case 0o1: // Left immediate
		mask = word.Combine(step.ea, 0)
	default: // Direct or swapped memory
		src, ok := c.readWord(step.ea)
		if !ok {
			return
		}
		mask = src
		if (op & 1) != 0 {
			mask = word.Swap(src)
		}
	}
	dst := c.acs[step.ac]
	switch (op >> 1) & 3 {
	case 1: // E
		if (mask & dst) == 0 {
			c.skip()
		}
	case 2: // A
		c.skip()
	case 3: // N
		if (mask & dst) != 0 {
			c.skip()
		}
	}
	switch (op >> 4) & 3 {
	case 1: // Z
		dst &^= mask
	case 2: // C
		dst ^= mask
	case 3: // O
		dst |= mask
	}
	c.acs[step.ac] = dst
}

// Unimplemented user operations. LUUOs trap through location 40 of the
// current space, everything else through the user process table.
func (c *CPU) opUUO(step *stepInfo) {
	uuo := uint64(step.opcode)<<27 | step.ac<<23 | step.ea
	debug.Debugf("CPU", c.debugMsk, debugTrap, "UUO %012o at %06o", uuo, c.savePC)
	if step.opcode >= 1 && step.opcode <= 0o37 {
		if !c.userMode {
			c.writeExecTable(luuoStore, uuo)
			c.xct(c.readExecTable(luuoInst), step.trap)
			return
		}
		if !c.writeWord(luuoStore, uuo) {
			return
		}
		if inst, ok := c.getWord(luuoInst, accessRead|accessExecute); ok {
			c.xct(inst, step.trap)
		}
		return
	}
	c.writeUserTable(muuoStore, uuo)
	c.writeUserTable(muuoPC, c.pcWord())
	addr := muuoNewPC
	if c.userMode {
		addr += 4
	}
	if (c.flags & flagPUB) != 0 {
		addr += 2
	}
	if step.trap {
		addr++
	}
	newPC := c.readUserTable(addr)
	c.writeFlags(word.Left(newPC))
	c.jump(newPC)
	c.interruptMode = false
}
