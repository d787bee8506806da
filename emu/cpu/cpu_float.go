/*
 * KI10 - Floating point instructions.
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
	"github.com/holiman/uint256"

	"github.com/rcornwell/KI10/emu/word"
)

/*
   Single precision floating point:

      0 1      8 9                         35
      +-+--------+---------------------------+
      |S|exponent|         fraction          |
      +-+--------+---------------------------+

   Double precision adds 35 more fraction bits in bits 1-35 of the
   second word. Negative numbers are the two's complement of the whole
   word, or of the 62 bit fraction for doubles. The exponent is excess
   128 and a normalized fraction has bit 9 differing from the sign.

   Arithmetic is done on the magnitude of the fraction held with 64
   guard bits below the least significant bit, so alignment and
   normalization shifts are exact and rounding sees the full result.
*/

const (
	guard      = 64 // Guard bits below fraction
	singleBits = 27 // Fraction bits of single precision
	doubleBits = 62 // Fraction bits of double precision

	noDivide = flagAOV | flagTR1 | flagFOV | flagDCX
)

var (
	roundHalf = word.Pow2(guard - 1)
	singleOne = scaled(BIT8)
	doubleTop = uint64(1) << doubleBits
)

// Unpacked floating point number.
type fpNum struct {
	neg  bool
	exp  int
	frac uint256.Int // Magnitude of fraction times 2^guard
}

// Fraction integer m scaled to carry guard bits.
func scaled(m uint64) *uint256.Int {
	r := uint256.NewInt(m)
	return r.Lsh(r, guard)
}

// Integer part of fraction.
func (f *fpNum) integer() uint64 {
	var r uint256.Int
	r.Rsh(&f.frac, guard)
	return r.Uint64()
}

// Split a single precision word.
func splitFloat(w uint64) fpNum {
	var f fpNum
	if w == 0 {
		return f
	}
	m := w & (BIT8 - 1)
	if word.IsNeg(w) {
		f.neg = true
		f.exp = int((w >> 27) ^ 0o777)
		m = BIT8 - m
	} else {
		f.exp = int(w >> 27)
	}
	f.frac.Set(scaled(m))
	return f
}

// Split a double precision pair, the sign of the low word is ignored.
func splitDouble(hi, lo uint64) fpNum {
	var f fpNum
	lo &= word.LowMask
	if hi == 0 && lo == 0 {
		return f
	}
	m := (hi&(BIT8-1))<<35 | lo
	if word.IsNeg(hi) {
		f.neg = true
		f.exp = int((hi >> 27) ^ 0o777)
		m = doubleTop - m
	} else {
		f.exp = int(hi >> 27)
	}
	f.frac.Set(scaled(m))
	return f
}

// Shift single fraction right n places. Long negative shifts leave a
// trace so the result truncates away from zero.
func (f *fpNum) shiftFloat(n int) {
	switch {
	case n > 31 && (n >= 64 || !f.neg):
		f.frac.Clear()
	case n > 31:
		f.frac.SetOne()
	default:
		f.frac.Rsh(&f.frac, uint(n))
	}
	f.exp += n
}

// Shift double fraction right n places.
func (f *fpNum) shiftDouble(n int) {
	if n >= 70 {
		f.frac.Clear()
	} else {
		f.frac.Rsh(&f.frac, uint(n))
	}
	f.exp += n
}

// Bring operands to the same exponent.
func align(a, b *fpNum, shift func(*fpNum, int)) {
	switch {
	case a.exp < b.exp:
		shift(a, b.exp-a.exp)
	case b.exp < a.exp:
		shift(b, a.exp-b.exp)
	}
}

// Signed add of aligned fractions.
func (f *fpNum) add(op *fpNum) {
	switch {
	case f.neg == op.neg:
		f.frac.Add(&f.frac, &op.frac)
	case f.frac.Lt(&op.frac):
		f.frac.Sub(&op.frac, &f.frac)
		f.neg = !f.neg
	default:
		f.frac.Sub(&f.frac, &op.frac)
	}
}

// Shift fraction until its top bit is bit top-1 of the integer part.
func (f *fpNum) normalize(top int) {
	if f.frac.IsZero() {
		f.exp = 0
		return
	}
	d := f.frac.BitLen() - (top + guard)
	word.Scale(&f.frac, -d)
	f.exp += d
}

// Check exponent range, setting overflow or underflow. FSC sees
// underflow as overflow, and overflow as underflow, when the exponent
// is out by more than 128.
func (c *CPU) exponent(exp int, fsc bool) uint64 {
	switch {
	case exp < 0:
		if fsc && exp < -128 {
			c.setFlags(flagAOV | flagFOV | flagTR1)
		} else {
			c.setFlags(flagAOV | flagFOV | flagFXU | flagTR1)
		}
	case exp > 255:
		if fsc && exp > 383 {
			c.setFlags(flagAOV | flagFOV | flagFXU | flagTR1)
		} else {
			c.setFlags(flagAOV | flagFOV | flagTR1)
		}
	}
	return uint64(exp & 0xff)
}

// Pack single precision result. Negative fractions are complemented
// before truncation or rounding.
func (c *CPU) makeFloat(f *fpNum, round bool, fsc bool) uint64 {
	if f.frac.IsZero() {
		return 0
	}
	var n uint256.Int
	if f.neg {
		n.Sub(singleOne, &f.frac)
	} else {
		n.Set(&f.frac)
	}
	exp := f.exp
	if round {
		n.Add(&n, roundHalf)
	}
	n.Rsh(&n, guard)
	m := n.Uint64()
	if m >= BIT8 {
		m >>= 1
		exp++
	}
	e := c.exponent(exp, fsc)
	if f.neg {
		return ((e^0o777)<<27 + m) & word.Mask
	}
	return e<<27 | m
}

// FAD, FSB, FMP, FDV and their modes.
func (c *CPU) opFloat(step *stepInfo) {
	src, ok := c.readOperand(step)
	if !ok {
		return
	}
	if (step.opcode & 7) == 5 {
		src = (src << 18) & word.Mask
	}
	acc := splitFloat(c.acs[step.ac])
	op := splitFloat(src)
	round := (step.opcode & 4) != 0
	switch (step.opcode >> 3) & 3 {
	case 0, 1:
		if (step.opcode & 0o10) != 0 {
			op.neg = !op.neg
		}
		align(&acc, &op, (*fpNum).shiftFloat)
		acc.add(&op)
		acc.normalize(singleBits)
	case 2:
		acc.multiplyFloat(&op)
	case 3:
		if !c.divideFloat(&acc, &op, round) {
			return
		}
	}
	c.writeResult(step, c.makeFloat(&acc, round, false))
}

// Single precision product, the 54 bit product is cut to 27 bits.
func (f *fpNum) multiplyFloat(op *fpNum) {
	var p uint256.Int
	p.Mul(&f.frac, &op.frac)
	f.neg = f.neg != op.neg
	f.exp += op.exp - 128
	if p.BitLen() > 53+2*guard {
		f.frac.Rsh(&p, guard+27)
		return
	}
	f.frac.Rsh(&p, guard+26)
	f.exp--
	if f.frac.Lt(scaled(BIT9)) {
		f.normalize(singleBits)
	}
}

// Single precision quotient, false if the divide could not be done.
func (c *CPU) divideFloat(f *fpNum, op *fpNum, round bool) bool {
	a := f.integer()
	b := op.integer()
	if b == 0 || a >= 2*b {
		c.setFlags(noDivide)
		return false
	}
	f.neg = f.neg != op.neg
	f.exp += 128 - op.exp
	k := 27
	if a >= b {
		k = 26
		f.exp++
	}
	var q uint64
	if round {
		q = (a<<(k+1) + b) / (2 * b)
	} else {
		q = (a << k) / b
	}
	f.frac.Set(scaled(q))
	if q < BIT9 {
		f.normalize(singleBits)
	}
	return true
}

// Double precision add, subtract, multiply or divide of f by op.
// Results of multiply and divide are left unnormalized.
func (c *CPU) doubleOp(f *fpNum, op *fpNum, fn uint32) bool {
	switch fn {
	case 0, 1:
		if fn == 1 {
			op.neg = !op.neg
		}
		align(f, op, (*fpNum).shiftDouble)
		f.add(op)
	case 2:
		var a, b, p uint256.Int
		a.Rsh(&f.frac, guard)
		b.Rsh(&op.frac, guard)
		p.Mul(&a, &b)
		f.neg = f.neg != op.neg
		f.exp += op.exp - 128
		if p.BitLen() > 123 {
			f.frac.Lsh(&p, guard-doubleBits)
		} else {
			f.frac.Lsh(&p, guard-doubleBits+1)
			f.exp--
		}
	case 3:
		if op.frac.IsZero() {
			c.setFlags(noDivide)
			return false
		}
		var a, b, q uint256.Int
		a.Rsh(&f.frac, guard)
		a.Lsh(&a, 68)
		b.Rsh(&op.frac, guard)
		q.Div(&a, &b)
		switch n := q.BitLen(); {
		case n > 69:
			c.setFlags(noDivide)
			return false
		case n == 69:
			q.Rsh(&q, 7)
			f.exp++
		default:
			q.Rsh(&q, 6)
		}
		f.neg = f.neg != op.neg
		f.exp += 128 - op.exp
		f.frac.Set(scaled(q.Uint64()))
	}
	return true
}

// Round double fraction, renormalizing if it carried out.
func (f *fpNum) roundDouble() uint64 {
	var n uint256.Int
	n.Add(&f.frac, roundHalf)
	n.Rsh(&n, guard)
	m := n.Uint64()
	if m >= doubleTop {
		m >>= 1
		f.exp++
	}
	return m
}

// Store double precision result in AC, AC+1.
func (c *CPU) writeDoubleAC(ac uint64, f *fpNum) {
	m := f.roundDouble()
	if m == 0 {
		c.acs[ac] = 0
		c.acs[next(ac)] = 0
		return
	}
	e := c.exponent(f.exp, false) << 27
	hi := m >> 35
	lo := m & word.LowMask
	switch {
	case !f.neg:
		c.acs[ac] = e | hi
		c.acs[next(ac)] = lo
	case lo != 0:
		c.acs[ac] = (word.Base - e - hi - 1) & word.Mask
		c.acs[next(ac)] = word.Sign - lo
	default:
		c.acs[ac] = (word.Base - e - hi) & word.Mask
		c.acs[next(ac)] = 0
	}
}

// DFAD, DFSB, DFMP, DFDV.
func (c *CPU) opDFloat(step *stepInfo) {
	hi, lo, ok := c.readDouble(step.ea)
	if !ok {
		return
	}
	acc := splitDouble(c.acs[step.ac], c.acs[next(step.ac)])
	op := splitDouble(hi, lo)
	if !c.doubleOp(&acc, &op, step.opcode&3) {
		return
	}
	if step.opcode != 0o112 {
		acc.normalize(doubleBits)
	}
	c.writeDoubleAC(step.ac, &acc)
}

/*
   Long format holds a 54 bit fraction in two single precision words.
   The second word has a positive exponent 27 less than the first and
   the low 27 bits of the fraction.
*/

// Store long result in AC, AC+1.
func (c *CPU) writeLong(ac uint64, f *fpNum) {
	m := f.integer()
	hi := m >> 35
	lo := (m & word.LowMask) >> 8
	if hi == 0 && lo == 0 {
		c.acs[ac] = 0
		c.acs[next(ac)] = 0
		return
	}
	exp := c.exponent(f.exp, false)
	low := func(frac uint64) uint64 {
		return ((exp-27)&0xff)<<27 + frac
	}
	// Second word exponent would underflow.
	wrap := exp >= 101 && exp < 128
	if !f.neg {
		c.acs[ac] = exp<<27 + hi
		if lo != 0 && !wrap {
			c.acs[next(ac)] = low(lo)
		} else {
			c.acs[next(ac)] = 0
		}
		return
	}
	if lo != 0 {
		hi++
		if wrap {
			lo = 0
		}
	}
	c.acs[ac] = (word.Base - exp<<27 - hi) & word.Mask
	if lo != 0 {
		c.acs[next(ac)] = low(BIT8 - lo)
	} else {
		c.acs[next(ac)] = 0
	}
}

// FADL, FSBL, FMPL long results from single operands.
func (c *CPU) opFloatLong(step *stepInfo) {
	src, ok := c.readWord(step.ea)
	if !ok {
		return
	}
	acc := splitDouble(c.acs[step.ac], 0)
	op := splitDouble(src, 0)
	if !c.doubleOp(&acc, &op, (step.opcode>>3)&3) {
		return
	}
	acc.normalize(doubleBits)
	c.writeLong(step.ac, &acc)
}

// FDVL divide long AC, AC+1 by C(E), quotient to AC and remainder to AC+1.
func (c *CPU) opFDVL(step *stepInfo) {
	src, ok := c.readWord(step.ea)
	if !ok {
		return
	}
	op := splitFloat(src)
	divisor := op.integer()
	if divisor == 0 {
		c.setFlags(noDivide)
		return
	}
	if c.acs[step.ac] == 0 {
		c.acs[next(step.ac)] = 0
		return
	}
	acc := splitDouble(c.acs[step.ac], c.acs[next(step.ac)]&(BIT8-1))
	m := acc.integer()
	dividend := (m>>35)<<27 | (m & (BIT8 - 1))
	q := dividend / divisor
	if (q >> 17) > 0o10000 {
		c.setFlags(noDivide)
		return
	}
	rem := fpNum{neg: acc.neg, exp: acc.exp - 27}
	rem.frac.Set(scaled(dividend % divisor))
	acc.neg = acc.neg != op.neg
	acc.exp += 128 - op.exp
	acc.frac.Set(scaled(q))
	acc.normalize(singleBits)
	c.acs[step.ac] = c.makeFloat(&acc, false, false)
	if acc.exp < 0 {
		c.acs[next(step.ac)] = 0
	} else {
		c.acs[next(step.ac)] = c.makeFloat(&rem, false, false)
	}
}

// UFA unnormalized add, result to AC+1.
func (c *CPU) opUFA(step *stepInfo) {
	src, ok := c.readWord(step.ea)
	if !ok {
		return
	}
	acc := splitFloat(c.acs[step.ac])
	op := splitFloat(src)
	align(&acc, &op, (*fpNum).shiftFloat)
	acc.add(&op)
	if !acc.frac.Lt(singleOne) {
		acc.shiftFloat(1)
	}
	c.acs[next(step.ac)] = c.makeFloat(&acc, false, false)
}

// DFN negate the long number in AC and E.
func (c *CPU) opDFN(step *stepInfo) {
	src, ok := c.readModify(step.ea)
	if !ok {
		return
	}
	var carry uint64
	if r := src & (BIT8 - 1); r != 0 {
		src = src - r + (BIT8 - r)
		carry = 1
	}
	c.modifyWord(src)
	c.acs[step.ac] = (word.Base - c.acs[step.ac] - carry) & word.Mask
}

// FSC scale AC by E.
func (c *CPU) opFSC(step *stepInfo) {
	f := splitFloat(c.acs[step.ac])
	if f.frac.IsZero() {
		c.acs[step.ac] = 0
		return
	}
	if step.ea < word.HalfSign {
		f.exp += int(step.ea % 256)
	} else {
		n := int((word.HalfBase - step.ea) % 256)
		if n == 0 {
			n = 256
		}
		f.exp -= n
	}
	f.normalize(singleBits)
	c.acs[step.ac] = c.makeFloat(&f, false, true)
}

// FIX and FIXR convert C(E) to an integer.
func (c *CPU) fix(step *stepInfo, round bool) {
	src, ok := c.readWord(step.ea)
	if !ok {
		return
	}
	f := splitFloat(src)
	m := f.integer()
	var v uint64
	if s := f.exp - 155; s >= 0 {
		v = m << min(s, 36)
	} else {
		s = min(-s, 63)
		if round {
			// Halves round up.
			bias := uint64(1) << (s - 1)
			if f.neg {
				bias--
			}
			m += bias
		}
		v = m >> s
	}
	if v >= word.Sign {
		c.setFlags(flagAOV | flagTR1)
		return
	}
	if f.neg {
		v = word.Neg(v)
	}
	c.acs[step.ac] = v
}

func (c *CPU) opFIX(step *stepInfo) {
	c.fix(step, false)
}

func (c *CPU) opFIXR(step *stepInfo) {
	c.fix(step, true)
}

// FLTR integer to floating point rounded.
func (c *CPU) opFLTR(step *stepInfo) {
	src, ok := c.readWord(step.ea)
	if !ok {
		return
	}
	f := fpNum{neg: word.IsNeg(src), exp: 155}
	f.frac.Set(scaled(word.Abs(src)))
	f.normalize(singleBits)
	c.acs[step.ac] = c.makeFloat(&f, true, false)
}

// Negate double word, the sign of the low word is dropped.
func negateDouble(hi, lo uint64) (uint64, uint64) {
	lo &= word.LowMask
	if lo != 0 {
		return ^hi & word.Mask, word.Sign - lo
	}
	return word.Neg(hi), 0
}

// DMOVE C(AC, AC+1) <- C(E, E+1).
func (c *CPU) opDMOVE(step *stepInfo) {
	hi, lo, ok := c.readDouble(step.ea)
	if !ok {
		return
	}
	c.acs[step.ac] = hi
	c.acs[next(step.ac)] = lo
}

// DMOVN C(AC, AC+1) <- -C(E, E+1).
func (c *CPU) opDMOVN(step *stepInfo) {
	hi, lo, ok := c.readDouble(step.ea)
	if !ok {
		return
	}
	c.acs[step.ac], c.acs[next(step.ac)] = negateDouble(hi, lo)
}

// DMOVEM C(E, E+1) <- C(AC, AC+1).
func (c *CPU) opDMOVEM(step *stepInfo) {
	c.writeDouble(step.ea, c.acs[step.ac], c.acs[next(step.ac)])
}

// DMOVNM C(E, E+1) <- -C(AC, AC+1).
func (c *CPU) opDMOVNM(step *stepInfo) {
	hi, lo := negateDouble(c.acs[step.ac], c.acs[next(step.ac)])
	c.writeDouble(step.ea, hi, lo)
}
