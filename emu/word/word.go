/*
 * KI10 - 36 bit word primitives.
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

// Package word holds the 36 bit word algebra shared by the processor
// and the devices. A word is carried in a uint64 and always lies in
// the range 0 to 2^36-1, bit 0 (the sign) being the most significant.
package word

import (
	"github.com/holiman/uint256"
)

const (
	Mask     uint64 = 0o777777777777 // Full word
	Sign     uint64 = 0o400000000000 // Sign bit, bit 0
	Base     uint64 = Mask + 1       // 2^36
	HalfMask uint64 = 0o777777       // Right half
	HalfSign uint64 = 0o400000       // Sign of a half word
	HalfBase uint64 = HalfMask + 1   // 2^18
	LowMask  uint64 = Sign - 1       // Magnitude bits of a word
)

// Overflow reports how a signed value failed to fit in a word.
type Overflow int

const (
	NoOverflow  Overflow = iota
	PosOverflow          // Value above 2^35-1, set AOV and C1
	NegOverflow          // Value below -2^35, set AOV and C0
)

// Left half of a word.
func Left(w uint64) uint64 {
	return (w >> 18) & HalfMask
}

// Right half of a word.
func Right(w uint64) uint64 {
	return w & HalfMask
}

// Split a word into halves.
func Split(w uint64) (uint64, uint64) {
	return Left(w), Right(w)
}

// Combine two halves into a word, each half is truncated to 18 bits.
func Combine(l, r uint64) uint64 {
	return ((l & HalfMask) << 18) | (r & HalfMask)
}

// Swap halves of a word.
func Swap(w uint64) uint64 {
	return Combine(Right(w), Left(w))
}

// IsNeg returns true if sign bit set.
func IsNeg(w uint64) bool {
	return (w & Sign) != 0
}

// Neg is the two's complement of a word, -2^35 stays -2^35.
func Neg(w uint64) uint64 {
	return (Base - w) & Mask
}

// Abs returns magnitude of word.
func Abs(w uint64) uint64 {
	if IsNeg(w) {
		return Neg(w)
	}
	return w
}

// ToSigned converts word to host integer.
func ToSigned(w uint64) int64 {
	w &= Mask
	if IsNeg(w) {
		return int64(w) - int64(Base)
	}
	return int64(w)
}

// FromSigned converts a host integer to a word. Values outside the
// range of a word wrap modulo 2^36 and report the direction of overflow.
func FromSigned(i int64) (uint64, Overflow) {
	ovf := NoOverflow
	switch {
	case i >= int64(Sign):
		ovf = PosOverflow
	case i < -int64(Sign):
		ovf = NegOverflow
	}
	return uint64(i) & Mask, ovf
}

// Pow2 returns 2^n as an exact integer, n must be less than 256.
func Pow2(n uint) *uint256.Int {
	r := uint256.NewInt(1)
	return r.Lsh(r, n)
}

// Scale multiplies v by 2^n in place. A negative n divides, dropping the
// bits shifted out.
func Scale(v *uint256.Int, n int) *uint256.Int {
	switch {
	case n > 0:
		v.Lsh(v, uint(n))
	case n < 0:
		v.Rsh(v, uint(-n))
	}
	return v
}

// Mul forms the signed product of two words as a double word. The high
// word holds the sign and upper 35 bits, the low word holds the lower 35
// bits with a copy of the sign.
func Mul(a, b uint64) (uint64, uint64) {
	var prod uint256.Int
	neg := IsNeg(a) != IsNeg(b)
	prod.Mul(uint256.NewInt(Abs(a)), uint256.NewInt(Abs(b)))
	if neg && !prod.IsZero() {
		// Two's complement in 71 bits.
		prod.Sub(Pow2(71), &prod)
	}
	var t uint256.Int
	t.Rsh(&prod, 35)
	hi := t.Uint64() & Mask
	lo := prod.Uint64() & LowMask
	if neg && !prod.IsZero() {
		lo |= Sign
	}
	return hi, lo
}

// Magnitude of a double word, the sign of the low word is ignored. The
// result is a 70 bit integer.
func doubleMagnitude(hi, lo uint64) (*uint256.Int, bool) {
	v := uint256.NewInt(hi & Mask)
	v.Lsh(v, 35)
	v.Or(v, uint256.NewInt(lo&LowMask))
	if IsNeg(hi) {
		return v.Sub(Pow2(71), v), true
	}
	return v, false
}

// Div divides the double word hi,lo by d. The quotient takes the product
// of the signs and the remainder the sign of the dividend. ok is false when
// the divisor is zero or not larger than the high half of the dividend.
func Div(hi, lo, d uint64) (q uint64, r uint64, ok bool) {
	dm := Abs(d)
	if dm == 0 {
		return 0, 0, false
	}
	mag, rneg := doubleMagnitude(hi, lo)
	var top uint256.Int
	top.Rsh(mag, 35)
	if !top.IsUint64() || top.Uint64() >= dm {
		return 0, 0, false
	}
	var quo, rem uint256.Int
	quo.DivMod(mag, uint256.NewInt(dm), &rem)
	q = quo.Uint64()
	r = rem.Uint64()
	if rneg != IsNeg(d) {
		q = Neg(q)
	}
	if rneg {
		r = Neg(r)
	}
	return q, r, true
}
