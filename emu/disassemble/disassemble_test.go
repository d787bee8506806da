/*
 * KI10 - Instruction disassembler tests.
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

package disassemble

import (
	"testing"
)

func TestDisassemble(t *testing.T) {
	tests := []struct {
		w     uint64
		match string
	}{
		{0o200040000100, "MOVE   1,100"},
		{0o200000000100, "MOVE   100"},
		{0o201100000005, "MOVEI  2,5"},
		{0o254000001000, "JRST   1000"},
		{0o254020001000, "JRST   @1000"},
		{0o202161001234, "MOVEM  3,@1234(1)"},
		{0o344040001000, "AOJA   1,1000"},
		{0o124600000200, "DMOVEM 14,200"},
		{0o247000000000, "247    0"},
		{0o000000000000, "000    0"},
		{0o700600000000, "CONO   004,0"},
		{0o700200000000, "CONO   000,0"},
	}
	for _, test := range tests {
		inst := Disassemble(test.w)
		if inst != test.match {
			t.Error("Inst Got: " + inst + " Expected " + test.match)
		}
	}
}

func TestDisassembleIO(t *testing.T) {
	tests := []struct {
		w     uint64
		match string
	}{
		{0o712200000005, "CONO   120,5"},
		{0o712240000000, "CONI   120,0"},
		{0o712140000100, "DATAO  120,100"},
		{0o712040000100, "DATAI  120,100"},
		{0o700340000001, "CONSO  000,1"},
		{0o701060000200, "DATAI  010,@200"},
		{0o725002001000, "BLKI   250,1000(2)"},
	}
	for _, test := range tests {
		inst := Disassemble(test.w)
		if inst != test.match {
			t.Error("Inst Got: " + inst + " Expected " + test.match)
		}
	}
}

func TestPrintInst(t *testing.T) {
	match := "001000: 344040,,001000  AOJA   1,1000"
	line := PrintInst(0o1000, 0o344040001000)
	if line != match {
		t.Error("Got: " + line + " Expected " + match)
	}
}
