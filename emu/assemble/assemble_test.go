/*
 * KI10 - Single line instruction assembler tests.
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

package assembler

import (
	"testing"

	disassembler "github.com/rcornwell/KI10/emu/disassemble"
)

func TestAssembleErrors(t *testing.T) {
	tests := map[string]string{
		"":               "undefined opcode ",
		"ABC":            "undefined opcode ABC",
		"MOVE 20,100":    "accumulator out of range for MOVE",
		"MOVE 1,100(20)": "index register out of range for MOVE",
		"MOVE 1,100(2":   "invalid format for MOVE",
		"MOVE 1,1000000": "address out of range for MOVE",
		"MOVE 1,100 X":   "extra data after instruction MOVE",
		"CONO 121,5":     "invalid device for CONO",
		"CONO 120 5":     "invalid format for CONO",
		"1,,2000000":     "invalid half word 1,,2000000",
		"12 3":           "extra data after number 12 3",
	}
	for test, match := range tests {
		inst, err := Assemble(test)
		if err == nil {
			t.Errorf("Inst: '%s' did not return error got: %012o", test, inst)
			continue
		}
		if err.Error() != match {
			t.Error("Inst: '" + test + "' wrong error message: " + err.Error())
		}
	}
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		line  string
		match uint64
	}{
		{"MOVE 1,100", 0o200040000100},
		{"move 1,100", 0o200040000100},
		{"MOVEI 2,5", 0o201100000005},
		{"JRST 1000", 0o254000001000},
		{"JRST @1000", 0o254020001000},
		{"MOVEM 3,@1234(1)", 0o202161001234},
		{"MOVEM 3, @1234 (1)", 0o202161001234},
		{"POPJ 17,", 0o263740000000},
		{"JFCL", 0o255000000000},
		{"SETZM 100(5)", 0o402005000100},
		{"CONO 120,5", 0o712200000005},
		{"DATAI 010,@200", 0o701060000200},
		{"BLKI 250,1000(2)", 0o725002001000},
		{"1,,2", 0o000001000002},
		{"777777,,0", 0o777777000000},
		{"123", 0o123},
		{"-1", 0o777777777777},
	}
	for _, test := range tests {
		inst, err := Assemble(test.line)
		if err != nil {
			t.Error("Inst: '" + test.line + "' error: " + err.Error())
			continue
		}
		if inst != test.match {
			t.Errorf("Inst: '%s' got: %012o expected: %012o", test.line, inst, test.match)
		}
	}
}

// Assembling the disassembled form gives back the word.
func TestRoundTrip(t *testing.T) {
	for _, w := range []uint64{
		0o200040000100, 0o202161001234, 0o344040001000, 0o712200000005,
		0o124600000200, 0o677777777777, 0o254020001000,
	} {
		text := disassembler.Disassemble(w)
		inst, err := Assemble(text)
		if err != nil {
			t.Error("Inst: '" + text + "' error: " + err.Error())
			continue
		}
		if inst != w {
			t.Errorf("Inst: '%s' got: %012o expected: %012o", text, inst, w)
		}
	}
}
