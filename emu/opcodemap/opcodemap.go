/*
 * KI10 - Instruction mnemonics for assembly and disassembly.
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

// Package opcodemap names the KI10 instruction set. Basic instructions are
// indexed by their nine bit opcode, I/O instructions by their three bit
// function.
package opcodemap

import (
	"fmt"
	"strings"
)

// OpIO is the first I/O opcode.
const OpIO = 0o700

// I/O functions.
const (
	IoBLKI = iota
	IoDATAI
	IoBLKO
	IoDATAO
	IoCONO
	IoCONI
	IoCONSZ
	IoCONSO
)

var ioNames = [8]string{"BLKI", "DATAI", "BLKO", "DATAO", "CONO", "CONI", "CONSZ", "CONSO"}

// Monitor calls occupying the MUUO range.
var muuoNames = [0o40]string{
	"CALL", "INIT", "", "", "", "", "", "CALLI",
	"OPEN", "TTCALL", "", "", "", "RENAME", "IN", "OUT",
	"SETSTS", "STATO", "GETSTS", "STATZ", "INBUF", "OUTBUF", "INPUT", "OUTPUT",
	"CLOSE", "RELEAS", "MTAPE", "UGETF", "USETI", "USETO", "LOOKUP", "ENTER",
}

var names [OpIO]string

var lookup map[string]int

// Fill in a group of four with a mode suffix.
func modes(base int, name string, suffix [4]string) {
	for i, s := range suffix {
		names[base+i] = name + s
	}
}

func init() {
	for i := 1; i < 0o40; i++ {
		names[i] = fmt.Sprintf("LUUO%02o", i)
	}
	for i, n := range muuoNames {
		names[0o40+i] = n
	}

	misc := map[int]string{
		0o100: "UJEN", 0o110: "DFAD", 0o111: "DFSB", 0o112: "DFMP", 0o113: "DFDV",
		0o120: "DMOVE", 0o121: "DMOVN", 0o122: "FIX", 0o124: "DMOVEM",
		0o125: "DMOVNM", 0o126: "FIXR", 0o127: "FLTR", 0o130: "UFA",
		0o131: "DFN", 0o132: "FSC", 0o133: "IBP", 0o134: "ILDB", 0o135: "LDB",
		0o136: "IDPB", 0o137: "DPB",
	}
	for op, n := range misc {
		names[op] = n
	}

	float := [4]string{"FAD", "FSB", "FMP", "FDV"}
	fsuffix := [8]string{"", "L", "M", "B", "R", "RI", "RM", "RB"}
	for i, n := range float {
		for j, s := range fsuffix {
			names[0o140+i*8+j] = n + s
		}
	}

	imb := [4]string{"", "I", "M", "B"}
	ims := [4]string{"", "I", "M", "S"}
	for i, n := range []string{"MOVE", "MOVS", "MOVN", "MOVM"} {
		modes(0o200+i*4, n, ims)
	}
	for i, n := range []string{"IMUL", "MUL", "IDIV", "DIV"} {
		modes(0o220+i*4, n, imb)
	}
	grp := []string{
		"ASH", "ROT", "LSH", "JFFO", "ASHC", "ROTC", "LSHC", "",
		"EXCH", "BLT", "AOBJP", "AOBJN", "JRST", "JFCL", "XCT", "MAP",
		"PUSHJ", "PUSH", "POP", "POPJ", "JSR", "JSP", "JSA", "JRA",
	}
	for i, n := range grp {
		names[0o240+i] = n
	}
	modes(0o270, "ADD", imb)
	modes(0o274, "SUB", imb)

	cond := [8]string{"", "L", "E", "LE", "A", "GE", "N", "G"}
	for i, n := range []string{"CAI", "CAM", "JUMP", "SKIP", "AOJ", "AOS", "SOJ", "SOS"} {
		for j, s := range cond {
			names[0o300+i*8+j] = n + s
		}
	}

	boolean := []string{
		"SETZ", "AND", "ANDCA", "SETM", "ANDCM", "SETA", "XOR", "IOR",
		"ANDCB", "EQV", "SETCA", "ORCA", "SETCM", "ORCM", "ORCB", "SETO",
	}
	for i, n := range boolean {
		modes(0o400+i*4, n, imb)
	}

	half := []string{
		"HLL", "HRL", "HLLZ", "HRLZ", "HLLO", "HRLO", "HLLE", "HRLE",
		"HRR", "HLR", "HRRZ", "HLRZ", "HRRO", "HLRO", "HRRE", "HLRE",
	}
	for i, n := range half {
		modes(0o500+i*4, n, ims)
	}

	// Test instructions: bits 2-3 modify, bit 4 register or memory mask,
	// bits 5-6 skip condition, bit 8 left or swapped.
	for op := 0o600; op < OpIO; op++ {
		mask := [2]string{"R", "L"}
		if op&0o10 != 0 {
			mask = [2]string{"D", "S"}
		}
		n := "T" + mask[op&1] + string("NZCO"[(op>>4)&3]) + []string{"", "E", "A", "N"}[(op>>1)&3]
		names[op] = n
	}

	lookup = make(map[string]int, len(names))
	for op, n := range names {
		if n != "" {
			lookup[n] = op
		}
	}
	for f, n := range ioNames {
		lookup[n] = OpIO | f
	}
}

// Name returns the mnemonic of a basic opcode, empty if unassigned.
func Name(op int) string {
	if op < 0 || op >= OpIO {
		return ""
	}
	return names[op]
}

// IOName returns the mnemonic of an I/O function.
func IOName(fn int) string {
	return ioNames[fn&7]
}

// Lookup returns the opcode for a mnemonic. I/O instructions return
// OpIO plus their function.
func Lookup(name string) (int, bool) {
	op, ok := lookup[strings.ToUpper(name)]
	return op, ok
}

// IsIO reports if the opcode from Lookup is an I/O function.
func IsIO(op int) bool {
	return op >= OpIO
}
