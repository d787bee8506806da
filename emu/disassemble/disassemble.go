/*
 * KI10 - Instruction disassembler.
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
	"fmt"
	"strings"

	op "github.com/rcornwell/KI10/emu/opcodemap"
	"github.com/rcornwell/KI10/util/octal"
)

// Disassemble returns the instruction held in a word. Unassigned opcodes
// are shown in octal.
func Disassemble(w uint64) string {
	opc := int(w>>27) & 0o777
	ac := (w >> 23) & 0o17
	ind := (w >> 22) & 1
	x := (w >> 18) & 0o17
	y := w & 0o777777

	var inst strings.Builder
	if opc >= op.OpIO {
		dev := ((w >> 26) & 0o177) << 2
		fn := int(w>>23) & 7
		fmt.Fprintf(&inst, "%-6s %03o,", op.IOName(fn), dev)
	} else {
		name := op.Name(opc)
		if name == "" {
			name = fmt.Sprintf("%03o", opc)
		}
		fmt.Fprintf(&inst, "%-6s ", name)
		if ac != 0 {
			fmt.Fprintf(&inst, "%o,", ac)
		}
	}
	if ind != 0 {
		inst.WriteByte('@')
	}
	fmt.Fprintf(&inst, "%o", y)
	if x != 0 {
		fmt.Fprintf(&inst, "(%o)", x)
	}
	return inst.String()
}

// PrintInst formats a word at an address for display.
func PrintInst(addr, w uint64) string {
	return fmt.Sprintf("%06o: %s  %s", addr, octal.Halves(w), Disassemble(w))
}
