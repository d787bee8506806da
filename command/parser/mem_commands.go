/*
 * KI10 - Memory examine and deposit commands.
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

package parser

import (
	"errors"
	"fmt"
	"log/slog"

	assembler "github.com/rcornwell/KI10/emu/assemble"
	disassembler "github.com/rcornwell/KI10/emu/disassemble"
)

const maxExamine = 0o10000

// Get an address or address range lo-hi.
func (line *cmdLine) getRange() (uint64, uint64, error) {
	lo, err := line.getOctal()
	if err != nil {
		return 0, 0, errors.New("address must be octal number")
	}
	hi := lo
	if line.peek() == '-' {
		line.pos++
		hi, err = line.getOctal()
		if err != nil {
			return 0, 0, errors.New("address range must end in octal number")
		}
	}
	if hi < lo {
		return 0, 0, errors.New("address range is reversed")
	}
	if hi > 0o17777777 {
		return 0, 0, errors.New("address too large")
	}
	if !line.atSeparator() {
		return 0, 0, errors.New("invalid address")
	}
	return lo, hi, nil
}

// Display memory as octal and instructions.
func examine(p *Parser, line *cmdLine) (bool, error) {
	slog.Debug("Command Examine")
	lo, hi, err := line.getRange()
	if err != nil {
		return false, err
	}
	if hi-lo >= maxExamine {
		return false, errors.New("address range too large")
	}

	for addr := lo; addr <= hi; addr++ {
		value, ok := p.machine.Examine(addr)
		if !ok {
			return false, fmt.Errorf("non existent memory: %06o", addr)
		}
		fmt.Fprintln(p.out, disassembler.PrintInst(addr, value))
	}
	return false, nil
}

// Store a number or instruction into memory.
func deposit(p *Parser, line *cmdLine) (bool, error) {
	slog.Debug("Command Deposit")
	addr, _, err := line.getRange()
	if err != nil {
		return false, err
	}
	line.skipSpace()
	if line.isEOL() {
		return false, errors.New("deposit requires value")
	}

	value, err := assembler.Assemble(line.line[line.pos:])
	if err != nil {
		return false, err
	}
	if !p.machine.Deposit(addr, value) {
		return false, fmt.Errorf("non existent memory: %06o", addr)
	}
	return false, nil
}
