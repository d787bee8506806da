/*
 * KI10 - Single line instruction assembler.
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
	"errors"
	"strings"
	"unicode"

	op "github.com/rcornwell/KI10/emu/opcodemap"
)

const wordMask = 0o777777777777

// Assemble converts one line into a word. Accepted forms are:
//
//	OP AC,@Y(X)   basic instruction, all operands optional
//	OP DEV,@Y(X)  I/O instruction
//	L,,R          half words
//	N             octal number
func Assemble(line string) (uint64, error) {
	line = skipSpace(line)
	if line != "" && (unicode.IsDigit(rune(line[0])) || line[0] == '-') {
		return number(line)
	}

	var opName string
	opName, line = getName(line)
	opc, ok := op.Lookup(opName)
	if !ok {
		return 0, errors.New("undefined opcode " + opName)
	}

	var inst uint64
	if op.IsIO(opc) {
		dev, rest := getOctal(line, 0o1000)
		if dev < 0 || dev&3 != 0 {
			return 0, errors.New("invalid device for " + opName)
		}
		next, rest := getNext(rest)
		if next != ',' {
			return 0, errors.New("invalid format for " + opName)
		}
		line = rest
		inst = 0o7<<33 | uint64(dev>>2)<<26 | uint64(opc&7)<<23
	} else {
		inst = uint64(opc) << 27
		// An AC is a number followed by a comma.
		if ac, rest := getOctal(line, 0o1000000); ac >= 0 {
			if next, after := getNext(rest); next == ',' {
				if ac > 0o17 {
					return 0, errors.New("accumulator out of range for " + opName)
				}
				inst |= uint64(ac) << 23
				line = after
			}
		}
	}

	ea, line, err := getAddr(line)
	if err != "" {
		return 0, errors.New(err + opName)
	}
	if skipSpace(line) != "" {
		return 0, errors.New("extra data after instruction " + opName)
	}
	return inst | ea, nil
}

// Parse an octal constant or pair of half words.
func number(line string) (uint64, error) {
	neg := false
	if line[0] == '-' {
		neg = true
		line = line[1:]
	}
	left, rest := getOctal(line, 1<<36)
	if left < 0 {
		return 0, errors.New("invalid number " + line)
	}
	value := uint64(left)
	if strings.HasPrefix(rest, ",,") {
		if neg || left > 0o777777 {
			return 0, errors.New("invalid half word " + line)
		}
		right, after := getOctal(rest[2:], 0o1000000)
		if right < 0 {
			return 0, errors.New("invalid half word " + line)
		}
		value = uint64(left)<<18 | uint64(right)
		rest = after
	}
	if skipSpace(rest) != "" {
		return 0, errors.New("extra data after number " + line)
	}
	if neg {
		value = (1<<36 - value) & wordMask
	}
	return value, nil
}

// Skip forward over line until none whitespace character found.
func skipSpace(str string) string {
	for i := range str {
		if !unicode.IsSpace(rune(str[i])) {
			return str[i:]
		}
	}
	return ""
}

// Get next name.
func getName(str string) (string, string) {
	str = skipSpace(str)
	for i := range str {
		if unicode.IsSpace(rune(str[i])) {
			return str[:i], str[i+1:]
		}
	}
	return str, ""
}

// Get next non blank character.
func getNext(str string) (byte, string) {
	for i := range str {
		if !unicode.IsSpace(rune(str[i])) {
			return str[i], str[i+1:]
		}
	}
	return 0, ""
}

// Get octal number.
// Return -1 if too big or not a number.
func getOctal(str string, limit int) (int, string) {
	str = skipSpace(str)
	num := 0
	l := 0
	for _, by := range str {
		if by < '0' || by > '7' {
			break
		}
		num = (num * 8) + int(by-'0')
		l++
		if num >= limit {
			return -1, str
		}
	}
	if l == 0 {
		return -1, str
	}
	return num, str[l:]
}

// Get effective address fields.
// format: @y(x) y(x) @y y or empty.
func getAddr(line string) (uint64, string, string) {
	var ea uint64
	next, rest := getNext(line)
	if next == 0 {
		return 0, "", ""
	}
	if next == '@' {
		ea |= 1 << 22
		line = rest
	}
	y, line := getOctal(line, 0o1000000)
	if y < 0 {
		return 0, line, "address out of range for "
	}
	ea |= uint64(y)
	next, rest = getNext(line)
	if next == '(' {
		x, after := getOctal(rest, 0o20)
		if x < 0 {
			return 0, after, "index register out of range for "
		}
		next, rest = getNext(after)
		if next != ')' {
			return 0, rest, "invalid format for "
		}
		ea |= uint64(x) << 18
		line = rest
	}
	return ea, line, ""
}
