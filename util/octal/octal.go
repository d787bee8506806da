/*
 * KI10 - Octal formatting of words.
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

package octal

import "strings"

const digits = "01234567"

// Write n octal digits of value.
func format(str *strings.Builder, value uint64, n int) {
	for shift := 3 * (n - 1); shift >= 0; shift -= 3 {
		str.WriteByte(digits[(value>>shift)&7])
	}
}

// FormatWord writes each word as twelve digits followed by a space.
func FormatWord(str *strings.Builder, words []uint64) {
	for _, w := range words {
		format(str, w, 12)
		str.WriteByte(' ')
	}
}

// FormatHalves writes a word as left,,right.
func FormatHalves(str *strings.Builder, w uint64) {
	format(str, w>>18, 6)
	str.WriteString(",,")
	format(str, w, 6)
}

// Halves returns a word as left,,right.
func Halves(w uint64) string {
	var str strings.Builder
	FormatHalves(&str, w)
	return str.String()
}
