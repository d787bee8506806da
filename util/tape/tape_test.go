/*
 * KI10 - TAP tape image format tests.
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

package tape

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	_, err := Decode(0)
	assert.ErrorIs(t, err, TapeMARK)
	_, err = Decode(0xffffffff)
	assert.ErrorIs(t, err, TapeEOT)

	hdr, err := Decode(80)
	require.NoError(t, err)
	assert.Equal(t, Header{Length: 80}, hdr)

	hdr, err = Decode(0x80000051)
	require.NoError(t, err)
	assert.Equal(t, Header{Length: 0x51, Error: true}, hdr)
}

func TestPad(t *testing.T) {
	assert.Equal(t, 0, Pad(0))
	assert.Equal(t, 2, Pad(1))
	assert.Equal(t, 80, Pad(80))
	assert.Equal(t, int64(90), RecordSize(81))
}

// Write image and read it back.
func TestReadWrite(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteRecord([]byte{1, 2, 3}))
	require.NoError(t, w.WriteMark())
	require.NoError(t, w.WriteRecord([]byte{4, 5, 6, 7}))
	require.NoError(t, w.WriteEOM())

	// Odd record padded.
	assert.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3, 0, 3, 0, 0, 0}, buf.Bytes()[:12])
	assert.Equal(t, 12+4+12+4, buf.Len())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	rec, err := r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, rec)

	_, err = r.ReadRecord()
	assert.ErrorIs(t, err, TapeMARK)

	rec, err = r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5, 6, 7}, rec)

	_, err = r.ReadRecord()
	assert.ErrorIs(t, err, TapeEOT)

	// Past end of file.
	_, err = r.ReadRecord()
	assert.ErrorIs(t, err, TapeEOT)
}

func TestBadTrailer(t *testing.T) {
	image := []byte{2, 0, 0, 0, 9, 9, 3, 0, 0, 0}
	r := NewReader(bytes.NewReader(image))
	_, err := r.ReadRecord()
	assert.ErrorIs(t, err, TapeFORMAT)
}

func TestPack36(t *testing.T) {
	w := []uint64{0o123456765432}
	assert.Equal(t, []byte{0x29, 0xcb, 0xbe, 0xb1, 0xa}, Pack36(w, true))
	assert.Equal(t, []byte{0x29, 0xcb, 0xbe, 0xb1}, Pack36(w, false))
}
