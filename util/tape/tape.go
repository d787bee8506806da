/*
 * KI10 - TAP tape image format.
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
	"encoding/binary"
	"errors"
	"io"
)

/*
   A TAP image is a sequence of records. Each record is a 32 bit little
   endian length, the data padded to an even number of bytes, then the
   length again. A zero length is a tape mark and all ones marks end of
   medium. The high bit of a length flags a record read with errors.
*/

const (
	HeaderLen        = 4
	MarkLen   uint32 = 0
	EOMLen    uint32 = 0xffffffff
	errorFlag uint32 = 0x80000000
	lenMask   uint32 = 0x00ffffff
)

var (
	TapeMARK   = errors.New("MARK")   // Tape mark found.
	TapeEOT    = errors.New("EOT")    // End of medium.
	TapeFORMAT = errors.New("FORMAT") // Bad record trailer.
)

// Header is a decoded record length.
type Header struct {
	Length int  // Data bytes in record.
	Error  bool // Record was flagged bad.
}

// Decode record length word. Returns TapeMARK or TapeEOT for the
// special lengths.
func Decode(recl uint32) (Header, error) {
	switch {
	case recl == MarkLen:
		return Header{}, TapeMARK
	case recl == EOMLen:
		return Header{}, TapeEOT
	}
	return Header{Length: int(recl & lenMask), Error: (recl & errorFlag) != 0}, nil
}

// Pad length of data to even boundary.
func Pad(length int) int {
	return (length + 1) &^ 1
}

// Size of record on tape including both length words.
func RecordSize(length int) int64 {
	return int64(2*HeaderLen + Pad(length))
}

// Writer builds a TAP image.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter returns writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (tw *Writer) header(recl uint32) {
	if tw.err != nil {
		return
	}
	var buf [HeaderLen]byte
	binary.LittleEndian.PutUint32(buf[:], recl)
	_, tw.err = tw.w.Write(buf[:])
}

// WriteRecord writes one data record.
func (tw *Writer) WriteRecord(data []byte) error {
	tw.header(uint32(len(data)))
	if tw.err == nil {
		_, tw.err = tw.w.Write(data)
	}
	if tw.err == nil && len(data)&1 != 0 {
		_, tw.err = tw.w.Write([]byte{0})
	}
	tw.header(uint32(len(data)))
	return tw.err
}

// WriteMark writes a tape mark.
func (tw *Writer) WriteMark() error {
	tw.header(MarkLen)
	return tw.err
}

// WriteEOM writes end of medium.
func (tw *Writer) WriteEOM() error {
	tw.header(EOMLen)
	return tw.err
}

// Reader steps through records of a TAP image.
type Reader struct {
	r io.Reader
}

// NewReader returns reader on r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadRecord returns next record. A tape mark returns TapeMARK, end of
// medium or end of file returns TapeEOT.
func (tr *Reader) ReadRecord() ([]byte, error) {
	var buf [HeaderLen]byte
	if _, err := io.ReadFull(tr.r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, TapeEOT
		}
		return nil, err
	}
	recl := binary.LittleEndian.Uint32(buf[:])
	hdr, err := Decode(recl)
	if err != nil {
		return nil, err
	}
	data := make([]byte, Pad(hdr.Length))
	if _, err := io.ReadFull(tr.r, data); err != nil {
		return nil, TapeFORMAT
	}
	if _, err := io.ReadFull(tr.r, buf[:]); err != nil {
		return nil, TapeFORMAT
	}
	if binary.LittleEndian.Uint32(buf[:]) != recl {
		return nil, TapeFORMAT
	}
	return data[:hdr.Length], nil
}

// Pack36 converts words to tape bytes. Coredump format stores 36 bits in
// five bytes, otherwise the top 32 bits go in four bytes.
func Pack36(words []uint64, coredump bool) []byte {
	out := make([]byte, 0, 5*len(words))
	for _, w := range words {
		out = append(out, byte(w>>28), byte(w>>20), byte(w>>12), byte(w>>4))
		if coredump {
			out = append(out, byte(w&0xf))
		}
	}
	return out
}
