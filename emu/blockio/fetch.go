/*
 * KI10 - Image file access.
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

package blockio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// FileFetcher serves images from files in a directory. Unit names are
// file names relative to Dir.
type FileFetcher struct {
	Dir string
}

func (f *FileFetcher) path(unit string) string {
	if f.Dir == "" || filepath.IsAbs(unit) {
		return unit
	}
	return filepath.Join(f.Dir, unit)
}

// Fetch length bytes at offset. A missing file reads as empty.
func (f *FileFetcher) Fetch(unit string, offset int64, length int) ([]byte, error) {
	file, err := os.Open(f.path(unit))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []byte{}, nil
		}
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, length)
	n, err := file.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

// Store data at offset, creating file if needed.
func (f *FileFetcher) Store(unit string, offset int64, data []byte) error {
	file, err := os.OpenFile(f.path(unit), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	_, err = file.WriteAt(data, offset)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}
