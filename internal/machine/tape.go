/*
 * JAEOS  - Process image tape reader
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
package machine

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// TapeEOT is returned once a tape image has yielded its last full
// page-sized block.
var TapeEOT = errors.New("EOT")

// Tape is a process's boot image: a flat file of PageSize-byte blocks
// read sequentially onto the backing store during init. The physical
// layout of a real uARM tape (marks, density, track count) is out of
// scope; this is deliberately the plainest possible block reader.
type Tape struct {
	file *os.File
	pos  int64
}

// OpenTape opens a process image file for sequential block reads.
func OpenTape(path string) (*Tape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Tape{file: f}, nil
}

// Close releases the underlying file handle.
func (t *Tape) Close() error {
	return t.file.Close()
}

// ReadBlock reads the next PageSize-byte block into a page's worth of
// words, the unit the backing-store loader copies block-by-block.
// It returns TapeEOT once fewer than PageSize bytes remain.
func (t *Tape) ReadBlock() ([PageSize / WordLen]uint32, error) {
	var page [PageSize / WordLen]uint32

	buf := make([]byte, PageSize)
	n, err := io.ReadFull(t.file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if errors.Is(err, io.EOF) {
			return page, TapeEOT
		}
		return page, err
	}
	if n < PageSize {
		return page, TapeEOT
	}

	for i := range page {
		page[i] = binary.BigEndian.Uint32(buf[i*WordLen : i*WordLen+WordLen])
	}
	t.pos += int64(n)
	return page, nil
}
