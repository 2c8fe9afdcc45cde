// Copyright (c) 2025 The exhume authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package reader

import (
	"fmt"
	"io"
)

// BufferedReadSeeker reads ahead from its source in large chunks so that
// callers can issue many small reads without paying a syscall each time.
// Seeks inside the buffered window are satisfied without touching the
// source.
type BufferedReadSeeker struct {
	src io.ReadSeeker
	buf []byte

	bufStart int64 // source offset of buf[0]
	off      int   // read position inside the buffer
	size     int   // valid bytes in the buffer
}

func NewBufferedReadSeeker(src io.ReadSeeker, bufSize int) *BufferedReadSeeker {
	return &BufferedReadSeeker{
		src: src,
		buf: make([]byte, bufSize),
	}
}

func (b *BufferedReadSeeker) fill() error {
	// Slide any unread tail to the front, then top up from the source.
	kept := copy(b.buf, b.buf[b.off:b.size])
	b.bufStart += int64(b.off)
	b.off = 0

	n, err := b.src.Read(b.buf[kept:])
	if err != nil && err != io.EOF {
		return err
	}
	b.size = kept + n
	return nil
}

func (b *BufferedReadSeeker) Read(p []byte) (int, error) {
	read := 0
	for read < len(p) {
		if b.off >= b.size {
			if err := b.fill(); err != nil {
				return read, err
			}
			if b.size == 0 {
				if read > 0 {
					return read, nil
				}
				return 0, io.EOF
			}
		}
		n := copy(p[read:], b.buf[b.off:b.size])
		b.off += n
		read += n
	}
	return read, nil
}

func (b *BufferedReadSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += b.bufStart + int64(b.off)
	default:
		return -1, fmt.Errorf("BufferedReadSeeker.Seek: invalid whence (%d)", whence)
	}

	if offset < 0 {
		return -1, fmt.Errorf("BufferedReadSeeker.Seek: negative position")
	}

	// Inside the buffered window: just move the cursor.
	if offset >= b.bufStart && offset < b.bufStart+int64(b.size) {
		b.off = int(offset - b.bufStart)
		return offset, nil
	}

	pos, err := b.src.Seek(offset, io.SeekStart)
	if err != nil {
		return -1, err
	}

	b.off = 0
	b.size = 0
	b.bufStart = pos
	return pos, nil
}
