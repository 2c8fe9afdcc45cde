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
package ntfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrBadSignature reports a record that does not begin with "FILE".
	// Never-allocated slots (all zeroes) and records NTFS itself marked
	// bad ("BAAD") both land here.
	ErrBadSignature = errors.New("bad record signature")

	// ErrTornRecord reports a record whose per-sector update sequence
	// trailers disagree with the header USN: some of its sectors never
	// made it to stable storage.
	ErrTornRecord = errors.New("torn record")
)

var fileSignature = []byte("FILE")

// ApplyFixup verifies the Update Sequence Array of a multi-sector record
// and rewrites, in place, the last two bytes of every constituent sector
// with their real values. After a successful return the buffer is in
// fixed-up form and safe to parse at any offset.
func ApplyFixup(rec []byte, sectorSize int) error {
	if len(rec) < 8 || !bytes.Equal(rec[:4], fileSignature) {
		return ErrBadSignature
	}

	usaOffset := int(binary.LittleEndian.Uint16(rec[4:6]))
	usaCount := int(binary.LittleEndian.Uint16(rec[6:8]))
	if usaOffset == 0 || usaCount == 0 {
		return fmt.Errorf("%w: empty update sequence array", ErrBadSignature)
	}
	if usaOffset+2*usaCount > len(rec) {
		return fmt.Errorf("%w: update sequence array at %d overruns record", ErrBadSignature, usaOffset)
	}

	usn := rec[usaOffset : usaOffset+2]

	for i := 0; i < usaCount-1; i++ {
		tail := (i+1)*sectorSize - 2
		if tail+2 > len(rec) {
			return fmt.Errorf("%w: sector trailer at %d overruns record", ErrBadSignature, tail)
		}
		if !bytes.Equal(rec[tail:tail+2], usn) {
			return fmt.Errorf("%w: sector %d trailer mismatch at offset %d", ErrTornRecord, i, tail)
		}
		repl := usaOffset + 2 + 2*i
		copy(rec[tail:tail+2], rec[repl:repl+2])
	}
	return nil
}
