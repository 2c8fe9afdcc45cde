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
	"errors"
	"fmt"
	"io"

	"github.com/exhume/exhume/pkg/reader"
)

const (
	// DefaultBadLimit is how many consecutive unparseable records the
	// iterator tolerates before concluding it has run off the end of the
	// allocated MFT. Large enough to step over holes of never-used
	// slots, small enough not to crawl the rest of the volume.
	DefaultBadLimit = 1024

	// DefaultMaxRecords bounds a scan on volumes with absurd geometry.
	DefaultMaxRecords = 2_000_000

	defaultBufferSize = 1 << 20
)

// ErrRecordNotFound reports a direct record read that yielded no valid
// record.
var ErrRecordNotFound = errors.New("record not found")

// Iterator streams MFT records in ascending record-number order. It
// assumes a contiguous $MFT starting at the boot sector's MFT cluster; on
// a volume whose $MFT is fragmented, records past the first fragment are
// misaligned. Resolving fragments requires record 0's own runlist and is
// deliberately not done here.
//
// Unparseable records (zeroed slots, "BAAD" records, torn writes) are
// skipped and counted; iteration ends once too many occur in a row.
//
//	it := ntfs.NewIterator(dev, volOffset, geo)
//	for it.Next() {
//		rec := it.Record()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	r       *reader.BufferedReadSeeker
	geo     *Geometry
	buf     []byte
	bufSize int
	next    uint64
	max     uint64
	badLim  int
	badRun  int
	skipped uint64
	rec     *Record
	err     error
	done    bool
}

// IteratorOption configures an Iterator.
type IteratorOption func(*Iterator)

// WithBadLimit overrides the consecutive-bad-record threshold.
func WithBadLimit(n int) IteratorOption {
	return func(it *Iterator) { it.badLim = n }
}

// WithMaxRecords caps the number of record slots visited.
func WithMaxRecords(n uint64) IteratorOption {
	return func(it *Iterator) { it.max = n }
}

// WithBufferSize overrides the read-ahead buffer used to stream the MFT.
func WithBufferSize(n int) IteratorOption {
	return func(it *Iterator) {
		if n > 0 {
			it.bufSize = n
		}
	}
}

// NewIterator positions an iterator at record 0 of the MFT. volOffset is
// the byte offset of the NTFS volume inside dev (0 for a partition
// image).
func NewIterator(dev io.ReaderAt, volOffset uint64, geo *Geometry, opts ...IteratorOption) *Iterator {
	mftOffset := int64(volOffset) + geo.ClusterOffset(int64(geo.MFTCluster))
	mftLimit := int64(volOffset) + int64(geo.VolumeSize()) - mftOffset

	it := &Iterator{
		geo:     geo,
		buf:     make([]byte, geo.RecordSize()),
		bufSize: defaultBufferSize,
		max:     DefaultMaxRecords,
		badLim:  DefaultBadLimit,
	}
	for _, opt := range opts {
		opt(it)
	}

	if mftLimit <= 0 {
		it.err = fmt.Errorf("MFT offset %d lies beyond the volume", mftOffset)
		it.done = true
		return it
	}

	section := io.NewSectionReader(dev, mftOffset, mftLimit)
	it.r = reader.NewBufferedReadSeeker(section, it.bufSize)
	return it
}

// Next advances to the following valid record. It returns false when the
// MFT is exhausted, the bad-record threshold trips, or a device error
// occurs (see Err).
func (it *Iterator) Next() bool {
	for !it.done {
		if it.next >= it.max {
			it.done = true
			break
		}

		if _, err := io.ReadFull(it.r, it.buf); err != nil {
			// Running off the readable MFT region ends iteration; any
			// other device error is surfaced.
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				it.err = fmt.Errorf("read of record %d failed: %w", it.next, err)
			}
			it.done = true
			break
		}

		num := it.next
		it.next++

		rec, err := ParseRecord(it.buf, int(it.geo.BytesPerSector))
		if err != nil {
			it.skipped++
			it.badRun++
			if it.badRun > it.badLim {
				it.done = true
				break
			}
			continue
		}

		it.badRun = 0
		rec.Num = num
		it.rec = rec
		return true
	}
	return false
}

// Record returns the record produced by the last successful Next.
func (it *Iterator) Record() *Record {
	return it.rec
}

// Err returns the device error that ended iteration, if any. Skipped
// records are not errors.
func (it *Iterator) Err() error {
	return it.err
}

// Skipped returns how many record slots were discarded as unparseable.
func (it *Iterator) Skipped() uint64 {
	return it.skipped
}

// ReadRecord reads and parses a single record by number, seeking directly
// to its slot instead of scanning.
func ReadRecord(dev io.ReaderAt, volOffset uint64, geo *Geometry, num uint64) (*Record, error) {
	recSize := geo.RecordSize()
	off := int64(volOffset) + geo.ClusterOffset(int64(geo.MFTCluster)) + int64(num*recSize)

	buf := make([]byte, recSize)
	if _, err := dev.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("%w: record %d unreadable at offset %d: %v", ErrRecordNotFound, num, off, err)
	}

	rec, err := ParseRecord(buf, int(geo.BytesPerSector))
	if err != nil {
		return nil, fmt.Errorf("%w: record %d at offset %d: %v", ErrRecordNotFound, num, off, err)
	}
	rec.Num = num
	return rec, nil
}
