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
// Package export reassembles the byte content of an MFT record and writes
// it out: resident values verbatim, non-resident ones by walking the
// runlist, zero-filling sparse extents and truncating at the real size.
package export

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/exhume/exhume/internal/ntfs"
	"github.com/exhume/exhume/pkg/reader"
)

var (
	// ErrNoData reports a record without an unnamed $DATA attribute.
	ErrNoData = errors.New("record has no data attribute")

	// ErrNoRuns reports non-resident data with an empty runlist; there is
	// nothing to read.
	ErrNoRuns = errors.New("non-resident data has no runs")
)

// chunkSize is how much is copied per read when draining extents.
const chunkSize = 4 << 20

// Exporter recovers file content from a volume.
type Exporter struct {
	dev       io.ReaderAt
	geo       *ntfs.Geometry
	volOffset uint64
}

// New creates an Exporter over dev. volOffset is the byte offset of the
// NTFS volume inside dev.
func New(dev io.ReaderAt, volOffset uint64, geo *ntfs.Geometry) *Exporter {
	return &Exporter{dev: dev, geo: geo, volOffset: volOffset}
}

// Open returns a seekable view of the record's data stream along with its
// byte length. Extents are composed in on-disk-listed order; sparse runs
// (and runs whose LCN is the non-positive hole sentinel) read as zeros.
// When the real size is unknown the view is cluster-rounded.
func (e *Exporter) Open(rec *ntfs.Record) (io.ReadSeeker, uint64, error) {
	data := rec.Data
	if data == nil {
		return nil, 0, fmt.Errorf("%w: record %d", ErrNoData, rec.Num)
	}

	if !data.NonResident {
		return bytes.NewReader(data.Resident), uint64(len(data.Resident)), nil
	}

	if len(data.Runs) == 0 {
		return nil, 0, fmt.Errorf("%w: record %d", ErrNoRuns, rec.Num)
	}

	clusterSize := e.geo.ClusterSize()

	readers := make([]io.ReadSeeker, 0, len(data.Runs))
	sizes := make([]int64, 0, len(data.Runs))
	for _, run := range data.Runs {
		byteLen := int64(run.Length * clusterSize)
		if run.Sparse || run.LCN <= 0 || run.Length == 0 {
			readers = append(readers, reader.NewZeroReadSeeker(byteLen))
		} else {
			off := int64(e.volOffset) + e.geo.ClusterOffset(run.LCN)
			readers = append(readers, io.NewSectionReader(e.dev, off, byteLen))
		}
		sizes = append(sizes, byteLen)
	}

	rs := reader.NewMultiReadSeeker(readers, sizes)

	size := data.DataSize
	if size == 0 || size > uint64(rs.Size()) {
		size = uint64(rs.Size())
	}
	return rs, size, nil
}

// Export writes the record's content to w and returns the byte count.
// The copy honors ctx between chunks.
func (e *Exporter) Export(ctx context.Context, rec *ntfs.Record, w io.Writer) (int64, error) {
	rs, size, err := e.Open(rec)
	if err != nil {
		return 0, err
	}

	var written int64
	for written < int64(size) {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n := int64(size) - written
		if n > chunkSize {
			n = chunkSize
		}
		copied, err := io.CopyN(w, rs, n)
		written += copied
		if err != nil {
			return written, fmt.Errorf("export of record %d failed after %d bytes: %w", rec.Num, written, err)
		}
	}
	return written, nil
}

// ExportRecord reads record num directly and writes its content to
// outPath.
func (e *Exporter) ExportRecord(ctx context.Context, num uint64, outPath string) error {
	rec, err := ntfs.ReadRecord(e.dev, e.volOffset, e.geo, num)
	if err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", outPath, err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1024*1024)
	if _, err := e.Export(ctx, rec, w); err != nil {
		return err
	}
	return w.Flush()
}
