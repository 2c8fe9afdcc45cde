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
	"sort"
)

// MultiReadSeeker presents a sequence of read-seekers as one contiguous,
// seekable stream. It is the glue between a file's extent list and the
// consumers that want plain sequential or random access over the file.
type MultiReadSeeker struct {
	readers []io.ReadSeeker
	starts  []int64 // logical start offset of each reader
	size    int64
	pos     int64
}

// NewMultiReadSeeker combines readers, where sizes[i] is the byte length
// of readers[i]. The two slices must have equal length.
func NewMultiReadSeeker(readers []io.ReadSeeker, sizes []int64) *MultiReadSeeker {
	starts := make([]int64, len(readers))

	var total int64
	for i, sz := range sizes {
		starts[i] = total
		total += sz
	}

	return &MultiReadSeeker{
		readers: readers,
		starts:  starts,
		size:    total,
	}
}

// Size returns the combined length of all segments.
func (m *MultiReadSeeker) Size() int64 {
	return m.size
}

func (m *MultiReadSeeker) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if m.pos >= m.size {
			if total > 0 {
				return total, nil
			}
			return 0, io.EOF
		}

		// Locate the segment holding pos and its logical end.
		i := sort.Search(len(m.starts), func(i int) bool { return m.starts[i] > m.pos }) - 1
		end := m.size
		if i+1 < len(m.starts) {
			end = m.starts[i+1]
		}

		if _, err := m.readers[i].Seek(m.pos-m.starts[i], io.SeekStart); err != nil {
			return total, fmt.Errorf("failed to position segment %d: %w", i, err)
		}

		want := int64(len(p) - total)
		if left := end - m.pos; want > left {
			want = left
		}

		n, err := io.ReadFull(m.readers[i], p[total:total+int(want)])
		total += n
		m.pos += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (m *MultiReadSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += m.pos
	case io.SeekEnd:
		offset += m.size
	default:
		return -1, fmt.Errorf("MultiReadSeeker.Seek: invalid whence (%d)", whence)
	}

	if offset < 0 {
		return -1, fmt.Errorf("MultiReadSeeker.Seek: negative position")
	}

	// Seeking past the end is allowed; reads there return io.EOF.
	m.pos = offset
	return offset, nil
}
