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

// DataRun is one extent of a non-resident attribute. LCN is the absolute
// starting cluster; Sparse marks a hole with no backing clusters, in which
// case LCN repeats the running cursor and must not be dereferenced.
type DataRun struct {
	LCN    int64
	Length uint64 // clusters
	Sparse bool
}

// DecodeRunList decodes a mapping-pairs stream into absolute extents.
//
// Each entry starts with a header byte: the low nibble is the byte width
// of the run length, the high nibble the byte width of the signed LCN
// delta. A zero header terminates the stream; a zero delta width marks a
// sparse run, which leaves the LCN cursor where it was. Deltas may be
// negative, so extents can move backwards on disk. On any truncated or
// malformed entry the runs decoded so far are returned.
func DecodeRunList(b []byte) []DataRun {
	runs := []DataRun{}

	var lcn int64
	i := 0
	for i < len(b) {
		header := b[i]
		i++
		if header == 0 {
			break
		}

		sizeLen := int(header & 0x0F)
		offsetLen := int(header >> 4)
		if sizeLen == 0 || i+sizeLen+offsetLen > len(b) {
			break
		}

		length := leUint(b[i : i+sizeLen])
		i += sizeLen

		if offsetLen == 0 {
			runs = append(runs, DataRun{LCN: lcn, Length: length, Sparse: true})
			continue
		}

		lcn += leInt(b[i : i+offsetLen])
		i += offsetLen
		runs = append(runs, DataRun{LCN: lcn, Length: length})
	}
	return runs
}

// leUint assembles up to 8 little-endian bytes into an unsigned integer.
func leUint(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// leInt assembles up to 8 little-endian bytes into a signed integer,
// sign-extending from the highest encoded bit.
func leInt(b []byte) int64 {
	v := leUint(b)
	bits := uint(8 * len(b))
	if bits < 64 && v&(1<<(bits-1)) != 0 {
		v |= ^uint64(0) << bits
	}
	return int64(v)
}
