package reader

import (
	"fmt"
	"io"
)

// ZeroReadSeeker reads as a fixed-length run of zero bytes. It stands in
// for extents that have no backing storage, such as sparse file regions.
type ZeroReadSeeker struct {
	size int64
	pos  int64
}

func NewZeroReadSeeker(size int64) *ZeroReadSeeker {
	return &ZeroReadSeeker{size: size}
}

func (z *ZeroReadSeeker) Read(p []byte) (int, error) {
	if z.pos >= z.size {
		return 0, io.EOF
	}

	n := len(p)
	if left := z.size - z.pos; int64(n) > left {
		n = int(left)
	}
	clear(p[:n])
	z.pos += int64(n)
	return n, nil
}

func (z *ZeroReadSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += z.pos
	case io.SeekEnd:
		offset += z.size
	default:
		return -1, fmt.Errorf("ZeroReadSeeker.Seek: invalid whence (%d)", whence)
	}

	if offset < 0 {
		return -1, fmt.Errorf("ZeroReadSeeker.Seek: negative position")
	}
	z.pos = offset
	return offset, nil
}
