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
package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/exhume/exhume/internal/fs"
)

var (
	// ErrOutOfBounds reports a read past the end of an image file. Raw
	// volumes do not report a reliable size on every platform, so bounds
	// are left to the OS there.
	ErrOutOfBounds = errors.New("read out of bounds")

	// ErrShortRead reports that the OS returned fewer bytes than requested.
	ErrShortRead = errors.New("short read")
)

// Device provides read-only random access to a linear byte address space,
// either an image file or a raw volume.
type Device struct {
	f    fs.File
	path string
	size uint64
	raw  bool

	mu     sync.Mutex
	closed bool
}

// Open opens the image file or raw volume at path.
func Open(path string) (*Device, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	return &Device{
		f:    f,
		path: path,
		size: uint64(fi.Size()),
		raw:  fi.Mode()&os.ModeDevice != 0,
	}, nil
}

// Size returns the device length in bytes.
func (d *Device) Size() uint64 {
	return d.size
}

// Read returns exactly n bytes starting at off, or an error.
func (d *Device) Read(off uint64, n int) ([]byte, error) {
	if !d.raw && off+uint64(n) > d.size {
		return nil, fmt.Errorf("%w: off=%d size=%d total=%d", ErrOutOfBounds, off, n, d.size)
	}

	buf := make([]byte, n)
	rn, err := d.f.ReadAt(buf, int64(off))
	if rn == n {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		return nil, fmt.Errorf("%w: off=%d want=%d got=%d", ErrShortRead, off, n, rn)
	}
	return nil, fmt.Errorf("read at offset %d: %w", off, err)
}

// ReadAt implements io.ReaderAt over the underlying store.
func (d *Device) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

// Close releases the handle. It is safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.f.Close()
}
