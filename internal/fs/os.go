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
//go:build !windows

package fs

import (
	"io"
	"os"
	"time"
)

// Open opens an image file or a block device read-only.
func Open(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

type osFile struct {
	f *os.File
}

func (f *osFile) Read(p []byte) (int, error)                { return f.f.Read(p) }
func (f *osFile) ReadAt(p []byte, off int64) (int, error)   { return f.f.ReadAt(p, off) }
func (f *osFile) Close() error                              { return f.f.Close() }

// Stat reports the underlying file info. Block devices report a zero size
// through stat(2), so the size is recovered by seeking to the end.
func (f *osFile) Stat() (os.FileInfo, error) {
	fi, err := f.f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() > 0 || fi.Mode().IsRegular() {
		return fi, nil
	}

	size, err := f.f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := f.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return &deviceFileInfo{name: fi.Name(), size: size, mode: fi.Mode(), modTime: fi.ModTime()}, nil
}

type deviceFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *deviceFileInfo) Name() string       { return fi.name }
func (fi *deviceFileInfo) Size() int64        { return fi.size }
func (fi *deviceFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *deviceFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *deviceFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *deviceFileInfo) Sys() interface{}   { return nil }
