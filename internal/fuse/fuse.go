//go:build linux

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
package fuse

import (
	"context"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
)

// RecoverFS exposes a flat, read-only directory of recovered files. Each
// file's bytes come from a lazily opened extent stream, so fragmented and
// sparse files read exactly as the exporter would write them.
type RecoverFS struct {
	mtx     sync.RWMutex
	entries map[string]FileEntry

	mountpoint string
}

func (rfs *RecoverFS) Root() (fs.Node, error) {
	return &Dir{
		fs: rfs,
	}, nil
}

// Dir implements both fs.Node and fs.HandleReadDirAller.
type Dir struct {
	fs *RecoverFS
}

func (*Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	d.fs.mtx.RLock()
	defer d.fs.mtx.RUnlock()

	if e, ok := d.fs.entries[name]; ok {
		return &File{entry: e}, nil
	}
	return nil, fuse.ENOENT
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	d.fs.mtx.RLock()
	defer d.fs.mtx.RUnlock()

	dirEntries := make([]fuse.Dirent, 0, len(d.fs.entries))
	for name := range d.fs.entries {
		dirEntries = append(dirEntries, fuse.Dirent{
			Name: name,
			Type: fuse.DT_File,
		})
	}
	sort.Slice(dirEntries, func(i, j int) bool {
		return dirEntries[i].Name < dirEntries[j].Name
	})
	for i := range dirEntries {
		dirEntries[i].Inode = uint64(i)
	}
	return dirEntries, nil
}

// File implements fs.Node and fs.HandleReader over one recovered file.
// The extent stream is opened on first read and reused afterwards.
type File struct {
	entry FileEntry

	mu sync.Mutex
	rs io.ReadSeeker
}

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = f.entry.Size
	a.Mtime = time.Now()
	return nil
}

func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rs == nil {
		rs, err := f.entry.Open()
		if err != nil {
			return err
		}
		f.rs = rs
	}

	offset := req.Offset
	if offset >= int64(f.entry.Size) {
		resp.Data = []byte{}
		return nil
	}

	size := int64(req.Size)
	if offset+size > int64(f.entry.Size) {
		size = int64(f.entry.Size) - offset
	}

	if _, err := f.rs.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	buf := make([]byte, size)
	n, err := io.ReadFull(f.rs, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}

	resp.Data = buf[:n]
	return nil
}
