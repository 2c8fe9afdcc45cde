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
//go:build windows

package fs

import (
	"fmt"
	"io"
	"os"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// rawAlign is the alignment every raw-volume read is widened to. Raw
// handles only accept reads aligned to the volume's logical sector;
// 4096 satisfies both 512-byte and 4Kn disks.
const rawAlign = 4096

// IOCTL_DISK_GET_LENGTH_INFO: reports the exact byte length of the
// volume, without the cylinder arithmetic of the drive-geometry ioctl.
const ioctlDiskGetLengthInfo = 0x0007405C

// RawVolume reads a raw volume (e.g. \\.\C:) through the Windows API.
type RawVolume struct {
	handle windows.Handle
	name   string
	offset int64 // cursor for io.Reader
}

func Open(path string) (File, error) {
	handle, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	return &RawVolume{handle: handle, name: path}, nil
}

// ReadAt widens the request to rawAlign boundaries, reads once, and
// copies out the wanted window.
func (v *RawVolume) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	start := off &^ (rawAlign - 1)
	end := (off + int64(len(p)) + rawAlign - 1) &^ (rawAlign - 1)

	buf := make([]byte, end-start)
	read, err := v.readAligned(buf, start)
	if err != nil {
		return 0, err
	}

	skip := int(off - start)
	if read <= skip {
		return 0, io.EOF
	}

	n := copy(p, buf[skip:read])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// readAligned issues one overlapped read at an aligned offset.
func (v *RawVolume) readAligned(buf []byte, off int64) (int, error) {
	ov := &windows.Overlapped{
		Offset:     uint32(off),
		OffsetHigh: uint32(off >> 32),
	}

	var read uint32
	err := windows.ReadFile(v.handle, buf, &read, ov)
	if err == syscall.ERROR_IO_PENDING {
		err = windows.GetOverlappedResult(v.handle, ov, &read, true)
	}
	if err != nil && err != windows.ERROR_HANDLE_EOF {
		return int(read), fmt.Errorf("raw read at offset %d: %w", off, err)
	}
	return int(read), nil
}

func (v *RawVolume) Read(p []byte) (int, error) {
	n, err := v.ReadAt(p, v.offset)
	v.offset += int64(n)
	return n, err
}

// Stat reports the volume's byte length via the length ioctl; everything
// else about a raw handle is synthetic.
func (v *RawVolume) Stat() (os.FileInfo, error) {
	var length int64
	var returned uint32

	err := windows.DeviceIoControl(
		v.handle,
		ioctlDiskGetLengthInfo,
		nil,
		0,
		(*byte)(unsafe.Pointer(&length)),
		uint32(unsafe.Sizeof(length)),
		&returned,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("DeviceIoControl(IOCTL_DISK_GET_LENGTH_INFO) failed for %q: %w", v.name, err)
	}

	return &rawVolumeInfo{name: v.name, size: length}, nil
}

func (v *RawVolume) Close() error {
	return windows.CloseHandle(v.handle)
}

type rawVolumeInfo struct {
	name string
	size int64
}

func (fi *rawVolumeInfo) Name() string       { return fi.name }
func (fi *rawVolumeInfo) Size() int64        { return fi.size }
func (fi *rawVolumeInfo) Mode() os.FileMode  { return os.ModeDevice }
func (fi *rawVolumeInfo) ModTime() time.Time { return time.Time{} }
func (fi *rawVolumeInfo) IsDir() bool        { return false }
func (fi *rawVolumeInfo) Sys() interface{}   { return nil }
