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
// Package ntfs decodes the on-disk structures of an NTFS volume: the boot
// sector, the fixed-size records of the Master File Table, their attribute
// streams and the mapping-pairs runlists of non-resident data.
//
// All multi-byte integers on disk are little-endian. Decoders preserve the
// on-disk integer widths: runlist deltas are sign-extended from their
// encoded width and file references are masked to their low 48 bits.
package ntfs

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-restruct/restruct"
)

// ErrBadBootSector reports a boot sector that is too short or carries a
// geometry no NTFS volume can have.
var ErrBadBootSector = errors.New("bad boot sector")

// OemNTFS is the expected OEM id at offset 3 of the boot sector ("NTFS"
// plus four trailing spaces). Backup boot sectors and partial images may
// carry something else; that alone does not make the volume unreadable.
const OemNTFS = "NTFS    "

const bootSectorSize = 84

// BootSector is the BIOS Parameter Block portion of an NTFS boot sector,
// in on-disk layout.
type BootSector struct {
	Jump                   [3]byte
	OemID                  [8]byte
	BytesPerSector         uint16
	SectorsPerCluster      uint8
	ReservedSectors        uint16
	Zero1                  [3]byte
	Unused1                uint16
	MediaDescriptor        uint8
	Unused2                uint16
	SectorsPerTrack        uint16
	NumberOfHeads          uint16
	HiddenSectors          uint32
	Unused3                uint32
	Unused4                uint32
	TotalSectors           uint64
	MFTCluster             uint64
	MFTMirrCluster         uint64
	ClustersPerRecord      int8
	Zero2                  [3]byte
	ClustersPerIndexBuffer int8
	Zero3                  [3]byte
	VolumeSerialNumber     uint64
	Checksum               uint32
}

// Geometry carries the decoded volume layout every other decoder depends
// on.
type Geometry struct {
	OemID                  string
	BytesPerSector         uint16
	SectorsPerCluster      uint32 // decoded from the raw byte
	TotalSectors           uint64
	MFTCluster             uint64
	MFTMirrCluster         uint64
	ClustersPerRecord      int8
	ClustersPerIndexBuffer int8
}

// ParseBootSector decodes the first sector of a volume. The OEM id is not
// validated here; callers that care can compare Geometry.OemID against
// OemNTFS and warn.
func ParseBootSector(b []byte) (*Geometry, error) {
	if len(b) < 90 {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrBadBootSector, len(b))
	}

	var bs BootSector
	if err := restruct.Unpack(b[:bootSectorSize], binary.LittleEndian, &bs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBootSector, err)
	}

	if bs.BytesPerSector == 0 {
		return nil, fmt.Errorf("%w: bytes per sector is zero", ErrBadBootSector)
	}
	if bs.BytesPerSector&(bs.BytesPerSector-1) != 0 {
		return nil, fmt.Errorf("%w: bytes per sector %d is not a power of two", ErrBadBootSector, bs.BytesPerSector)
	}

	spc, err := decodeSectorsPerCluster(bs.SectorsPerCluster)
	if err != nil {
		return nil, err
	}

	geo := &Geometry{
		OemID:                  string(bs.OemID[:]),
		BytesPerSector:         bs.BytesPerSector,
		SectorsPerCluster:      spc,
		TotalSectors:           bs.TotalSectors,
		MFTCluster:             bs.MFTCluster,
		MFTMirrCluster:         bs.MFTMirrCluster,
		ClustersPerRecord:      bs.ClustersPerRecord,
		ClustersPerIndexBuffer: bs.ClustersPerIndexBuffer,
	}

	if geo.RecordSize() == 0 || geo.RecordSize()%uint64(geo.BytesPerSector) != 0 {
		return nil, fmt.Errorf("%w: MFT record size %d is not a sector multiple", ErrBadBootSector, geo.RecordSize())
	}
	return geo, nil
}

// decodeSectorsPerCluster handles the power-of-two convention for the raw
// byte: values of 0x80 and above encode 2^(256-raw) sectors. Decoded
// values above 128 never occur on real volumes and would poison every
// derived offset, so they are rejected.
func decodeSectorsPerCluster(raw uint8) (uint32, error) {
	if raw == 0 {
		return 0, fmt.Errorf("%w: sectors per cluster is zero", ErrBadBootSector)
	}

	spc := uint32(raw)
	if v := int8(raw); v < 0 {
		if -v > 7 {
			return 0, fmt.Errorf("%w: implausible sectors per cluster encoding 0x%02X", ErrBadBootSector, raw)
		}
		spc = 1 << uint(-v)
	}
	if spc > 128 {
		return 0, fmt.Errorf("%w: implausible sectors per cluster %d", ErrBadBootSector, spc)
	}
	return spc, nil
}

// ClusterSize returns the cluster size in bytes.
func (g *Geometry) ClusterSize() uint64 {
	return uint64(g.BytesPerSector) * uint64(g.SectorsPerCluster)
}

// RecordSize returns the size of one MFT record in bytes. A negative
// clusters-per-record value v means the record occupies 2^|v| bytes
// (canonically -10, i.e. 1024); a positive one counts whole clusters.
func (g *Geometry) RecordSize() uint64 {
	if g.ClustersPerRecord < 0 {
		return 1 << uint(-g.ClustersPerRecord)
	}
	return uint64(g.ClustersPerRecord) * g.ClusterSize()
}

// IndexBufferSize returns the size of one index buffer in bytes, using
// the same signed convention as RecordSize.
func (g *Geometry) IndexBufferSize() uint64 {
	if g.ClustersPerIndexBuffer < 0 {
		return 1 << uint(-g.ClustersPerIndexBuffer)
	}
	return uint64(g.ClustersPerIndexBuffer) * g.ClusterSize()
}

// ClusterOffset translates a logical cluster number to a byte offset from
// the start of the volume.
func (g *Geometry) ClusterOffset(lcn int64) int64 {
	return lcn * int64(g.ClusterSize())
}

// VolumeSize returns the volume length in bytes.
func (g *Geometry) VolumeSize() uint64 {
	return g.TotalSectors * uint64(g.BytesPerSector)
}
