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
package disk

import (
	"encoding/binary"
	"fmt"
)

const (
	// DefaultBlocksize is the sector size assumed for MBR arithmetic.
	DefaultBlocksize = 512

	mbrSize            = 512
	mbrSignatureOffset = 0x1FE
)

// PartitionType is the one-byte system id of an MBR partition entry.
type PartitionType uint8

const (
	PartitionTypeEmpty    PartitionType = 0x00
	PartitionTypeFAT12    PartitionType = 0x01
	PartitionTypeFAT16    PartitionType = 0x06
	PartitionTypeNTFS     PartitionType = 0x07 // also HPFS/exFAT
	PartitionTypeFAT32CHS PartitionType = 0x0B
	PartitionTypeFAT32LBA PartitionType = 0x0C
	PartitionTypeFAT16LBA PartitionType = 0x0E
	PartitionTypeExtended PartitionType = 0x0F
	PartitionTypeLinux    PartitionType = 0x83
	PartitionTypeGPT      PartitionType = 0xEE
)

func (t PartitionType) String() string {
	switch t {
	case PartitionTypeEmpty:
		return "Empty"
	case PartitionTypeFAT12:
		return "FAT12"
	case PartitionTypeFAT16:
		return "FAT16"
	case PartitionTypeNTFS:
		return "NTFS/HPFS/exFAT"
	case PartitionTypeFAT32CHS:
		return "FAT32 (CHS)"
	case PartitionTypeFAT32LBA:
		return "FAT32 (LBA)"
	case PartitionTypeFAT16LBA:
		return "FAT16 (LBA)"
	case PartitionTypeExtended:
		return "Extended"
	case PartitionTypeLinux:
		return "Linux"
	case PartitionTypeGPT:
		return "GPT Protective"
	default:
		return "Unknown"
	}
}

// MBRPartitionEntry is one of the four 16-byte slots of the partition table.
type MBRPartitionEntry struct {
	BootIndicator uint8         // 0x00: 0x80 for bootable, 0x00 for inactive
	StartCHS      [3]byte       // 0x01: starting Cylinder-Head-Sector address
	PartitionType PartitionType // 0x04: system id (0x07 for NTFS)
	EndCHS        [3]byte       // 0x05: ending Cylinder-Head-Sector address
	StartLBA      [4]byte       // 0x08: starting LBA, little-endian uint32
	TotalSectors  [4]byte       // 0x0C: sector count, little-endian uint32
}

func (p *MBRPartitionEntry) ReadStartLBA() uint32 {
	return binary.LittleEndian.Uint32(p.StartLBA[:])
}

func (p *MBRPartitionEntry) ReadTotalSectors() uint32 {
	return binary.LittleEndian.Uint32(p.TotalSectors[:])
}

// MBR is the classic master boot record at sector 0.
type MBR struct {
	BootCode         [440]byte
	DiskSignature    [4]byte
	Reserved         [2]byte
	PartitionEntries [4]MBRPartitionEntry
	Signature        [2]byte // 0x55AA
}

func (m *MBR) ReadSignature() uint16 {
	return binary.LittleEndian.Uint16(m.Signature[:])
}

// ParseMBR decodes a 512-byte sector into an MBR, validating the 0xAA55
// trailer signature.
func ParseMBR(data []byte) (*MBR, error) {
	if len(data) != mbrSize {
		return nil, fmt.Errorf("MBR must be %d bytes, got %d", mbrSize, len(data))
	}

	var mbr MBR
	copy(mbr.BootCode[:], data[0x000:0x1B8])
	copy(mbr.DiskSignature[:], data[0x1B8:0x1BC])
	copy(mbr.Reserved[:], data[0x1BC:0x1BE])

	for i := 0; i < 4; i++ {
		entry := data[0x1BE+i*16 : 0x1BE+(i+1)*16]

		mbr.PartitionEntries[i].BootIndicator = entry[0x00]
		copy(mbr.PartitionEntries[i].StartCHS[:], entry[0x01:0x04])
		mbr.PartitionEntries[i].PartitionType = PartitionType(entry[0x04])
		copy(mbr.PartitionEntries[i].EndCHS[:], entry[0x05:0x08])
		copy(mbr.PartitionEntries[i].StartLBA[:], entry[0x08:0x0C])
		copy(mbr.PartitionEntries[i].TotalSectors[:], entry[0x0C:0x10])
	}

	copy(mbr.Signature[:], data[mbrSignatureOffset:mbrSignatureOffset+2])
	if mbr.ReadSignature() != 0xAA55 {
		return nil, fmt.Errorf("invalid MBR signature: expected 0xAA55, got 0x%04X", mbr.ReadSignature())
	}
	return &mbr, nil
}
