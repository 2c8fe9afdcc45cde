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

import (
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"
)

// refRecordMask keeps the low 48 bits of a file reference: the record
// number. The high 16 bits are a reuse sequence number.
const refRecordMask = (1 << 48) - 1

// RootRecord is the well-known MFT record number of the volume root
// directory.
const RootRecord = 5

// RecordHeader is the fixed header of an MFT record, in on-disk layout.
type RecordHeader struct {
	Signature            [4]byte // "FILE"
	UsaOffset            uint16
	UsaCount             uint16
	LogFileSequenceNum   uint64
	SequenceNumber       uint16
	HardLinkCount        uint16
	FirstAttributeOffset uint16
	Flags                uint16
	UsedSize             uint32
	AllocatedSize        uint32
	BaseReference        uint64
	NextAttributeID      uint16
}

const recordHeaderSize = 42

// Record flag bits.
const (
	recordFlagInUse     = 0x0001
	recordFlagDirectory = 0x0002
)

// Record is the decoded summary of one MFT record: identity, allocation
// state, the preferred name and the unnamed data stream.
type Record struct {
	Num       uint64 // assigned by the iterator
	InUse     bool
	IsDir     bool
	SeqNum    uint16
	HardLinks uint16

	// BaseRef is non-zero when this record extends another: its
	// attributes logically belong to the base record. Extension records
	// are reported but not merged.
	BaseRef uint64

	Name *FileNameAttr
	Data *DataAttr
}

// ParseRecord decodes a raw MFT record after applying fixup. The input
// buffer is copied, never mutated. ErrBadSignature and ErrTornRecord
// identify records to skip; any other error marks structural damage past
// the fixup stage.
func ParseRecord(raw []byte, sectorSize int) (*Record, error) {
	if len(raw) < recordHeaderSize {
		return nil, fmt.Errorf("%w: record truncated at %d bytes", ErrBadSignature, len(raw))
	}

	buf := make([]byte, len(raw))
	copy(buf, raw)

	if err := ApplyFixup(buf, sectorSize); err != nil {
		return nil, err
	}

	var hdr RecordHeader
	if err := restruct.Unpack(buf[:recordHeaderSize], binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}

	first := int(hdr.FirstAttributeOffset)
	if first < recordHeaderSize || first >= len(buf) {
		return nil, fmt.Errorf("invalid first attribute offset %d", first)
	}

	rec := &Record{
		InUse:     hdr.Flags&recordFlagInUse != 0,
		IsDir:     hdr.Flags&recordFlagDirectory != 0,
		SeqNum:    hdr.SequenceNumber,
		HardLinks: hdr.HardLinkCount,
		BaseRef:   hdr.BaseReference & refRecordMask,
	}

	for _, attr := range ParseAttributes(buf[first:]) {
		switch attr.Type {
		case AttrFileName:
			fn, err := parseFileName(attr)
			if err != nil {
				continue
			}
			if rec.Name == nil || (rec.Name.Namespace == NamespaceDOS && fn.Namespace != NamespaceDOS) {
				rec.Name = fn
			}
		case AttrData:
			// Only the unnamed stream is the file content; named streams
			// are alternate data streams.
			if attr.NameLength != 0 || rec.Data != nil {
				continue
			}
			data, err := parseData(attr)
			if err != nil {
				continue
			}
			rec.Data = data
		}
	}
	return rec, nil
}
