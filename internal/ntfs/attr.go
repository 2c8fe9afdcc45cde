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
	"unicode/utf16"

	"github.com/go-restruct/restruct"
)

// AttributeType identifies an MFT attribute.
type AttributeType uint32

const (
	AttrStandardInformation AttributeType = 0x10
	AttrAttributeList       AttributeType = 0x20
	AttrFileName            AttributeType = 0x30
	AttrObjectID            AttributeType = 0x40
	AttrSecurityDescriptor  AttributeType = 0x50
	AttrVolumeName          AttributeType = 0x60
	AttrVolumeInformation   AttributeType = 0x70
	AttrData                AttributeType = 0x80
	AttrIndexRoot           AttributeType = 0x90
	AttrIndexAllocation     AttributeType = 0xA0
	AttrBitmap              AttributeType = 0xB0
	AttrReparsePoint        AttributeType = 0xC0
	AttrEAInformation       AttributeType = 0xD0
	AttrEA                  AttributeType = 0xE0
	AttrLoggedUtilityStream AttributeType = 0x100

	// AttrTerminator ends the attribute list of a record. It is consumed
	// by the walker and never surfaced.
	AttrTerminator AttributeType = 0xFFFFFFFF
)

func (t AttributeType) String() string {
	switch t {
	case AttrStandardInformation:
		return "$STANDARD_INFORMATION"
	case AttrAttributeList:
		return "$ATTRIBUTE_LIST"
	case AttrFileName:
		return "$FILE_NAME"
	case AttrObjectID:
		return "$OBJECT_ID"
	case AttrSecurityDescriptor:
		return "$SECURITY_DESCRIPTOR"
	case AttrVolumeName:
		return "$VOLUME_NAME"
	case AttrVolumeInformation:
		return "$VOLUME_INFORMATION"
	case AttrData:
		return "$DATA"
	case AttrIndexRoot:
		return "$INDEX_ROOT"
	case AttrIndexAllocation:
		return "$INDEX_ALLOCATION"
	case AttrBitmap:
		return "$BITMAP"
	case AttrReparsePoint:
		return "$REPARSE_POINT"
	case AttrEAInformation:
		return "$EA_INFORMATION"
	case AttrEA:
		return "$EA"
	case AttrLoggedUtilityStream:
		return "$LOGGED_UTILITY_STREAM"
	}
	return "unknown"
}

// attributeHeader is the 16-byte header every attribute starts with.
type attributeHeader struct {
	Type        uint32
	Length      uint32
	NonResident uint8
	NameLength  uint8
	NameOffset  uint16
	Flags       uint16
	AttributeID uint16
}

const attributeHeaderSize = 16

// Attribute is one raw attribute record: its decoded common header plus
// the full on-disk bytes (header included), to be interpreted per type.
type Attribute struct {
	Type        AttributeType
	NonResident bool
	NameLength  uint8
	Data        []byte
}

// ParseAttributes walks the attribute stream of a fixed-up record,
// stopping at the 0xFFFFFFFF terminator. A zero length or one that would
// run past the record ends the walk; whatever was decoded before the
// damage is kept.
func ParseAttributes(b []byte) []Attribute {
	attrs := []Attribute{}

	off := 0
	for off+8 <= len(b) {
		typ := AttributeType(binary.LittleEndian.Uint32(b[off:]))
		if typ == AttrTerminator {
			break
		}

		length := int(binary.LittleEndian.Uint32(b[off+4:]))
		if length <= 0 || off+length > len(b) {
			break
		}

		attr := Attribute{Type: typ, Data: b[off : off+length]}
		if length >= attributeHeaderSize {
			attr.NonResident = b[off+8] != 0
			attr.NameLength = b[off+9]
		}
		attrs = append(attrs, attr)
		off += length
	}
	return attrs
}

// residentValue extracts the value bytes of a resident attribute.
func residentValue(attr []byte) ([]byte, error) {
	if len(attr) < 24 {
		return nil, fmt.Errorf("resident attribute header truncated at %d bytes", len(attr))
	}

	valueLength := int(binary.LittleEndian.Uint32(attr[16:]))
	valueOffset := int(binary.LittleEndian.Uint16(attr[20:]))
	if valueOffset+valueLength > len(attr) {
		return nil, fmt.Errorf("resident value (%d bytes at %d) overruns attribute of %d bytes",
			valueLength, valueOffset, len(attr))
	}
	return attr[valueOffset : valueOffset+valueLength], nil
}

// $FILE_NAME namespaces. A record often carries both a DOS 8.3 name and a
// Win32 one; the latter is the one users recognize.
const (
	NamespacePOSIX    uint8 = 0
	NamespaceWin32    uint8 = 1
	NamespaceDOS      uint8 = 2
	NamespaceWin32DOS uint8 = 3
)

// FileNameAttr is the decoded $FILE_NAME (0x30) value.
type FileNameAttr struct {
	ParentRef uint64 // low 48 bits of the parent directory reference
	Name      string
	Flags     uint32 // NTFS file attribute flags, carried verbatim
	Namespace uint8
}

// fileNameValue is the fixed 66-byte prefix of the $FILE_NAME value; the
// UTF-16LE name follows it.
type fileNameValue struct {
	ParentRef     uint64
	CreationTime  uint64
	ModifiedTime  uint64
	MFTChangeTime uint64
	AccessTime    uint64
	AllocatedSize uint64
	RealSize      uint64
	Flags         uint32
	ReparseValue  uint32
	NameLength    uint8
	Namespace     uint8
}

const fileNameValueSize = 66

// parseFileName decodes a $FILE_NAME attribute. The attribute is resident
// in practice; a non-resident one is rejected. Undecodable UTF-16 in the
// name is replaced, never fatal.
func parseFileName(attr Attribute) (*FileNameAttr, error) {
	if attr.NonResident {
		return nil, fmt.Errorf("non-resident $FILE_NAME attribute")
	}

	v, err := residentValue(attr.Data)
	if err != nil {
		return nil, err
	}
	if len(v) < fileNameValueSize {
		return nil, fmt.Errorf("$FILE_NAME value truncated at %d bytes", len(v))
	}

	var fnv fileNameValue
	if err := restruct.Unpack(v[:fileNameValueSize], binary.LittleEndian, &fnv); err != nil {
		return nil, err
	}

	nameBytes := v[fileNameValueSize:]
	if want := int(fnv.NameLength) * 2; want <= len(nameBytes) {
		nameBytes = nameBytes[:want]
	}

	return &FileNameAttr{
		ParentRef: fnv.ParentRef & refRecordMask,
		Name:      decodeUTF16LE(nameBytes),
		Flags:     fnv.Flags,
		Namespace: fnv.Namespace,
	}, nil
}

// DataAttr is the decoded unnamed $DATA (0x80) attribute.
type DataAttr struct {
	NonResident bool

	// Resident holds the whole value when the data lives inside the
	// record.
	Resident []byte

	// Runs, DataSize and friends describe non-resident data. DataSize is
	// the real byte length; the final cluster of the last run is normally
	// only partially used.
	Runs            []DataRun
	DataSize        uint64
	AllocatedSize   uint64
	InitializedSize uint64
}

// Size returns the byte length of the attribute's value.
func (d *DataAttr) Size() uint64 {
	if !d.NonResident {
		return uint64(len(d.Resident))
	}
	return d.DataSize
}

// parseData decodes a $DATA attribute of either residency.
func parseData(attr Attribute) (*DataAttr, error) {
	if !attr.NonResident {
		v, err := residentValue(attr.Data)
		if err != nil {
			return nil, err
		}
		resident := make([]byte, len(v))
		copy(resident, v)
		return &DataAttr{Resident: resident}, nil
	}

	b := attr.Data
	if len(b) < 64 {
		return nil, fmt.Errorf("non-resident attribute header truncated at %d bytes", len(b))
	}

	mappingOffset := int(binary.LittleEndian.Uint16(b[32:]))
	if mappingOffset > len(b) {
		return nil, fmt.Errorf("mapping pairs offset %d overruns attribute of %d bytes", mappingOffset, len(b))
	}

	return &DataAttr{
		NonResident:     true,
		Runs:            DecodeRunList(b[mappingOffset:]),
		AllocatedSize:   binary.LittleEndian.Uint64(b[40:]),
		DataSize:        binary.LittleEndian.Uint64(b[48:]),
		InitializedSize: binary.LittleEndian.Uint64(b[56:]),
	}, nil
}

// decodeUTF16LE decodes little-endian UTF-16, replacing invalid surrogate
// sequences. A trailing odd byte is dropped.
func decodeUTF16LE(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units))
}
