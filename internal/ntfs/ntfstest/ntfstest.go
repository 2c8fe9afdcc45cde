// Package ntfstest synthesizes minimal NTFS on-disk structures for tests:
// boot sectors, fixup-encoded MFT records and attribute bytes.
package ntfstest

import (
	"encoding/binary"
	"unicode/utf16"
)

var le = binary.LittleEndian

// BootOpts parameterizes a synthesized boot sector.
type BootOpts struct {
	OemID             string // defaults to "NTFS    "
	BytesPerSector    uint16
	SectorsPerCluster uint8
	TotalSectors      uint64
	MFTCluster        uint64
	MFTMirrCluster    uint64
	ClustersPerRecord int8 // defaults to -10 (1024-byte records)
}

// BootSector builds a 512-byte NTFS boot sector.
func BootSector(opts BootOpts) []byte {
	if opts.OemID == "" {
		opts.OemID = "NTFS    "
	}
	if opts.ClustersPerRecord == 0 {
		opts.ClustersPerRecord = -10
	}

	b := make([]byte, 512)
	b[0] = 0xEB
	b[1] = 0x52
	b[2] = 0x90
	copy(b[3:11], opts.OemID)
	le.PutUint16(b[11:], opts.BytesPerSector)
	b[13] = opts.SectorsPerCluster
	b[21] = 0xF8
	le.PutUint16(b[24:], 63)
	le.PutUint16(b[26:], 255)
	le.PutUint64(b[40:], opts.TotalSectors)
	le.PutUint64(b[48:], opts.MFTCluster)
	le.PutUint64(b[56:], opts.MFTMirrCluster)
	b[64] = byte(opts.ClustersPerRecord)
	b[68] = byte(opts.ClustersPerRecord)
	b[510] = 0x55
	b[511] = 0xAA
	return b
}

// RecordOpts parameterizes a synthesized MFT record.
type RecordOpts struct {
	InUse bool
	IsDir bool
	Seq   uint16
	Base  uint64
	Attrs [][]byte

	// Torn corrupts one sector trailer after fixup encoding, producing a
	// record the fixup applier must reject.
	Torn bool
}

const (
	recordSize = 1024
	sectorSize = 512

	usaOffset  = 48
	firstAttr  = 56
	testUSN    = uint16(0x1957)
	terminator = uint32(0xFFFFFFFF)
)

// Record builds a 1024-byte MFT record over two 512-byte sectors, with
// the update sequence array encoded the way the driver leaves it on disk.
func Record(opts RecordOpts) []byte {
	rec := make([]byte, recordSize)
	copy(rec[0:4], "FILE")
	le.PutUint16(rec[4:], usaOffset)
	le.PutUint16(rec[6:], 3) // USN + one word per sector
	le.PutUint16(rec[16:], opts.Seq)
	le.PutUint16(rec[18:], 1)
	le.PutUint16(rec[20:], firstAttr)

	var flags uint16
	if opts.InUse {
		flags |= 0x0001
	}
	if opts.IsDir {
		flags |= 0x0002
	}
	le.PutUint16(rec[22:], flags)
	le.PutUint32(rec[28:], recordSize)
	le.PutUint64(rec[32:], opts.Base)
	le.PutUint16(rec[40:], 4)

	off := firstAttr
	for _, attr := range opts.Attrs {
		copy(rec[off:], attr)
		off += len(attr)
	}
	le.PutUint32(rec[off:], terminator)
	le.PutUint32(rec[24:], uint32(off+8))

	encodeFixup(rec)
	if opts.Torn {
		rec[sectorSize-2] ^= 0xFF
	}
	return rec
}

// encodeFixup moves the real sector-trailer words into the update
// sequence array and stamps the USN over the trailers.
func encodeFixup(rec []byte) {
	le.PutUint16(rec[usaOffset:], testUSN)
	for i := 0; i < 2; i++ {
		tail := (i+1)*sectorSize - 2
		copy(rec[usaOffset+2+2*i:], rec[tail:tail+2])
		le.PutUint16(rec[tail:], testUSN)
	}
}

// attrHeader fills the 16-byte common attribute header. length covers the
// whole attribute record.
func attrHeader(b []byte, typ uint32, nonResident bool, nameLength uint8) {
	le.PutUint32(b[0:], typ)
	le.PutUint32(b[4:], uint32(len(b)))
	if nonResident {
		b[8] = 1
	}
	b[9] = nameLength
}

func pad8(n int) int {
	return (n + 7) &^ 7
}

// residentAttr builds a resident attribute of the given type around value.
func residentAttr(typ uint32, value []byte) []byte {
	const valueOffset = 24

	b := make([]byte, pad8(valueOffset+len(value)))
	attrHeader(b, typ, false, 0)
	le.PutUint32(b[16:], uint32(len(value)))
	le.PutUint16(b[20:], valueOffset)
	copy(b[valueOffset:], value)
	return b
}

// FileNameAttr builds a resident $FILE_NAME attribute.
func FileNameAttr(parent uint64, name string, namespace uint8, flags uint32) []byte {
	units := utf16.Encode([]rune(name))

	v := make([]byte, 66+2*len(units))
	le.PutUint64(v[0:], parent)
	le.PutUint32(v[56:], flags)
	v[64] = uint8(len(units))
	v[65] = namespace
	for i, u := range units {
		le.PutUint16(v[66+2*i:], u)
	}
	return residentAttr(0x30, v)
}

// ResidentData builds a resident unnamed $DATA attribute.
func ResidentData(data []byte) []byte {
	return residentAttr(0x80, data)
}

// NamedResidentData builds a resident named $DATA attribute (an alternate
// data stream).
func NamedResidentData(name string, data []byte) []byte {
	units := utf16.Encode([]rune(name))

	nameOffset := 24
	valueOffset := pad8(nameOffset + 2*len(units))

	b := make([]byte, pad8(valueOffset+len(data)))
	attrHeader(b, 0x80, false, uint8(len(units)))
	le.PutUint16(b[10:], uint16(nameOffset))
	le.PutUint32(b[16:], uint32(len(data)))
	le.PutUint16(b[20:], uint16(valueOffset))
	for i, u := range units {
		le.PutUint16(b[nameOffset+2*i:], u)
	}
	copy(b[valueOffset:], data)
	return b
}

// NonResidentData builds a non-resident unnamed $DATA attribute carrying
// the given mapping-pairs bytes and real size.
func NonResidentData(mappingPairs []byte, dataSize, allocatedSize uint64) []byte {
	const mappingOffset = 64

	b := make([]byte, pad8(mappingOffset+len(mappingPairs)+1))
	attrHeader(b, 0x80, true, 0)
	le.PutUint16(b[32:], mappingOffset)
	le.PutUint64(b[40:], allocatedSize)
	le.PutUint64(b[48:], dataSize)
	le.PutUint64(b[56:], dataSize)
	copy(b[mappingOffset:], mappingPairs)
	return b
}

// RawAttr builds an attribute with an explicit type and declared length,
// for malformed-stream tests. declared may disagree with size.
func RawAttr(typ uint32, declared uint32, size int) []byte {
	b := make([]byte, size)
	le.PutUint32(b[0:], typ)
	le.PutUint32(b[4:], declared)
	return b
}
