package ntfs_test

import (
	"testing"

	"github.com/exhume/exhume/internal/ntfs"
	"github.com/exhume/exhume/internal/ntfs/ntfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttributesStopsAtTerminator(t *testing.T) {
	a1 := ntfstest.ResidentData([]byte("abc"))
	a2 := ntfstest.FileNameAttr(5, "x", 1, 0)

	stream := append(append([]byte{}, a1...), a2...)
	stream = append(stream, 0xFF, 0xFF, 0xFF, 0xFF)
	// A well-formed attribute after the terminator must not be yielded.
	stream = append(stream, ntfstest.ResidentData([]byte("ghost"))...)

	attrs := ntfs.ParseAttributes(stream)
	require.Len(t, attrs, 2)
	assert.Equal(t, ntfs.AttrData, attrs[0].Type)
	assert.Equal(t, ntfs.AttrFileName, attrs[1].Type)
}

func TestParseAttributesStopsOnZeroLength(t *testing.T) {
	a1 := ntfstest.ResidentData([]byte("abc"))
	stream := append(append([]byte{}, a1...), ntfstest.RawAttr(0x30, 0, 32)...)

	attrs := ntfs.ParseAttributes(stream)
	require.Len(t, attrs, 1)
	assert.Equal(t, ntfs.AttrData, attrs[0].Type)
}

func TestParseAttributesStopsOnOverrunLength(t *testing.T) {
	// Declared length crosses the end of the record.
	stream := ntfstest.RawAttr(0x80, 4096, 64)
	assert.Empty(t, ntfs.ParseAttributes(stream))
}

func TestAttributeTypeNames(t *testing.T) {
	assert.Equal(t, "$FILE_NAME", ntfs.AttrFileName.String())
	assert.Equal(t, "$DATA", ntfs.AttrData.String())
	assert.Equal(t, "unknown", ntfs.AttributeType(0x1234).String())
}
