package ntfs_test

import (
	"testing"

	"github.com/exhume/exhume/internal/ntfs"
	"github.com/exhume/exhume/internal/ntfs/ntfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordResidentFile(t *testing.T) {
	rec := ntfstest.Record(ntfstest.RecordOpts{
		InUse: true,
		Seq:   7,
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "hello.txt", 1, 0x20),
			ntfstest.ResidentData([]byte("hi\n")),
		},
	})

	parsed, err := ntfs.ParseRecord(rec, 512)
	require.NoError(t, err)

	assert.True(t, parsed.InUse)
	assert.False(t, parsed.IsDir)
	assert.Equal(t, uint16(7), parsed.SeqNum)
	assert.Zero(t, parsed.BaseRef)

	require.NotNil(t, parsed.Name)
	assert.Equal(t, "hello.txt", parsed.Name.Name)
	assert.Equal(t, uint64(5), parsed.Name.ParentRef)
	assert.Equal(t, uint32(0x20), parsed.Name.Flags)

	require.NotNil(t, parsed.Data)
	assert.False(t, parsed.Data.NonResident)
	assert.Equal(t, []byte("hi\n"), parsed.Data.Resident)
	assert.Equal(t, uint64(3), parsed.Data.Size())
}

func TestParseRecordDeletedNonResident(t *testing.T) {
	mp := []byte{0x21, 0x02, 0x64, 0x00, 0x00} // 2 clusters at LCN 100
	rec := ntfstest.Record(ntfstest.RecordOpts{
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "gone.bin", 1, 0x20),
			ntfstest.NonResidentData(mp, 5000, 8192),
		},
	})

	parsed, err := ntfs.ParseRecord(rec, 512)
	require.NoError(t, err)

	assert.False(t, parsed.InUse)
	require.NotNil(t, parsed.Data)
	assert.True(t, parsed.Data.NonResident)
	assert.Equal(t, uint64(5000), parsed.Data.DataSize)
	assert.Equal(t, uint64(8192), parsed.Data.AllocatedSize)
	require.Len(t, parsed.Data.Runs, 1)
	assert.Equal(t, ntfs.DataRun{LCN: 100, Length: 2}, parsed.Data.Runs[0])
}

func TestParseRecordPrefersWin32Name(t *testing.T) {
	rec := ntfstest.Record(ntfstest.RecordOpts{
		InUse: true,
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "LONGFI~1.TXT", 2, 0), // DOS
			ntfstest.FileNameAttr(5, "long file name.txt", 1, 0), // Win32
		},
	})

	parsed, err := ntfs.ParseRecord(rec, 512)
	require.NoError(t, err)
	require.NotNil(t, parsed.Name)
	assert.Equal(t, "long file name.txt", parsed.Name.Name)
}

func TestParseRecordKeepsFirstNameOtherwise(t *testing.T) {
	rec := ntfstest.Record(ntfstest.RecordOpts{
		InUse: true,
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "first.txt", 1, 0),
			ntfstest.FileNameAttr(5, "second.txt", 1, 0),
		},
	})

	parsed, err := ntfs.ParseRecord(rec, 512)
	require.NoError(t, err)
	require.NotNil(t, parsed.Name)
	assert.Equal(t, "first.txt", parsed.Name.Name)
}

func TestParseRecordSkipsAlternateDataStreams(t *testing.T) {
	rec := ntfstest.Record(ntfstest.RecordOpts{
		InUse: true,
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "file.txt", 1, 0),
			ntfstest.NamedResidentData("Zone.Identifier", []byte("[ZoneTransfer]")),
			ntfstest.ResidentData([]byte("content")),
		},
	})

	parsed, err := ntfs.ParseRecord(rec, 512)
	require.NoError(t, err)
	require.NotNil(t, parsed.Data)
	assert.Equal(t, []byte("content"), parsed.Data.Resident)
}

func TestParseRecordExtension(t *testing.T) {
	// Base reference carries a sequence number in its top 16 bits; only
	// the low 48 bits name the base record.
	rec := ntfstest.Record(ntfstest.RecordOpts{
		InUse: true,
		Base:  uint64(3)<<48 | 27,
	})

	parsed, err := ntfs.ParseRecord(rec, 512)
	require.NoError(t, err)
	assert.Equal(t, uint64(27), parsed.BaseRef)
}

func TestParseRecordDirectoryFlag(t *testing.T) {
	rec := ntfstest.Record(ntfstest.RecordOpts{
		InUse: true,
		IsDir: true,
		Attrs: [][]byte{ntfstest.FileNameAttr(5, "docs", 1, 0x10000000)},
	})

	parsed, err := ntfs.ParseRecord(rec, 512)
	require.NoError(t, err)
	assert.True(t, parsed.IsDir)
	assert.Nil(t, parsed.Data)
}

func TestParseRecordRejectsTorn(t *testing.T) {
	rec := ntfstest.Record(ntfstest.RecordOpts{InUse: true, Torn: true})
	_, err := ntfs.ParseRecord(rec, 512)
	assert.ErrorIs(t, err, ntfs.ErrTornRecord)
}

func TestParseRecordDoesNotMutateInput(t *testing.T) {
	rec := ntfstest.Record(ntfstest.RecordOpts{InUse: true})
	before := make([]byte, len(rec))
	copy(before, rec)

	_, err := ntfs.ParseRecord(rec, 512)
	require.NoError(t, err)
	assert.Equal(t, before, rec)
}
