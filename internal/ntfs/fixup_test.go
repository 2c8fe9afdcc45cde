package ntfs_test

import (
	"testing"

	"github.com/exhume/exhume/internal/ntfs"
	"github.com/exhume/exhume/internal/ntfs/ntfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFixupRestoresSectorTails(t *testing.T) {
	attrs := [][]byte{
		ntfstest.FileNameAttr(5, "a-long-enough-name-to-cross-sectors.bin", 1, 0x20),
		ntfstest.ResidentData(make([]byte, 600)),
	}
	rec := ntfstest.Record(ntfstest.RecordOpts{InUse: true, Attrs: attrs})

	// Reference copy with the real tail words in place of the USN.
	want := make([]byte, len(rec))
	copy(want, rec)
	copy(want[510:512], rec[50:52])
	copy(want[1022:1024], rec[52:54])

	require.NoError(t, ntfs.ApplyFixup(rec, 512))
	assert.Equal(t, want, rec)
}

func TestApplyFixupRejectsTornRecord(t *testing.T) {
	rec := ntfstest.Record(ntfstest.RecordOpts{InUse: true, Torn: true})
	err := ntfs.ApplyFixup(rec, 512)
	assert.ErrorIs(t, err, ntfs.ErrTornRecord)
}

func TestApplyFixupRejectsBadSignature(t *testing.T) {
	assert.ErrorIs(t, ntfs.ApplyFixup(make([]byte, 1024), 512), ntfs.ErrBadSignature)

	rec := ntfstest.Record(ntfstest.RecordOpts{InUse: true})
	copy(rec[0:4], "BAAD")
	assert.ErrorIs(t, ntfs.ApplyFixup(rec, 512), ntfs.ErrBadSignature)
}

func TestApplyFixupRejectsBrokenUSA(t *testing.T) {
	rec := ntfstest.Record(ntfstest.RecordOpts{InUse: true})
	le.PutUint16(rec[6:], 0) // empty USA
	assert.Error(t, ntfs.ApplyFixup(rec, 512))

	rec = ntfstest.Record(ntfstest.RecordOpts{InUse: true})
	le.PutUint16(rec[4:], 1020)
	le.PutUint16(rec[6:], 16) // array overruns the record
	assert.Error(t, ntfs.ApplyFixup(rec, 512))
}
