package export_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/exhume/exhume/internal/export"
	"github.com/exhume/exhume/internal/ntfs"
	"github.com/exhume/exhume/internal/ntfs/ntfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildVolume lays out a partition image with 4096-byte clusters and the
// MFT at cluster 1. Records land in consecutive slots starting at 0;
// cluster payloads are written at their LCN.
func buildVolume(t *testing.T, records [][]byte, clusters map[int64][]byte) ([]byte, *ntfs.Geometry) {
	t.Helper()

	boot := ntfstest.BootSector(ntfstest.BootOpts{
		BytesPerSector:    512,
		SectorsPerCluster: 8,
		TotalSectors:      8 * 400, // 400 clusters
		MFTCluster:        1,
	})

	geo, err := ntfs.ParseBootSector(boot)
	require.NoError(t, err)
	require.Equal(t, uint64(4096), geo.ClusterSize())

	img := make([]byte, geo.VolumeSize())
	copy(img, boot)

	mftOff := geo.ClusterOffset(1)
	for i, rec := range records {
		copy(img[mftOff+int64(i)*1024:], rec)
	}

	for lcn, payload := range clusters {
		require.LessOrEqual(t, len(payload), 4096)
		copy(img[geo.ClusterOffset(lcn):], payload)
	}
	return img, geo
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251)
	}
	return b
}

func TestExportResident(t *testing.T) {
	rec := ntfstest.Record(ntfstest.RecordOpts{
		InUse: true,
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "hello.txt", 1, 0x20),
			ntfstest.ResidentData([]byte{0x68, 0x69, 0x0A}), // "hi\n"
		},
	})
	img, geo := buildVolume(t, [][]byte{rec}, nil)

	exp := export.New(bytes.NewReader(img), 0, geo)

	out := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, exp.ExportRecord(context.Background(), 0, out))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi\n"), content)
}

func TestExportNonResidentTruncatesAtDataSize(t *testing.T) {
	payload := pattern(8192, 3)

	// One run of 2 clusters at LCN 100, real size 5000.
	rec := ntfstest.Record(ntfstest.RecordOpts{
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "gone.bin", 1, 0x20),
			ntfstest.NonResidentData([]byte{0x21, 0x02, 0x64, 0x00, 0x00}, 5000, 8192),
		},
	})
	img, geo := buildVolume(t, [][]byte{rec}, map[int64][]byte{
		100: payload[:4096],
		101: payload[4096:],
	})

	exp := export.New(bytes.NewReader(img), 0, geo)

	var buf bytes.Buffer
	parsed, err := ntfs.ReadRecord(bytes.NewReader(img), 0, geo, 0)
	require.NoError(t, err)

	n, err := exp.Export(context.Background(), parsed, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), n)
	assert.Equal(t, payload[:5000], buf.Bytes())
}

func TestExportReadsExtentsInListedOrder(t *testing.T) {
	first := pattern(4096, 7)
	second := pattern(4096, 91)

	// Run 1 at LCN 120, run 2 at LCN 100: the second extent lies before
	// the first on disk, and the output must still be run 1 then run 2.
	mp := []byte{0x11, 0x01, 0x78, 0x11, 0x01, 0xEC, 0x00}
	rec := ntfstest.Record(ntfstest.RecordOpts{
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "frag.bin", 1, 0x20),
			ntfstest.NonResidentData(mp, 8192, 8192),
		},
	})
	img, geo := buildVolume(t, [][]byte{rec}, map[int64][]byte{
		120: first,
		100: second,
	})

	exp := export.New(bytes.NewReader(img), 0, geo)
	parsed, err := ntfs.ReadRecord(bytes.NewReader(img), 0, geo, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = exp.Export(context.Background(), parsed, &buf)
	require.NoError(t, err)

	assert.Equal(t, first, buf.Bytes()[:4096])
	assert.Equal(t, second, buf.Bytes()[4096:])
}

func TestExportZeroFillsSparseRuns(t *testing.T) {
	head := pattern(4096, 11)
	tail := pattern(4096, 201)

	// [LCN=200, len 1], [sparse, len 3], [LCN=300, len 1]; real size
	// covers the head cluster, the hole and 100 bytes of the tail.
	mp := []byte{
		0x21, 0x01, 0xC8, 0x00, // 1 cluster at LCN 200
		0x01, 0x03, // 3 sparse clusters
		0x11, 0x01, 0x64, // 1 cluster at LCN 200+100=300
		0x00,
	}
	dataSize := uint64(4*4096 + 100)
	rec := ntfstest.Record(ntfstest.RecordOpts{
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "holes.bin", 1, 0x20),
			ntfstest.NonResidentData(mp, dataSize, 5*4096),
		},
	})
	img, geo := buildVolume(t, [][]byte{rec}, map[int64][]byte{
		200: head,
		300: tail,
	})

	exp := export.New(bytes.NewReader(img), 0, geo)
	parsed, err := ntfs.ReadRecord(bytes.NewReader(img), 0, geo, 0)
	require.NoError(t, err)
	require.Len(t, parsed.Data.Runs, 3)
	assert.True(t, parsed.Data.Runs[1].Sparse)

	var buf bytes.Buffer
	n, err := exp.Export(context.Background(), parsed, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(dataSize), n)

	out := buf.Bytes()
	assert.Equal(t, head, out[:4096])
	assert.Equal(t, make([]byte, 3*4096), out[4096:4*4096])
	assert.Equal(t, tail[:100], out[4*4096:])
}

func TestExportErrors(t *testing.T) {
	noData := ntfstest.Record(ntfstest.RecordOpts{
		InUse: true,
		Attrs: [][]byte{ntfstest.FileNameAttr(5, "bare", 1, 0)},
	})
	noRuns := ntfstest.Record(ntfstest.RecordOpts{
		InUse: true,
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "empty.bin", 1, 0),
			ntfstest.NonResidentData([]byte{0x00}, 0, 0),
		},
	})
	img, geo := buildVolume(t, [][]byte{noData, noRuns}, nil)

	exp := export.New(bytes.NewReader(img), 0, geo)

	out := filepath.Join(t.TempDir(), "out.bin")
	err := exp.ExportRecord(context.Background(), 0, out)
	assert.ErrorIs(t, err, export.ErrNoData)

	err = exp.ExportRecord(context.Background(), 1, out)
	assert.ErrorIs(t, err, export.ErrNoRuns)

	// Slot 2 is a zeroed, never-allocated record.
	err = exp.ExportRecord(context.Background(), 2, out)
	assert.ErrorIs(t, err, ntfs.ErrRecordNotFound)
}

func TestExporterOpenSeeks(t *testing.T) {
	payload := pattern(4096, 55)
	rec := ntfstest.Record(ntfstest.RecordOpts{
		Attrs: [][]byte{
			ntfstest.FileNameAttr(5, "seek.bin", 1, 0),
			ntfstest.NonResidentData([]byte{0x11, 0x01, 0x64, 0x00}, 4000, 4096),
		},
	})
	img, geo := buildVolume(t, [][]byte{rec}, map[int64][]byte{100: payload})

	exp := export.New(bytes.NewReader(img), 0, geo)
	parsed, err := ntfs.ReadRecord(bytes.NewReader(img), 0, geo, 0)
	require.NoError(t, err)

	rs, size, err := exp.Open(parsed)
	require.NoError(t, err)
	assert.Equal(t, uint64(4000), size)

	_, err = rs.Seek(1000, 0)
	require.NoError(t, err)

	buf := make([]byte, 16)
	_, err = rs.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, payload[1000:1016], buf)
}
