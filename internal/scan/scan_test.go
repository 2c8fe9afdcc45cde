package scan_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/exhume/exhume/internal/ntfs"
	"github.com/exhume/exhume/internal/ntfs/ntfstest"
	"github.com/exhume/exhume/internal/scan"
	"github.com/exhume/exhume/pkg/dfxml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestImage lays out a small NTFS partition image: cluster size 512,
// MFT at cluster 4, and a directory tree with live and deleted entries.
func writeTestImage(t *testing.T, records map[uint64][]byte, slots uint64) string {
	t.Helper()

	boot := ntfstest.BootSector(ntfstest.BootOpts{
		BytesPerSector:    512,
		SectorsPerCluster: 1,
		TotalSectors:      4 + slots*2 + 256,
		MFTCluster:        4,
	})

	geo, err := ntfs.ParseBootSector(boot)
	require.NoError(t, err)

	img := make([]byte, geo.VolumeSize())
	copy(img, boot)

	mftOff := geo.ClusterOffset(int64(geo.MFTCluster))
	for num, rec := range records {
		copy(img[mftOff+int64(num*1024):], rec)
	}

	path := filepath.Join(t.TempDir(), "volume.img")
	require.NoError(t, os.WriteFile(path, img, 0644))
	return path
}

func dirRecord(name string, parent uint64) []byte {
	return ntfstest.Record(ntfstest.RecordOpts{
		InUse: true,
		IsDir: true,
		Attrs: [][]byte{ntfstest.FileNameAttr(parent, name, 1, 0x10000000)},
	})
}

func testTreeRecords() map[uint64][]byte {
	return map[uint64][]byte{
		5:  dirRecord(".", 5),
		40: dirRecord("docs", 5),
		41: ntfstest.Record(ntfstest.RecordOpts{
			// deleted: flags clear
			Attrs: [][]byte{
				ntfstest.FileNameAttr(40, "notes.md", 1, 0x20),
				ntfstest.ResidentData([]byte("notes!")),
			},
		}),
		42: ntfstest.Record(ntfstest.RecordOpts{InUse: true, Torn: true}),
		50: ntfstest.Record(ntfstest.RecordOpts{
			InUse: true,
			Attrs: [][]byte{
				ntfstest.FileNameAttr(5, "hello.txt", 1, 0x20),
				ntfstest.ResidentData([]byte("hi\n")),
			},
		}),
		60: ntfstest.Record(ntfstest.RecordOpts{
			Attrs: [][]byte{
				ntfstest.FileNameAttr(5, "gone.bin", 1, 0x20),
				// 2 clusters at LCN 100
				ntfstest.NonResidentData([]byte{0x21, 0x02, 0x64, 0x00, 0x00}, 700, 1024),
			},
		}),
	}
}

func quietOptions(t *testing.T) scan.Options {
	return scan.Options{
		VolOffset:  -1,
		ReportFile: filepath.Join(t.TempDir(), "report.xml"),
		DisableLog: true,
		Quiet:      true,
	}
}

func entryByRecord(entries []scan.Entry, num uint64) *scan.Entry {
	for i := range entries {
		if entries[i].Record == num {
			return &entries[i]
		}
	}
	return nil
}

func TestScanListsDeletedWithPaths(t *testing.T) {
	path := writeTestImage(t, testTreeRecords(), 64)

	res, err := scan.Scan(context.Background(), path, quietOptions(t))
	require.NoError(t, err)

	// Only the deleted records are listed by default.
	require.Len(t, res.Entries, 2)

	notes := entryByRecord(res.Entries, 41)
	require.NotNil(t, notes)
	assert.Equal(t, "notes.md", notes.Name)
	assert.Equal(t, scan.StatusDeleted, notes.Status)
	assert.Equal(t, uint64(6), notes.Size)
	assert.False(t, notes.IsDir)
	require.NotNil(t, notes.Path)
	assert.Equal(t, "./docs/notes.md", *notes.Path)

	gone := entryByRecord(res.Entries, 60)
	require.NotNil(t, gone)
	assert.Equal(t, uint64(700), gone.Size)

	// The torn record was skipped, not fatal.
	assert.GreaterOrEqual(t, res.Skipped, uint64(1))
}

func TestScanAllIncludesLiveRecords(t *testing.T) {
	path := writeTestImage(t, testTreeRecords(), 64)

	opts := quietOptions(t)
	opts.All = true
	res, err := scan.Scan(context.Background(), path, opts)
	require.NoError(t, err)

	hello := entryByRecord(res.Entries, 50)
	require.NotNil(t, hello)
	assert.Equal(t, "hello.txt", hello.Name)
	assert.Equal(t, scan.StatusLive, hello.Status)
	assert.Equal(t, uint64(3), hello.Size)
	require.NotNil(t, hello.Path)
	assert.Equal(t, "./hello.txt", *hello.Path)

	docs := entryByRecord(res.Entries, 40)
	require.NotNil(t, docs)
	assert.True(t, docs.IsDir)
}

func TestScanFilters(t *testing.T) {
	path := writeTestImage(t, testTreeRecords(), 64)

	opts := quietOptions(t)
	opts.NameContains = "NOTES"
	res, err := scan.Scan(context.Background(), path, opts)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, uint64(41), res.Entries[0].Record)

	opts = quietOptions(t)
	opts.Filter = "docs/"
	res, err = scan.Scan(context.Background(), path, opts)
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, uint64(41), res.Entries[0].Record)
}

func TestScanWritesReport(t *testing.T) {
	path := writeTestImage(t, testTreeRecords(), 64)

	opts := quietOptions(t)
	res, err := scan.Scan(context.Background(), path, opts)
	require.NoError(t, err)

	f, err := os.Open(res.ReportFile)
	require.NoError(t, err)
	defer f.Close()

	objects, err := dfxml.ReadFileObjects(f)
	require.NoError(t, err)
	require.Len(t, objects, 2)

	var gone *dfxml.FileObject
	for i := range objects {
		if objects[i].Inode == 60 {
			gone = &objects[i]
		}
	}
	require.NotNil(t, gone)
	assert.Equal(t, "gone.bin", gone.Filename)
	assert.Equal(t, 0, gone.Alloc)
	require.Len(t, gone.ByteRuns.Runs, 1)
	run := gone.ByteRuns.Runs[0]
	assert.Equal(t, uint64(100*512), run.ImgOffset)
	assert.Equal(t, uint64(2*512), run.Length)
	assert.False(t, run.Sparse())
}

func TestScanEntryJSONShape(t *testing.T) {
	path := writeTestImage(t, testTreeRecords(), 64)

	res, err := scan.Scan(context.Background(), path, quietOptions(t))
	require.NoError(t, err)

	notes := entryByRecord(res.Entries, 41)
	require.NotNil(t, notes)

	raw, err := json.Marshal(notes)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, key := range []string{"record", "name", "path", "is_dir", "status", "size"} {
		assert.Contains(t, m, key)
	}
}

func TestScanCancellation(t *testing.T) {
	path := writeTestImage(t, testTreeRecords(), 64)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := scan.Scan(ctx, path, quietOptions(t))
	require.NoError(t, err)
	// Cancelled before the first record could be consumed; the partial
	// result is still well-formed.
	assert.LessOrEqual(t, len(res.Entries), 2)
}

func TestScanPathCycleIsBounded(t *testing.T) {
	records := map[uint64][]byte{
		// 70 and 71 point at each other.
		70: dirRecord("a", 71),
		71: dirRecord("b", 70),
		72: ntfstest.Record(ntfstest.RecordOpts{
			Attrs: [][]byte{
				ntfstest.FileNameAttr(70, "trapped.txt", 1, 0),
				ntfstest.ResidentData([]byte("x")),
			},
		}),
	}
	path := writeTestImage(t, records, 96)

	res, err := scan.Scan(context.Background(), path, quietOptions(t))
	require.NoError(t, err)

	trapped := entryByRecord(res.Entries, 72)
	require.NotNil(t, trapped)
	require.NotNil(t, trapped.Path)
	assert.Equal(t, "b/a/trapped.txt", *trapped.Path)
}

func TestScanRejectsNonNTFS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.img")
	require.NoError(t, os.WriteFile(path, make([]byte, 1<<20), 0644))

	_, err := scan.Scan(context.Background(), path, quietOptions(t))
	assert.Error(t, err)
}
