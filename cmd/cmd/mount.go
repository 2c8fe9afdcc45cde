package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/exhume/exhume/internal/device"
	"github.com/exhume/exhume/internal/disk"
	"github.com/exhume/exhume/internal/fuse"
	"github.com/exhume/exhume/pkg/dfxml"
	"github.com/exhume/exhume/pkg/reader"
	"github.com/spf13/cobra"
)

func DefineMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <device> <report_file>",
		Short: "Mount the files of a scan report as a read-only filesystem",
		Long: `The 'mount' command exposes the files listed in a DFXML scan report as a
flat read-only directory, serving their bytes straight from the imaged
volume. Fragmented files are stitched from their extents and sparse
regions read as zeros, so recovered content can be inspected without
exporting it first. Files whose data is resident in the MFT record carry
no byte runs in the report and are not listed.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunMount,
	}

	cmd.Flags().StringP("mountpoint", "m", "", "directory to mount at (default: derived from the report name)")
	return cmd
}

func RunMount(cmd *cobra.Command, args []string) error {
	dev, err := device.Open(disk.NormalizeVolumePath(args[0]))
	if err != nil {
		return err
	}
	defer dev.Close()

	reportFile, err := os.Open(args[1])
	if err != nil {
		return err
	}
	defer reportFile.Close()

	mountpoint, _ := cmd.Flags().GetString("mountpoint")
	if mountpoint == "" {
		mountpoint = getMountpoint(reportFile.Name())
	}

	objects, err := dfxml.ReadFileObjects(bufio.NewReader(reportFile))
	if err != nil {
		return err
	}

	entries, err := fileObjectsToEntries(dev, objects)
	if err != nil {
		return err
	}
	return fuse.Mount(mountpoint, entries)
}

// getMountpoint derives a mountpoint name from the report file name by
// stripping the extension.
func getMountpoint(reportFileName string) string {
	baseName := filepath.Base(reportFileName)
	ext := filepath.Ext(baseName)
	baseName = strings.TrimSuffix(baseName, ext)
	if ext == "" {
		baseName += "_mnt"
	}
	return baseName
}

// fileObjectsToEntries turns report fileobjects into mountable entries.
// Each entry opens a fresh extent stream over the device; fill runs read
// as zeros. Duplicate names are disambiguated with the record number.
// Objects with a size but no byte runs (resident data, which the report
// does not carry) are left out.
func fileObjectsToEntries(dev *device.Device, objs []dfxml.FileObject) ([]fuse.FileEntry, error) {
	seen := map[string]bool{}

	entries := make([]fuse.FileEntry, 0, len(objs))
	for _, o := range objs {
		runs := o.ByteRuns.Runs
		if len(runs) == 0 && o.FileSize > 0 {
			continue
		}

		name := o.Filename
		if name == "" || seen[name] {
			name = fmt.Sprintf("rec%d_%s", o.Inode, o.Filename)
		}
		seen[name] = true

		size := o.FileSize
		var total uint64
		for _, r := range runs {
			total += r.Length
		}
		if size == 0 || size > total {
			size = total
		}

		localRuns := runs
		entries = append(entries, fuse.FileEntry{
			Name: name,
			Size: size,
			Open: func() (io.ReadSeeker, error) {
				readers := make([]io.ReadSeeker, 0, len(localRuns))
				sizes := make([]int64, 0, len(localRuns))
				for _, r := range localRuns {
					if r.Sparse() {
						readers = append(readers, reader.NewZeroReadSeeker(int64(r.Length)))
					} else {
						readers = append(readers, io.NewSectionReader(dev, int64(r.ImgOffset), int64(r.Length)))
					}
					sizes = append(sizes, int64(r.Length))
				}
				multi := reader.NewMultiReadSeeker(readers, sizes)
				return reader.NewBufferedReadSeeker(multi, 128*1024), nil
			},
		})
	}
	return entries, nil
}
