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
// Package scan drives the MFT iterator over a device, summarizing every
// record: name, reconstructed path, allocation state and size. The result
// is what a recovery UI lists and what the exporter acts on.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/exhume/exhume/internal/device"
	"github.com/exhume/exhume/internal/disk"
	"github.com/exhume/exhume/internal/env"
	"github.com/exhume/exhume/internal/ntfs"
	"github.com/exhume/exhume/pkg/dfxml"
	"github.com/exhume/exhume/pkg/pbar"
	fmtutil "github.com/exhume/exhume/pkg/util/format"
)

const (
	// StatusLive and StatusDeleted classify a record's allocation state.
	StatusLive    = "live"
	StatusDeleted = "deleted"

	// maxPathDepth bounds parent-chain walks; corrupted parent references
	// can form cycles.
	maxPathDepth = 32
)

type Options struct {
	// Filter and NameContains are case-insensitive substring matches on
	// the reconstructed path and on the name alone.
	Filter       string
	NameContains string

	// All includes live records in the listing; by default only deleted
	// ones are reported.
	All bool

	// VolOffset pins the byte offset of the NTFS volume on the device;
	// when negative, partitions are discovered through the MBR.
	VolOffset int64

	MaxRecords uint64
	BadLimit   int

	// ScanBufferSize sizes the read-ahead buffer for streaming the MFT.
	ScanBufferSize uint64

	// ReportFile overrides the DFXML report path.
	ReportFile string

	DisableLog bool
	LogLevel   slog.Level

	// Quiet suppresses the progress bar and the [INFO] status lines, for
	// machine-readable output modes.
	Quiet bool
}

// Entry is the per-record summary of the scanner.
type Entry struct {
	Record uint64  `json:"record"`
	Name   string  `json:"name"`
	Path   *string `json:"path"`
	IsDir  bool    `json:"is_dir"`
	Status string  `json:"status"`
	Size   uint64  `json:"size"`

	parentRef uint64
	runs      []ntfs.DataRun
}

// Result is what a completed (or cancelled) scan produced.
type Result struct {
	Entries     []Entry
	Geometry    *ntfs.Geometry
	Partition   disk.Partition
	RecordsSeen uint64
	Skipped     uint64
	Extensions  uint64
	TotalData   uint64
	ReportFile  string
}

// nameInfo is the per-record slice of the parent-linkage map used for
// path reconstruction.
type nameInfo struct {
	name   string
	parent uint64
}

// Scan walks the MFT of the NTFS volume on the device at path. The
// context is honored between records; on cancellation the partial result
// is returned.
func Scan(ctx context.Context, path string, opts Options) (*Result, error) {
	dev, err := device.Open(path)
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	partition, geo, err := LocateVolume(dev, opts.VolOffset)
	if err != nil {
		return nil, err
	}

	session := GenSessionID()

	reportFileName := opts.ReportFile
	if reportFileName == "" {
		reportFileName = fmt.Sprintf("report_%s.xml", session)
	}

	outFile, err := os.Create(reportFileName)
	if err != nil {
		return nil, err
	}
	defer outFile.Close()

	reportWriter := dfxml.NewDFXMLWriter(outFile)
	defer reportWriter.Close()

	err = reportWriter.WriteHeader(dfxml.DFXMLHeader{
		XmlOutput: dfxml.XmlOutputVersion,
		Metadata:  dfxml.DefaultMetadata,
		Creator: dfxml.Creator{
			Package:              env.AppName,
			Version:              env.Version,
			ExecutionEnvironment: dfxml.GetExecEnv(),
		},
		Source: dfxml.Source{
			ImageFilename: absPath(path),
			SectorSize:    int(geo.BytesPerSector),
			ImageSize:     dev.Size(),
		},
	})
	if err != nil {
		return nil, err
	}

	var logFilePath string
	if !opts.DisableLog {
		logFilePath = absPath(session + ".log")
	}

	logger, logFile, err := setupLogger(logFilePath, opts.LogLevel)
	if err != nil {
		return nil, err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if geo.OemID != ntfs.OemNTFS {
		logger.Warn("unexpected OEM id in boot sector", "oem", geo.OemID)
	}

	if !opts.Quiet {
		fmt.Println("[INFO] Starting MFT scan...")
		fmt.Printf("[INFO] Source: \t%s\n", absPath(path))
		fmt.Printf("[INFO] Volume offset: \t%d\n", partition.Offset)
		fmt.Printf("[INFO] Cluster size: \t%s\n", fmtutil.FormatBytes(int64(geo.ClusterSize())))
		fmt.Printf("[INFO] MFT record size: \t%s\n", fmtutil.FormatBytes(int64(geo.RecordSize())))
	}

	iterOpts := []ntfs.IteratorOption{}
	if opts.MaxRecords > 0 {
		iterOpts = append(iterOpts, ntfs.WithMaxRecords(opts.MaxRecords))
	}
	if opts.BadLimit > 0 {
		iterOpts = append(iterOpts, ntfs.WithBadLimit(opts.BadLimit))
	}
	if opts.ScanBufferSize > 0 {
		iterOpts = append(iterOpts, ntfs.WithBufferSize(int(opts.ScanBufferSize)))
	}
	it := ntfs.NewIterator(dev, partition.Offset, geo, iterOpts...)

	res := &Result{
		Entries:    []Entry{},
		Geometry:   geo,
		Partition:  partition,
		ReportFile: absPath(reportFileName),
	}
	names := map[uint64]nameInfo{}

	var bar *pbar.ProgressBarState
	if !opts.Quiet {
		bar = pbar.NewProgressBarState()
	}

	start := time.Now()

	cancelled := false
	for it.Next() {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		rec := it.Record()
		res.RecordsSeen++

		if bar != nil {
			bar.RecordsSeen = res.RecordsSeen
			bar.EntriesFound = len(res.Entries)
			bar.Render(false)
		}

		if rec.Name != nil {
			names[rec.Num] = nameInfo{name: rec.Name.Name, parent: rec.Name.ParentRef}
		}

		// Extension records belong to their base record; listing them
		// separately would duplicate content under meaningless names.
		if rec.BaseRef != 0 {
			res.Extensions++
			logger.Debug("skipping extension record", "record", rec.Num, "base", rec.BaseRef)
			continue
		}

		if !opts.All && rec.InUse {
			continue
		}
		if rec.Name == nil && rec.Data == nil {
			continue
		}

		entry := newEntry(rec)
		res.Entries = append(res.Entries, entry)
		res.TotalData += entry.Size

		if err := reportWriter.WriteFileObject(fileObject(geo, partition.Offset, &entry)); err != nil {
			logger.Error("unable to write report entry", "record", rec.Num, "err", err)
		}
	}
	if bar != nil {
		bar.RecordsSeen = res.RecordsSeen
		bar.EntriesFound = len(res.Entries)
		bar.Done()
	}

	res.Skipped = it.Skipped()

	if err := it.Err(); err != nil {
		logger.Error("scan aborted by device error", "err", err)
		return res, err
	}
	if cancelled {
		logger.Warn("scan cancelled", "records", res.RecordsSeen)
	}

	resolvePaths(res.Entries, names)
	res.Entries = filterEntries(res.Entries, opts.Filter, opts.NameContains)

	if !opts.Quiet {
		fmt.Printf("[INFO] Scan completed!\n")
		fmt.Printf("[INFO] Records scanned: \t%d (%d unparseable)\n", res.RecordsSeen, res.Skipped)
		fmt.Printf("[INFO] Entries found: \t%d\n", len(res.Entries))
		fmt.Printf("[INFO] Total data: \t%s\n", fmtutil.FormatBytes(int64(res.TotalData)))
		fmt.Printf("[INFO] Duration: \t%s\n", FormatDurationHMS(time.Since(start)))
		fmt.Printf("[INFO] Report saved to: \t%s\n", res.ReportFile)
		if logFilePath != "" {
			fmt.Printf("[INFO] Detailed scan log: \t%s\n", logFilePath)
		}
	}
	return res, nil
}

// LocateVolume finds the NTFS volume on the device: either at the pinned
// offset, or through MBR partition discovery with a boot-sector probe per
// candidate.
func LocateVolume(dev *device.Device, volOffset int64) (disk.Partition, *ntfs.Geometry, error) {
	if volOffset >= 0 {
		geo, err := probeBootSector(dev, uint64(volOffset))
		if err != nil {
			return disk.Partition{}, nil, err
		}
		return disk.Partition{
			Type:      disk.PartitionTypeNTFS,
			Offset:    uint64(volOffset),
			Size:      dev.Size() - uint64(volOffset),
			BlockSize: uint32(geo.BytesPerSector),
		}, geo, nil
	}

	// A partition image starts with the NTFS boot sector itself, which
	// also carries the 0x55AA trailer an MBR has. Probing for NTFS first
	// avoids misreading boot code as a partition table.
	if geo, err := probeBootSector(dev, 0); err == nil && geo.OemID == ntfs.OemNTFS {
		return disk.Partition{
			Type:      disk.PartitionTypeNTFS,
			Offset:    0,
			Size:      dev.Size(),
			BlockSize: uint32(geo.BytesPerSector),
		}, geo, nil
	}

	partitions, err := disk.FindPartitions(dev, dev.Size())
	if err != nil {
		return disk.Partition{}, nil, err
	}

	var lastErr error
	for _, p := range partitions {
		geo, err := probeBootSector(dev, p.Offset)
		if err != nil {
			lastErr = err
			continue
		}
		p.BlockSize = uint32(geo.BytesPerSector)
		return p, geo, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no partitions found")
	}
	return disk.Partition{}, nil, fmt.Errorf("no NTFS volume found on device: %w", lastErr)
}

func probeBootSector(dev *device.Device, offset uint64) (*ntfs.Geometry, error) {
	sector, err := dev.Read(offset, 512)
	if err != nil {
		return nil, err
	}
	return ntfs.ParseBootSector(sector)
}

func newEntry(rec *ntfs.Record) Entry {
	entry := Entry{
		Record: rec.Num,
		IsDir:  rec.IsDir,
		Status: StatusDeleted,
	}
	if rec.InUse {
		entry.Status = StatusLive
	}
	if rec.Name != nil {
		entry.Name = rec.Name.Name
		entry.parentRef = rec.Name.ParentRef
	}
	if rec.Data != nil {
		entry.Size = rec.Data.Size()
		entry.runs = rec.Data.Runs
	}
	return entry
}

// fileObject translates an entry into its DFXML fileobject, deriving the
// byte runs from the runlist. Sparse extents are emitted as fill runs.
func fileObject(geo *ntfs.Geometry, volOffset uint64, entry *Entry) dfxml.FileObject {
	alloc := 0
	if entry.Status == StatusLive {
		alloc = 1
	}

	var runs []dfxml.ByteRun
	clusterSize := geo.ClusterSize()

	var fileOff uint64
	for _, run := range entry.runs {
		byteLen := run.Length * clusterSize
		br := dfxml.ByteRun{
			Offset: fileOff,
			Length: byteLen,
		}
		if run.Sparse || run.LCN <= 0 {
			br.Fill = "0"
		} else {
			br.ImgOffset = volOffset + uint64(geo.ClusterOffset(run.LCN))
		}
		runs = append(runs, br)
		fileOff += byteLen
	}

	return dfxml.FileObject{
		Filename: entry.Name,
		FileSize: entry.Size,
		Inode:    entry.Record,
		Alloc:    alloc,
		ByteRuns: dfxml.ByteRuns{Runs: runs},
	}
}

// resolvePaths reconstructs each entry's path by chaining parent
// references through the collected name map. The walk is best-effort: it
// stops at the volume root, at the first unknown parent, on a cycle, or
// at the depth limit.
func resolvePaths(entries []Entry, names map[uint64]nameInfo) {
	for i := range entries {
		if entries[i].Name == "" {
			continue
		}

		segments := []string{entries[i].Name}
		visited := map[uint64]bool{entries[i].Record: true}

		parent := entries[i].parentRef
		for depth := 0; depth < maxPathDepth; depth++ {
			if visited[parent] {
				break
			}
			visited[parent] = true

			info, ok := names[parent]
			if !ok {
				break
			}
			segments = append([]string{info.name}, segments...)

			if parent == ntfs.RootRecord {
				break
			}
			parent = info.parent
		}

		// Names join with "/" regardless of the host separator.
		path := strings.Join(segments, "/")
		entries[i].Path = &path
	}
}

func filterEntries(entries []Entry, pathFilter, nameContains string) []Entry {
	if pathFilter == "" && nameContains == "" {
		return entries
	}

	pf := strings.ToLower(pathFilter)
	nc := strings.ToLower(nameContains)

	filtered := entries[:0]
	for _, e := range entries {
		if nc != "" && !strings.Contains(strings.ToLower(e.Name), nc) {
			continue
		}
		if pf != "" {
			target := e.Name
			if e.Path != nil {
				target = *e.Path
			}
			if !strings.Contains(strings.ToLower(target), pf) {
				continue
			}
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// GenSessionID creates a unique name for a scan session, in the form
// "scan_YYYYMMDD_HHMMSS".
func GenSessionID() string {
	return "scan_" + time.Now().Format("20060102_150405")
}

// FormatDurationHMS formats a duration as HH:MM:SS, with a sub-second
// fast path.
func FormatDurationHMS(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	totalSeconds := int64(d.Seconds())

	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
