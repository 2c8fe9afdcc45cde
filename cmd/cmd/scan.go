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
package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/exhume/exhume/internal/disk"
	"github.com/exhume/exhume/internal/scan"
	"github.com/exhume/exhume/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <device>",
		Short: "Scan the MFT of an NTFS image or volume",
		Long: `The 'scan' command walks every Master File Table record of an NTFS volume,
listing deleted files with their reconstructed paths, sizes and record
numbers. Records listed here can be recovered with 'export'. A DFXML
report of the findings is written alongside, for use with 'mount'.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunScan,
	}

	cmd.Flags().StringP("filter", "f", "", "only list entries whose path contains the given substring")
	cmd.Flags().String("name-contains", "", "only list entries whose name contains the given substring")
	cmd.Flags().Bool("all", false, "list live records too, not only deleted ones")
	cmd.Flags().Bool("json", false, "print the entries as a JSON array")
	cmd.Flags().Int64("offset", -1, "byte offset of the NTFS volume (default: discover via MBR)")
	cmd.Flags().Uint64("max-records", 0, "stop after visiting this many record slots")
	cmd.Flags().Int("bad-limit", 0, "consecutive unparseable records tolerated before stopping")
	cmd.Flags().String("scan-buffer-size", "1MB", "the size of the MFT read-ahead buffer")
	cmd.Flags().StringP("output", "o", "", "path of the DFXML scan report")
	cmd.Flags().Bool("no-log", false, "disable the per-session log file")
	cmd.Flags().String("log-level", "INFO", "minimum level for the session log (DEBUG, INFO, WARN, ERROR)")

	return cmd
}

func RunScan(cmd *cobra.Command, args []string) error {
	path := disk.NormalizeVolumePath(args[0])

	filter, _ := cmd.Flags().GetString("filter")
	nameContains, _ := cmd.Flags().GetString("name-contains")
	all, _ := cmd.Flags().GetBool("all")
	asJSON, _ := cmd.Flags().GetBool("json")
	offset, _ := cmd.Flags().GetInt64("offset")
	maxRecords, _ := cmd.Flags().GetUint64("max-records")
	badLimit, _ := cmd.Flags().GetInt("bad-limit")
	output, _ := cmd.Flags().GetString("output")
	noLog, _ := cmd.Flags().GetBool("no-log")
	logLevel, _ := cmd.Flags().GetString("log-level")

	bufSizeStr, _ := cmd.Flags().GetString("scan-buffer-size")
	bufSize, err := format.ParseBytes(bufSizeStr)
	if err != nil {
		return fmt.Errorf("invalid --scan-buffer-size: %w", err)
	}

	res, err := scan.Scan(cmd.Context(), path, scan.Options{
		Filter:         filter,
		NameContains:   nameContains,
		All:            all,
		VolOffset:      offset,
		MaxRecords:     maxRecords,
		BadLimit:       badLimit,
		ScanBufferSize: bufSize,
		ReportFile:     output,
		DisableLog:     noLog,
		LogLevel:       parseSlogLevel(logLevel),
		Quiet:          asJSON,
	})
	if err != nil {
		return err
	}

	if asJSON {
		out, err := json.MarshalIndent(res.Entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECORD\tSTATUS\tSIZE\tNAME\tPATH")
	for _, e := range res.Entries {
		path := ""
		if e.Path != nil {
			path = *e.Path
		}
		name := e.Name
		if e.IsDir {
			name += "/"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.Record, e.Status, humanize.IBytes(e.Size), name, path)
	}
	return w.Flush()
}

func parseSlogLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}
