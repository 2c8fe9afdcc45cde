package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/exhume/exhume/internal/device"
	"github.com/exhume/exhume/internal/disk"
	"github.com/exhume/exhume/internal/ntfs"
	"github.com/exhume/exhume/internal/scan"
	"github.com/spf13/cobra"
)

func DefineInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <device>",
		Short: "Print the NTFS boot sector geometry of an image or volume",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunInfo,
	}

	cmd.Flags().Int64("offset", -1, "byte offset of the NTFS volume (default: discover via MBR)")
	return cmd
}

func RunInfo(cmd *cobra.Command, args []string) error {
	path := disk.NormalizeVolumePath(args[0])
	offset, _ := cmd.Flags().GetInt64("offset")

	dev, err := device.Open(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	partition, geo, err := scan.LocateVolume(dev, offset)
	if err != nil {
		return err
	}

	oemNote := ""
	if geo.OemID != ntfs.OemNTFS {
		oemNote = " (unexpected)"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "OEM id:\t%q%s\n", geo.OemID, oemNote)
	fmt.Fprintf(w, "Volume offset:\t%d\n", partition.Offset)
	fmt.Fprintf(w, "Bytes per sector:\t%d\n", geo.BytesPerSector)
	fmt.Fprintf(w, "Sectors per cluster:\t%d\n", geo.SectorsPerCluster)
	fmt.Fprintf(w, "Cluster size:\t%s\n", humanize.IBytes(geo.ClusterSize()))
	fmt.Fprintf(w, "Total sectors:\t%d\n", geo.TotalSectors)
	fmt.Fprintf(w, "Volume size:\t%s\n", humanize.IBytes(geo.VolumeSize()))
	fmt.Fprintf(w, "MFT cluster:\t%d\n", geo.MFTCluster)
	fmt.Fprintf(w, "MFT mirror cluster:\t%d\n", geo.MFTMirrCluster)
	fmt.Fprintf(w, "MFT record size:\t%s\n", humanize.IBytes(geo.RecordSize()))
	fmt.Fprintf(w, "Index buffer size:\t%s\n", humanize.IBytes(geo.IndexBufferSize()))
	return w.Flush()
}
