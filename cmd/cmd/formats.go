package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/exhume/exhume/internal/carve"
	"github.com/spf13/cobra"
)

func DefineFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the file signatures known to the carving registry",
		Long: `The 'formats' command displays the file formats the signature registry
knows about, with the magic bytes used for detection. Carving itself is
not implemented yet; recovery goes through the MFT.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         RunFormats,
	}
}

func RunFormats(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESC\tSIGNATURES")

	for _, sig := range carve.Signatures() {
		signatures := make([]string, len(sig.Magic))
		for i, magic := range sig.Magic {
			signatures[i] = hex.EncodeToString(magic)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n",
			sig.Ext,
			sig.Description,
			strings.Join(signatures, ","),
		)
	}
	return w.Flush()
}
