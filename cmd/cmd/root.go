package cmd

import (
	"github.com/exhume/exhume/internal/env"
	"github.com/spf13/cobra"
)

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   env.AppName,
		Short: env.AppName + " - NTFS deleted file recovery tool",
	}

	rootCmd.AddCommand(DefineScanCommand())
	rootCmd.AddCommand(DefineExportCommand())
	rootCmd.AddCommand(DefineInfoCommand())
	rootCmd.AddCommand(DefineMountCommand())
	rootCmd.AddCommand(DefineFormatsCommand())

	return rootCmd.Execute()
}
