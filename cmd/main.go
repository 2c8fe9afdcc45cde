package main

import (
	"fmt"
	"os"

	"github.com/exhume/exhume/cmd/cmd"
	"github.com/exhume/exhume/internal/env"
)

func main() {
	if len(os.Args) <= 1 {
		PrintLogo()
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func PrintLogo() {
	fmt.Println("           _                          ")
	fmt.Println("  _____  _| |__  _   _ _ __ ___   ___ ")
	fmt.Println(" / _ \\ \\/ / '_ \\| | | | '_ ` _ \\ / _ \\")
	fmt.Println("|  __/>  <| | | | |_| | | | | | |  __/")
	fmt.Println(" \\___/_/\\_\\_| |_|\\__,_|_| |_| |_|\\___|")
	fmt.Println()
	fmt.Println("NTFS deleted file recovery tool")
	fmt.Println()
	fmt.Printf("Version:    %s\n", env.Version)
	fmt.Printf("Commit:     %s\n", env.CommitHash)
	fmt.Printf("Build Time: %s\n", env.BuildTime)
	fmt.Println()
}
