//go:build !linux

package fuse

import (
	"fmt"
)

func Mount(mountpoint string, entries []FileEntry) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}
