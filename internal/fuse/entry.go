package fuse

import "io"

// FileEntry names one recovered file and knows how to open its content
// stream. Open is called lazily, once per reader.
type FileEntry struct {
	Name string
	Size uint64
	Open func() (io.ReadSeeker, error)
}
