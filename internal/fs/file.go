package fs

import (
	"io"
	"os"
)

// File is the minimal capability the engine needs from a backing store:
// random reads over a linear byte space, plus a Stat to learn its size.
type File interface {
	io.ReadCloser
	io.ReaderAt
	Stat() (os.FileInfo, error)
}
