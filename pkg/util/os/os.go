package os

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// EnsureDir makes sure dir exists and is a directory, creating it when
// missing. With empty set, an existing non-empty directory is an error.
// The returned bool reports whether the directory was created.
func EnsureDir(dir string, empty bool) (bool, error) {
	finfo, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", dir, err)
	}

	if !finfo.IsDir() {
		return false, fmt.Errorf("%s is not a directory", dir)
	}

	if !empty {
		return false, nil
	}

	isEmpty, err := IsDirEmpty(dir)
	if err != nil {
		return false, fmt.Errorf("failed to check if directory %s is empty: %w", dir, err)
	}
	if !isEmpty {
		return false, fmt.Errorf("directory %s is not empty", dir)
	}
	return false, nil
}

// IsDirEmpty reports whether the directory at path has no entries.
func IsDirEmpty(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}
