// Package filesys collects the small filesystem helpers the storage engine
// needs: creating the data directory, checking for leftovers from an
// interrupted merge, and globbing for segment files during recovery.
package filesys

import (
	"errors"
	"os"
	"path/filepath"
)

var (
	ErrIsNotDir = errors.New("path isn't a directory")
)

// CreateDir creates a directory at the given path with the given
// permissions, including any missing parents. When force is true an already
// existing directory is accepted; when false it is an error. An existing
// regular file at the path is always an error.
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}
	if !force && !os.IsNotExist(err) {
		if err == nil {
			return os.ErrExist
		}
		return err
	}
	return os.MkdirAll(dirPath, permission)
}

// ReadDir returns the paths matching the given glob pattern, such as
// "datadir/segment_*.seg".
func ReadDir(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// Exists reports whether a file or directory exists at the given path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// DeleteFile removes the file at the given path.
func DeleteFile(path string) error {
	return os.Remove(path)
}
