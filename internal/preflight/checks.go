package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// Reasons a directory check fails. Result.Err wraps one of them.
var (
	ErrMissing      = errors.New("does not exist")
	ErrNotDirectory = errors.New("is not a directory")
	ErrNoAccess     = errors.New("not readable and writable")
)

// CheckDirectoryAccess verifies that path is a directory where run artifacts
// and logs can be listed, read and written.
func CheckDirectoryAccess(name, path string) Result {
	result := Result{Name: name, Path: path}
	if err := directoryAccess(path); err != nil {
		result.Err = err
		result.Detail = fmt.Sprintf("%s: %v", path, err)
		return result
	}
	result.Passed = true
	result.Detail = path + " is writable"
	return result
}

func directoryAccess(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrMissing
	case err != nil:
		return fmt.Errorf("stat: %w", err)
	case !info.IsDir():
		return ErrNotDirectory
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("%w: %v", ErrNoAccess, err)
	}
	return nil
}
