package fileutil

import (
	"os"
	"path/filepath"
)

// EnsureDir check if a given directory plus the following path exist, then create one if not
func EnsureDir(dir string, path ...string) *FileError {
	targetPath := []string{dir}
	targetPath = append(targetPath, path...)

	target := filepath.Join(targetPath...)
	if err := os.MkdirAll(target, 0755); err != nil {
		return &FileError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Err:       err,
		}
	}
	return nil
}

// WriteFileReplacing writes data to a temporary file next to path and
// renames it over path, so readers never see a partial file.
func WriteFileReplacing(path string, data []byte) *FileError {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return &FileError{Message: err.Error(), Cause: ErrCausePathError, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &FileError{Message: err.Error(), Cause: ErrCauseWriteError, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &FileError{Message: err.Error(), Cause: ErrCauseWriteError, Err: err}
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return &FileError{Message: err.Error(), Cause: ErrCauseWriteError, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &FileError{Message: err.Error(), Cause: ErrCauseWriteError, Err: err}
	}
	return nil
}
