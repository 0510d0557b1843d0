package report

import (
	"os"
	"path/filepath"

	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
)

// WriteFile writes report output atomically: the content lands in a
// temp file in the target directory and is renamed into place, so a
// failed write never leaves a half-written report behind.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return apperrors.WriteFailed(path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.WriteFailed(path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.WriteFailed(path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.WriteFailed(path, err)
	}
	return nil
}
