package recorder

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/looxidlabs/link-band-core/internal/errs"
)

// Export packages a finished session directory into a single zip file
// alongside it (spec.md §4.K export supplement) and returns its path.
func Export(sessionDir string) (string, error) {
	info, err := os.Stat(sessionDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %v", errs.ErrDirectoryCreateFailed, err)
	}

	zipPath := sessionDir + ".zip"
	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrWriteFailed, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	walkErr := filepath.Walk(sessionDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(sessionDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(rel)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if walkErr != nil {
		zw.Close()
		return "", fmt.Errorf("%w: %v", errs.ErrWriteFailed, walkErr)
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrWriteFailed, err)
	}
	return zipPath, nil
}
