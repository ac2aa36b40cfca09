package clip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// writeArchive bundles the given files into a single zip at dst. Entries
// are stored under their base names.
func writeArchive(dst string, files []string) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("clip: create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, path := range files {
		if err := addArchiveEntry(zw, path); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("clip: finalize archive: %w", err)
	}
	return nil
}

func addArchiveEntry(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("clip: archive open %q: %w", path, err)
	}
	defer src.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("clip: archive entry %q: %w", path, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("clip: archive write %q: %w", path, err)
	}
	return nil
}
