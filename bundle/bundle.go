// Package bundle writes zip archives whose bytes depend only on their
// inputs: the caller supplies the exact entry order (manifest order), every
// header carries a zeroed timestamp, and deflate runs at one fixed level.
// Packaging the same tree twice must produce byte-identical bundles.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
)

// Write archives the named files (forward-slash paths relative to root, in
// final entry order) into a zip at bundlePath. The archive is assembled in a
// temp file and renamed into place on success only.
func Write(bundlePath string, root string, files []string) error {
	dir := filepath.Dir(bundlePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(bundlePath)+".tmp-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	err = writeEntries(tmp, root, files)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, bundlePath); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func writeEntries(w io.Writer, root string, files []string) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	for _, rel := range files {
		hdr := &zip.FileHeader{
			Name:   rel,
			Method: zip.Deflate,
		}
		entry, err := zw.CreateHeader(hdr)
		if err != nil {
			zw.Close()
			return err
		}
		f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			zw.Close()
			return fmt.Errorf("failed to archive %s: %w", rel, err)
		}
		_, err = io.Copy(entry, f)
		f.Close()
		if err != nil {
			zw.Close()
			return fmt.Errorf("failed to archive %s: %w", rel, err)
		}
	}
	return zw.Close()
}
