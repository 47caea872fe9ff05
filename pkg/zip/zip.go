package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// Entry is a file on disk to include in an archive under Name.
type Entry struct {
	Name string
	Path string
}

// Bundle writes entries into a zip archive on w in order.
func Bundle(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		if err := addFile(zw, e); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, e Entry) error {
	f, err := os.Open(e.Path)
	if err != nil {
		return fmt.Errorf("zip: open %s: %w", e.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("zip: stat %s: %w", e.Path, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip: header %s: %w", e.Path, err)
	}
	header.Name = e.Name
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("zip: create %s: %w", e.Name, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("zip: write %s: %w", e.Name, err)
	}
	return nil
}
