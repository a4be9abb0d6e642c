package registry

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/webstage/webstage/util"
)

// extractZip extracts the archive at zipPath into destPath, creating
// destPath if needed. Entries that would escape destPath are rejected.
func extractZip(zipPath, destPath string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer util.Close(r)

	if err := os.MkdirAll(destPath, 0755); err != nil {
		return err
	}

	for _, f := range r.File {
		target := filepath.Join(destPath, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(destPath)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes extraction dir: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := extractZipFile(f, target); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	// Close here rather than defer so the copy error does not mask a
	// short write surfaced on close.
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
