package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Missing is the sentinel returned for a path that does not exist. Status
// displays render it directly instead of special-casing an error.
const Missing = "missing"

// Tree computes a SHA-256 digest over every regular file under root. The
// digest depends only on the relative paths and byte contents of the files,
// never on enumeration order or the absolute location of root, so two
// byte-identical trees fingerprint identically on any filesystem. Empty
// directories do not contribute.
func Tree(root string) (string, error) {
	return TreeIgnoring(root)
}

// TreeIgnoring is Tree with top-level file names excluded from the digest.
// Activation stamps the original archive into a deployed content path, so
// comparing a live environment against a package's fingerprint requires
// skipping that marker file. Names match case-insensitively.
func TreeIgnoring(root string, ignore ...string) (string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return Missing, nil
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ignored(rel, ignore) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return "", err
	}

	// Case-insensitive ordinal order, so the result is stable across
	// filesystems with different enumeration behavior.
	sort.Slice(files, func(i, j int) bool {
		a, b := strings.ToLower(files[i]), strings.ToLower(files[j])
		if a != b {
			return a < b
		}
		return files[i] < files[j]
	})

	hasher := sha256.New()
	for _, rel := range files {
		hasher.Write([]byte(rel))
		if err := hashFile(hasher, filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func ignored(rel string, ignore []string) bool {
	if strings.Contains(rel, "/") {
		return false
	}
	for _, name := range ignore {
		if strings.EqualFold(rel, name) {
			return true
		}
	}
	return false
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
