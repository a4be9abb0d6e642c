package registry

import (
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	// ManifestName is the per-package manifest file inside a package directory.
	ManifestName = "manifest.yml"
	// ArchiveName is the retained copy of the original archive inside a
	// package directory. The same name is used to stamp the archive into an
	// activated environment, so external tooling can identify the live
	// package by it.
	ArchiveName = "package.zip"
)

// Package is a named, content-addressed, deployable web content tree tracked
// by the registry. Persisted fields are never mutated after ingestion; the
// stored fingerprint is trusted on load (see Registry.Verify for explicit
// re-checking).
type Package struct {
	Name            string    `yaml:"name"`
	ContentRootPath string    `yaml:"content_root_path"`
	Fingerprint     string    `yaml:"fingerprint"`
	IsBuiltIn       bool      `yaml:"is_built_in"`
	SavedAt         time.Time `yaml:"saved_at"`

	// PackageDir is the registry-owned directory holding the manifest, the
	// retained archive, and the extracted content. Derived on load, not
	// persisted.
	PackageDir string `yaml:"-"`
}

// ArchivePath returns the retained original archive, or "" when the package
// directory no longer holds one.
func (p *Package) ArchivePath() string {
	path := filepath.Join(p.PackageDir, ArchiveName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func writeManifest(pkgDir string, pkg *Package) error {
	raw, err := yaml.Marshal(pkg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(pkgDir, ManifestName), raw, 0644)
}

func readManifest(pkgDir string) (*Package, error) {
	raw, err := os.ReadFile(filepath.Join(pkgDir, ManifestName))
	if err != nil {
		return nil, err
	}
	var pkg Package
	if err := yaml.Unmarshal(raw, &pkg); err != nil {
		return nil, err
	}
	pkg.PackageDir = pkgDir
	return &pkg, nil
}
