package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/webstage/webstage/internal/contentroot"
	"github.com/webstage/webstage/internal/fingerprint"
	"github.com/webstage/webstage/internal/fstree"
)

// ErrNameTaken is returned by Ingest when the directory-safe form of the
// requested name is already occupied. The registry does not disambiguate;
// callers retry with a modified name (the CLI appends a timestamp).
var ErrNameTaken = errors.New("package name already in use")

const extractedDirName = "content"

// Registry is the durable catalog of known packages. Each package owns one
// subdirectory of the registry root holding its manifest, its retained
// original archive, and its extracted content.
type Registry struct {
	root    string
	locator *contentroot.Locator
	now     func() time.Time
}

// NewRegistry returns a registry rooted at root. A nil locator means the
// standard content layout.
func NewRegistry(root string, locator *contentroot.Locator) *Registry {
	if locator == nil {
		locator = contentroot.NewLocator()
	}
	return &Registry{
		root:    root,
		locator: locator,
		now:     time.Now,
	}
}

// Ingest extracts the archive into registry-owned storage, locates its
// content root, fingerprints it, and persists the manifest. The original
// archive is retained alongside the extraction so activation can redeploy
// the raw artifact.
func (r *Registry) Ingest(name, archivePath string) (*Package, error) {
	return r.ingest(name, archivePath, false)
}

// EnsureBuiltIn ingests the application-shipped archive on first run. When a
// loadable package already occupies the name's directory, the existing
// package is returned untouched.
func (r *Registry) EnsureBuiltIn(name, archivePath string) (*Package, error) {
	pkgDir := filepath.Join(r.root, SafeName(name))
	pkg, err := loadPackage(pkgDir)
	if err == nil {
		return pkg, nil
	}
	if _, serr := os.Stat(pkgDir); serr == nil {
		// The directory is occupied by something unloadable; re-ingesting
		// would mean repairing it, which the registry does not do.
		return nil, fmt.Errorf("built-in package dir %s is not loadable: %w", pkgDir, err)
	}
	return r.ingest(name, archivePath, true)
}

func (r *Registry) ingest(name, archivePath string, builtIn bool) (*Package, error) {
	dirName := SafeName(name)
	if dirName == "" {
		return nil, fmt.Errorf("package name %q has no directory-safe form", name)
	}
	pkgDir := filepath.Join(r.root, dirName)
	if _, err := os.Stat(pkgDir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	log.Info().Msgf("Ingesting package %s from %s", name, archivePath)

	if err := os.MkdirAll(pkgDir, 0755); err != nil {
		return nil, err
	}

	pkg, err := r.buildPackage(name, archivePath, pkgDir, builtIn)
	if err != nil {
		// A half-ingested directory would shadow the name forever; remove it.
		if rerr := os.RemoveAll(pkgDir); rerr != nil {
			log.Error().Err(rerr).Msgf("Failed cleaning up package dir %s", pkgDir)
		}
		return nil, err
	}

	log.Info().Msgf("Ingested package %s with fingerprint %s", pkg.Name, pkg.Fingerprint)
	return pkg, nil
}

func (r *Registry) buildPackage(name, archivePath, pkgDir string, builtIn bool) (*Package, error) {
	if err := fstree.CopyFile(archivePath, filepath.Join(pkgDir, ArchiveName)); err != nil {
		return nil, fmt.Errorf("retaining archive: %w", err)
	}

	extractedDir := filepath.Join(pkgDir, extractedDirName)
	if err := extractZip(archivePath, extractedDir); err != nil {
		return nil, fmt.Errorf("extracting archive: %w", err)
	}

	root, err := r.locator.Locate(extractedDir)
	if err != nil {
		return nil, err
	}

	digest, err := fingerprint.Tree(root)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting content root: %w", err)
	}

	pkg := &Package{
		Name:            name,
		ContentRootPath: root,
		Fingerprint:     digest,
		IsBuiltIn:       builtIn,
		SavedAt:         r.now().UTC(),
		PackageDir:      pkgDir,
	}
	if err := writeManifest(pkgDir, pkg); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return pkg, nil
}

// LoadAll scans the registry root and returns every loadable package, sorted
// by name. Directories without a manifest, with an unparsable manifest, or
// whose content root has vanished are skipped; a partially corrupt registry
// must not block startup.
func (r *Registry) LoadAll() []*Package {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msgf("Failed listing registry root %s", r.root)
		}
		return nil
	}

	var pkgs []*Package
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pkgDir := filepath.Join(r.root, entry.Name())
		pkg, err := loadPackage(pkgDir)
		if err != nil {
			log.Debug().Err(err).Msgf("Skipping package dir %s", pkgDir)
			continue
		}
		pkgs = append(pkgs, pkg)
	}

	sort.Slice(pkgs, func(i, j int) bool {
		return strings.ToLower(pkgs[i].Name) < strings.ToLower(pkgs[j].Name)
	})
	return pkgs
}

// Verify recomputes the fingerprint of pkg's content root from disk. Load
// trusts the stored manifest; callers that need tamper detection compare
// this against pkg.Fingerprint.
func (r *Registry) Verify(pkg *Package) (string, error) {
	return fingerprint.Tree(pkg.ContentRootPath)
}

func loadPackage(pkgDir string) (*Package, error) {
	pkg, err := readManifest(pkgDir)
	if err != nil {
		return nil, err
	}
	if pkg.Name == "" || pkg.ContentRootPath == "" || pkg.Fingerprint == "" {
		return nil, fmt.Errorf("manifest in %s is incomplete", pkgDir)
	}
	if _, err := os.Stat(pkg.ContentRootPath); err != nil {
		return nil, fmt.Errorf("content root %s is gone: %w", pkg.ContentRootPath, err)
	}
	return pkg, nil
}

// SafeName reduces name to its directory-safe form: letters, digits, dots,
// dashes and underscores survive, everything else becomes an underscore.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
