package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Environment is a discovered installation: the matched directory plus the
// derived path where content must live to be active for it. Environments are
// rebuilt on every scan and never persisted.
type Environment struct {
	// BasePath is the installation directory matched by the scan.
	BasePath string
	// ContentPath is the deployment target, always a descendant of BasePath.
	// It is derived, not guaranteed to exist yet.
	ContentPath string
}

// Name is the display label and backup key for the environment.
func (e Environment) Name() string {
	return filepath.Base(e.BasePath)
}

// DefaultExcluded are directory names that never hold an installation.
// Matched case-insensitively against immediate children of the scan root.
var DefaultExcluded = []string{
	"Windows",
	"Program Files",
	"Program Files (x86)",
	"ProgramData",
	"PerfLogs",
	"Recovery",
	"System Volume Information",
	"$Recycle.Bin",
	"Documents and Settings",
	"Users",
}

// Scanner discovers environments under a filesystem root. The content-path
// segments and the exclusion predicate are injectable so the scan is
// independent of any particular deployment convention.
type Scanner struct {
	// ContentSegments is the relative path from an installation directory
	// to its deployment target.
	ContentSegments []string
	// Exclude reports whether a candidate directory name should be skipped.
	Exclude func(name string) bool
}

func NewScanner() *Scanner {
	return &Scanner{
		ContentSegments: []string{"webserver", "srm2", "EN"},
		Exclude:         ExcludeNames(DefaultExcluded),
	}
}

// ExcludeNames builds an exclusion predicate from a fixed denylist,
// matching case-insensitively on the exact name.
func ExcludeNames(names []string) func(string) bool {
	return func(name string) bool {
		for _, n := range names {
			if strings.EqualFold(n, name) {
				return true
			}
		}
		return false
	}
}

// Discover lists the environments under root, sorted by base path with a
// case-insensitive ordinal comparison for stable listings. A candidate
// qualifies when its derived content path exists, or when the content path's
// parent (the installation scaffold one level up) exists — that way an
// installation whose content has not been deployed yet is still offered,
// while unrelated directories are not. Discovery is best-effort: a root that
// cannot be listed yields an empty result.
func (s *Scanner) Discover(root string) []Environment {
	entries, err := os.ReadDir(root)
	if err != nil {
		log.Warn().Err(err).Msgf("Failed scanning %s for environments", root)
		return nil
	}

	var envs []Environment
	for _, entry := range entries {
		if !entry.IsDir() || s.Exclude(entry.Name()) {
			continue
		}
		base := filepath.Join(root, entry.Name())
		content := filepath.Join(append([]string{base}, s.ContentSegments...)...)

		if !dirExists(content) && !dirExists(filepath.Dir(content)) {
			continue
		}
		envs = append(envs, Environment{BasePath: base, ContentPath: content})
	}

	sort.Slice(envs, func(i, j int) bool {
		return strings.ToLower(envs[i].BasePath) < strings.ToLower(envs[j].BasePath)
	})
	return envs
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
