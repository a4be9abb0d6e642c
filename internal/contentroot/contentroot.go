package contentroot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no heuristic recognizes a content root
// anywhere in the extracted archive.
var ErrNotFound = errors.New("no recognizable content root in archive")

// Locator finds the deployable content directory inside an extracted
// archive. Archives arrive in many shapes: some carry the full nested server
// layout, some are the bare content, some wrap everything in one extra
// folder. The heuristics run in priority order and the first match wins;
// deeper, more specific matches are stronger signals than top-level marker
// sniffing, so they are tried first.
type Locator struct {
	// DeepSuffix is the fully-qualified deployment layout, matched against
	// the tail of a directory path, e.g. webserver/srm2/EN.
	DeepSuffix []string
	// ShallowSuffix is a shorter but still recognizable layout, e.g. srm2/EN.
	ShallowSuffix []string
	// MarkerDirs are subdirectory names that identify a directory as content.
	MarkerDirs []string
	// MarkerFiles are top-level file names that identify a directory as content.
	MarkerFiles []string
}

// NewLocator returns a Locator configured for the standard web server
// content layout.
func NewLocator() *Locator {
	return &Locator{
		DeepSuffix:    []string{"webserver", "srm2", "EN"},
		ShallowSuffix: []string{"srm2", "EN"},
		MarkerDirs:    []string{"frames", "editor"},
		MarkerFiles:   []string{"index.html", "srm.js"},
	}
}

// Locate returns the content root under extracted, or ErrNotFound wrapped
// with layout guidance for the operator.
func (l *Locator) Locate(extracted string) (string, error) {
	heuristics := []struct {
		name   string
		locate func(string) (string, bool, error)
	}{
		{"deep suffix", l.bySuffix(l.DeepSuffix)},
		{"shallow suffix", l.bySuffix(l.ShallowSuffix)},
		{"markers at root", l.byMarkers},
		{"markers in single wrapper dir", l.byWrappedMarkers},
	}

	for _, h := range heuristics {
		path, ok, err := h.locate(extracted)
		if err != nil {
			return "", err
		}
		if ok {
			log.Debug().Msgf("Located content root via %s heuristic: %s", h.name, path)
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: expected a directory ending in %s or %s, or a tree containing one of %s/ or one of the files %s at its top level",
		ErrNotFound,
		strings.Join(l.DeepSuffix, "/"), strings.Join(l.ShallowSuffix, "/"),
		strings.Join(l.MarkerDirs, "/, "), strings.Join(l.MarkerFiles, ", "))
}

// bySuffix searches the whole subtree for a directory whose path ends with
// the given segments, compared case-insensitively.
func (l *Locator) bySuffix(suffix []string) func(string) (string, bool, error) {
	return func(extracted string) (string, bool, error) {
		if len(suffix) == 0 {
			return "", false, nil
		}
		var found string
		err := filepath.WalkDir(extracted, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() || found != "" {
				return nil
			}
			if hasSuffix(path, suffix) {
				found = path
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			return "", false, err
		}
		return found, found != "", nil
	}
}

// byMarkers treats dir itself as the content root when it directly contains
// a known marker subdirectory or file.
func (l *Locator) byMarkers(dir string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() && containsFold(l.MarkerDirs, name) {
			return dir, true, nil
		}
		if !entry.IsDir() && containsFold(l.MarkerFiles, name) {
			return dir, true, nil
		}
	}
	return "", false, nil
}

// byWrappedMarkers handles archives wrapped in one extra enclosing folder:
// when the root holds exactly one subdirectory and nothing else, the marker
// check recurses one level into it.
func (l *Locator) byWrappedMarkers(dir string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", false, nil
	}
	return l.byMarkers(filepath.Join(dir, entries[0].Name()))
}

func hasSuffix(path string, suffix []string) bool {
	segments := strings.Split(filepath.ToSlash(path), "/")
	if len(segments) < len(suffix) {
		return false
	}
	tail := segments[len(segments)-len(suffix):]
	for i, want := range suffix {
		if !strings.EqualFold(tail[i], want) {
			return false
		}
	}
	return true
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
