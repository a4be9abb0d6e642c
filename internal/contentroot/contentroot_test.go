package contentroot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webstage/webstage/internal/contentroot"
)

func mkdirs(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(rel)), 0755))
	}
}

func touch(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestLocateDeepSuffix(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "some/wrapper/webserver/srm2/EN/index.html")

	got, err := contentroot.NewLocator().Locate(root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "some", "wrapper", "webserver", "srm2", "EN"), got)
}

func TestLocateShallowSuffix(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "stuff/srm2/EN")

	got, err := contentroot.NewLocator().Locate(root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "stuff", "srm2", "EN"), got)
}

func TestDeepSuffixBeatsRootMarkers(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "index.html")
	mkdirs(t, root, "webserver/srm2/EN")

	got, err := contentroot.NewLocator().Locate(root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "webserver", "srm2", "EN"), got)
}

func TestLocateMarkersAtRoot(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "index.html")
	touch(t, root, "readme.txt")

	got, err := contentroot.NewLocator().Locate(root)
	require.NoError(t, err)
	require.Equal(t, root, got)
}

func TestLocateMarkerDirAtRoot(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "frames")

	got, err := contentroot.NewLocator().Locate(root)
	require.NoError(t, err)
	require.Equal(t, root, got)
}

func TestLocateSingleWrapperDir(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "pkg/frames")

	got, err := contentroot.NewLocator().Locate(root)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "pkg"), got)
}

func TestWrapperCheckRequiresLoneDirectory(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "pkg/frames")
	touch(t, root, "stray.txt")

	_, err := contentroot.NewLocator().Locate(root)
	require.ErrorIs(t, err, contentroot.ErrNotFound)
}

func TestLocateNotFound(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "docs/readme.txt")

	_, err := contentroot.NewLocator().Locate(root)
	require.ErrorIs(t, err, contentroot.ErrNotFound)
	require.Contains(t, err.Error(), "webserver/srm2/EN")
}
