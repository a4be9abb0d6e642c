package discovery_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webstage/webstage/internal/discovery"
)

func mkdirs(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(rel)), 0755))
	}
}

func TestDiscoverMatchesScaffoldAndSkipsSystemDirs(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"Target_A/webserver/srm2/EN",
		"Windows/webserver/srm2/EN",
		"Unrelated",
	)

	envs := discovery.NewScanner().Discover(root)
	require.Len(t, envs, 1)
	require.Equal(t, filepath.Join(root, "Target_A"), envs[0].BasePath)
	require.Equal(t, filepath.Join(root, "Target_A", "webserver", "srm2", "EN"), envs[0].ContentPath)
	require.Equal(t, "Target_A", envs[0].Name())
}

func TestDiscoverAcceptsUndeployedScaffold(t *testing.T) {
	root := t.TempDir()
	// Scaffold exists but the EN content dir has not been deployed yet.
	mkdirs(t, root, "Target_B/webserver/srm2")

	envs := discovery.NewScanner().Discover(root)
	require.Len(t, envs, 1)
	require.Equal(t, filepath.Join(root, "Target_B", "webserver", "srm2", "EN"), envs[0].ContentPath)
}

func TestDiscoverRejectsShapelessDirs(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "JustFiles/docs", "Target_C/webserver")

	require.Empty(t, discovery.NewScanner().Discover(root))
}

func TestDiscoverSortsCaseInsensitively(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"beta/webserver/srm2/EN",
		"Alpha/webserver/srm2/EN",
		"gamma/webserver/srm2/EN",
	)

	envs := discovery.NewScanner().Discover(root)
	require.Len(t, envs, 3)
	require.Equal(t, "Alpha", envs[0].Name())
	require.Equal(t, "beta", envs[1].Name())
	require.Equal(t, "gamma", envs[2].Name())
}

func TestDiscoverMissingRootIsEmpty(t *testing.T) {
	require.Empty(t, discovery.NewScanner().Discover(filepath.Join(t.TempDir(), "nope")))
}

func TestDiscoverCustomSegmentsAndExclusion(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "one/public", "two/public", "skipme/public")

	s := &discovery.Scanner{
		ContentSegments: []string{"public"},
		Exclude:         discovery.ExcludeNames([]string{"SKIPME"}),
	}
	envs := s.Discover(root)
	require.Len(t, envs, 2)
	require.Equal(t, "one", envs[0].Name())
	require.Equal(t, "two", envs[1].Name())
}
