package activation_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webstage/webstage/internal/activation"
	"github.com/webstage/webstage/internal/discovery"
	"github.com/webstage/webstage/internal/fingerprint"
	"github.com/webstage/webstage/internal/registry"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// testPackage builds a package directory by hand, without going through
// archive ingestion.
func testPackage(t *testing.T, name string) *registry.Package {
	pkgDir := t.TempDir()
	contentRoot := filepath.Join(pkgDir, "content")
	writeFile(t, contentRoot, "index.html", "<html>"+name+"</html>")
	writeFile(t, contentRoot, "frames/main.js", "console.log('"+name+"')")

	digest, err := fingerprint.Tree(contentRoot)
	require.NoError(t, err)
	return &registry.Package{
		Name:            name,
		ContentRootPath: contentRoot,
		Fingerprint:     digest,
		PackageDir:      pkgDir,
	}
}

func testEnvironment(t *testing.T) discovery.Environment {
	base := t.TempDir()
	return discovery.Environment{
		BasePath:    base,
		ContentPath: filepath.Join(base, "webserver", "srm2", "EN"),
	}
}

func TestActivateDeploysPackageContent(t *testing.T) {
	env := testEnvironment(t)
	pkg := testPackage(t, "v1")
	a := activation.NewActivator(t.TempDir())

	result, err := a.Activate(env, pkg)
	require.NoError(t, err)
	// Nothing was deployed before, so nothing was backed up.
	require.Empty(t, result.BackupPath)

	deployed, err := fingerprint.Tree(env.ContentPath)
	require.NoError(t, err)
	require.Equal(t, pkg.Fingerprint, deployed)
}

func TestActivateBacksUpPreviousContent(t *testing.T) {
	env := testEnvironment(t)
	writeFile(t, env.ContentPath, "index.html", "old content")
	previous, err := fingerprint.Tree(env.ContentPath)
	require.NoError(t, err)

	pkg := testPackage(t, "v2")
	a := activation.NewActivator(t.TempDir())

	result, err := a.Activate(env, pkg)
	require.NoError(t, err)
	require.NotEmpty(t, result.BackupPath)

	backedUp, err := fingerprint.Tree(result.BackupPath)
	require.NoError(t, err)
	require.Equal(t, previous, backedUp)

	deployed, err := fingerprint.Tree(env.ContentPath)
	require.NoError(t, err)
	require.Equal(t, pkg.Fingerprint, deployed)
}

func TestActivateTwiceKeepsDistinctBackups(t *testing.T) {
	env := testEnvironment(t)
	pkg := testPackage(t, "v1")
	a := activation.NewActivator(t.TempDir())

	_, err := a.Activate(env, pkg)
	require.NoError(t, err)
	first, err := fingerprint.Tree(env.ContentPath)
	require.NoError(t, err)

	r2, err := a.Activate(env, pkg)
	require.NoError(t, err)
	r3, err := a.Activate(env, pkg)
	require.NoError(t, err)

	require.NotEmpty(t, r2.BackupPath)
	require.NotEmpty(t, r3.BackupPath)
	require.NotEqual(t, r2.BackupPath, r3.BackupPath)

	// Redeploying the same package leaves the deployed fingerprint unchanged.
	final, err := fingerprint.Tree(env.ContentPath)
	require.NoError(t, err)
	require.Equal(t, first, final)
}

func TestActivateStampsRetainedArchive(t *testing.T) {
	env := testEnvironment(t)
	pkg := testPackage(t, "v1")
	writeFile(t, pkg.PackageDir, registry.ArchiveName, "zip bytes")

	_, err := activation.NewActivator(t.TempDir()).Activate(env, pkg)
	require.NoError(t, err)

	stamped, err := os.ReadFile(filepath.Join(env.ContentPath, registry.ArchiveName))
	require.NoError(t, err)
	require.Equal(t, "zip bytes", string(stamped))
}

func TestActivateFailedDeployLeavesBackupAndEmptyTarget(t *testing.T) {
	env := testEnvironment(t)
	writeFile(t, env.ContentPath, "index.html", "precious")
	previous, err := fingerprint.Tree(env.ContentPath)
	require.NoError(t, err)

	pkg := testPackage(t, "broken")
	// Deploy will fail: the content root is gone by the time we activate.
	require.NoError(t, os.RemoveAll(pkg.ContentRootPath))

	backupRoot := t.TempDir()
	result, err := activation.NewActivator(backupRoot).Activate(env, pkg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "deploy")
	require.Nil(t, result)

	// The wipe already ran: target is present but empty.
	entries, err := os.ReadDir(env.ContentPath)
	require.NoError(t, err)
	require.Empty(t, entries)

	// The backup holds exactly what was there before.
	backups, err := os.ReadDir(filepath.Join(backupRoot, env.Name()))
	require.NoError(t, err)
	require.Len(t, backups, 1)
	backedUp, err := fingerprint.Tree(filepath.Join(backupRoot, env.Name(), backups[0].Name()))
	require.NoError(t, err)
	require.Equal(t, previous, backedUp)
}

func TestActivateRequiresSelection(t *testing.T) {
	a := activation.NewActivator(t.TempDir())

	_, err := a.Activate(discovery.Environment{}, testPackage(t, "v1"))
	require.ErrorIs(t, err, activation.ErrNothingSelected)

	_, err = a.Activate(testEnvironment(t), nil)
	require.ErrorIs(t, err, activation.ErrNothingSelected)
}
