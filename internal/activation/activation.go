package activation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/webstage/webstage/internal/discovery"
	"github.com/webstage/webstage/internal/fstree"
	"github.com/webstage/webstage/internal/registry"
)

// ErrNothingSelected is returned when activation is attempted without both
// an environment and a package.
var ErrNothingSelected = errors.New("activation requires an environment and a package")

// Activator swaps a package's content into an environment's content path,
// keeping a timestamped backup of whatever was deployed before. The sequence
// is ensure, backup, wipe, deploy, stamp; a failure aborts the remaining
// steps and is reported with the failed step in the error chain. The
// sequence is deliberately not transactional: a deploy failure after the
// wipe leaves the content path empty with the backup intact, and recovery
// from the backup is a manual action.
type Activator struct {
	backupRoot string
	now        func() time.Time
}

func NewActivator(backupRoot string) *Activator {
	return &Activator{
		backupRoot: backupRoot,
		now:        time.Now,
	}
}

// Result reports what an activation did.
type Result struct {
	// BackupPath is the snapshot of the previous content, or "" when the
	// content path did not exist before the run.
	BackupPath string
}

// Activate deploys pkg into env. Callers must not run two activations
// against the same environment concurrently; the activator takes no locks.
func (a *Activator) Activate(env discovery.Environment, pkg *registry.Package) (*Result, error) {
	if env.ContentPath == "" || pkg == nil {
		return nil, ErrNothingSelected
	}

	log.Info().Msgf("Activating package %s into %s", pkg.Name, env.ContentPath)

	hadContent := dirExists(env.ContentPath)
	if err := os.MkdirAll(env.ContentPath, 0755); err != nil {
		return nil, fmt.Errorf("ensure target: %w", err)
	}

	result := &Result{}
	if hadContent {
		backupDir, err := a.backup(env)
		if err != nil {
			return nil, fmt.Errorf("backup: %w", err)
		}
		result.BackupPath = backupDir
		log.Info().Msgf("Backed up previous content to %s", backupDir)
	}

	if err := fstree.Clear(env.ContentPath); err != nil {
		return nil, fmt.Errorf("wipe: %w", err)
	}

	if err := fstree.CopyTree(pkg.ContentRootPath, env.ContentPath); err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}

	if archive := pkg.ArchivePath(); archive != "" {
		if err := fstree.CopyFile(archive, filepath.Join(env.ContentPath, registry.ArchiveName)); err != nil {
			return nil, fmt.Errorf("stamp: %w", err)
		}
	}

	log.Info().Msgf("Activated package %s (fingerprint %s)", pkg.Name, pkg.Fingerprint)
	return result, nil
}

// backup snapshots the current content into a fresh directory keyed by
// environment name. The uuid suffix keeps two activations within the same
// second from colliding.
func (a *Activator) backup(env discovery.Environment) (string, error) {
	stamp := a.now().UTC().Format("20060102-150405")
	backupDir := filepath.Join(a.backupRoot, env.Name(), fmt.Sprintf("%s-%s", stamp, uuid.NewString()[:8]))
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", err
	}
	if err := fstree.CopyTree(env.ContentPath, backupDir); err != nil {
		return "", err
	}
	return backupDir, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
