package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/webstage/webstage/internal/activation"
	"github.com/webstage/webstage/internal/config"
	"github.com/webstage/webstage/internal/discovery"
	"github.com/webstage/webstage/internal/fingerprint"
	"github.com/webstage/webstage/internal/logging"
	"github.com/webstage/webstage/internal/registry"
)

func main() {
	cmd := &cli.Command{
		Name:  "webstage",
		Usage: "Manage web content packages and swap which one is deployed into a target environment",
		Flags: getFlags(),
		Commands: []*cli.Command{
			environmentsCmd(),
			packagesCmd(),
			ingestCmd(),
			activateCmd(),
			fingerprintCmd(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("error running command")
	}
}

// app wires the core components from config plus any flag overrides.
type app struct {
	cfg       *config.Config
	scanner   *discovery.Scanner
	registry  *registry.Registry
	activator *activation.Activator
}

func newApp(cmd *cli.Command) (*app, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cmd.IsSet(fDebug) {
		cfg.Override("debug", cmd.Bool(fDebug))
	}
	if cmd.IsSet(fState) {
		cfg.Override("webstage_path", cmd.String(fState))
	}
	if cmd.IsSet(fScanRoot) {
		cfg.Override("scan_root", cmd.String(fScanRoot))
	}
	if cmd.IsSet(fBuiltinArchive) {
		cfg.Override("builtin_archive", cmd.String(fBuiltinArchive))
	}

	logging.NewLogger(cfg.LogLevel())

	a := &app{
		cfg:       cfg,
		scanner:   cfg.Scanner(),
		registry:  registry.NewRegistry(cfg.RegistryPath(), cfg.Locator()),
		activator: activation.NewActivator(cfg.BackupPath()),
	}

	if archive := cfg.BuiltInArchive(); archive != "" {
		if _, err := a.registry.EnsureBuiltIn(config.BuiltInPackageName, archive); err != nil {
			log.Warn().Err(err).Msg("Failed to ingest built-in package")
		}
	}
	return a, nil
}

func environmentsCmd() *cli.Command {
	var withStatus bool
	return &cli.Command{
		Name:  "environments",
		Usage: "List discovered target environments",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "status",
				Usage:       "Also fingerprint each environment and match it against known packages",
				Destination: &withStatus,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			envs := a.scanner.Discover(a.cfg.ScanRoot())
			if len(envs) == 0 {
				fmt.Println("no environments found")
				return nil
			}
			if !withStatus {
				for _, env := range envs {
					fmt.Printf("%s\t%s\n", env.Name(), env.ContentPath)
				}
				return nil
			}
			return printStatus(ctx, a, envs)
		},
	}
}

// printStatus fingerprints every environment concurrently. The environments
// are distinct directories, so this stays within the one-operation-per-target
// contract of the core.
func printStatus(ctx context.Context, a *app, envs []discovery.Environment) error {
	byFingerprint := make(map[string]string)
	for _, pkg := range a.registry.LoadAll() {
		byFingerprint[pkg.Fingerprint] = pkg.Name
	}

	digests := make([]string, len(envs))
	eg, _ := errgroup.WithContext(ctx)
	for i, env := range envs {
		eg.Go(func() error {
			// Skip the stamped archive so a deployed environment matches the
			// fingerprint of the package it came from.
			digest, err := fingerprint.TreeIgnoring(env.ContentPath, registry.ArchiveName)
			if err != nil {
				return fmt.Errorf("fingerprinting %s: %w", env.Name(), err)
			}
			digests[i] = digest
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, env := range envs {
		match := byFingerprint[digests[i]]
		if match == "" {
			match = "-"
		}
		fmt.Printf("%s\t%s\t%s\n", env.Name(), digests[i], match)
	}
	return nil
}

func packagesCmd() *cli.Command {
	return &cli.Command{
		Name:  "packages",
		Usage: "List known packages",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			pkgs := a.registry.LoadAll()
			if len(pkgs) == 0 {
				fmt.Println("no packages in registry")
				return nil
			}
			for _, pkg := range pkgs {
				kind := "added"
				if pkg.IsBuiltIn {
					kind = "built-in"
				}
				fmt.Printf("%s\t%s\t%s\t%s\n", pkg.Name, pkg.Fingerprint, kind, pkg.SavedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func ingestCmd() *cli.Command {
	var name, archive string
	return &cli.Command{
		Name:  "ingest",
		Usage: "Add a package to the registry from a zip archive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "name",
				Usage:       "Name for the new package",
				Required:    true,
				Destination: &name,
			},
			&cli.StringFlag{
				Name:        "archive",
				Usage:       "Path to the zip archive to ingest",
				Required:    true,
				TakesFile:   true,
				Destination: &archive,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			pkg, err := a.registry.Ingest(name, archive)
			if errors.Is(err, registry.ErrNameTaken) {
				// The registry leaves disambiguation to its caller.
				suffixed := fmt.Sprintf("%s-%s", name, time.Now().UTC().Format("20060102-150405"))
				log.Info().Msgf("Name %s is taken, retrying as %s", name, suffixed)
				pkg, err = a.registry.Ingest(suffixed, archive)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", pkg.Name, pkg.Fingerprint)
			return nil
		},
	}
}

func activateCmd() *cli.Command {
	var envName, pkgName string
	return &cli.Command{
		Name:  "activate",
		Usage: "Deploy a package into an environment, backing up what was there",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "env",
				Usage:       "Name of the discovered environment to activate into",
				Required:    true,
				Destination: &envName,
			},
			&cli.StringFlag{
				Name:        "package",
				Usage:       "Name of the registry package to deploy",
				Required:    true,
				Destination: &pkgName,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			var env *discovery.Environment
			for _, e := range a.scanner.Discover(a.cfg.ScanRoot()) {
				if e.Name() == envName {
					env = &e
					break
				}
			}
			if env == nil {
				return fmt.Errorf("no environment named %s under %s", envName, a.cfg.ScanRoot())
			}

			var pkg *registry.Package
			for _, p := range a.registry.LoadAll() {
				if p.Name == pkgName {
					pkg = p
					break
				}
			}
			if pkg == nil {
				return fmt.Errorf("no package named %s in registry", pkgName)
			}

			result, err := a.activator.Activate(*env, pkg)
			if err != nil {
				return err
			}
			if result.BackupPath != "" {
				fmt.Printf("previous content backed up to %s\n", result.BackupPath)
			}
			fmt.Printf("activated %s into %s\n", pkg.Name, env.ContentPath)
			return nil
		},
	}
}

func fingerprintCmd() *cli.Command {
	return &cli.Command{
		Name:      "fingerprint",
		Usage:     "Print the content fingerprint of a directory tree",
		ArgsUsage: "PATH",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("expected exactly one PATH argument")
			}
			digest, err := fingerprint.Tree(cmd.Args().First())
			if err != nil {
				return err
			}
			fmt.Println(digest)
			return nil
		},
	}
}
