package config

import (
	"errors"
	"os/user"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	viper "github.com/spf13/viper"

	"github.com/webstage/webstage/internal/contentroot"
	"github.com/webstage/webstage/internal/discovery"
)

// BuiltInPackageName is the registry name of the package shipped with the
// application.
const BuiltInPackageName = "builtin"

func loadEnv(v *viper.Viper) error {
	err := v.BindEnv("debug", "WEBSTAGE_DEBUG")
	if err != nil {
		return err
	}
	v.SetDefault("debug", false)

	err = v.BindEnv("webstage_path", "WEBSTAGE_PATH")
	if err != nil {
		return err
	}
	homedir, err := homedir()
	if err != nil {
		return err
	}
	v.SetDefault("webstage_path", filepath.Join(homedir, ".webstage"))

	err = v.BindEnv("scan_root", "WEBSTAGE_SCAN_ROOT")
	if err != nil {
		return err
	}

	err = v.BindEnv("builtin_archive", "WEBSTAGE_BUILTIN_ARCHIVE")
	if err != nil {
		return err
	}

	return nil
}

func loadViperConfig() (*viper.Viper, error) {
	v := viper.New()

	err := loadEnv(v)
	if err != nil {
		return nil, err
	}

	homedir, err := homedir()
	if err != nil {
		return nil, err
	}

	v.AddConfigPath(filepath.Join(homedir, ".webstage"))
	v.AddConfigPath(v.GetString("webstage_path"))

	v.SetConfigType("yml")
	v.SetConfigName("webstage")

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional; env and defaults carry a bare setup.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return v, nil
}

// Config holds everything the CLI wires into the core: where to scan for
// environments, where the registry and backups live, and the shapes the
// scanner and locator should recognize.
type Config struct {
	viper *viper.Viper
}

func NewConfig() (*Config, error) {
	v, err := loadViperConfig()
	if err != nil {
		return nil, err
	}
	config := NewConfigFromViper(v)

	log.Debug().Msgf("Loaded config: state path %s scan root %s", config.StatePath(), config.ScanRoot())
	return config, nil
}

func NewConfigFromViper(v *viper.Viper) *Config {
	return &Config{viper: v}
}

// NewTestConfig returns a Config suitable for testing, backed by the given
// Viper instance (or a fresh one when nil).
func NewTestConfig(optionalViper *viper.Viper) *Config {
	v := optionalViper
	if v == nil {
		v = viper.New()
	}
	return NewConfigFromViper(v)
}

// Override forces a config key to a value, taking precedence over the config
// file and environment. Used by the CLI to apply flag values.
func (c *Config) Override(key string, value any) {
	c.viper.Set(key, value)
}

func (c *Config) LogLevel() zerolog.Level {
	if c.viper.GetBool("debug") {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func (c *Config) StatePath() string {
	return c.viper.GetString("webstage_path")
}

// ScanRoot is the filesystem root scanned for environments.
func (c *Config) ScanRoot() string {
	return c.viper.GetString("scan_root")
}

// RegistryPath returns the directory holding one subdirectory per known package.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.StatePath(), "packages")
}

// BackupPath returns the directory under which activation backups accumulate.
func (c *Config) BackupPath() string {
	return filepath.Join(c.StatePath(), "backups")
}

// BuiltInArchive is the path to the archive shipped with the application,
// ingested once on first run. Empty when the deployment carries none.
func (c *Config) BuiltInArchive() string {
	return c.viper.GetString("builtin_archive")
}

// ExcludedDirs returns the directory names discovery must skip.
func (c *Config) ExcludedDirs() []string {
	names := c.viper.GetStringSlice("excluded_dirs")
	if len(names) == 0 {
		return discovery.DefaultExcluded
	}
	return names
}

// ContentSegments is the relative path from an installation directory to its
// deployment target.
func (c *Config) ContentSegments() []string {
	segments := c.viper.GetStringSlice("content_segments")
	if len(segments) == 0 {
		return []string{"webserver", "srm2", "EN"}
	}
	return segments
}

// Scanner builds the environment scanner from the configured shape.
func (c *Config) Scanner() *discovery.Scanner {
	return &discovery.Scanner{
		ContentSegments: c.ContentSegments(),
		Exclude:         discovery.ExcludeNames(c.ExcludedDirs()),
	}
}

type locatorConfig struct {
	DeepSuffix    []string `yaml:"deep_suffix"`
	ShallowSuffix []string `yaml:"shallow_suffix"`
	MarkerDirs    []string `yaml:"marker_dirs"`
	MarkerFiles   []string `yaml:"marker_files"`
}

// Locator builds the content-root locator, with any heuristics overridden in
// the config file's locator section applied on top of the defaults.
func (c *Config) Locator() *contentroot.Locator {
	locator := contentroot.NewLocator()
	if !c.viper.IsSet("locator") {
		return locator
	}

	var lc locatorConfig
	err := c.viper.UnmarshalKey("locator", &lc, viper.DecoderConfigOption(
		func(decoderConfig *mapstructure.DecoderConfig) {
			decoderConfig.TagName = "yaml"
		},
	))
	if err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal locator overrides, using defaults")
		return locator
	}

	if len(lc.DeepSuffix) > 0 {
		locator.DeepSuffix = lc.DeepSuffix
	}
	if len(lc.ShallowSuffix) > 0 {
		locator.ShallowSuffix = lc.ShallowSuffix
	}
	if len(lc.MarkerDirs) > 0 {
		locator.MarkerDirs = lc.MarkerDirs
	}
	if len(lc.MarkerFiles) > 0 {
		locator.MarkerFiles = lc.MarkerFiles
	}
	return locator
}

// Helper functions

func homedir() (string, error) {
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return usr.HomeDir, nil
}
