package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aretw0/webclip"
	"github.com/aretw0/webclip/pkg/adapters/fs"
	"github.com/aretw0/webclip/pkg/bridge"
	"github.com/aretw0/webclip/pkg/core"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyAdapter     = "adapter"
	cfgKeyDatabase    = "database"
	cfgKeyDestination = "default_destination"
	cfgKeyPage        = "default_page"
	cfgKeyTags        = "default_tags"
	cfgKeyVersioning  = "versioning"
	cfgKeyTimeout     = "timeout"

	defaultDatabase = "webclip.db"
	defaultTimeout  = bridge.DefaultTimeout
)

// defaultConfigYAML is written to <vault>/.webclip/config.yaml on first run.
const defaultConfigYAML = `# webclip configuration

# Storage adapter: fs, sqlite or memory (overridable by --adapter)
adapter: fs

# SQLite database, relative to the system directory
# database: webclip.db

# Where captures go when --page is not given: journal or page
default_destination: journal
# default_page: <record guid>

# Tags appended to every capture
default_tags:
  - web-capture

# Git checkpoints after each capture. Unset: follow the presence of .git
# versioning: true

# How long a client waits for the host
timeout: 10s
`

type config struct {
	Vault              string
	Adapter            string
	Database           string
	DefaultDestination core.DestinationType
	DefaultPage        string
	DefaultTags        []string
	Versioning         *bool
	Timeout            time.Duration
}

// loadConfig resolves the vault from --vault or the working directory and
// reads its config.yaml, letting explicitly set flags win.
func loadConfig(flags *pflag.FlagSet) (*config, error) {
	vault, err := resolveVault(vaultPath)
	if err != nil {
		return nil, err
	}
	return readConfig(vault, flags)
}

func resolveVault(flagValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	if root, err := webclip.FindRoot(cwd); err == nil {
		return root, nil
	}
	return cwd, nil
}

func readConfig(vault string, flags *pflag.FlagSet) (*config, error) {
	configDir := filepath.Join(vault, fs.DefaultSystemDir)
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyAdapter, webclip.AdapterFS)
	v.SetDefault(cfgKeyDatabase, defaultDatabase)
	v.SetDefault(cfgKeyDestination, string(core.DestinationJournal))
	v.SetDefault(cfgKeyTags, []string{})
	v.SetDefault(cfgKeyTimeout, defaultTimeout)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("WEBCLIP")
	v.AutomaticEnv()

	if f := flags.Lookup("adapter"); f != nil {
		if err := v.BindPFlag(cfgKeyAdapter, f); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		slog.Debug("no config file", "dir", configDir)
	}

	c := &config{
		Vault:              vault,
		Adapter:            v.GetString(cfgKeyAdapter),
		Database:           v.GetString(cfgKeyDatabase),
		DefaultDestination: core.DestinationType(v.GetString(cfgKeyDestination)),
		DefaultPage:        v.GetString(cfgKeyPage),
		DefaultTags:        v.GetStringSlice(cfgKeyTags),
		Timeout:            v.GetDuration(cfgKeyTimeout),
	}
	if v.IsSet(cfgKeyVersioning) {
		enabled := v.GetBool(cfgKeyVersioning)
		c.Versioning = &enabled
	}
	if !filepath.IsAbs(c.Database) && c.Database != ":memory:" {
		c.Database = filepath.Join(configDir, c.Database)
	}
	return c, nil
}

// ensureDefaultConfigFile writes config.yaml when the system directory exists
// but holds no config yet. Vaults that were never initialized are left alone.
func ensureDefaultConfigFile(configDir string) error {
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		return nil
	}
	path := filepath.Join(configDir, configFileName+"."+configFileType)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// uri is what the selected adapter opens.
func (c *config) uri() string {
	if c.Adapter == webclip.AdapterSQLite {
		return c.Database
	}
	return c.Vault
}

// options configure the workspace side (host or --local).
func (c *config) options() []webclip.Option {
	opts := []webclip.Option{
		webclip.WithLogger(slog.Default()),
		webclip.WithAdapter(c.Adapter),
	}
	if c.Versioning != nil {
		opts = append(opts, webclip.WithVersioning(*c.Versioning))
	}
	if c.Timeout > 0 {
		opts = append(opts, webclip.WithTimeout(c.Timeout))
	}
	return opts
}

// destination picks the capture anchor: an explicit page wins over the
// configured default.
func (c *config) destination(page string) core.DestinationRef {
	if page != "" {
		return core.DestinationRef{Type: core.DestinationPage, PageGUID: page}
	}
	if c.DefaultDestination == core.DestinationPage && c.DefaultPage != "" {
		return core.DestinationRef{Type: core.DestinationPage, PageGUID: c.DefaultPage}
	}
	return core.DestinationRef{Type: core.DestinationJournal}
}
