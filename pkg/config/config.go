// Package config loads deftsilo's generation settings. Values are
// layered defaults -> .deftsilo.toml in the source root -> DEFTSILO_*
// environment variables; command-line flags override all of them in
// cmd/deftsilo.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/rescrv/deftsilo/pkg/errors"
	"github.com/rescrv/deftsilo/pkg/logging"
)

// ConfigFileName is the optional per-tree configuration file, looked up
// in the source root.
const ConfigFileName = ".deftsilo.toml"

// DefaultOutput is the conventional tarball name produced when no
// output is configured.
const DefaultOutput = "dotfiles.tar.gz"

// Config holds the user-tunable generation settings.
type Config struct {
	// Output is the artifact filename; its suffix selects the archive
	// compression, and the literal name "install.sh" selects raw
	// script output.
	Output string `koanf:"output" toml:"output"`

	// Exclude lists extra basenames skipped during scanning, in
	// addition to .git and the output artifact itself.
	Exclude []string `koanf:"exclude" toml:"exclude"`
}

// Load reads configuration for a source root. A missing .deftsilo.toml
// is not an error; a malformed one is.
func Load(root string) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"output":  DefaultOutput,
		"exclude": []string{},
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "cannot load defaults")
	}

	configPath := filepath.Join(root, ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot parse %s", configPath)
		}
		logger.Debug().Str("path", configPath).Msg("Loaded config file")
	}

	if err := k.Load(env.Provider("DEFTSILO_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DEFTSILO_"))
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "cannot load environment")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "cannot unmarshal configuration")
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	return &cfg, nil
}
