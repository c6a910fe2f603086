package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
)

// DefaultFile is looked up in the working directory when no other file is given.
const DefaultFile = "ghostrunner.toml"

type Config struct {
	SettingsPath string `usage:"Folder for state.db; defaults to <user config dir>/ghostrunner"`
	GamePath     string `usage:"Skip discovery and use this install path"`
	StagingPath  string `usage:"Folder archives get extracted to before deployment; defaults to <settings>/staging"`
	HostVersion  string `usage:"Host API version reported to extensions; defaults to the built-in version"`

	Log struct {
		Level string `default:"info" usage:"One of debug, info, warn, error"`
		JSON  bool   `usage:"Log JSON instead of human-readable lines"`
		File  string `usage:"Write the log to this file instead of stderr"`
	}

	Server struct {
		Listen string `default:"localhost:8100" usage:"Address the HTTP bridge listens on"`
	}
}

var logLevels = map[string]zerolog.Level{
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
}

// Loader builds a loader reading defaults, the given TOML files and GHOSTRUNNER_* environment
// variables (in that order). Flags are handled by the CLI.
func Loader(files ...string) (*Config, *aconfig.Loader) {
	if len(files) == 0 {
		files = []string{DefaultFile}
	}

	cfg := new(Config)
	loader := aconfig.LoaderFor(cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "GHOSTRUNNER",
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})

	return cfg, loader
}

// Load reads the configuration and fills in derived defaults. override (if set) runs after the
// files and environment have been applied so command line flags take precedence.
func Load(override func(*Config), files ...string) (*Config, error) {
	cfg, loader := Loader(files...)
	err := loader.Load()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load configuration")
	}

	if override != nil {
		override(cfg)
	}

	err = cfg.ApplyDefaults()
	if err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) ApplyDefaults() error {
	if c.SettingsPath == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return eris.Wrap(err, "failed to determine the user config folder")
		}
		c.SettingsPath = filepath.Join(base, "ghostrunner")
	}

	if c.StagingPath == "" {
		c.StagingPath = filepath.Join(c.SettingsPath, "staging")
	}

	if c.HostVersion == "" {
		c.HostVersion = api.HostAPIVersion
	}

	return nil
}

func (c *Config) Validate() error {
	if _, ok := logLevels[strings.ToLower(c.Log.Level)]; !ok {
		return eris.Errorf("unknown log level %q", c.Log.Level)
	}

	if _, err := semver.StrictNewVersion(c.HostVersion); err != nil {
		return eris.Wrapf(err, "invalid host version %q", c.HostVersion)
	}

	if c.GamePath != "" {
		info, err := os.Stat(c.GamePath)
		if err != nil {
			return eris.Wrapf(err, "configured game path %s is not usable", c.GamePath)
		}
		if !info.IsDir() {
			return eris.Errorf("configured game path %s is not a folder", c.GamePath)
		}
	}

	return nil
}

func (c *Config) LogLevel() zerolog.Level {
	level, ok := logLevels[strings.ToLower(c.Log.Level)]
	if !ok {
		return zerolog.InfoLevel
	}
	return level
}
