package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional reclaim configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Scanners ScannersConfig `toml:"scanners"`
}

// DefaultsConfig holds persistent flag defaults. Pointer fields
// distinguish "unset" from an explicit zero value.
type DefaultsConfig struct {
	MinSize     *string  `toml:"min_size"`
	Workers     *int     `toml:"workers"`
	Digest      *string  `toml:"digest"`
	BWLimit     *string  `toml:"bwlimit"`
	HashTimeout *string  `toml:"hash_timeout"`
	Excludes    []string `toml:"excludes"`
	Roots       []string `toml:"roots"`
}

// ScannersConfig holds settings for the system scanners.
type ScannersConfig struct {
	LogRoots        []string `toml:"log_roots"`
	LogThreshold    *string  `toml:"log_threshold"`
	SnapshotMaxDays *int     `toml:"snapshot_max_days"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "reclaim", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}

	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	return cfg, nil
}
