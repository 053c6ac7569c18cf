package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	units "github.com/docker/go-units"

	"github.com/bamsammich/sparsecp/internal/copier"
)

// Config represents the optional sparsecp configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
}

// DefaultsConfig holds persistent flag defaults. Nil fields are unset and
// leave the built-in default alone.
type DefaultsConfig struct {
	Reflink   *copier.Reflink `toml:"reflink"`
	NoPerms   *bool           `toml:"no_perms"`
	Fsync     *bool           `toml:"fsync"`
	BatchSize *string         `toml:"batch_size"`
	Verify    *bool           `toml:"verify"`
	Extents   *bool           `toml:"extents"`
	BWLimit   *string         `toml:"bwlimit"`
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
	return filepath.Join(dir, "sparsecp", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile reads the config file at path. An empty path or a missing file
// yields a zero Config.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}

	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	s := DefaultSettings()
	if err := cfg.Defaults.Apply(&s); err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// Settings is everything a copy run is configured with.
type Settings struct {
	Options copier.Options
	Extents bool
	BWLimit int64 // bytes per second, zero for unlimited
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{Options: copier.DefaultOptions()}
}

// Apply overlays the set defaults onto s.
func (d DefaultsConfig) Apply(s *Settings) error {
	opts := &s.Options
	if d.Reflink != nil {
		opts.Reflink = *d.Reflink
	}
	if d.NoPerms != nil {
		opts.NoPerms = *d.NoPerms
	}
	if d.Fsync != nil {
		opts.Fsync = *d.Fsync
	}
	if d.Verify != nil {
		opts.Verify = *d.Verify
	}
	if d.BatchSize != nil {
		n, err := ParseBatchSize(*d.BatchSize)
		if err != nil {
			return err
		}
		opts.BatchSize = n
	}
	if d.Extents != nil {
		s.Extents = *d.Extents
	}
	if d.BWLimit != nil {
		n, err := ParseSize(*d.BWLimit)
		if err != nil {
			return fmt.Errorf("bwlimit: %w", err)
		}
		s.BWLimit = n
	}
	return nil
}

// FromSettings returns a DefaultsConfig that reproduces s. An unlimited
// bandwidth is left unset.
func FromSettings(s Settings) DefaultsConfig {
	opts := s.Options
	size := FormatBatchSize(opts.BatchSize)
	d := DefaultsConfig{
		Reflink:   &opts.Reflink,
		NoPerms:   &opts.NoPerms,
		Fsync:     &opts.Fsync,
		BatchSize: &size,
		Verify:    &opts.Verify,
		Extents:   &s.Extents,
	}
	if s.BWLimit > 0 {
		limit := FormatBatchSize(s.BWLimit)
		d.BWLimit = &limit
	}
	return d
}

// ParseSize parses a human byte size such as "64MiB", "100M" or "512k".
// Suffixes are binary and the result must be positive.
func ParseSize(s string) (int64, error) {
	n, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid size %q: must be positive", s)
	}
	return n, nil
}

// ParseBatchSize is ParseSize reporting failures as ErrInvalidBatchSize.
func ParseBatchSize(s string) (int64, error) {
	n, err := ParseSize(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", copier.ErrInvalidBatchSize, err)
	}
	return n, nil
}

// FormatBatchSize renders n so that ParseSize reads back exactly n: a
// binary size like "64MiB" when that is exact, plain bytes otherwise.
func FormatBatchSize(n int64) string {
	s := units.BytesSize(float64(n))
	if back, err := units.RAMInBytes(s); err == nil && back == n {
		return s
	}
	return strconv.FormatInt(n, 10)
}
