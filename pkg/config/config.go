// Package config loads placeskit settings from a TOML file and the
// environment.
//
// Precedence, lowest to highest: built-in defaults, the config file,
// PLACESKIT_* environment variables (optionally from a .env file), and
// finally command-line flags, which the CLI applies on top of the result.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/placeskit/pkg/errors"
	"github.com/matzehuels/placeskit/pkg/fetch"
	"github.com/matzehuels/placeskit/pkg/quota"
)

const appName = "placeskit"

// EnvConfig names the environment variable that overrides the config path.
const EnvConfig = "PLACESKIT_CONFIG"

// Config is the full set of placeskit settings.
type Config struct {
	KeysFile string `toml:"keys_file"`
	KeyName  string `toml:"key_name"`
	KeyParam string `toml:"key_param"`

	Quota   QuotaConfig   `toml:"quota"`
	Fetch   FetchConfig   `toml:"fetch"`
	Metrics MetricsConfig `toml:"metrics"`
}

// QuotaConfig selects and sizes the daily request counter.
type QuotaConfig struct {
	File        string `toml:"file"`
	Limit       int    `toml:"limit"`
	RedisAddr   string `toml:"redis_addr"`
	RedisDB     int    `toml:"redis_db"`
	RedisPrefix string `toml:"redis_prefix"`

	// RedisPassword is only read from PLACESKIT_REDIS_PASSWORD.
	RedisPassword string `toml:"-"`
}

// FetchConfig controls retry behaviour.
type FetchConfig struct {
	MaxTries            int      `toml:"max_tries"`
	Delay               Duration `toml:"delay"`
	TransportBackoff    Duration `toml:"transport_backoff"`
	MaxTransportRetries int      `toml:"max_transport_retries"`
	Timeout             Duration `toml:"timeout"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string ("5s", "1m30s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid duration %q", text)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		KeysFile: "~/.config/" + appName + "/keys.txt",
		KeyName:  "GooglePlaces",
		KeyParam: "key",
		Quota: QuotaConfig{
			File:        quota.DefaultFile,
			Limit:       quota.DefaultLimit,
			RedisPrefix: quota.DefaultRedisPrefix,
		},
		Fetch: FetchConfig{
			MaxTries:         fetch.DefaultMaxTries,
			Delay:            Duration{fetch.DefaultDelay},
			TransportBackoff: Duration{fetch.DefaultTransportBackoff},
			Timeout:          Duration{fetch.DefaultTimeout},
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is not
// an error; unknown keys are.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(errors.ErrCodeInternal, err, "read config %s", path)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.New(errors.ErrCodeInvalidFormat, "config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// LoadEnv loads variables from the given .env files (default ".env") into the
// process environment. Missing files are ignored and variables already set
// are not overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "load %s", f)
		}
	}
	return nil
}

// ApplyEnv overrides settings from PLACESKIT_* environment variables.
func (c *Config) ApplyEnv() error {
	for name, dst := range map[string]*string{
		"PLACESKIT_KEYS_FILE":      &c.KeysFile,
		"PLACESKIT_KEY_NAME":       &c.KeyName,
		"PLACESKIT_QUOTA_FILE":     &c.Quota.File,
		"PLACESKIT_REDIS_ADDR":     &c.Quota.RedisAddr,
		"PLACESKIT_REDIS_PASSWORD": &c.Quota.RedisPassword,
		"PLACESKIT_METRICS_ADDR":   &c.Metrics.Addr,
	} {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("PLACESKIT_QUOTA_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "PLACESKIT_QUOTA_LIMIT=%q", v)
		}
		c.Quota.Limit = n
	}
	return c.Validate()
}

// Validate reports the first setting that is out of range.
func (c Config) Validate() error {
	switch {
	case c.Quota.Limit < 1:
		return errors.New(errors.ErrCodeInvalidInput, "quota.limit must be positive, got %d", c.Quota.Limit)
	case c.Quota.RedisDB < 0:
		return errors.New(errors.ErrCodeInvalidInput, "quota.redis_db must not be negative")
	case c.Quota.RedisAddr == "" && c.Quota.File == "":
		return errors.New(errors.ErrCodeInvalidInput, "quota.file is required when quota.redis_addr is empty")
	case c.Fetch.MaxTries < 0:
		return errors.New(errors.ErrCodeInvalidInput, "fetch.max_tries must not be negative")
	case c.Fetch.MaxTransportRetries < 0:
		return errors.New(errors.ErrCodeInvalidInput, "fetch.max_transport_retries must not be negative")
	case c.Fetch.Delay.Duration < 0, c.Fetch.TransportBackoff.Duration < 0, c.Fetch.Timeout.Duration < 0:
		return errors.New(errors.ErrCodeInvalidInput, "fetch durations must not be negative")
	case c.KeyParam != "":
		if err := errors.ValidateParamName(c.KeyParam); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "key_param")
		}
	}
	return nil
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	return buf.Bytes(), nil
}

// Path resolves the config file location: the explicit flag value, then
// $PLACESKIT_CONFIG, then $XDG_CONFIG_HOME/placeskit/config.toml, then
// ~/.config/placeskit/config.toml.
func Path(flag string) (string, error) {
	if flag != "" {
		return ExpandHome(flag)
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return ExpandHome(env)
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Dir returns the placeskit config directory using the XDG convention.
func Dir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}
