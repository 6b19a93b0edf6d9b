package resws

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultReceiveTimeout = 20 * time.Second
	DefaultBackoffDelay   = 2 * time.Second
)

// Config holds the timing knobs of a Client. It is fixed once the Client is built.
type Config struct {
	// ReceiveTimeout bounds the wait for the next inbound frame. A session that stays
	// silent for longer is considered dead.
	ReceiveTimeout time.Duration `toml:"receive_timeout" yaml:"receive_timeout"`
	// BackoffDelay is the pause between a failed cycle and the next connect attempt.
	BackoffDelay time.Duration `toml:"backoff_delay" yaml:"backoff_delay"`
}

func DefaultConfig() Config {
	return Config{
		ReceiveTimeout: DefaultReceiveTimeout,
		BackoffDelay:   DefaultBackoffDelay,
	}
}

// withDefaults replaces zero or negative durations with the package defaults.
func (c Config) withDefaults() Config {
	if c.ReceiveTimeout <= 0 {
		c.ReceiveTimeout = DefaultReceiveTimeout
	}
	if c.BackoffDelay <= 0 {
		c.BackoffDelay = DefaultBackoffDelay
	}
	return c
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) file into a Config.
// ${VAR} references are expanded from the environment before parsing, durations
// are written as strings such as "20s", and missing fields take their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config file %s", path)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config toml %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config yaml %s", path)
		}
	default:
		return Config{}, errors.Errorf("unsupported config format %q", ext)
	}

	return cfg.withDefaults(), nil
}
