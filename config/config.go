package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Log        *LogConfig   `yaml:"log"`
	Store      *StoreConfig `yaml:"store"`
	Partitions int          `yaml:"partitions"`
}

func New() *AppConfig {
	return &AppConfig{
		Log:        NewLogConfig(),
		Store:      NewStoreConfig(),
		Partitions: 4,
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config '%s'", path)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config '%s'", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config '%s'", path)
	}
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	if c.Partitions < 1 {
		return errors.Errorf("partitions must be positive, got %d", c.Partitions)
	}
	if c.Store == nil || c.Store.Path == "" {
		return errors.New("store path is required")
	}
	return nil
}
