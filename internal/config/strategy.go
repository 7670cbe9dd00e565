package config

import (
	"bytes"
	"os"

	"github.com/rxtech-lab/autotrader/internal/types"
	"github.com/rxtech-lab/autotrader/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadStrategyFile reads one strategy config from a YAML file.
func LoadStrategyFile(path string) (types.StrategyConfig, error) {
	var cfg types.StrategyConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read strategy file %s", path)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "failed to parse strategy file %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadStrategyFiles reads every file in order and rejects duplicate ids.
func LoadStrategyFiles(paths []string) ([]types.StrategyConfig, error) {
	configs := make([]types.StrategyConfig, 0, len(paths))
	seen := make(map[string]string, len(paths))

	for _, path := range paths {
		cfg, err := LoadStrategyFile(path)
		if err != nil {
			return nil, err
		}

		if previous, dup := seen[cfg.ID]; dup {
			return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "strategy %s defined in both %s and %s", cfg.ID, previous, path)
		}

		seen[cfg.ID] = path
		configs = append(configs, cfg)
	}

	return configs, nil
}
