// Package config loads service configuration from struct defaults, an
// optional YAML file and ACCIDENTS_-prefixed environment variables, in
// that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix starts every override; a double underscore separates nesting
// levels so key names may themselves contain underscores:
// ACCIDENTS_SERVER__ADDR -> server.addr,
// ACCIDENTS_DATASET__FAIL_FAST -> dataset.fail_fast.
const envPrefix = "ACCIDENTS_"

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Dataset DatasetConfig `koanf:"dataset"`
	Query   QueryConfig   `koanf:"query"`
	Log     LogConfig     `koanf:"log"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type DatasetConfig struct {
	// Path points at the deposited dataset; .parquet and .csv are
	// understood. The acquisition pipeline that puts the file there is
	// not this service's business.
	Path string `koanf:"path"`

	// FailFast aborts startup when the dataset is missing or unreadable
	// instead of serving 503s until an operator restarts with the file in
	// place.
	FailFast bool `koanf:"fail_fast"`

	// StateColumn and TimeColumn drive the heatmap cache and the default
	// grouping endpoints.
	StateColumn string `koanf:"state_column"`
	TimeColumn  string `koanf:"time_column"`
}

type QueryConfig struct {
	// SampleLimit is the default /accidents/sample size. 10 here, 100 in
	// some deployments; both are reasonable.
	SampleLimit int `koanf:"sample_limit"`

	// MaxPageRows caps the page size; 0 leaves it uncapped, meaning one
	// request may materialize the whole table.
	MaxPageRows int `koanf:"max_page_rows"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // trace..panic
	Format string `koanf:"format"` // json or console
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Dataset: DatasetConfig{
			Path:        "US_Accidents_March23.parquet",
			FailFast:    false,
			StateColumn: "State",
			TimeColumn:  "Start_Time",
		},
		Query: QueryConfig{
			SampleLimit: 10,
			MaxPageRows: 0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty or point at a YAML
// file; a missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	explicit := path != ""
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	if cfg.Dataset.Path == "" {
		return nil, fmt.Errorf("dataset.path must not be empty")
	}
	return &cfg, nil
}
