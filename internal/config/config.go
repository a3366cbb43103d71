// Package config carries the statically known settings shared by the client
// stack and the dev server: the store endpoint and the directory geometry.
package config

import (
	"fmt"
	"os"

	"github.com/objectstream/crudfs/internal/volume"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddress = "127.0.0.1"
	DefaultPort    = 19812
)

type Config struct {
	Address  string `yaml:"address" mapstructure:"address"`
	Port     int    `yaml:"port" mapstructure:"port"`
	MaxFiles int    `yaml:"max_files" mapstructure:"max_files"`
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	DataDir  string `yaml:"data_dir" mapstructure:"data_dir"`
}

func DefaultConfig() Config {
	return Config{
		Address:  DefaultAddress,
		Port:     DefaultPort,
		MaxFiles: volume.DefaultSlots,
		LogLevel: "INFO",
	}
}

// Load reads a yaml config file, filling unset fields with defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parsing config file")
	}

	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = volume.DefaultSlots
	}
	return cfg, nil
}

// Endpoint returns the host:port the client dials.
func (c Config) Endpoint() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}
