// Package config loads server configuration from an optional YAML
// file layered over built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the server binary.
type Config struct {
	// ListenAddr is the TCP address the wire protocol server binds to.
	ListenAddr string `yaml:"listen_addr"`
	// DataFile is the path to the single-file page store.
	DataFile string `yaml:"data_file"`
	// PoolSize is the number of frames in the buffer pool.
	PoolSize int `yaml:"pool_size"`
	// CheckpointSpec is a cron or "@every" expression controlling how
	// often the buffer pool is flushed to disk in the background.
	CheckpointSpec string `yaml:"checkpoint_spec"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:     "0.0.0.0:8124",
		DataFile:       "qpkv.db",
		PoolSize:       64,
		CheckpointSpec: "@every 30s",
	}
}

// Load reads path as YAML and overlays it onto Default(). Fields absent
// from the file keep their default value. A missing file is not an
// error; callers that want to require one should os.Stat first.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
