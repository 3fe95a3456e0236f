package offcache

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the sidecar/host configuration, loaded from YAML.
type Config struct {
	Server struct {
		Port   int    `yaml:"port"`
		Origin string `yaml:"origin"`
	} `yaml:"server"`

	Cache struct {
		Version       string   `yaml:"version"`
		Path          string   `yaml:"path"` // LevelDB directory
		APIPrefixes   []string `yaml:"apiPrefixes"`
		APIHost       string   `yaml:"apiHost"`
		AssetSuffixes []string `yaml:"assetSuffixes"`
		Precache      []string `yaml:"precache"`
		RootDocument  string   `yaml:"rootDocument"`
		SweepInterval string   `yaml:"sweepInterval"`
		Retention     string   `yaml:"retention"`

		// compiled
		sweepDur     time.Duration
		retentionDur time.Duration
	} `yaml:"cache"`
}

// SweepInterval returns the compiled janitor interval (zero if unset).
func (c *Config) SweepInterval() time.Duration { return c.Cache.sweepDur }

// Retention returns the compiled retention window (zero if unset).
func (c *Config) Retention() time.Duration { return c.Cache.retentionDur }

func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Origin == "" {
		return Config{}, fmt.Errorf("server.origin is required")
	}
	cfg.Server.Origin = strings.TrimRight(cfg.Server.Origin, "/")

	if cfg.Cache.Version == "" {
		return Config{}, fmt.Errorf("cache.version is required")
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = "./data/offcache"
	}
	for i, p := range cfg.Cache.Precache {
		if !strings.HasPrefix(p, "/") {
			return Config{}, fmt.Errorf("cache.precache[%d]: path must start with /", i)
		}
	}

	if cfg.Cache.SweepInterval != "" {
		d, err := time.ParseDuration(cfg.Cache.SweepInterval)
		if err != nil {
			return Config{}, fmt.Errorf("cache.sweepInterval: %w", err)
		}
		cfg.Cache.sweepDur = d
	}
	if cfg.Cache.Retention != "" {
		d, err := time.ParseDuration(cfg.Cache.Retention)
		if err != nil {
			return Config{}, fmt.Errorf("cache.retention: %w", err)
		}
		cfg.Cache.retentionDur = d
	}

	return cfg, nil
}
