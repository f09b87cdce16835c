// Package config provides configuration management for the octree service:
// the dimensionality and depth the index runs at, the per-leaf capacity
// that drives refinement, and the run's communicator topology. Grounded
// directly on junjiewwang-perf-analysis/pkg/config's viper + mapstructure +
// nested-struct shape, adapted from that service's unrelated domains
// (database/storage/scheduler) to this one.
package config

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/parallel-octree/octree/comm"
)

// Config holds all runtime configuration for an octree run.
type Config struct {
	Space   SpaceConfig   `mapstructure:"space"`
	Run     RunConfig     `mapstructure:"run"`
	Log     LogConfig     `mapstructure:"log"`
	Cluster ClusterConfig `mapstructure:"cluster"`
}

// SpaceConfig is the index's dimensionality and depth, spec.md §6's
// build-time parameters, loaded here as startup config instead.
type SpaceConfig struct {
	D          int     `mapstructure:"d"`
	Dmax       uint8   `mapstructure:"dmax"`
	GridExtent float64 `mapstructure:"grid_extent"`
}

// RunConfig is the refinement policy spec.md §2/§4.11 names: the maximum
// number of points a leaf octant may hold before PointsToOctree refines
// it further.
type RunConfig struct {
	NpMax int `mapstructure:"np_max"`
}

// LogConfig holds the log section of the configuration. It is loaded with
// the rest of Config, but no code in the module reads it and the module
// emits no log output.
type LogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
}

// ClusterConfig selects and parameterizes the comm.Comm transport: "local"
// (in-process simulation, every test in this module) or "tcp" (a real
// multi-process mesh, addrs one per rank).
type ClusterConfig struct {
	Transport string   `mapstructure:"transport"`
	Ranks     int      `mapstructure:"ranks"`
	Addrs     []string `mapstructure:"addrs"`
}

// Load reads configuration from configPath (or standard locations/env vars
// if empty), validates it, and returns it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("octree")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/octree")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// no config file: defaults + env vars only.
		} else if os.IsNotExist(err) {
			// explicit path given but missing: same fallback.
		} else {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	v.SetEnvPrefix("OCTREE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from in-memory content, useful for
// tests that want a config without touching the filesystem.
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("space.d", 3)
	v.SetDefault("space.dmax", 10)
	v.SetDefault("space.grid_extent", 1000.0)

	v.SetDefault("run.np_max", 200)

	v.SetDefault("log.enabled", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("cluster.transport", "local")
	v.SetDefault("cluster.ranks", 1)
}

// Validate enforces spec.md §7's overflow rule (D*Dmax+5 <= 64, so every
// Morton key fits in a uint64) and the cluster section's internal
// consistency. This is the startup-time stand-in for the spec's
// "caught at compile time" check: Go has no user-level constant
// assertions over values that start as runtime config.
func (c *Config) Validate() error {
	if c.Space.D != 2 && c.Space.D != 3 {
		return fmt.Errorf("space.d must be 2 or 3, got %d", c.Space.D)
	}
	if c.Space.Dmax == 0 {
		return fmt.Errorf("space.dmax must be >= 1")
	}
	if c.Space.D*int(c.Space.Dmax)+5 > 64 {
		return fmt.Errorf("space.d*space.dmax+5 = %d exceeds 64", c.Space.D*int(c.Space.Dmax)+5)
	}
	if c.Run.NpMax < 1 {
		return fmt.Errorf("run.np_max must be >= 1")
	}
	switch c.Cluster.Transport {
	case "local":
		if c.Cluster.Ranks < 1 {
			return fmt.Errorf("cluster.ranks must be >= 1 for transport=local")
		}
	case "tcp":
		if len(c.Cluster.Addrs) < 1 {
			return fmt.Errorf("cluster.addrs must list at least one address for transport=tcp")
		}
	default:
		return fmt.Errorf("unsupported cluster.transport: %q", c.Cluster.Transport)
	}
	return nil
}

// NewLocalComms returns one in-process comm.Comm per rank; this and
// NewTCPComm are the only two ways a caller obtains a comm.Comm — the core
// never opens sockets or spawns goroutines on its own behalf outside these
// constructors, per spec.md §5's "only collective primitives block" and
// §7's "no surprise side effects."
func (c *Config) NewLocalComms() []comm.Comm {
	return comm.NewLocal(c.Cluster.Ranks)
}

// NewTCPComm connects this process, as rank self, to the mesh described by
// cluster.addrs: the realistic multi-process counterpart to NewLocalComms,
// where each process calls this once with its own rank.
func (c *Config) NewTCPComm(ctx context.Context, self int) (comm.Comm, error) {
	return comm.NewTCP(ctx, self, c.Cluster.Addrs)
}
