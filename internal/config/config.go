// Package config loads inspector settings from file, environment and flags.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-ffsp/internal/runner"
	"github.com/deploymenttheory/go-ffsp/internal/types"
)

// Config holds the inspector configuration
type Config struct {
	Mountpoint string `mapstructure:"mountpoint"`
	DebugDir   string `mapstructure:"debug_dir"`

	ContainerPath string `mapstructure:"container_path"`
	ContainerSize string `mapstructure:"container_size"`
	MkfsPath      string `mapstructure:"mkfs_path"`
	MountPath     string `mapstructure:"mount_path"`

	ClusterSize        string `mapstructure:"cluster_size"`
	EraseSize          string `mapstructure:"erase_size"`
	OpenInodes         int    `mapstructure:"open_inodes"`
	OpenEraseblocks    int    `mapstructure:"open_eraseblocks"`
	ReserveEraseblocks int    `mapstructure:"reserve_eraseblocks"`
	WriteEraseblocks   int    `mapstructure:"write_eraseblocks"`

	ReloadInterval time.Duration `mapstructure:"reload_interval"`
	ReloadWorkers  int           `mapstructure:"reload_workers"`
	LoadTimeout    time.Duration `mapstructure:"load_timeout"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// SetDefaults registers the default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mountpoint", "/mnt/ffsp")
	v.SetDefault("debug_dir", "")
	v.SetDefault("container_path", "./ffsp.img")
	v.SetDefault("container_size", "64MiB")
	v.SetDefault("mkfs_path", "mkfs.ffsp")
	v.SetDefault("mount_path", "mount.ffsp")
	v.SetDefault("cluster_size", "4KiB")
	v.SetDefault("erase_size", "1MiB")
	v.SetDefault("open_inodes", 100)
	v.SetDefault("open_eraseblocks", 5)
	v.SetDefault("reserve_eraseblocks", 3)
	v.SetDefault("write_eraseblocks", 5)
	v.SetDefault("reload_interval", 0)
	v.SetDefault("reload_workers", 8)
	v.SetDefault("load_timeout", 30*time.Second)
	v.SetDefault("log_level", "")
	v.SetDefault("log_file", "")
}

// Load reads the configuration into v. An explicit file must exist; the
// search path may come up empty, in which case defaults apply.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("ffsp-inspect")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.ffsp")
		v.AddConfigPath("/etc/ffsp")
	}

	SetDefaults(v)

	// Allow environment variables
	v.SetEnvPrefix("FFSP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be caught by unmarshaling
func (c *Config) Validate() error {
	if c.Mountpoint == "" && c.DebugDir == "" {
		return fmt.Errorf("either mountpoint or debug_dir must be set")
	}
	if c.ReloadInterval < 0 {
		return fmt.Errorf("reload_interval cannot be negative")
	}
	if c.ReloadWorkers < 0 {
		return fmt.Errorf("reload_workers cannot be negative")
	}
	if c.LoadTimeout < 0 {
		return fmt.Errorf("load_timeout cannot be negative")
	}
	for key, val := range map[string]string{
		"container_size": c.ContainerSize,
		"cluster_size":   c.ClusterSize,
		"erase_size":     c.EraseSize,
	} {
		if _, err := ParseSize(val); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

// DebugDirPath returns the debug directory, defaulting to the .FFSP
// directory under the mount point.
func (c *Config) DebugDirPath() string {
	if c.DebugDir != "" {
		return c.DebugDir
	}
	return filepath.Join(c.Mountpoint, types.DebugDirName)
}

// Geometry returns the mkfs parameters. Sizes were checked by Validate.
func (c *Config) Geometry() runner.Geometry {
	cs, _ := ParseSize(c.ClusterSize)
	es, _ := ParseSize(c.EraseSize)
	return runner.Geometry{
		ClusterSize:        cs,
		EraseSize:          es,
		OpenInodes:         c.OpenInodes,
		OpenEraseblocks:    c.OpenEraseblocks,
		ReserveEraseblocks: c.ReserveEraseblocks,
		WriteEraseblocks:   c.WriteEraseblocks,
	}
}

// ContainerBytes returns the container size in bytes.
func (c *Config) ContainerBytes() uint64 {
	n, _ := ParseSize(c.ContainerSize)
	return n
}

var sizeUnits = []struct {
	suffix string
	mult   uint64
}{
	{"GiB", 1 << 30},
	{"MiB", 1 << 20},
	{"KiB", 1 << 10},
	{"B", 1},
}

// ParseSize parses a byte count with an optional B, KiB, MiB or GiB suffix.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := uint64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > ^uint64(0)/mult {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return n * mult, nil
}

// FormatSize renders n with the largest binary suffix that divides it.
func FormatSize(n uint64) string {
	for _, u := range sizeUnits {
		if n != 0 && n%u.mult == 0 {
			return strconv.FormatUint(n/u.mult, 10) + u.suffix
		}
	}
	return strconv.FormatUint(n, 10) + "B"
}
