package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"4096", 4096, false},
		{"512B", 512, false},
		{"4KiB", 4096, false},
		{"64MiB", 64 << 20, false},
		{"2GiB", 2 << 30, false},
		{" 1 MiB ", 1 << 20, false},
		{"", 0, true},
		{"MiB", 0, true},
		{"-1KiB", 0, true},
		{"1.5MiB", 0, true},
		{"17179869184GiB", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "4KiB", FormatSize(4096))
	assert.Equal(t, "1MiB", FormatSize(1<<20))
	assert.Equal(t, "1000B", FormatSize(1000))
	assert.Equal(t, "0B", FormatSize(0))
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "/mnt/ffsp", cfg.Mountpoint)
	assert.Equal(t, "/mnt/ffsp/.FFSP", cfg.DebugDirPath())
	assert.Equal(t, uint64(64<<20), cfg.ContainerBytes())
	assert.Equal(t, 8, cfg.ReloadWorkers)
	assert.Zero(t, cfg.ReloadInterval)
	assert.Equal(t, 30*time.Second, cfg.LoadTimeout)

	g := cfg.Geometry()
	assert.Equal(t, uint64(4096), g.ClusterSize)
	assert.Equal(t, uint64(1<<20), g.EraseSize)
	assert.Equal(t, 100, g.OpenInodes)
	assert.Equal(t, 3, g.ReserveEraseblocks)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ffsp-inspect.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
mountpoint: /tmp/fs
debug_dir: /tmp/dump
cluster_size: 8KiB
reload_interval: 2s
`), 0o644))
	t.Setenv("FFSP_RELOAD_WORKERS", "3")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/dump", cfg.DebugDirPath())
	assert.Equal(t, uint64(8192), cfg.Geometry().ClusterSize)
	assert.Equal(t, 2*time.Second, cfg.ReloadInterval)
	assert.Equal(t, 3, cfg.ReloadWorkers)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(viper.New(), filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err, "an explicit config file must exist")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("erase_size: lots\n"), 0o644))
	_, err = Load(viper.New(), bad)
	assert.ErrorContains(t, err, "erase_size")

	negative := filepath.Join(dir, "negative.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("load_timeout: -1s\n"), 0o644))
	_, err = Load(viper.New(), negative)
	assert.ErrorContains(t, err, "load_timeout")
}
