package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-ffsp/internal/dumptest"
	"github.com/deploymenttheory/go-ffsp/pkg/app"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeStderr(t, args...)
	return out, err
}

func executeStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func debugTree(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".FFSP")
	tree := dumptest.New().
		Super(0, 1).
		Metrics(1, 2, 3, 4, 5, 6, 0).
		Eraseblock(0, 0x00, 10).
		Eraseblock(1, 0x04, 20).
		Cluster(10, 0).
		Cluster(20, 4096, 3).
		Inode(3, 42, 0o100644)
	require.NoError(t, tree.WriteDir(dir))
	return dir
}

func TestCommands(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := debugTree(t)
	mountpoint := filepath.Dir(dir)

	t.Run("show json", func(t *testing.T) {
		out, err := execute(t, "show", "--debug-dir", dir, "-o", "json")
		require.NoError(t, err)

		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.NotEmpty(t, resp["generation"])
		assert.Len(t, resp["eraseblocks"], 2)
	})

	t.Run("show table", func(t *testing.T) {
		out, err := execute(t, "show", "--debug-dir", dir, "-o", "table")
		require.NoError(t, err)
		assert.Contains(t, out, "SUPERBLOCK")
		assert.Contains(t, out, "file_inode")
	})

	t.Run("raw", func(t *testing.T) {
		out, err := execute(t, "raw", "cluster", "20", "--debug-dir", dir)
		require.NoError(t, err)
		assert.Contains(t, out, `"offset": 4096`)
	})

	t.Run("raw unknown document", func(t *testing.T) {
		_, err := execute(t, "raw", "journal", "--debug-dir", dir)
		assert.Error(t, err)
	})

	t.Run("fs status", func(t *testing.T) {
		out, err := execute(t, "fs", "status", "--debug-dir", dir, "--mountpoint", mountpoint, "-o", "json")
		require.NoError(t, err)

		var status statusInfo
		require.NoError(t, json.Unmarshal([]byte(out), &status))
		assert.True(t, status.Mounted)
		assert.True(t, status.DebugDirPresent)
		assert.Equal(t, dir, status.DebugDir)
	})

	t.Run("export and show from", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "snap.ffsp.zst")
		out, err := execute(t, "export", file, "--debug-dir", dir, "-o", "table")
		require.NoError(t, err)
		assert.Contains(t, out, "exported generation")

		_, err = execute(t, "export", file, "--debug-dir", dir)
		assert.Error(t, err, "existing file is kept without --force")

		out, err = execute(t, "show", "--from", file, "-o", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "generation:")
		assert.Contains(t, out, "file_inode")

		_, err = execute(t, "show", "--from", file, "-o", "table")
		assert.Error(t, err)
	})

	// Flag values stick between runs, so these come last and clear --from.
	t.Run("show verbose reports progress", func(t *testing.T) {
		_, stderr, err := executeStderr(t, "show", "--from", "", "--debug-dir", dir, "-o", "json", "-v")
		require.NoError(t, err)
		assert.Contains(t, stderr, "[ 10%] Reading superblock...")
		assert.Contains(t, stderr, "[100%] Complete")
	})

	t.Run("show timeout", func(t *testing.T) {
		_, err := execute(t, "show", "--from", "", "--debug-dir", dir, "--timeout", "1ns")
		var ce *app.CommonError
		require.True(t, errors.As(err, &ce), "got %v", err)
		assert.Equal(t, app.ErrCodeTimeout, ce.Code)
	})
}
