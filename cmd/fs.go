package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-ffsp/internal/config"
	"github.com/deploymenttheory/go-ffsp/internal/display"
	"github.com/deploymenttheory/go-ffsp/internal/runner"
	"github.com/deploymenttheory/go-ffsp/pkg/app"
)

var (
	mountDebug        bool
	mountSingleThread bool
)

var fsCmd = &cobra.Command{
	Use:   "fs",
	Short: "Create, format, mount and unmount an ffsp container",
	Long: `Wrappers around the external commands that prepare a file system for
inspection. Geometry and paths come from the configuration file, the
FFSP_* environment or the flags below.

Examples:
  ffsp-inspect fs create --size 128MiB
  ffsp-inspect fs mkfs
  ffsp-inspect fs mount --debug
  ffsp-inspect fs status
  ffsp-inspect fs unmount`,
}

var fsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a zeroed container file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, status := fsRunner(cmd)
		res, err := r.CreateContainer(cmd.Context(), status, cfg.ContainerPath, cfg.ContainerBytes())
		return report(cmd, "create container", res, err)
	},
}

var fsMkfsCmd = &cobra.Command{
	Use:   "mkfs",
	Short: "Format the container with mkfs.ffsp",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, status := fsRunner(cmd)
		res, err := r.Mkfs(cmd.Context(), status, cfg.MkfsPath, cfg.ContainerPath, cfg.Geometry())
		return report(cmd, "mkfs", res, err)
	},
}

var fsMountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount the container with mount.ffsp",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, status := fsRunner(cmd)
		res, err := r.Mount(cmd.Context(), status, runner.MountOptions{
			MountBinary:  cfg.MountPath,
			Container:    cfg.ContainerPath,
			Mountpoint:   cfg.Mountpoint,
			Debug:        mountDebug,
			SingleThread: mountSingleThread,
		})
		return report(cmd, "mount", res, err)
	},
}

var fsUnmountCmd = &cobra.Command{
	Use:   "unmount",
	Short: "Unmount the file system with fusermount",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, status := fsRunner(cmd)
		res, err := r.Unmount(cmd.Context(), status)
		return report(cmd, "unmount", res, err)
	},
}

var fsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the file system is mounted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, status := fsRunner(cmd)
		return formatStatus(cmd, status)
	},
}

func init() {
	rootCmd.AddCommand(fsCmd)
	fsCmd.AddCommand(fsCreateCmd, fsMkfsCmd, fsMountCmd, fsUnmountCmd, fsStatusCmd)

	pf := fsCmd.PersistentFlags()
	pf.String("container", "", "container file (default ./ffsp.img)")
	pf.String("size", "", "container size, e.g. 64MiB")
	pf.String("mkfs", "", "mkfs.ffsp binary")
	pf.String("mount-binary", "", "mount.ffsp binary")
	pf.String("clustersize", "", "cluster size, e.g. 4KiB")
	pf.String("erasesize", "", "eraseblock size, e.g. 1MiB")
	pf.Int("open-ino", 0, "number of open inodes")
	pf.Int("open-eb", 0, "number of open eraseblocks")
	pf.Int("reserve-eb", 0, "number of reserved eraseblocks")
	pf.Int("write-eb", 0, "eraseblocks written before garbage collection")

	for key, flag := range map[string]string{
		"container_path":      "container",
		"container_size":      "size",
		"mkfs_path":           "mkfs",
		"mount_path":          "mount-binary",
		"cluster_size":        "clustersize",
		"erase_size":          "erasesize",
		"open_inodes":         "open-ino",
		"open_eraseblocks":    "open-eb",
		"reserve_eraseblocks": "reserve-eb",
		"write_eraseblocks":   "write-eb",
	} {
		viper.BindPFlag(key, pf.Lookup(flag))
	}

	fsMountCmd.Flags().BoolVarP(&mountDebug, "debug", "d", false, "run mount.ffsp with debug output")
	fsMountCmd.Flags().BoolVarP(&mountSingleThread, "single-thread", "s", false, "run mount.ffsp single threaded")
}

func fsRunner(cmd *cobra.Command) (*runner.Runner, runner.MountStatus) {
	r := runner.New(appCtx.Logger)
	return r, r.Status(cmd.Context(), cfg.Mountpoint, cfg.DebugDirPath())
}

// report prints the command output and maps failures to application errors.
func report(cmd *cobra.Command, what string, res runner.Result, err error) error {
	if res.Output != "" && !appCtx.Quiet {
		fmt.Fprint(cmd.OutOrStdout(), res.Output)
	}
	if err != nil {
		return app.FromCore(what+" failed", err)
	}
	appCtx.Logger.WithField("argv", res.Argv).Info(what + " succeeded")
	return nil
}

// statusInfo is the printable form of a mount status
type statusInfo struct {
	Mounted         bool   `json:"mounted" yaml:"mounted"`
	Mountpoint      string `json:"mountpoint" yaml:"mountpoint"`
	DebugDir        string `json:"debug_dir" yaml:"debug_dir"`
	DebugDirPresent bool   `json:"debug_dir_present" yaml:"debug_dir_present"`
	InMountTable    bool   `json:"in_mount_table" yaml:"in_mount_table"`
	Device          string `json:"device,omitempty" yaml:"device,omitempty"`
	Fstype          string `json:"fstype,omitempty" yaml:"fstype,omitempty"`
	Container       string `json:"container" yaml:"container"`
	ContainerSize   string `json:"container_size" yaml:"container_size"`
}

func formatStatus(cmd *cobra.Command, s runner.MountStatus) error {
	info := statusInfo{
		Mounted:         s.Mounted(),
		Mountpoint:      s.Mountpoint,
		DebugDir:        s.DebugDir,
		DebugDirPresent: s.DebugDirPresent,
		InMountTable:    s.InMountTable,
		Device:          s.Device,
		Fstype:          s.Fstype,
		Container:       cfg.ContainerPath,
		ContainerSize:   config.FormatSize(cfg.ContainerBytes()),
	}
	if fi, err := os.Stat(cfg.ContainerPath); err == nil {
		info.ContainerSize = config.FormatSize(uint64(fi.Size()))
	}
	out := cmd.OutOrStdout()

	switch appCtx.OutputFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(info)
	case "table":
		return display.WriteRows(out, []display.Row{
			{Label: "state", Value: "[" + s.Indicator() + "] " + mountedWord(info.Mounted)},
			{Label: "mountpoint", Value: info.Mountpoint},
			{Label: "debug_dir", Value: info.DebugDir},
			{Label: "debug_dir_present", Value: strconv.FormatBool(info.DebugDirPresent)},
			{Label: "in_mount_table", Value: strconv.FormatBool(info.InMountTable)},
			{Label: "device", Value: orDash(info.Device)},
			{Label: "fstype", Value: orDash(info.Fstype)},
			{Label: "container", Value: info.Container},
			{Label: "container_size", Value: info.ContainerSize},
		})
	default:
		return fmt.Errorf("unsupported output format: %s", appCtx.OutputFormat)
	}
}

func mountedWord(mounted bool) string {
	if mounted {
		return "mounted"
	}
	return "not mounted"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
