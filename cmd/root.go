package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-ffsp/internal/config"
	"github.com/deploymenttheory/go-ffsp/pkg/app"
)

const version = "0.1.0-dev"

var (
	// Global output flags
	verbose      bool
	quiet        bool
	noColor      bool
	outputFormat string

	// Config file, everything else goes through viper
	cfgFile string

	cfg     *config.Config
	appCtx  *app.Context
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "ffsp-inspect",
	Short: "Inspector for the ffsp flash file system debug dump",
	Long: `ffsp-inspect reads the debug tree a mounted ffsp file system exposes
under <mountpoint>/.FFSP and presents the superblock, the I/O metrics and
the eraseblock -> cluster -> inode hierarchy. It never writes to the tree.

Commands:
  show        Print one snapshot, optionally drilled down to a cluster
  raw         Print one dump document verbatim
  browse      Browse the hierarchy interactively
  export      Write a compressed snapshot file
  mcp         Serve the inspector as MCP tools on stdio
  fs          Create, format, mount and unmount an ffsp container`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	pf.StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	pf.BoolVar(&noColor, "no-color", false, "disable colors in the browser (NO_COLOR is honored too)")
	pf.StringVar(&cfgFile, "config", "", "config file (default ./ffsp-inspect.yaml)")

	pf.String("mountpoint", "", "mount point of the ffsp file system")
	pf.String("debug-dir", "", "debug directory (default <mountpoint>/.FFSP)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "write logs to this file instead of stderr")
	pf.Duration("timeout", 0, "limit for loading one snapshot, e.g. 10s (default 30s, 0 disables)")

	// Flags override file and environment
	viper.BindPFlag("mountpoint", pf.Lookup("mountpoint"))
	viper.BindPFlag("debug_dir", pf.Lookup("debug-dir"))
	viper.BindPFlag("log_level", pf.Lookup("log-level"))
	viper.BindPFlag("log_file", pf.Lookup("log-file"))
	viper.BindPFlag("load_timeout", pf.Lookup("timeout"))
}

// setup loads the configuration and builds the application context shared
// by every command.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	appCtx = app.NewContext()
	appCtx.Context = cmd.Context()
	appCtx.OutputFormat = GetOutputFormat()
	appCtx.Verbose = GetVerbose()
	appCtx.Quiet = GetQuiet()
	appCtx.NoColor = noColor || os.Getenv("NO_COLOR") != ""
	appCtx.DefaultTimeout = cfg.LoadTimeout
	appCtx.ApplyVerbosity(cfg.LogLevel)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		appCtx.SetLogOutput(f)
		appCtx.Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	appCtx.Logger.WithFields(logrus.Fields{
		"config":    viper.ConfigFileUsed(),
		"debug_dir": cfg.DebugDirPath(),
	}).Debug("configuration loaded")
	return nil
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the output format
func GetOutputFormat() string {
	return outputFormat
}
