package cmd

import (
	"context"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-ffsp/internal/runner"
	"github.com/deploymenttheory/go-ffsp/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the eraseblock hierarchy interactively",
	Long: `Open the interactive browser. Arrow keys move, enter selects, esc goes
back, tab switches pane, r reloads and q quits. With reload_interval set
the tree is reread periodically; a failed reload keeps the previous
snapshot on screen.

Logs go to log_file while the browser owns the terminal.`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.LogFile == "" {
			appCtx.SetLogOutput(io.Discard)
		}
		if appCtx.NoColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}

		ctrl, err := newController()
		if err != nil {
			return err
		}
		defer ctrl.Close()

		r := runner.New(appCtx.Logger)
		debugDir := cfg.DebugDirPath()
		status := func(ctx context.Context) runner.MountStatus {
			return r.Status(ctx, cfg.Mountpoint, debugDir)
		}

		ctx := cmd.Context()
		return tui.Run(ctx, tui.New(ctx, ctrl, tui.Options{
			Interval: cfg.ReloadInterval,
			Status:   status,
			Title:    debugDir,
		}))
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)

	browseCmd.Flags().Duration("interval", 0, "reload interval, e.g. 2s (0 disables)")
	viper.BindPFlag("reload_interval", browseCmd.Flags().Lookup("interval"))
}
