package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-ffsp/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the inspector as MCP tools on stdio",
	Long: `Serve the reload controller and the navigator as Model Context Protocol
tools over stdin/stdout: reload, superblock, metrics, eraseblocks,
select_eraseblock, select_cluster, clear_selection and selection.

Logs stay on stderr or log_file; stdout carries the protocol.`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := newController()
		if err != nil {
			return err
		}
		defer ctrl.Close()

		s := mcptools.NewServer(ctrl, version)
		appCtx.Logger.WithField("debug_dir", cfg.DebugDirPath()).Info("serving MCP tools on stdio")
		return server.ServeStdio(s)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
