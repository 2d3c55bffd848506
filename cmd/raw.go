package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-ffsp/pkg/app/inspect"
)

var rawCmd = &cobra.Command{
	Use:   "raw DOCUMENT",
	Short: "Print one dump document verbatim",
	Long: `Print one document of the debug tree pretty printed in its original key
order. DOCUMENT is a path below the debug directory or a level and an id.

Examples:
  ffsp-inspect raw super
  ffsp-inspect raw metrics
  ffsp-inspect raw eraseblocks.d/3
  ffsp-inspect raw cluster 130
  ffsp-inspect raw inode:7`,

	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := inspect.HandleRaw(appCtx, &inspect.RawRequest{
			DebugDir: cfg.DebugDirPath(),
			Document: strings.Join(args, " "),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rawCmd)
}
