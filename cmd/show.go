package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-ffsp/internal/export"
	"github.com/deploymenttheory/go-ffsp/pkg/app"
	"github.com/deploymenttheory/go-ffsp/pkg/app/inspect"
)

var (
	// Drill-down selection
	showEraseblock uint64
	showCluster    uint64

	// Decode an export instead of reading the live tree
	showFrom string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the superblock, metrics and eraseblocks of one snapshot",
	Long: `Reload the debug tree once and print the superblock, the metrics and the
eraseblock table. Select an eraseblock to list its clusters, and a cluster
of that eraseblock to list its inodes.

Examples:
  # Overview of the file system mounted at /mnt/ffsp
  ffsp-inspect show --mountpoint /mnt/ffsp

  # Clusters of eraseblock 4
  ffsp-inspect show --eraseblock 4

  # Inodes of cluster 130 as JSON
  ffsp-inspect show --eraseblock 4 --cluster 130 -o json

  # Print a snapshot written by export
  ffsp-inspect show --from snapshot.ffsp.zst -o yaml`,

	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showFrom != "" {
			return runShowExport(cmd, showFrom)
		}
		return runShow(cmd)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Uint64Var(&showEraseblock, "eraseblock", 0, "eraseblock to select")
	showCmd.Flags().Uint64Var(&showCluster, "cluster", 0, "cluster of the selected eraseblock to select")
	showCmd.Flags().StringVar(&showFrom, "from", "", "print a snapshot export instead of the live tree")

	showCmd.MarkFlagsMutuallyExclusive("from", "eraseblock")
	showCmd.MarkFlagsMutuallyExclusive("from", "cluster")
}

// targetFromFlags reads the drill-down flags of cmd.
func targetFromFlags(cmd *cobra.Command, eraseblock, cluster uint64) app.Target {
	return app.Target{
		Eraseblock:    eraseblock,
		HasEraseblock: cmd.Flags().Changed("eraseblock"),
		Cluster:       cluster,
		HasCluster:    cmd.Flags().Changed("cluster"),
	}
}

func runShow(cmd *cobra.Command) error {
	if appCtx.Verbose {
		appCtx.SetProgress(func(message string, percent int) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", percent, message)
		})
	}

	request := &inspect.Request{
		DebugDir: cfg.DebugDirPath(),
		Target:   targetFromFlags(cmd, showEraseblock, showCluster),
		Workers:  cfg.ReloadWorkers,
	}

	response, err := inspect.Handle(appCtx, request)
	if err != nil {
		return err
	}

	if appCtx.Verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), inspect.FormatSummary(response))
	}
	return inspect.FormatOutput(cmd.OutOrStdout(), response, appCtx.OutputFormat)
}

func runShowExport(cmd *cobra.Command, path string) error {
	if appCtx.OutputFormat == "table" {
		return app.NewError(app.ErrCodeInvalidInput, "exports can only be printed as json or yaml", nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "cannot open export", err)
	}
	defer f.Close()

	doc, err := export.Read(f)
	if err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "cannot read export", err)
	}
	appCtx.Logger.WithField("exported_at", doc.ExportedAt).Debug("export decoded")
	return inspect.FormatOutput(cmd.OutOrStdout(), doc.Snapshot, appCtx.OutputFormat)
}
