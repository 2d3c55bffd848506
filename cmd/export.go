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
	exportEraseblock uint64
	exportCluster    uint64
	exportForce      bool
)

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write a compressed snapshot of the debug tree",
	Long: `Reload the debug tree once and write the snapshot, including the selected
branch, as zstd-compressed JSON to FILE. The file is read back to verify
it before the command returns. Print it later with show --from.

Examples:
  ffsp-inspect export before-gc.ffsp.zst
  ffsp-inspect export eb4.ffsp.zst --eraseblock 4`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Uint64Var(&exportEraseblock, "eraseblock", 0, "eraseblock to select before exporting")
	exportCmd.Flags().Uint64Var(&exportCluster, "cluster", 0, "cluster of the selected eraseblock to select before exporting")
	exportCmd.Flags().BoolVarP(&exportForce, "force", "f", false, "overwrite FILE if it exists")
}

func runExport(cmd *cobra.Command, path string) error {
	response, err := inspect.Handle(appCtx, &inspect.Request{
		DebugDir: cfg.DebugDirPath(),
		Target:   targetFromFlags(cmd, exportEraseblock, exportCluster),
		Workers:  cfg.ReloadWorkers,
	})
	if err != nil {
		return err
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if !exportForce {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "cannot create export file", err)
	}
	if err := export.Write(f, response.View()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}

	// Read it back
	rf, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen export file: %w", err)
	}
	defer rf.Close()
	doc, err := export.Read(rf)
	if err != nil {
		return fmt.Errorf("export verification failed: %w", err)
	}
	if doc.Snapshot.Generation != response.Generation {
		return fmt.Errorf("export verification failed: generation %s, want %s",
			doc.Snapshot.Generation, response.Generation)
	}

	if !appCtx.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "exported generation %s (%s) to %s\n",
			doc.Snapshot.Generation, inspect.FormatSummary(response), path)
	}
	return nil
}
