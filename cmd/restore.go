package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"kabu-vault/internal/snapshot"
)

var (
	restoreYes      bool
	restoreNoSafety bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-id>",
	Short: "Restore a snapshot over the live database and uploads",
	Long: `Restore the given snapshot over the live SQLite database and the
uploads directory.

The snapshot is fully validated first: every member's checksum must
match before any live data is touched. Unless --no-safety is given, a
safety snapshot of the current live state is taken so the restore can
itself be undone. Restoring is destructive and asks for explicit
confirmation; type "yes" to proceed, or pass --yes to skip the prompt.

Examples:
  kabu-vault restore 20250115_031500
  kabu-vault restore 20250115_031500 --yes
  kabu-vault restore 20250115_031500 --no-safety`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "skip the confirmation prompt")
	restoreCmd.Flags().BoolVar(&restoreNoSafety, "no-safety", false, "do not take a safety snapshot of the current state")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	printer := newPrinter()
	id := args[0]

	manager, err := newManager(printer)
	if err != nil {
		printer.Errorf("%v", err)
		return err
	}

	printer.Headerf("Restoring snapshot %s", id)

	result, err := manager.Restore(cmd.Context(), id, snapshot.RestoreOptions{
		AutoApprove:      restoreYes,
		NoSafetySnapshot: restoreNoSafety,
	})
	if err != nil {
		printer.Errorf("Restore failed: %v", err)
		return err
	}

	printer.Successf("Snapshot %s restored in %s", result.SnapshotID, result.Duration.Round(time.Millisecond))
	for _, member := range result.Restored {
		printer.Infof("Restored %s", member)
	}
	if result.SafetySnapshotID != "" {
		printer.Infof("Previous state saved as snapshot %s", result.SafetySnapshotID)
	}
	return nil
}
