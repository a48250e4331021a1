package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a snapshot of the database and uploads",
	Long: `Create a timestamped snapshot of the live SQLite database and the
uploads directory under the snapshot root.

The database is copied with VACUUM INTO for a consistent image, the
uploads directory is packed into a compressed tar archive, and every
member gets a SHA-256 checksum sidecar. When retention is enabled,
old snapshots are pruned immediately after the backup.

Examples:
  kabu-vault backup
  kabu-vault backup --root /var/backups/kabu
  kabu-vault backup --db data/app.db --uploads data/uploads`,
	RunE: runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	printer := newPrinter()

	manager, err := newManager(printer)
	if err != nil {
		printer.Errorf("%v", err)
		return err
	}

	printer.Headerf("Creating snapshot")

	result, err := manager.Create(cmd.Context())
	if err != nil {
		printer.Errorf("Backup failed: %v", err)
		return err
	}

	printer.Successf("Snapshot %s created in %s", result.Metadata.ID, result.Duration.Round(time.Millisecond))
	printer.Infof("Location: %s", result.Path)
	printer.Infof("Size: %s across %d member(s)", formatSize(result.Metadata.TotalSize), len(result.Metadata.Members))
	if result.Metadata.Encrypted {
		printer.Infof("Members are encrypted")
	}

	for _, skipped := range result.Skipped {
		printer.Warnf("Skipped %s: source not found", skipped)
	}
	for _, pruned := range result.Pruned {
		printer.Infof("Pruned old snapshot %s", pruned)
	}
	return nil
}
