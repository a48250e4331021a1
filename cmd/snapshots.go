package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kabu-vault/internal/confirmation"
)

var (
	pruneDryRun bool
	pruneYes    bool
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List, validate and prune snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE:  runSnapshotsList,
}

var snapshotsValidateCmd = &cobra.Command{
	Use:   "validate [snapshot-id]",
	Short: "Verify snapshot checksums and metadata",
	Long: `Verify that a snapshot's member files exist, match the sizes and
SHA-256 checksums recorded in its metadata, and agree with the
checksum sidecar files. Without an argument, every snapshot under
the root is validated.

Examples:
  kabu-vault snapshots validate
  kabu-vault snapshots validate 20250115_031500`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSnapshotsValidate,
}

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete snapshots that fall outside the retention policy",
	Long: `Apply the retention policy: snapshots older than max_age_days or in
excess of max_count are deleted. With --dry-run, the doomed snapshots
are listed but nothing is removed. Actual deletion asks for
confirmation; pass --yes to skip the prompt.

Examples:
  kabu-vault snapshots prune --dry-run
  kabu-vault snapshots prune --yes`,
	RunE: runSnapshotsPrune,
}

func init() {
	snapshotsPruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "show what would be deleted without deleting")
	snapshotsPruneCmd.Flags().BoolVarP(&pruneYes, "yes", "y", false, "skip the confirmation prompt")

	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsValidateCmd)
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	printer := newPrinter()

	manager, err := newManager(printer)
	if err != nil {
		printer.Errorf("%v", err)
		return err
	}

	infos, err := manager.List()
	if err != nil {
		printer.Errorf("Failed to list snapshots: %v", err)
		return err
	}
	if len(infos) == 0 {
		printer.Infof("No snapshots found under %s", manager.Store().Root())
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		kind := "backup"
		if info.Safety {
			kind = "safety"
		}
		encrypted := ""
		if info.Encrypted {
			encrypted = "yes"
		}
		rows = append(rows, []string{
			info.ID,
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			formatSize(info.TotalSize),
			fmt.Sprintf("%d", info.Members),
			kind,
			encrypted,
		})
	}

	printer.Headerf("Snapshots (%d)", len(infos))
	printer.Table([]string{"ID", "Created", "Size", "Members", "Type", "Encrypted"}, rows)

	var total int64
	for _, info := range infos {
		total += info.TotalSize
	}
	printer.Plainf("%d snapshot(s), %s on disk", len(infos), formatSize(total))
	return nil
}

func runSnapshotsValidate(cmd *cobra.Command, args []string) error {
	printer := newPrinter()

	manager, err := newManager(printer)
	if err != nil {
		printer.Errorf("%v", err)
		return err
	}

	if len(args) == 1 {
		report := manager.Validate(args[0])
		if !report.Valid {
			printer.Errorf("Snapshot %s is invalid: %s", report.ID, report.Summarize())
			return fmt.Errorf("snapshot %s failed validation", report.ID)
		}
		printer.Successf("Snapshot %s is valid", report.ID)
		return nil
	}

	reports, err := manager.ValidateAll()
	if err != nil {
		printer.Errorf("Validation failed: %v", err)
		return err
	}
	if len(reports) == 0 {
		printer.Infof("No snapshots to validate")
		return nil
	}

	invalid := 0
	for _, report := range reports {
		if report.Valid {
			printer.Successf("%s valid", report.ID)
		} else {
			invalid++
			printer.Errorf("%s invalid: %s", report.ID, report.Summarize())
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d snapshot(s) failed validation", invalid, len(reports))
	}
	printer.Infof("All %d snapshot(s) valid", len(reports))
	return nil
}

func runSnapshotsPrune(cmd *cobra.Command, args []string) error {
	printer := newPrinter()

	manager, err := newManager(printer)
	if err != nil {
		printer.Errorf("%v", err)
		return err
	}

	// always plan first so the user sees what a real run would delete
	preview, err := manager.Prune(cmd.Context(), true)
	if err != nil {
		printer.Errorf("Prune failed: %v", err)
		return err
	}
	if len(preview.Deleted) == 0 {
		printer.Infof("Nothing to prune (%d snapshot(s) examined)", preview.Examined)
		return nil
	}
	for _, id := range preview.Deleted {
		printer.Warnf("Would delete %s", id)
	}
	if pruneDryRun {
		return nil
	}

	ok, err := confirmation.NewService(printer).ConfirmDestructive(
		fmt.Sprintf("Pruning will permanently delete %d snapshot(s).", len(preview.Deleted)),
		pruneYes,
	)
	if err != nil {
		return err
	}
	if !ok {
		printer.Infof("Prune cancelled")
		return nil
	}

	result, err := manager.Prune(cmd.Context(), false)
	if err != nil {
		printer.Errorf("Prune failed: %v", err)
		return err
	}
	for _, id := range result.Deleted {
		printer.Successf("Deleted %s", id)
	}
	return nil
}
