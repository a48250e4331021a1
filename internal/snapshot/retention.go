package snapshot

import (
	"time"

	"kabu-vault/internal/logging"
)

// RetentionManager decides which snapshots are pruned
type RetentionManager interface {
	// Plan returns the snapshots that the policy would delete
	Plan(snapshots []Info, now time.Time) []Info
	// Sweep applies the policy against the store
	Sweep(store *LocalStore, dryRun bool) (*SweepResult, error)
}

// SweepResult summarizes a retention sweep
type SweepResult struct {
	Examined int      `json:"examined"`
	Deleted  []string `json:"deleted"`
	DryRun   bool     `json:"dry_run"`
}

type retentionManager struct {
	config RetentionConfig
	logger *logging.Logger
}

// NewRetentionManager creates a retention manager for the given policy
func NewRetentionManager(config RetentionConfig, logger *logging.Logger) RetentionManager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &retentionManager{config: config, logger: logger}
}

// Plan selects snapshots for deletion by age, then trims to the
// count limit. Snapshots are expected newest first, as returned by
// LocalStore.List. Safety snapshots survive the age rule when
// KeepSafety is set, but still count against MaxCount.
func (rm *retentionManager) Plan(snapshots []Info, now time.Time) []Info {
	if !rm.config.Enabled {
		return nil
	}

	var doomed []Info
	seen := make(map[string]bool)

	if rm.config.MaxAgeDays > 0 {
		cutoff := now.AddDate(0, 0, -rm.config.MaxAgeDays)
		for _, snap := range snapshots {
			if snap.CreatedAt.IsZero() || !snap.CreatedAt.Before(cutoff) {
				continue
			}
			if snap.Safety && rm.config.KeepSafety {
				continue
			}
			doomed = append(doomed, snap)
			seen[snap.ID] = true
		}
	}

	if rm.config.MaxCount > 0 {
		kept := 0
		for _, snap := range snapshots {
			if seen[snap.ID] {
				continue
			}
			kept++
			if kept > rm.config.MaxCount {
				doomed = append(doomed, snap)
				seen[snap.ID] = true
			}
		}
	}

	return doomed
}

// Sweep lists the store, plans deletions and removes the selected
// snapshots. With dryRun set nothing is deleted.
func (rm *retentionManager) Sweep(store *LocalStore, dryRun bool) (*SweepResult, error) {
	snapshots, err := store.List()
	if err != nil {
		return nil, err
	}

	result := &SweepResult{
		Examined: len(snapshots),
		DryRun:   dryRun,
	}

	for _, snap := range rm.Plan(snapshots, time.Now()) {
		if dryRun {
			rm.logger.WithFields(map[string]interface{}{
				"snapshot": snap.ID,
				"created":  snap.CreatedAt,
			}).Info("Would delete snapshot")
			result.Deleted = append(result.Deleted, snap.ID)
			continue
		}

		if err := store.Delete(snap.ID); err != nil {
			rm.logger.WithFields(map[string]interface{}{
				"snapshot": snap.ID,
				"error":    err.Error(),
			}).Warn("Failed to delete snapshot, continuing sweep")
			continue
		}
		result.Deleted = append(result.Deleted, snap.ID)
	}

	rm.logger.LogRetentionSweep(result.Examined, len(result.Deleted), dryRun)
	return result, nil
}
