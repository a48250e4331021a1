package snapshot

import (
	"os"
	"path/filepath"
	"strings"
)

// Validator checks snapshots for completeness and integrity
type Validator struct {
	store *LocalStore
}

// NewValidator creates a validator over a local store
func NewValidator(store *LocalStore) *Validator {
	return &Validator{store: store}
}

// Validate checks a single snapshot: metadata present and parseable,
// every recorded member on disk with a matching checksum sidecar.
// Checksums cover the files as stored, so encrypted members verify
// without the passphrase.
func (v *Validator) Validate(id string) *ValidationReport {
	report := &ValidationReport{ID: id}

	if !v.store.Exists(id) {
		report.Problems.Add("snapshot", "snapshot directory not found", id)
		return report
	}

	meta, err := v.store.LoadMetadata(id)
	if err != nil {
		report.Problems.Add("metadata", err.Error(), id)
		return report
	}

	if len(meta.Members) == 0 {
		report.Problems.Add("members", "snapshot records no members", id)
	}

	dir, err := v.store.Path(id)
	if err != nil {
		report.Problems.Add("snapshot", err.Error(), id)
		return report
	}

	for _, member := range meta.Members {
		path := filepath.Join(dir, member.FileName)

		stat, err := os.Stat(path)
		if err != nil {
			report.Problems.Add(member.Name, "member file missing", member.FileName)
			continue
		}
		if stat.Size() != member.Size {
			report.Problems.Add(member.Name, "member size does not match metadata", stat.Size())
		}

		recorded, _, err := ReadChecksumFile(path + ChecksumSuffix)
		if err != nil {
			report.Problems.Add(member.Name, "checksum sidecar missing or malformed", member.FileName+ChecksumSuffix)
			continue
		}
		if recorded != member.Checksum {
			report.Problems.Add(member.Name, "checksum sidecar disagrees with metadata", recorded)
			continue
		}

		actual, err := FileChecksum(path)
		if err != nil {
			report.Problems.Add(member.Name, "failed to hash member file", err.Error())
			continue
		}
		if actual != recorded {
			report.Problems.Add(member.Name, "checksum mismatch", actual)
		}
	}

	report.Valid = !report.Problems.HasErrors()
	return report
}

// ValidateAll validates every snapshot in the store
func (v *Validator) ValidateAll() ([]*ValidationReport, error) {
	snapshots, err := v.store.List()
	if err != nil {
		return nil, err
	}

	reports := make([]*ValidationReport, 0, len(snapshots))
	for _, snap := range snapshots {
		reports = append(reports, v.Validate(snap.ID))
	}
	return reports, nil
}

// Summarize renders a short description of the problems found
func (r *ValidationReport) Summarize() string {
	if r.Valid {
		return "ok"
	}
	parts := make([]string, 0, len(r.Problems))
	for _, p := range r.Problems {
		parts = append(parts, p.Field+": "+p.Message)
	}
	return strings.Join(parts, "; ")
}
