package snapshot

import (
	"fmt"
	"regexp"
	"time"
)

// snapshot directory names are timestamps in local time
const idTimeLayout = "20060102_150405"

var idPattern = regexp.MustCompile(`^\d{8}_\d{6}$`)

// Well-known file names inside a snapshot directory
const (
	DatabaseFileName = "app.db"
	UploadsBaseName  = "uploads.tar"
	MetadataFileName = "metadata.json"
	ChecksumSuffix   = ".sha256"
)

// Member names
const (
	MemberDatabase = "database"
	MemberUploads  = "uploads"
)

// Member describes one archived component of a snapshot
type Member struct {
	Name     string `json:"name"`
	FileName string `json:"file_name"`
	Source   string `json:"source"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Metadata is written as metadata.json inside each snapshot directory
type Metadata struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ToolVersion string    `json:"tool_version,omitempty"`
	Compression string    `json:"compression"`
	Encrypted   bool      `json:"encrypted"`
	Members     []Member  `json:"members"`
	TotalSize   int64     `json:"total_size"`
	SafetyFor   string    `json:"safety_for,omitempty"`
}

// Member returns the member with the given name, or nil
func (m *Metadata) Member(name string) *Member {
	for i := range m.Members {
		if m.Members[i].Name == name {
			return &m.Members[i]
		}
	}
	return nil
}

// Info summarizes a snapshot directory for listing
type Info struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	TotalSize int64     `json:"total_size"`
	Members   int       `json:"members"`
	Encrypted bool      `json:"encrypted"`
	Safety    bool      `json:"safety"`
}

// Result describes a completed snapshot run
type Result struct {
	Metadata Metadata      `json:"metadata"`
	Path     string        `json:"path"`
	Skipped  []string      `json:"skipped,omitempty"`
	Pruned   []string      `json:"pruned,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RestoreResult describes a completed restore
type RestoreResult struct {
	SnapshotID       string        `json:"snapshot_id"`
	SafetySnapshotID string        `json:"safety_snapshot_id,omitempty"`
	Restored         []string      `json:"restored"`
	Duration         time.Duration `json:"duration"`
}

// ValidationReport holds the findings for one snapshot
type ValidationReport struct {
	ID       string           `json:"id"`
	Valid    bool             `json:"valid"`
	Problems ValidationErrors `json:"problems,omitempty"`
}

// NewID formats a snapshot ID from a timestamp
func NewID(t time.Time) string {
	return t.Format(idTimeLayout)
}

// ParseID extracts the creation time from a snapshot ID
func ParseID(id string) (time.Time, error) {
	if !idPattern.MatchString(id) {
		return time.Time{}, fmt.Errorf("invalid snapshot id %q", id)
	}
	return time.ParseInLocation(idTimeLayout, id, time.Local)
}

// IsSnapshotID reports whether a directory name looks like a snapshot
func IsSnapshotID(name string) bool {
	if !idPattern.MatchString(name) {
		return false
	}
	_, err := time.ParseInLocation(idTimeLayout, name, time.Local)
	return err == nil
}
