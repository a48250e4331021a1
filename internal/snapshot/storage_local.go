package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore manages snapshot directories under the configured root
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, NewConfigurationError("snapshot root directory is required", nil)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, NewStorageError("failed to create snapshot root", err).WithContext("root", root)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the snapshot root directory
func (s *LocalStore) Root() string {
	return s.root
}

// Path returns the directory for a snapshot ID
func (s *LocalStore) Path(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.root, id), nil
}

// validateID rejects IDs that are not plain timestamp directory names
func validateID(id string) error {
	if id == "" {
		return NewValidationError("snapshot id is required", nil)
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return NewValidationError(fmt.Sprintf("invalid snapshot id: %s", id), nil)
	}
	if !IsSnapshotID(id) {
		return NewValidationError(fmt.Sprintf("snapshot id must be a timestamp like 20250115_031500, got %s", id), nil)
	}
	return nil
}

// List returns all snapshots, newest first
func (s *LocalStore) List() ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewStorageError("failed to read snapshot root", err).WithContext("root", s.root)
	}

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() || !IsSnapshotID(entry.Name()) {
			continue
		}

		info := Info{
			ID:   entry.Name(),
			Path: filepath.Join(s.root, entry.Name()),
		}
		if t, err := ParseID(entry.Name()); err == nil {
			info.CreatedAt = t
		}

		if meta, err := s.LoadMetadata(entry.Name()); err == nil {
			info.TotalSize = meta.TotalSize
			info.Members = len(meta.Members)
			info.Encrypted = meta.Encrypted
			info.Safety = meta.SafetyFor != ""
			if !meta.CreatedAt.IsZero() {
				info.CreatedAt = meta.CreatedAt
			}
		}

		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID > infos[j].ID
	})
	return infos, nil
}

// Exists reports whether a snapshot directory is present
func (s *LocalStore) Exists(id string) bool {
	path, err := s.Path(id)
	if err != nil {
		return false
	}
	stat, err := os.Stat(path)
	return err == nil && stat.IsDir()
}

// LoadMetadata reads and parses a snapshot's metadata.json
func (s *LocalStore) LoadMetadata(id string) (*Metadata, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(path, MetadataFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(fmt.Sprintf("snapshot %s has no metadata", id), err)
		}
		return nil, NewStorageError("failed to read metadata", err).WithContext("snapshot", id)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, NewCorruptionError("failed to parse metadata", err).WithContext("snapshot", id)
	}
	return &meta, nil
}

// WriteMetadata persists a snapshot's metadata.json
func (s *LocalStore) WriteMetadata(meta *Metadata) error {
	path, err := s.Path(meta.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return NewStorageError("failed to encode metadata", err).WithContext("snapshot", meta.ID)
	}
	if err := os.WriteFile(filepath.Join(path, MetadataFileName), data, 0644); err != nil {
		return NewStorageError("failed to write metadata", err).WithContext("snapshot", meta.ID)
	}
	return nil
}

// CreateDir creates a fresh snapshot directory. An existing directory
// with the same ID is an error, never overwritten.
func (s *LocalStore) CreateDir(id string) (string, error) {
	path, err := s.Path(id)
	if err != nil {
		return "", err
	}
	if err := os.Mkdir(path, 0755); err != nil {
		if os.IsExist(err) {
			return "", NewStorageError(fmt.Sprintf("snapshot %s already exists", id), err)
		}
		return "", NewStorageError("failed to create snapshot directory", err).WithContext("snapshot", id)
	}
	return path, nil
}

// Delete removes a snapshot directory and all of its members
func (s *LocalStore) Delete(id string) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewNotFoundError(fmt.Sprintf("snapshot %s not found", id), err)
	}
	if err := os.RemoveAll(path); err != nil {
		return NewStorageError("failed to delete snapshot", err).WithContext("snapshot", id)
	}
	return nil
}

// MemberFiles returns the file names present in a snapshot directory
func (s *LocalStore) MemberFiles(id string) ([]string, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, NewStorageError("failed to read snapshot directory", err).WithContext("snapshot", id)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// HealthCheck verifies the root is writable
func (s *LocalStore) HealthCheck() error {
	probe := filepath.Join(s.root, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return NewStorageError("snapshot root is not writable", err).WithContext("root", s.root)
	}
	return os.Remove(probe)
}
