package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kabu-vault/internal/logging"
)

// DatabaseAdapter produces consistent database copies and verifies
// restored files. The default adapter does plain file copies.
type DatabaseAdapter interface {
	// SnapshotTo writes a consistent copy of the live database at src
	// to dst
	SnapshotTo(ctx context.Context, src, dst string) error
	// IntegrityCheck verifies a database file after restore
	IntegrityCheck(ctx context.Context, path string) error
}

// Confirmer gates destructive operations on user approval
type Confirmer interface {
	ConfirmDestructive(prompt string, autoApprove bool) (bool, error)
}

// Manager orchestrates snapshot creation, restore, validation and
// pruning.
type Manager struct {
	config    *Config
	store     *LocalStore
	registry  *CodecRegistry
	validator *Validator
	retention RetentionManager
	logger    *logging.Logger

	db        DatabaseAdapter
	cipher    *Cipher
	offsite   OffsiteProvider
	confirmer Confirmer
	version   string
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithDatabaseAdapter sets the database copier used for the database
// member
func WithDatabaseAdapter(db DatabaseAdapter) ManagerOption {
	return func(m *Manager) { m.db = db }
}

// WithOffsite sets an offsite replication target
func WithOffsite(provider OffsiteProvider) ManagerOption {
	return func(m *Manager) { m.offsite = provider }
}

// WithConfirmer sets the confirmation gate for restores
func WithConfirmer(c Confirmer) ManagerOption {
	return func(m *Manager) { m.confirmer = c }
}

// WithVersion records the tool version in snapshot metadata
func WithVersion(version string) ManagerOption {
	return func(m *Manager) { m.version = version }
}

// NewManager creates a snapshot manager from configuration
func NewManager(config *Config, opts ...ManagerOption) (*Manager, error) {
	if config == nil {
		return nil, NewConfigurationError("configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := NewLocalStore(config.Root)
	if err != nil {
		return nil, err
	}
	if err := store.HealthCheck(); err != nil {
		return nil, err
	}

	m := &Manager{
		config:    config,
		store:     store,
		registry:  NewCodecRegistry(),
		validator: NewValidator(store),
		db:        fileCopyAdapter{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.NewDefaultLogger()
	}
	m.retention = NewRetentionManager(config.Retention, m.logger)

	if config.Encryption.Enabled {
		cipher, err := NewCipher(config.Passphrase())
		if err != nil {
			return nil, err
		}
		m.cipher = cipher
	}

	return m, nil
}

// Store exposes the underlying local store
func (m *Manager) Store() *LocalStore {
	return m.store
}

// List returns all snapshots, newest first
func (m *Manager) List() ([]Info, error) {
	return m.store.List()
}

// Validate checks one snapshot
func (m *Manager) Validate(id string) *ValidationReport {
	return m.validator.Validate(id)
}

// ValidateAll checks every snapshot
func (m *Manager) ValidateAll() ([]*ValidationReport, error) {
	return m.validator.ValidateAll()
}

// Create takes a snapshot of the configured sources
func (m *Manager) Create(ctx context.Context) (*Result, error) {
	return m.create(ctx, "")
}

func (m *Manager) create(ctx context.Context, safetyFor string) (*Result, error) {
	start := time.Now()
	done := m.logger.LogOperationStart("snapshot_create", map[string]interface{}{
		"root": m.config.Root,
	})

	result, err := m.createSnapshot(ctx, start, safetyFor)
	done(err)
	if err != nil {
		return nil, err
	}

	if safetyFor == "" {
		if m.config.Retention.Enabled {
			sweep, sweepErr := m.retention.Sweep(m.store, false)
			if sweepErr != nil {
				m.logger.Warnf("retention sweep failed: %v", sweepErr)
			} else {
				result.Pruned = sweep.Deleted
				m.pruneOffsite(ctx, sweep.Deleted)
			}
		}

		if m.offsite != nil {
			if err := m.offsite.Replicate(ctx, result.Path, result.Metadata.ID); err != nil {
				m.logger.Warnf("offsite replication to %s failed: %v", m.offsite.Name(), err)
			} else {
				m.logger.Infof("snapshot %s replicated to %s", result.Metadata.ID, m.offsite.Name())
			}
		}
	}

	result.Duration = time.Since(start)
	m.logger.LogSnapshotCreated(result.Metadata.ID, result.Path, len(result.Metadata.Members), result.Metadata.TotalSize, result.Duration)
	return result, nil
}

func (m *Manager) createSnapshot(ctx context.Context, start time.Time, safetyFor string) (*Result, error) {
	// IDs have one-second resolution, bump until free so a safety
	// snapshot can follow a backup taken the same second
	id := NewID(start)
	for i := 0; m.store.Exists(id) && i < 60; i++ {
		start = start.Add(time.Second)
		id = NewID(start)
	}
	if m.store.Exists(id) {
		return nil, NewStorageError(fmt.Sprintf("snapshot %s already exists, try again later", id), nil)
	}

	codec, err := m.registry.Get(m.config.Compression.Algorithm)
	if err != nil {
		return nil, err
	}

	dir, err := m.store.CreateDir(id)
	if err != nil {
		return nil, err
	}

	cleanup := func() { os.RemoveAll(dir) }

	meta := Metadata{
		ID:          id,
		CreatedAt:   start,
		ToolVersion: m.version,
		Compression: codec.Name(),
		Encrypted:   m.cipher != nil,
		SafetyFor:   safetyFor,
	}
	var skipped []string

	dbSrc := m.config.Sources.DatabasePath
	if _, statErr := os.Stat(dbSrc); statErr != nil {
		m.logger.LogMemberSkipped(MemberDatabase, dbSrc)
		skipped = append(skipped, MemberDatabase)
	} else {
		dest := filepath.Join(dir, DatabaseFileName)
		if err := m.db.SnapshotTo(ctx, dbSrc, dest); err != nil {
			cleanup()
			return nil, NewDatabaseError("failed to copy database", err).WithContext("source", dbSrc)
		}
		member, err := m.finalizeMember(MemberDatabase, dbSrc, dest)
		if err != nil {
			cleanup()
			return nil, err
		}
		meta.Members = append(meta.Members, member)
	}

	uploadsSrc := m.config.Sources.UploadsDir
	if stat, statErr := os.Stat(uploadsSrc); statErr != nil || !stat.IsDir() {
		m.logger.LogMemberSkipped(MemberUploads, uploadsSrc)
		skipped = append(skipped, MemberUploads)
	} else {
		dest := filepath.Join(dir, UploadsBaseName+codec.Extension())
		if _, _, err := ArchiveDirectory(uploadsSrc, dest, codec, m.config.Compression.Level); err != nil {
			cleanup()
			return nil, err
		}
		member, err := m.finalizeMember(MemberUploads, uploadsSrc, dest)
		if err != nil {
			cleanup()
			return nil, err
		}
		meta.Members = append(meta.Members, member)
	}

	if len(meta.Members) == 0 {
		cleanup()
		return nil, NewValidationError("no backup sources available, nothing to snapshot", nil).
			WithContext("database", dbSrc).
			WithContext("uploads", uploadsSrc)
	}

	for _, member := range meta.Members {
		meta.TotalSize += member.Size
	}

	if err := m.store.WriteMetadata(&meta); err != nil {
		cleanup()
		return nil, err
	}

	if m.config.Validation.VerifyAfterCreate {
		if report := m.validator.Validate(id); !report.Valid {
			cleanup()
			return nil, NewCorruptionError("snapshot failed verification after create: "+report.Summarize(), nil).
				WithContext("snapshot", id)
		}
	}

	return &Result{
		Metadata: meta,
		Path:     dir,
		Skipped:  skipped,
	}, nil
}

// finalizeMember optionally encrypts a member file, then records its
// size and checksum sidecar. Checksums cover the file as stored so
// validation never needs the passphrase.
func (m *Manager) finalizeMember(name, source, path string) (Member, error) {
	if m.cipher != nil {
		encPath, err := m.cipher.EncryptFile(path)
		if err != nil {
			return Member{}, err
		}
		path = encPath
	}

	stat, err := os.Stat(path)
	if err != nil {
		return Member{}, NewStorageError("failed to stat member file", err).WithContext("path", path)
	}

	checksum, err := FileChecksum(path)
	if err != nil {
		return Member{}, err
	}
	if err := WriteChecksumFile(path, checksum); err != nil {
		return Member{}, err
	}
	m.logger.LogChecksumVerification(name, true)

	return Member{
		Name:     name,
		FileName: filepath.Base(path),
		Source:   source,
		Size:     stat.Size(),
		Checksum: checksum,
	}, nil
}

// RestoreOptions control a restore run
type RestoreOptions struct {
	// AutoApprove skips the interactive confirmation
	AutoApprove bool
	// NoSafetySnapshot skips the pre-restore snapshot of live data
	NoSafetySnapshot bool
}

// Restore brings live data back to the state captured in a snapshot.
// The snapshot is fully verified before anything is overwritten, the
// user is asked to confirm, and the current live state is captured in
// a safety snapshot first.
func (m *Manager) Restore(ctx context.Context, id string, opts RestoreOptions) (*RestoreResult, error) {
	start := time.Now()

	report := m.validator.Validate(id)
	if !report.Valid {
		err := NewCorruptionError("refusing to restore, snapshot failed verification: "+report.Summarize(), nil).
			WithContext("snapshot", id)
		m.logger.LogRestore(id, "", time.Since(start), err)
		return nil, err
	}

	meta, err := m.store.LoadMetadata(id)
	if err != nil {
		return nil, err
	}
	if meta.Encrypted && m.cipher == nil {
		return nil, NewEncryptionError("snapshot is encrypted but no passphrase is configured", nil).
			WithContext("snapshot", id)
	}

	if m.confirmer != nil {
		ok, err := m.confirmer.ConfirmDestructive(
			fmt.Sprintf("Restoring snapshot %s will overwrite the live database and uploads.", id),
			opts.AutoApprove,
		)
		if err != nil {
			return nil, NewAbortedError("confirmation failed", err)
		}
		if !ok {
			return nil, NewAbortedError("restore cancelled by user", nil)
		}
	} else if !opts.AutoApprove {
		return nil, NewAbortedError("restore requires confirmation or auto-approve", nil)
	}

	result := &RestoreResult{SnapshotID: id}

	if !opts.NoSafetySnapshot {
		safety, err := m.create(ctx, id)
		if err != nil {
			if errors.Is(err, ErrValidation) {
				// no live data yet, nothing to protect
				m.logger.Warnf("skipping safety snapshot: %v", err)
			} else {
				return nil, NewStorageError("failed to create safety snapshot, restore aborted", err)
			}
		} else {
			result.SafetySnapshotID = safety.Metadata.ID
		}
	}

	snapDir, err := m.store.Path(id)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "kabu-vault-restore-")
	if err != nil {
		return nil, NewStorageError("failed to create work directory", err)
	}
	defer os.RemoveAll(workDir)

	if member := meta.Member(MemberDatabase); member != nil {
		if err := m.restoreDatabase(ctx, meta, member, snapDir, workDir); err != nil {
			m.logger.LogRestore(id, result.SafetySnapshotID, time.Since(start), err)
			return nil, err
		}
		result.Restored = append(result.Restored, MemberDatabase)
	}

	if member := meta.Member(MemberUploads); member != nil {
		if err := m.restoreUploads(meta, member, snapDir, workDir); err != nil {
			m.logger.LogRestore(id, result.SafetySnapshotID, time.Since(start), err)
			return nil, err
		}
		result.Restored = append(result.Restored, MemberUploads)
	}

	result.Duration = time.Since(start)
	m.logger.LogRestore(id, result.SafetySnapshotID, result.Duration, nil)
	return result, nil
}

// materializeMember returns a plaintext copy of a member file,
// decrypting into the work directory when needed.
func (m *Manager) materializeMember(meta *Metadata, member *Member, snapDir, workDir string) (string, error) {
	path := filepath.Join(snapDir, member.FileName)
	if !meta.Encrypted {
		return path, nil
	}

	encCopy := filepath.Join(workDir, member.FileName)
	if err := copyFile(path, encCopy); err != nil {
		return "", err
	}
	return m.cipher.DecryptFile(encCopy)
}

func (m *Manager) restoreDatabase(ctx context.Context, meta *Metadata, member *Member, snapDir, workDir string) error {
	src, err := m.materializeMember(meta, member, snapDir, workDir)
	if err != nil {
		return err
	}

	livePath := m.config.Sources.DatabasePath
	if err := os.MkdirAll(filepath.Dir(livePath), 0755); err != nil {
		return NewStorageError("failed to create database directory", err).WithContext("path", livePath)
	}

	// write next to the live file, then rename over it
	tmp := livePath + ".restore"
	if err := copyFile(src, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, livePath); err != nil {
		os.Remove(tmp)
		return NewStorageError("failed to replace live database", err).WithContext("path", livePath)
	}

	if m.config.Validation.IntegrityCheck {
		if err := m.db.IntegrityCheck(ctx, livePath); err != nil {
			return NewDatabaseError("restored database failed integrity check", err).WithContext("path", livePath)
		}
	}
	return nil
}

func (m *Manager) restoreUploads(meta *Metadata, member *Member, snapDir, workDir string) error {
	src, err := m.materializeMember(meta, member, snapDir, workDir)
	if err != nil {
		return err
	}

	// resolve the codec from the archive name as stored, so the file
	// on disk rules over the metadata field
	archiveName := strings.TrimSuffix(member.FileName, EncryptedSuffix)
	codec, err := m.registry.ByExtension(strings.TrimPrefix(archiveName, UploadsBaseName))
	if err != nil {
		return err
	}

	liveDir := m.config.Sources.UploadsDir
	if err := os.RemoveAll(liveDir); err != nil {
		return NewStorageError("failed to clear uploads directory", err).WithContext("path", liveDir)
	}
	return ExtractArchive(src, liveDir, codec)
}

// Prune applies the retention policy on demand
func (m *Manager) Prune(ctx context.Context, dryRun bool) (*SweepResult, error) {
	result, err := m.retention.Sweep(m.store, dryRun)
	if err != nil {
		return nil, err
	}
	if !dryRun {
		m.pruneOffsite(ctx, result.Deleted)
	}
	return result, nil
}

// pruneOffsite removes replicated copies of pruned snapshots.
// Failures are logged, the local sweep already succeeded.
func (m *Manager) pruneOffsite(ctx context.Context, deleted []string) {
	if m.offsite == nil {
		return
	}
	for _, id := range deleted {
		if err := m.offsite.Delete(ctx, id); err != nil {
			m.logger.Warnf("failed to delete offsite copy of %s: %v", id, err)
		}
	}
}

type fileCopyAdapter struct{}

func (fileCopyAdapter) SnapshotTo(ctx context.Context, src, dst string) error {
	return copyFile(src, dst)
}

func (fileCopyAdapter) IntegrityCheck(ctx context.Context, path string) error {
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return NewStorageError("failed to open source file", err).WithContext("path", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return NewStorageError("failed to create destination file", err).WithContext("path", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return NewStorageError("failed to copy file", err).WithContext("path", dst)
	}
	if err := out.Close(); err != nil {
		return NewStorageError("failed to finalize copied file", err).WithContext("path", dst)
	}
	return nil
}
