package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseID(t *testing.T, id string) time.Time {
	t.Helper()
	ts, err := ParseID(id)
	require.NoError(t, err)
	return ts
}

type stubConfirmer struct {
	answer bool
	asked  int
}

func (s *stubConfirmer) ConfirmDestructive(prompt string, autoApprove bool) (bool, error) {
	s.asked++
	if autoApprove {
		return true, nil
	}
	return s.answer, nil
}

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	base := t.TempDir()

	cfg := DefaultConfig()
	cfg.Root = filepath.Join(base, "backups")
	cfg.Sources.DatabasePath = filepath.Join(base, "data", "app.db")
	cfg.Sources.UploadsDir = filepath.Join(base, "data", "uploads")
	cfg.Retention.Enabled = false

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Sources.DatabasePath), 0755))
	require.NoError(t, os.WriteFile(cfg.Sources.DatabasePath, []byte("sqlite payload v1"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Sources.UploadsDir, "docs"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Sources.UploadsDir, "docs", "a.txt"), []byte("upload a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Sources.UploadsDir, "b.bin"), []byte{0x01, 0x02, 0x03}, 0644))

	return cfg
}

func newTestManager(t *testing.T, cfg *Config, opts ...ManagerOption) *Manager {
	t.Helper()
	opts = append([]ManagerOption{WithLogger(quietLogger(t))}, opts...)
	mgr, err := NewManager(cfg, opts...)
	require.NoError(t, err)
	return mgr
}

func TestCreateSnapshotLayout(t *testing.T) {
	cfg := newTestConfig(t)
	mgr := newTestManager(t, cfg)

	result, err := mgr.Create(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Metadata.Members, 2)
	assert.Empty(t, result.Skipped)
	assert.Positive(t, result.Metadata.TotalSize)

	files, err := mgr.Store().MemberFiles(result.Metadata.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		DatabaseFileName,
		DatabaseFileName + ChecksumSuffix,
		MetadataFileName,
		"uploads.tar.gz",
		"uploads.tar.gz" + ChecksumSuffix,
	}, files)

	report := mgr.Validate(result.Metadata.ID)
	assert.True(t, report.Valid, report.Summarize())
}

func TestCreateSkipsMissingUploads(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, os.RemoveAll(cfg.Sources.UploadsDir))
	mgr := newTestManager(t, cfg)

	result, err := mgr.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{MemberUploads}, result.Skipped)
	require.Len(t, result.Metadata.Members, 1)
	assert.Equal(t, MemberDatabase, result.Metadata.Members[0].Name)
}

func TestCreateFailsWithNoSources(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, os.Remove(cfg.Sources.DatabasePath))
	require.NoError(t, os.RemoveAll(cfg.Sources.UploadsDir))
	mgr := newTestManager(t, cfg)

	_, err := mgr.Create(context.Background())
	require.Error(t, err)
	snapErr, ok := err.(*SnapshotError)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeValidation, snapErr.Type)

	// nothing left behind
	infos, err := mgr.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	cfg := newTestConfig(t)
	confirmer := &stubConfirmer{answer: true}
	mgr := newTestManager(t, cfg, WithConfirmer(confirmer))

	original, err := os.ReadFile(cfg.Sources.DatabasePath)
	require.NoError(t, err)

	result, err := mgr.Create(context.Background())
	require.NoError(t, err)

	// mutate live state after the backup
	require.NoError(t, os.WriteFile(cfg.Sources.DatabasePath, []byte("sqlite payload v2 corrupted"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Sources.UploadsDir, "new.txt"), []byte("added later"), 0644))
	require.NoError(t, os.Remove(filepath.Join(cfg.Sources.UploadsDir, "b.bin")))

	restoreResult, err := mgr.Restore(context.Background(), result.Metadata.ID, RestoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, confirmer.asked)
	assert.ElementsMatch(t, []string{MemberDatabase, MemberUploads}, restoreResult.Restored)
	require.NotEmpty(t, restoreResult.SafetySnapshotID)

	// live data is byte-identical to the snapshot
	restored, err := os.ReadFile(cfg.Sources.DatabasePath)
	require.NoError(t, err)
	assert.Equal(t, original, restored)

	content, err := os.ReadFile(filepath.Join(cfg.Sources.UploadsDir, "b.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, content)
	assert.NoFileExists(t, filepath.Join(cfg.Sources.UploadsDir, "new.txt"))

	// the safety snapshot captured the mutated state
	safetyMeta, err := mgr.Store().LoadMetadata(restoreResult.SafetySnapshotID)
	require.NoError(t, err)
	assert.Equal(t, result.Metadata.ID, safetyMeta.SafetyFor)

	safetyReport := mgr.Validate(restoreResult.SafetySnapshotID)
	assert.True(t, safetyReport.Valid, safetyReport.Summarize())
}

func TestRestoreRejectsTamperedSnapshot(t *testing.T) {
	cfg := newTestConfig(t)
	mgr := newTestManager(t, cfg, WithConfirmer(&stubConfirmer{answer: true}))

	result, err := mgr.Create(context.Background())
	require.NoError(t, err)

	// corrupt the archived database after the checksum was recorded
	snapDir, err := mgr.Store().Path(result.Metadata.ID)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(snapDir, DatabaseFileName), []byte("bitrot"), 0644))

	liveBefore, err := os.ReadFile(cfg.Sources.DatabasePath)
	require.NoError(t, err)

	_, err = mgr.Restore(context.Background(), result.Metadata.ID, RestoreOptions{})
	require.Error(t, err)
	snapErr, ok := err.(*SnapshotError)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeCorruption, snapErr.Type)

	// live data was never touched
	liveAfter, err := os.ReadFile(cfg.Sources.DatabasePath)
	require.NoError(t, err)
	assert.Equal(t, liveBefore, liveAfter)
}

func TestRestoreRejectsAlteredChecksumSidecar(t *testing.T) {
	cfg := newTestConfig(t)
	mgr := newTestManager(t, cfg, WithConfirmer(&stubConfirmer{answer: true}))

	result, err := mgr.Create(context.Background())
	require.NoError(t, err)

	// rewrite the sidecar with a well-formed digest that does not match
	// the member recorded in metadata
	snapDir, err := mgr.Store().Path(result.Metadata.ID)
	require.NoError(t, err)
	forged := strings.Repeat("0", 64) + "  " + DatabaseFileName + "\n"
	sidecar := filepath.Join(snapDir, DatabaseFileName+ChecksumSuffix)
	require.NoError(t, os.WriteFile(sidecar, []byte(forged), 0644))

	liveBefore, err := os.ReadFile(cfg.Sources.DatabasePath)
	require.NoError(t, err)
	uploadsBefore, err := os.ReadFile(filepath.Join(cfg.Sources.UploadsDir, "b.bin"))
	require.NoError(t, err)

	_, err = mgr.Restore(context.Background(), result.Metadata.ID, RestoreOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruption)

	// live data was never touched, and no safety snapshot was taken
	liveAfter, err := os.ReadFile(cfg.Sources.DatabasePath)
	require.NoError(t, err)
	assert.Equal(t, liveBefore, liveAfter)
	uploadsAfter, err := os.ReadFile(filepath.Join(cfg.Sources.UploadsDir, "b.bin"))
	require.NoError(t, err)
	assert.Equal(t, uploadsBefore, uploadsAfter)

	infos, err := mgr.List()
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestRestoreDeclined(t *testing.T) {
	cfg := newTestConfig(t)
	mgr := newTestManager(t, cfg, WithConfirmer(&stubConfirmer{answer: false}))

	result, err := mgr.Create(context.Background())
	require.NoError(t, err)

	_, err = mgr.Restore(context.Background(), result.Metadata.ID, RestoreOptions{})
	require.Error(t, err)
	snapErr, ok := err.(*SnapshotError)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeAborted, snapErr.Type)
}

func TestRestoreWithoutConfirmerRequiresAutoApprove(t *testing.T) {
	cfg := newTestConfig(t)
	mgr := newTestManager(t, cfg)

	result, err := mgr.Create(context.Background())
	require.NoError(t, err)

	_, err = mgr.Restore(context.Background(), result.Metadata.ID, RestoreOptions{})
	require.Error(t, err)

	_, err = mgr.Restore(context.Background(), result.Metadata.ID, RestoreOptions{AutoApprove: true})
	require.NoError(t, err)
}

func TestRestoreMissingSnapshot(t *testing.T) {
	cfg := newTestConfig(t)
	mgr := newTestManager(t, cfg)

	_, err := mgr.Restore(context.Background(), "20200101_000000", RestoreOptions{AutoApprove: true})
	require.Error(t, err)
}

func TestEncryptedSnapshotRoundTrip(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Encryption.Enabled = true
	cfg.Encryption.PassphraseEnv = "KABU_VAULT_TEST_PASSPHRASE"
	t.Setenv("KABU_VAULT_TEST_PASSPHRASE", "test secret")

	mgr := newTestManager(t, cfg)

	original, err := os.ReadFile(cfg.Sources.DatabasePath)
	require.NoError(t, err)

	result, err := mgr.Create(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Metadata.Encrypted)

	files, err := mgr.Store().MemberFiles(result.Metadata.ID)
	require.NoError(t, err)
	assert.Contains(t, files, DatabaseFileName+EncryptedSuffix)
	assert.Contains(t, files, "uploads.tar.gz"+EncryptedSuffix)

	// validation works without decrypting
	report := mgr.Validate(result.Metadata.ID)
	assert.True(t, report.Valid, report.Summarize())

	require.NoError(t, os.WriteFile(cfg.Sources.DatabasePath, []byte("changed"), 0644))

	_, err = mgr.Restore(context.Background(), result.Metadata.ID, RestoreOptions{AutoApprove: true})
	require.NoError(t, err)

	restored, err := os.ReadFile(cfg.Sources.DatabasePath)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestRestoreEncryptedWithoutPassphrase(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Encryption.Enabled = true
	cfg.Encryption.PassphraseEnv = "KABU_VAULT_TEST_PASSPHRASE"
	t.Setenv("KABU_VAULT_TEST_PASSPHRASE", "test secret")

	mgr := newTestManager(t, cfg)
	result, err := mgr.Create(context.Background())
	require.NoError(t, err)

	plainCfg := *cfg
	plainCfg.Encryption.Enabled = false
	plainMgr := newTestManager(t, &plainCfg)

	_, err = plainMgr.Restore(context.Background(), result.Metadata.ID, RestoreOptions{AutoApprove: true, NoSafetySnapshot: true})
	require.Error(t, err)
	snapErr, ok := err.(*SnapshotError)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeEncryption, snapErr.Type)
}

func TestCreateAppliesRetention(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Retention.Enabled = true
	cfg.Retention.MaxCount = 1
	mgr := newTestManager(t, cfg)

	first, err := mgr.Create(context.Background())
	require.NoError(t, err)

	second, err := mgr.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{first.Metadata.ID}, second.Pruned)

	infos, err := mgr.List()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, second.Metadata.ID, infos[0].ID)
}

func TestPruneDryRun(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Retention.Enabled = true
	cfg.Retention.MaxAgeDays = 0
	cfg.Retention.MaxCount = 1
	cfg.Retention.KeepSafety = false

	mgr := newTestManager(t, cfg)

	// call createSnapshot directly so the per-create sweep does not run
	first, err := mgr.createSnapshot(context.Background(), mustParseID(t, "20250101_000000"), "")
	require.NoError(t, err)
	second, err := mgr.createSnapshot(context.Background(), mustParseID(t, "20250102_000000"), "")
	require.NoError(t, err)
	_ = second

	result, err := mgr.Prune(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Examined)
	assert.Equal(t, []string{first.Metadata.ID}, result.Deleted)
	assert.True(t, mgr.Store().Exists(first.Metadata.ID))
}

func TestValidateAll(t *testing.T) {
	cfg := newTestConfig(t)
	mgr := newTestManager(t, cfg)

	result, err := mgr.Create(context.Background())
	require.NoError(t, err)

	reports, err := mgr.ValidateAll()
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, result.Metadata.ID, reports[0].ID)
	assert.True(t, reports[0].Valid)
}
