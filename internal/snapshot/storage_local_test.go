package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStoreCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "backups")
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	assert.DirExists(t, root)
	assert.Equal(t, root, store.Root())
}

func TestNewLocalStoreEmptyRoot(t *testing.T) {
	_, err := NewLocalStore("")
	require.Error(t, err)
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid timestamp", "20250115_031500", false},
		{"empty", "", true},
		{"path separator", "2025/evil", true},
		{"traversal", "..", true},
		{"arbitrary name", "my-backup", true},
		{"bad month", "20251315_031500", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCreateDirRejectsDuplicate(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.CreateDir("20250115_031500")
	require.NoError(t, err)

	_, err = store.CreateDir("20250115_031500")
	require.Error(t, err)
}

func TestMetadataRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	id := "20250115_031500"
	_, err = store.CreateDir(id)
	require.NoError(t, err)

	meta := &Metadata{
		ID:          id,
		CreatedAt:   time.Date(2025, 1, 15, 3, 15, 0, 0, time.Local),
		Compression: "gzip",
		Members: []Member{
			{Name: MemberDatabase, FileName: DatabaseFileName, Size: 42, Checksum: "abc"},
		},
		TotalSize: 42,
	}
	require.NoError(t, store.WriteMetadata(meta))

	loaded, err := store.LoadMetadata(id)
	require.NoError(t, err)
	assert.Equal(t, meta.ID, loaded.ID)
	assert.Equal(t, meta.Compression, loaded.Compression)
	require.Len(t, loaded.Members, 1)
	assert.Equal(t, int64(42), loaded.Members[0].Size)
}

func TestLoadMetadataMissing(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.CreateDir("20250115_031500")
	require.NoError(t, err)

	_, err = store.LoadMetadata("20250115_031500")
	require.Error(t, err)
	snapErr, ok := err.(*SnapshotError)
	require.True(t, ok)
	assert.Equal(t, ErrorTypeNotFound, snapErr.Type)
}

func TestListNewestFirstAndSkipsForeignDirs(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	for _, id := range []string{"20250113_010000", "20250115_010000", "20250114_010000"} {
		_, err := store.CreateDir(id)
		require.NoError(t, err)
	}
	// foreign entries are ignored
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-snapshot"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644))

	infos, err := store.List()
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "20250115_010000", infos[0].ID)
	assert.Equal(t, "20250114_010000", infos[1].ID)
	assert.Equal(t, "20250113_010000", infos[2].ID)
}

func TestDeleteSnapshot(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	id := "20250115_031500"
	dir, err := store.CreateDir(id)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DatabaseFileName), []byte("db"), 0644))

	require.NoError(t, store.Delete(id))
	assert.False(t, store.Exists(id))

	err = store.Delete(id)
	require.Error(t, err)
}

func TestMemberFiles(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	id := "20250115_031500"
	dir, err := store.CreateDir(id)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uploads.tar.gz"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DatabaseFileName), []byte("b"), 0644))

	names, err := store.MemberFiles(id)
	require.NoError(t, err)
	assert.Equal(t, []string{DatabaseFileName, "uploads.tar.gz"}, names)
}

func TestHealthCheck(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.HealthCheck())
}

func TestParseID(t *testing.T) {
	ts, err := ParseID("20250115_031500")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 15, 3, 15, 0, 0, time.Local), ts)

	_, err = ParseID("20250115-031500")
	require.Error(t, err)
}
