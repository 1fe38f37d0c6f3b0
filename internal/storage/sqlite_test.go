package storage

import (
	"context"
	"path/filepath"
	"testing"

	"codeir/internal/diag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	entry := &Entry{
		Key:       "run-1",
		Data:      []byte(`{"version":"1.0.0","entities":[],"edges":[],"unresolved":[],"truncated":true}`),
		Entities:  0,
		Truncated: true,
		Diagnostics: []diag.Diagnostic{
			diag.New(diag.KindBudgetExceeded, "", 0, "removed 3 entities"),
		},
		Files: map[string]string{"a.py": "h1", "b/c.go": "h2"},
	}
	require.NoError(t, store.SaveDocument(ctx, entry))

	loaded, err := store.LoadDocument(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, loaded.Data)
	assert.True(t, loaded.Truncated)
	assert.Equal(t, entry.Diagnostics, loaded.Diagnostics)
	assert.Equal(t, entry.Files, loaded.Files)

	keys, err := store.KeysForFile(ctx, "b/c.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, keys)
}

func TestSQLiteStore_SaveDocument_SnapshotSync(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &Entry{Key: "k", Data: []byte("{}"), Files: map[string]string{"a.py": "1", "b.py": "1"}}))
	require.NoError(t, store.SaveDocument(ctx, &Entry{Key: "k", Data: []byte(`{"v":2}`), Files: map[string]string{"c.py": "2"}}))

	loaded, err := store.LoadDocument(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(loaded.Data))
	assert.Equal(t, map[string]string{"c.py": "2"}, loaded.Files)

	keys, err := store.KeysForFile(ctx, "a.py")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSQLiteStore_DeleteAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, store.SaveDocument(ctx, &Entry{Key: k, Data: []byte("{}")}))
	}
	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	require.NoError(t, store.DeleteDocument(ctx, "b"))
	_, err = store.LoadDocument(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err = store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys)

	assert.Error(t, store.SaveDocument(ctx, &Entry{}))
}
