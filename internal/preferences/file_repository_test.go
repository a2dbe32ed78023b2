package preferences_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farewatch/farewatch/internal/preferences"
)

func TestFileRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := preferences.NewFileRepository(t.TempDir())

	prefs := validPrefs(t)
	hours := 18
	prefs.MaxDurationHours = &hours

	require.NoError(t, repo.Save(ctx, prefs))

	loaded, err := repo.Load(ctx, prefs.ChatID)
	require.NoError(t, err)

	assert.Equal(t, prefs.ChatID, loaded.ChatID)
	assert.Equal(t, prefs.Routes, loaded.Routes)
	assert.Equal(t, *prefs.DepartureDates, *loaded.DepartureDates)
	assert.Equal(t, 18, *loaded.MaxDurationHours)
	// Exact decimal representation survives the YAML round trip.
	assert.Equal(t, "500.00", loaded.MaxPrice.String())
	assert.NoError(t, loaded.Validate())
}

func TestFileRepository_FileLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := preferences.NewFileRepository(dir)

	prefs := validPrefs(t)
	require.NoError(t, repo.Save(ctx, prefs))

	// One YAML file per chat id, named by the id.
	data, err := os.ReadFile(filepath.Join(dir, "123456789.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2026-03-10")
	assert.Contains(t, string(data), "JFK")
}

func TestFileRepository_LoadMissing(t *testing.T) {
	repo := preferences.NewFileRepository(t.TempDir())
	_, err := repo.Load(context.Background(), 99)
	assert.ErrorIs(t, err, preferences.ErrNotFound)
}

func TestFileRepository_CorruptRecord(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := preferences.NewFileRepository(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "7.yaml"), []byte("routes: [\n"), 0o644))

	_, err := repo.Load(ctx, 7)
	assert.ErrorIs(t, err, preferences.ErrStorage)
}

func TestFileRepository_DeleteAndExists(t *testing.T) {
	ctx := context.Background()
	repo := preferences.NewFileRepository(t.TempDir())
	prefs := validPrefs(t)

	ok, err := repo.Exists(ctx, prefs.ChatID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, prefs))
	ok, err = repo.Exists(ctx, prefs.ChatID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Delete(ctx, prefs.ChatID))
	assert.ErrorIs(t, repo.Delete(ctx, prefs.ChatID), preferences.ErrNotFound)
}

func TestFileRepository_ListChatIDs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := preferences.NewFileRepository(dir)

	ids, err := repo.ListChatIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, id := range []int64{42, 7, 1001} {
		prefs := validPrefs(t)
		prefs.ChatID = id
		require.NoError(t, repo.Save(ctx, prefs))
	}

	// Non-preference files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup.yaml"), []byte("x"), 0o644))

	ids, err = repo.ListChatIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 42, 1001}, ids)
}
