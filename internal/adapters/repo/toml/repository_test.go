package toml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/bncbot/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(viper.New(), t.TempDir())
	require.NoError(t, err)
	return repo
}

func TestLoadMissingFileReturnsEmptyState(t *testing.T) {
	repo := newTestRepository(t)

	state, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Queue)
	assert.Empty(t, state.Users)
	assert.NotNil(t, state.Queue)
	assert.NotNil(t, state.Users)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	state := domain.NewState()
	state.Queue["alice"] = "May 30 00:53:54 2017 UTC"
	state.Users["bob"] = "127.0.0.5"
	state.Users["carol"] = ""

	require.NoError(t, repo.Save(state))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, state.Queue, loaded.Queue)
	assert.Equal(t, state.Users, loaded.Users)
}

func TestSaveIsAtomic(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.Save(domain.NewState()))

	entries, err := os.ReadDir(filepath.Dir(repo.statePath))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, stateFileName, entries[0].Name())

	info, err := os.Stat(repo.statePath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(stateFileMode), info.Mode().Perm())
}

func TestLoadRejectsNewerSchemaVersion(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, os.WriteFile(repo.statePath, []byte("version = 99\n"), 0o600))

	_, err := repo.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, os.WriteFile(repo.statePath, []byte("not valid toml ["), 0o600))

	_, err := repo.Load()
	require.Error(t, err)
}

func TestStatePathOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := viper.New()
	override := filepath.Join(dir, "custom", "state.toml")
	cfg.Set("state.path", override)

	repo, err := NewRepository(cfg, dir)
	require.NoError(t, err)
	require.NoError(t, repo.Save(domain.NewState()))

	_, err = os.Stat(override)
	require.NoError(t, err)
}
