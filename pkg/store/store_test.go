package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/skillforge/pkg/skills"
	"github.com/skillforge/skillforge/pkg/skills/repository"
)

func TestAllocateSlug(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	t.Run("free base returned unchanged", func(t *testing.T) {
		slug, err := ts.store.AllocateSlug(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, "fresh", slug)
	})

	t.Run("taken in repository", func(t *testing.T) {
		ts.importDemo(t, "taken")
		slug, err := ts.store.AllocateSlug(ctx, "taken")
		require.NoError(t, err)
		assert.Equal(t, "taken-v2", slug)
	})

	t.Run("taken on disk only", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(ts.store.SkillsRoot(), "orphan"), 0o755))
		slug, err := ts.store.AllocateSlug(ctx, "orphan")
		require.NoError(t, err)
		assert.Equal(t, "orphan-v2", slug)
	})

	t.Run("probes until free", func(t *testing.T) {
		ts.importDemo(t, "busy")
		require.NoError(t, os.MkdirAll(filepath.Join(ts.store.SkillsRoot(), "busy-v2"), 0o755))
		slug, err := ts.store.AllocateSlug(ctx, "busy")
		require.NoError(t, err)
		assert.Equal(t, "busy-v3", slug)
	})

	t.Run("invalid base rejected", func(t *testing.T) {
		_, err := ts.store.AllocateSlug(ctx, "Not Valid")
		assert.True(t, errors.Is(err, skills.ErrValidation))
	})

	t.Run("never returns a taken slug", func(t *testing.T) {
		for _, base := range []string{"fresh", "taken", "busy", "orphan"} {
			slug, err := ts.store.AllocateSlug(ctx, base)
			require.NoError(t, err)

			exists, err := ts.repo.ExistsSlug(ctx, slug)
			require.NoError(t, err)
			assert.False(t, exists, slug)
			_, statErr := os.Stat(filepath.Join(ts.store.SkillsRoot(), slug))
			assert.True(t, os.IsNotExist(statErr), slug)
		}
	})
}

func TestDelete(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	ts.importDemo(t, "demo")
	require.NoError(t, ts.store.Delete(ctx, "demo"))

	_, err := ts.repo.GetBySlug(ctx, "demo")
	assert.True(t, errors.Is(err, skills.ErrNotFound))
	_, statErr := os.Stat(filepath.Join(ts.store.SkillsRoot(), "demo"))
	assert.True(t, os.IsNotExist(statErr))

	// trash was purged
	entries, err := os.ReadDir(ts.store.SkillsRoot())
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.False(t, ts.cache.Contains("demo"))
}

func TestDelete_UnknownSlug(t *testing.T) {
	ts := newTestStore(t)
	err := ts.store.Delete(context.Background(), "missing")
	assert.True(t, errors.Is(err, skills.ErrNotFound))
}

// failingRepo makes record deletion fail to exercise the trash restore path.
type failingRepo struct {
	repository.Repository
}

func (f *failingRepo) Delete(_ context.Context, _ string) error {
	return errors.New("database unavailable")
}

func TestDelete_RestoresDirectoryOnPersistenceFailure(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	ts.importDemo(t, "demo")
	skillDir := filepath.Join(ts.store.SkillsRoot(), "demo")

	broken := &Store{
		repo:    &failingRepo{Repository: ts.repo},
		cache:   ts.cache,
		baseDir: ts.baseDir,
	}

	err := broken.Delete(ctx, "demo")
	require.Error(t, err)

	// directory restored exactly as before
	info, statErr := os.Stat(skillDir)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
	_, statErr = os.Stat(filepath.Join(skillDir, skills.ManifestFileName))
	require.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(skillDir, "references", "notes.md"))
	require.NoError(t, statErr)

	// record still present
	_, err = ts.repo.GetBySlug(ctx, "demo")
	require.NoError(t, err)
}
