package metacache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/skillforge/pkg/db"
	"github.com/skillforge/skillforge/pkg/skills"
	"github.com/skillforge/skillforge/pkg/skills/repository"
)

type fixture struct {
	repo    repository.Repository
	cache   *Cache
	baseDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	baseDir := t.TempDir()

	conn, err := db.Open(ctx, filepath.Join(baseDir, "skillforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.NewMigrationRunner(conn).Run(ctx, repository.Migrations()))

	repo := repository.NewSQLite(conn)
	return &fixture{repo: repo, cache: New(repo, baseDir), baseDir: baseDir}
}

// addSkill registers a skill row and writes its manifest to disk.
func (f *fixture) addSkill(t *testing.T, slug, manifest string) {
	t.Helper()
	dir := filepath.Join("skills", slug)
	require.NoError(t, os.MkdirAll(filepath.Join(f.baseDir, dir), 0o755))
	if manifest != "" {
		require.NoError(t, os.WriteFile(filepath.Join(f.baseDir, dir, skills.ManifestFileName), []byte(manifest), 0o644))
	}
	_, err := f.repo.Create(context.Background(), repository.CreateParams{
		Slug:        slug,
		Name:        slug,
		Description: "about " + slug,
		DirPath:     dir,
		CreatedBy:   "tester",
	})
	require.NoError(t, err)
}

func TestRebuildLoadsMetadataAndDeclarations(t *testing.T) {
	f := newFixture(t)
	f.addSkill(t, "release", "---\nname: release\ndescription: about release\ntools:\n  - deploy\nskills:\n  - changelog\n---\nbody\n")
	f.addSkill(t, "changelog", "---\nname: changelog\ndescription: about changelog\n---\nbody\n")

	require.NoError(t, f.cache.Rebuild(context.Background()))

	assert.True(t, f.cache.Contains("release"))
	assert.True(t, f.cache.Contains("changelog"))
	assert.False(t, f.cache.Contains("missing"))

	meta, ok := f.cache.Lookup("release")
	require.True(t, ok)
	assert.Equal(t, "release", meta.Name)
	assert.Equal(t, "/skills/release/SKILL.md", meta.Path)

	decl, ok := f.cache.Declaration("release")
	require.True(t, ok)
	assert.Equal(t, []string{"deploy"}, decl.Tools)
	assert.Equal(t, []string{"changelog"}, decl.Skills)

	decl, ok = f.cache.Declaration("changelog")
	require.True(t, ok)
	assert.True(t, decl.IsZero())
}

func TestRebuildKeepsSkillWithBrokenManifest(t *testing.T) {
	f := newFixture(t)
	f.addSkill(t, "broken", "---\nname: [unclosed\n---\nbody\n")
	f.addSkill(t, "gone", "")

	require.NoError(t, f.cache.Rebuild(context.Background()))

	// still listed, just without declarations
	assert.True(t, f.cache.Contains("broken"))
	decl, ok := f.cache.Declaration("broken")
	require.True(t, ok)
	assert.True(t, decl.IsZero())

	assert.True(t, f.cache.Contains("gone"))
}

func TestRebuildDropsRemovedSkills(t *testing.T) {
	f := newFixture(t)
	f.addSkill(t, "demo", "---\nname: demo\ndescription: d\n---\nbody\n")
	require.NoError(t, f.cache.Rebuild(context.Background()))
	require.True(t, f.cache.Contains("demo"))

	require.NoError(t, f.repo.Delete(context.Background(), "demo"))
	require.NoError(t, f.cache.Rebuild(context.Background()))

	assert.False(t, f.cache.Contains("demo"))
	assert.Empty(t, f.cache.Options())
}

func TestOptionsOrderedByRecency(t *testing.T) {
	f := newFixture(t)
	f.addSkill(t, "first", "---\nname: first\ndescription: d\n---\nbody\n")
	f.addSkill(t, "second", "---\nname: second\ndescription: d\n---\nbody\n")
	require.NoError(t, f.cache.Rebuild(context.Background()))

	options := f.cache.Options()
	require.Len(t, options, 2)
	ids := []string{options[0].ID, options[1].ID}
	assert.ElementsMatch(t, []string{"first", "second"}, ids)
}

func TestPromptMetadataBySlugs(t *testing.T) {
	f := newFixture(t)
	f.addSkill(t, "a", "---\nname: a\ndescription: d\n---\nbody\n")
	f.addSkill(t, "b", "---\nname: b\ndescription: d\n---\nbody\n")
	require.NoError(t, f.cache.Rebuild(context.Background()))

	items := f.cache.PromptMetadataBySlugs([]string{"b", "a", "b", "missing"})
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Slug)
	assert.Equal(t, "a", items[1].Slug)

	assert.Nil(t, f.cache.PromptMetadataBySlugs(nil))
}
