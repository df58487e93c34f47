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
)

func TestImport(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	item := ts.importDemo(t, "demo")
	assert.Equal(t, "demo", item.Slug)
	assert.Equal(t, "A demo skill", item.Description)
	assert.Equal(t, "skills/demo", item.DirPath)
	assert.Equal(t, "tester", item.CreatedBy)

	content, err := os.ReadFile(filepath.Join(ts.store.SkillsRoot(), "demo", skills.ManifestFileName))
	require.NoError(t, err)
	assert.Contains(t, string(content), "name: demo")

	_, err = os.Stat(filepath.Join(ts.store.SkillsRoot(), "demo", "references", "notes.md"))
	require.NoError(t, err)

	got, err := ts.repo.GetBySlug(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)

	// cache was rebuilt as part of the import
	meta, ok := ts.cache.Lookup("demo")
	require.True(t, ok)
	assert.Equal(t, "/skills/demo/SKILL.md", meta.Path)
}

func TestImport_ManifestAtArchiveRoot(t *testing.T) {
	ts := newTestStore(t)

	archive := zipArchive(t, map[string]string{
		skills.ManifestFileName: manifestContent("rootless", "Manifest at archive root"),
		"helper.py":             "print('hi')\n",
	})
	item, err := ts.store.Import(context.Background(), archive, "")
	require.NoError(t, err)
	assert.Equal(t, "rootless", item.Slug)

	_, err = os.Stat(filepath.Join(ts.store.SkillsRoot(), "rootless", "helper.py"))
	require.NoError(t, err)
}

func TestImport_SlugConflictAllocatesVersionedSlug(t *testing.T) {
	ts := newTestStore(t)
	ctx := context.Background()

	ts.importDemo(t, "demo")

	second, err := ts.store.Import(ctx, zipArchive(t, map[string]string{
		"demo/" + skills.ManifestFileName: manifestContent("demo", "A second demo"),
	}), "")
	require.NoError(t, err)
	assert.Equal(t, "demo-v2", second.Slug)

	// the published manifest was rewritten to the allocated slug
	content, err := os.ReadFile(filepath.Join(ts.store.SkillsRoot(), "demo-v2", skills.ManifestFileName))
	require.NoError(t, err)
	manifest, err := skills.ParseManifest(content)
	require.NoError(t, err)
	assert.Equal(t, "demo-v2", manifest.Name)

	third, err := ts.store.Import(ctx, zipArchive(t, map[string]string{
		"demo/" + skills.ManifestFileName: manifestContent("demo", "A third demo"),
	}), "")
	require.NoError(t, err)
	assert.Equal(t, "demo-v3", third.Slug)
}

func TestImport_RejectsPathTraversal(t *testing.T) {
	ts := newTestStore(t)

	archive := zipArchive(t, map[string]string{
		"demo/" + skills.ManifestFileName: manifestContent("demo", "A demo skill"),
		"../evil.txt":                     "gotcha",
	})
	_, err := ts.store.Import(context.Background(), archive, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, skills.ErrValidation))

	// nothing was written outside the scratch area
	_, statErr := os.Stat(filepath.Join(ts.baseDir, "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(filepath.Dir(ts.baseDir), "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
	assertSkillsRootEmpty(t, ts)
}

func TestImport_RejectsAbsolutePath(t *testing.T) {
	ts := newTestStore(t)

	archive := zipArchive(t, map[string]string{
		"demo/" + skills.ManifestFileName: manifestContent("demo", "A demo skill"),
		"/etc/cron.d/evil":                "boom",
	})
	_, err := ts.store.Import(context.Background(), archive, "")
	assert.True(t, errors.Is(err, skills.ErrValidation))
	assertSkillsRootEmpty(t, ts)
}

func TestImport_RejectsTwoManifests(t *testing.T) {
	ts := newTestStore(t)

	archive := zipArchive(t, map[string]string{
		"one/" + skills.ManifestFileName: manifestContent("one", "First"),
		"two/" + skills.ManifestFileName: manifestContent("two", "Second"),
	})
	_, err := ts.store.Import(context.Background(), archive, "")
	assert.True(t, errors.Is(err, skills.ErrValidation))
	assertSkillsRootEmpty(t, ts)
}

func TestImport_RejectsMissingManifest(t *testing.T) {
	ts := newTestStore(t)

	archive := zipArchive(t, map[string]string{
		"demo/readme.md": "no manifest here",
	})
	_, err := ts.store.Import(context.Background(), archive, "")
	assert.True(t, errors.Is(err, skills.ErrValidation))
	assertSkillsRootEmpty(t, ts)
}

func TestImport_RejectsInvalidManifest(t *testing.T) {
	ts := newTestStore(t)

	tests := []struct {
		name     string
		manifest string
	}{
		{"no frontmatter", "# Just markdown\n"},
		{"bad name", manifestContent("Bad Name", "desc")},
		{"empty description", "---\nname: demo\ndescription: \"\"\n---\nbody\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := zipArchive(t, map[string]string{
				"demo/" + skills.ManifestFileName: tt.manifest,
			})
			_, err := ts.store.Import(context.Background(), archive, "")
			assert.True(t, errors.Is(err, skills.ErrValidation))
		})
	}
	assertSkillsRootEmpty(t, ts)
}

func TestImport_RejectsGarbageBytes(t *testing.T) {
	ts := newTestStore(t)

	_, err := ts.store.Import(context.Background(), []byte("not a zip"), "")
	assert.True(t, errors.Is(err, skills.ErrValidation))
}

func TestImport_LeavesNoScratchBehind(t *testing.T) {
	ts := newTestStore(t)

	ts.importDemo(t, "demo")
	_, err := ts.store.Import(context.Background(), zipArchive(t, map[string]string{
		"demo/readme.md": "no manifest",
	}), "")
	require.Error(t, err)

	entries, err := os.ReadDir(ts.baseDir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".skill-import-")
	}
}

func assertSkillsRootEmpty(t *testing.T, ts *testStore) {
	t.Helper()
	entries, err := os.ReadDir(ts.store.SkillsRoot())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
