package store

import (
	"archive/zip"
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skillforge/skillforge/pkg/db"
	"github.com/skillforge/skillforge/pkg/metacache"
	"github.com/skillforge/skillforge/pkg/skills"
	"github.com/skillforge/skillforge/pkg/skills/repository"
)

// testStore bundles the store with its collaborators for assertions.
type testStore struct {
	store   *Store
	repo    repository.Repository
	cache   *metacache.Cache
	baseDir string
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	ctx := context.Background()
	baseDir := t.TempDir()

	conn, err := db.Open(ctx, filepath.Join(baseDir, "skillforge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.NewMigrationRunner(conn).Run(ctx, repository.Migrations()))

	repo := repository.NewSQLite(conn)
	cache := metacache.New(repo, baseDir)
	s, err := New(repo, cache, baseDir)
	require.NoError(t, err)

	return &testStore{store: s, repo: repo, cache: cache, baseDir: baseDir}
}

// zipArchive builds an in-memory zip from entry path to content. A path with
// a trailing slash creates a directory entry.
func zipArchive(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		if len(name) > 0 && name[len(name)-1] == '/' {
			_, err := zw.Create(name)
			require.NoError(t, err)
			continue
		}
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func manifestContent(name, description string) string {
	return "---\nname: " + name + "\ndescription: " + description + "\n---\n\n# " + name + "\n\nInstructions.\n"
}

// importDemo imports a minimal single-skill archive and returns the record.
func (ts *testStore) importDemo(t *testing.T, name string) *skills.Skill {
	t.Helper()
	archive := zipArchive(t, map[string]string{
		name + "/" + skills.ManifestFileName: manifestContent(name, "A "+name+" skill"),
		name + "/references/notes.md":        "# Notes\n",
	})
	item, err := ts.store.Import(context.Background(), archive, "tester")
	require.NoError(t, err)
	return item
}
