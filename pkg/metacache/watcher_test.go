package metacache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRebuildsOnFilesystemChange(t *testing.T) {
	f := newFixture(t)
	skillsRoot := filepath.Join(f.baseDir, "skills")
	require.NoError(t, os.MkdirAll(skillsRoot, 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.cache.Watch(ctx, skillsRoot) }()

	// give the watcher time to register before generating events
	time.Sleep(100 * time.Millisecond)

	require.False(t, f.cache.Contains("demo"))
	f.addSkill(t, "demo", "---\nname: demo\ndescription: d\n---\nbody\n")

	// the create event is debounced, then the rebuild picks up the skill
	require.Eventually(t, func() bool {
		return f.cache.Contains("demo")
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatchFailsOnMissingRoot(t *testing.T) {
	f := newFixture(t)

	err := f.cache.Watch(context.Background(), filepath.Join(f.baseDir, "no-such-dir"))
	assert.Error(t, err)
}
