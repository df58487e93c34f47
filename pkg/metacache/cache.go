// Package metacache holds the process-wide, read-mostly mapping from skill
// slug to display metadata and dependency declarations. It is rebuilt
// wholesale after every mutating content-store or repository operation and
// read without mutation on the hot prompt/resolver path.
package metacache

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/skillforge/skillforge/pkg/logger"
	"github.com/skillforge/skillforge/pkg/skills"
	"github.com/skillforge/skillforge/pkg/skills/repository"
)

// Option is one selectable skill as presented to operators and the turn
// framework's configurable options.
type Option struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Cache is an explicitly owned metadata cache with a single-writer rebuild
// contract. Pass it by reference to the components that need it; there is no
// implicit global instance.
type Cache struct {
	repo    repository.Repository
	baseDir string

	mu      sync.RWMutex
	options []Option
	prompt  map[string]skills.PromptMetadata
	decls   map[string]skills.DependencyDeclaration
}

// New creates an empty cache. baseDir is the directory skill DirPath values
// are relative to. Call Rebuild before first use.
func New(repo repository.Repository, baseDir string) *Cache {
	return &Cache{
		repo:    repo,
		baseDir: baseDir,
		prompt:  make(map[string]skills.PromptMetadata),
		decls:   make(map[string]skills.DependencyDeclaration),
	}
}

// Rebuild reloads the cache wholesale from the repository and each skill's
// manifest on disk. A manifest that fails to parse leaves its skill listed
// with an empty dependency declaration rather than dropping it.
func (c *Cache) Rebuild(ctx context.Context) error {
	items, err := c.repo.ListAll(ctx)
	if err != nil {
		return err
	}

	options := make([]Option, 0, len(items))
	prompt := make(map[string]skills.PromptMetadata, len(items))
	decls := make(map[string]skills.DependencyDeclaration, len(items))

	for _, item := range items {
		options = append(options, Option{
			ID:          item.Slug,
			Name:        item.Name,
			Description: item.Description,
		})
		prompt[item.Slug] = skills.PromptMetadata{
			Slug:        item.Slug,
			Name:        item.Name,
			Description: item.Description,
			Path:        skills.ManifestVirtualPath(item.Slug),
		}
		decls[item.Slug] = c.loadDeclaration(ctx, item)
	}

	c.mu.Lock()
	c.options = options
	c.prompt = prompt
	c.decls = decls
	c.mu.Unlock()

	logger.G(ctx).WithField("skills", len(items)).Debug("rebuilt skill metadata cache")
	return nil
}

func (c *Cache) loadDeclaration(ctx context.Context, item skills.Skill) skills.DependencyDeclaration {
	dir := item.DirPath
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.baseDir, dir)
	}

	content, err := os.ReadFile(filepath.Join(dir, skills.ManifestFileName))
	if err != nil {
		logger.G(ctx).WithError(err).WithField("slug", item.Slug).Warn("failed to read manifest during cache rebuild")
		return skills.DependencyDeclaration{}
	}

	manifest, err := skills.ParseManifest(content)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("slug", item.Slug).Warn("failed to parse manifest during cache rebuild")
		return skills.DependencyDeclaration{}
	}

	return manifest.Dependencies
}

// Options returns a copy of the selectable skill options, most recently
// updated first.
func (c *Cache) Options() []Option {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Option, len(c.options))
	copy(out, c.options)
	return out
}

// Contains reports whether the slug is a known skill.
func (c *Cache) Contains(slug string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.prompt[slug]
	return ok
}

// Lookup returns the prompt metadata for one slug.
func (c *Cache) Lookup(slug string) (skills.PromptMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.prompt[slug]
	return item, ok
}

// Declaration returns the dependency declaration for one slug.
func (c *Cache) Declaration(slug string) (skills.DependencyDeclaration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	decl, ok := c.decls[slug]
	return decl, ok
}

// PromptMetadataBySlugs returns prompt metadata for the given slugs in input
// order, deduplicated, silently skipping unknown slugs. Cache only, no disk
// I/O.
func (c *Cache) PromptMetadataBySlugs(slugs []string) []skills.PromptMetadata {
	if len(slugs) == 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]skills.PromptMetadata, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		if seen[slug] {
			continue
		}
		seen[slug] = true
		item, ok := c.prompt[slug]
		if !ok {
			continue
		}
		out = append(out, item)
	}
	return out
}
