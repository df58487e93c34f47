// Package store implements the sandboxed content store for skill
// directories: zip import and export, slug allocation, node read/write/
// create/delete, and tree listing. Every filesystem operation resolves paths
// through a sandbox check so nothing outside a skill's own directory is ever
// touched.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/skillforge/skillforge/pkg/logger"
	"github.com/skillforge/skillforge/pkg/metacache"
	"github.com/skillforge/skillforge/pkg/skills"
	"github.com/skillforge/skillforge/pkg/skills/repository"
)

// Store provides sandboxed content operations on skill directories. All
// mutations keep the repository, the filesystem, and the metadata cache in
// sync: any failure after a destructive filesystem step triggers a
// compensating action before the error propagates.
type Store struct {
	repo    repository.Repository
	cache   *metacache.Cache
	baseDir string
}

// New creates a content store rooted at baseDir. Skill directories live
// under baseDir/skills.
func New(repo repository.Repository, cache *metacache.Cache, baseDir string) (*Store, error) {
	s := &Store{repo: repo, cache: cache, baseDir: baseDir}
	if err := os.MkdirAll(s.SkillsRoot(), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create skills root")
	}
	return s, nil
}

// SkillsRoot returns the directory all skill directories live under.
func (s *Store) SkillsRoot() string {
	return filepath.Join(s.baseDir, "skills")
}

// skillDir resolves a skill record's directory against the base dir.
func (s *Store) skillDir(item *skills.Skill) string {
	if filepath.IsAbs(item.DirPath) {
		return item.DirPath
	}
	return filepath.Join(s.baseDir, item.DirPath)
}

func (s *Store) getSkill(ctx context.Context, slug string) (*skills.Skill, string, error) {
	item, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, "", err
	}
	dir := s.skillDir(item)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, "", skills.NotFoundf("skill directory does not exist: %s", item.DirPath)
	}
	return item, dir, nil
}

// AllocateSlug returns base if it is free in both the repository and on
// disk, otherwise the first free base-v2, base-v3, ... candidate. Names stay
// human-readable; no random identifiers.
func (s *Store) AllocateSlug(ctx context.Context, base string) (string, error) {
	if !skills.IsValidSlug(base) {
		return "", skills.Validationf("invalid slug base: %q", base)
	}

	candidate := base
	for idx := 2; ; idx++ {
		taken, err := s.repo.ExistsSlug(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			if _, err := os.Stat(filepath.Join(s.SkillsRoot(), candidate)); os.IsNotExist(err) {
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s-v%d", base, idx)
	}
}

// Delete removes a skill: the directory is renamed to a trash name first, so
// concurrent readers observe "not found" rather than a partially removed
// tree, then the record is deleted. If the record deletion fails the
// directory is restored exactly as it was. Trash purge is best-effort and
// never fails the delete.
func (s *Store) Delete(ctx context.Context, slug string) error {
	item, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	dir := s.skillDir(item)
	trash := ""
	if _, err := os.Stat(dir); err == nil {
		trash = filepath.Join(filepath.Dir(dir), fmt.Sprintf(".deleted-%s-%s", slug, shortID()))
		if err := os.Rename(dir, trash); err != nil {
			return skills.IOf(err, "failed to move skill directory to trash")
		}
	}

	if err := s.repo.Delete(ctx, slug); err != nil {
		if trash != "" {
			if restoreErr := os.Rename(trash, dir); restoreErr != nil {
				logger.G(ctx).WithError(restoreErr).WithField("slug", slug).Error("failed to restore skill directory from trash")
			}
		}
		return err
	}

	if trash != "" {
		if err := os.RemoveAll(trash); err != nil {
			logger.G(ctx).WithError(err).WithField("slug", slug).Warn("failed to purge trashed skill directory")
		}
	}

	s.rebuildCache(ctx)
	return nil
}

// rebuildCache rebuilds the metadata cache after a mutation. The mutation
// itself has already succeeded, so a rebuild failure is logged, not returned.
func (s *Store) rebuildCache(ctx context.Context) {
	if err := s.cache.Rebuild(ctx); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to rebuild skill metadata cache")
	}
}

func shortID() string {
	return uuid.New().String()[:8]
}
