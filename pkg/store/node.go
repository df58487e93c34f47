package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/skillforge/skillforge/pkg/skills"
	"github.com/skillforge/skillforge/pkg/skills/repository"
)

// TreeNode is one entry in a skill directory listing.
type TreeNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	IsDir    bool       `json:"is_dir"`
	Children []TreeNode `json:"children,omitempty"`
}

// ReadFile reads a text file inside a skill directory. Only files on the
// text-extension allowlist (plus the manifest) may be read.
func (s *Store) ReadFile(ctx context.Context, slug, relativePath string) (string, string, error) {
	_, dir, err := s.getSkill(ctx, slug)
	if err != nil {
		return "", "", err
	}

	target, rel, err := resolvePath(dir, relativePath, false)
	if err != nil {
		return "", "", err
	}

	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return "", "", skills.NotFoundf("file does not exist: %s", relativePath)
	}
	if !isTextPath(target) {
		return "", "", skills.Validationf("only text files can be read: %s", rel)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		return "", "", skills.IOf(err, "failed to read %s", rel)
	}
	if !utf8.Valid(content) {
		return "", "", skills.Validationf("file is not valid UTF-8: %s", rel)
	}

	return rel, string(content), nil
}

// WriteFile overwrites an existing text file. Writing the root manifest
// re-parses it, requires its name to equal the skill slug, and on success
// updates the repository metadata and rebuilds the metadata cache.
func (s *Store) WriteFile(ctx context.Context, slug, relativePath, content, actor string) error {
	item, dir, err := s.getSkill(ctx, slug)
	if err != nil {
		return err
	}

	target, rel, err := resolvePath(dir, relativePath, false)
	if err != nil {
		return err
	}

	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return skills.NotFoundf("file does not exist: %s", relativePath)
	}
	if !isTextPath(target) {
		return skills.Validationf("only text files can be edited: %s", rel)
	}

	manifest, err := s.parseRootManifest(item, dir, target, content)
	if err != nil {
		return err
	}

	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return skills.IOf(err, "failed to write %s", rel)
	}

	if manifest != nil {
		return s.syncManifestMetadata(ctx, item, manifest, actor)
	}
	return nil
}

// CreateNode creates a new file or directory. Files must be on the text
// allowlist; creating the root manifest follows the same sync rules as
// WriteFile.
func (s *Store) CreateNode(ctx context.Context, slug, relativePath string, isDir bool, content, actor string) error {
	item, dir, err := s.getSkill(ctx, slug)
	if err != nil {
		return err
	}

	target, rel, err := resolvePath(dir, relativePath, false)
	if err != nil {
		return err
	}

	if _, err := os.Lstat(target); err == nil {
		return skills.Conflictf("target already exists: %s", rel)
	}

	if isDir {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return skills.IOf(err, "failed to create directory %s", rel)
		}
		return nil
	}

	if !isTextPath(target) {
		return skills.Validationf("only text files can be created: %s", rel)
	}

	manifest, err := s.parseRootManifest(item, dir, target, content)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return skills.IOf(err, "failed to create parent directory for %s", rel)
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return skills.IOf(err, "failed to create %s", rel)
	}

	if manifest != nil {
		return s.syncManifestMetadata(ctx, item, manifest, actor)
	}
	return nil
}

// DeleteNode removes a file or directory inside a skill. The root manifest
// can never be deleted.
func (s *Store) DeleteNode(ctx context.Context, slug, relativePath string) error {
	_, dir, err := s.getSkill(ctx, slug)
	if err != nil {
		return err
	}

	target, rel, err := resolvePath(dir, relativePath, false)
	if err != nil {
		return err
	}

	info, err := os.Lstat(target)
	if err != nil {
		return skills.NotFoundf("target does not exist: %s", relativePath)
	}

	if rel == skills.ManifestFileName {
		return skills.Validationf("the root %s cannot be deleted", skills.ManifestFileName)
	}

	if info.IsDir() {
		if err := os.RemoveAll(target); err != nil {
			return skills.IOf(err, "failed to delete directory %s", rel)
		}
		return nil
	}
	if err := os.Remove(target); err != nil {
		return skills.IOf(err, "failed to delete %s", rel)
	}
	return nil
}

// Stat returns the listing entry for one path inside a skill.
func (s *Store) Stat(ctx context.Context, slug, relativePath string) (TreeNode, error) {
	_, dir, err := s.getSkill(ctx, slug)
	if err != nil {
		return TreeNode{}, err
	}

	target, rel, err := resolvePath(dir, relativePath, false)
	if err != nil {
		return TreeNode{}, err
	}

	info, err := os.Lstat(target)
	if err != nil {
		return TreeNode{}, skills.NotFoundf("target does not exist: %s", relativePath)
	}

	return TreeNode{
		Name:  info.Name(),
		Path:  rel,
		IsDir: info.IsDir(),
	}, nil
}

// Tree returns the recursive listing of a skill directory, directories
// first, then case-insensitive by name, with POSIX-style relative paths.
func (s *Store) Tree(ctx context.Context, slug string) ([]TreeNode, error) {
	_, dir, err := s.getSkill(ctx, slug)
	if err != nil {
		return nil, err
	}
	return buildTree(dir, dir)
}

func buildTree(dir, base string) ([]TreeNode, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, skills.IOf(err, "failed to list %s", dir)
	}

	// stable keeps ReadDir's lexical order as the tiebreak for names that
	// differ only by case
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	nodes := make([]TreeNode, 0, len(entries))
	for _, entry := range entries {
		childPath := filepath.Join(dir, entry.Name())
		rel, err := filepath.Rel(base, childPath)
		if err != nil {
			return nil, skills.IOf(err, "failed to relativize %s", childPath)
		}

		node := TreeNode{
			Name:  entry.Name(),
			Path:  filepath.ToSlash(rel),
			IsDir: entry.IsDir(),
		}
		if entry.IsDir() {
			children, err := buildTree(childPath, base)
			if err != nil {
				return nil, err
			}
			node.Children = children
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// parseRootManifest parses content when target is the skill's root manifest
// and enforces that its name matches the slug. It returns nil for any other
// path.
func (s *Store) parseRootManifest(item *skills.Skill, dir, target, content string) (*skills.Manifest, error) {
	if filepath.Base(target) != skills.ManifestFileName || filepath.Dir(target) != dir {
		return nil, nil
	}

	manifest, err := skills.ParseManifest([]byte(content))
	if err != nil {
		return nil, err
	}
	if manifest.Name != item.Slug {
		return nil, skills.Validationf("manifest name must equal the skill slug %q, got %q", item.Slug, manifest.Name)
	}
	return manifest, nil
}

func (s *Store) syncManifestMetadata(ctx context.Context, item *skills.Skill, manifest *skills.Manifest, actor string) error {
	_, err := s.repo.UpdateMetadata(ctx, item.Slug, repository.UpdateParams{
		Name:        manifest.Name,
		Description: manifest.Description,
		UpdatedBy:   actor,
	})
	if err != nil {
		return err
	}
	s.rebuildCache(ctx)
	return nil
}
