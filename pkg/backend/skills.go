package backend

import (
	"context"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/skillforge/skillforge/pkg/skills"
	"github.com/skillforge/skillforge/pkg/store"
)

// SkillsReadOnly exposes skill content under /skills/<slug>/... restricted
// to the turn's visible skills. Reads go through the content store's
// sandboxed path resolution; writes are always rejected.
type SkillsReadOnly struct {
	store   *store.Store
	visible func() []string
}

var _ Backend = (*SkillsReadOnly)(nil)

// NewSkillsReadOnly creates a read-only skills backend. visible supplies the
// current turn's visible slugs at call time, so one backend instance tracks
// activation updates within the turn.
func NewSkillsReadOnly(contentStore *store.Store, visible func() []string) *SkillsReadOnly {
	return &SkillsReadOnly{store: contentStore, visible: visible}
}

func (b *SkillsReadOnly) isVisible(slug string) bool {
	for _, s := range b.visible() {
		if s == slug {
			return true
		}
	}
	return false
}

// splitSkillPath splits "/skills/<slug>/<rel>" into slug and rel.
func splitSkillPath(p string) (string, string, error) {
	rest, found := strings.CutPrefix(p, skills.VirtualPathPrefix)
	if !found {
		return "", "", skills.NotFoundf("path is outside the skills mount: %s", p)
	}
	slug, rel, found := strings.Cut(rest, "/")
	if !found || rel == "" {
		return "", "", skills.Validationf("path must name a file inside a skill: %s", p)
	}
	if !skills.IsValidSlug(slug) {
		return "", "", skills.Validationf("invalid skill slug in path: %s", p)
	}
	return slug, rel, nil
}

func (b *SkillsReadOnly) Read(ctx context.Context, p string) (string, error) {
	slug, rel, err := splitSkillPath(p)
	if err != nil {
		return "", err
	}
	if !b.isVisible(slug) {
		// fail closed: an invisible skill is indistinguishable from a
		// missing one
		return "", skills.NotFoundf("file not found: %s", p)
	}

	_, content, err := b.store.ReadFile(ctx, slug, rel)
	if err != nil {
		return "", err
	}
	return content, nil
}

func (b *SkillsReadOnly) Write(_ context.Context, p, _ string) error {
	return errors.Wrapf(ErrReadOnly, "cannot write %s", p)
}

// Stat returns the listing entry for one visible skill path.
func (b *SkillsReadOnly) Stat(ctx context.Context, p string) (store.TreeNode, error) {
	slug, rel, err := splitSkillPath(p)
	if err != nil {
		return store.TreeNode{}, err
	}
	if !b.isVisible(slug) {
		return store.TreeNode{}, skills.NotFoundf("file not found: %s", p)
	}
	return b.store.Stat(ctx, slug, rel)
}

// List returns the visible skill files matching the doublestar pattern,
// as /skills/-rooted paths.
func (b *SkillsReadOnly) List(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	for _, slug := range b.visible() {
		tree, err := b.store.Tree(ctx, slug)
		if err != nil {
			// a skill deleted mid-turn just disappears from listings
			continue
		}
		for _, rel := range flattenFiles(tree) {
			full := path.Join(skills.VirtualPathPrefix, slug, rel)
			ok, err := matchPattern(pattern, full)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, full)
			}
		}
	}
	return out, nil
}

func flattenFiles(nodes []store.TreeNode) []string {
	var out []string
	for _, node := range nodes {
		if node.IsDir {
			out = append(out, flattenFiles(node.Children)...)
			continue
		}
		out = append(out, node.Path)
	}
	return out
}

func matchPattern(pattern, p string) (bool, error) {
	ok, err := doublestar.Match(pattern, p)
	if err != nil {
		return false, skills.Validationf("invalid glob pattern %q: %v", pattern, err)
	}
	return ok, nil
}
