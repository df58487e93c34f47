// Package skills defines the skill data model: the persisted skill record,
// the SKILL.md manifest with its dependency declarations, and the shared
// validation rules and error taxonomy used by the content store, resolver,
// and session layers.
package skills

import (
	"regexp"
	"strings"
	"time"
)

// ManifestFileName is the manifest file every skill directory must contain at
// its root. It cannot be deleted and is always readable regardless of the
// text-extension allowlist.
const ManifestFileName = "SKILL.md"

// VirtualPathPrefix is the path prefix under which skill content is exposed
// to the agent's file capabilities.
const VirtualPathPrefix = "/skills/"

// MaxSlugLength bounds slug length; slugs also serve as directory names.
const MaxSlugLength = 128

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Skill is the persisted record for one imported skill. The slug corresponds
// 1:1 to a directory under the skills root.
type Skill struct {
	ID          int64     `db:"id"`
	Slug        string    `db:"slug"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	DirPath     string    `db:"dir_path"`
	CreatedBy   string    `db:"created_by"`
	UpdatedBy   string    `db:"updated_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// DependencyDeclaration lists what a skill requires once activated: base
// tools by name, integrations by name, and other skills by slug.
type DependencyDeclaration struct {
	Tools        []string `yaml:"tools"`
	Integrations []string `yaml:"integrations"`
	Skills       []string `yaml:"skills"`
}

// IsZero reports whether the declaration requires nothing.
func (d DependencyDeclaration) IsZero() bool {
	return len(d.Tools) == 0 && len(d.Integrations) == 0 && len(d.Skills) == 0
}

// PromptMetadata is the per-skill display metadata injected into the system
// prompt: everything the model needs to decide whether to read the manifest.
type PromptMetadata struct {
	Slug        string
	Name        string
	Description string
	Path        string
}

// IsValidSlug reports whether s is a well-formed skill slug.
func IsValidSlug(s string) bool {
	return s != "" && len(s) <= MaxSlugLength && slugPattern.MatchString(s)
}

// ValidateName validates a manifest name as a slug candidate.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Validationf("manifest frontmatter is missing name")
	}
	if len(name) > MaxSlugLength {
		return "", Validationf("skill name must be at most %d characters", MaxSlugLength)
	}
	if !slugPattern.MatchString(name) {
		return "", Validationf("skill name must be lowercase letters, digits, and single hyphens: %q", name)
	}
	return name, nil
}

// ManifestVirtualPath returns the virtual path of a skill's manifest as seen
// by the agent, e.g. /skills/research-report/SKILL.md.
func ManifestVirtualPath(slug string) string {
	return VirtualPathPrefix + slug + "/" + ManifestFileName
}

// SlugFromManifestPath extracts the owning slug from a manifest virtual path.
// It returns ok=false for any other path, including deeper files inside a
// skill directory.
func SlugFromManifestPath(path string) (string, bool) {
	rest, found := strings.CutPrefix(path, VirtualPathPrefix)
	if !found {
		return "", false
	}
	slug, file, found := strings.Cut(rest, "/")
	if !found || file != ManifestFileName {
		return "", false
	}
	if !IsValidSlug(slug) {
		return "", false
	}
	return slug, true
}
