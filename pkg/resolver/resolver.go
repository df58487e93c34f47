// Package resolver computes the per-turn visible-skill closure from a set of
// selected slugs. Resolution is pure over the metadata cache: no disk I/O,
// no errors, safe to invoke concurrently across turns.
package resolver

import (
	"github.com/skillforge/skillforge/pkg/skills"
)

// Source is the read-only metadata view resolution runs against, satisfied
// by *metacache.Cache.
type Source interface {
	Contains(slug string) bool
	Lookup(slug string) (skills.PromptMetadata, bool)
	Declaration(slug string) (skills.DependencyDeclaration, bool)
}

// Snapshot is the resolved, per-turn view of selected/visible/dependency
// state. It is computed once at turn start and never recomputed mid-turn.
type Snapshot struct {
	// SelectedSkills are the validated, deduplicated input slugs in
	// first-seen order.
	SelectedSkills []string
	// VisibleSkills is the closure of selected skills plus transitive skill
	// dependencies: selected slugs first in input order, then newly
	// discovered dependencies in discovery order.
	VisibleSkills []string
	// PromptMetadata maps visible slugs to their display metadata.
	PromptMetadata map[string]skills.PromptMetadata
	// DependencyMap maps visible slugs to their dependency declarations.
	DependencyMap map[string]skills.DependencyDeclaration
}

// IsVisible reports whether the slug is in the visible set.
func (s Snapshot) IsVisible(slug string) bool {
	_, ok := s.PromptMetadata[slug]
	return ok
}

// NormalizeSelected deduplicates and validates selected slugs, preserving
// first-seen order. Invalid and unknown slugs are silently dropped.
func NormalizeSelected(source Source, selected []string) []string {
	out := make([]string, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	for _, slug := range selected {
		if seen[slug] {
			continue
		}
		seen[slug] = true
		if !skills.IsValidSlug(slug) || !source.Contains(slug) {
			continue
		}
		out = append(out, slug)
	}
	return out
}

// Resolve computes the visible-skill closure for the given selection. The
// traversal is guarded by a visited set, so it terminates on cyclic
// dependency graphs and never emits a duplicate slug.
func Resolve(source Source, selected []string) Snapshot {
	normalized := NormalizeSelected(source, selected)

	visible := make([]string, 0, len(normalized))
	visited := make(map[string]bool, len(normalized))
	for _, slug := range normalized {
		visited[slug] = true
		visible = append(visible, slug)
	}

	// breadth-first over skill-requires-skill edges
	for i := 0; i < len(visible); i++ {
		decl, ok := source.Declaration(visible[i])
		if !ok {
			continue
		}
		for _, dep := range decl.Skills {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			if !skills.IsValidSlug(dep) || !source.Contains(dep) {
				continue
			}
			visible = append(visible, dep)
		}
	}

	prompt := make(map[string]skills.PromptMetadata, len(visible))
	deps := make(map[string]skills.DependencyDeclaration, len(visible))
	for _, slug := range visible {
		if item, ok := source.Lookup(slug); ok {
			prompt[slug] = item
		}
		if decl, ok := source.Declaration(slug); ok {
			deps[slug] = decl
		}
	}

	return Snapshot{
		SelectedSkills: normalized,
		VisibleSkills:  visible,
		PromptMetadata: prompt,
		DependencyMap:  deps,
	}
}
