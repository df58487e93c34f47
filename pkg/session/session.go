// Package session orchestrates skill state across a turn's three hook
// points: turn start, each model call, and each tool call. Per skill and per
// turn the state machine is NotVisible -> Visible -> Activated: the resolver
// makes a skill visible, and reading its manifest while visible activates it,
// unlocking its declared dependencies for subsequent model calls.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skillforge/skillforge/pkg/logger"
	"github.com/skillforge/skillforge/pkg/resolver"
	"github.com/skillforge/skillforge/pkg/skills"
	"github.com/skillforge/skillforge/pkg/tools"
)

// FileReader performs the underlying read when a manifest activation is
// allowed. Satisfied by *backend.Composite.
type FileReader interface {
	Read(ctx context.Context, path string) (string, error)
}

// IntegrationSource fetches integration-provided tools per integration
// name. Satisfied by *tools.IntegrationManager.
type IntegrationSource interface {
	ToolsFor(ctx context.Context, names []string) []tools.Tool
}

// Turn is the mutable per-turn state bag supplied by the turn framework.
// The snapshot is computed once at turn start and never recomputed
// mid-turn; the activated set accumulates as the agent reads manifests.
type Turn struct {
	ID             string
	SelectedSkills []string
	SystemPrompt   string
	BaseTools      []tools.Tool

	Snapshot resolver.Snapshot
	// PromptInjected guards single injection per turn. An explicit flag,
	// set exactly once by TurnStart, not inferred from the rendered text.
	PromptInjected bool
	promptSection  string
	// manifestReads is the accumulated history of allowed manifest reads,
	// in activation order; the activated set is recomputed from it on
	// every model call.
	manifestReads []string
}

// ActivatedSlugs returns the slugs activated so far this turn, in
// activation order without duplicates.
func (t *Turn) ActivatedSlugs() []string {
	out := make([]string, 0, len(t.manifestReads))
	seen := make(map[string]bool, len(t.manifestReads))
	for _, slug := range t.manifestReads {
		if seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}

// IsActivated reports whether the slug's manifest has been read this turn.
func (t *Turn) IsActivated(slug string) bool {
	for _, s := range t.manifestReads {
		if s == slug {
			return true
		}
	}
	return false
}

// DependencyBundle is the union of requirements declared by a set of
// activated skills.
type DependencyBundle struct {
	Tools        []string
	Integrations []string
	Skills       []string
}

// Manager coordinates the resolver, metadata cache, integrations, and
// routing backend for a turn's hooks.
type Manager struct {
	source       resolver.Source
	integrations IntegrationSource
	reader       FileReader
}

// NewManager creates a session state manager. integrations and reader may be
// nil in contexts that never execute tool calls (e.g. prompt-only tests).
func NewManager(source resolver.Source, integrations IntegrationSource, reader FileReader) *Manager {
	return &Manager{source: source, integrations: integrations, reader: reader}
}

// TurnStart resolves the turn's selected skills into a snapshot and injects
// the skills prompt section exactly once. Resolver or injection failures are
// never fatal to a turn: the turn degrades to visible = selected with an
// empty dependency map and no injected section.
func (m *Manager) TurnStart(ctx context.Context, turn *Turn) {
	snapshot, ok := m.resolve(ctx, turn.SelectedSkills)
	if !ok {
		turn.Snapshot = degradedSnapshot(turn.SelectedSkills)
		return
	}
	turn.Snapshot = snapshot

	if turn.PromptInjected {
		return
	}
	if len(snapshot.VisibleSkills) == 0 {
		return
	}
	if !tools.ContainsName(turn.BaseTools, tools.FileReadName) {
		logger.G(ctx).WithField("turn_id", turn.ID).Warn("skills prompt skipped: file_read unavailable in base tools")
		return
	}

	turn.promptSection = renderPromptSection(snapshot)
	turn.PromptInjected = true
}

// resolve runs the resolver, converting any panic from a misbehaving
// metadata source into a degraded turn rather than an aborted one.
func (m *Manager) resolve(ctx context.Context, selected []string) (snapshot resolver.Snapshot, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.G(ctx).WithField("panic", r).Error("skill resolution failed, degrading turn")
			ok = false
		}
	}()
	if m.source == nil {
		logger.G(ctx).Warn("no skill metadata source configured, degrading turn")
		return resolver.Snapshot{}, false
	}
	return resolver.Resolve(m.source, selected), true
}

func degradedSnapshot(selected []string) resolver.Snapshot {
	visible := make([]string, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	prompt := make(map[string]skills.PromptMetadata, len(selected))
	for _, slug := range selected {
		if seen[slug] || !skills.IsValidSlug(slug) {
			continue
		}
		seen[slug] = true
		visible = append(visible, slug)
		prompt[slug] = skills.PromptMetadata{
			Slug: slug,
			Name: slug,
			Path: skills.ManifestVirtualPath(slug),
		}
	}
	return resolver.Snapshot{
		SelectedSkills: visible,
		VisibleSkills:  visible,
		PromptMetadata: prompt,
		DependencyMap:  map[string]skills.DependencyDeclaration{},
	}
}

// ModelCallState is what the session layer contributes to one model call.
type ModelCallState struct {
	SystemPrompt string
	Tools        []tools.Tool
}

// OnModelCall assembles the system prompt and tool set for a model call.
// The injected prompt section passes through unchanged with a
// current-timestamp marker appended. Tool availability is the base tools,
// minus tools declared by visible-but-not-yet-activated skills, plus the
// dependency bundle of the activated set.
func (m *Manager) OnModelCall(ctx context.Context, turn *Turn) ModelCallState {
	prompt := turn.SystemPrompt
	if turn.PromptInjected {
		prompt += "\n\n" + turn.promptSection +
			fmt.Sprintf("\n\nCurrent time: %s", time.Now().Format(time.RFC3339))
	}

	return ModelCallState{
		SystemPrompt: prompt,
		Tools:        m.availableTools(ctx, turn),
	}
}

// Bundle returns the union of dependencies declared by the activated set,
// recomputed from the turn's accumulated manifest-read history.
func (m *Manager) Bundle(turn *Turn) DependencyBundle {
	var bundle DependencyBundle
	seenTool := make(map[string]bool)
	seenIntegration := make(map[string]bool)
	seenSkill := make(map[string]bool)

	for _, slug := range turn.ActivatedSlugs() {
		decl, ok := turn.Snapshot.DependencyMap[slug]
		if !ok {
			continue
		}
		for _, name := range decl.Tools {
			if !seenTool[name] {
				seenTool[name] = true
				bundle.Tools = append(bundle.Tools, name)
			}
		}
		for _, name := range decl.Integrations {
			if !seenIntegration[name] {
				seenIntegration[name] = true
				bundle.Integrations = append(bundle.Integrations, name)
			}
		}
		for _, dep := range decl.Skills {
			if !seenSkill[dep] {
				seenSkill[dep] = true
				bundle.Skills = append(bundle.Skills, dep)
			}
		}
	}
	return bundle
}

func (m *Manager) availableTools(ctx context.Context, turn *Turn) []tools.Tool {
	bundle := m.Bundle(turn)

	unlocked := make(map[string]bool, len(bundle.Tools))
	for _, name := range bundle.Tools {
		unlocked[name] = true
	}

	// lazy withholding: a tool declared by a visible skill stays hidden
	// until some activated skill has declared it
	withheld := make(map[string]bool)
	for _, slug := range turn.Snapshot.VisibleSkills {
		if turn.IsActivated(slug) {
			continue
		}
		decl, ok := turn.Snapshot.DependencyMap[slug]
		if !ok {
			continue
		}
		for _, name := range decl.Tools {
			if !unlocked[name] {
				withheld[name] = true
			}
		}
	}

	out := make([]tools.Tool, 0, len(turn.BaseTools))
	for _, tool := range turn.BaseTools {
		if withheld[tool.Name()] {
			continue
		}
		out = append(out, tool)
	}

	if m.integrations != nil && len(bundle.Integrations) > 0 {
		out = append(out, m.integrations.ToolsFor(ctx, bundle.Integrations)...)
	}

	// conflicting tool names: the last provider wins
	return dedupeByNameKeepLast(out)
}

func dedupeByNameKeepLast(ts []tools.Tool) []tools.Tool {
	last := make(map[string]int, len(ts))
	for i, tool := range ts {
		last[tool.Name()] = i
	}
	out := make([]tools.Tool, 0, len(last))
	for i, tool := range ts {
		if last[tool.Name()] == i {
			out = append(out, tool)
		}
	}
	return out
}

// fileReadInput mirrors the file-read tool's input contract.
type fileReadInput struct {
	FilePath string `json:"file_path"`
}

// OnToolCall intercepts file-read calls targeting a manifest virtual path.
// If the owning skill is visible this turn it is marked activated and the
// read proceeds; otherwise the call short-circuits with an explicit denial
// result and no read happens. The boolean reports whether the call was
// intercepted; un-intercepted calls execute normally in the framework.
func (m *Manager) OnToolCall(ctx context.Context, turn *Turn, toolName, parameters string) (tools.Result, bool) {
	if toolName != tools.FileReadName {
		return tools.Result{}, false
	}

	var input fileReadInput
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return tools.Result{}, false
	}

	slug, ok := skills.SlugFromManifestPath(input.FilePath)
	if !ok {
		return tools.Result{}, false
	}

	if !turn.Snapshot.IsVisible(slug) {
		logger.G(ctx).WithFields(map[string]interface{}{
			"turn_id": turn.ID,
			"slug":    slug,
		}).Info("denied manifest read for skill outside the visible set")
		return tools.Result{
			Error: fmt.Sprintf("skill %q is not available in this session", slug),
		}, true
	}

	// Visible -> Activated; recorded before the read so the next model
	// call reflects the unlocked dependencies even if the read fails
	turn.manifestReads = append(turn.manifestReads, slug)

	if m.reader == nil {
		return tools.Result{Error: "file storage is unavailable"}, true
	}
	content, err := m.reader.Read(ctx, input.FilePath)
	if err != nil {
		return tools.Result{Error: err.Error()}, true
	}
	return tools.Result{Result: content}, true
}
