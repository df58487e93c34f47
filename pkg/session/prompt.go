package session

import (
	"fmt"
	"strings"

	"github.com/skillforge/skillforge/pkg/resolver"
)

// renderPromptSection builds the "Skills" system prompt section from a
// turn's snapshot. Skills appear in snapshot order, selected before
// transitive dependencies, each with its name, description, and the
// manifest path the agent reads to activate it.
func renderPromptSection(snapshot resolver.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("## Skills\n\n")
	sb.WriteString("The following skills are available in this session. ")
	sb.WriteString("A skill is a bundle of instructions and supporting files. ")
	sb.WriteString("To use a skill, first read its manifest file with the file_read tool; ")
	sb.WriteString("the manifest explains how to apply the skill and may reference other files in its directory.\n")

	for _, slug := range snapshot.VisibleSkills {
		meta, ok := snapshot.PromptMetadata[slug]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n- **%s**: %s\n  Manifest: %s\n", meta.Name, meta.Description, meta.Path))
	}

	sb.WriteString("\nOnly read a skill's manifest when the task at hand calls for it.")
	return sb.String()
}
