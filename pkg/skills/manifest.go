package skills

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"
)

// Manifest is a parsed SKILL.md: YAML frontmatter with at least name and
// description, optional dependency lists, and a free-form markdown body.
type Manifest struct {
	Name         string
	Description  string
	Dependencies DependencyDeclaration
	Body         string
}

// ParseManifest parses and validates SKILL.md content. The name must be a
// valid slug and the description non-empty. Dependency strings from the
// frontmatter are validated here so that downstream layers only ever see
// typed declarations.
func ParseManifest(content []byte) (*Manifest, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, Validationf("manifest is not valid markdown: %v", err)
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, Validationf("manifest is missing frontmatter (--- ... ---)")
	}

	rawName, _ := metaData["name"].(string)
	name, err := ValidateName(rawName)
	if err != nil {
		return nil, err
	}

	rawDesc, _ := metaData["description"].(string)
	description := strings.TrimSpace(rawDesc)
	if description == "" {
		return nil, Validationf("manifest frontmatter is missing description")
	}

	deps, err := parseDependencies(metaData)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		Name:         name,
		Description:  description,
		Dependencies: deps,
		Body:         extractBody(string(content)),
	}, nil
}

func parseDependencies(metaData map[string]interface{}) (DependencyDeclaration, error) {
	var decl DependencyDeclaration

	tools, err := stringList(metaData, "tools")
	if err != nil {
		return decl, err
	}
	integrations, err := stringList(metaData, "integrations")
	if err != nil {
		return decl, err
	}
	depSkills, err := stringList(metaData, "skills")
	if err != nil {
		return decl, err
	}
	for _, slug := range depSkills {
		if !IsValidSlug(slug) {
			return decl, Validationf("manifest skills entry is not a valid slug: %q", slug)
		}
	}

	decl.Tools = tools
	decl.Integrations = integrations
	decl.Skills = depSkills
	return decl, nil
}

func stringList(metaData map[string]interface{}, key string) ([]string, error) {
	raw, ok := metaData[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, Validationf("manifest frontmatter %q must be a list of strings", key)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, Validationf("manifest frontmatter %q must be a list of strings", key)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// extractBody strips the leading frontmatter block and returns the body.
func extractBody(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
}

// RewriteManifestName replaces the frontmatter name field with newName,
// preserving key order and the body byte-for-byte. Used when import
// reallocates a taken slug.
func RewriteManifestName(content string, newName string) (string, error) {
	if !strings.HasPrefix(content, "---") {
		return "", Validationf("manifest is missing frontmatter (--- ... ---)")
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return "", Validationf("manifest frontmatter is not terminated")
	}

	frontmatter := strings.Join(lines[1:end], "\n")
	body := strings.Join(lines[end+1:], "\n")

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(frontmatter), &doc); err != nil {
		return "", Validationf("manifest frontmatter is not valid YAML: %v", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return "", Validationf("manifest frontmatter must be a mapping")
	}

	mapping := doc.Content[0]
	renamed := false
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == "name" {
			mapping.Content[i+1].SetString(newName)
			renamed = true
			break
		}
	}
	if !renamed {
		return "", Validationf("manifest frontmatter is missing name")
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return "", errors.Wrap(err, "failed to encode rewritten frontmatter")
	}
	if err := enc.Close(); err != nil {
		return "", errors.Wrap(err, "failed to flush rewritten frontmatter")
	}

	return "---\n" + strings.TrimRight(buf.String(), "\n") + "\n---\n" + body, nil
}
