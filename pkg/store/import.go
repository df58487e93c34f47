package store

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/skillforge/skillforge/pkg/logger"
	"github.com/skillforge/skillforge/pkg/skills"
	"github.com/skillforge/skillforge/pkg/skills/repository"
)

// Import imports a skill from a zip archive. The archive must contain
// exactly one SKILL.md anywhere; its containing directory becomes the skill
// root. Every entry path must be relative with no parent-traversal segment,
// or the whole import is rejected before anything is extracted. The final
// slug is allocated from the manifest name; when the name is taken the
// manifest is rewritten to the allocated slug before publishing. Content is
// staged privately and published with an atomic rename, so a failure at any
// point leaves no partial directory under the skills root.
func (s *Store) Import(ctx context.Context, zipBytes []byte, actor string) (*skills.Skill, error) {
	reader, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, skills.Validationf("not a valid zip archive: %v", err)
	}

	if err := validateArchivePaths(reader); err != nil {
		return nil, err
	}

	manifestEntry, err := findManifestEntry(reader)
	if err != nil {
		return nil, err
	}
	skillRootInZip := path.Dir(manifestEntry)
	if skillRootInZip == "." {
		skillRootInZip = ""
	}

	scratch, err := os.MkdirTemp(s.baseDir, ".skill-import-")
	if err != nil {
		return nil, skills.IOf(err, "failed to create import scratch directory")
	}
	defer os.RemoveAll(scratch)

	extractDir := filepath.Join(scratch, "extract")
	if err := extractArchive(reader, extractDir); err != nil {
		return nil, err
	}

	stageDir := filepath.Join(extractDir, filepath.FromSlash(skillRootInZip))
	manifestPath := filepath.Join(extractDir, filepath.FromSlash(manifestEntry))

	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, skills.IOf(err, "failed to read extracted manifest")
	}
	manifest, err := skills.ParseManifest(content)
	if err != nil {
		return nil, err
	}

	finalSlug, err := s.AllocateSlug(ctx, manifest.Name)
	if err != nil {
		return nil, err
	}
	if finalSlug != manifest.Name {
		rewritten, err := skills.RewriteManifestName(string(content), finalSlug)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(manifestPath, []byte(rewritten), 0o644); err != nil {
			return nil, skills.IOf(err, "failed to rewrite manifest name")
		}
		logger.G(ctx).WithFields(map[string]interface{}{
			"requested": manifest.Name,
			"allocated": finalSlug,
		}).Info("skill name taken, allocated versioned slug")
	}

	// publish: move under a hidden temp name inside the skills root, then
	// rename atomically to the final directory
	tempTarget := filepath.Join(s.SkillsRoot(), fmt.Sprintf(".%s.tmp-%s", finalSlug, shortID()))
	if err := os.Rename(stageDir, tempTarget); err != nil {
		return nil, skills.IOf(err, "failed to stage skill directory")
	}

	finalDir := filepath.Join(s.SkillsRoot(), finalSlug)
	if _, err := os.Stat(finalDir); err == nil {
		os.RemoveAll(tempTarget)
		return nil, skills.Conflictf("skill directory already exists, retry import: %s", finalSlug)
	}
	if err := os.Rename(tempTarget, finalDir); err != nil {
		os.RemoveAll(tempTarget)
		return nil, skills.Conflictf("skill directory publish raced, retry import: %s", finalSlug)
	}

	item, err := s.repo.Create(ctx, repository.CreateParams{
		Slug:        finalSlug,
		Name:        finalSlug,
		Description: manifest.Description,
		DirPath:     path.Join("skills", finalSlug),
		CreatedBy:   actor,
	})
	if err != nil {
		os.RemoveAll(finalDir)
		return nil, err
	}

	s.rebuildCache(ctx)
	return item, nil
}

// validateArchivePaths rejects the whole archive if any entry is absolute or
// contains a parent-traversal segment.
func validateArchivePaths(reader *zip.Reader) error {
	for _, f := range reader.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if strings.HasPrefix(name, "/") {
			return skills.Validationf("archive contains an absolute path: %q", f.Name)
		}
		for _, seg := range strings.Split(name, "/") {
			if seg == ".." {
				return skills.Validationf("archive contains a path traversal segment: %q", f.Name)
			}
		}
	}
	return nil
}

// findManifestEntry returns the single SKILL.md entry, anywhere in the
// archive. Zero or more than one is a validation error.
func findManifestEntry(reader *zip.Reader) (string, error) {
	var manifests []string
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if path.Base(name) == skills.ManifestFileName {
			manifests = append(manifests, name)
		}
	}
	if len(manifests) != 1 {
		return "", skills.Validationf("archive must contain exactly one %s, found %d", skills.ManifestFileName, len(manifests))
	}
	return manifests[0], nil
}

func extractArchive(reader *zip.Reader, dest string) error {
	for _, f := range reader.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		target := filepath.Join(dest, filepath.FromSlash(name))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return skills.IOf(err, "failed to create directory %s", name)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return skills.IOf(err, "failed to create directory for %s", name)
		}

		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return skills.IOf(err, "failed to open archive entry %s", f.Name)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return skills.IOf(err, "failed to create %s", target)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return skills.IOf(err, "failed to extract %s", f.Name)
	}
	return nil
}
