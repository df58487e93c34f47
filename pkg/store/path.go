package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/skillforge/skillforge/pkg/skills"
)

// textExtensions is the allowlist of file extensions the store will read and
// write as text. The root manifest is always allowed regardless of this set.
var textExtensions = map[string]bool{
	".md":    true,
	".txt":   true,
	".py":    true,
	".js":    true,
	".ts":    true,
	".json":  true,
	".yaml":  true,
	".yml":   true,
	".toml":  true,
	".ini":   true,
	".cfg":   true,
	".conf":  true,
	".xml":   true,
	".html":  true,
	".css":   true,
	".sql":   true,
	".sh":    true,
	".bat":   true,
	".ps1":   true,
	".env":   true,
	".csv":   true,
	".tsv":   true,
	".rst":   true,
	".ipynb": true,
	".vue":   true,
	".jsx":   true,
	".tsx":   true,
}

func isTextPath(path string) bool {
	if filepath.Base(path) == skills.ManifestFileName {
		return true
	}
	return textExtensions[strings.ToLower(filepath.Ext(path))]
}

// resolvePath normalizes a caller-supplied relative path and resolves it
// against the skill directory, guaranteeing the result stays inside it. It
// returns the absolute target and the normalized POSIX-style relative path.
// Escape attempts, whether via ".." segments, absolute paths, or symlinks,
// fail with ErrPathViolation.
func resolvePath(skillDir, relativePath string, allowRoot bool) (string, string, error) {
	rel := strings.TrimSpace(strings.ReplaceAll(relativePath, "\\", "/"))
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		if !allowRoot {
			return "", "", skills.Validationf("path must not be empty")
		}
		return skillDir, "", nil
	}

	segments := strings.Split(rel, "/")
	cleaned := segments[:0]
	for _, seg := range segments {
		if seg == "" || seg == "." {
			continue
		}
		if seg == ".." {
			return "", "", skills.PathViolationf("parent path references are not allowed: %q", relativePath)
		}
		cleaned = append(cleaned, seg)
	}
	if len(cleaned) == 0 {
		if !allowRoot {
			return "", "", skills.Validationf("path must not be empty")
		}
		return skillDir, "", nil
	}

	rel = strings.Join(cleaned, "/")
	target := filepath.Join(skillDir, filepath.FromSlash(rel))

	if err := verifyDescendant(skillDir, target); err != nil {
		return "", "", err
	}

	return target, rel, nil
}

// verifyDescendant resolves symlinks on the deepest existing ancestor of
// target and checks the result is still inside root.
func verifyDescendant(root, target string) error {
	rootReal, err := filepath.EvalSymlinks(root)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve skill directory %s", root)
	}

	existing := target
	var pending []string
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			parts := append([]string{resolved}, pending...)
			final := filepath.Join(parts...)
			if final != rootReal && !strings.HasPrefix(final, rootReal+string(filepath.Separator)) {
				return skills.PathViolationf("path resolves outside the skill directory")
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to resolve path %s", existing)
		}

		parent := filepath.Dir(existing)
		if parent == existing {
			return skills.PathViolationf("path resolves outside the skill directory")
		}
		pending = append([]string{filepath.Base(existing)}, pending...)
		existing = parent
	}
}
