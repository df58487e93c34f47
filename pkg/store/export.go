package store

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/skillforge/skillforge/pkg/skills"
)

// Export streams a skill directory into a zip archive with all entries
// rooted at <slug>/..., written to a private temporary file. The caller owns
// cleanup of the returned path.
func (s *Store) Export(ctx context.Context, slug string) (string, string, error) {
	item, dir, err := s.getSkill(ctx, slug)
	if err != nil {
		return "", "", err
	}

	tmp, err := os.CreateTemp("", "skill-"+item.Slug+"-*.zip")
	if err != nil {
		return "", "", skills.IOf(err, "failed to create export file")
	}

	if err := writeArchive(tmp, dir, item.Slug); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", skills.IOf(err, "failed to finalize export file")
	}

	return tmp.Name(), item.Slug + ".zip", nil
}

func writeArchive(w io.Writer, dir, slug string) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		arcname := path.Join(slug, filepath.ToSlash(rel))

		if d.IsDir() {
			_, err := zw.Create(arcname + "/")
			return err
		}

		entry, err := zw.Create(arcname)
		if err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(entry, src)
		return err
	})
	if err != nil {
		zw.Close()
		return skills.IOf(err, "failed to archive skill directory")
	}

	if err := zw.Close(); err != nil {
		return skills.IOf(err, "failed to finalize archive")
	}
	return nil
}
