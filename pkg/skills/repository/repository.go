// Package repository persists skill metadata records. The rest of the system
// depends only on the Repository contract; the SQLite implementation here is
// the default backing store.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/skillforge/skillforge/pkg/db"
	"github.com/skillforge/skillforge/pkg/skills"
)

// Repository is the persistence contract for skill records.
type Repository interface {
	// ListAll returns all skills ordered most-recently-updated first.
	ListAll(ctx context.Context) ([]skills.Skill, error)
	GetBySlug(ctx context.Context, slug string) (*skills.Skill, error)
	ExistsSlug(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, params CreateParams) (*skills.Skill, error)
	UpdateMetadata(ctx context.Context, slug string, params UpdateParams) (*skills.Skill, error)
	Delete(ctx context.Context, slug string) error
}

// CreateParams carries the fields for a new skill record.
type CreateParams struct {
	Slug        string
	Name        string
	Description string
	DirPath     string
	CreatedBy   string
}

// UpdateParams carries the mutable metadata fields.
type UpdateParams struct {
	Name        string
	Description string
	UpdatedBy   string
}

// SQLite implements Repository on a sqlx SQLite handle.
type SQLite struct {
	db *sqlx.DB
}

var _ Repository = (*SQLite)(nil)

// NewSQLite creates a SQLite-backed repository.
func NewSQLite(conn *sqlx.DB) *SQLite {
	return &SQLite{db: conn}
}

// Migrations returns the schema migrations for the skills table.
func Migrations() []db.Migration {
	return []db.Migration{
		{
			Version:     20260815120000,
			Description: "create skills table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE IF NOT EXISTS skills (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						slug TEXT NOT NULL UNIQUE,
						name TEXT NOT NULL,
						description TEXT NOT NULL,
						dir_path TEXT NOT NULL,
						created_by TEXT NOT NULL DEFAULT '',
						updated_by TEXT NOT NULL DEFAULT '',
						created_at DATETIME NOT NULL,
						updated_at DATETIME NOT NULL
					)
				`)
				if err != nil {
					return err
				}
				_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_skills_updated_at ON skills(updated_at DESC)`)
				return err
			},
			Down: func(tx *sql.Tx) error {
				_, err := tx.Exec(`DROP TABLE IF EXISTS skills`)
				return err
			},
		},
	}
}

// ListAll returns all skills, most recently updated first.
func (r *SQLite) ListAll(ctx context.Context) ([]skills.Skill, error) {
	var items []skills.Skill
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM skills ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list skills")
	}
	return items, nil
}

// GetBySlug returns the skill with the given slug, or ErrNotFound.
func (r *SQLite) GetBySlug(ctx context.Context, slug string) (*skills.Skill, error) {
	var item skills.Skill
	err := r.db.GetContext(ctx, &item, `SELECT * FROM skills WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, skills.NotFoundf("skill %q does not exist", slug)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get skill %q", slug)
	}
	return &item, nil
}

// ExistsSlug reports whether a skill with the given slug exists.
func (r *SQLite) ExistsSlug(ctx context.Context, slug string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM skills WHERE slug = ?`, slug)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check slug %q", slug)
	}
	return count > 0, nil
}

// Create inserts a new skill record.
func (r *SQLite) Create(ctx context.Context, params CreateParams) (*skills.Skill, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO skills (slug, name, description, dir_path, created_by, updated_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		params.Slug, params.Name, params.Description, params.DirPath,
		params.CreatedBy, params.CreatedBy, now, now)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create skill %q", params.Slug)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get inserted skill id")
	}

	return &skills.Skill{
		ID:          id,
		Slug:        params.Slug,
		Name:        params.Name,
		Description: params.Description,
		DirPath:     params.DirPath,
		CreatedBy:   params.CreatedBy,
		UpdatedBy:   params.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateMetadata updates name, description, and the update actor.
func (r *SQLite) UpdateMetadata(ctx context.Context, slug string, params UpdateParams) (*skills.Skill, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE skills SET name = ?, description = ?, updated_by = ?, updated_at = ?
		WHERE slug = ?`,
		params.Name, params.Description, params.UpdatedBy, now, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update skill %q", slug)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return nil, skills.NotFoundf("skill %q does not exist", slug)
	}

	return r.GetBySlug(ctx, slug)
}

// Delete removes the skill record with the given slug.
func (r *SQLite) Delete(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM skills WHERE slug = ?`, slug)
	if err != nil {
		return errors.Wrapf(err, "failed to delete skill %q", slug)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return skills.NotFoundf("skill %q does not exist", slug)
	}
	return nil
}
