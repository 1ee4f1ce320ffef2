package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
)

const materialColumns = "id, class_id, teacher_id, title, description, file_name, content_type, size, storage_key, created_at"

type materialRow struct {
	ID          string      `db:"id"`
	ClassID     string      `db:"class_id"`
	TeacherID   null.String `db:"teacher_id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	FileName    string      `db:"file_name"`
	ContentType string      `db:"content_type"`
	Size        int64       `db:"size"`
	StorageKey  string      `db:"storage_key"`
	CreatedAt   time.Time   `db:"created_at"`
}

func toMaterialRow(m material.Material) materialRow {
	return materialRow{
		ID:          m.ID,
		ClassID:     m.ClassID,
		TeacherID:   null.NewString(m.TeacherID, validID(m.TeacherID)),
		Title:       m.Title,
		Description: m.Description,
		FileName:    m.FileName,
		ContentType: m.ContentType,
		Size:        m.Size,
		StorageKey:  m.StorageKey,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

func (row materialRow) material() material.Material {
	return material.Material{
		ID:          row.ID,
		ClassID:     row.ClassID,
		TeacherID:   row.TeacherID.String,
		Title:       row.Title,
		Description: row.Description,
		FileName:    row.FileName,
		ContentType: row.ContentType,
		Size:        row.Size,
		StorageKey:  row.StorageKey,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type materialRepository struct {
	db *sqlx.DB
}

var _ material.Repository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *sqlx.DB) material.Repository {
	return &materialRepository{db: db}
}

func (repo *materialRepository) CreateMaterial(ctx context.Context, m material.Material) (material.Material, error) {
	m.ID = newID()
	row := toMaterialRow(m)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO materials (`+materialColumns+`)
		VALUES (:id, :class_id, :teacher_id, :title, :description, :file_name, :content_type, :size, :storage_key, :created_at)`,
		row)
	if err != nil {
		return material.Material{}, errors.Wrap(err, "inserting material")
	}
	return row.material(), nil
}

func (repo *materialRepository) GetMaterial(ctx context.Context, id string) (material.Material, error) {
	if !validID(id) {
		return material.Material{}, material.ErrNotFound
	}
	var row materialRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+materialColumns+" FROM materials WHERE id = $1", id); err != nil {
		return material.Material{}, trapNoRowsErr(err, material.ErrNotFound, "finding material")
	}
	return row.material(), nil
}

func (repo *materialRepository) QueryMaterials(ctx context.Context, filter *material.QueryFilter) ([]material.Material, error) {
	var w where
	if filter != nil {
		if filter.ClassID != "" {
			if !validID(filter.ClassID) {
				return []material.Material{}, nil
			}
			w.and("class_id = ?", filter.ClassID)
		}
		if filter.TeacherID != "" {
			if !validID(filter.TeacherID) {
				return []material.Material{}, nil
			}
			w.and("teacher_id = ?", filter.TeacherID)
		}
	}
	var rows []materialRow
	if err := selectWhere(ctx, repo.db, &rows, "SELECT "+materialColumns+" FROM materials", &w, " ORDER BY created_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	materials := make([]material.Material, 0, len(rows))
	for _, row := range rows {
		materials = append(materials, row.material())
	}
	return materials, nil
}

func (repo *materialRepository) DeleteMaterial(ctx context.Context, id string) error {
	if !validID(id) {
		return material.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM materials WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return checkAffected(res, material.ErrNotFound)
}
