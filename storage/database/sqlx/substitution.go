package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/substitution"
)

const substitutionColumns = "id, requester_id, class_id, date, reason, status, substitute_id, reviewed_by, " +
	"review_note, reviewed_at, created_at, updated_at"

type substitutionRow struct {
	ID           string      `db:"id"`
	RequesterID  string      `db:"requester_id"`
	ClassID      string      `db:"class_id"`
	Date         time.Time   `db:"date"`
	Reason       string      `db:"reason"`
	Status       string      `db:"status"`
	SubstituteID null.String `db:"substitute_id"`
	ReviewedBy   null.String `db:"reviewed_by"`
	ReviewNote   string      `db:"review_note"`
	ReviewedAt   null.Time   `db:"reviewed_at"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func toSubstitutionRow(sub substitution.Substitution) substitutionRow {
	return substitutionRow{
		ID:           sub.ID,
		RequesterID:  sub.RequesterID,
		ClassID:      sub.ClassID,
		Date:         dateOnly(sub.Date),
		Reason:       sub.Reason,
		Status:       string(sub.Status),
		SubstituteID: null.NewString(sub.SubstituteID, validID(sub.SubstituteID)),
		ReviewedBy:   null.NewString(sub.ReviewedBy, validID(sub.ReviewedBy)),
		ReviewNote:   sub.ReviewNote,
		ReviewedAt:   nullTimePtr(sub.ReviewedAt),
		CreatedAt:    sub.CreatedAt.UTC(),
		UpdatedAt:    sub.UpdatedAt.UTC(),
	}
}

func (row substitutionRow) substitution() substitution.Substitution {
	return substitution.Substitution{
		ID:           row.ID,
		RequesterID:  row.RequesterID,
		ClassID:      row.ClassID,
		Date:         dateOnly(row.Date),
		Reason:       row.Reason,
		Status:       substitution.Status(row.Status),
		SubstituteID: row.SubstituteID.String,
		ReviewedBy:   row.ReviewedBy.String,
		ReviewNote:   row.ReviewNote,
		ReviewedAt:   timePtr(row.ReviewedAt),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

type substitutionRepository struct {
	db *sqlx.DB
}

var _ substitution.Repository = (*substitutionRepository)(nil) // interface compliance check

func NewSubstitutionRepository(db *sqlx.DB) substitution.Repository {
	return &substitutionRepository{db: db}
}

func (repo *substitutionRepository) CreateSubstitution(ctx context.Context, sub substitution.Substitution) (substitution.Substitution, error) {
	sub.ID = newID()
	row := toSubstitutionRow(sub)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO substitutions (`+substitutionColumns+`)
		VALUES (:id, :requester_id, :class_id, :date, :reason, :status, :substitute_id, :reviewed_by,
			:review_note, :reviewed_at, :created_at, :updated_at)`,
		row)
	if err != nil {
		return substitution.Substitution{}, errors.Wrap(err, "inserting substitution")
	}
	return row.substitution(), nil
}

func (repo *substitutionRepository) GetSubstitution(ctx context.Context, id string) (substitution.Substitution, error) {
	if !validID(id) {
		return substitution.Substitution{}, substitution.ErrNotFound
	}
	var row substitutionRow
	q := "SELECT " + substitutionColumns + " FROM substitutions WHERE id = $1"
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return substitution.Substitution{}, trapNoRowsErr(err, substitution.ErrNotFound, "finding substitution")
	}
	return row.substitution(), nil
}

func (repo *substitutionRepository) QuerySubstitutions(
	ctx context.Context, filter *substitution.QueryFilter,
) ([]substitution.Substitution, error) {
	var w where
	if filter != nil {
		if filter.Status != "" {
			w.and("status = ?", string(filter.Status))
		}
		for column, id := range map[string]string{
			"requester_id":  filter.RequesterID,
			"substitute_id": filter.SubstituteID,
			"class_id":      filter.ClassID,
		} {
			if id == "" {
				continue
			}
			if !validID(id) {
				return []substitution.Substitution{}, nil
			}
			w.and(column+" = ?", id)
		}
		if !filter.From.IsZero() {
			w.and("date >= ?", dateOnly(filter.From))
		}
		if !filter.To.IsZero() {
			w.and("date <= ?", dateOnly(filter.To))
		}
	}
	var rows []substitutionRow
	err := selectWhere(ctx, repo.db, &rows, "SELECT "+substitutionColumns+" FROM substitutions", &w,
		" ORDER BY date DESC, created_at DESC")
	if err != nil {
		return nil, errors.Wrap(err, "querying substitutions")
	}
	subs := make([]substitution.Substitution, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.substitution())
	}
	return subs, nil
}

func (repo *substitutionRepository) UpdateSubstitution(ctx context.Context, sub substitution.Substitution) (substitution.Substitution, error) {
	row := toSubstitutionRow(sub)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE substitutions SET
			status = :status, substitute_id = :substitute_id, reviewed_by = :reviewed_by,
			review_note = :review_note, reviewed_at = :reviewed_at, updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return substitution.Substitution{}, errors.Wrap(err, "updating substitution")
	}
	if err = checkAffected(res, substitution.ErrNotFound); err != nil {
		return substitution.Substitution{}, err
	}
	return row.substitution(), nil
}

func (repo *substitutionRepository) DeleteSubstitution(ctx context.Context, id string) error {
	if !validID(id) {
		return substitution.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM substitutions WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting substitution")
	}
	return checkAffected(res, substitution.ErrNotFound)
}
