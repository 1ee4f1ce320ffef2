package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
)

const attendanceColumns = "id, student_id, class_id, date, status, notes, marked_by, created_at, updated_at"

type attendanceRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	ClassID   null.String `db:"class_id"`
	Date      time.Time   `db:"date"`
	Status    string      `db:"status"`
	Notes     string      `db:"notes"`
	MarkedBy  null.String `db:"marked_by"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func toAttendanceRow(rec attendance.Record) attendanceRow {
	return attendanceRow{
		ID:        rec.ID,
		StudentID: rec.StudentID,
		ClassID:   null.NewString(rec.ClassID, validID(rec.ClassID)),
		Date:      dateOnly(rec.Date),
		Status:    string(rec.Status),
		Notes:     rec.Notes,
		MarkedBy:  null.NewString(rec.MarkedBy, validID(rec.MarkedBy)),
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
}

func (row attendanceRow) record() attendance.Record {
	return attendance.Record{
		ID:        row.ID,
		StudentID: row.StudentID,
		ClassID:   row.ClassID.String,
		Date:      dateOnly(row.Date),
		Status:    attendance.Status(row.Status),
		Notes:     row.Notes,
		MarkedBy:  row.MarkedBy.String,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) Upsert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	rec.ID = newID()
	row := toAttendanceRow(rec)
	q, args, err := repo.db.BindNamed(`
		INSERT INTO attendance (`+attendanceColumns+`)
		VALUES (:id, :student_id, :class_id, :date, :status, :notes, :marked_by, :created_at, :updated_at)
		ON CONFLICT (student_id, date) DO UPDATE SET
			class_id = EXCLUDED.class_id, status = EXCLUDED.status, notes = EXCLUDED.notes,
			marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
		RETURNING `+attendanceColumns, row)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "binding attendance")
	}
	var saved attendanceRow
	if err = repo.db.GetContext(ctx, &saved, q, args...); err != nil {
		return attendance.Record{}, errors.Wrap(err, "upserting attendance")
	}
	return saved.record(), nil
}

func (repo *attendanceRepository) Get(ctx context.Context, id string) (attendance.Record, error) {
	if !validID(id) {
		return attendance.Record{}, attendance.ErrNotFound
	}
	var row attendanceRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+attendanceColumns+" FROM attendance WHERE id = $1", id); err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrNotFound, "finding attendance")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) Query(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.Record, error) {
	var w where
	if filter != nil {
		if filter.StudentID != "" {
			if !validID(filter.StudentID) {
				return []attendance.Record{}, nil
			}
			w.and("student_id = ?", filter.StudentID)
		}
		if filter.ClassID != "" {
			if !validID(filter.ClassID) {
				return []attendance.Record{}, nil
			}
			w.and("class_id = ?", filter.ClassID)
		}
		if filter.Status != "" {
			w.and("status = ?", string(filter.Status))
		}
		if !filter.From.IsZero() {
			w.and("date >= ?", dateOnly(filter.From))
		}
		if !filter.To.IsZero() {
			w.and("date <= ?", dateOnly(filter.To))
		}
	}
	var rows []attendanceRow
	if err := selectWhere(ctx, repo.db, &rows, "SELECT "+attendanceColumns+" FROM attendance", &w, " ORDER BY date ASC"); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (repo *attendanceRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return attendance.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM attendance WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return checkAffected(res, attendance.ErrNotFound)
}
