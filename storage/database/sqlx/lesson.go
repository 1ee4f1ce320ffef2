package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/lesson"
)

const lessonColumns = "id, class_id, teacher_id, date, topic, notes, created_at, updated_at"

type lessonRow struct {
	ID        string      `db:"id"`
	ClassID   string      `db:"class_id"`
	TeacherID null.String `db:"teacher_id"`
	Date      time.Time   `db:"date"`
	Topic     string      `db:"topic"`
	Notes     string      `db:"notes"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func toLessonRow(l lesson.Lesson) lessonRow {
	return lessonRow{
		ID:        l.ID,
		ClassID:   l.ClassID,
		TeacherID: null.NewString(l.TeacherID, validID(l.TeacherID)),
		Date:      dateOnly(l.Date),
		Topic:     l.Topic,
		Notes:     l.Notes,
		CreatedAt: l.CreatedAt.UTC(),
		UpdatedAt: l.UpdatedAt.UTC(),
	}
}

func (row lessonRow) lesson() lesson.Lesson {
	return lesson.Lesson{
		ID:        row.ID,
		ClassID:   row.ClassID,
		TeacherID: row.TeacherID.String,
		Date:      dateOnly(row.Date),
		Topic:     row.Topic,
		Notes:     row.Notes,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type lessonRepository struct {
	db *sqlx.DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *sqlx.DB) lesson.Repository {
	return &lessonRepository{db: db}
}

func (repo *lessonRepository) CreateLesson(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	l.ID = newID()
	row := toLessonRow(l)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO lessons (`+lessonColumns+`)
		VALUES (:id, :class_id, :teacher_id, :date, :topic, :notes, :created_at, :updated_at)`,
		row)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return row.lesson(), nil
}

func (repo *lessonRepository) GetLesson(ctx context.Context, id string) (lesson.Lesson, error) {
	if !validID(id) {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	var row lessonRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+lessonColumns+" FROM lessons WHERE id = $1", id); err != nil {
		return lesson.Lesson{}, trapNoRowsErr(err, lesson.ErrNotFound, "finding lesson")
	}
	return row.lesson(), nil
}

func (repo *lessonRepository) QueryLessons(ctx context.Context, filter *lesson.QueryFilter) ([]lesson.Lesson, error) {
	var w where
	suffix := " ORDER BY date DESC, created_at DESC"
	if filter != nil {
		if filter.ClassID != "" {
			if !validID(filter.ClassID) {
				return []lesson.Lesson{}, nil
			}
			w.and("class_id = ?", filter.ClassID)
		}
		if filter.TeacherID != "" {
			if !validID(filter.TeacherID) {
				return []lesson.Lesson{}, nil
			}
			w.and("teacher_id = ?", filter.TeacherID)
		}
		if !filter.From.IsZero() {
			w.and("date >= ?", dateOnly(filter.From))
		}
		if !filter.To.IsZero() {
			w.and("date <= ?", dateOnly(filter.To))
		}
		if filter.Limit > 0 {
			suffix += fmt.Sprintf(" LIMIT %d", filter.Limit)
		}
	}
	var rows []lessonRow
	if err := selectWhere(ctx, repo.db, &rows, "SELECT "+lessonColumns+" FROM lessons", &w, suffix); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]lesson.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, row.lesson())
	}
	return lessons, nil
}

func (repo *lessonRepository) UpdateLesson(ctx context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	row := toLessonRow(l)
	res, err := repo.db.NamedExecContext(ctx,
		"UPDATE lessons SET date = :date, topic = :topic, notes = :notes, updated_at = :updated_at WHERE id = :id", row)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if err = checkAffected(res, lesson.ErrNotFound); err != nil {
		return lesson.Lesson{}, err
	}
	return row.lesson(), nil
}

func (repo *lessonRepository) DeleteLesson(ctx context.Context, id string) error {
	if !validID(id) {
		return lesson.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM lessons WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return checkAffected(res, lesson.ErrNotFound)
}
