package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/homework"
)

const (
	homeworkColumns   = "id, class_id, teacher_id, title, description, due_date, created_at, updated_at"
	submissionColumns = "id, homework_id, student_id, content, status, grade, feedback, submitted_at, graded_at, graded_by"
)

type homeworkRow struct {
	ID          string      `db:"id"`
	ClassID     string      `db:"class_id"`
	TeacherID   null.String `db:"teacher_id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	DueDate     time.Time   `db:"due_date"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toHomeworkRow(hw homework.Homework) homeworkRow {
	return homeworkRow{
		ID:          hw.ID,
		ClassID:     hw.ClassID,
		TeacherID:   null.NewString(hw.TeacherID, validID(hw.TeacherID)),
		Title:       hw.Title,
		Description: hw.Description,
		DueDate:     dateOnly(hw.DueDate),
		CreatedAt:   hw.CreatedAt.UTC(),
		UpdatedAt:   hw.UpdatedAt.UTC(),
	}
}

func (row homeworkRow) homework() homework.Homework {
	return homework.Homework{
		ID:          row.ID,
		ClassID:     row.ClassID,
		TeacherID:   row.TeacherID.String,
		Title:       row.Title,
		Description: row.Description,
		DueDate:     dateOnly(row.DueDate),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type submissionRow struct {
	ID          string       `db:"id"`
	HomeworkID  string       `db:"homework_id"`
	StudentID   string       `db:"student_id"`
	Content     string       `db:"content"`
	Status      string       `db:"status"`
	Grade       null.Float64 `db:"grade"`
	Feedback    string       `db:"feedback"`
	SubmittedAt time.Time    `db:"submitted_at"`
	GradedAt    null.Time    `db:"graded_at"`
	GradedBy    null.String  `db:"graded_by"`
}

func toSubmissionRow(sub homework.Submission) submissionRow {
	return submissionRow{
		ID:          sub.ID,
		HomeworkID:  sub.HomeworkID,
		StudentID:   sub.StudentID,
		Content:     sub.Content,
		Status:      string(sub.Status),
		Grade:       null.Float64FromPtr(sub.Grade),
		Feedback:    sub.Feedback,
		SubmittedAt: sub.SubmittedAt.UTC(),
		GradedAt:    nullTimePtr(sub.GradedAt),
		GradedBy:    null.NewString(sub.GradedBy, validID(sub.GradedBy)),
	}
}

func (row submissionRow) submission() homework.Submission {
	return homework.Submission{
		ID:          row.ID,
		HomeworkID:  row.HomeworkID,
		StudentID:   row.StudentID,
		Content:     row.Content,
		Status:      homework.SubmissionStatus(row.Status),
		Grade:       row.Grade.Ptr(),
		Feedback:    row.Feedback,
		SubmittedAt: row.SubmittedAt.UTC(),
		GradedAt:    timePtr(row.GradedAt),
		GradedBy:    row.GradedBy.String,
	}
}

type homeworkRepository struct {
	db *sqlx.DB
}

var _ homework.Repository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(db *sqlx.DB) homework.Repository {
	return &homeworkRepository{db: db}
}

func (repo *homeworkRepository) CreateHomework(ctx context.Context, hw homework.Homework) (homework.Homework, error) {
	hw.ID = newID()
	row := toHomeworkRow(hw)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO homework (`+homeworkColumns+`)
		VALUES (:id, :class_id, :teacher_id, :title, :description, :due_date, :created_at, :updated_at)`,
		row)
	if err != nil {
		return homework.Homework{}, errors.Wrap(err, "inserting homework")
	}
	return row.homework(), nil
}

func (repo *homeworkRepository) GetHomework(ctx context.Context, id string) (homework.Homework, error) {
	if !validID(id) {
		return homework.Homework{}, homework.ErrNotFound
	}
	var row homeworkRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+homeworkColumns+" FROM homework WHERE id = $1", id); err != nil {
		return homework.Homework{}, trapNoRowsErr(err, homework.ErrNotFound, "finding homework")
	}
	return row.homework(), nil
}

func (repo *homeworkRepository) QueryHomework(ctx context.Context, filter *homework.QueryFilter) ([]homework.Homework, error) {
	var w where
	if filter != nil {
		if filter.ClassID != "" {
			if !validID(filter.ClassID) {
				return []homework.Homework{}, nil
			}
			w.and("class_id = ?", filter.ClassID)
		}
		if filter.TeacherID != "" {
			if !validID(filter.TeacherID) {
				return []homework.Homework{}, nil
			}
			w.and("teacher_id = ?", filter.TeacherID)
		}
		if !filter.DueFrom.IsZero() {
			w.and("due_date >= ?", dateOnly(filter.DueFrom))
		}
		if !filter.DueTo.IsZero() {
			w.and("due_date <= ?", dateOnly(filter.DueTo))
		}
	}
	var rows []homeworkRow
	err := selectWhere(ctx, repo.db, &rows, "SELECT "+homeworkColumns+" FROM homework", &w, " ORDER BY due_date ASC, title ASC")
	if err != nil {
		return nil, errors.Wrap(err, "querying homework")
	}
	hws := make([]homework.Homework, 0, len(rows))
	for _, row := range rows {
		hws = append(hws, row.homework())
	}
	return hws, nil
}

func (repo *homeworkRepository) UpdateHomework(ctx context.Context, hw homework.Homework) (homework.Homework, error) {
	row := toHomeworkRow(hw)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE homework SET title = :title, description = :description, due_date = :due_date, updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return homework.Homework{}, errors.Wrap(err, "updating homework")
	}
	if err = checkAffected(res, homework.ErrNotFound); err != nil {
		return homework.Homework{}, err
	}
	return row.homework(), nil
}

func (repo *homeworkRepository) DeleteHomework(ctx context.Context, id string) error {
	if !validID(id) {
		return homework.ErrNotFound
	}
	// submissions are deleted by the foreign key
	res, err := repo.db.ExecContext(ctx, "DELETE FROM homework WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting homework")
	}
	return checkAffected(res, homework.ErrNotFound)
}

// Submissions

func (repo *homeworkRepository) CreateSubmission(ctx context.Context, sub homework.Submission) (homework.Submission, error) {
	sub.ID = newID()
	row := toSubmissionRow(sub)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO homework_submissions (`+submissionColumns+`)
		VALUES (:id, :homework_id, :student_id, :content, :status, :grade, :feedback, :submitted_at, :graded_at, :graded_by)`,
		row)
	if err != nil {
		return homework.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return row.submission(), nil
}

func (repo *homeworkRepository) GetSubmission(ctx context.Context, id string) (homework.Submission, error) {
	if !validID(id) {
		return homework.Submission{}, homework.ErrSubmissionNotFound
	}
	var row submissionRow
	q := "SELECT " + submissionColumns + " FROM homework_submissions WHERE id = $1"
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return homework.Submission{}, trapNoRowsErr(err, homework.ErrSubmissionNotFound, "finding submission")
	}
	return row.submission(), nil
}

func (repo *homeworkRepository) GetStudentSubmission(ctx context.Context, homeworkID, studentID string) (homework.Submission, error) {
	if !validID(homeworkID) || !validID(studentID) {
		return homework.Submission{}, homework.ErrSubmissionNotFound
	}
	var row submissionRow
	q := "SELECT " + submissionColumns + " FROM homework_submissions WHERE homework_id = $1 AND student_id = $2"
	if err := repo.db.GetContext(ctx, &row, q, homeworkID, studentID); err != nil {
		return homework.Submission{}, trapNoRowsErr(err, homework.ErrSubmissionNotFound, "finding submission")
	}
	return row.submission(), nil
}

func (repo *homeworkRepository) QuerySubmissions(ctx context.Context, filter *homework.SubmissionFilter) ([]homework.Submission, error) {
	var w where
	if filter != nil {
		if filter.HomeworkID != "" {
			if !validID(filter.HomeworkID) {
				return []homework.Submission{}, nil
			}
			w.and("homework_id = ?", filter.HomeworkID)
		}
		if filter.StudentID != "" {
			if !validID(filter.StudentID) {
				return []homework.Submission{}, nil
			}
			w.and("student_id = ?", filter.StudentID)
		}
		if filter.Status != "" {
			w.and("status = ?", string(filter.Status))
		}
	}
	var rows []submissionRow
	err := selectWhere(ctx, repo.db, &rows, "SELECT "+submissionColumns+" FROM homework_submissions", &w,
		" ORDER BY submitted_at DESC")
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]homework.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.submission())
	}
	return subs, nil
}

func (repo *homeworkRepository) UpdateSubmission(ctx context.Context, sub homework.Submission) (homework.Submission, error) {
	row := toSubmissionRow(sub)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE homework_submissions SET
			content = :content, status = :status, grade = :grade, feedback = :feedback,
			submitted_at = :submitted_at, graded_at = :graded_at, graded_by = :graded_by
		WHERE id = :id`,
		row)
	if err != nil {
		return homework.Submission{}, errors.Wrap(err, "updating submission")
	}
	if err = checkAffected(res, homework.ErrSubmissionNotFound); err != nil {
		return homework.Submission{}, err
	}
	return row.submission(), nil
}
