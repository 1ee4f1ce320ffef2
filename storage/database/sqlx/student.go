package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
)

const (
	studentColumns = "id, user_id, class_id, first_name, last_name, birth_date, parent_name, parent_contact, " +
		"parent_email, enrolled, payment_exempted, created_at, updated_at"
	classColumns = "id, name, teacher_id, student_ids, created_at, updated_at"
)

type studentRow struct {
	ID              string      `db:"id"`
	UserID          null.String `db:"user_id"`
	ClassID         null.String `db:"class_id"`
	FirstName       string      `db:"first_name"`
	LastName        string      `db:"last_name"`
	BirthDate       null.Time   `db:"birth_date"`
	ParentName      string      `db:"parent_name"`
	ParentContact   string      `db:"parent_contact"`
	ParentEmail     string      `db:"parent_email"`
	Enrolled        bool        `db:"enrolled"`
	PaymentExempted bool        `db:"payment_exempted"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func toStudentRow(s student.Student) studentRow {
	return studentRow{
		ID:              s.ID,
		UserID:          nullID(s.UserID),
		ClassID:         nullID(s.ClassID),
		FirstName:       s.FirstName,
		LastName:        s.LastName,
		BirthDate:       nullTime(s.BirthDate),
		ParentName:      s.ParentName,
		ParentContact:   s.ParentContact,
		ParentEmail:     s.ParentEmail,
		Enrolled:        s.Enrolled,
		PaymentExempted: s.PaymentExempted,
		CreatedAt:       s.CreatedAt.UTC(),
		UpdatedAt:       s.UpdatedAt.UTC(),
	}
}

func (row studentRow) student() student.Student {
	s := student.Student{
		ID:              row.ID,
		UserID:          row.UserID.String,
		ClassID:         row.ClassID.String,
		FirstName:       row.FirstName,
		LastName:        row.LastName,
		ParentName:      row.ParentName,
		ParentContact:   row.ParentContact,
		ParentEmail:     row.ParentEmail,
		Enrolled:        row.Enrolled,
		PaymentExempted: row.PaymentExempted,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if row.BirthDate.Valid {
		s.BirthDate = dateOnly(row.BirthDate.Time)
	}
	return s
}

type classRow struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	TeacherID  null.String    `db:"teacher_id"`
	StudentIDs pq.StringArray `db:"student_ids"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func toClassRow(c student.Class) classRow {
	ids := c.StudentIDs
	if ids == nil {
		ids = []string{}
	}
	return classRow{
		ID:         c.ID,
		Name:       c.Name,
		TeacherID:  nullID(c.TeacherID),
		StudentIDs: ids,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
}

func (row classRow) class() student.Class {
	ids := []string(row.StudentIDs)
	if ids == nil {
		ids = []string{}
	}
	return student.Class{
		ID:         row.ID,
		Name:       row.Name,
		TeacherID:  row.TeacherID.String,
		StudentIDs: ids,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	s.ID = newID()
	row := toStudentRow(s)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES (:id, :user_id, :class_id, :first_name, :last_name, :birth_date, :parent_name, :parent_contact,
			:parent_email, :enrolled, :payment_exempted, :created_at, :updated_at)`,
		row)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return row.student(), nil
}

func (repo *studentRepository) getStudent(ctx context.Context, column, value string) (student.Student, error) {
	if !validID(value) {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	q := "SELECT " + studentColumns + " FROM students WHERE " + column + " = $1"
	if err := repo.db.GetContext(ctx, &row, q, value); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return row.student(), nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	return repo.getStudent(ctx, "id", id)
}

func (repo *studentRepository) GetStudentByUserID(ctx context.Context, userID string) (student.Student, error) {
	return repo.getStudent(ctx, "user_id", userID)
}

func (repo *studentRepository) QueryStudents(
	ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering,
) ([]student.Student, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := ilike(filter.Search)
			w.and("first_name ILIKE ? OR last_name ILIKE ? OR parent_name ILIKE ? OR parent_contact ILIKE ?", val, val, val, val)
		}
		if filter.ClassID != "" {
			if !validID(filter.ClassID) {
				return []student.Student{}, nil
			}
			w.and("class_id = ?", filter.ClassID)
		}
		if filter.Enrolled != nil {
			w.and("enrolled = ?", *filter.Enrolled)
		}
		if filter.ParentContact != "" {
			w.and("TRIM(parent_contact) = ?", filter.ParentContact)
		}
	}

	var rows []studentRow
	err := selectWhere(ctx, repo.db, &rows, "SELECT "+studentColumns+" FROM students", &w,
		orderBy(ordering, "last_name ASC, first_name ASC"))
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	row := toStudentRow(s)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE students SET
			user_id = :user_id, class_id = :class_id, first_name = :first_name, last_name = :last_name,
			birth_date = :birth_date, parent_name = :parent_name, parent_contact = :parent_contact,
			parent_email = :parent_email, enrolled = :enrolled, payment_exempted = :payment_exempted,
			updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if err = checkAffected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return row.student(), nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if !validID(id) {
		return student.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, student.ErrNotFound)
}

// Classes

func (repo *studentRepository) CreateClass(ctx context.Context, c student.Class) (student.Class, error) {
	c.ID = newID()
	row := toClassRow(c)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO classes (`+classColumns+`)
		VALUES (:id, :name, :teacher_id, :student_ids, :created_at, :updated_at)`,
		row)
	if err != nil {
		return student.Class{}, errors.Wrap(err, "inserting class")
	}
	return row.class(), nil
}

func (repo *studentRepository) GetClass(ctx context.Context, id string) (student.Class, error) {
	if !validID(id) {
		return student.Class{}, student.ErrClassNotFound
	}
	var row classRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+classColumns+" FROM classes WHERE id = $1", id); err != nil {
		return student.Class{}, trapNoRowsErr(err, student.ErrClassNotFound, "finding class")
	}
	return row.class(), nil
}

func (repo *studentRepository) QueryClasses(ctx context.Context, filter *student.ClassFilter) ([]student.Class, error) {
	var w where
	if filter != nil && filter.TeacherID != "" {
		if !validID(filter.TeacherID) {
			return []student.Class{}, nil
		}
		w.and("teacher_id = ?", filter.TeacherID)
	}
	var rows []classRow
	if err := selectWhere(ctx, repo.db, &rows, "SELECT "+classColumns+" FROM classes", &w, " ORDER BY name ASC"); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]student.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.class())
	}
	return classes, nil
}

func (repo *studentRepository) UpdateClass(ctx context.Context, c student.Class) (student.Class, error) {
	row := toClassRow(c)
	res, err := repo.db.NamedExecContext(ctx,
		"UPDATE classes SET name = :name, teacher_id = :teacher_id, updated_at = :updated_at WHERE id = :id", row)
	if err != nil {
		return student.Class{}, errors.Wrap(err, "updating class")
	}
	if err = checkAffected(res, student.ErrClassNotFound); err != nil {
		return student.Class{}, err
	}
	return repo.GetClass(ctx, c.ID)
}

func (repo *studentRepository) DeleteClass(ctx context.Context, id string) error {
	if !validID(id) {
		return student.ErrClassNotFound
	}
	// students.class_id is set to NULL by the foreign key
	res, err := repo.db.ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return checkAffected(res, student.ErrClassNotFound)
}

func (repo *studentRepository) AddClassStudent(ctx context.Context, classID, studentID string) error {
	if !validID(classID) {
		return student.ErrClassNotFound
	}
	res, err := repo.db.ExecContext(ctx, `
		UPDATE classes SET student_ids = ARRAY_APPEND(student_ids, $2::text), updated_at = $3
		WHERE id = $1 AND NOT ($2::text = ANY(student_ids))`,
		classID, studentID, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "adding class student")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "getting affected rows")
	}
	if n == 0 {
		// already in the class, or no such class
		if _, err = repo.GetClass(ctx, classID); err != nil {
			return err
		}
	}
	return nil
}

func (repo *studentRepository) RemoveClassStudent(ctx context.Context, classID, studentID string) error {
	if !validID(classID) {
		return student.ErrClassNotFound
	}
	res, err := repo.db.ExecContext(ctx,
		"UPDATE classes SET student_ids = ARRAY_REMOVE(student_ids, $2::text), updated_at = $3 WHERE id = $1",
		classID, studentID, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "removing class student")
	}
	return checkAffected(res, student.ErrClassNotFound)
}
