package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/homework"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	t := repo.db.student
	t.Lock()
	defer t.Unlock()

	s.ID = newID()
	t.rows[s.ID] = s
	return s, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	t := repo.db.student
	t.RLock()
	defer t.RUnlock()

	if s, ok := t.rows[id]; ok {
		return s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByUserID(_ context.Context, userID string) (student.Student, error) {
	t := repo.db.student
	t.RLock()
	defer t.RUnlock()

	for _, s := range t.rows {
		if userID != "" && s.UserID == userID {
			return s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func studentMatches(s student.Student, filter *student.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if q := strings.ToLower(filter.Search); q != "" {
		if !strings.Contains(strings.ToLower(s.FirstName), q) &&
			!strings.Contains(strings.ToLower(s.LastName), q) &&
			!strings.Contains(strings.ToLower(s.ParentName), q) &&
			!strings.Contains(strings.ToLower(s.ParentContact), q) {
			return false
		}
	}
	if filter.ClassID != "" && s.ClassID != filter.ClassID {
		return false
	}
	if filter.Enrolled != nil && s.Enrolled != *filter.Enrolled {
		return false
	}
	if filter.ParentContact != "" && strings.TrimSpace(s.ParentContact) != filter.ParentContact {
		return false
	}
	return true
}

func studentLess(ordering []core.DBOrdering) func(a, b student.Student) bool {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "last_name", Ascending: true}, {Field: "first_name", Ascending: true}}
	}
	return func(a, b student.Student) bool {
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "first_name":
				cmp = strings.Compare(a.FirstName, b.FirstName)
			case "last_name":
				cmp = strings.Compare(a.LastName, b.LastName)
			case "birth_date":
				cmp = a.BirthDate.Compare(b.BirthDate)
			case "parent_name":
				cmp = strings.Compare(a.ParentName, b.ParentName)
			case "created_at":
				cmp = a.CreatedAt.Compare(b.CreatedAt)
			case "updated_at":
				cmp = a.UpdatedAt.Compare(b.UpdatedAt)
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return a.ID < b.ID
	}
}

func (repo *studentRepository) QueryStudents(
	_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering,
) ([]student.Student, error) {
	t := repo.db.student
	t.RLock()
	defer t.RUnlock()

	keep := func(s student.Student) bool { return studentMatches(s, filter) }
	return t.all(keep, studentLess(ordering)), nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	t := repo.db.student
	t.Lock()
	defer t.Unlock()

	orig, ok := t.rows[s.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	s.CreatedAt = orig.CreatedAt
	t.rows[s.ID] = s
	return s, nil
}

// DeleteStudent also deletes the submissions and attendance of the student.
func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	t := repo.db.student
	t.Lock()
	if _, ok := t.rows[id]; !ok {
		t.Unlock()
		return student.ErrNotFound
	}
	delete(t.rows, id)
	t.Unlock()

	deleteWhere(repo.db.submission, func(sub homework.Submission) bool { return sub.StudentID == id })
	deleteWhere(repo.db.attendance, func(rec attendance.Record) bool { return rec.StudentID == id })
	return nil
}

// deleteWhere deletes the rows of the table matching del.
func deleteWhere[T any](t *table[T], del func(T) bool) {
	t.Lock()
	defer t.Unlock()
	for id, row := range t.rows {
		if del(row) {
			delete(t.rows, id)
		}
	}
}

// Classes

func (repo *studentRepository) CreateClass(_ context.Context, c student.Class) (student.Class, error) {
	t := repo.db.class
	t.Lock()
	defer t.Unlock()

	c.ID = newID()
	if c.StudentIDs == nil {
		c.StudentIDs = []string{}
	}
	t.rows[c.ID] = c
	return c, nil
}

func (repo *studentRepository) GetClass(_ context.Context, id string) (student.Class, error) {
	t := repo.db.class
	t.RLock()
	defer t.RUnlock()

	if c, ok := t.rows[id]; ok {
		c.StudentIDs = append([]string{}, c.StudentIDs...)
		return c, nil
	}
	return student.Class{}, student.ErrClassNotFound
}

func (repo *studentRepository) QueryClasses(_ context.Context, filter *student.ClassFilter) ([]student.Class, error) {
	t := repo.db.class
	t.RLock()
	defer t.RUnlock()

	keep := func(c student.Class) bool {
		return filter == nil || filter.TeacherID == "" || c.TeacherID == filter.TeacherID
	}
	less := func(a, b student.Class) bool { return a.Name < b.Name }
	return t.all(keep, less), nil
}

func (repo *studentRepository) UpdateClass(_ context.Context, c student.Class) (student.Class, error) {
	t := repo.db.class
	t.Lock()
	defer t.Unlock()

	orig, ok := t.rows[c.ID]
	if !ok {
		return student.Class{}, student.ErrClassNotFound
	}
	orig.Name = c.Name
	orig.TeacherID = c.TeacherID
	orig.UpdatedAt = c.UpdatedAt
	t.rows[c.ID] = orig
	return orig, nil
}

// DeleteClass also unassigns the students of the class and deletes its homework, lessons and materials.
func (repo *studentRepository) DeleteClass(_ context.Context, id string) error {
	t := repo.db.class
	t.Lock()
	if _, ok := t.rows[id]; !ok {
		t.Unlock()
		return student.ErrClassNotFound
	}
	delete(t.rows, id)
	t.Unlock()

	st := repo.db.student
	st.Lock()
	for sid, s := range st.rows {
		if s.ClassID == id {
			s.ClassID = ""
			st.rows[sid] = s
		}
	}
	st.Unlock()

	repo.db.deleteClassContent(id)
	return nil
}

func (repo *studentRepository) updateStudentIDs(classID string, update func([]string) []string) error {
	t := repo.db.class
	t.Lock()
	defer t.Unlock()

	c, ok := t.rows[classID]
	if !ok {
		return student.ErrClassNotFound
	}
	c.StudentIDs = update(c.StudentIDs)
	c.UpdatedAt = time.Now().UTC()
	t.rows[classID] = c
	return nil
}

func (repo *studentRepository) AddClassStudent(_ context.Context, classID, studentID string) error {
	return repo.updateStudentIDs(classID, func(ids []string) []string {
		for _, id := range ids {
			if id == studentID {
				return ids
			}
		}
		return append(append([]string{}, ids...), studentID)
	})
}

func (repo *studentRepository) RemoveClassStudent(_ context.Context, classID, studentID string) error {
	return repo.updateStudentIDs(classID, func(ids []string) []string {
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if id != studentID {
				kept = append(kept, id)
			}
		}
		return kept
	})
}
