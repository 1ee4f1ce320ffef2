package dummydb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/homework"
)

type homeworkRepository struct {
	db *DB
}

var _ homework.Repository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(db *DB) homework.Repository {
	return &homeworkRepository{db: db}
}

func (repo *homeworkRepository) CreateHomework(_ context.Context, hw homework.Homework) (homework.Homework, error) {
	t := repo.db.homework
	t.Lock()
	defer t.Unlock()

	hw.ID = newID()
	t.rows[hw.ID] = hw
	return hw, nil
}

func (repo *homeworkRepository) GetHomework(_ context.Context, id string) (homework.Homework, error) {
	t := repo.db.homework
	t.RLock()
	defer t.RUnlock()

	if hw, ok := t.rows[id]; ok {
		return hw, nil
	}
	return homework.Homework{}, homework.ErrNotFound
}

func (repo *homeworkRepository) QueryHomework(_ context.Context, filter *homework.QueryFilter) ([]homework.Homework, error) {
	t := repo.db.homework
	t.RLock()
	defer t.RUnlock()

	keep := func(hw homework.Homework) bool {
		if filter == nil {
			return true
		}
		if filter.ClassID != "" && hw.ClassID != filter.ClassID {
			return false
		}
		if filter.TeacherID != "" && hw.TeacherID != filter.TeacherID {
			return false
		}
		return inRange(hw.DueDate, filter.DueFrom, filter.DueTo)
	}
	less := func(a, b homework.Homework) bool {
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.Title < b.Title
	}
	return t.all(keep, less), nil
}

func (repo *homeworkRepository) UpdateHomework(_ context.Context, hw homework.Homework) (homework.Homework, error) {
	t := repo.db.homework
	t.Lock()
	defer t.Unlock()

	orig, ok := t.rows[hw.ID]
	if !ok {
		return homework.Homework{}, homework.ErrNotFound
	}
	orig.Title = hw.Title
	orig.Description = hw.Description
	orig.DueDate = hw.DueDate
	orig.UpdatedAt = hw.UpdatedAt
	t.rows[hw.ID] = orig
	return orig, nil
}

func (repo *homeworkRepository) DeleteHomework(_ context.Context, id string) error {
	t := repo.db.homework
	t.Lock()
	if _, ok := t.rows[id]; !ok {
		t.Unlock()
		return homework.ErrNotFound
	}
	delete(t.rows, id)
	t.Unlock()

	deleteWhere(repo.db.submission, func(sub homework.Submission) bool { return sub.HomeworkID == id })
	return nil
}

// Submissions

func (repo *homeworkRepository) CreateSubmission(_ context.Context, sub homework.Submission) (homework.Submission, error) {
	t := repo.db.submission
	t.Lock()
	defer t.Unlock()

	for _, s := range t.rows {
		if s.HomeworkID == sub.HomeworkID && s.StudentID == sub.StudentID {
			return homework.Submission{}, errors.New("duplicate submission for student and homework")
		}
	}
	sub.ID = newID()
	t.rows[sub.ID] = sub
	return sub, nil
}

func (repo *homeworkRepository) GetSubmission(_ context.Context, id string) (homework.Submission, error) {
	t := repo.db.submission
	t.RLock()
	defer t.RUnlock()

	if sub, ok := t.rows[id]; ok {
		return sub, nil
	}
	return homework.Submission{}, homework.ErrSubmissionNotFound
}

func (repo *homeworkRepository) GetStudentSubmission(_ context.Context, homeworkID, studentID string) (homework.Submission, error) {
	t := repo.db.submission
	t.RLock()
	defer t.RUnlock()

	for _, sub := range t.rows {
		if sub.HomeworkID == homeworkID && sub.StudentID == studentID {
			return sub, nil
		}
	}
	return homework.Submission{}, homework.ErrSubmissionNotFound
}

func (repo *homeworkRepository) QuerySubmissions(_ context.Context, filter *homework.SubmissionFilter) ([]homework.Submission, error) {
	t := repo.db.submission
	t.RLock()
	defer t.RUnlock()

	keep := func(sub homework.Submission) bool {
		if filter == nil {
			return true
		}
		if filter.HomeworkID != "" && sub.HomeworkID != filter.HomeworkID {
			return false
		}
		if filter.StudentID != "" && sub.StudentID != filter.StudentID {
			return false
		}
		return filter.Status == "" || sub.Status == filter.Status
	}
	less := func(a, b homework.Submission) bool { return a.SubmittedAt.After(b.SubmittedAt) }
	return t.all(keep, less), nil
}

func (repo *homeworkRepository) UpdateSubmission(_ context.Context, sub homework.Submission) (homework.Submission, error) {
	t := repo.db.submission
	t.Lock()
	defer t.Unlock()

	orig, ok := t.rows[sub.ID]
	if !ok {
		return homework.Submission{}, homework.ErrSubmissionNotFound
	}
	sub.HomeworkID = orig.HomeworkID
	sub.StudentID = orig.StudentID
	t.rows[sub.ID] = sub
	return sub, nil
}
