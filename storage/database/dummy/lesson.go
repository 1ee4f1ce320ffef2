package dummydb

import (
	"context"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/lesson"
)

type lessonRepository struct {
	db *table[lesson.Lesson]
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) lesson.Repository {
	return &lessonRepository{db: db.lesson}
}

func (repo *lessonRepository) CreateLesson(_ context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	l.ID = newID()
	l.Date = dateOnly(l.Date)
	repo.db.rows[l.ID] = l
	return l, nil
}

func (repo *lessonRepository) GetLesson(_ context.Context, id string) (lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if l, ok := repo.db.rows[id]; ok {
		return l, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) QueryLessons(_ context.Context, filter *lesson.QueryFilter) ([]lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	keep := func(l lesson.Lesson) bool {
		if filter == nil {
			return true
		}
		if filter.ClassID != "" && l.ClassID != filter.ClassID {
			return false
		}
		if filter.TeacherID != "" && l.TeacherID != filter.TeacherID {
			return false
		}
		return inRange(l.Date, filter.From, filter.To)
	}
	less := func(a, b lesson.Lesson) bool {
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
	lessons := repo.db.all(keep, less)
	if filter != nil && filter.Limit > 0 && len(lessons) > filter.Limit {
		lessons = lessons[:filter.Limit]
	}
	return lessons, nil
}

func (repo *lessonRepository) UpdateLesson(_ context.Context, l lesson.Lesson) (lesson.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[l.ID]
	if !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	orig.Date = dateOnly(l.Date)
	orig.Topic = l.Topic
	orig.Notes = l.Notes
	orig.UpdatedAt = l.UpdatedAt
	repo.db.rows[l.ID] = orig
	return orig, nil
}

func (repo *lessonRepository) DeleteLesson(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return lesson.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
