package dummydb

import (
	"context"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
)

type attendanceRepository struct {
	db *table[attendance.Record]
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) Upsert(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec.Date = dateOnly(rec.Date)
	for id, orig := range repo.db.rows {
		if orig.StudentID == rec.StudentID && orig.Date.Equal(rec.Date) {
			orig.ClassID = rec.ClassID
			orig.Status = rec.Status
			orig.Notes = rec.Notes
			orig.MarkedBy = rec.MarkedBy
			orig.UpdatedAt = rec.UpdatedAt
			repo.db.rows[id] = orig
			return orig, nil
		}
	}
	rec.ID = newID()
	repo.db.rows[rec.ID] = rec
	return rec, nil
}

func (repo *attendanceRepository) Get(_ context.Context, id string) (attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.rows[id]; ok {
		return rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) Query(_ context.Context, filter *attendance.QueryFilter) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	keep := func(rec attendance.Record) bool {
		if filter == nil {
			return true
		}
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			return false
		}
		if filter.ClassID != "" && rec.ClassID != filter.ClassID {
			return false
		}
		if filter.Status != "" && rec.Status != filter.Status {
			return false
		}
		return inRange(rec.Date, filter.From, filter.To)
	}
	less := func(a, b attendance.Record) bool { return a.Date.Before(b.Date) }
	return repo.db.all(keep, less), nil
}

func (repo *attendanceRepository) Delete(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.db.rows, id)
	return nil
}
