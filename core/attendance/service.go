package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("attendance record not found")
)

type (
	Repository interface {
		// Upsert creates the record or updates the one of the same student and date.
		Upsert(ctx context.Context, rec Record) (Record, error)
		Get(ctx context.Context, id string) (Record, error)
		// Query returns the matching records ordered by date.
		Query(ctx context.Context, filter *QueryFilter) ([]Record, error)
		Delete(ctx context.Context, id string) error
	}

	StudentSource interface {
		GetByID(ctx context.Context, id string) (student.Student, error)
	}

	Service struct {
		repo       Repository
		students   StudentSource
		schoolDays []time.Weekday
	}
)

func NewService(repo Repository, students StudentSource, conf *core.Config) *Service {
	days := conf.SchoolDays
	if len(days) == 0 {
		days = Weekend
	}
	return &Service{repo: repo, students: students, schoolDays: days}
}

func (svc *Service) SchoolDays() []time.Weekday {
	return svc.schoolDays
}

// checkDate parses a YYYY-MM-DD date and rejects days school is closed.
func (svc *Service) checkDate(field, s string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, core.NewFieldValidationError(field, "invalid date")
	}
	if !IsSchoolDay(date, svc.schoolDays...) {
		names := make([]string, len(svc.schoolDays))
		for i, wd := range svc.schoolDays {
			names[i] = wd.String()
		}
		return time.Time{}, core.NewFieldValidationError(
			field, fmt.Sprintf("%s is not a school day (%s)", s, strings.Join(names, ", ")))
	}
	return date, nil
}

// Mark records the attendance of the student, replacing the record of the same day if any.
func (svc *Service) Mark(ctx context.Context, m Mark, markedBy string) (Record, error) {
	date, err := svc.checkDate("date", m.Date)
	if err != nil {
		return Record{}, err
	}
	s, err := svc.students.GetByID(ctx, m.StudentID)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Record{}, core.NewFieldValidationError("student_id", student.ErrNotFound.Error())
		}
		return Record{}, errors.Wrap(err, "finding student")
	}

	now := time.Now().UTC()
	rec := Record{
		StudentID: s.ID,
		ClassID:   s.ClassID,
		Date:      date,
		Status:    m.Status,
		Notes:     m.Notes,
		MarkedBy:  markedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.Upsert(ctx, rec)
}

// MarkClass records the attendance of the class students on a day.
// Entries for students outside the class are rejected before anything is written.
func (svc *Service) MarkClass(ctx context.Context, class student.Class, mc MarkClass, markedBy string) ([]Record, error) {
	date, err := svc.checkDate("date", mc.Date)
	if err != nil {
		return nil, err
	}
	for i, e := range mc.Entries {
		if !class.HasStudent(e.StudentID) {
			return nil, core.NewFieldValidationError(
				fmt.Sprintf("entries[%d].student_id", i), "the student does not belong to the class")
		}
	}

	now := time.Now().UTC()
	records := make([]Record, 0, len(mc.Entries))
	for _, e := range mc.Entries {
		rec, err := svc.repo.Upsert(ctx, Record{
			StudentID: e.StudentID,
			ClassID:   class.ID,
			Date:      date,
			Status:    e.Status,
			Notes:     e.Notes,
			MarkedBy:  markedBy,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return records, errors.Wrapf(err, "marking attendance of student %s", e.StudentID)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Record, error) {
	return svc.repo.Get(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Record, error) {
	return svc.repo.Query(ctx, filter)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.Delete(ctx, id)
}

// StudentMonth returns the attendance report of the student over the month.
func (svc *Service) StudentMonth(ctx context.Context, studentID string, year int, month time.Month) (MonthlyReport, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	records, err := svc.repo.Query(ctx, &QueryFilter{StudentID: studentID, From: from, To: to})
	if err != nil {
		return MonthlyReport{}, errors.Wrap(err, "querying attendance")
	}
	return NewMonthlyReport(studentID, records, year, month, svc.schoolDays...), nil
}
