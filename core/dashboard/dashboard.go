// Package dashboard aggregates what every role sees on its home page.
// Nothing is stored: every dashboard is computed from the other services on request.
package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/homework"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/lesson"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/substitution"
)

const recentLessons = 5

type (
	Admin struct {
		EnrolledStudents     int             `json:"enrolled_students"`
		Classes              int             `json:"classes"`
		Payments             payment.Summary `json:"payments"`
		PendingSubstitutions int             `json:"pending_substitutions"`
	}

	Teacher struct {
		Classes        []student.Class             `json:"classes"`
		PendingGrading []homework.Submission       `json:"pending_grading"`
		RecentLessons  []lesson.Lesson             `json:"recent_lessons"`
		Substitutions  []substitution.Substitution `json:"substitutions"`
	}

	Student struct {
		Student          student.Student          `json:"student"`
		Grades           homework.GradeStats      `json:"grades"`
		Attendance       attendance.MonthlyReport `json:"attendance"`
		UpcomingHomework []homework.Homework      `json:"upcoming_homework"`
	}
)

type (
	StudentSource interface {
		Enrolled(ctx context.Context) ([]student.Student, error)
		QueryClasses(ctx context.Context, filter *student.ClassFilter) ([]student.Class, error)
	}

	PaymentSource interface {
		Summary(ctx context.Context) (payment.Summary, error)
	}

	HomeworkSource interface {
		StudentStats(ctx context.Context, studentID string) (homework.GradeStats, error)
		PendingGrading(ctx context.Context, teacherID string) ([]homework.Submission, error)
		Upcoming(ctx context.Context, classID string) ([]homework.Homework, error)
	}

	AttendanceSource interface {
		StudentMonth(ctx context.Context, studentID string, year int, month time.Month) (attendance.MonthlyReport, error)
	}

	LessonSource interface {
		Recent(ctx context.Context, teacherID string, limit int) ([]lesson.Lesson, error)
	}

	SubstitutionSource interface {
		Pending(ctx context.Context) ([]substitution.Substitution, error)
		Query(ctx context.Context, filter *substitution.QueryFilter) ([]substitution.Substitution, error)
	}

	Service struct {
		students      StudentSource
		payments      PaymentSource
		homework      HomeworkSource
		attendance    AttendanceSource
		lessons       LessonSource
		substitutions SubstitutionSource

		NowFunc func() time.Time
	}
)

func NewService(
	students StudentSource,
	payments PaymentSource,
	homework HomeworkSource,
	attendance AttendanceSource,
	lessons LessonSource,
	substitutions SubstitutionSource,
) *Service {
	return &Service{
		students:      students,
		payments:      payments,
		homework:      homework,
		attendance:    attendance,
		lessons:       lessons,
		substitutions: substitutions,
		NowFunc:       time.Now,
	}
}

func (svc *Service) Admin(ctx context.Context) (Admin, error) {
	enrolled, err := svc.students.Enrolled(ctx)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying enrolled students")
	}
	classes, err := svc.students.QueryClasses(ctx, nil)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying classes")
	}
	summary, err := svc.payments.Summary(ctx)
	if err != nil {
		return Admin{}, errors.Wrap(err, "computing payment summary")
	}
	pending, err := svc.substitutions.Pending(ctx)
	if err != nil {
		return Admin{}, errors.Wrap(err, "querying pending substitutions")
	}
	return Admin{
		EnrolledStudents:     len(enrolled),
		Classes:              len(classes),
		Payments:             summary,
		PendingSubstitutions: len(pending),
	}, nil
}

func (svc *Service) Teacher(ctx context.Context, teacherID string) (Teacher, error) {
	classes, err := svc.students.QueryClasses(ctx, &student.ClassFilter{TeacherID: teacherID})
	if err != nil {
		return Teacher{}, errors.Wrap(err, "querying classes")
	}
	pending, err := svc.homework.PendingGrading(ctx, teacherID)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "querying submissions")
	}
	lessons, err := svc.lessons.Recent(ctx, teacherID, recentLessons)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "querying lessons")
	}
	subs, err := svc.substitutions.Query(ctx, &substitution.QueryFilter{RequesterID: teacherID})
	if err != nil {
		return Teacher{}, errors.Wrap(err, "querying substitutions")
	}
	return Teacher{
		Classes:        classes,
		PendingGrading: pending,
		RecentLessons:  lessons,
		Substitutions:  subs,
	}, nil
}

func (svc *Service) Student(ctx context.Context, s student.Student) (Student, error) {
	stats, err := svc.homework.StudentStats(ctx, s.ID)
	if err != nil {
		return Student{}, errors.Wrap(err, "computing grade stats")
	}
	now := svc.NowFunc().UTC()
	report, err := svc.attendance.StudentMonth(ctx, s.ID, now.Year(), now.Month())
	if err != nil {
		return Student{}, errors.Wrap(err, "computing attendance")
	}
	upcoming, err := svc.homework.Upcoming(ctx, s.ClassID)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying homework")
	}
	return Student{
		Student:          s,
		Grades:           stats,
		Attendance:       report,
		UpcomingHomework: upcoming,
	}, nil
}
