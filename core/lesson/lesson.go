package lesson

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
)

var (
	// errors
	ErrNotFound = errors.New("lesson not found")
)

// Lesson is an entry of the class register.
type Lesson struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"class_id"`
	TeacherID string    `json:"teacher_id"`
	Date      time.Time `json:"date"`
	Topic     string    `json:"topic"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewLesson struct {
	ClassID string `json:"class_id" validate:"required"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Topic   string `json:"topic" validate:"required,max=200"`
	Notes   string `json:"notes" validate:"max=5000"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.ClassID = core.CleanString(nl.ClassID)
	nl.Date = core.CleanString(nl.Date)
	nl.Topic = core.CleanString(nl.Topic)
	nl.Notes = core.CleanString(nl.Notes)
	return validate.Struct(nl)
}

type UpdateLesson struct {
	Date  *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Topic *string `json:"topic" validate:"omitempty,max=200"`
	Notes *string `json:"notes" validate:"omitempty,max=5000"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	for _, s := range []*string{ul.Date, ul.Topic, ul.Notes} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(ul)
}

type QueryFilter struct {
	ClassID   string    `query:"class_id"`
	TeacherID string    `query:"teacher_id"`
	From      time.Time `query:"-"` // bound from "from"
	To        time.Time `query:"-"` // bound from "to"
	Limit     int       `query:"limit"`
}

// MonthFilter restricts the filter to the lessons of the month.
func (qf *QueryFilter) MonthFilter(year int, month time.Month) {
	qf.From = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	qf.To = qf.From.AddDate(0, 1, -1)
}

type (
	Repository interface {
		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		// QueryLessons returns the matching lessons, most recent first.
		QueryLessons(ctx context.Context, filter *QueryFilter) ([]Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nl NewLesson, teacherID string) (Lesson, error) {
	date, _ := time.Parse("2006-01-02", nl.Date)
	now := time.Now().UTC()
	l := Lesson{
		ClassID:   nl.ClassID,
		TeacherID: teacherID,
		Date:      date,
		Topic:     nl.Topic,
		Notes:     nl.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateLesson(ctx, l)
}

func (svc *Service) Get(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, filter)
}

// Recent returns the last lessons logged by the teacher.
func (svc *Service) Recent(ctx context.Context, teacherID string, limit int) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, &QueryFilter{TeacherID: teacherID, Limit: limit})
}

func (svc *Service) Update(ctx context.Context, l Lesson, ul UpdateLesson) (Lesson, error) {
	if ul.Date != nil && *ul.Date != "" {
		l.Date, _ = time.Parse("2006-01-02", *ul.Date)
	}
	if ul.Topic != nil && *ul.Topic != "" {
		l.Topic = *ul.Topic
	}
	if ul.Notes != nil {
		l.Notes = *ul.Notes
	}
	l.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLesson(ctx, l)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteLesson(ctx, id)
}
