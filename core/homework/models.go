package homework

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
)

type SubmissionStatus string

const (
	StatusSubmitted SubmissionStatus = "submitted"
	StatusGraded    SubmissionStatus = "graded"

	MinGrade = 0
	MaxGrade = 10
)

type Homework struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	TeacherID   string    `json:"teacher_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Submission is the work of a student on a Homework. Grade and GradedAt are set once graded.
type Submission struct {
	ID          string           `json:"id"`
	HomeworkID  string           `json:"homework_id"`
	StudentID   string           `json:"student_id"`
	Content     string           `json:"content"`
	Status      SubmissionStatus `json:"status"`
	Grade       *float64         `json:"grade"`
	Feedback    string           `json:"feedback"`
	SubmittedAt time.Time        `json:"submitted_at"` // UTC
	GradedAt    *time.Time       `json:"graded_at"`    // UTC
	GradedBy    string           `json:"graded_by"`
}

func (s Submission) IsGraded() bool {
	return s.Status == StatusGraded && s.Grade != nil
}

type NewHomework struct {
	ClassID     string `json:"class_id" validate:"required,uuid"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	DueDate     string `json:"due_date" validate:"required,datetime=2006-01-02"`
}

func (nh *NewHomework) Validate(validate *validator.Validate) error {
	nh.ClassID = core.CleanString(nh.ClassID)
	nh.Title = core.CleanString(nh.Title)
	nh.Description = core.CleanString(nh.Description)
	nh.DueDate = core.CleanString(nh.DueDate)
	return validate.Struct(nh)
}

type UpdateHomework struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

func (uh *UpdateHomework) Validate(validate *validator.Validate) error {
	for _, s := range []*string{uh.Title, uh.Description, uh.DueDate} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	return validate.Struct(uh)
}

type NewSubmission struct {
	Content string `json:"content" validate:"required,max=20000"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	return validate.Struct(ns)
}

type GradeSubmission struct {
	Grade    *float64 `json:"grade" validate:"required,gte=0,lte=10"`
	Feedback string   `json:"feedback" validate:"max=5000"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}

type QueryFilter struct {
	ClassID   string    `query:"class_id"`
	TeacherID string    `query:"teacher_id"`
	DueFrom   time.Time `query:"-"` // bound from "due_from"
	DueTo     time.Time `query:"-"` // bound from "due_to"
}

type SubmissionFilter struct {
	HomeworkID string           `query:"homework_id"`
	StudentID  string           `query:"student_id"`
	Status     SubmissionStatus `query:"status"`
}
