package homework

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
)

var (
	// errors
	ErrNotFound           = errors.New("homework not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	errAlreadyGraded      = errors.New("the submission has already been graded")
)

type (
	Repository interface {
		CreateHomework(ctx context.Context, hw Homework) (Homework, error)
		GetHomework(ctx context.Context, id string) (Homework, error)
		// QueryHomework returns the matching homework ordered by due date.
		QueryHomework(ctx context.Context, filter *QueryFilter) ([]Homework, error)
		UpdateHomework(ctx context.Context, hw Homework) (Homework, error)
		// DeleteHomework deletes the homework and its submissions.
		DeleteHomework(ctx context.Context, id string) error

		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// GetStudentSubmission returns ErrSubmissionNotFound when the student has not submitted the homework yet.
		GetStudentSubmission(ctx context.Context, homeworkID, studentID string) (Submission, error)
		QuerySubmissions(ctx context.Context, filter *SubmissionFilter) ([]Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)
	}

	StudentSource interface {
		GetByID(ctx context.Context, id string) (student.Student, error)
		ClassStudents(ctx context.Context, classID string) ([]student.Student, error)
	}

	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification, userIDs ...string) error
	}

	Service struct {
		repo     Repository
		students StudentSource
		notifier Notifier
		logger   core.Logger
	}
)

func NewService(repo Repository, students StudentSource, notifier Notifier, logger core.Logger) *Service {
	return &Service{repo: repo, students: students, notifier: notifier, logger: logger}
}

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func (svc *Service) notify(ctx context.Context, nn notification.NewNotification, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	if err := svc.notifier.Notify(ctx, nn, userIDs...); err != nil {
		svc.logger.Warn(fmt.Sprintf("sending %s notification: %v", nn.Kind, err), err)
	}
}

// Create assigns a new homework to a class and notifies its students.
func (svc *Service) Create(ctx context.Context, nh NewHomework, teacherID string) (Homework, error) {
	now := time.Now().UTC()
	hw := Homework{
		ClassID:     nh.ClassID,
		TeacherID:   teacherID,
		Title:       nh.Title,
		Description: nh.Description,
		DueDate:     parseDate(nh.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	hw, err := svc.repo.CreateHomework(ctx, hw)
	if err != nil {
		return Homework{}, errors.Wrap(err, "creating homework")
	}

	students, err := svc.students.ClassStudents(ctx, hw.ClassID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("querying students of class %s: %v", hw.ClassID, err), err)
		return hw, nil
	}
	var userIDs []string
	for _, s := range students {
		if s.UserID != "" {
			userIDs = append(userIDs, s.UserID)
		}
	}
	svc.notify(ctx, notification.NewNotification{
		Kind:    notification.KindHomeworkAssigned,
		Title:   "New homework: " + hw.Title,
		Message: fmt.Sprintf("Due on %s.", hw.DueDate.Format("02/01/2006")),
		Link:    "/homework/" + hw.ID,
	}, userIDs...)
	return hw, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Homework, error) {
	return svc.repo.GetHomework(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Homework, error) {
	return svc.repo.QueryHomework(ctx, filter)
}

// Upcoming returns the homework of the class not due yet.
func (svc *Service) Upcoming(ctx context.Context, classID string) ([]Homework, error) {
	if classID == "" {
		return []Homework{}, nil
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return svc.repo.QueryHomework(ctx, &QueryFilter{ClassID: classID, DueFrom: today})
}

func (svc *Service) Update(ctx context.Context, hw Homework, uh UpdateHomework) (Homework, error) {
	if uh.Title != nil && *uh.Title != "" {
		hw.Title = *uh.Title
	}
	if uh.Description != nil {
		hw.Description = *uh.Description
	}
	if uh.DueDate != nil && *uh.DueDate != "" {
		hw.DueDate = parseDate(*uh.DueDate)
	}
	hw.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateHomework(ctx, hw)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteHomework(ctx, id)
}

// Submit records the work of the student, replacing a previous submission unless it was graded.
func (svc *Service) Submit(ctx context.Context, hw Homework, s student.Student, ns NewSubmission) (Submission, error) {
	if s.ClassID != hw.ClassID {
		return Submission{}, core.NewValidationError(errors.New("the homework is not assigned to the class of the student"))
	}
	now := time.Now().UTC()

	sub, err := svc.repo.GetStudentSubmission(ctx, hw.ID, s.ID)
	switch {
	case err == nil:
		if sub.Status == StatusGraded {
			return Submission{}, core.NewValidationError(errAlreadyGraded)
		}
		sub.Content = ns.Content
		sub.SubmittedAt = now
		return svc.repo.UpdateSubmission(ctx, sub)
	case errors.Cause(err) == ErrSubmissionNotFound:
		sub = Submission{
			HomeworkID:  hw.ID,
			StudentID:   s.ID,
			Content:     ns.Content,
			Status:      StatusSubmitted,
			SubmittedAt: now,
		}
		return svc.repo.CreateSubmission(ctx, sub)
	default:
		return Submission{}, errors.Wrap(err, "finding submission")
	}
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

func (svc *Service) Submissions(ctx context.Context, filter *SubmissionFilter) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, filter)
}

// Grade grades the submission and notifies the student.
func (svc *Service) Grade(ctx context.Context, sub Submission, gs GradeSubmission, graderID string) (Submission, error) {
	if gs.Grade == nil || *gs.Grade < MinGrade || *gs.Grade > MaxGrade {
		return Submission{}, core.NewFieldValidationError("grade", fmt.Sprintf("grade must be between %d and %d", MinGrade, MaxGrade))
	}
	now := time.Now().UTC()
	grade := core.Round(*gs.Grade, 2)
	sub.Grade = &grade
	sub.Feedback = gs.Feedback
	sub.Status = StatusGraded
	sub.GradedAt = &now
	sub.GradedBy = graderID

	sub, err := svc.repo.UpdateSubmission(ctx, sub)
	if err != nil {
		return Submission{}, errors.Wrap(err, "grading submission")
	}

	s, err := svc.students.GetByID(ctx, sub.StudentID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("finding student %s: %v", sub.StudentID, err), err)
		return sub, nil
	}
	title := "Homework graded"
	if hw, err := svc.repo.GetHomework(ctx, sub.HomeworkID); err == nil {
		title = "Homework graded: " + hw.Title
	}
	svc.notify(ctx, notification.NewNotification{
		Kind:    notification.KindHomeworkGraded,
		Title:   title,
		Message: fmt.Sprintf("Grade: %g.", grade),
		Link:    "/homework/" + sub.HomeworkID,
	}, s.UserID)
	return sub, nil
}

// StudentStats computes the grade statistics of the student.
func (svc *Service) StudentStats(ctx context.Context, studentID string) (GradeStats, error) {
	subs, err := svc.repo.QuerySubmissions(ctx, &SubmissionFilter{StudentID: studentID, Status: StatusGraded})
	if err != nil {
		return GradeStats{}, errors.Wrap(err, "querying graded submissions")
	}
	return ComputeGradeStats(subs), nil
}

// PendingGrading returns the submissions awaiting a grade on the homework of the teacher.
func (svc *Service) PendingGrading(ctx context.Context, teacherID string) ([]Submission, error) {
	hws, err := svc.repo.QueryHomework(ctx, &QueryFilter{TeacherID: teacherID})
	if err != nil {
		return nil, errors.Wrap(err, "querying homework")
	}
	pending := []Submission{}
	for _, hw := range hws {
		subs, err := svc.repo.QuerySubmissions(ctx, &SubmissionFilter{HomeworkID: hw.ID, Status: StatusSubmitted})
		if err != nil {
			return nil, errors.Wrap(err, "querying submissions")
		}
		pending = append(pending, subs...)
	}
	return pending, nil
}
