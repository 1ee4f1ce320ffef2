package substitution

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var (
	// errors
	ErrNotFound   = errors.New("substitution request not found")
	errNotPending = errors.New("only pending requests can be reviewed or cancelled")
)

// Substitution is the request of a teacher to be replaced in a class on a given day.
type Substitution struct {
	ID           string     `json:"id"`
	RequesterID  string     `json:"requester_id"`
	ClassID      string     `json:"class_id"`
	Date         time.Time  `json:"date"`
	Reason       string     `json:"reason"`
	Status       Status     `json:"status"`
	SubstituteID string     `json:"substitute_id"`
	ReviewedBy   string     `json:"reviewed_by"`
	ReviewNote   string     `json:"review_note"`
	ReviewedAt   *time.Time `json:"reviewed_at"` // UTC
	CreatedAt    time.Time  `json:"created_at"`  // UTC
	UpdatedAt    time.Time  `json:"updated_at"`  // UTC
}

type NewRequest struct {
	ClassID string `json:"class_id" validate:"required"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason  string `json:"reason" validate:"required,max=1000"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.ClassID = core.CleanString(nr.ClassID)
	nr.Date = core.CleanString(nr.Date)
	nr.Reason = core.CleanString(nr.Reason)
	return validate.Struct(nr)
}

// Review is the decision of an admin on a pending request.
type Review struct {
	Status       Status `json:"status" validate:"required,oneof=approved rejected"`
	SubstituteID string `json:"substitute_id" validate:"required_if=Status approved"`
	Note         string `json:"note" validate:"max=1000"`
}

func (rv *Review) Validate(validate *validator.Validate) error {
	rv.Status = Status(core.CleanString(string(rv.Status), true))
	rv.SubstituteID = core.CleanString(rv.SubstituteID)
	rv.Note = core.CleanString(rv.Note)
	return validate.Struct(rv)
}

type QueryFilter struct {
	Status       Status    `query:"status"`
	RequesterID  string    `query:"requester_id"`
	SubstituteID string    `query:"substitute_id"`
	ClassID      string    `query:"class_id"`
	From         time.Time `query:"-"` // bound from "from"
	To           time.Time `query:"-"` // bound from "to"
}

type (
	Repository interface {
		CreateSubstitution(ctx context.Context, sub Substitution) (Substitution, error)
		GetSubstitution(ctx context.Context, id string) (Substitution, error)
		// QuerySubstitutions returns the matching requests ordered by date, most recent first.
		QuerySubstitutions(ctx context.Context, filter *QueryFilter) ([]Substitution, error)
		UpdateSubstitution(ctx context.Context, sub Substitution) (Substitution, error)
		DeleteSubstitution(ctx context.Context, id string) error
	}

	UserSource interface {
		GetByID(ctx context.Context, id string) (user.User, error)
		Admins(ctx context.Context) ([]user.User, error)
	}

	ClassSource interface {
		GetClass(ctx context.Context, id string) (student.Class, error)
	}

	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification, userIDs ...string) error
	}

	Service struct {
		repo     Repository
		users    UserSource
		classes  ClassSource
		notifier Notifier
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(
	repo Repository, users UserSource, classes ClassSource, notifier Notifier, mailSvc core.EmailService, logger core.Logger,
) *Service {
	return &Service{repo: repo, users: users, classes: classes, notifier: notifier, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) notify(ctx context.Context, nn notification.NewNotification, userIDs ...string) {
	if err := svc.notifier.Notify(ctx, nn, userIDs...); err != nil {
		svc.logger.Warn(fmt.Sprintf("sending %s notification: %v", nn.Kind, err), err)
	}
}

// Create files a pending request and lets the admins know, in app and by email.
func (svc *Service) Create(ctx context.Context, nr NewRequest, requester user.User) (Substitution, error) {
	class, err := svc.classes.GetClass(ctx, nr.ClassID)
	if err != nil {
		if errors.Cause(err) == student.ErrClassNotFound {
			return Substitution{}, core.NewFieldValidationError("class_id", student.ErrClassNotFound.Error())
		}
		return Substitution{}, errors.Wrap(err, "finding class")
	}
	if !requester.IsAdmin() && class.TeacherID != requester.ID {
		return Substitution{}, core.NewFieldValidationError("class_id", "you do not teach this class")
	}

	date, _ := time.Parse("2006-01-02", nr.Date)
	now := time.Now().UTC()
	sub := Substitution{
		RequesterID: requester.ID,
		ClassID:     class.ID,
		Date:        date,
		Reason:      nr.Reason,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sub, err = svc.repo.CreateSubstitution(ctx, sub)
	if err != nil {
		return Substitution{}, errors.Wrap(err, "creating substitution request")
	}

	admins, err := svc.users.Admins(ctx)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("querying admins: %v", err), err)
		return sub, nil
	}
	var (
		ids []string
		to  []mail.Address
	)
	for _, adm := range admins {
		if adm.ID == requester.ID {
			continue
		}
		ids = append(ids, adm.ID)
		to = append(to, mail.Address{Name: adm.Name, Address: adm.Email})
	}
	if len(ids) == 0 {
		return sub, nil
	}
	day := sub.Date.Format("02/01/2006")
	svc.notify(ctx, notification.NewNotification{
		Kind:    notification.KindSubstitutionRequested,
		Title:   "Substitution requested",
		Message: fmt.Sprintf("%s needs a substitute for %s on %s.", requester.Name, class.Name, day),
		Link:    "/substitutions/" + sub.ID,
	}, ids...)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      "Substitution request",
		TemplateName: "substitution_request",
		TemplateData: map[string]string{
			"Requester": requester.Name,
			"Class":     class.Name,
			"Date":      day,
			"Reason":    sub.Reason,
			"ID":        sub.ID,
		},
	})
	return sub, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Substitution, error) {
	return svc.repo.GetSubstitution(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Substitution, error) {
	return svc.repo.QuerySubstitutions(ctx, filter)
}

// Pending returns the requests awaiting a review.
func (svc *Service) Pending(ctx context.Context) ([]Substitution, error) {
	return svc.repo.QuerySubstitutions(ctx, &QueryFilter{Status: StatusPending})
}

func (svc *Service) checkSubstitute(ctx context.Context, sub Substitution, id string) error {
	if id == sub.RequesterID {
		return core.NewFieldValidationError("substitute_id", "the substitute must be another teacher")
	}
	usr, err := svc.users.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewFieldValidationError("substitute_id", "teacher not found")
		}
		return errors.Wrap(err, "finding substitute")
	}
	if !usr.IsActive || !usr.IsTeacher() {
		return core.NewFieldValidationError("substitute_id", "the substitute must be an active teacher")
	}
	return nil
}

// Review approves or rejects a pending request, then notifies the requester and, on approval, the substitute.
func (svc *Service) Review(ctx context.Context, sub Substitution, rv Review, reviewerID string) (Substitution, error) {
	if sub.Status != StatusPending {
		return Substitution{}, core.NewValidationError(errNotPending)
	}
	switch rv.Status {
	case StatusApproved:
		if rv.SubstituteID == "" {
			return Substitution{}, core.NewFieldValidationError("substitute_id", "this field is required")
		}
		if err := svc.checkSubstitute(ctx, sub, rv.SubstituteID); err != nil {
			return Substitution{}, err
		}
		sub.SubstituteID = rv.SubstituteID
	case StatusRejected:
		sub.SubstituteID = ""
	default:
		return Substitution{}, core.NewFieldValidationError("status", "status must be one of [approved rejected]")
	}

	now := time.Now().UTC()
	sub.Status = rv.Status
	sub.ReviewNote = rv.Note
	sub.ReviewedBy = reviewerID
	sub.ReviewedAt = &now
	sub.UpdatedAt = now
	sub, err := svc.repo.UpdateSubstitution(ctx, sub)
	if err != nil {
		return Substitution{}, errors.Wrap(err, "updating substitution request")
	}

	day := sub.Date.Format("02/01/2006")
	link := "/substitutions/" + sub.ID
	svc.notify(ctx, notification.NewNotification{
		Kind:    notification.KindSubstitutionReviewed,
		Title:   fmt.Sprintf("Substitution request %s", sub.Status),
		Message: fmt.Sprintf("Your request for %s has been %s.", day, sub.Status),
		Link:    link,
	}, sub.RequesterID)
	if sub.Status == StatusApproved {
		svc.notify(ctx, notification.NewNotification{
			Kind:    notification.KindSubstitutionAssigned,
			Title:   "Substitution assigned",
			Message: fmt.Sprintf("You are the substitute teacher on %s.", day),
			Link:    link,
		}, sub.SubstituteID)
	}
	return sub, nil
}

// Cancel deletes a pending request on behalf of its requester.
func (svc *Service) Cancel(ctx context.Context, sub Substitution, usr user.User) error {
	if sub.RequesterID != usr.ID && !usr.IsAdmin() {
		return ErrNotFound
	}
	if sub.Status != StatusPending {
		return core.NewValidationError(errNotPending)
	}
	return svc.repo.DeleteSubstitution(ctx, sub.ID)
}
