package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
)

var (
	// errors
	ErrNotFound      = errors.New("payment record not found")
	ErrGroupNotFound = errors.New("no enrolled student with this parent contact")
)

type (
	Repository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		// QueryRecords returns the matching records, most recent first.
		QueryRecords(ctx context.Context, filter *QueryFilter) ([]Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		DeleteRecord(ctx context.Context, id string) error
	}

	// StudentSource provides the enrolled students payments are aggregated over.
	StudentSource interface {
		Enrolled(ctx context.Context) ([]student.Student, error)
	}

	Service struct {
		repo     Repository
		students StudentSource
	}
)

func NewService(repo Repository, students StudentSource) *Service {
	return &Service{repo: repo, students: students}
}

// Groups aggregates all the enrolled students and payment records, keeping the groups matching filter.
func (svc *Service) Groups(ctx context.Context, filter *GroupFilter) ([]Group, error) {
	students, err := svc.students.Enrolled(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrolled students")
	}
	records, err := svc.repo.QueryRecords(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying payment records")
	}

	groups := GroupByParent(students, records)
	if filter == nil {
		return groups, nil
	}
	filtered := make([]Group, 0, len(groups))
	for _, g := range groups {
		if filter.Match(g) {
			filtered = append(filtered, g)
		}
	}
	return filtered, nil
}

// Group returns the group of the given parent contact.
func (svc *Service) Group(ctx context.Context, contact string) (Group, error) {
	contact = NormalizeContact(contact)
	students, err := svc.students.Enrolled(ctx)
	if err != nil {
		return Group{}, errors.Wrap(err, "querying enrolled students")
	}
	records, err := svc.repo.QueryRecords(ctx, &QueryFilter{ParentContact: contact})
	if err != nil {
		return Group{}, errors.Wrap(err, "querying payment records")
	}

	var siblings []student.Student
	for _, s := range students {
		if NormalizeContact(s.ParentContact) == contact {
			siblings = append(siblings, s)
		}
	}
	groups := GroupByParent(siblings, records)
	if len(groups) == 0 {
		return Group{}, ErrGroupNotFound
	}
	return groups[0], nil
}

func (svc *Service) Summary(ctx context.Context) (Summary, error) {
	groups, err := svc.Groups(ctx, nil)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(groups), nil
}

// checkCap rejects an amount that would make the group pay more than it owes.
// Exempted groups are never capped.
func checkCap(g Group, otherPaid, amount float64) error {
	if g.Exempted {
		return nil
	}
	if core.Round(otherPaid+amount, 2) > g.TotalOwed {
		remaining := core.Round(g.TotalOwed-otherPaid, 2)
		if remaining < 0 {
			remaining = 0
		}
		return core.NewFieldValidationError(
			"amount",
			fmt.Sprintf("amount exceeds the tuition owed: at most %.2f can still be paid (owed %.2f, already paid %.2f)",
				remaining, g.TotalOwed, otherPaid),
		)
	}
	return nil
}

func (svc *Service) groupForRecord(ctx context.Context, contact string) (Group, error) {
	g, err := svc.Group(ctx, contact)
	if err != nil {
		if errors.Cause(err) == ErrGroupNotFound {
			return Group{}, core.NewFieldValidationError("parent_contact", ErrGroupNotFound.Error())
		}
		return Group{}, err
	}
	return g, nil
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	t, _ := time.Parse("2006-01-02", s)
	return t
}

// Create records a payment, rejecting it when it exceeds what the family still owes.
func (svc *Service) Create(ctx context.Context, nr NewRecord, recordedBy string) (Record, error) {
	g, err := svc.groupForRecord(ctx, nr.ParentContact)
	if err != nil {
		return Record{}, err
	}
	if err = checkCap(g, g.PaidAmount, nr.Amount); err != nil {
		return Record{}, err
	}

	rec := Record{
		ParentContact: g.ParentContact,
		Amount:        core.Round(nr.Amount, 2),
		Date:          parseDate(nr.Date),
		Notes:         nr.Notes,
		RecordedBy:    recordedBy,
		CreatedAt:     time.Now().UTC(),
	}
	return svc.repo.CreateRecord(ctx, rec)
}

func (svc *Service) Get(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecord(ctx, id)
}

func (svc *Service) Records(ctx context.Context, filter *QueryFilter) ([]Record, error) {
	if filter != nil {
		filter.ParentContact = NormalizeContact(filter.ParentContact)
	}
	return svc.repo.QueryRecords(ctx, filter)
}

// Update edits a payment; the other payments of the family plus the new amount must not exceed what it owes.
func (svc *Service) Update(ctx context.Context, rec Record, ur UpdateRecord) (Record, error) {
	if ur.Amount != nil {
		g, err := svc.groupForRecord(ctx, rec.ParentContact)
		if err != nil {
			return Record{}, err
		}
		if err = checkCap(g, g.paidExcept(rec.ID), *ur.Amount); err != nil {
			return Record{}, err
		}
		rec.Amount = core.Round(*ur.Amount, 2)
	}
	if ur.Date != nil && *ur.Date != "" {
		rec.Date = parseDate(*ur.Date)
	}
	if ur.Notes != nil {
		rec.Notes = *ur.Notes
	}
	return svc.repo.UpdateRecord(ctx, rec)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteRecord(ctx, id)
}
