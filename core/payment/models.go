package payment

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
)

type Status string

const (
	StatusExempted Status = "exempted"
	StatusPaid     Status = "paid"
	StatusPartial  Status = "partial"
	StatusUnpaid   Status = "unpaid"
)

// yearly tuition by number of enrolled children; 4 and more children pay the 4 children price.
var priceTable = [...]float64{0, 120, 220, 300, 360}

// Price returns the tuition owed by a family with n enrolled children.
func Price(n int) float64 {
	if n <= 0 {
		return 0
	}
	if n >= len(priceTable) {
		n = len(priceTable) - 1
	}
	return priceTable[n]
}

// Record is a payment received from a family, identified by its parent contact.
type Record struct {
	ID            string    `json:"id"`
	ParentContact string    `json:"parent_contact"`
	Amount        float64   `json:"amount"`
	Date          time.Time `json:"date"`
	Notes         string    `json:"notes"`
	RecordedBy    string    `json:"recorded_by"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

type Child struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ClassID         string `json:"class_id"`
	PaymentExempted bool   `json:"payment_exempted"`
}

// Group aggregates the enrolled students sharing a parent contact. It is never persisted.
type Group struct {
	ParentContact string   `json:"parent_contact"`
	ParentName    string   `json:"parent_name"`
	ParentEmail   string   `json:"parent_email"`
	Children      []Child  `json:"children"`
	ChildCount    int      `json:"child_count"`
	Exempted      bool     `json:"exempted"`
	TotalOwed     float64  `json:"total_owed"`
	PaidAmount    float64  `json:"paid_amount"`
	Remaining     float64  `json:"remaining"`
	Status        Status   `json:"status"`
	Records       []Record `json:"records"`
}

// computeStatus applies, in priority order: exempted, paid, partial, unpaid.
func computeStatus(exempted bool, owed, paid float64) Status {
	switch {
	case exempted:
		return StatusExempted
	case paid >= owed:
		return StatusPaid
	case paid > 0:
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// finalize computes the derived amounts and status of the group.
func (g *Group) finalize() {
	g.ChildCount = len(g.Children)
	g.TotalOwed = 0
	if !g.Exempted {
		g.TotalOwed = Price(g.ChildCount)
	}
	var paid float64
	for _, rec := range g.Records {
		paid += rec.Amount
	}
	g.PaidAmount = core.Round(paid, 2)
	// overpaid and exempted groups owe nothing
	g.Remaining = core.Round(math.Max(g.TotalOwed-g.PaidAmount, 0), 2)
	g.Status = computeStatus(g.Exempted, g.TotalOwed, g.PaidAmount)
}

// paidExcept sums the group records but the one with the given id.
func (g Group) paidExcept(recordID string) float64 {
	var paid float64
	for _, rec := range g.Records {
		if rec.ID != recordID {
			paid += rec.Amount
		}
	}
	return core.Round(paid, 2)
}

// NormalizeContact is the grouping key of a parent contact.
func NormalizeContact(contact string) string {
	return strings.TrimSpace(contact)
}

// GroupByParent partitions the enrolled students by parent contact and attaches the matching records.
// Students without a contact, and records matching no group, are left out.
// A single exempted child exempts the whole group.
func GroupByParent(students []student.Student, records []Record) []Group {
	groups := make(map[string]*Group)
	for _, s := range students {
		if !s.Enrolled {
			continue
		}
		contact := NormalizeContact(s.ParentContact)
		if contact == "" {
			continue
		}
		g, ok := groups[contact]
		if !ok {
			g = &Group{ParentContact: contact, Children: []Child{}, Records: []Record{}}
			groups[contact] = g
		}
		if g.ParentName == "" {
			g.ParentName = s.ParentName
		}
		if g.ParentEmail == "" {
			g.ParentEmail = s.ParentEmail
		}
		if s.PaymentExempted {
			g.Exempted = true
		}
		g.Children = append(g.Children, Child{
			ID:              s.ID,
			Name:            s.FullName(),
			ClassID:         s.ClassID,
			PaymentExempted: s.PaymentExempted,
		})
	}

	for _, rec := range records {
		if g, ok := groups[NormalizeContact(rec.ParentContact)]; ok {
			g.Records = append(g.Records, rec)
		}
	}

	res := make([]Group, 0, len(groups))
	for _, g := range groups {
		sort.Slice(g.Records, func(i, j int) bool { return g.Records[i].Date.After(g.Records[j].Date) })
		g.finalize()
		res = append(res, *g)
	}
	sort.Slice(res, func(i, j int) bool {
		ni, nj := strings.ToLower(res[i].ParentName), strings.ToLower(res[j].ParentName)
		if ni != nj {
			return ni < nj
		}
		return res[i].ParentContact < res[j].ParentContact
	})
	return res
}

// Summary totals the groups, e.g. for the admin dashboard.
type Summary struct {
	Groups      int     `json:"groups"`
	Paid        int     `json:"paid"`
	Partial     int     `json:"partial"`
	Unpaid      int     `json:"unpaid"`
	Exempted    int     `json:"exempted"`
	TotalOwed   float64 `json:"total_owed"`
	TotalPaid   float64 `json:"total_paid"`
	Outstanding float64 `json:"outstanding"`
}

func Summarize(groups []Group) Summary {
	var s Summary
	for _, g := range groups {
		s.Groups++
		switch g.Status {
		case StatusPaid:
			s.Paid++
		case StatusPartial:
			s.Partial++
		case StatusUnpaid:
			s.Unpaid++
		case StatusExempted:
			s.Exempted++
		}
		s.TotalOwed += g.TotalOwed
		s.TotalPaid += g.PaidAmount
		if g.Remaining > 0 {
			s.Outstanding += g.Remaining
		}
	}
	s.TotalOwed = core.Round(s.TotalOwed, 2)
	s.TotalPaid = core.Round(s.TotalPaid, 2)
	s.Outstanding = core.Round(s.Outstanding, 2)
	return s
}

// NewRecord contains information needed to record a payment.
type NewRecord struct {
	ParentContact string  `json:"parent_contact" validate:"required"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	Date          string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes         string  `json:"notes" validate:"max=500"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.ParentContact = NormalizeContact(nr.ParentContact)
	nr.Date = core.CleanString(nr.Date)
	nr.Notes = core.CleanString(nr.Notes)
	return validate.Struct(nr)
}

// UpdateRecord defines what information may be provided to modify an existing Record.
type UpdateRecord struct {
	Amount *float64 `json:"amount" validate:"omitempty,gt=0"`
	Date   *string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes  *string  `json:"notes" validate:"omitempty,max=500"`
}

func (ur *UpdateRecord) Validate(validate *validator.Validate) error {
	if ur.Date != nil {
		*ur.Date = core.CleanString(*ur.Date)
	}
	if ur.Notes != nil {
		*ur.Notes = core.CleanString(*ur.Notes)
	}
	return validate.Struct(ur)
}

type QueryFilter struct {
	ParentContact string    `query:"parent_contact"`
	From          time.Time `query:"-"` // bound from "from"
	To            time.Time `query:"-"` // bound from "to"
}

type GroupFilter struct {
	Status Status `query:"status"`
	Search string `query:"search"` // parent name, contact or child name
}

// Match reports whether the group satisfies the filter.
func (gf GroupFilter) Match(g Group) bool {
	if gf.Status != "" && g.Status != gf.Status {
		return false
	}
	if q := strings.ToLower(core.CleanString(gf.Search)); q != "" {
		if strings.Contains(strings.ToLower(g.ParentName), q) || strings.Contains(g.ParentContact, q) {
			return true
		}
		for _, c := range g.Children {
			if strings.Contains(strings.ToLower(c.Name), q) {
				return true
			}
		}
		return false
	}
	return true
}
