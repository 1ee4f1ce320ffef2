package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
)

const dateLayout = "2006-01-02"

// OrderingFields are the Student fields a query can be ordered by.
var OrderingFields = []string{"first_name", "last_name", "birth_date", "parent_name", "created_at", "updated_at"}

type Student struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`  // login of the student, if any
	ClassID         string    `json:"class_id"` // empty when not assigned
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	BirthDate       time.Time `json:"birth_date"`
	ParentName      string    `json:"parent_name"`
	ParentContact   string    `json:"parent_contact"`
	ParentEmail     string    `json:"parent_email"`
	Enrolled        bool      `json:"enrolled"`
	PaymentExempted bool      `json:"payment_exempted"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Class groups students taught together. StudentIDs is denormalized from Student.ClassID.
type Class struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	TeacherID  string    `json:"teacher_id"`
	StudentIDs []string  `json:"student_ids"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (c Class) HasStudent(id string) bool {
	for _, sid := range c.StudentIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	UserID          string `json:"user_id" validate:"omitempty,uuid"`
	ClassID         string `json:"class_id" validate:"omitempty,uuid"`
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	BirthDate       string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	ParentName      string `json:"parent_name" validate:"max=200"`
	ParentContact   string `json:"parent_contact" validate:"omitempty,phone"`
	ParentEmail     string `json:"parent_email" validate:"omitempty,email"`
	Enrolled        *bool  `json:"enrolled"`
	PaymentExempted bool   `json:"payment_exempted"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.BirthDate = core.CleanString(ns.BirthDate)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentContact = core.CleanString(ns.ParentContact)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	return validate.Struct(ns)
}

func (ns NewStudent) birthDate() time.Time {
	t, _ := time.Parse(dateLayout, ns.BirthDate)
	return t
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// nil fields are left untouched. An empty ClassID removes the student from its class.
type UpdateStudent struct {
	UserID          *string `json:"user_id" validate:"omitempty,uuid"`
	ClassID         *string `json:"class_id" validate:"omitempty,uuid"`
	FirstName       *string `json:"first_name" validate:"omitempty,max=100"`
	LastName        *string `json:"last_name" validate:"omitempty,max=100"`
	BirthDate       *string `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	ParentName      *string `json:"parent_name" validate:"omitempty,max=200"`
	ParentContact   *string `json:"parent_contact" validate:"omitempty,phone"`
	ParentEmail     *string `json:"parent_email" validate:"omitempty,email"`
	Enrolled        *bool   `json:"enrolled"`
	PaymentExempted *bool   `json:"payment_exempted"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	clean := func(s *string, lower ...bool) {
		if s != nil {
			*s = core.CleanString(*s, lower...)
		}
	}
	clean(us.UserID)
	clean(us.ClassID)
	clean(us.FirstName)
	clean(us.LastName)
	clean(us.BirthDate)
	clean(us.ParentName)
	clean(us.ParentContact)
	clean(us.ParentEmail, true /* lower */)
	return validate.Struct(us)
}

// apply returns a copy of s with the provided fields set.
func (us UpdateStudent) apply(s Student) Student {
	if us.UserID != nil {
		s.UserID = *us.UserID
	}
	if us.ClassID != nil {
		s.ClassID = *us.ClassID
	}
	if us.FirstName != nil && *us.FirstName != "" {
		s.FirstName = *us.FirstName
	}
	if us.LastName != nil && *us.LastName != "" {
		s.LastName = *us.LastName
	}
	if us.BirthDate != nil {
		s.BirthDate, _ = time.Parse(dateLayout, *us.BirthDate)
	}
	if us.ParentName != nil {
		s.ParentName = *us.ParentName
	}
	if us.ParentContact != nil {
		s.ParentContact = *us.ParentContact
	}
	if us.ParentEmail != nil {
		s.ParentEmail = *us.ParentEmail
	}
	if us.Enrolled != nil {
		s.Enrolled = *us.Enrolled
	}
	if us.PaymentExempted != nil {
		s.PaymentExempted = *us.PaymentExempted
	}
	return s
}

type NewClass struct {
	Name      string `json:"name" validate:"required,max=100"`
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	return validate.Struct(nc)
}

type UpdateClass struct {
	Name      *string `json:"name" validate:"omitempty,max=100"`
	TeacherID *string `json:"teacher_id" validate:"omitempty,uuid"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	if uc.Name != nil {
		*uc.Name = core.CleanString(*uc.Name)
	}
	if uc.TeacherID != nil {
		*uc.TeacherID = core.CleanString(*uc.TeacherID)
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search        string `query:"search"` // first, last or parent name, or parent contact
	ClassID       string `query:"class_id"`
	Enrolled      *bool  `query:"enrolled"`
	ParentContact string `query:"parent_contact"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.ParentContact = core.CleanString(qf.ParentContact)
}

type ClassFilter struct {
	TeacherID string `query:"teacher_id"`
}
