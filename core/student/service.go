package student

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
)

var (
	// errors
	ErrNotFound      = errors.New("student not found")
	ErrClassNotFound = errors.New("class not found")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		GetStudentByUserID(ctx context.Context, userID string) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		// DeleteStudent deletes the student and its dependent records.
		DeleteStudent(ctx context.Context, id string) error

		CreateClass(ctx context.Context, c Class) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context, filter *ClassFilter) ([]Class, error)
		// UpdateClass saves the class but its StudentIDs.
		UpdateClass(ctx context.Context, c Class) (Class, error)
		// DeleteClass deletes the class and unassigns its students.
		DeleteClass(ctx context.Context, id string) error
		AddClassStudent(ctx context.Context, classID, studentID string) error
		RemoveClassStudent(ctx context.Context, classID, studentID string) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}

	// ImportRow is a student read from a sheet, with its sheet row number.
	ImportRow struct {
		Row int
		NewStudent
	}

	ImportError struct {
		Row   int    `json:"row"`
		Error string `json:"error"`
	}

	ImportResult struct {
		Created int           `json:"created"`
		Errors  []ImportError `json:"errors"`
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) checkClass(ctx context.Context, classID string) error {
	if classID == "" {
		return nil
	}
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		if errors.Cause(err) == ErrClassNotFound {
			return core.NewFieldValidationError("class_id", ErrClassNotFound.Error())
		}
		return errors.Wrap(err, "finding class")
	}
	return nil
}

// syncClasses updates the student id arrays of the classes the student moved between.
// The updates are independent best-effort writes; failures are logged, never rolled back.
func (svc *Service) syncClasses(ctx context.Context, studentID, oldClassID, newClassID string) {
	if oldClassID == newClassID {
		return
	}
	if oldClassID != "" {
		if err := svc.repo.RemoveClassStudent(ctx, oldClassID, studentID); err != nil {
			svc.logger.Warn(fmt.Sprintf("removing student %s from class %s: %v", studentID, oldClassID, err), err)
		}
	}
	if newClassID != "" {
		if err := svc.repo.AddClassStudent(ctx, newClassID, studentID); err != nil {
			svc.logger.Warn(fmt.Sprintf("adding student %s to class %s: %v", studentID, newClassID, err), err)
		}
	}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.checkClass(ctx, ns.ClassID); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	s := Student{
		UserID:          ns.UserID,
		ClassID:         ns.ClassID,
		FirstName:       ns.FirstName,
		LastName:        ns.LastName,
		BirthDate:       ns.birthDate(),
		ParentName:      ns.ParentName,
		ParentContact:   ns.ParentContact,
		ParentEmail:     ns.ParentEmail,
		Enrolled:        ns.Enrolled == nil || *ns.Enrolled,
		PaymentExempted: ns.PaymentExempted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s, err := svc.repo.CreateStudent(ctx, s)
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	svc.syncClasses(ctx, s.ID, "", s.ClassID)
	return s, nil
}

// Import validates and creates every row; invalid rows are reported and skipped.
func (svc *Service) Import(ctx context.Context, validate *validator.Validate, rows []ImportRow) (ImportResult, error) {
	res := ImportResult{Errors: []ImportError{}}
	for _, row := range rows {
		ns := row.NewStudent
		if err := ns.Validate(validate); err != nil {
			res.Errors = append(res.Errors, ImportError{Row: row.Row, Error: err.Error()})
			continue
		}
		if _, err := svc.Create(ctx, ns); err != nil {
			if core.IsValidationError(err) {
				res.Errors = append(res.Errors, ImportError{Row: row.Row, Error: err.Error()})
				continue
			}
			return res, errors.Wrapf(err, "importing row %d", row.Row)
		}
		res.Created++
	}
	return res, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudentByUserID(ctx, userID)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

// Enrolled returns all the enrolled students.
func (svc *Service) Enrolled(ctx context.Context) ([]Student, error) {
	enrolled := true
	return svc.repo.QueryStudents(ctx, &QueryFilter{Enrolled: &enrolled}, nil)
}

func (svc *Service) Update(ctx context.Context, s Student, us UpdateStudent) (Student, error) {
	updated := us.apply(s)
	if updated.ClassID != s.ClassID {
		if err := svc.checkClass(ctx, updated.ClassID); err != nil {
			return Student{}, err
		}
	}
	updated.UpdatedAt = time.Now().UTC()

	updated, err := svc.repo.UpdateStudent(ctx, updated)
	if err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	svc.syncClasses(ctx, s.ID, s.ClassID, updated.ClassID)
	return updated, nil
}

func (svc *Service) Delete(ctx context.Context, s Student) error {
	if err := svc.repo.DeleteStudent(ctx, s.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	svc.syncClasses(ctx, s.ID, s.ClassID, "")
	return nil
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	c := Class{
		Name:       nc.Name,
		TeacherID:  nc.TeacherID,
		StudentIDs: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateClass(ctx, c)
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryClasses(ctx context.Context, filter *ClassFilter) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter)
}

// ClassStudents returns the students assigned to the class.
func (svc *Service) ClassStudents(ctx context.Context, classID string) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, &QueryFilter{ClassID: classID}, []core.DBOrdering{
		{Field: "last_name", Ascending: true},
		{Field: "first_name", Ascending: true},
	})
}

func (svc *Service) UpdateClass(ctx context.Context, c Class, uc UpdateClass) (Class, error) {
	if uc.Name != nil && *uc.Name != "" {
		c.Name = *uc.Name
	}
	if uc.TeacherID != nil {
		c.TeacherID = *uc.TeacherID
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, c)
}

func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}

// IsTeacherOf reports whether the teacher is assigned to the class.
func (svc *Service) IsTeacherOf(ctx context.Context, teacherID, classID string) (bool, error) {
	c, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		if errors.Cause(err) == ErrClassNotFound {
			return false, nil
		}
		return false, err
	}
	return c.TeacherID == teacherID, nil
}
