package echoapi

import (
	"bytes"
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/homework"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
	"github.com/Zeta-Naidi/Muallim-1-sub002/services/report"
)

var errStudentNotFoundInCtx = errors.New("student object not found in echo.Context")

type studentApi struct {
	users      *user.Service
	svc        *student.Service
	homework   *homework.Service
	attendance *attendance.Service
	validate   *validator.Validate
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{
		users:      deps.UserSvc,
		svc:        deps.StudentSvc,
		homework:   deps.HomeworkSvc,
		attendance: deps.AttendanceSvc,
		validate:   deps.Validate,
	}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, teacherMiddleware())
	sg.POST("", api.create, adminMiddleware())
	sg.POST("/import", api.importSheet, adminMiddleware())
	sg.GET("/export", api.exportSheet, adminMiddleware())
	sg.GET("/me", api.me, studentMiddleware())

	// detail endpoints
	dg := sg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/grades", api.grades)
	dg.GET("/attendance", api.monthlyAttendance)
}

// objectMiddleware loads the student of the path. Students only see themselves.
func (api *studentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding student by ID")
		}
		if !(claims.IsAdmin || claims.IsTeacher || (s.UserID != "" && s.UserID == claims.Subject)) {
			return errHttpNotFound
		}
		ctx.Set("object", s)
		return next(ctx)
	}
}

func ctxStudent(ctx echo.Context) (student.Student, error) {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return student.Student{}, errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	return s, nil
}

// checkUser rejects a user_id that is not an active student login free for the student studentID.
func (api *studentApi) checkUser(ctx context.Context, userID, studentID string) error {
	if userID == "" {
		return nil
	}
	usr, err := api.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewFieldValidationError("user_id", "user not found")
		}
		return errors.Wrap(err, "finding user")
	}
	if !usr.IsActive || !usr.IsStudent() {
		return core.NewFieldValidationError("user_id", "this user is not an active student")
	}
	linked, err := api.svc.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		if linked.ID != studentID {
			return core.NewFieldValidationError("user_id", "this user is already linked to another student")
		}
	case errors.Cause(err) != student.ErrNotFound:
		return errors.Wrap(err, "finding student by user ID")
	}
	return nil
}

// Handlers

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkUser(ctx.Request().Context(), data.UserID, ""); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, student.OrderingFields...)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) me(ctx echo.Context) error {
	s, err := contextStudent(ctx, api.users, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	s, err := ctxStudent(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if data.UserID != nil {
		if err = api.checkUser(ctx.Request().Context(), *data.UserID, s.ID); err != nil {
			return err
		}
	}

	s, err = api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	s, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), s); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) grades(ctx echo.Context) error {
	s, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	stats, err := api.homework.StudentStats(ctx.Request().Context(), s.ID)
	if err != nil {
		return errors.Wrap(err, "computing grade stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *studentApi) monthlyAttendance(ctx echo.Context) error {
	s, err := ctxStudent(ctx)
	if err != nil {
		return err
	}
	year, month, err := bindMonth(ctx)
	if err != nil {
		return err
	}
	rep, err := api.attendance.StudentMonth(ctx.Request().Context(), s.ID, year, month)
	if err != nil {
		return errors.Wrap(err, "computing monthly attendance")
	}
	return ctx.JSON(http.StatusOK, rep)
}

// importSheet creates the students of the uploaded xlsx sheet. Invalid rows are reported, not created.
func (api *studentApi) importSheet(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldValidationError("file", "an xlsx file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	rows, err := report.ReadStudents(f)
	if err != nil {
		return core.NewFieldValidationError("file", err.Error())
	}
	res, err := api.svc.Import(ctx.Request().Context(), api.validate, rows)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) exportSheet(ctx echo.Context) error {
	students, err := api.svc.Query(ctx.Request().Context(), nil, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	var buf bytes.Buffer
	if err = report.WriteStudents(&buf, students); err != nil {
		return errors.Wrap(err, "writing students sheet")
	}
	return attachment(ctx, "students.xlsx", report.ContentType, buf.Bytes())
}

func attachment(ctx echo.Context, name, contentType string, data []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return ctx.Blob(http.StatusOK, contentType, data)
}
