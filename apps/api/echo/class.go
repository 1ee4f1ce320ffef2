package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

var errClassNotFoundInCtx = errors.New("class object not found in echo.Context")

type classApi struct {
	users      *user.Service
	svc        *student.Service
	attendance *attendance.Service
	validate   *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{
		users:      deps.UserSvc,
		svc:        deps.StudentSvc,
		attendance: deps.AttendanceSvc,
		validate:   deps.Validate,
	}

	cg := g.Group("/classes", jwt, teacherMiddleware())
	cg.GET("", api.query)
	cg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := cg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/students", api.students)
	dg.POST("/attendance", api.markAttendance)
}

func (api *classApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == student.ErrClassNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding class by ID")
		}
		ctx.Set("object", c)
		return next(ctx)
	}
}

func ctxClass(ctx echo.Context) (student.Class, error) {
	c, ok := ctx.Get("object").(student.Class)
	if !ok {
		return student.Class{}, errors.Wrap(errClassNotFoundInCtx, "retrieving object from context")
	}
	return c, nil
}

// checkTeacher rejects a teacher_id that is not the id of a teacher.
func (api *classApi) checkTeacher(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	usr, err := api.users.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewFieldValidationError("teacher_id", "teacher not found")
		}
		return errors.Wrap(err, "finding teacher")
	}
	if !usr.IsTeacher() {
		return core.NewFieldValidationError("teacher_id", "this user is not a teacher")
	}
	return nil
}

// Handlers

func (api *classApi) create(ctx echo.Context) error {
	var data student.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkTeacher(ctx.Request().Context(), data.TeacherID); err != nil {
		return err
	}

	c, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *classApi) query(ctx echo.Context) error {
	filter := new(student.ClassFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Class{})
	}
	classes, err := api.svc.QueryClasses(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classApi) update(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	if data.TeacherID != nil {
		if err = api.checkTeacher(ctx.Request().Context(), *data.TeacherID); err != nil {
			return err
		}
	}

	c, err = api.svc.UpdateClass(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classApi) destroy(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteClass(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) students(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}
	students, err := api.svc.ClassStudents(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying class students")
	}
	return ctx.JSON(http.StatusOK, students)
}

// markAttendance records the attendance of the class on one day, for the class teacher or an admin.
func (api *classApi) markAttendance(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = checkTeaches(ctx, api.svc, usr, c.ID); err != nil {
		return err
	}

	var data attendance.MarkClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkClass")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	records, err := api.attendance.MarkClass(ctx.Request().Context(), c, data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "marking class attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}
