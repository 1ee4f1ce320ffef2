package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

type attendanceApi struct {
	users    *user.Service
	students *student.Service
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := attendanceApi{
		users:    deps.UserSvc,
		students: deps.StudentSvc,
		svc:      deps.AttendanceSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/attendance", jwt, teacherMiddleware())
	ag.GET("", api.query)
	ag.POST("", api.mark)
	ag.GET("/school-days", api.schoolDays)
	ag.DELETE("/:id", api.destroy)
}

// Handlers

// mark records the attendance of one student, for the teacher of their class or an admin.
func (api *attendanceApi) mark(ctx echo.Context) error {
	var data attendance.Mark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Mark")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !usr.IsAdmin() {
		s, err := api.students.GetByID(ctx.Request().Context(), data.StudentID)
		if err != nil && errors.Cause(err) != student.ErrNotFound {
			return errors.Wrap(err, "finding student")
		}
		if err == nil {
			if err = checkTeaches(ctx, api.students, usr, s.ClassID); err != nil {
				return err
			}
		}
	}

	rec, err := api.svc.Mark(ctx.Request().Context(), data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}
	if err := bindTimeParams(ctx, map[string]*time.Time{"from": &filter.From, "to": &filter.To}); err != nil {
		return err
	}

	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) schoolDays(ctx echo.Context) error {
	days := api.svc.SchoolDays()
	names := make([]string, len(days))
	for i, wd := range days {
		names[i] = wd.String()
	}
	return ctx.JSON(http.StatusOK, names)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	rec, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding attendance record")
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if rec.MarkedBy != usr.ID {
		if err = checkTeaches(ctx, api.students, usr, rec.ClassID); err != nil {
			return err
		}
	}

	if err = api.svc.Delete(ctx.Request().Context(), rec.ID); err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	return ctx.NoContent(http.StatusNoContent)
}
