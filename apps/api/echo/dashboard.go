package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/dashboard"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

type dashboardApi struct {
	users    *user.Service
	students *student.Service
	svc      *dashboard.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := dashboardApi{
		users:    deps.UserSvc,
		students: deps.StudentSvc,
		svc:      deps.DashboardSvc,
	}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/admin", api.admin, adminMiddleware())
	dg.GET("/teacher", api.teacher, teacherMiddleware())
	dg.GET("/student", api.student, studentMiddleware())
}

func (api *dashboardApi) admin(ctx echo.Context) error {
	d, err := api.svc.Admin(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing admin dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *dashboardApi) teacher(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	d, err := api.svc.Teacher(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "computing teacher dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *dashboardApi) student(ctx echo.Context) error {
	s, err := contextStudent(ctx, api.users, api.students)
	if err != nil {
		return err
	}
	d, err := api.svc.Student(ctx.Request().Context(), s)
	if err != nil {
		return errors.Wrap(err, "computing student dashboard")
	}
	return ctx.JSON(http.StatusOK, d)
}
