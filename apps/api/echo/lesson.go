package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/lesson"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

var errLessonNotFoundInCtx = errors.New("lesson object not found in echo.Context")

type lessonApi struct {
	users    *user.Service
	students *student.Service
	svc      *lesson.Service
	validate *validator.Validate
}

func registerLessonAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := lessonApi{
		users:    deps.UserSvc,
		students: deps.StudentSvc,
		svc:      deps.LessonSvc,
		validate: deps.Validate,
	}

	lg := g.Group("/lessons", jwt, teacherMiddleware())
	lg.GET("", api.query)
	lg.POST("", api.create)

	dg := lg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *lessonApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		l, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == lesson.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding lesson by ID")
		}
		ctx.Set("object", l)
		return next(ctx)
	}
}

func ctxLesson(ctx echo.Context) (lesson.Lesson, error) {
	l, ok := ctx.Get("object").(lesson.Lesson)
	if !ok {
		return lesson.Lesson{}, errors.Wrap(errLessonNotFoundInCtx, "retrieving object from context")
	}
	return l, nil
}

// checkAuthor lets admins, the author of the lesson and the teacher of its class through.
func (api *lessonApi) checkAuthor(ctx echo.Context, l lesson.Lesson) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if l.TeacherID == usr.ID {
		return nil
	}
	return checkTeaches(ctx, api.students, usr, l.ClassID)
}

// Handlers

func (api *lessonApi) create(ctx echo.Context) error {
	var data lesson.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.students.GetClass(ctx.Request().Context(), data.ClassID); err != nil {
		if errors.Cause(err) == student.ErrClassNotFound {
			return core.NewFieldValidationError("class_id", student.ErrClassNotFound.Error())
		}
		return errors.Wrap(err, "finding class")
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = checkTeaches(ctx, api.students, usr, data.ClassID); err != nil {
		return err
	}

	l, err := api.svc.Create(ctx.Request().Context(), data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, l)
}

// query lists the lessons of a class, of one month when the month param is given.
func (api *lessonApi) query(ctx echo.Context) error {
	filter := new(lesson.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []lesson.Lesson{})
	}
	if ctx.QueryParam("month") != "" {
		year, month, err := bindMonth(ctx)
		if err != nil {
			return err
		}
		filter.MonthFilter(year, month)
	} else if err := bindTimeParams(ctx, map[string]*time.Time{"from": &filter.From, "to": &filter.To}); err != nil {
		return err
	}

	lessons, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *lessonApi) retrieve(ctx echo.Context) error {
	l, err := ctxLesson(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) update(ctx echo.Context) error {
	l, err := ctxLesson(ctx)
	if err != nil {
		return err
	}
	if err = api.checkAuthor(ctx, l); err != nil {
		return err
	}

	var data lesson.UpdateLesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLesson")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	l, err = api.svc.Update(ctx.Request().Context(), l, data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, l)
}

func (api *lessonApi) destroy(ctx echo.Context) error {
	l, err := ctxLesson(ctx)
	if err != nil {
		return err
	}
	if err = api.checkAuthor(ctx, l); err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), l.ID); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}
