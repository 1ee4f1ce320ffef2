package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/homework"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

var (
	errHomeworkNotFoundInCtx   = errors.New("homework object not found in echo.Context")
	errSubmissionNotFoundInCtx = errors.New("submission object not found in echo.Context")
)

type homeworkApi struct {
	users    *user.Service
	students *student.Service
	svc      *homework.Service
	validate *validator.Validate
}

func registerHomeworkAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := homeworkApi{
		users:    deps.UserSvc,
		students: deps.StudentSvc,
		svc:      deps.HomeworkSvc,
		validate: deps.Validate,
	}

	hg := g.Group("/homework", jwt)
	hg.GET("", api.query)
	hg.POST("", api.create, teacherMiddleware())

	dg := hg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherMiddleware())
	dg.DELETE("", api.destroy, teacherMiddleware())
	dg.POST("/submissions", api.submit, studentMiddleware())
	dg.GET("/submissions", api.homeworkSubmissions, teacherMiddleware())

	sg := g.Group("/submissions", jwt)
	sg.GET("", api.querySubmissions)
	sg.GET("/pending", api.pendingGrading, teacherMiddleware())
	sg.GET("/:id", api.retrieveSubmission, api.submissionMiddleware)
	sg.PUT("/:id/grade", api.grade, teacherMiddleware(), api.submissionMiddleware)
}

// objectMiddleware loads the homework of the path. Students only see the homework of their class.
func (api *homeworkApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		hw, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == homework.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding homework by ID")
		}

		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if !(claims.IsAdmin || claims.IsTeacher) {
			s, err := contextStudent(ctx, api.users, api.students)
			if err != nil {
				return err
			}
			if s.ClassID != hw.ClassID {
				return errHttpNotFound
			}
		}
		ctx.Set("object", hw)
		return next(ctx)
	}
}

// submissionMiddleware loads the submission of the path. Students only see their own.
func (api *homeworkApi) submissionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == homework.ErrSubmissionNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding submission by ID")
		}

		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if !(claims.IsAdmin || claims.IsTeacher) {
			s, err := contextStudent(ctx, api.users, api.students)
			if err != nil {
				return err
			}
			if s.ID != sub.StudentID {
				return errHttpNotFound
			}
		}
		ctx.Set("submission", sub)
		return next(ctx)
	}
}

func ctxHomework(ctx echo.Context) (homework.Homework, error) {
	hw, ok := ctx.Get("object").(homework.Homework)
	if !ok {
		return homework.Homework{}, errors.Wrap(errHomeworkNotFoundInCtx, "retrieving object from context")
	}
	return hw, nil
}

func ctxSubmission(ctx echo.Context) (homework.Submission, error) {
	sub, ok := ctx.Get("submission").(homework.Submission)
	if !ok {
		return homework.Submission{}, errors.Wrap(errSubmissionNotFoundInCtx, "retrieving object from context")
	}
	return sub, nil
}

// checkHomeworkTeacher lets admins, the author of the homework and the teacher of its class through.
func (api *homeworkApi) checkHomeworkTeacher(ctx echo.Context, hw homework.Homework) (user.User, error) {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context user")
	}
	if hw.TeacherID == usr.ID {
		return usr, nil
	}
	return usr, checkTeaches(ctx, api.students, usr, hw.ClassID)
}

// Handlers

func (api *homeworkApi) create(ctx echo.Context) error {
	var data homework.NewHomework
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewHomework")
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

	hw, err := api.svc.Create(ctx.Request().Context(), data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "creating homework")
	}
	return ctx.JSON(http.StatusCreated, hw)
}

func (api *homeworkApi) query(ctx echo.Context) error {
	filter := new(homework.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []homework.Homework{})
	}
	if err := bindTimeParams(ctx, map[string]*time.Time{"due_from": &filter.DueFrom, "due_to": &filter.DueTo}); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !(claims.IsAdmin || claims.IsTeacher) {
		s, err := contextStudent(ctx, api.users, api.students)
		if err != nil {
			return err
		}
		if s.ClassID == "" {
			return ctx.JSON(http.StatusOK, []homework.Homework{})
		}
		filter.ClassID = s.ClassID
	}

	hws, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying homework")
	}
	return ctx.JSON(http.StatusOK, hws)
}

func (api *homeworkApi) retrieve(ctx echo.Context) error {
	hw, err := ctxHomework(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, hw)
}

func (api *homeworkApi) update(ctx echo.Context) error {
	hw, err := ctxHomework(ctx)
	if err != nil {
		return err
	}
	if _, err = api.checkHomeworkTeacher(ctx, hw); err != nil {
		return err
	}

	var data homework.UpdateHomework
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateHomework")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	hw, err = api.svc.Update(ctx.Request().Context(), hw, data)
	if err != nil {
		return errors.Wrap(err, "updating homework")
	}
	return ctx.JSON(http.StatusOK, hw)
}

func (api *homeworkApi) destroy(ctx echo.Context) error {
	hw, err := ctxHomework(ctx)
	if err != nil {
		return err
	}
	if _, err = api.checkHomeworkTeacher(ctx, hw); err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), hw.ID); err != nil {
		return errors.Wrap(err, "deleting homework")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *homeworkApi) submit(ctx echo.Context) error {
	hw, err := ctxHomework(ctx)
	if err != nil {
		return err
	}
	s, err := contextStudent(ctx, api.users, api.students)
	if err != nil {
		return err
	}

	var data homework.NewSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Submit(ctx.Request().Context(), hw, s, data)
	if err != nil {
		return errors.Wrap(err, "submitting homework")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *homeworkApi) homeworkSubmissions(ctx echo.Context) error {
	hw, err := ctxHomework(ctx)
	if err != nil {
		return err
	}
	subs, err := api.svc.Submissions(ctx.Request().Context(), &homework.SubmissionFilter{HomeworkID: hw.ID})
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *homeworkApi) querySubmissions(ctx echo.Context) error {
	filter := new(homework.SubmissionFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []homework.Submission{})
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !(claims.IsAdmin || claims.IsTeacher) {
		s, err := contextStudent(ctx, api.users, api.students)
		if err != nil {
			return err
		}
		filter.StudentID = s.ID
	}

	subs, err := api.svc.Submissions(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *homeworkApi) pendingGrading(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	subs, err := api.svc.PendingGrading(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying submissions pending grading")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *homeworkApi) retrieveSubmission(ctx echo.Context) error {
	sub, err := ctxSubmission(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *homeworkApi) grade(ctx echo.Context) error {
	sub, err := ctxSubmission(ctx)
	if err != nil {
		return err
	}
	hw, err := api.svc.Get(ctx.Request().Context(), sub.HomeworkID)
	if err != nil {
		return errors.Wrap(err, "finding homework of submission")
	}
	usr, err := api.checkHomeworkTeacher(ctx, hw)
	if err != nil {
		return err
	}

	var data homework.GradeSubmission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err = api.svc.Grade(ctx.Request().Context(), sub, data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
