package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

// uploadBodyLimit leaves room for the multipart envelope around a file of material.MaxFileSize.
const uploadBodyLimit = "21M"

var errMaterialNotFoundInCtx = errors.New("material object not found in echo.Context")

type materialApi struct {
	users    *user.Service
	students *student.Service
	svc      *material.Service
	validate *validator.Validate
}

func registerMaterialAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := materialApi{
		users:    deps.UserSvc,
		students: deps.StudentSvc,
		svc:      deps.MaterialSvc,
		validate: deps.Validate,
	}

	mg := g.Group("/materials", jwt)
	mg.GET("", api.query)
	mg.POST("", api.upload, teacherMiddleware(), middleware.BodyLimit(uploadBodyLimit))

	dg := mg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.GET("/download", api.download)
	dg.DELETE("", api.destroy, teacherMiddleware())
}

// objectMiddleware loads the material of the path. Students only see the materials of their class.
func (api *materialApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		m, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == material.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding material by ID")
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
			if s.ClassID != m.ClassID {
				return errHttpNotFound
			}
		}
		ctx.Set("object", m)
		return next(ctx)
	}
}

func ctxMaterial(ctx echo.Context) (material.Material, error) {
	m, ok := ctx.Get("object").(material.Material)
	if !ok {
		return material.Material{}, errors.Wrap(errMaterialNotFoundInCtx, "retrieving object from context")
	}
	return m, nil
}

// Handlers

func (api *materialApi) upload(ctx echo.Context) error {
	var data material.NewMaterial
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMaterial")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldValidationError("file", "a file is required")
	}

	if _, err = api.students.GetClass(ctx.Request().Context(), data.ClassID); err != nil {
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

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	m, err := api.svc.Upload(ctx.Request().Context(), data, material.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Content:     f,
	}, usr.ID)
	if err != nil {
		return errors.Wrap(err, "uploading material")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *materialApi) query(ctx echo.Context) error {
	filter := new(material.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []material.Material{})
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
			return ctx.JSON(http.StatusOK, []material.Material{})
		}
		filter.ClassID = s.ClassID
	}

	materials, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying materials")
	}
	return ctx.JSON(http.StatusOK, materials)
}

func (api *materialApi) retrieve(ctx echo.Context) error {
	m, err := ctxMaterial(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

// download redirects to a signed link when the store provides one, otherwise streams the file.
func (api *materialApi) download(ctx echo.Context) error {
	m, err := ctxMaterial(ctx)
	if err != nil {
		return err
	}

	url, ok, err := api.svc.DownloadURL(ctx.Request().Context(), m)
	if err != nil {
		return errors.Wrap(err, "getting download url")
	}
	if ok {
		return ctx.Redirect(http.StatusFound, url)
	}

	rc, err := api.svc.Open(ctx.Request().Context(), m)
	if err != nil {
		return errors.Wrap(err, "opening material file")
	}
	defer rc.Close()

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+m.FileName+`"`)
	return ctx.Stream(http.StatusOK, m.ContentType, rc)
}

func (api *materialApi) destroy(ctx echo.Context) error {
	m, err := ctxMaterial(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if m.TeacherID != usr.ID {
		if err = checkTeaches(ctx, api.students, usr, m.ClassID); err != nil {
			return err
		}
	}

	if err = api.svc.Delete(ctx.Request().Context(), m); err != nil {
		return errors.Wrap(err, "deleting material")
	}
	return ctx.NoContent(http.StatusNoContent)
}
