package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/substitution"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
)

var errSubstitutionNotFoundInCtx = errors.New("substitution object not found in echo.Context")

type substitutionApi struct {
	users    *user.Service
	svc      *substitution.Service
	validate *validator.Validate
}

func registerSubstitutionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := substitutionApi{
		users:    deps.UserSvc,
		svc:      deps.SubstitutionSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/substitutions", jwt, teacherMiddleware())
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/pending", api.pending, adminMiddleware())

	dg := sg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("/review", api.review, adminMiddleware())
	dg.DELETE("", api.cancel)
}

// objectMiddleware loads the request of the path. Teachers only see the requests they filed or substitute in.
func (api *substitutionApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sub, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == substitution.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding substitution request by ID")
		}
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if !(claims.IsAdmin || sub.RequesterID == claims.Subject || sub.SubstituteID == claims.Subject) {
			return errHttpNotFound
		}
		ctx.Set("object", sub)
		return next(ctx)
	}
}

func ctxSubstitution(ctx echo.Context) (substitution.Substitution, error) {
	sub, ok := ctx.Get("object").(substitution.Substitution)
	if !ok {
		return substitution.Substitution{}, errors.Wrap(errSubstitutionNotFoundInCtx, "retrieving object from context")
	}
	return sub, nil
}

// Handlers

func (api *substitutionApi) create(ctx echo.Context) error {
	var data substitution.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sub, err := api.svc.Create(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "creating substitution request")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *substitutionApi) query(ctx echo.Context) error {
	filter := new(substitution.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []substitution.Substitution{})
	}
	if err := bindTimeParams(ctx, map[string]*time.Time{"from": &filter.From, "to": &filter.To}); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin && filter.SubstituteID != claims.Subject {
		filter.RequesterID = claims.Subject
	}

	subs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying substitution requests")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *substitutionApi) pending(ctx echo.Context) error {
	subs, err := api.svc.Pending(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying pending substitution requests")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *substitutionApi) retrieve(ctx echo.Context) error {
	sub, err := ctxSubstitution(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *substitutionApi) review(ctx echo.Context) error {
	sub, err := ctxSubstitution(ctx)
	if err != nil {
		return err
	}

	var data substitution.Review
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Review")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sub, err = api.svc.Review(ctx.Request().Context(), sub, data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "reviewing substitution request")
	}
	return ctx.JSON(http.StatusOK, sub)
}

// cancel withdraws a pending request.
func (api *substitutionApi) cancel(ctx echo.Context) error {
	sub, err := ctxSubstitution(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.svc.Cancel(ctx.Request().Context(), sub, usr); err != nil {
		return errors.Wrap(err, "cancelling substitution request")
	}
	return ctx.NoContent(http.StatusNoContent)
}
