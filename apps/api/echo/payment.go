package echoapi

import (
	"bytes"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
	"github.com/Zeta-Naidi/Muallim-1-sub002/services/report"
)

var errRecordNotFoundInCtx = errors.New("payment record not found in echo.Context")

type paymentApi struct {
	users    *user.Service
	svc      *payment.Service
	validate *validator.Validate
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := paymentApi{
		users:    deps.UserSvc,
		svc:      deps.PaymentSvc,
		validate: deps.Validate,
	}

	pg := g.Group("/payments", jwt, adminMiddleware())
	pg.GET("/groups", api.groups)
	pg.GET("/groups/:contact", api.group)
	pg.GET("/summary", api.summary)
	pg.GET("/export", api.exportWorkbook)

	rg := pg.Group("/records")
	rg.GET("", api.queryRecords)
	rg.POST("", api.createRecord)

	dg := rg.Group("/:id", api.recordMiddleware)
	dg.GET("", api.retrieveRecord)
	dg.PUT("", api.updateRecord)
	dg.DELETE("", api.destroyRecord)
}

func (api *paymentApi) recordMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		rec, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == payment.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding payment record by ID")
		}
		ctx.Set("object", rec)
		return next(ctx)
	}
}

func ctxRecord(ctx echo.Context) (payment.Record, error) {
	rec, ok := ctx.Get("object").(payment.Record)
	if !ok {
		return payment.Record{}, errors.Wrap(errRecordNotFoundInCtx, "retrieving object from context")
	}
	return rec, nil
}

// Handlers

func (api *paymentApi) groups(ctx echo.Context) error {
	filter := new(payment.GroupFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Group{})
	}
	groups, err := api.svc.Groups(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "grouping payments")
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *paymentApi) group(ctx echo.Context) error {
	contact, err := url.PathUnescape(ctx.Param("contact"))
	if err != nil {
		return errHttpNotFound
	}
	grp, err := api.svc.Group(ctx.Request().Context(), contact)
	if err != nil {
		return errors.Wrap(err, "finding payment group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *paymentApi) summary(ctx echo.Context) error {
	s, err := api.svc.Summary(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "summarizing payments")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *paymentApi) exportWorkbook(ctx echo.Context) error {
	groups, err := api.svc.Groups(ctx.Request().Context(), nil)
	if err != nil {
		return errors.Wrap(err, "grouping payments")
	}
	records, err := api.svc.Records(ctx.Request().Context(), nil)
	if err != nil {
		return errors.Wrap(err, "querying payment records")
	}

	var buf bytes.Buffer
	if err = report.WritePayments(&buf, groups, records); err != nil {
		return errors.Wrap(err, "writing payments workbook")
	}
	name := "payments-" + time.Now().Format(dateLayout) + ".xlsx"
	return attachment(ctx, name, report.ContentType, buf.Bytes())
}

func (api *paymentApi) queryRecords(ctx echo.Context) error {
	filter := new(payment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Record{})
	}
	if err := bindTimeParams(ctx, map[string]*time.Time{"from": &filter.From, "to": &filter.To}); err != nil {
		return err
	}

	records, err := api.svc.Records(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying payment records")
	}
	return ctx.JSON(http.StatusOK, records)
}

// createRecord records a payment; it is rejected when it would take the family over what it owes.
func (api *paymentApi) createRecord(ctx echo.Context) error {
	var data payment.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	rec, err := api.svc.Create(ctx.Request().Context(), data, usr.ID)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *paymentApi) retrieveRecord(ctx echo.Context) error {
	rec, err := ctxRecord(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *paymentApi) updateRecord(ctx echo.Context) error {
	rec, err := ctxRecord(ctx)
	if err != nil {
		return err
	}

	var data payment.UpdateRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rec, err = api.svc.Update(ctx.Request().Context(), rec, data)
	if err != nil {
		return errors.Wrap(err, "updating payment record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *paymentApi) destroyRecord(ctx echo.Context) error {
	rec, err := ctxRecord(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), rec.ID); err != nil {
		return errors.Wrap(err, "deleting payment record")
	}
	return ctx.NoContent(http.StatusNoContent)
}
