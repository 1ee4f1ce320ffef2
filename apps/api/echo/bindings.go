package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
)

const (
	orderingParam = "ordering"
	dateLayout    = "2006-01-02"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the ordering query param, keeping only the allowed fields.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	ord.Orderings = core.ParseOrderings(ctx.QueryParam(orderingParam), allowed...)
}

// bindTimeParams parses the named query params into dest. Both RFC3339 times and plain dates are accepted.
// echo cannot bind time.Time, hence the filters tag these fields with `query:"-"`.
func bindTimeParams(ctx echo.Context, dest map[string]*time.Time) error {
	var fldErrs []core.FieldError
	for name, t := range dest {
		val := ctx.QueryParam(name)
		if val == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, val)
		if err != nil {
			if parsed, err = time.Parse(dateLayout, val); err != nil {
				fldErrs = append(fldErrs, core.FieldError{Field: name, Error: "invalid date"})
				continue
			}
		}
		*t = parsed.UTC()
	}
	if fldErrs != nil {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// bindMonth parses the year and month query params, defaulting to the current month.
func bindMonth(ctx echo.Context) (int, time.Month, error) {
	now := time.Now()
	year, month := now.Year(), now.Month()

	if val := ctx.QueryParam("year"); val != "" {
		y, err := strconv.Atoi(val)
		if err != nil || y < 1 {
			return 0, 0, core.NewFieldValidationError("year", "invalid year")
		}
		year = y
	}
	if val := ctx.QueryParam("month"); val != "" {
		m, err := strconv.Atoi(val)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, core.NewFieldValidationError("month", "invalid month")
		}
		month = time.Month(m)
	}
	return year, month, nil
}
