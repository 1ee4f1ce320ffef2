package report

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
)

const (
	GroupsSheet  = "Families"
	RecordsSheet = "Payments"
)

// PaymentsWorkbook builds a workbook with a row per family and a row per payment record.
func PaymentsWorkbook(groups []payment.Group, records []payment.Record) (*excelize.File, error) {
	f := excelize.NewFile()
	style, err := headerStyle(f)
	if err != nil {
		return nil, err
	}

	gs, err := newSheet(f, GroupsSheet, style,
		"Parent contact", "Parent name", "Parent email", "Children", "Child count",
		"Owed", "Paid", "Remaining", "Status")
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		names := make([]string, 0, len(g.Children))
		for _, c := range g.Children {
			names = append(names, c.Name)
		}
		err = gs.add(g.ParentContact, g.ParentName, g.ParentEmail, strings.Join(names, ", "), g.ChildCount,
			g.TotalOwed, g.PaidAmount, g.Remaining, string(g.Status))
		if err != nil {
			return nil, err
		}
	}
	if err = gs.fit(); err != nil {
		return nil, err
	}

	rs, err := newSheet(f, RecordsSheet, style, "Date", "Parent contact", "Amount", "Notes")
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err = rs.add(rec.Date.Format(dateLayout), rec.ParentContact, rec.Amount, rec.Notes); err != nil {
			return nil, err
		}
	}
	if err = rs.fit(); err != nil {
		return nil, err
	}
	return f, nil
}

// WritePayments writes the payments workbook to w.
func WritePayments(w io.Writer, groups []payment.Group, records []payment.Record) error {
	f, err := PaymentsWorkbook(groups, records)
	if err != nil {
		return errors.Wrap(err, "building payments workbook")
	}
	return write(f, w)
}
