// Package report reads and writes the xlsx workbooks exchanged with the school office.
package report

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout  = "2006-01-02"
	firstSheet  = "Sheet1"
)

// sheetWriter appends rows to a sheet, the first row being a bold header.
type sheetWriter struct {
	f     *excelize.File
	name  string
	row   int
	width []float64
}

func newSheet(f *excelize.File, name string, headerStyle int, header ...interface{}) (*sheetWriter, error) {
	if f.GetSheetName(0) == firstSheet && name != firstSheet {
		if err := f.SetSheetName(firstSheet, name); err != nil {
			return nil, errors.Wrapf(err, "renaming sheet %s", name)
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return nil, errors.Wrapf(err, "creating sheet %s", name)
	}

	sw := &sheetWriter{f: f, name: name}
	if err := sw.add(header...); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(name, 1, 1, headerStyle); err != nil {
		return nil, errors.Wrapf(err, "styling header of %s", name)
	}
	return sw, nil
}

func (sw *sheetWriter) add(values ...interface{}) error {
	sw.row++
	cell, err := excelize.CoordinatesToCellName(1, sw.row)
	if err != nil {
		return err
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			if i >= len(sw.width) {
				sw.width = append(sw.width, make([]float64, i-len(sw.width)+1)...)
			}
			if w := float64(len(s)) + 2; w > sw.width[i] {
				sw.width[i] = w
			}
		}
	}
	return errors.Wrapf(sw.f.SetSheetRow(sw.name, cell, &values), "writing row %d of %s", sw.row, sw.name)
}

// fit widens the columns to their longest text.
func (sw *sheetWriter) fit() error {
	for i, w := range sw.width {
		if w < 10 {
			w = 10
		}
		if w > 60 {
			w = 60
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err = sw.f.SetColWidth(sw.name, col, col, w); err != nil {
			return errors.Wrapf(err, "sizing column %s of %s", col, sw.name)
		}
	}
	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	return style, errors.Wrap(err, "creating header style")
}

func write(f *excelize.File, w io.Writer) error {
	defer f.Close()
	_, err := f.WriteTo(w)
	return errors.Wrap(err, "writing workbook")
}
