package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
)

const StudentsSheet = "Students"

var studentColumns = []string{
	"first_name", "last_name", "birth_date", "class_id", "parent_name", "parent_contact", "parent_email",
	"enrolled", "payment_exempted",
}

// WriteStudents writes the students to w, in the layout ReadStudents reads back.
func WriteStudents(w io.Writer, students []student.Student) error {
	f := excelize.NewFile()
	style, err := headerStyle(f)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(studentColumns))
	for i, col := range studentColumns {
		header[i] = col
	}
	sw, err := newSheet(f, StudentsSheet, style, header...)
	if err != nil {
		return err
	}
	for _, s := range students {
		var birth string
		if !s.BirthDate.IsZero() {
			birth = s.BirthDate.Format(dateLayout)
		}
		err = sw.add(s.FirstName, s.LastName, birth, s.ClassID, s.ParentName, s.ParentContact, s.ParentEmail,
			yesNo(s.Enrolled), yesNo(s.PaymentExempted))
		if err != nil {
			return err
		}
	}
	if err = sw.fit(); err != nil {
		return err
	}
	return write(f, w)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "si", "sì", "x":
		return true, nil
	case "no", "n", "false", "0", "":
		return false, nil
	}
	return false, errors.Errorf("invalid boolean %q", s)
}

// ReadStudents reads the students of the first sheet of the workbook. The first row names the columns,
// in any order; unknown columns are ignored and first_name and last_name are required.
// Blank rows are skipped; each row keeps its 1-based sheet row number.
func ReadStudents(r io.Reader) ([]student.ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("the workbook has no sheet")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheet)
	}
	if len(rows) == 0 {
		return []student.ImportRow{}, nil
	}

	index := make(map[string]int)
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range []string{"first_name", "last_name"} {
		if _, ok := index[col]; !ok {
			return nil, errors.Errorf("missing column %s", col)
		}
	}

	res := make([]student.ImportRow, 0, len(rows)-1)
	for n, row := range rows[1:] {
		sheetRow := n + 2
		cell := func(col string) string {
			if i, ok := index[col]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		if strings.Join(row, "") == "" {
			continue
		}

		ns := student.NewStudent{
			FirstName:     cell("first_name"),
			LastName:      cell("last_name"),
			BirthDate:     cell("birth_date"),
			ClassID:       cell("class_id"),
			ParentName:    cell("parent_name"),
			ParentContact: cell("parent_contact"),
			ParentEmail:   cell("parent_email"),
		}
		if v := cell("enrolled"); v != "" {
			enrolled, err := parseBool(v)
			if err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("row %d: enrolled", sheetRow))
			}
			ns.Enrolled = &enrolled
		}
		if ns.PaymentExempted, err = parseBool(cell("payment_exempted")); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("row %d: payment_exempted", sheetRow))
		}
		res = append(res, student.ImportRow{Row: sheetRow, NewStudent: ns})
	}
	return res, nil
}
