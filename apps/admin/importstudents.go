package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/services/report"
)

// importStudents creates the students of the workbook at path and prints the rejected rows.
func (cli *commandLine) importStudents(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening workbook")
	}
	defer f.Close()

	rows, err := report.ReadStudents(f)
	if err != nil {
		return err
	}
	res, err := cli.stdSvc.Import(context.Background(), cli.validate, rows)
	if err != nil {
		return err
	}
	for _, e := range res.Errors {
		fmt.Fprintf(cli.out, "row %d: %s\n", e.Row, e.Error)
	}
	fmt.Fprintf(cli.out, "%d student(s) imported, %d row(s) rejected\n", res.Created, len(res.Errors))
	return nil
}
