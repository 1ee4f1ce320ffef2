package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/services/report"
)

func (cli *commandLine) exportPayments(path string) error {
	ctx := context.Background()
	groups, err := cli.paySvc.Groups(ctx, nil)
	if err != nil {
		return err
	}
	records, err := cli.paySvc.Records(ctx, nil)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating workbook")
	}
	if err = report.WritePayments(f, groups, records); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "closing workbook")
	}
	fmt.Fprintf(cli.out, "%d group(s) and %d record(s) written to %s\n", len(groups), len(records), path)
	return nil
}
