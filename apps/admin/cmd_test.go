package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
	emailsvc "github.com/Zeta-Naidi/Muallim-1-sub002/services/email"
	"github.com/Zeta-Naidi/Muallim-1-sub002/services/report"
	dummydb "github.com/Zeta-Naidi/Muallim-1-sub002/storage/database/dummy"
	testutil "github.com/Zeta-Naidi/Muallim-1-sub002/tests"
)

var (
	usrRepo user.Repository
	stdRepo student.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := testutil.Config()
	logger := testutil.Logger(conf)
	validate, _ := testutil.Validator(logger)

	// set up DB & repos
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo = dummydb.NewUserRepository(db)
	stdRepo = dummydb.NewStudentRepository(db)
	stdSvc := student.NewService(stdRepo, logger)

	// start CLI
	var out bytes.Buffer
	return &commandLine{
		out:      &out,
		validate: validate,
		usrSvc:   user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf, logger), conf),
		stdSvc:   stdSvc,
		paySvc:   payment.NewService(dummydb.NewPaymentRepository(db), stdSvc),
	}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var ran []string
	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				assert.EqualError(t, err, tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, []string{"up", "up-by-one", "up-to", "down", "down-to", "redo", "reset", "status", "version", "fix"}, ran)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	existing := testutil.CreateUser(t, usrRepo, "Marco Rossi", "mrossi", "mrossi@muallim.test", "old", []string{user.RoleTeacher}, false)

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-username", "lbianchi", "-role", "janitor"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "lbianchi", "-role", "admin"}, wantErr: errHelp},
		{
			name:       "email taken",
			args:       []string{"adduser", "-username", "lbianchi", "-email", "MRossi@muallim.test", "-role", "admin"},
			extra:      "s3cret",
			wantErrStr: user.ErrEmailExists.Error(),
		},
		{name: "create", args: []string{"adduser", "-name", "Luca Bianchi", "-username", "LBianchi", "-role", "admin"}, extra: "s3cret"},
		{name: "update", args: []string{"adduser", "-email", "mrossi@muallim.test", "-role", "admin"}, extra: "n3w"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErrStr != "" {
				assert.EqualError(t, err, tt.wantErrStr)
				return
			}
			assert.Equal(t, tt.wantErr, err)
		})
	}

	created, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "lbianchi"})
	require.NoError(t, err)
	assert.Equal(t, "Luca Bianchi", created.Name)
	assert.True(t, created.IsActive)
	assert.Equal(t, []string{user.RoleAdmin}, created.Roles)
	assert.NoError(t, created.CheckPassword("s3cret"))

	updated, err := usrRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.Equal(t, "Marco Rossi", updated.Name)
	assert.Equal(t, "mrossi", updated.Username)
	assert.True(t, updated.IsActive)
	assert.Equal(t, []string{user.RoleAdmin}, updated.Roles)
	assert.NoError(t, updated.CheckPassword("n3w"))

	assert.Contains(t, out.String(), `user "lbianchi" created`)
	assert.Contains(t, out.String(), `user "mrossi" updated`)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@muallim.test", "mdr", nil, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@muallim.test"}, extra: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
		})
	}
}

func Test_commandLine_importStudents(t *testing.T) {
	cli, out := setup(t)
	teacher := testutil.CreateUser(t, usrRepo, "Marco Rossi", "mrossi", "mrossi@muallim.test", "pwd", []string{user.RoleTeacher}, true)
	class := testutil.CreateClass(t, stdRepo, "Arabo 1", teacher.ID)

	path := filepath.Join(t.TempDir(), "students.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"first_name", "last_name", "class_id", "parent_contact"},
		{"Yusuf", "Amrani", class.ID, "+393331234567"},
		{"", "Conti", "", ""},
		{"Amina", "Amrani", "", "+393331234567"},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	require.NoError(t, f.SaveAs(path))

	assert.Equal(t, errHelp, cli.run([]string{"admin", "importstudents"}))
	assert.Error(t, cli.run([]string{"admin", "importstudents", "-file", filepath.Join(t.TempDir(), "nope.xlsx")}))

	require.NoError(t, cli.run([]string{"admin", "importstudents", "-file", path}))
	assert.Contains(t, out.String(), "row 3: ")
	assert.Contains(t, out.String(), "2 student(s) imported, 1 row(s) rejected")

	students, err := stdRepo.QueryStudents(context.Background(), &student.QueryFilter{Search: "Amrani"}, nil)
	require.NoError(t, err)
	assert.Len(t, students, 2)
	c, err := stdRepo.GetClass(context.Background(), class.ID)
	require.NoError(t, err)
	assert.Len(t, c.StudentIDs, 1)
}

func Test_commandLine_exportPayments(t *testing.T) {
	cli, out := setup(t)
	testutil.CreateStudent(t, stdRepo, student.Student{
		FirstName:     "Yusuf",
		LastName:      "Amrani",
		ParentName:    "Karim Amrani",
		ParentContact: "+393331234567",
		Enrolled:      true,
	})

	path := filepath.Join(t.TempDir(), "payments.xlsx")
	require.NoError(t, cli.run([]string{"admin", "exportpayments", "-out", path}))
	assert.Contains(t, out.String(), "1 group(s) and 0 record(s) written to "+path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	groups, err := f.GetRows(report.GroupsSheet)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "+393331234567", groups[1][0])
	records, err := f.GetRows(report.RecordsSheet)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
