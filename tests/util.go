// Package testutil holds the fixtures shared by the test suites.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
	logsvc "github.com/Zeta-Naidi/Muallim-1-sub002/services/logger"
)

// Config returns the configuration the test suites run with.
func Config() *core.Config {
	conf := &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Muallim",
		SecretKey:                 "muallim-test-secret-key",
		FrontendBaseURL:           "https://muallim.test",
		PasswordResetTimeoutDelta: 72 * time.Hour,
		NotificationsMaxPerUser:   100,
		SchoolDays:                []time.Weekday{time.Saturday, time.Sunday},
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
	}
	conf.SetDefaultFromEmail("Muallim <noreply@muallim.test>")
	return conf
}

// Logger discards everything; rollbar is disabled in test mode.
func Logger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// Validator returns a validator with the core and user validators registered.
func Validator(logger core.Logger) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, repo student.Repository, name, teacherID string) student.Class {
	t.Helper()
	now := time.Now().UTC()
	c, err := repo.CreateClass(context.Background(), student.Class{
		Name:       name,
		TeacherID:  teacherID,
		StudentIDs: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return c
}

// CreateStudent saves s as is and adds it to its class, if any.
func CreateStudent(t *testing.T, repo student.Repository, s student.Student) student.Student {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = s.CreatedAt
	s, err := repo.CreateStudent(ctx, s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if s.ClassID != "" {
		if err = repo.AddClassStudent(ctx, s.ClassID, s.ID); err != nil {
			t.Fatalf("CreateStudent() failed: %v", err)
		}
	}
	return s
}
