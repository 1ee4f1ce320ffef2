package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/Zeta-Naidi/Muallim-1-sub002/apps/api/echo"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/attendance"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/dashboard"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/homework"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/lesson"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/notification"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/substitution"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
	emailsvc "github.com/Zeta-Naidi/Muallim-1-sub002/services/email"
	logsvc "github.com/Zeta-Naidi/Muallim-1-sub002/services/logger"
	"github.com/Zeta-Naidi/Muallim-1-sub002/services/scheduler"
	"github.com/Zeta-Naidi/Muallim-1-sub002/storage/blob"
	"github.com/Zeta-Naidi/Muallim-1-sub002/storage/database"
	sqlxrepos "github.com/Zeta-Naidi/Muallim-1-sub002/storage/database/sqlx"
	redisstore "github.com/Zeta-Naidi/Muallim-1-sub002/storage/redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Flush()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	rdb, err := redisstore.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	defer func() {
		if err = rdb.Close(); err != nil {
			dbLogger.Error("Failed to close redis", err)
		}
	}()

	store, err := blob.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger, os.Stdout)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	notifSvc := notification.NewService(redisstore.NewNotificationRepository(rdb), logger, conf)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	stdSvc := student.NewService(sqlxrepos.NewStudentRepository(db), logger)
	paySvc := payment.NewService(sqlxrepos.NewPaymentRepository(db), stdSvc)
	hwSvc := homework.NewService(sqlxrepos.NewHomeworkRepository(db), stdSvc, notifSvc, logger)
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), stdSvc, conf)
	lsnSvc := lesson.NewService(sqlxrepos.NewLessonRepository(db))
	matSvc := material.NewService(sqlxrepos.NewMaterialRepository(db), store, stdSvc, notifSvc, logger)
	subSvc := substitution.NewService(sqlxrepos.NewSubstitutionRepository(db), usrSvc, stdSvc, notifSvc, mailSvc, logger)
	dashSvc := dashboard.NewService(stdSvc, paySvc, hwSvc, attSvc, lsnSvc, subSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Scheduler

	sched, err := scheduler.New(conf.Scheduler, scheduler.Deps{
		Payments:      paySvc,
		Admins:        usrSvc,
		Notifications: notifSvc,
		Mail:          mailSvc,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up scheduler: %v", err), err)
	}
	sched.Start()
	logger.Info(fmt.Sprintf("Scheduler started : %d job(s)", sched.Jobs()))

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			UserSvc:         usrSvc,
			StudentSvc:      stdSvc,
			PaymentSvc:      paySvc,
			HomeworkSvc:     hwSvc,
			AttendanceSvc:   attSvc,
			LessonSvc:       lsnSvc,
			MaterialSvc:     matSvc,
			SubstitutionSvc: subSvc,
			NotificationSvc: notifSvc,
			DashboardSvc:    dashSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests and running jobs a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = sched.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop scheduler gracefully: %v", err), err)
		}

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
