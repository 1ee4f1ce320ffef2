package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/payment"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/student"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/user"
	emailsvc "github.com/Zeta-Naidi/Muallim-1-sub002/services/email"
	logsvc "github.com/Zeta-Naidi/Muallim-1-sub002/services/logger"
	"github.com/Zeta-Naidi/Muallim-1-sub002/storage/database"
	sqlxrepos "github.com/Zeta-Naidi/Muallim-1-sub002/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal(fmt.Sprintf("connecting to database: %v", err), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	stdSvc := student.NewService(sqlxrepos.NewStudentRepository(db), logger)

	// start CLI
	cli := commandLine{
		db:       db,
		out:      os.Stdout,
		validate: validate,
		usrSvc:   user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf, logger, os.Stdout), conf),
		stdSvc:   stdSvc,
		paySvc:   payment.NewService(sqlxrepos.NewPaymentRepository(db), stdSvc),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Flush()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
