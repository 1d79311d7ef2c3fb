package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/user"
	emailsvc "github.com/edutech/backend/services/email"
	logsvc "github.com/edutech/backend/services/logger"
	"github.com/edutech/backend/storage/database"
	sqlxrepos "github.com/edutech/backend/storage/database/sqlx"
)

var logger *logsvc.RollbarLogger

func main() {
	defer os.Exit(0)

	logger = logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	errAndDie(database.CreateIfNotExist(core.Conf))
	sdb, err := database.Open(core.Conf)
	errAndDie(err)
	defer func() { _ = sdb.Close() }()
	errAndDie(sdb.Ping())

	db := sqlx.NewDb(sdb, core.Conf.Database.Engine)
	usrRepo := sqlxrepos.NewUserRepository(db)

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	// start CLI
	cli := commandLine{
		db:      sdb,
		usrSvc:  user.NewService(usrRepo, mailSvc, logger),
		usrRepo: usrRepo,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
