package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/edutech/backend/apps/api/echo"
	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/assignment"
	"github.com/edutech/backend/core/certificate"
	"github.com/edutech/backend/core/course"
	"github.com/edutech/backend/core/enroll"
	"github.com/edutech/backend/core/notification"
	"github.com/edutech/backend/core/quiz"
	"github.com/edutech/backend/core/user"
	emailsvc "github.com/edutech/backend/services/email"
	logsvc "github.com/edutech/backend/services/logger"
	oauthsvc "github.com/edutech/backend/services/oauth"
	pdfsvc "github.com/edutech/backend/services/pdf"
	uploadsvc "github.com/edutech/backend/services/upload"
	"github.com/edutech/backend/storage/database"
	sqlxrepos "github.com/edutech/backend/storage/database/sqlx"
)

// courseCatalog defers the course service lookup so the enrollment and
// course services can reference each other.
type courseCatalog struct {
	svc *course.Service
}

func (c *courseCatalog) GetCourseBrief(courseID string) (string, float64, error) {
	return c.svc.GetCourseBrief(courseID)
}

func main() {
	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	// set up DB
	sdb, err := database.Open(core.Conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	db := sqlx.NewDb(sdb, core.Conf.Database.Engine)
	defer func() { _ = db.Close() }()

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	storage, err := uploadsvc.NewCloudinaryStorage(core.Conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, logger)
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), logger)

	catalog := &courseCatalog{}
	enrollSvc := enroll.NewService(sqlxrepos.NewEnrollRepository(db), catalog, usrSvc, notifSvc, storage, mailSvc, logger)
	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(db), enrollSvc, storage, logger)
	catalog.svc = courseSvc

	quizSvc := quiz.NewService(sqlxrepos.NewQuizRepository(db), enrollSvc, logger)
	assignmentSvc := assignment.NewService(sqlxrepos.NewAssignmentRepository(db), enrollSvc, usrSvc, storage, logger)
	certSvc := certificate.NewService(
		sqlxrepos.NewCertificateRepository(db),
		courseSvc,
		courseSvc,
		usrSvc,
		pdfsvc.NewCertificateRenderer(core.Conf),
		storage,
		logger,
	)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Address:         core.Conf.Server.Host + ":" + core.Conf.Server.Port,
		UserSvc:         usrSvc,
		CourseSvc:       courseSvc,
		EnrollSvc:       enrollSvc,
		QuizSvc:         quizSvc,
		AssignmentSvc:   assignmentSvc,
		CertificateSvc:  certSvc,
		NotificationSvc: notifSvc,
		GoogleSvc:       oauthsvc.NewGoogleService(core.Conf),
		Storage:         storage,
		Logger:          logger,
	})

	go app.Start()

	// graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: start shutdown...", sig))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("stopping server: %v", err), err)
	}
	logger.Info("application stopped")
}
