package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/assignment"
	"github.com/edutech/backend/core/certificate"
	"github.com/edutech/backend/core/course"
	"github.com/edutech/backend/core/enroll"
	"github.com/edutech/backend/core/notification"
	"github.com/edutech/backend/core/quiz"
	"github.com/edutech/backend/core/user"
	oauthsvc "github.com/edutech/backend/services/oauth"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		UserSvc         *user.Service
		CourseSvc       *course.Service
		EnrollSvc       *enroll.Service
		QuizSvc         *quiz.Service
		AssignmentSvc   *assignment.Service
		CertificateSvc  *certificate.Service
		NotificationSvc *notification.Service
		GoogleSvc       *oauthsvc.GoogleService

		Storage core.FileStorage
		Logger  core.Logger
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc, s.opts.GoogleSvc, s.opts.Storage)
	registerCourseAPI(v1, jwt, s.opts.CourseSvc, s.opts.CertificateSvc)
	registerEnrollAPI(v1, jwt, s.opts.EnrollSvc)
	registerQuizAPI(v1, jwt, s.opts.QuizSvc)
	registerAssignmentAPI(v1, jwt, s.opts.AssignmentSvc)
	registerNotificationAPI(v1, jwt, s.opts.NotificationSvc)

	ag := v1.Group("/admin", jwt, adminMiddleware())
	registerAdminAPI(
		ag,
		s.opts.UserSvc,
		s.opts.CourseSvc,
		s.opts.EnrollSvc,
		s.opts.QuizSvc,
		s.opts.AssignmentSvc,
		s.opts.NotificationSvc,
	)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
