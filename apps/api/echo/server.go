package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

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
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc         *user.Service
		StudentSvc      *student.Service
		PaymentSvc      *payment.Service
		HomeworkSvc     *homework.Service
		AttendanceSvc   *attendance.Service
		LessonSvc       *lesson.Service
		MaterialSvc     *material.Service
		SubstitutionSvc *substitution.Service
		NotificationSvc *notification.Service
		DashboardSvc    *dashboard.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerUserAPI(g, jwt, s.auth, s.deps)
	registerStudentAPI(g, jwt, s.deps)
	registerClassAPI(g, jwt, s.deps)
	registerPaymentAPI(g, jwt, s.deps)
	registerHomeworkAPI(g, jwt, s.deps)
	registerAttendanceAPI(g, jwt, s.deps)
	registerLessonAPI(g, jwt, s.deps)
	registerMaterialAPI(g, jwt, s.deps)
	registerSubstitutionAPI(g, jwt, s.deps)
	registerNotificationAPI(g, jwt, s.deps)
	registerDashboardAPI(g, jwt, s.deps)
}

// Start listens on the configured host. Listening errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- errors.Wrap(err, "starting server")
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the owner of the Server to shut it down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// GetUserClaims returns the JWT claims of usr.
func (s *Server) GetUserClaims(usr user.User, origIat ...int64) *Claims {
	return s.auth.userClaims(usr, origIat...)
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (s *Server) GenerateToken(claims *Claims) (string, error) {
	return s.auth.generateToken(claims)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
