package echoapi

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/ficct/horarios/core"
	"github.com/ficct/horarios/core/schedule"
	"github.com/ficct/horarios/core/user"
)

// Server is the simulated scheduling backend.
type Server struct {
	*echo.Echo
	conf     *core.Config
	auth     *authenticator
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(
	conf *core.Config,
	logger core.Logger,
	usrSvc *user.Service,
	repo schedule.Repository,
	validate *validator.Validate,
	translator ut.Translator,
) *Server {
	s := &Server{
		Echo:     echo.New(),
		conf:     conf,
		auth:     newAuthenticator(conf, usrSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup(logger, repo, validate, translator)
	return s
}

func (s *Server) setup(
	logger core.Logger,
	repo schedule.Repository,
	validate *validator.Validate,
	translator ut.Translator,
) {
	s.HideBanner = true
	s.Debug = s.conf.Debug

	s.Pre(middleware.RemoveTrailingSlash())
	s.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	if !s.conf.TestMode {
		s.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.conf.Server.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.HTTPErrorHandler = newAppHTTPErrorHandler(logger, translator, s.SignalShutdown)

	s.GET("/", home)

	api := s.Group("/api")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig)

	registerAuthAPI(api, jwt, s.auth, validate)
	registerScheduleAPI(api, []echo.MiddlewareFunc{jwt, s.auth.checkRevoked}, repo, validate)
}

// Start listens until the server is shut down. Listen errors are sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.Echo.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives SIGINT/SIGTERM, and SignalShutdown's requests.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Horarios API!")
}
