package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/announcement"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/event"
	"github.com/trezcool/campus/core/lostfound"
	"github.com/trezcool/campus/core/poll"
	"github.com/trezcool/campus/core/skill"
	"github.com/trezcool/campus/core/timetable"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/services/realtime"
)

// Deps holds the services the API is built on.
type Deps struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	UserSvc         user.ServiceInterface
	AnnouncementSvc *announcement.Service
	LostFoundSvc    *lostfound.Service
	TimetableSvc    *timetable.Service
	ComplaintSvc    *complaint.Service
	PollSvc         *poll.Service
	FormSvc         *poll.FormService
	EventSvc        *event.Service
	SkillSvc        *skill.Service
	Hub             *realtime.Hub
}

type Server struct {
	deps     *Deps
	auth     *Auth
	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps *Deps) *Server {
	s := &Server{
		deps:     deps,
		auth:     NewAuth(deps.Conf),
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if !deps.Conf.TestMode {
		signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	g := s.app.Group("/api")
	authed := []echo.MiddlewareFunc{s.auth.Middleware(), userMiddleware(s.deps.UserSvc)}

	registerUserAPI(g, authed, s.auth, s.deps.UserSvc, s.deps.Validate)
	registerAnnouncementAPI(g.Group("/announcements", authed...), s.deps.AnnouncementSvc, s.deps.Validate)
	registerLostFoundAPI(g.Group("/lost-found", authed...), s.deps.LostFoundSvc, s.deps.Validate)
	registerTimetableAPI(g.Group("/timetable", authed...), s.deps.TimetableSvc, s.deps.Validate)
	registerComplaintAPI(g.Group("/complaints", authed...), s.deps.ComplaintSvc, s.deps.Validate)
	registerPollAPI(g.Group("/polls", authed...), s.deps.PollSvc, s.deps.Validate)
	registerFormAPI(g.Group("/forms", authed...), s.deps.FormSvc, s.deps.Validate)
	registerEventAPI(g.Group("/events", authed...), s.deps.EventSvc, s.deps.Validate)
	registerSkillAPI(g.Group("/courses", authed...), s.deps.SkillSvc, s.deps.Validate)

	// browsers cannot set headers on websocket handshakes
	registerRealtimeAPI(g.Group("/ws", s.auth.Middleware("query:token"), userMiddleware(s.deps.UserSvc)), s.deps.Hub)
}

// Start blocks until the server stops; errors other than a shutdown are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// Shutdown stops accepting requests, waits for the outstanding ones, then disconnects websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	if err := s.app.Shutdown(ctx); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "shutting down http server"))
	}
	if s.deps.Hub != nil {
		if err := s.deps.Hub.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "closing websocket hub"))
		}
	}
	return result.ErrorOrNil()
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
