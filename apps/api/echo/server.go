package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/soko/core"
	"github.com/trezcool/soko/core/course"
	"github.com/trezcool/soko/core/progress"
	"github.com/trezcool/soko/core/purchase"
	"github.com/trezcool/soko/core/user"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		UserSvc     *user.Service
		CourseSvc   *course.Service
		PurchaseSvc *purchase.Service
		ProgressSvc *progress.Service

		Identity       core.IdentityService
		IdentityEvents user.EventParser
		PaymentEvents  purchase.EventParser
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	g := s.app.Group("/api")
	auth := sessionAuthMiddleware(s.opts.Identity)

	registerCourseAPI(g, s.opts.CourseSvc)
	registerUserAPI(g, auth, conf, s.opts.UserSvc, s.opts.CourseSvc, s.opts.PurchaseSvc, s.opts.ProgressSvc)
	registerEducatorAPI(g, auth, s.opts.Identity, s.opts.UserSvc, s.opts.CourseSvc, s.opts.PurchaseSvc)
	registerWebhookAPI(g, s.opts.UserSvc, s.opts.PurchaseSvc, s.opts.IdentityEvents, s.opts.PaymentEvents)
}

// Start runs the server until an interrupt or a fatal server error, then
// drains in-flight requests within the configured shutdown timeout.
func (s *server) Start() error {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Start(s.opts.Conf.Server.Address()) }()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server error")
	case sig := <-s.shutdown:
		s.opts.Logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.Conf.Server.ShutdownTimeout)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			_ = s.app.Close()
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Soko API!")
}
