package server

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"github.com/oarkflow/resetpass"
	"github.com/oarkflow/resetpass/errors"
	"github.com/oarkflow/resetpass/manage"
	"github.com/oarkflow/resetpass/metrics"
	"github.com/oarkflow/resetpass/models"
	"github.com/oarkflow/resetpass/server/views"
)

// NewServer create the reset page server
func NewServer(cfg *Config, manager *manage.Manager, log *zap.Logger) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Config:  cfg,
		Manager: manager,
		log:     log,
	}
}

// Server serves the reset password page
type Server struct {
	Config  *Config
	Manager *manage.Manager
	log     *zap.Logger
}

// App build the fiber application with views, middleware and routes
func (s *Server) App() *fiber.App {
	engine := html.NewFileSystem(http.FS(views.FS), ".html")
	app := fiber.New(fiber.Config{
		Views:                 engine,
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(requestLogger(s.log))
	app.Use(securityHeaders)

	app.Get("/healthz", s.HandleHealth)
	if s.Config.MetricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	app.Get("/", s.HandleResetPage)
	post := []fiber.Handler{}
	if s.Config.RateLimit > 0 {
		post = append(post, limiter.New(limiter.Config{
			Max:        s.Config.RateLimit,
			Expiration: s.Config.RateWindow,
			LimitReached: func(ctx *fiber.Ctx) error {
				return fiber.ErrTooManyRequests
			},
		}))
	}
	post = append(post, s.HandleResetForm)
	app.Post("/", post...)
	return app
}

// HandleResetPage open the reset page for the link in the query string
func (s *Server) HandleResetPage(ctx *fiber.Ctx) error {
	link, err := ParseRequest[models.ResetLink](ctx)
	if err != nil {
		return fiber.ErrBadRequest
	}
	attempt, err := s.Manager.Mount(ctx.UserContext(), &link)
	return s.render(ctx, attempt, err)
}

// HandleResetForm handle a post of the reset form: a visibility toggle or
// a submission
func (s *Server) HandleResetForm(ctx *fiber.Ctx) error {
	form, err := ParseRequest[models.ResetForm](ctx)
	if err != nil {
		return fiber.ErrBadRequest
	}

	var attempt *resetpass.Attempt
	switch form.Action {
	case models.ActionToggleNew:
		attempt, err = s.Manager.Toggle(ctx.UserContext(), &form, resetpass.FieldNew)
	case models.ActionToggleConfirm:
		attempt, err = s.Manager.Toggle(ctx.UserContext(), &form, resetpass.FieldConfirm)
	case models.ActionSubmit, "":
		attempt, err = s.Manager.Submit(ctx.UserContext(), &form)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown form action")
	}
	return s.render(ctx, attempt, err)
}

// HandleHealth liveness probe
func (s *Server) HandleHealth(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.Path()),
			zap.Error(err),
		)
	}
	message := http.StatusText(code)
	if fe != nil && code < fiber.StatusInternalServerError {
		message = fe.Message
	}
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return ctx.Status(code).SendString(message)
}
