package pileapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-router"
)

// AppOptions configures the fiber application
type AppOptions struct {
	Logger       Logger
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  string

	// Middleware runs before every route, after recovery and CORS
	Middleware []fiber.Handler

	MetricsPath    string
	MetricsHandler fiber.Handler
}

// NewServer builds the HTTP server. The go-router adapter owns the fiber app
// and its lifecycle. Operational routes are go-router handlers; routes behind
// the bearer middleware stay fiber handlers since they read the principal from
// fiber locals.
func NewServer(ctrl *AuthController, opts AppOptions) router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		return newFiberApp(opts)
	})

	ctrl.RegisterOperationalRoutes(srv.Router())
	ctrl.RegisterRoutes(srv.WrappedRouter())

	return srv
}

// NewApp returns the fiber app built by NewServer
func NewApp(ctrl *AuthController, opts AppOptions) *fiber.App {
	return NewServer(ctrl, opts).WrappedRouter()
}

func newFiberApp(opts AppOptions) *fiber.App {
	logger := normalizeLogger(opts.Logger)

	app := fiber.New(fiber.Config{
		AppName:               "pile-api",
		DisableStartupMessage: true,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		IdleTimeout:           opts.IdleTimeout,
		ErrorHandler:          NewErrorHandler(logger),
	})

	app.Use(recover.New())

	origins := opts.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Use(AccessLogger(logger))

	for _, mw := range opts.Middleware {
		if mw != nil {
			app.Use(mw)
		}
	}

	if opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, opts.MetricsHandler)
	}

	return app
}
