package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"exchange-analytics-dashboard/internal/config"
	"exchange-analytics-dashboard/internal/controller"
	"exchange-analytics-dashboard/internal/logger"
	"exchange-analytics-dashboard/internal/metrics"
	"exchange-analytics-dashboard/internal/routes"
)

// Server wraps the Fiber application setup.
type Server struct {
	app *fiber.App
}

// NewServer configures routes and middleware.
func NewServer(appCfg *config.Config, dashboardController controller.DashboardController, m *metrics.Upstream, log *logger.Logger) *Server {
	fiberCfg := fiber.Config{
		DisableStartupMessage: true,
		Immutable:             true,
		ReadTimeout:           appCfg.RequestTimeout,
		WriteTimeout:          appCfg.RequestTimeout + 5*time.Second,
		ErrorHandler:          errorHandler(log),
	}
	app := fiber.New(fiberCfg)
	app.Use(recover.New(recover.Config{EnableStackTrace: appCfg.IsDev()}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(requestLogger(log))

	routes.Register(app, dashboardController, m.Handler())

	return &Server{app: app}
}

// Listen runs the server on provided addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for open requests until
// ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func requestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		ctx := log.WithRequestID(c.UserContext(), requestID(c))
		c.SetUserContext(ctx)

		err := c.Next()

		ctx = log.WithField(c.UserContext(), "method", c.Method())
		ctx = log.WithField(ctx, "path", c.Path())
		ctx = log.WithField(ctx, "status", c.Response().StatusCode())
		ctx = log.WithField(ctx, "duration_ms", time.Since(start).Milliseconds())
		log.Debug(ctx, "request handled")
		return err
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

func errorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error(c.UserContext(), "request failed", err)
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
