// Package web is the HTTP and WebSocket edge of the chat engine.
package web

import (
	"context"
	"log/slog"
	"time"

	"pairchat/auth"
	"pairchat/observability"
	"pairchat/runtime"
	"pairchat/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	Address              string
	ConnectionBufferSize int
	WriteTimeout         time.Duration
	LoginTimeout         time.Duration
	CorsAllowedOrigins   string
}

type Server struct {
	app     *fiber.App
	engine  *runtime.Engine
	auth    services.IAuthService
	chat    services.IChatService
	tokens  auth.TokenIssuer
	monitor *observability.Monitor
	log     *slog.Logger
	options Options

	// connections live as long as this context
	baseCtx    context.Context
	stopAccept context.CancelFunc
}

func NewServer(
	log *slog.Logger,
	engine *runtime.Engine,
	authService services.IAuthService,
	chatService services.IChatService,
	tokens auth.TokenIssuer,
	monitor *observability.Monitor,
	options Options,
) *Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		engine:     engine,
		auth:       authService,
		chat:       chatService,
		tokens:     tokens,
		monitor:    monitor,
		log:        log,
		options:    options,
		baseCtx:    baseCtx,
		stopAccept: cancel,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})
	s.app.Use(recover.New())
	s.app.Use(loggerMiddleware(log))
	s.app.Use(cors.New(cors.Config{AllowOrigins: options.CorsAllowedOrigins}))
	s.setupRoutes()
	return s
}

// App exposes the fiber application, mostly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is done, then closes every live connection.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", "address", s.options.Address)
		errCh <- s.app.Listen(s.options.Address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	s.stopAccept()
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return c.Status(code).JSON(ErrorResponse{Error: "server_error", Message: message})
}

func loggerMiddleware(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debug("HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}
