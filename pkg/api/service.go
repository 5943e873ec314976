package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethpandaops/buildhistory/pkg/api/generated"
	"github.com/ethpandaops/buildhistory/pkg/api/handlers"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/sirupsen/logrus"
)

// Service defines the API service interface
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

type service struct {
	app             *fiber.App
	server          *http.Server
	config          *Config
	builds          handlers.BuildService
	frontendHandler http.Handler
	log             logrus.FieldLogger
}

// NewService creates a new API and frontend service. frontendHandler may be
// nil.
func NewService(cfg *Config, buildService handlers.BuildService, frontendHandler http.Handler, log logrus.FieldLogger) Service {
	return &service{
		config:          cfg,
		builds:          buildService,
		frontendHandler: frontendHandler,
		log:             log.WithField("service", "api"),
	}
}

// Start initializes and starts the API server with frontend integration
func (s *service) Start(_ context.Context) error {
	if !s.config.Enabled {
		s.log.Info("API service is disabled")
		return nil
	}

	doc, err := generated.GetSwagger()
	if err != nil {
		return fmt.Errorf("failed to load OpenAPI document: %w", err)
	}

	s.app = newApp(doc, s.builds, s.frontendHandler, s.log)

	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           adaptor.FiberApp(s.app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.WithField("addr", s.config.Addr).Info("Starting API and frontend server")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Server failed to start")
		}
	}()

	return nil
}

// newApp builds the Fiber app serving /api/v1 with the frontend as fallback
func newApp(doc *openapi3.T, buildService handlers.BuildService, frontendHandler http.Handler, log logrus.FieldLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
		AppName:      "Build History API",
	})

	setupMiddleware(app)

	apiV1 := app.Group("/api/v1")

	apiV1.Get("/openapi.json", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(doc)
	})

	generated.RegisterHandlers(apiV1, handlers.NewServer(buildService, log))

	if frontendHandler != nil {
		app.Use(adaptor.HTTPHandler(frontendHandler))
	}

	return app
}

// Stop gracefully shuts down the API server
func (s *service) Stop() error {
	if s.server == nil {
		return nil
	}

	s.log.Info("Stopping API and frontend server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
