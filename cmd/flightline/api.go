package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/flightline/pkg/eventbus"
	"github.com/dukex/flightline/pkg/maintenance"
	"github.com/dukex/flightline/pkg/metrics"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/persistence"
	"github.com/dukex/flightline/pkg/personnel"
	"github.com/dukex/flightline/pkg/session"
	"github.com/dukex/flightline/pkg/signoff"
	"github.com/dukex/flightline/pkg/web"
	"github.com/dukex/flightline/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	directory   personnel.Directory
	eventBus    eventbus.EventPublisher
	sessions    session.Store
	registry    *prometheus.Registry
	validate    *validator.Validate
	tracer      trace.Tracer
	bfsVariant  models.Variant
	afsVariant  models.Variant
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	directory personnel.Directory,
	eventBus eventbus.EventPublisher,
	sessions session.Store,
	registry *prometheus.Registry,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		directory:   directory,
		eventBus:    eventBus,
		sessions:    sessions,
		registry:    registry,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		bfsVariant:  models.DefaultBFSVariant(),
		afsVariant:  models.DefaultAFSVariant(),
	}
}

func (a *API) App() *fiber.App {
	m := metrics.New(a.registry)
	verifier := signoff.NewVerifier(a.logger, signoff.WithMetrics(m))

	controllerOpts := []workflow.Option{
		workflow.WithVariants(a.bfsVariant, a.afsVariant),
		workflow.WithPublisher(a.eventBus),
		workflow.WithMetrics(m),
	}
	if a.tracer != nil {
		controllerOpts = append(controllerOpts, workflow.WithTracer(a.tracer))
	}

	controller := workflow.NewController(a.logger, a.persistence, a.directory, verifier, controllerOpts...)
	jobCards := maintenance.NewService(a.logger, a.persistence, a.directory, verifier, maintenance.WithPublisher(a.eventBus))

	handlers := web.NewAPIHandlers(a.logger, controller, jobCards, a.persistence, a.sessions, a.validate)

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", web.SessionHeader},
	}))
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))
	app.Use(m.Middleware())

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			return a.persistence.HealthCheck(c.Context()) == nil
		},
	}))
	app.Get("/metrics", metrics.Handler(a.registry))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("flightline API")
	})

	handlers.Register(app)

	return app
}

// Start serves the API until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		a.logger.Info("Shutting down API")

		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			a.logger.Error("Failed to shutdown API", "error", err)
		}
	}()

	return app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{
		DisableStartupMessage: true,
	})
}
