package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/flightline/pkg/cmd"
	"github.com/dukex/flightline/pkg/fleet"
	"github.com/dukex/flightline/pkg/log"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/otelhelper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
)

const (
	defaultPort     = 9091
	shutdownTimeout = 10 * time.Second
)

func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:    "api",
		Aliases: []string{"run"},
		Usage:   "Start the flying operations API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a data directory)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Value:   "localhost:9092",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "session-store",
				Usage:   "Session store URL (memory, redis://)",
				Value:   "memory",
				Sources: cli.EnvVars("SESSION_STORE_URL"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Usage:   "How long an operator session keeps its selected aircraft",
				Value:   12 * time.Hour,
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.StringFlag{
				Name:    "personnel-file",
				Usage:   "JSON personnel directory; the personnel table is used when empty",
				Sources: cli.EnvVars("PERSONNEL_FILE"),
			},
			&cli.IntFlag{
				Name:    "pin-cost",
				Usage:   "bcrypt cost for PINs hashed at load time",
				Value:   10,
				Sources: cli.EnvVars("PIN_COST"),
			},
			&cli.IntFlag{
				Name:    "bfs-max-per-trade",
				Usage:   "People per trade on a BFS (0 for unlimited)",
				Value:   1,
				Sources: cli.EnvVars("BFS_MAX_PER_TRADE"),
			},
			&cli.BoolFlag{
				Name:    "bfs-supervisor",
				Usage:   "Require a supervisor sign-off on BFS",
				Value:   true,
				Sources: cli.EnvVars("BFS_SUPERVISOR_REQUIRED"),
			},
			&cli.IntFlag{
				Name:    "afs-max-per-trade",
				Usage:   "People per trade on an AFS (0 for unlimited)",
				Value:   0,
				Sources: cli.EnvVars("AFS_MAX_PER_TRADE"),
			},
			&cli.BoolFlag{
				Name:    "afs-final-approval",
				Usage:   "Require an FSI final approval on AFS",
				Sources: cli.EnvVars("AFS_FINAL_APPROVAL"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.FloatFlag{
				Name:    "otel-sample-ratio",
				Usage:   "Fraction of traces to sample (1 samples all)",
				Value:   1,
				Sources: cli.EnvVars("OTEL_SAMPLE_RATIO"),
			},
			logLevelFlag(),
			logFormatFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing flightline API")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			directory, err := cmd.NewDirectory(logger, command.String("personnel-file"), persistence, command.Int("pin-cost"))
			if err != nil {
				return err
			}

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			sessions, err := cmd.NewSessionStore(ctx, command.String("session-store"), command.Duration("session-ttl"))
			if err != nil {
				return err
			}

			defer func() {
				if err := sessions.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close session store", "error", err)
				}
			}()

			if err := fleet.NewUpdater(logger, persistence.AircraftRepository()).Register(eventBus); err != nil {
				return err
			}

			if err := eventBus.Subscribe(ctx); err != nil {
				return fmt.Errorf("failed to subscribe to workflow events: %w", err)
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			api := NewAPI(logger, persistence, directory, eventBus, sessions, registry)
			api.bfsVariant, api.afsVariant = variants(command)

			if command.Bool("otel-enabled") {
				tracer, shutdown, err := otelhelper.NewTracer(ctx, otelhelper.TracerConfig{
					ServiceName: "flightline",
					SampleRatio: command.Float("otel-sample-ratio"),
				})
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.Error("Failed to shutdown tracer provider", "error", err)
					}
				}()

				api.tracer = tracer
			}

			return api.Start(ctx, command.Int("port"))
		},
	}
}

// variants builds the servicing configuration from the defaults and the variant flags.
func variants(command *cli.Command) (models.Variant, models.Variant) {
	bfs := models.DefaultBFSVariant()
	bfs.MaxPerTrade = command.Int("bfs-max-per-trade")
	bfs.SupervisorRequired = command.Bool("bfs-supervisor")

	afs := models.DefaultAFSVariant()
	afs.MaxPerTrade = command.Int("afs-max-per-trade")
	afs.FinalApproval = command.Bool("afs-final-approval")

	return bfs, afs
}
