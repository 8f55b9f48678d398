package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flightline/pkg/channels/gochannel"
	"github.com/dukex/flightline/pkg/channels/kafka"
	"github.com/dukex/flightline/pkg/eventbus"
)

// NewEventBus creates the workflow event bus. gochannel keeps events in process;
// kafka publishes them to the brokers listed in kafkaBrokers.
func NewEventBus(provider, kafkaBrokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub := gochannel.CreateChannel(wmLogger)

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, kafka.Config{
			Brokers:       kafka.ParseBrokers(kafkaBrokers),
			ClientID:      "flightline",
			ConsumerGroup: "cg-flightline",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
