// Package kafka provides the Kafka backed publisher and subscriber for the event bus.
package kafka

import (
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/dukex/flightline/pkg/events"
)

var ErrNoBrokers = errors.New("no Kafka brokers configured")

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(raw string) []string {
	var brokers []string

	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return brokers
}

// Config names the brokers and the identity this process consumes under.
// Processes sharing a ConsumerGroup split the partitions between them.
type Config struct {
	Brokers       []string
	ClientID      string
	ConsumerGroup string
}

// CreateChannel connects a publisher and a subscriber. A new consumer group starts from the
// oldest retained offset so no fleet update is skipped on first deploy.
func CreateChannel(logger watermill.LoggerAdapter, cfg Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	consumer := kafka.DefaultSaramaSubscriberConfig()
	consumer.ClientID = cfg.ClientID
	consumer.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.Brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: consumer,
		ConsumerGroup:         cfg.ConsumerGroup,
		OTELEnabled:           true,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create subscriber: %w", err)
	}

	producer := kafka.DefaultSaramaSyncPublisherConfig()
	producer.ClientID = cfg.ClientID
	producer.Producer.RequiredAcks = sarama.WaitForAll

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:               cfg.Brokers,
		Marshaler:             kafka.NewWithPartitioningMarshaler(partitionKey),
		OverwriteSaramaConfig: producer,
		OTELEnabled:           true,
	}, logger)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	return publisher, subscriber, nil
}

// partitionKey keeps every event of one aircraft on the same partition.
func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(events.EventMetadataKey), nil
}
