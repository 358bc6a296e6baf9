package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/hirezen/stageflow/pkg/channels/gochannel"
	"github.com/hirezen/stageflow/pkg/channels/kafka"
	"github.com/hirezen/stageflow/pkg/eventbus"
)

const serviceName = "stageflow"

// NewEventBus creates the event bus for provider. Provider "none" (or empty)
// returns a nil bus.
func NewEventBus(provider, brokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, kafka.ParseBrokers(brokers), serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create go channel pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider %q", provider)
	}
}
