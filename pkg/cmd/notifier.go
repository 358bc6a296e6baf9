package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hirezen/stageflow/pkg/eventbus"
	"github.com/hirezen/stageflow/pkg/notification"
)

var (
	ErrNotifierURLRequired = errors.New("notifier url is required for the http notifier")
	ErrNotifierBusRequired = errors.New("an event bus is required for the eventbus notifier")
)

// NewDispatcher creates the notification dispatcher for kind. Kind "none"
// returns a nil dispatcher, which leaves every notification not_requested.
func NewDispatcher(kind, url string, publisher eventbus.EventPublisher, logger *slog.Logger) (notification.Dispatcher, error) {
	switch kind {
	case "http":
		if url == "" {
			return nil, ErrNotifierURLRequired
		}

		return notification.NewHTTPDispatcher(logger, url), nil
	case "eventbus":
		if publisher == nil {
			return nil, ErrNotifierBusRequired
		}

		return notification.NewEventBusDispatcher(publisher), nil
	case "", "log":
		return notification.NewLogDispatcher(logger), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported notifier %q", kind)
	}
}
