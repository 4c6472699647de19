// Package event carries flow lifecycle notifications (parsed scripts, session
// state changes) over a Watermill publisher/subscriber pair.
package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
)

type EventBus interface {
	Publish(topic string, payload any) error
	Subscribe(ctx context.Context, topic string, handler func(payload any)) error
	Close() error
}

// FlowParsed is published on constants.TopicFlowParsed after a script has
// been turned into a graph.
type FlowParsed struct {
	RequestID  string `json:"request_id,omitempty"`
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
	Positioned bool   `json:"positioned"`
}

// SessionState is published on constants.TopicSessionState for every session
// transition.
type SessionState struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
	Nodes   int    `json:"nodes"`
}

// NewInProcEventBus returns a new in-memory event bus.
func NewInProcEventBus() *WatermillEventBus {
	return NewWatermillInMemBus()
}

// NewEventBusFromConfig returns an EventBus for cfg. Supported drivers are
// memory (default) and nats, which needs a url.
func NewEventBusFromConfig(cfg *config.EventConfig) (EventBus, error) {
	if cfg == nil || cfg.Driver == "" || cfg.Driver == constants.EventDriverMemory {
		return NewWatermillInMemBus(), nil
	}
	switch cfg.Driver {
	case constants.EventDriverNATS:
		if cfg.URL == "" {
			return nil, fmt.Errorf("NATS driver requires url")
		}
		// Client ids must be unique per connection on a streaming cluster.
		clientID := constants.DefaultServiceName + "-" + uuid.NewString()
		return NewWatermillNATSBus(constants.DefaultServiceName, clientID, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported event bus driver: %s", cfg.Driver)
	}
}
