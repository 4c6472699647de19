package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	stan "github.com/nats-io/stan.go"
)

// WatermillEventBus satisfies EventBus using Watermill.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

// NewWatermillInMemBus returns a Watermill-based, in-memory bus.
func NewWatermillInMemBus() *WatermillEventBus {
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 100}, NewZapLoggerAdapter())
	return &WatermillEventBus{publisher: ps, subscriber: ps}
}

// NewWatermillNATSBus returns a bus backed by NATS streaming.
func NewWatermillNATSBus(clusterID, clientID, url string) (*WatermillEventBus, error) {
	if clusterID == "" || clientID == "" || url == "" {
		return nil, fmt.Errorf("NATS bus requires cluster id, client id and url")
	}
	logger := NewZapLoggerAdapter()
	stanOpts := []stan.Option{stan.NatsURL(url)}
	pub, err := nats.NewStreamingPublisher(nats.StreamingPublisherConfig{
		ClusterID:   clusterID,
		ClientID:    clientID + "-pub",
		StanOptions: stanOpts,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	sub, err := nats.NewStreamingSubscriber(nats.StreamingSubscriberConfig{
		ClusterID:      clusterID,
		ClientID:       clientID + "-sub",
		StanOptions:    stanOpts,
		CloseTimeout:   30 * time.Second,
		AckWaitTimeout: 30 * time.Second,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	return &WatermillEventBus{publisher: pub, subscriber: sub}, nil
}

// Publish sends payload on topic. Bytes and strings go out as-is; anything
// else is JSON encoded.
func (b *WatermillEventBus) Publish(topic string, payload any) error {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %T payload: %w", payload, err)
		}
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	return b.publisher.Publish(topic, msg)
}

// Subscribe delivers every message on topic to handler until ctx is done.
// JSON objects arrive as map[string]any, everything else as a string.
func (b *WatermillEventBus) Subscribe(ctx context.Context, topic string, handler func(payload any)) error {
	ch, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	go func() {
		for msg := range ch {
			handler(decodePayload(msg.Payload))
			msg.Ack()
		}
	}()
	return nil
}

func (b *WatermillEventBus) Close() error {
	pubErr := b.publisher.Close()
	subErr := b.subscriber.Close()
	if pubErr != nil {
		return pubErr
	}
	return subErr
}

func decodePayload(data []byte) any {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err == nil && m != nil {
		return m
	}
	return string(data)
}
