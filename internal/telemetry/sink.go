package telemetry

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Sink drains telemetry events into the structured log.
type Sink struct {
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewSink(subscriber message.Subscriber, logger *slog.Logger) *Sink {
	return &Sink{subscriber: subscriber, logger: logger}
}

// Start consumes events until ctx is done or the subscriber is closed.
func (s *Sink) Start(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			s.logger.Info("telemetry",
				"event", msg.Metadata.Get(EventTypeMetadataKey),
				"id", msg.UUID,
				"payload", string(msg.Payload))
			msg.Ack()
		}
	}()
	return nil
}
