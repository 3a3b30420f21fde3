// Package telemetry publishes internal lifecycle events on an in-process
// watermill channel. Publishing never blocks or fails the request that
// triggered it.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/core"
	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const Topic = "flowstudio.telemetry"

const EventTypeMetadataKey = "event_type"

const WorkflowCreatedEvent = "workflow.created"

type WorkflowCreated struct {
	UserID     int64     `json:"user_id"`
	WorkflowID string    `json:"workflow_id"`
	NodeCount  int       `json:"node_count"`
	NodeTypes  []string  `json:"node_types"`
	Timestamp  time.Time `json:"timestamp"`
}

type InternalHooks struct {
	publisher message.Publisher
	clock     core.Clock
}

func NewInternalHooks(publisher message.Publisher, clock core.Clock) *InternalHooks {
	return &InternalHooks{publisher: publisher, clock: clock}
}

// NewChannel returns an in-memory pub/sub used both to publish and to consume events.
func NewChannel(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            256,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewSlogLogger(logger),
	)
}

// OnWorkflowCreated fires the workflow created event in the background. The
// request context may be cancelled once the response is written, so only its
// values are kept.
func (h *InternalHooks) OnWorkflowCreated(ctx context.Context, userID int64, wf *domain.Workflow) {
	event := WorkflowCreated{
		UserID:     userID,
		WorkflowID: strconv.FormatInt(wf.ID, 10),
		NodeCount:  len(wf.Nodes),
		NodeTypes:  make([]string, 0, len(wf.Nodes)),
		Timestamp:  h.clock.Now(),
	}
	for _, n := range wf.Nodes {
		event.NodeTypes = append(event.NodeTypes, n.Type)
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		if err := h.publish(bg, WorkflowCreatedEvent, event); err != nil {
			slog.WarnContext(bg, "Failed to publish telemetry event", "event", WorkflowCreatedEvent, "error", err)
		}
	}()
}

func (h *InternalHooks) publish(ctx context.Context, eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(EventTypeMetadataKey, eventType)
	msg.SetContext(ctx)
	return h.publisher.Publish(Topic, msg)
}
