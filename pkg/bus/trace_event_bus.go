package bus

import (
	"encoding/json"
	"fmt"
	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

// SpanFinishedTopic carries every finished span from the ingest surface to
// the processing pipeline.
const SpanFinishedTopic = "trace.span.finished"

// TraceEventBus decouples the ingest surface from the processing pipeline.
// Payloads cross the bus as JSON so subscribers never share mutable state
// with publishers.
type TraceEventBus[EventType any] interface {
	Subscribe(topic string, handler func(event EventType) error, transactional bool) error
	Publish(topic string, event EventType) error
}

type TraceEventBusImpl[EventType any] struct {
	eventBus EventBus.Bus
	logger   *zap.Logger
}

func NewTraceEventBus[EventType any](
	eventBus EventBus.Bus,
	logger *zap.Logger,
) TraceEventBus[EventType] {
	return &TraceEventBusImpl[EventType]{
		eventBus: eventBus,
		logger:   logger,
	}
}

func (tb *TraceEventBusImpl[EventType]) Subscribe(
	topic string,
	handler func(event EventType) error,
	transactional bool,
) error {
	err := tb.eventBus.SubscribeAsync(
		topic,
		func(arg string) {
			var event EventType
			err := json.Unmarshal([]byte(arg), &event)
			if err != nil {
				tb.logger.Error("Failed to unmarshal event during subscription of topic",
					zap.String("topic", topic),
					zap.Error(err),
				)
				return
			}
			err = handler(event)
			if err != nil {
				tb.logger.Error("Failed to handle event during subscription of topic",
					zap.String("topic", topic),
					zap.Error(err),
				)
			}
		},
		transactional,
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}
	return nil
}

func (tb *TraceEventBusImpl[EventType]) Publish(
	topic string,
	event EventType,
) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event during publishing of topic %s: %w", topic, err)
	}
	tb.eventBus.Publish(topic, string(eventBytes))
	return nil
}
