package server

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"github.com/telemetryworks/tracemetrics/pkg/bus"
	"github.com/telemetryworks/tracemetrics/pkg/trace/model"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"go.opentelemetry.io/proto/otlp/trace/v1"
	"go.uber.org/zap"
)

const unknownServiceName = "unknown_service"

// TraceServiceServerImpl receives OTLP span batches and publishes each
// finished span on the event bus for the derived-metrics pipeline.
type TraceServiceServerImpl struct {
	protoTrace.UnimplementedTraceServiceServer
	logger  *zap.Logger
	spanBus bus.TraceEventBus[model.Span]
}

func NewTraceServiceServerImpl(
	logger *zap.Logger,
	spanBus bus.TraceEventBus[model.Span],
) TraceServiceServerImpl {
	logger.Info("Creating new TraceServiceServerImpl")
	return TraceServiceServerImpl{
		logger:  logger,
		spanBus: spanBus,
	}
}

func (tss TraceServiceServerImpl) Export(
	ctx context.Context,
	req *protoTrace.ExportTraceServiceRequest,
) (*protoTrace.ExportTraceServiceResponse, error) {
	for _, resourceSpan := range req.ResourceSpans {
		serviceName := getServiceName(resourceSpan)
		if serviceName == unknownServiceName {
			tss.logger.Warn("Service name not found in resource span")
		}

		for _, typedSpan := range getTypedSpans(resourceSpan, serviceName) {
			err := tss.spanBus.Publish(bus.SpanFinishedTopic, typedSpan)
			if err != nil {
				tss.logger.Error("Failed to publish finished span", zap.Error(err))
			}
		}
	}

	return &protoTrace.ExportTraceServiceResponse{}, nil
}

func getServiceName(resourceSpan *v1.ResourceSpans) string {
	var serviceName = unknownServiceName
	for _, attr := range resourceSpan.Resource.Attributes {
		if attr.Key == "service.name" {
			serviceName = attr.Value.GetStringValue()
		}
	}
	return serviceName
}

func getTypedSpans(resourceSpan *v1.ResourceSpans, serviceName string) []model.Span {
	var typedSpans []model.Span
	for _, libSpan := range resourceSpan.ScopeSpans {
		for _, span := range libSpan.Spans {
			typedSpans = append(typedSpans, getTypedSpan(span, serviceName))
		}
	}
	return typedSpans
}

func getTypedSpan(span *v1.Span, serviceName string) model.Span {
	traceId := hex.EncodeToString(span.TraceId)
	spanId := hex.EncodeToString(span.SpanId)
	attributes := getAttributes(span)

	var parents []model.SpanReference
	if len(span.ParentSpanId) > 0 {
		parents = []model.SpanReference{
			{
				TraceID: traceId,
				SpanID:  hex.EncodeToString(span.ParentSpanId),
			},
		}
	}

	var follows []model.SpanReference
	for _, link := range span.Links {
		follows = append(follows, model.SpanReference{
			TraceID: hex.EncodeToString(link.TraceId),
			SpanID:  hex.EncodeToString(link.SpanId),
		})
	}

	startTimeMicros := int64(span.StartTimeUnixNano / 1000)
	durationMicros := int64((span.EndTimeUnixNano - span.StartTimeUnixNano) / 1000)

	return model.Span{
		TraceID:         traceId,
		TraceIDNum:      getTraceIDNum(span.TraceId),
		SpanID:          spanId,
		ServiceName:     serviceName,
		OperationName:   span.Name,
		Parents:         parents,
		Follows:         follows,
		StartTimeMicros: startTimeMicros,
		DurationMicros:  durationMicros,
		Error:           span.Status != nil && span.Status.Code == v1.Status_STATUS_CODE_ERROR,
		Component:       attributes["component"],
		Attributes:      attributes,
	}
}

// getTraceIDNum folds the low 8 bytes of the 16 byte trace id into the
// numeric form used by rate samplers.
func getTraceIDNum(traceId []byte) uint64 {
	if len(traceId) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(traceId[len(traceId)-8:])
}

func getAttributes(span *v1.Span) map[string]string {
	attributes := make(map[string]string)
	for _, attribute := range span.Attributes {
		attributes[attribute.Key] = attribute.Value.GetStringValue()
	}
	return attributes
}
