package metrics

import (
	"github.com/telemetryworks/tracemetrics/pkg/application"
	"github.com/telemetryworks/tracemetrics/pkg/trace/aggregator"
	"github.com/telemetryworks/tracemetrics/pkg/trace/model"
	"go.uber.org/zap"
)

const (
	invocationSuffix = ".invocation"
	// requests and errors carry a "root." name prefix and plural suffix to
	// differentiate trace derived metrics from span derived metrics
	requestsSuffix  = ".requests"
	errorSuffix     = ".error"
	errorsSuffix    = ".errors"
	totalTimeSuffix = ".total_time.millis"
	durationSuffix  = ".duration.micros"

	operationNameTag = "operationName"
	rootTag          = "root"
)

// Emitter turns finished spans and their accumulated trace state into derived
// counters and histograms. Per-span metrics go through the internal reporter's
// registry; per-trace duration distributions bypass it and are sent directly
// at eviction time, stamped with the trace's own finish time.
type Emitter struct {
	reporter  *InternalReporter
	sender    Sender
	prefix    string
	source    string
	pointTags map[string]string
	logger    *zap.Logger
}

func NewEmitter(
	reporter *InternalReporter,
	sender Sender,
	appTags application.Tags,
	source string,
	logger *zap.Logger,
) *Emitter {
	return &Emitter{
		reporter:  reporter,
		sender:    sender,
		prefix:    appTags.MetricPrefix(),
		source:    source,
		pointTags: appTags.ToPointTags(),
		logger:    logger,
	}
}

// OnRootSpanStart counts a request against the trace's entry point.
func (e *Emitter) OnRootSpanStart(span *model.Span) {
	e.reporter.NewCounter(
		Sanitize(rootTag+"."+e.prefix+span.OperationName+requestsSuffix),
		map[string]string{rootTag: span.OperationName},
	).Inc(1)
}

// OnSpanFinish emits the per-span derived metrics and folds the span into the
// trace's state. The state may be nil when the trace was never registered or
// has already been evicted; per-span metrics are still emitted in that case.
func (e *Emitter) OnSpanFinish(span *model.Span, state *aggregator.TraceState) {
	if state != nil {
		state.SetStartAndFinishTime(span.StartTimeMicros, span.FinishTimeMicros())
	}
	pointTags := map[string]string{
		operationNameTag:            span.OperationName,
		application.ComponentTagKey: span.Component,
	}
	e.reporter.NewCounter(
		Sanitize(e.prefix+span.OperationName+invocationSuffix),
		pointTags,
	).Inc(1)
	if span.Error {
		e.reporter.NewCounter(
			Sanitize(e.prefix+span.OperationName+errorSuffix),
			pointTags,
		).Inc(1)
		// Only the first error observed for the trace is propagated to the
		// roots known at that moment.
		if state != nil && state.MarkError() {
			for _, root := range state.Roots() {
				e.reporter.NewCounter(
					Sanitize(rootTag+"."+e.prefix+root+errorsSuffix),
					map[string]string{rootTag: root},
				).Inc(1)
			}
		}
	}
	// Truncating conversion from micros to millis for the total time counter;
	// the histogram keeps microsecond resolution.
	e.reporter.NewCounter(
		Sanitize(e.prefix+span.OperationName+totalTimeSuffix),
		pointTags,
	).Inc(span.DurationMicros / 1000)
	e.reporter.NewHistogram(
		Sanitize(e.prefix+span.OperationName+durationSuffix),
		pointTags,
	).Update(span.DurationMicros)
}

// OnTraceEvicted reports one end-to-end duration centroid per distinct root
// operation name recorded for the evicted trace. Sender failures are logged
// and swallowed so that eviction never fails the cache operation that
// triggered it.
func (e *Emitter) OnTraceEvicted(traceID string, state *aggregator.TraceState) {
	startTimeMicros := state.StartTimeMicros()
	finishTimeMicros := state.FinishTimeMicros()
	for _, root := range state.Roots() {
		tags := make(map[string]string, len(e.pointTags)+1)
		for key, value := range e.pointTags {
			tags[key] = value
		}
		tags[rootTag] = root
		err := e.sender.SendDistribution(
			Sanitize(DerivedMetricPrefix+"."+rootTag+"."+e.prefix+root+durationSuffix),
			// A single centroid, stamped at the time the trace actually
			// finished.
			[]Centroid{{Value: float64(finishTimeMicros - startTimeMicros), Count: 1}},
			[]Granularity{GranularityMinute},
			finishTimeMicros/1000,
			e.source,
			tags,
		)
		if err != nil {
			e.logger.Warn("Failed to report trace duration for root",
				zap.String("root", root),
				zap.String("trace_id", traceID),
				zap.Error(err),
			)
		}
	}
}
