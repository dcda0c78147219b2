package service

import (
	"fmt"
	"github.com/asaskevich/EventBus"
	"github.com/telemetryworks/tracemetrics/pkg/bus"
	"github.com/telemetryworks/tracemetrics/pkg/metrics"
	"github.com/telemetryworks/tracemetrics/pkg/reporting"
	"github.com/telemetryworks/tracemetrics/pkg/sampling"
	"github.com/telemetryworks/tracemetrics/pkg/trace/aggregator"
	"github.com/telemetryworks/tracemetrics/pkg/trace/model"
	"go.uber.org/zap"
	"time"
)

const expirySweepInterval = 30 * time.Second

// SpanProcessorService is the per-span entry point of the derived-metrics
// pipeline. For every finished span it updates the owning trace's state,
// emits span-level counters and histograms, decides through the sampler chain
// whether the span is kept, and hands kept spans to the reporter.
//
// The emitter and aggregator are nil when no metrics sender is wired; span
// reporting still runs in that case, derived metrics are silently disabled.
type SpanProcessorService struct {
	samplerChain     *sampling.SamplerChain
	decisionCache    *sampling.DecisionCache
	emitter          *metrics.Emitter
	traceAggregator  *aggregator.TraceAggregator
	reporter         reporting.Reporter
	internalReporter *metrics.InternalReporter
	heartbeater      *metrics.Heartbeater
	logger           *zap.Logger
}

func NewSpanProcessorService(
	samplerChain *sampling.SamplerChain,
	decisionCache *sampling.DecisionCache,
	emitter *metrics.Emitter,
	traceAggregator *aggregator.TraceAggregator,
	reporter reporting.Reporter,
	internalReporter *metrics.InternalReporter,
	heartbeater *metrics.Heartbeater,
	logger *zap.Logger,
) *SpanProcessorService {
	return &SpanProcessorService{
		samplerChain:     samplerChain,
		decisionCache:    decisionCache,
		emitter:          emitter,
		traceAggregator:  traceAggregator,
		reporter:         reporter,
		internalReporter: internalReporter,
		heartbeater:      heartbeater,
		logger:           logger,
	}
}

// Start subscribes the processor to finished-span events and launches the
// periodic expiry sweep that reaps idle traces under light traffic. The
// returned cleanup stops the sweep.
func (sps *SpanProcessorService) Start(eventBus EventBus.Bus) (func(), error) {
	spanBus := bus.NewTraceEventBus[model.Span](eventBus, sps.logger)
	err := spanBus.Subscribe(
		bus.SpanFinishedTopic,
		func(span model.Span) error {
			sps.ProcessSpan(&span)
			return nil
		},
		true,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to finished span topic: %w", err)
	}

	if sps.internalReporter != nil {
		sps.internalReporter.Start()
	}
	if sps.heartbeater != nil {
		sps.heartbeater.Start()
	}

	ticker := time.NewTicker(expirySweepInterval)
	go func() {
		for range ticker.C {
			if sps.traceAggregator != nil {
				sps.traceAggregator.Expire()
			}
		}
	}()
	return ticker.Stop, nil
}

// ProcessSpan runs the full per-span pipeline: trace state bookkeeping,
// derived-metric emission, sampling decision and span reporting. Reporting
// failures are logged and never surface to the caller.
func (sps *SpanProcessorService) ProcessSpan(span *model.Span) {
	if sps.emitter != nil {
		if span.IsRoot() {
			sps.emitter.OnRootSpanStart(span)
			sps.traceAggregator.Get(span.TraceID).AddRoot(span.OperationName)
		}
		state := sps.traceAggregator.Lookup(span.TraceID)
		sps.emitter.OnSpanFinish(span, state)
	}
	if sps.shouldReport(span) {
		err := sps.reporter.Report(span)
		if err != nil {
			sps.logger.Error("Failed to report span",
				zap.String("trace_id", span.TraceID),
				zap.String("operation_name", span.OperationName),
				zap.Error(err),
			)
		}
	}
}

// shouldReport consults the per-trace decision cache before the sampler chain
// so every span of a trace follows the verdict already made for it.
func (sps *SpanProcessorService) shouldReport(span *model.Span) bool {
	if sps.decisionCache != nil {
		if keep, found := sps.decisionCache.Get(span.TraceID); found {
			return keep
		}
	}
	keep := sps.samplerChain.ShouldSample(span.OperationName, span.TraceIDNum, span.DurationMicros)
	if sps.decisionCache != nil {
		sps.decisionCache.Put(span.TraceID, keep)
	}
	return keep
}

// Close tears the pipeline down: the reporter is flushed and closed, the
// internal reporter performs a final flush, the heartbeater stops. Pending
// trace states in the aggregator are not drained; their duration
// distributions are lost on shutdown.
func (sps *SpanProcessorService) Close() error {
	err := sps.reporter.Close()
	if err != nil {
		sps.logger.Error("Failed to close span reporter", zap.Error(err))
	}
	if sps.internalReporter != nil {
		sps.internalReporter.Stop()
	}
	if sps.heartbeater != nil {
		sps.heartbeater.Close()
	}
	if sps.decisionCache != nil {
		sps.decisionCache.Close()
	}
	if err != nil {
		return fmt.Errorf("error closing span processor: %w", err)
	}
	return nil
}
