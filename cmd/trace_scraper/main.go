package main

import (
	"github.com/asaskevich/EventBus"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/telemetryworks/tracemetrics/pkg/application"
	"github.com/telemetryworks/tracemetrics/pkg/bus"
	"github.com/telemetryworks/tracemetrics/pkg/metrics"
	"github.com/telemetryworks/tracemetrics/pkg/reporting"
	"github.com/telemetryworks/tracemetrics/pkg/sampling"
	"github.com/telemetryworks/tracemetrics/pkg/trace/aggregator"
	"github.com/telemetryworks/tracemetrics/pkg/trace/model"
	traceServer "github.com/telemetryworks/tracemetrics/pkg/trace/server"
	traceService "github.com/telemetryworks/tracemetrics/pkg/trace/service"
	protoTrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip"
	"net"
	"os"
)

const source = "trace_scraper"

func main() {
	logger, err := zap.NewProduction()
	defer logger.Sync()

	appTags := application.Tags{
		Application: getEnvOrDefault("APP_NAME", "tracemetrics"),
		Service:     getEnvOrDefault("SERVICE_NAME", "scraper"),
		Cluster:     os.Getenv("CLUSTER_NAME"),
		Shard:       os.Getenv("SHARD_NAME"),
	}

	es, err := elasticsearch.NewDefaultClient()
	if err != nil {
		logger.Error("Failed to create elasticsearch client", zap.Error(err))
	}

	listener, err := net.Listen("tcp", ":4317")
	if err != nil {
		logger.Error("Failed to listen: %v", zap.Error(err))
	}

	sender := metrics.NewLogSender(logger)
	internalReporter := metrics.NewInternalReporter(
		sender,
		source,
		appTags.ToPointTags(),
		metrics.DefaultReportingInterval,
		logger,
	)
	emitter := metrics.NewEmitter(internalReporter, sender, appTags, source, logger)
	traceAggregator := aggregator.NewTraceAggregator(
		aggregator.Config{},
		emitter.OnTraceEvicted,
		logger,
	)
	heartbeater := metrics.NewHeartbeater(
		sender,
		appTags,
		[]string{"tracemetrics", "otlp", "go"},
		source,
		metrics.DefaultHeartbeatInterval,
		logger,
	)

	samplerChain := sampling.NewSamplerChain(
		[]sampling.Sampler{
			sampling.NewRateSampler(1.0),
			sampling.NewDurationSampler(0),
		},
		logger,
	)
	decisionCache, err := sampling.NewDecisionCache()
	if err != nil {
		logger.Fatal("Failed to create sampling decision cache", zap.Error(err))
	}

	spanReporter := reporting.NewCompositeReporter(
		reporting.NewElasticsearchReporter(es, reporting.SpanIndexName, logger),
	)

	spanProcessor := traceService.NewSpanProcessorService(
		samplerChain,
		decisionCache,
		emitter,
		traceAggregator,
		spanReporter,
		internalReporter,
		heartbeater,
		logger,
	)

	eventBus := EventBus.New()
	processorCleanup, err := spanProcessor.Start(eventBus)
	if err != nil {
		logger.Fatal("Failed to start span processor: %v", zap.Error(err))
	}
	defer processorCleanup()
	defer spanProcessor.Close()

	spanBus := bus.NewTraceEventBus[model.Span](eventBus, logger)
	srv := grpc.NewServer()
	traceServiceServer := traceServer.NewTraceServiceServerImpl(logger, spanBus)
	protoTrace.RegisterTraceServiceServer(srv, traceServiceServer)
	logger.Info("gRPC service started, listening for OpenTelemetry traces...")

	if err := srv.Serve(listener); err != nil {
		logger.Fatal("Failed to serve: %v", zap.Error(err))
	}
}

func getEnvOrDefault(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
