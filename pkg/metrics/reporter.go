package metrics

import (
	"go.uber.org/zap"
	"sync"
	"time"
)

// DerivedMetricPrefix namespaces every metric derived from tracing spans to
// differentiate them from metrics reported by the application itself.
const DerivedMetricPrefix = "tracing.derived"

const DefaultReportingInterval = time.Minute

// InternalReporter owns the registry of derived counters and histograms and
// periodically flushes it to the configured Sender. Every reported name is
// prefixed with DerivedMetricPrefix and every point carries the reporter's
// point tags in addition to the metric's own tags.
type InternalReporter struct {
	registry  *Registry
	sender    Sender
	source    string
	pointTags map[string]string
	interval  time.Duration
	logger    *zap.Logger
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewInternalReporter(
	sender Sender,
	source string,
	pointTags map[string]string,
	interval time.Duration,
	logger *zap.Logger,
) *InternalReporter {
	if interval <= 0 {
		interval = DefaultReportingInterval
	}
	return &InternalReporter{
		registry:  NewRegistry(),
		sender:    sender,
		source:    source,
		pointTags: pointTags,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// NewCounter returns the shared counter handle for the given name and tags,
// creating it on first use.
func (ir *InternalReporter) NewCounter(name string, tags map[string]string) *Counter {
	return ir.registry.NewCounter(name, tags)
}

// NewHistogram returns the shared histogram handle for the given name and
// tags, creating it on first use.
func (ir *InternalReporter) NewHistogram(name string, tags map[string]string) *Histogram {
	return ir.registry.NewHistogram(name, tags)
}

// Start launches the periodic flush loop.
func (ir *InternalReporter) Start() {
	ir.startOnce.Do(func() {
		ir.wg.Add(1)
		go func() {
			defer ir.wg.Done()
			ticker := time.NewTicker(ir.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					ir.Flush()
				case <-ir.done:
					return
				}
			}
		}()
	})
}

// Stop halts the flush loop after one final flush of pending data.
func (ir *InternalReporter) Stop() {
	ir.stopOnce.Do(func() {
		close(ir.done)
	})
	ir.wg.Wait()
	ir.Flush()
}

// Flush reports the current value of every counter and drains every histogram
// into a minute-granularity distribution. Sender failures are logged and do
// not abort the remainder of the flush.
func (ir *InternalReporter) Flush() {
	timestampMillis := time.Now().UnixMilli()
	for _, entry := range ir.registry.snapshotCounters() {
		err := ir.sender.SendMetric(
			DerivedMetricPrefix+"."+entry.name,
			float64(entry.counter.Count()),
			timestampMillis,
			ir.source,
			ir.mergeTags(entry.tags),
		)
		if err != nil {
			ir.logger.Warn("Failed to report counter",
				zap.String("name", entry.name),
				zap.Error(err),
			)
		}
	}
	for _, entry := range ir.registry.snapshotHistograms() {
		centroids := entry.histogram.Drain()
		if len(centroids) == 0 {
			continue
		}
		err := ir.sender.SendDistribution(
			DerivedMetricPrefix+"."+entry.name,
			centroids,
			[]Granularity{GranularityMinute},
			timestampMillis,
			ir.source,
			ir.mergeTags(entry.tags),
		)
		if err != nil {
			ir.logger.Warn("Failed to report histogram",
				zap.String("name", entry.name),
				zap.Error(err),
			)
		}
	}
}

func (ir *InternalReporter) mergeTags(tags map[string]string) map[string]string {
	merged := make(map[string]string, len(ir.pointTags)+len(tags))
	for key, value := range ir.pointTags {
		merged[key] = value
	}
	for key, value := range tags {
		merged[key] = value
	}
	return merged
}
