package metrics

import (
	"go.uber.org/zap"
)

// Granularity is the histogram aggregation interval understood by the metrics
// backend.
type Granularity string

const (
	GranularityMinute Granularity = "minute"
	GranularityHour   Granularity = "hour"
	GranularityDay    Granularity = "day"
)

// Centroid is a single weighted value of a distribution.
type Centroid struct {
	Value float64
	Count int
}

// Sender ships individual metric points and distributions to a metrics
// backend. Implementations are expected to be safe for concurrent use; they
// own the wire protocol, retries are explicitly not part of this contract.
type Sender interface {
	SendMetric(name string, value float64, timestampMillis int64, source string, tags map[string]string) error
	SendDistribution(
		name string,
		centroids []Centroid,
		granularities []Granularity,
		timestampMillis int64,
		source string,
		tags map[string]string,
	) error
	Close() error
}

// LogSender is a Sender that writes every point to the log instead of a
// backend. Useful for local runs and as a wiring default when no backend is
// configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (ls *LogSender) SendMetric(
	name string,
	value float64,
	timestampMillis int64,
	source string,
	tags map[string]string,
) error {
	ls.logger.Info("metric",
		zap.String("name", name),
		zap.Float64("value", value),
		zap.Int64("timestamp_millis", timestampMillis),
		zap.String("source", source),
		zap.Any("tags", tags),
	)
	return nil
}

func (ls *LogSender) SendDistribution(
	name string,
	centroids []Centroid,
	granularities []Granularity,
	timestampMillis int64,
	source string,
	tags map[string]string,
) error {
	ls.logger.Info("distribution",
		zap.String("name", name),
		zap.Any("centroids", centroids),
		zap.Any("granularities", granularities),
		zap.Int64("timestamp_millis", timestampMillis),
		zap.String("source", source),
		zap.Any("tags", tags),
	)
	return nil
}

func (ls *LogSender) Close() error {
	return nil
}
