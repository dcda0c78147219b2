package metrics

import (
	"sync"
)

type capturedMetric struct {
	name            string
	value           float64
	timestampMillis int64
	source          string
	tags            map[string]string
}

type capturedDistribution struct {
	name            string
	centroids       []Centroid
	granularities   []Granularity
	timestampMillis int64
	source          string
	tags            map[string]string
}

// captureSender records everything sent through it, optionally failing every
// call to exercise the swallow-and-log paths.
type captureSender struct {
	mu              sync.Mutex
	metrics         []capturedMetric
	distributions   []capturedDistribution
	metricErr       error
	distributionErr error
}

func (cs *captureSender) SendMetric(
	name string,
	value float64,
	timestampMillis int64,
	source string,
	tags map[string]string,
) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.metricErr != nil {
		return cs.metricErr
	}
	cs.metrics = append(cs.metrics, capturedMetric{
		name:            name,
		value:           value,
		timestampMillis: timestampMillis,
		source:          source,
		tags:            tags,
	})
	return nil
}

func (cs *captureSender) SendDistribution(
	name string,
	centroids []Centroid,
	granularities []Granularity,
	timestampMillis int64,
	source string,
	tags map[string]string,
) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.distributionErr != nil {
		return cs.distributionErr
	}
	cs.distributions = append(cs.distributions, capturedDistribution{
		name:            name,
		centroids:       centroids,
		granularities:   granularities,
		timestampMillis: timestampMillis,
		source:          source,
		tags:            tags,
	})
	return nil
}

func (cs *captureSender) Close() error {
	return nil
}

func (cs *captureSender) capturedMetrics() []capturedMetric {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	metrics := make([]capturedMetric, len(cs.metrics))
	copy(metrics, cs.metrics)
	return metrics
}

func (cs *captureSender) capturedDistributions() []capturedDistribution {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	distributions := make([]capturedDistribution, len(cs.distributions))
	copy(distributions, cs.distributions)
	return distributions
}
