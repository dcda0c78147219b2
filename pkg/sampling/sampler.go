package sampling

import (
	"fmt"
	"go.uber.org/zap"
)

// Sampler decides whether a span should be kept for detailed reporting. Early
// samplers can decide before the span's duration is known; late samplers need
// the final duration.
type Sampler interface {
	IsEarly() bool
	Sample(operationName string, traceID uint64, durationMicros int64) bool
}

// SamplerChain evaluates an ordered list of samplers. Sampling decisions are
// OR'd: the first matching sampler that says yes wins and no further samplers
// are consulted.
type SamplerChain struct {
	samplers []Sampler
	logger   *zap.Logger
}

func NewSamplerChain(samplers []Sampler, logger *zap.Logger) *SamplerChain {
	return &SamplerChain{
		samplers: samplers,
		logger:   logger,
	}
}

// ShouldSample reports whether the span should be kept. An empty chain keeps
// everything. A call with durationMicros == 0 is classified as early and only
// consults early samplers; otherwise only late samplers are consulted. If no
// matching sampler says yes the span is dropped.
func (sc *SamplerChain) ShouldSample(operationName string, traceID uint64, durationMicros int64) bool {
	if len(sc.samplers) == 0 {
		return true
	}
	earlySampling := durationMicros == 0
	for _, sampler := range sc.samplers {
		if earlySampling != sampler.IsEarly() {
			continue
		}
		if sampler.Sample(operationName, traceID, durationMicros) {
			sc.logVerdict(sampler, operationName, true)
			return true
		}
		sc.logVerdict(sampler, operationName, false)
	}
	return false
}

func (sc *SamplerChain) logVerdict(sampler Sampler, operationName string, sampled bool) {
	if sc.logger.Core().Enabled(zap.DebugLevel) {
		sc.logger.Debug("Sampler verdict",
			zap.String("sampler", fmt.Sprintf("%T", sampler)),
			zap.String("operation_name", operationName),
			zap.Bool("sampled", sampled),
		)
	}
}
