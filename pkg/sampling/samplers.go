package sampling

const rateModuloFactor = 10000

// ConstantSampler keeps or drops every span unconditionally.
type ConstantSampler struct {
	Decision bool
}

func NewConstantSampler(decision bool) *ConstantSampler {
	return &ConstantSampler{Decision: decision}
}

func (cs *ConstantSampler) IsEarly() bool {
	return true
}

func (cs *ConstantSampler) Sample(string, uint64, int64) bool {
	return cs.Decision
}

// RateSampler keeps a deterministic fraction of traces based on the trace id,
// so every span of a trace gets the same verdict without coordination.
type RateSampler struct {
	boundary uint64
}

// NewRateSampler accepts a sampling rate between 0.0 and 1.0.
func NewRateSampler(rate float64) *RateSampler {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	return &RateSampler{boundary: uint64(rate * rateModuloFactor)}
}

func (rs *RateSampler) IsEarly() bool {
	return true
}

func (rs *RateSampler) Sample(_ string, traceID uint64, _ int64) bool {
	return traceID%rateModuloFactor < rs.boundary
}

// DurationSampler keeps spans that ran longer than a threshold. It is a late
// sampler: the decision needs the span's final duration.
type DurationSampler struct {
	thresholdMicros int64
}

func NewDurationSampler(thresholdMicros int64) *DurationSampler {
	return &DurationSampler{thresholdMicros: thresholdMicros}
}

func (ds *DurationSampler) IsEarly() bool {
	return false
}

func (ds *DurationSampler) Sample(_ string, _ uint64, durationMicros int64) bool {
	return durationMicros > ds.thresholdMicros
}
