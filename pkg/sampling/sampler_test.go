package sampling

import (
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"testing"
)

type stubSampler struct {
	early    bool
	decision bool
	calls    int
}

func (ss *stubSampler) IsEarly() bool {
	return ss.early
}

func (ss *stubSampler) Sample(string, uint64, int64) bool {
	ss.calls++
	return ss.decision
}

func TestSamplerChain_ShouldSample(t *testing.T) {
	logger := zap.NewNop()

	t.Run("Empty chain samples everything", func(t *testing.T) {
		chain := NewSamplerChain(nil, logger)
		assert.True(t, chain.ShouldSample("op", 1, 0))
		assert.True(t, chain.ShouldSample("op", 1, 1234))
	})

	t.Run("Early calls only consult early samplers", func(t *testing.T) {
		early := &stubSampler{early: true, decision: false}
		late := &stubSampler{early: false, decision: true}
		chain := NewSamplerChain([]Sampler{early, late}, logger)
		assert.False(t, chain.ShouldSample("op", 1, 0))
		assert.Equal(t, 1, early.calls)
		assert.Equal(t, 0, late.calls)
	})

	t.Run("Late calls only consult late samplers", func(t *testing.T) {
		early := &stubSampler{early: true, decision: false}
		late := &stubSampler{early: false, decision: true}
		chain := NewSamplerChain([]Sampler{early, late}, logger)
		assert.True(t, chain.ShouldSample("op", 1, 500))
		assert.Equal(t, 0, early.calls)
		assert.Equal(t, 1, late.calls)
	})

	t.Run("Short circuits on the first sampler that says yes", func(t *testing.T) {
		first := &stubSampler{early: true, decision: true}
		second := &stubSampler{early: true, decision: true}
		chain := NewSamplerChain([]Sampler{first, second}, logger)
		assert.True(t, chain.ShouldSample("op", 1, 0))
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 0, second.calls)
	})

	t.Run("Returns false when no sampler matches the classification", func(t *testing.T) {
		late := &stubSampler{early: false, decision: true}
		chain := NewSamplerChain([]Sampler{late}, logger)
		assert.False(t, chain.ShouldSample("op", 1, 0))
		assert.Equal(t, 0, late.calls)
	})

	t.Run("Decisions are OR'd across matching samplers", func(t *testing.T) {
		no := &stubSampler{early: true, decision: false}
		yes := &stubSampler{early: true, decision: true}
		chain := NewSamplerChain([]Sampler{no, yes}, logger)
		assert.True(t, chain.ShouldSample("op", 1, 0))
		assert.Equal(t, 1, no.calls)
		assert.Equal(t, 1, yes.calls)
	})
}

func TestConstantSampler(t *testing.T) {
	t.Run("Is early and returns its fixed decision", func(t *testing.T) {
		assert.True(t, NewConstantSampler(true).IsEarly())
		assert.True(t, NewConstantSampler(true).Sample("op", 42, 0))
		assert.False(t, NewConstantSampler(false).Sample("op", 42, 0))
	})
}

func TestRateSampler(t *testing.T) {
	t.Run("Rate of one keeps every trace", func(t *testing.T) {
		sampler := NewRateSampler(1.0)
		for traceID := uint64(0); traceID < 100; traceID++ {
			assert.True(t, sampler.Sample("op", traceID, 0))
		}
	})

	t.Run("Rate of zero keeps nothing", func(t *testing.T) {
		sampler := NewRateSampler(0.0)
		for traceID := uint64(0); traceID < 100; traceID++ {
			assert.False(t, sampler.Sample("op", traceID, 0))
		}
	})

	t.Run("Verdict is deterministic per trace id", func(t *testing.T) {
		sampler := NewRateSampler(0.5)
		first := sampler.Sample("op", 7919, 0)
		assert.Equal(t, first, sampler.Sample("op", 7919, 0))
	})

	t.Run("Out of range rates are clamped", func(t *testing.T) {
		assert.True(t, NewRateSampler(2.0).Sample("op", 9999, 0))
		assert.False(t, NewRateSampler(-1.0).Sample("op", 0, 0))
	})
}

func TestDurationSampler(t *testing.T) {
	t.Run("Is late and keeps only spans over the threshold", func(t *testing.T) {
		sampler := NewDurationSampler(1000)
		assert.False(t, sampler.IsEarly())
		assert.False(t, sampler.Sample("op", 1, 1000))
		assert.True(t, sampler.Sample("op", 1, 1001))
	})
}
