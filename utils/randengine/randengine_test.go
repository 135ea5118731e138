package randengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/intersection-sim-oss/utils/randengine"
)

func TestPoissonReproducible(t *testing.T) {
	a, b := randengine.New(7), randengine.New(7)
	for range 1000 {
		assert.Equal(t, a.Poisson(0.3), b.Poisson(0.3))
	}
}

func TestPoissonMean(t *testing.T) {
	e := randengine.New(1)
	sum := 0
	const n = 20000
	for range n {
		k := e.Poisson(0.5)
		assert.GreaterOrEqual(t, k, 0)
		sum += k
	}
	assert.InDelta(t, 0.5, float64(sum)/n, 0.03)
}

func TestPoissonZeroDoesNotDraw(t *testing.T) {
	a, b := randengine.New(3), randengine.New(3)
	assert.Zero(t, a.Poisson(0))
	assert.Zero(t, a.Poisson(-1))
	assert.Equal(t, a.Uint64(), b.Uint64())
}

func TestStreamSeed(t *testing.T) {
	seen := map[uint64]bool{}
	for i := range 8 {
		s := randengine.StreamSeed(42, i)
		assert.False(t, seen[s])
		seen[s] = true
		assert.Equal(t, s, randengine.StreamSeed(42, i))
	}
	assert.NotEqual(t, randengine.StreamSeed(42, 0), randengine.StreamSeed(43, 0))
}

func TestDiscreteDistribution(t *testing.T) {
	e := randengine.New(5)
	counts := make([]int, 3)
	const n = 30000
	for range n {
		counts[e.DiscreteDistribution([]float64{.6, .2, .2})]++
	}
	assert.InDelta(t, .6, float64(counts[0])/n, .02)
	assert.InDelta(t, .2, float64(counts[1])/n, .02)
	assert.InDelta(t, .2, float64(counts[2])/n, .02)

	// 权重为0的项不会被抽中
	for range 100 {
		assert.Equal(t, int32(1), e.DiscreteDistribution([]float64{0, 1, 0}))
	}
}
