package boarding

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zrfleet/depotsim/internal/config"
)

func TestUniformSourceBounds(t *testing.T) {
	s := NewUniformSource(1, 3, rand.New(rand.NewSource(7)))
	for i := 0; i < 1000; i++ {
		n := s.PassengerCount()
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 3)
	}
}

func TestUniformSourceDegenerateBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	s := NewUniformSource(2, 2, rng)
	assert.Equal(t, 2, s.PassengerCount())

	s = NewUniformSource(5, 1, rng)
	assert.Equal(t, 5, s.PassengerCount(), "inverted bounds collapse to min")

	s = NewUniformSource(-3, -1, rng)
	assert.Equal(t, 0, s.PassengerCount(), "negative bounds clamp to zero")
}

func TestPoissonSourceMean(t *testing.T) {
	s := NewPoissonSource(2.0, rand.New(rand.NewSource(11)))

	const n = 20000
	sum := 0
	for i := 0; i < n; i++ {
		v := s.PassengerCount()
		require.GreaterOrEqual(t, v, 0)
		sum += v
	}
	mean := float64(sum) / n
	assert.InDelta(t, 2.0, mean, 0.1)
}

func TestPoissonLargeMeanUsesNormalApproximation(t *testing.T) {
	s := NewPoissonSource(50, rand.New(rand.NewSource(13)))

	const n = 5000
	sum := 0.0
	for i := 0; i < n; i++ {
		v := s.PassengerCount()
		require.GreaterOrEqual(t, v, 0)
		sum += float64(v)
	}
	assert.InDelta(t, 50, sum/n, 50*0.05)
	assert.False(t, math.IsNaN(sum))
}

func TestNewSourceFactory(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	s, err := NewSource(config.BoardingConfig{Model: "uniform", MinBatch: 1, MaxBatch: 3}, rng)
	require.NoError(t, err)
	assert.IsType(t, &UniformSource{}, s)

	s, err = NewSource(config.BoardingConfig{Model: "poisson", PoissonMean: 2}, rng)
	require.NoError(t, err)
	assert.IsType(t, &PoissonSource{}, s)

	s, err = NewSource(config.BoardingConfig{MinBatch: 1, MaxBatch: 3}, rng)
	require.NoError(t, err)
	assert.IsType(t, &UniformSource{}, s, "empty model defaults to uniform")

	_, err = NewSource(config.BoardingConfig{Model: "landuse"}, rng)
	assert.Error(t, err)
}
