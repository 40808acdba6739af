// Package boarding models how many passengers arrive per boarding batch.
// The depot orchestrator only needs "a non-negative count per call"; the
// demand model behind it is selected by configuration.
package boarding

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/zrfleet/depotsim/internal/config"
)

// Source produces passenger counts for boarding batches.
type Source interface {
	PassengerCount() int
}

// UniformSource draws a uniform integer in [min, max].
type UniformSource struct {
	min, max int
	rng      *rand.Rand
}

// NewUniformSource creates a uniform source. Inverted bounds collapse to min.
func NewUniformSource(min, max int, rng *rand.Rand) *UniformSource {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return &UniformSource{min: min, max: max, rng: rng}
}

// PassengerCount returns a uniform draw in [min, max].
func (s *UniformSource) PassengerCount() int {
	if s.max == s.min {
		return s.min
	}
	return s.min + s.rng.Intn(s.max-s.min+1)
}

// PoissonSource draws from a Poisson distribution with the configured mean.
type PoissonSource struct {
	mean float64
	rng  *rand.Rand
}

// NewPoissonSource creates a Poisson source. Non-positive means clamp to a
// mean of 1.
func NewPoissonSource(mean float64, rng *rand.Rand) *PoissonSource {
	if mean <= 0 {
		mean = 1
	}
	return &PoissonSource{mean: mean, rng: rng}
}

// PassengerCount samples the distribution, never negative.
func (s *PoissonSource) PassengerCount() int {
	return poisson(s.rng, s.mean)
}

// poisson samples a Poisson-distributed integer. Knuth's product method for
// small means; a normal approximation above 30 where the products underflow.
func poisson(rng *rand.Rand, mean float64) int {
	if mean > 30 {
		v := int(math.Round(rng.NormFloat64()*math.Sqrt(mean) + mean))
		if v < 0 {
			return 0
		}
		return v
	}

	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

// NewSource builds the configured demand model.
func NewSource(cfg config.BoardingConfig, rng *rand.Rand) (Source, error) {
	switch cfg.Model {
	case "", "uniform":
		return NewUniformSource(cfg.MinBatch, cfg.MaxBatch, rng), nil
	case "poisson":
		return NewPoissonSource(cfg.PoissonMean, rng), nil
	default:
		return nil, fmt.Errorf("unknown boarding model: %s", cfg.Model)
	}
}
