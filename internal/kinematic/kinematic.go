// Package kinematic supplies the cumulative-distance signal the navigation
// engines consume. The navigation side only ever reads the latest sample;
// how the distance is produced lives entirely behind the Source interface.
package kinematic

import (
	"math/rand"
	"sync"
	"time"

	"github.com/zrfleet/depotsim/pkg/core"
)

// Source exposes the latest kinematic sample for one vehicle.
type Source interface {
	Latest() core.KinematicSample
}

// Config tunes a simulated source.
type Config struct {
	TargetSpeedKph float64
	JitterKph      float64
	AccelKphPerSec float64
	SampleInterval time.Duration
}

// SimSource integrates a simulated speed curve into cumulative distance on
// its own ticker: speed ramps toward a jittered target with bounded
// acceleration, distance accumulates from the instantaneous speed.
type SimSource struct {
	cfg Config
	rng *rand.Rand

	mu        sync.Mutex
	sample    core.KinematicSample
	speedKph  float64
	targetKph float64
	running   bool
	stopChan  chan struct{}
}

// NewSimSource creates a stopped simulated source.
func NewSimSource(cfg Config, rng *rand.Rand) *SimSource {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 100 * time.Millisecond
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimSource{
		cfg:       cfg,
		rng:       rng,
		targetKph: cfg.TargetSpeedKph,
	}
}

// Latest returns the most recent sample.
func (s *SimSource) Latest() core.KinematicSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample
}

// Reset zeroes distance and speed for a new cycle.
func (s *SimSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sample = core.KinematicSample{Timestamp: time.Now()}
	s.speedKph = 0
	s.targetKph = s.cfg.TargetSpeedKph
}

// Start spawns the integration loop. Idempotent while running.
func (s *SimSource) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	go s.run(s.stopChan)
}

// Stop halts the integration loop. Idempotent.
func (s *SimSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
}

func (s *SimSource) run(stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.SampleInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			s.step(dt, now)
		}
	}
}

// step advances speed toward the target and integrates distance.
func (s *SimSource) step(dtSec float64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Occasionally re-pick the target inside the jitter band, the
	// traffic-and-corners effect.
	if s.cfg.JitterKph > 0 && s.rng.Float64() < 0.05 {
		s.targetKph = s.cfg.TargetSpeedKph + (s.rng.Float64()*2-1)*s.cfg.JitterKph
		if s.targetKph < 0 {
			s.targetKph = 0
		}
	}

	maxDelta := s.cfg.AccelKphPerSec * dtSec
	diff := s.targetKph - s.speedKph
	switch {
	case diff > maxDelta:
		s.speedKph += maxDelta
	case diff < -maxDelta:
		s.speedKph -= maxDelta
	default:
		s.speedKph = s.targetKph
	}

	s.sample.CumulativeDistanceKm += s.speedKph * dtSec / 3600.0
	s.sample.SpeedKph = s.speedKph
	s.sample.Timestamp = now
}

// ManualSource is a test double whose sample is set directly.
type ManualSource struct {
	mu     sync.Mutex
	sample core.KinematicSample
}

// NewManualSource creates a zeroed manual source.
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// Latest returns the current sample.
func (s *ManualSource) Latest() core.KinematicSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample
}

// Set replaces the current sample.
func (s *ManualSource) Set(distanceKm, speedKph float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sample = core.KinematicSample{
		CumulativeDistanceKm: distanceKm,
		SpeedKph:             speedKph,
		Timestamp:            time.Now(),
	}
}
