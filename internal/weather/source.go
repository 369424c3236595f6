// Package weather produces readings for a position. Source is the backend
// contract; Simulator stands in for a real API and OpenMeteoSource is one.
// Fetcher layers last-write-wins request handling on top of a Source.
package weather

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mr1hm/go-disaster-dashboard/internal/models"
)

// ErrSimulationFailure marks a failed fetch. The simulator never produces it
// today; real backends wrap their failures with it.
var ErrSimulationFailure = errors.New("failed to fetch weather data")

type Source interface {
	Fetch(ctx context.Context, lat, lng float64) (models.WeatherReading, error)
}

// Descriptions is the fixed vocabulary of simulated conditions.
var Descriptions = []string{"Clear sky", "Partly cloudy", "Overcast", "Light rain"}

// Half-open ranges [min, max) of simulated values.
const (
	TemperatureMin, TemperatureMax = 25, 40
	HumidityMin, HumidityMax       = 60, 90
	WindSpeedMin, WindSpeedMax     = 5, 25
	RainfallMin, RainfallMax       = 0, 50
	UVIndexMin, UVIndexMax         = 3, 11
)

const DefaultDelay = time.Second

type Simulator struct {
	delay time.Duration
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator seeds its generator from the runtime unless rng is given.
func NewSimulator(delay time.Duration, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{delay: delay, now: time.Now, rng: rng}
}

func (s *Simulator) Fetch(ctx context.Context, lat, lng float64) (models.WeatherReading, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return models.WeatherReading{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return models.WeatherReading{
		Temperature: between(s.rng, TemperatureMin, TemperatureMax),
		Humidity:    between(s.rng, HumidityMin, HumidityMax),
		WindSpeed:   between(s.rng, WindSpeedMin, WindSpeedMax),
		Rainfall:    between(s.rng, RainfallMin, RainfallMax),
		Description: Descriptions[s.rng.IntN(len(Descriptions))],
		UVIndex:     between(s.rng, UVIndexMin, UVIndexMax),
		FetchedAt:   s.now(),
	}, nil
}

func between(r *rand.Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo)
}
