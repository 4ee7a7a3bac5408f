package ml

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gokulsrinaths/AI-Hackathon-otpAI/internal/models"
)

// LocationProvider reports where an OTP request appears to come from
type LocationProvider interface {
	Locate() models.Location
}

type city struct {
	name     string
	lat, lng float64
}

var simulatedCities = []city{
	{"New York", 40.7128, -74.0060},
	{"London", 51.5074, -0.1278},
	{"Tokyo", 35.6762, 139.6503},
	{"Mumbai", 19.0760, 72.8777},
	{"Sydney", -33.8688, 151.2093},
	{"Rio de Janeiro", -22.9068, -43.1729},
}

const (
	// locationJitter is the full width of the perturbation applied to each coordinate.
	locationJitter = 0.2

	unusualLocationRate = 0.3
)

// RandomLocationProvider simulates request origins: a known city, slightly
// perturbed, flagged unusual about 30% of the time.
type RandomLocationProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomLocationProvider seeds the simulation; seed 0 uses the clock.
func NewRandomLocationProvider(seed int64) *RandomLocationProvider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomLocationProvider{rng: rand.New(rand.NewSource(seed))}
}

// Locate implements LocationProvider.
func (p *RandomLocationProvider) Locate() models.Location {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := simulatedCities[p.rng.Intn(len(simulatedCities))]
	return models.Location{
		Name:      c.name,
		Latitude:  c.lat + (p.rng.Float64()-0.5)*locationJitter,
		Longitude: c.lng + (p.rng.Float64()-0.5)*locationJitter,
		IsUnusual: p.rng.Float64() > 1-unusualLocationRate,
	}
}
