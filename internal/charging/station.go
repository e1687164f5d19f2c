// Package charging looks up charging stations near a point on the route.
package charging

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/chargeroute/chargeroute/pkg/polyline"
)

// DefaultNearestCount is how many stations are reported around a reach point.
const DefaultNearestCount = 5

// ErrInvalidCount is returned when fewer than one station is requested.
var ErrInvalidCount = errors.New("station count must be positive")

// Station is a charging station.
type Station struct {
	ID           int64   `json:"id"`
	OperatorID   string  `json:"operator_id"`
	OperatorName string  `json:"operator_name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
}

// Nearby is a station together with its straight-line distance from the query point.
type Nearby struct {
	Station
	DistanceMeters float64 `json:"distance_meters"`
}

// Repository finds stations close to a point.
type Repository interface {
	Nearest(ctx context.Context, lat, lon float64, n int) ([]Nearby, error)
}

// InMemoryRepository ranks a fixed station list by haversine distance.
type InMemoryRepository struct {
	mu       sync.RWMutex
	stations []Station
}

// NewInMemoryRepository creates a repository holding the given stations.
func NewInMemoryRepository(stations ...Station) *InMemoryRepository {
	return &InMemoryRepository{stations: append([]Station(nil), stations...)}
}

// Add registers more stations.
func (r *InMemoryRepository) Add(stations ...Station) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stations = append(r.stations, stations...)
}

// Nearest returns up to n stations ordered by distance, ties broken by ID.
func (r *InMemoryRepository) Nearest(_ context.Context, lat, lon float64, n int) ([]Nearby, error) {
	if n < 1 {
		return nil, ErrInvalidCount
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	target := polyline.Coordinate{Lat: lat, Lon: lon}
	out := make([]Nearby, len(r.stations))
	for i, s := range r.stations {
		out[i] = Nearby{
			Station:        s,
			DistanceMeters: polyline.Haversine(target, polyline.Coordinate{Lat: s.Lat, Lon: s.Lon}),
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
