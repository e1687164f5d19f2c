// Package directions caches per-leg route geometry between locations.
package directions

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/pkg/polyline"
)

// Key identifies a directional leg. (a, b) and (b, a) are distinct.
type Key struct {
	From location.ID
	To   location.ID
}

// String returns the persisted form "{from}-{to}".
func (k Key) String() string {
	return fmt.Sprintf("%d-%d", k.From, k.To)
}

// ParseKey parses "{from}-{to}". Negative IDs are accepted, e.g. "-3--7".
func ParseKey(s string) (Key, error) {
	if len(s) < 3 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	sep := strings.IndexByte(s[1:], '-')
	if sep < 0 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	sep++

	from, err := strconv.ParseInt(s[:sep], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	to, err := strconv.ParseInt(s[sep+1:], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Key{From: location.ID(from), To: location.ID(to)}, nil
}

// MarshalText implements encoding.TextMarshaler so keys can be JSON object keys.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Geometry is a GeoJSON LineString. Coordinates are [lon, lat] pairs.
type Geometry struct {
	Type        string       `json:"type"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// LineString builds a GeoJSON geometry from coordinates.
func LineString(coords []polyline.Coordinate) Geometry {
	return Geometry{Type: "LineString", Coordinates: polyline.ToLonLat(coords)}
}

// Entry is the cached route for one leg.
type Entry struct {
	DistanceMeters  float64  `json:"distance"`
	DurationSeconds float64  `json:"duration"`
	Geometry        Geometry `json:"geometry"`
}

// Coordinates returns the leg geometry as lat/lon coordinates.
func (e Entry) Coordinates() []polyline.Coordinate {
	return polyline.FromLonLat(e.Geometry.Coordinates)
}

// Validate checks that the entry can be used for interpolation.
func (e Entry) Validate() error {
	if len(e.Geometry.Coordinates) == 0 {
		return fmt.Errorf("%w: empty geometry", ErrInvalidEntry)
	}
	if math.IsNaN(e.DistanceMeters) || e.DistanceMeters < 0 {
		return fmt.Errorf("%w: distance %v", ErrInvalidEntry, e.DistanceMeters)
	}
	return nil
}

// UnmarshalJSON accepts the flat entry form and, for older cache files, a full
// Mapbox directions response whose first route is used.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type flat Entry
	var raw struct {
		flat
		Routes []flat `json:"routes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Geometry.Coordinates) == 0 && len(raw.Routes) > 0 {
		*e = Entry(raw.Routes[0])
		return nil
	}
	*e = Entry(raw.flat)
	return nil
}
