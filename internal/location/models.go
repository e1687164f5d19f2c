// Package location defines the places a route can visit.
package location

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// ID identifies a location. IDs are unique within a route.
type ID int64

// String returns the decimal form of the ID.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Swiss bounding box used to flag locations outside the supported area.
const (
	swissMinLat = 45.817
	swissMaxLat = 47.808
	swissMinLon = 5.955
	swissMaxLon = 10.492
)

// Location is a point of interest with a stable ID and WGS84 coordinates.
type Location struct {
	ID   ID      `json:"id"`
	Lat  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon  float64 `json:"lon" validate:"gte=-180,lte=180"`
	Name string  `json:"name,omitempty" validate:"max=256"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// New builds a validated Location.
func New(id ID, lat, lon float64, name string) (Location, error) {
	loc := Location{ID: id, Lat: lat, Lon: lon, Name: name}
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// Validate checks coordinate ranges.
func (l Location) Validate() error {
	if err := validate.Struct(l); err != nil {
		return &InvalidLocationError{ID: l.ID, Err: err}
	}
	return nil
}

// InSwissBBox reports whether the location lies inside Switzerland's bounding box.
func (l Location) InSwissBBox() bool {
	return l.Lat >= swissMinLat && l.Lat <= swissMaxLat &&
		l.Lon >= swissMinLon && l.Lon <= swissMaxLon
}

func (l Location) String() string {
	if l.Name != "" {
		return fmt.Sprintf("%s (%d)", l.Name, l.ID)
	}
	return fmt.Sprintf("location %d", l.ID)
}

// IDs returns the IDs of locs in order.
func IDs(locs []Location) []ID {
	ids := make([]ID, len(locs))
	for i, l := range locs {
		ids[i] = l.ID
	}
	return ids
}

// Index maps each location by ID. Duplicate IDs are rejected.
func Index(locs []Location) (map[ID]Location, error) {
	idx := make(map[ID]Location, len(locs))
	for _, l := range locs {
		if _, ok := idx[l.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, l.ID)
		}
		idx[l.ID] = l
	}
	return idx, nil
}
