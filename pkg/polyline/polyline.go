// Package polyline provides encoding, decoding and measurement utilities for route
// geometries. Encoded strings follow Google's polyline algorithm:
// https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"
)

// ErrEmptyGeometry is returned when an operation needs at least one vertex.
var ErrEmptyGeometry = errors.New("polyline has no coordinates")

// DefaultPrecision is the number of decimal places used by Google and ORS encoded polylines.
const DefaultPrecision = 5

const earthRadiusMeters = 6371000

// Coordinate represents a geographic point with latitude and longitude.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Decode decodes a polyline-encoded string with the default precision.
func Decode(encoded string) []Coordinate {
	return DecodePrecision(encoded, DefaultPrecision)
}

// DecodePrecision decodes a polyline-encoded string using the given number of decimal places.
func DecodePrecision(encoded string, precision int) []Coordinate {
	if encoded == "" {
		return nil
	}

	factor := math.Pow10(precision)
	var coords []Coordinate
	index, lat, lon := 0, 0, 0

	for index < len(encoded) {
		var delta int
		delta, index = decodeValue(encoded, index)
		lat += delta
		delta, index = decodeValue(encoded, index)
		lon += delta

		coords = append(coords, Coordinate{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}

	return coords
}

func decodeValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode encodes coordinates with the default precision.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	factor := math.Pow10(DefaultPrecision)
	encoded := make([]byte, 0, len(coords)*4)
	prevLat, prevLon := 0, 0

	for _, coord := range coords {
		lat := int(math.Round(coord.Lat * factor))
		lon := int(math.Round(coord.Lon * factor))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat, prevLon = lat, lon
	}

	return string(encoded)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// FromLonLat converts GeoJSON-ordered [lon, lat] pairs into coordinates.
func FromLonLat(pairs [][2]float64) []Coordinate {
	if len(pairs) == 0 {
		return nil
	}
	coords := make([]Coordinate, len(pairs))
	for i, p := range pairs {
		coords[i] = Coordinate{Lat: p[1], Lon: p[0]}
	}
	return coords
}

// ToLonLat converts coordinates into GeoJSON-ordered [lon, lat] pairs.
func ToLonLat(coords []Coordinate) [][2]float64 {
	if len(coords) == 0 {
		return nil
	}
	pairs := make([][2]float64, len(coords))
	for i, c := range coords {
		pairs[i] = [2]float64{c.Lon, c.Lat}
	}
	return pairs
}

// Haversine returns the great-circle distance between two coordinates in meters.
func Haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Length calculates the total length of a polyline in meters.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += Haversine(coords[i-1], coords[i])
	}
	return total
}

// Interpolate returns the point located at fraction of the polyline's arc length,
// measured from the first vertex. The fraction is clamped to [0, 1].
func Interpolate(coords []Coordinate, fraction float64) (Coordinate, error) {
	if len(coords) == 0 {
		return Coordinate{}, ErrEmptyGeometry
	}
	if math.IsNaN(fraction) || fraction <= 0 || len(coords) == 1 {
		return coords[0], nil
	}
	if fraction >= 1 {
		return coords[len(coords)-1], nil
	}

	total := Length(coords)
	if total == 0 {
		return coords[0], nil
	}

	target := fraction * total
	var walked float64
	for i := 1; i < len(coords); i++ {
		seg := Haversine(coords[i-1], coords[i])
		if seg > 0 && walked+seg >= target {
			t := (target - walked) / seg
			from, to := coords[i-1], coords[i]
			return Coordinate{
				Lat: from.Lat + t*(to.Lat-from.Lat),
				Lon: from.Lon + t*(to.Lon-from.Lon),
			}, nil
		}
		walked += seg
	}

	return coords[len(coords)-1], nil
}
