package openrouteservice

// directionsRequest is the ORS directions API request body.
type directionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions bool        `json:"instructions"`
	Geometry     bool        `json:"geometry"`
	Units        string      `json:"units"`
}

// directionsResponse is the ORS directions API response.
type directionsResponse struct {
	Routes []orsRoute `json:"routes"`
	BBox   []float64  `json:"bbox,omitempty"`
}

type orsRoute struct {
	Summary  routeSummary `json:"summary"`
	Geometry string       `json:"geometry"`
}

type routeSummary struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
}

// matrixRequest is the ORS matrix API request body.
type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources,omitempty"`
	Destinations []int       `json:"destinations,omitempty"`
	Metrics      []string    `json:"metrics"`
	Units        string      `json:"units"`
}

// matrixResponse holds one row per source; unreachable pairs are null.
type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
}

// orsErrorResponse represents an error response from ORS.
type orsErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Info string `json:"info,omitempty"`
}

// ORS error codes for error mapping.
const (
	orsErrorCodeNotFound      = 2009 // Route not found
	orsErrorCodePointNotFound = 2010 // Point not found
)
