// Package distance holds pairwise travel distances between locations and the
// providers that compute them.
package distance

import (
	"encoding/json"
	"math"

	"github.com/chargeroute/chargeroute/internal/location"
)

// Pair is an ordered (from, to) location pair.
type Pair struct {
	From location.ID
	To   location.ID
}

// Matrix is an immutable table of distances in meters for a fixed location set.
// It is safe for concurrent reads. Distances need not be symmetric.
type Matrix struct {
	ids    []location.ID
	index  map[location.ID]int
	values []float64
}

// NewMatrix builds a matrix where rows[i][j] is the distance from ids[i] to ids[j].
func NewMatrix(ids []location.ID, rows [][]float64) (*Matrix, error) {
	if len(rows) != len(ids) {
		return nil, invalidf("%d ids but %d rows", len(ids), len(rows))
	}
	flat := make([]float64, 0, len(ids)*len(ids))
	for i, row := range rows {
		if len(row) != len(ids) {
			return nil, invalidf("row %d has %d columns, want %d", i, len(row), len(ids))
		}
		flat = append(flat, row...)
	}
	return NewMatrixFromFlat(ids, flat)
}

// NewMatrixFromFlat builds a matrix from row-major values of length len(ids)^2.
func NewMatrixFromFlat(ids []location.ID, flat []float64) (*Matrix, error) {
	n := len(ids)
	if len(flat) != n*n {
		return nil, invalidf("%d values for %d ids", len(flat), n)
	}

	index := make(map[location.ID]int, n)
	for i, id := range ids {
		if _, ok := index[id]; ok {
			return nil, invalidf("duplicate id %d", id)
		}
		index[id] = i
	}

	values := make([]float64, len(flat))
	for k, v := range flat {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, invalidf("distance %d->%d is %v", ids[k/n], ids[k%n], v)
		}
		values[k] = v
	}

	return &Matrix{
		ids:    append([]location.ID(nil), ids...),
		index:  index,
		values: values,
	}, nil
}

// Len returns the number of locations.
func (m *Matrix) Len() int {
	return len(m.ids)
}

// IDs returns a copy of the location IDs in matrix order.
func (m *Matrix) IDs() []location.ID {
	return append([]location.ID(nil), m.ids...)
}

// Has reports whether id is part of the matrix.
func (m *Matrix) Has(id location.ID) bool {
	_, ok := m.index[id]
	return ok
}

// Distance returns the distance from a to b.
func (m *Matrix) Distance(a, b location.ID) (float64, error) {
	i, ok := m.index[a]
	if !ok {
		return 0, &UnknownLocationError{ID: a}
	}
	j, ok := m.index[b]
	if !ok {
		return 0, &UnknownLocationError{ID: b}
	}
	return m.values[i*len(m.ids)+j], nil
}

// Submatrix returns a matrix restricted to ids, in the order given.
func (m *Matrix) Submatrix(ids []location.ID) (*Matrix, error) {
	flat := make([]float64, 0, len(ids)*len(ids))
	for _, a := range ids {
		for _, b := range ids {
			d, err := m.Distance(a, b)
			if err != nil {
				return nil, err
			}
			flat = append(flat, d)
		}
	}
	return NewMatrixFromFlat(ids, flat)
}

// Pairs returns the distances between every ordered pair of distinct ids.
func (m *Matrix) Pairs(ids []location.ID) (map[Pair]float64, error) {
	out := make(map[Pair]float64, len(ids)*len(ids))
	for _, a := range ids {
		for _, b := range ids {
			if a == b {
				continue
			}
			d, err := m.Distance(a, b)
			if err != nil {
				return nil, err
			}
			out[Pair{From: a, To: b}] = d
		}
	}
	return out, nil
}

// Rows returns a copy of the matrix as nested rows.
func (m *Matrix) Rows() [][]float64 {
	n := len(m.ids)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = append([]float64(nil), m.values[i*n:(i+1)*n]...)
	}
	return rows
}

// Covers reports whether every id is part of the matrix.
func (m *Matrix) Covers(ids []location.ID) bool {
	for _, id := range ids {
		if !m.Has(id) {
			return false
		}
	}
	return true
}

type matrixJSON struct {
	IDs       []location.ID `json:"ids"`
	Distances [][]float64   `json:"distances"`
}

// MarshalJSON encodes the matrix as {"ids": [...], "distances": [[...]]}.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(matrixJSON{IDs: m.ids, Distances: m.Rows()})
}

// UnmarshalJSON decodes and validates the {"ids", "distances"} form.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var raw matrixJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := NewMatrix(raw.IDs, raw.Distances)
	if err != nil {
		return err
	}
	*m = *built
	return nil
}
