package precedence_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/precedence"
)

func start(id location.ID) *location.ID {
	return &id
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		route   precedence.Route
		wantErr error
	}{
		{
			name: "valid without precedences",
			route: precedence.Route{
				Locations: []location.ID{1, 2, 3},
				Start:     start(1),
			},
		},
		{
			name: "valid with chain",
			route: precedence.Route{
				Locations:   []location.ID{1, 2, 3, 4},
				Start:       start(1),
				Precedences: []precedence.Precedence{{Before: 2, After: 3}, {Before: 3, After: 4}, {Before: 1, After: 4}},
			},
		},
		{
			name: "duplicates checked first",
			route: precedence.Route{
				Locations: []location.ID{1, 2, 2},
			},
			wantErr: precedence.ErrDuplicateLocations,
		},
		{
			name:    "no starting point",
			route:   precedence.Route{Locations: []location.ID{1, 2}},
			wantErr: precedence.ErrNoStartingPoint,
		},
		{
			name: "starting point not in locations",
			route: precedence.Route{
				Locations: []location.ID{1, 2},
				Start:     start(9),
			},
			wantErr: precedence.ErrStartingPointNotInLocations,
		},
		{
			name: "start must not come after anything",
			route: precedence.Route{
				Locations:   []location.ID{1, 2, 3},
				Start:       start(1),
				Precedences: []precedence.Precedence{{Before: 2, After: 1}},
			},
			wantErr: precedence.ErrInvalidStartingPointPrecedence,
		},
		{
			name: "unknown precedence endpoint",
			route: precedence.Route{
				Locations:   []location.ID{1, 2, 3},
				Start:       start(1),
				Precedences: []precedence.Precedence{{Before: 2, After: 7}},
			},
			wantErr: location.ErrUnknownLocation,
		},
		{
			name: "cycle",
			route: precedence.Route{
				Locations: []location.ID{1, 2, 3, 4},
				Start:     start(1),
				Precedences: []precedence.Precedence{
					{Before: 2, After: 3}, {Before: 3, After: 4}, {Before: 4, After: 2},
				},
			},
			wantErr: precedence.ErrPrecedenceCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := precedence.Validate(tt.route)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_DuplicateIDs(t *testing.T) {
	err := precedence.Validate(precedence.Route{Locations: []location.ID{5, 3, 5, 3, 1, 5}})

	var dup *precedence.DuplicateLocationsError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, []location.ID{3, 5}, dup.IDs)
}

func TestValidate_StartPrecedenceCarriesPair(t *testing.T) {
	err := precedence.Validate(precedence.Route{
		Locations:   []location.ID{10, 20},
		Start:       start(10),
		Precedences: []precedence.Precedence{{Before: 20, After: 10}},
	})

	var spe *precedence.StartingPointPrecedenceError
	require.True(t, errors.As(err, &spe))
	assert.Equal(t, precedence.Precedence{Before: 20, After: 10}, spe.Precedence)
}

func TestValidate_ThreeCycle(t *testing.T) {
	// A=1, B=2, C=3, S=0
	err := precedence.Validate(precedence.Route{
		Locations: []location.ID{0, 1, 2, 3},
		Start:     start(0),
		Precedences: []precedence.Precedence{
			{Before: 1, After: 2}, {Before: 2, After: 3}, {Before: 3, After: 1},
		},
	})

	var cycle *precedence.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.ElementsMatch(t, []location.ID{1, 2, 3}, cycle.Cycle)
	assert.Equal(t, []location.ID{1, 2, 3}, cycle.Cycle)
	assert.Equal(t, "1 -> 2 -> 3 -> 1", cycle.Path())
}

func TestFindCycle(t *testing.T) {
	t.Run("acyclic diamond", func(t *testing.T) {
		assert.Nil(t, precedence.FindCycle([]precedence.Precedence{
			{Before: 1, After: 2}, {Before: 1, After: 3}, {Before: 2, After: 4}, {Before: 3, After: 4},
		}))
	})

	t.Run("self loop", func(t *testing.T) {
		assert.Equal(t, []location.ID{7}, precedence.FindCycle([]precedence.Precedence{{Before: 7, After: 7}}))
	})

	t.Run("cycle in second component", func(t *testing.T) {
		cycle := precedence.FindCycle([]precedence.Precedence{
			{Before: 1, After: 2},
			{Before: 10, After: 11}, {Before: 11, After: 10},
		})
		assert.Equal(t, []location.ID{10, 11}, cycle)
	})

	t.Run("deterministic across input order", func(t *testing.T) {
		a := precedence.FindCycle([]precedence.Precedence{{Before: 3, After: 1}, {Before: 1, After: 2}, {Before: 2, After: 3}})
		b := precedence.FindCycle([]precedence.Precedence{{Before: 2, After: 3}, {Before: 1, After: 2}, {Before: 3, After: 1}})
		assert.Equal(t, a, b)
		assert.Equal(t, []location.ID{1, 2, 3}, a)
	})

	t.Run("long chain does not recurse", func(t *testing.T) {
		precs := make([]precedence.Precedence, 0, 100000)
		for i := 0; i < 100000; i++ {
			precs = append(precs, precedence.Precedence{Before: location.ID(i), After: location.ID(i + 1)})
		}
		assert.Nil(t, precedence.FindCycle(precs))
	})
}

func TestSatisfied(t *testing.T) {
	precs := []precedence.Precedence{{Before: 2, After: 3}}
	assert.True(t, precedence.Satisfied([]location.ID{1, 2, 3}, precs))
	assert.False(t, precedence.Satisfied([]location.ID{1, 3, 2}, precs))
}
