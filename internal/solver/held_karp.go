package solver

import (
	"context"
	"math"
)

// MaxExactLocations is the largest route the Held-Karp search accepts.
const MaxExactLocations = 16

// heldKarp finds a minimum cost open path from start through every location
// such that each location is entered only after all locations in its
// predecessor mask. cost and parent are flat tables indexed by mask*n + last.
func heldKarp(ctx context.Context, dist [][]float64, start int, pred []uint32) ([]int, float64, error) {
	n := len(dist)
	if n > MaxExactLocations {
		return nil, 0, ErrTooManyLocations
	}

	full := uint32(1)<<n - 1
	size := int(full+1) * n
	cost := make([]float64, size)
	parent := make([]int8, size)
	for i := range cost {
		cost[i] = math.Inf(1)
		parent[i] = -1
	}

	startMask := uint32(1) << start
	cost[int(startMask)*n+start] = 0

	for mask := startMask; mask <= full; mask++ {
		if mask&startMask == 0 {
			continue
		}
		if mask&0x3ff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, &SolverError{Status: StatusCanceled, Err: err}
			}
		}

		row := int(mask) * n
		for j := 0; j < n; j++ {
			if mask&(1<<j) == 0 {
				continue
			}
			c := cost[row+j]
			if math.IsInf(c, 1) {
				continue
			}
			for k := 0; k < n; k++ {
				bit := uint32(1) << k
				if mask&bit != 0 || pred[k]&^mask != 0 {
					continue
				}
				idx := int(mask|bit)*n + k
				if nc := c + dist[j][k]; nc < cost[idx] {
					cost[idx] = nc
					parent[idx] = int8(j)
				}
			}
		}
	}

	best, end := math.Inf(1), -1
	for j := 0; j < n; j++ {
		if c := cost[int(full)*n+j]; c < best {
			best, end = c, j
		}
	}
	if end < 0 {
		return nil, 0, ErrInfeasible
	}

	order := make([]int, n)
	mask := full
	for pos, j := n-1, end; pos >= 0; pos-- {
		order[pos] = j
		p := parent[int(mask)*n+j]
		mask &^= 1 << j
		j = int(p)
	}
	return order, best, nil
}
