package channel

import (
	"math"

	"github.com/hohoca/brachyplan/internal/types"
)

// positionTolerance is the distance under which two positions are the same grid point
const positionTolerance = 1e-6

// GenerateDwellGrid builds the dwell grid for a step. Positions start at
// types.GridStart and decrease by step while they stay at or above types.GridEnd.
// A step below types.MinDwellStep, non-positive or not finite yields the
// default grid.
func GenerateDwellGrid(step float64) types.DwellGrid {
	if !validStep(step) {
		step = types.DefaultDwellStep
	}

	n := int(math.Floor((types.GridStart-types.GridEnd)/step+positionTolerance)) + 1
	positions := make([]float64, 0, n)
	for i := 0; ; i++ {
		p := roundPosition(types.GridStart - float64(i)*step)
		if p < types.GridEnd-positionTolerance {
			break
		}
		positions = append(positions, p)
	}

	return types.DwellGrid{Step: step, Positions: positions}
}

func validStep(step float64) bool {
	return step >= types.MinDwellStep && !math.IsInf(step, 0) && !math.IsNaN(step)
}

// roundPosition removes accumulated float error from repeated subtraction
func roundPosition(p float64) float64 {
	return math.Round(p*1e6) / 1e6
}

// gridIndex returns the index of position in the grid, or -1
func gridIndex(grid types.DwellGrid, position float64) int {
	// positions are descending with a constant step, so the index can be computed
	if !validStep(grid.Step) || len(grid.Positions) == 0 {
		return -1
	}
	i := int(math.Round((types.GridStart - position) / grid.Step))
	if i < 0 || i >= len(grid.Positions) {
		return -1
	}
	if math.Abs(grid.Positions[i]-position) > positionTolerance {
		return -1
	}
	return i
}

// OnGrid reports whether position is one of the grid's positions
func OnGrid(grid types.DwellGrid, position float64) bool {
	return gridIndex(grid, position) >= 0
}
