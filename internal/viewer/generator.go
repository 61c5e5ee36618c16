package viewer

import (
	"math"

	"github.com/hohoca/brachyplan/internal/types"
)

// SimulatedGenerator stands in for image-based registration. It lays Count
// points from the click along the model axis, Spacing mm apart. The axis lies
// in the x-y plane at the model's z rotation.
type SimulatedGenerator struct {
	Count   int
	Spacing float64
}

// Generate implements PointGenerator
func (g SimulatedGenerator) Generate(ch types.Channel, click types.Point3D) []types.Point3D {
	count := g.Count
	if count <= 0 {
		count = 5
	}
	spacing := g.Spacing
	if spacing <= 0 {
		spacing = 10
	}

	theta := ch.Pose.Rotation.Z * math.Pi / 180
	dir := types.Point3D{X: math.Cos(theta), Y: math.Sin(theta)}

	points := make([]types.Point3D, count)
	for i := range points {
		d := float64(i) * spacing
		points[i] = types.Point3D{
			X: round3(click.X + dir.X*d),
			Y: round3(click.Y + dir.Y*d),
			Z: click.Z,
		}
	}
	return points
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
