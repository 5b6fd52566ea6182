package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvexHull2D_Square(t *testing.T) {
	t.Parallel()

	pts := []Point2{
		{0, 0}, {1, 0}, {1, 1}, {0, 1},
		{0.5, 0.5}, {0.2, 0.8}, // interior
		{0.5, 0}, // collinear on an edge
		{1, 1},   // duplicate
	}
	hull := ConvexHull2D(pts)

	assert.Equal(t, []Point2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, hull)
	assert.InDelta(t, 1.0, PolygonArea(hull), 1e-12)
	assert.Len(t, pts, 8, "input must not be modified")
}

func TestConvexHull2D_Degenerate(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ConvexHull2D(nil))
	assert.Equal(t, []Point2{{1, 2}}, ConvexHull2D([]Point2{{1, 2}, {1, 2}}))
	assert.Equal(t, 0.0, PolygonArea(ConvexHull2D([]Point2{{0, 0}, {1, 1}, {2, 2}})))
}

func TestPolygonArea_Triangle(t *testing.T) {
	t.Parallel()

	// clockwise input still yields a positive area
	assert.InDelta(t, 6.0, PolygonArea([]Point2{{0, 0}, {0, 3}, {4, 0}}), 1e-12)
}
