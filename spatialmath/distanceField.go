// Package spatialmath provides the spatial primitives used by planar motion
// planning, chiefly signed distance field queries.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// DistanceField is the query contract for an obstacle field: for a point,
// return the signed distance to the nearest obstacle surface (negative inside
// an obstacle) and the gradient of that distance with respect to the point.
// Implementations must be safe for concurrent read-only queries.
type DistanceField interface {
	SignedDistance(pt r2.Point) (float64, r2.Point, error)
}

// NewPointOutOfBoundsError returns an error for a query outside a field's bounds.
func NewPointOutOfBoundsError(pt r2.Point) error {
	return errors.Errorf("point (%f, %f) is outside the distance field bounds", pt.X, pt.Y)
}

// GridField is a DistanceField backed by a row-major grid of sampled
// distances. data[i][j] holds the distance at the cell center i rows up and j
// columns right of origin, with cellSize spacing. Queries interpolate
// bilinearly between the four surrounding cell centers; the gradient is the
// closed-form derivative of the interpolant.
type GridField struct {
	origin   r2.Point
	cellSize float64
	data     [][]float64
}

// NewGridField validates and copies the given field parameters. The data must
// be rectangular and at least 2x2 so every in-bounds query has a cell to
// interpolate within.
func NewGridField(origin r2.Point, cellSize float64, data [][]float64) (*GridField, error) {
	if cellSize <= 0 {
		return nil, errors.Errorf("cell size must be positive, got %f", cellSize)
	}
	if len(data) < 2 || len(data[0]) < 2 {
		return nil, errors.New("distance field data must be at least 2x2")
	}
	width := len(data[0])
	rows := make([][]float64, len(data))
	for i, row := range data {
		if len(row) != width {
			return nil, errors.Errorf("distance field data is ragged: row %d has %d columns, expected %d", i, len(row), width)
		}
		rows[i] = append([]float64{}, row...)
	}
	return &GridField{origin: origin, cellSize: cellSize, data: rows}, nil
}

// SignedDistance implements DistanceField. Points outside the rectangle of
// cell centers fail with an out-of-bounds error.
func (f *GridField) SignedDistance(pt r2.Point) (float64, r2.Point, error) {
	cx := (pt.X - f.origin.X) / f.cellSize
	cy := (pt.Y - f.origin.Y) / f.cellSize
	maxCol := len(f.data[0]) - 1
	maxRow := len(f.data) - 1
	if cx < 0 || cy < 0 || cx > float64(maxCol) || cy > float64(maxRow) {
		return 0, r2.Point{}, NewPointOutOfBoundsError(pt)
	}

	col := int(math.Floor(cx))
	row := int(math.Floor(cy))
	// queries on the far edges interpolate within the last cell
	if col >= maxCol {
		col = maxCol - 1
	}
	if row >= maxRow {
		row = maxRow - 1
	}
	fx := cx - float64(col)
	fy := cy - float64(row)

	d00 := f.data[row][col]
	d10 := f.data[row][col+1]
	d01 := f.data[row+1][col]
	d11 := f.data[row+1][col+1]

	dist := (1-fx)*(1-fy)*d00 + fx*(1-fy)*d10 + (1-fx)*fy*d01 + fx*fy*d11
	grad := r2.Point{
		X: ((1-fy)*(d10-d00) + fy*(d11-d01)) / f.cellSize,
		Y: ((1-fx)*(d01-d00) + fx*(d11-d10)) / f.cellSize,
	}
	return dist, grad, nil
}
