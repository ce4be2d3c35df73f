package valueobjects

import (
	"math"

	pkgerrors "relmap-backend/pkg/errors"
)

// Position is a value object representing node coordinates on a sheet
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition creates a position with validation
func NewPosition(x, y float64) (Position, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Position{}, pkgerrors.NewInvalidPositionError(x, y)
	}
	return Position{X: x, Y: y}, nil
}

// Validate checks both coordinates are finite
func (p Position) Validate() error {
	_, err := NewPosition(p.X, p.Y)
	return err
}

// Rounded snaps both coordinates to the nearest integer.
// History entries store rounded positions only.
func (p Position) Rounded() Position {
	return Position{X: math.Round(p.X), Y: math.Round(p.Y)}
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	const epsilon = 1e-9
	return math.Abs(p.X-other.X) < epsilon &&
		math.Abs(p.Y-other.Y) < epsilon
}

// ValidatePoints validates every point of a waypoint list
func ValidatePoints(points []Position) error {
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// isValidCoordinate checks if a coordinate is a valid finite number
func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
