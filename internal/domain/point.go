package domain

import "fmt"

// Point is a single vector with an id and an optional flat payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Validate checks the point against the collection it targets.
func (p Point) Validate(col Collection) error {
	if p.ID == "" {
		return fmt.Errorf("%w: point id is empty", ErrInvalidSchema)
	}
	if len(p.Vector) != col.Dim {
		return fmt.Errorf("%w: collection %q expects dim %d, got %d",
			ErrDimMismatch, col.Name, col.Dim, len(p.Vector))
	}
	return nil
}
