package motionplan

import "github.com/pkg/errors"

// NewInvalidTrajectoryError returns an error indicating a trajectory too short
// to interpolate along.
func NewInvalidTrajectoryError(numPoints int) error {
	return errors.Errorf("trajectory must have more than one point, got %d", numPoints)
}

// NewRaggedTrajectoryError returns an error indicating a trajectory whose
// dimensions have differing sample counts.
func NewRaggedTrajectoryError(dim, actual, expected int) error {
	return errors.Errorf("trajectory is ragged: dimension %d has %d points, expected %d", dim, actual, expected)
}

// NewMismatchedBatchError returns an error indicating a batch argument whose
// length disagrees with the evaluator's batch size.
func NewMismatchedBatchError(field string, actual, expected int) error {
	return errors.Errorf("%s has batch size %d, expected %d", field, actual, expected)
}
