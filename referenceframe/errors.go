package referenceframe

import "github.com/pkg/errors"

// NewIncorrectDoFError returns an error indicating that the length of an input
// does not match the degrees of freedom it is meant to actuate.
func NewIncorrectDoFError(actual, expected int) error {
	return errors.Errorf("number of inputs does not match frame DoF, expected %d but got %d", expected, actual)
}
