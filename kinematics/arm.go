// Package kinematics implements forward and inverse kinematics for planar
// serial-chain arms.
package kinematics

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/armplan/referenceframe"
)

// Arm is an N-link planar serial chain anchored at the origin. Link lengths
// are fixed at construction; joint angles are supplied per call, so an Arm is
// safe for concurrent use.
type Arm struct {
	linkLengths []float64
}

// NewArm returns an arm with the given link lengths, all of which must be positive.
func NewArm(linkLengths []float64) (*Arm, error) {
	if len(linkLengths) == 0 {
		return nil, errors.New("arm must have at least one link")
	}
	for i, length := range linkLengths {
		if length <= 0 {
			return nil, errors.Errorf("link %d has non-positive length %f", i, length)
		}
	}
	return &Arm{linkLengths: append([]float64{}, linkLengths...)}, nil
}

// DoF returns the number of joints of the arm.
func (a *Arm) DoF() int {
	return len(a.linkLengths)
}

// LinkLengths returns a copy of the arm's link lengths.
func (a *Arm) LinkLengths() []float64 {
	return append([]float64{}, a.linkLengths...)
}

// JointPositions performs forward kinematics, returning the base position
// followed by the position of the end of each link. Each joint rotates
// relative to the preceding link, so link i points along the sum of the first
// i+1 joint angles.
func (a *Arm) JointPositions(inputs []referenceframe.Input) ([]r2.Point, error) {
	if len(inputs) != len(a.linkLengths) {
		return nil, referenceframe.NewIncorrectDoFError(len(inputs), len(a.linkLengths))
	}
	positions := make([]r2.Point, len(a.linkLengths)+1)
	thetaSum := 0.
	for i, input := range inputs {
		thetaSum += input.Value
		positions[i+1] = positions[i].Add(r2.Point{
			X: a.linkLengths[i] * math.Cos(thetaSum),
			Y: a.linkLengths[i] * math.Sin(thetaSum),
		})
	}
	return positions, nil
}

// EndPosition returns the end effector position for the given joint angles.
func (a *Arm) EndPosition(inputs []referenceframe.Input) (r2.Point, error) {
	positions, err := a.JointPositions(inputs)
	if err != nil {
		return r2.Point{}, err
	}
	return positions[len(positions)-1], nil
}

// Jacobian returns the 2xN matrix of end effector position partials with
// respect to each joint angle, recomputed from forward kinematics. A joint's
// angular velocity moves the end effector perpendicular to the vector from
// that joint to the end effector, scaled by the vector's length.
func (a *Arm) Jacobian(inputs []referenceframe.Input) (*mat.Dense, error) {
	positions, err := a.JointPositions(inputs)
	if err != nil {
		return nil, err
	}
	eePos := positions[len(positions)-1]
	jac := mat.NewDense(2, len(a.linkLengths), nil)
	for i, jointPos := range positions[:len(positions)-1] {
		eeFromJoint := eePos.Sub(jointPos)
		ang := math.Atan2(eeFromJoint.Y, eeFromJoint.X)
		norm := eeFromJoint.Norm()
		jac.Set(0, i, -math.Sin(ang)*norm)
		jac.Set(1, i, math.Cos(ang)*norm)
	}
	return jac, nil
}
