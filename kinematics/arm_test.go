package kinematics

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"

	"go.viam.com/armplan/referenceframe"
)

func TestNewArm(t *testing.T) {
	_, err := NewArm([]float64{})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewArm([]float64{1, 0, 1})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewArm([]float64{1, -0.5})
	test.That(t, err, test.ShouldNotBeNil)

	arm, err := NewArm([]float64{1, 0.5, 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, arm.DoF(), test.ShouldEqual, 3)
}

func TestForwardKinematicsZeroAngles(t *testing.T) {
	// with all joints at zero the arm lies along the x axis
	for _, lengths := range [][]float64{{1}, {1, 1}, {0.5, 1.5, 2}, {1, 2, 3, 4, 5}} {
		arm, err := NewArm(lengths)
		test.That(t, err, test.ShouldBeNil)

		pos, err := arm.EndPosition(referenceframe.FloatsToInputs(make([]float64, len(lengths))))
		test.That(t, err, test.ShouldBeNil)
		total := 0.
		for _, l := range lengths {
			total += l
		}
		test.That(t, pos.X, test.ShouldAlmostEqual, total)
		test.That(t, pos.Y, test.ShouldAlmostEqual, 0)
	}
}

func TestForwardKinematics(t *testing.T) {
	arm, err := NewArm([]float64{1, 1})
	test.That(t, err, test.ShouldBeNil)

	positions, err := arm.JointPositions(referenceframe.FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(positions), test.ShouldEqual, 3)
	test.That(t, positions[0].X, test.ShouldAlmostEqual, 0)
	test.That(t, positions[0].Y, test.ShouldAlmostEqual, 0)
	test.That(t, positions[2].X, test.ShouldAlmostEqual, 2)
	test.That(t, positions[2].Y, test.ShouldAlmostEqual, 0)

	// joints are relative to the preceding link, so a straight second joint
	// keeps the arm pointing along the first joint's direction
	pos, err := arm.EndPosition(referenceframe.FloatsToInputs([]float64{math.Pi / 2, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos.X, test.ShouldAlmostEqual, 0)
	test.That(t, pos.Y, test.ShouldAlmostEqual, 2)

	pos, err = arm.EndPosition(referenceframe.FloatsToInputs([]float64{math.Pi / 2, -math.Pi / 2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos.X, test.ShouldAlmostEqual, 1)
	test.That(t, pos.Y, test.ShouldAlmostEqual, 1)

	_, err = arm.EndPosition(referenceframe.FloatsToInputs([]float64{0}))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestForwardKinematicsPeriodicity(t *testing.T) {
	arm, err := NewArm([]float64{1, 2, 0.5})
	test.That(t, err, test.ShouldBeNil)

	angles := []float64{0.3, -1.1, 0.7}
	base, err := arm.EndPosition(referenceframe.FloatsToInputs(angles))
	test.That(t, err, test.ShouldBeNil)

	for i := range angles {
		shifted := append([]float64{}, angles...)
		shifted[i] += 2 * math.Pi
		pos, err := arm.EndPosition(referenceframe.FloatsToInputs(shifted))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pos.X, test.ShouldAlmostEqual, base.X, 1e-9)
		test.That(t, pos.Y, test.ShouldAlmostEqual, base.Y, 1e-9)
	}
}

func TestJacobianMatchesFiniteDifferences(t *testing.T) {
	//nolint:gosec
	r := rand.New(rand.NewSource(42))
	const h = 1e-6

	for trial := 0; trial < 20; trial++ {
		dof := 1 + r.Intn(5)
		lengths := make([]float64, dof)
		angles := make([]float64, dof)
		for i := range lengths {
			lengths[i] = 0.1 + 2*r.Float64()
			angles[i] = (r.Float64() - 0.5) * 2 * math.Pi
		}
		arm, err := NewArm(lengths)
		test.That(t, err, test.ShouldBeNil)

		jac, err := arm.Jacobian(referenceframe.FloatsToInputs(angles))
		test.That(t, err, test.ShouldBeNil)

		for i := 0; i < dof; i++ {
			plus := append([]float64{}, angles...)
			minus := append([]float64{}, angles...)
			plus[i] += h
			minus[i] -= h
			posPlus, err := arm.EndPosition(referenceframe.FloatsToInputs(plus))
			test.That(t, err, test.ShouldBeNil)
			posMinus, err := arm.EndPosition(referenceframe.FloatsToInputs(minus))
			test.That(t, err, test.ShouldBeNil)

			test.That(t, jac.At(0, i), test.ShouldAlmostEqual, (posPlus.X-posMinus.X)/(2*h), 1e-4)
			test.That(t, jac.At(1, i), test.ShouldAlmostEqual, (posPlus.Y-posMinus.Y)/(2*h), 1e-4)
		}
	}
}
