package kinematics

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/armplan/referenceframe"
)

const (
	defaultMaxIterations = 1000
	defaultEpsilon       = 0.01
	dampingFactor        = 0.1
)

// JacobianIK solves planar inverse kinematics by damped Gauss-Newton steps
// through the pseudo-inverse of the arm Jacobian. The fixed damping factor
// keeps steps stable near singular configurations such as full extension.
type JacobianIK struct {
	arm           *Arm
	epsilon       float64
	damping       float64
	maxIterations int
	logger        golog.Logger
}

// CreateJacobianIKSolver creates a JacobianIK for the given arm. If the
// iteration count is less than 1, it will be set to the default of 1000.
func CreateJacobianIKSolver(arm *Arm, logger golog.Logger, iter int) *JacobianIK {
	ik := &JacobianIK{arm: arm, logger: logger}
	ik.epsilon = defaultEpsilon
	ik.damping = dampingFactor
	if iter < 1 {
		iter = defaultMaxIterations
	}
	ik.maxIterations = iter
	return ik
}

// Solve iterates from the seed configuration toward the goal position. It
// returns the last configuration reached and whether the end effector got
// within tolerance of the goal. Non-convergence is not an error: unreachable
// goals and singular seeds simply yield the best-effort configuration found.
// The only error condition is a seed of the wrong length.
func (ik *JacobianIK) Solve(seed []referenceframe.Input, goal r2.Point) ([]referenceframe.Input, bool, error) {
	if len(seed) != ik.arm.DoF() {
		return nil, false, referenceframe.NewIncorrectDoFError(len(seed), ik.arm.DoF())
	}
	q := append([]referenceframe.Input{}, seed...)
	for iteration := 0; iteration < ik.maxIterations; iteration++ {
		pos, err := ik.arm.EndPosition(q)
		if err != nil {
			return nil, false, err
		}
		delta := goal.Sub(pos)
		if delta.Norm() < ik.epsilon {
			return q, true, nil
		}
		jac, err := ik.arm.Jacobian(q)
		if err != nil {
			return nil, false, err
		}
		pinv, err := pseudoInverse(jac)
		if err != nil {
			return nil, false, err
		}
		var dq mat.VecDense
		dq.MulVec(pinv, mat.NewVecDense(2, []float64{delta.X, delta.Y}))
		for i := range q {
			q[i].Value += dq.AtVec(i) * ik.damping
		}
	}
	ik.logger.Debugw("inverse kinematics did not converge", "iterations", ik.maxIterations, "goal", goal)
	return q, false, nil
}

// pseudoInverse computes the Moore-Penrose pseudo-inverse via thin SVD,
// zeroing singular values below a relative cutoff so near-singular Jacobians
// produce bounded steps.
func pseudoInverse(m mat.Matrix) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return nil, errors.New("failed to factorize matrix for pseudo-inverse")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	r, c := m.Dims()
	tol := math.Max(float64(r), float64(c)) * values[0] * 1e-15
	sigmaInv := mat.NewDense(len(values), len(values), nil)
	for i, sigma := range values {
		if sigma > tol {
			sigmaInv.Set(i, i, 1/sigma)
		}
	}

	var pinv mat.Dense
	pinv.Product(&v, sigmaInv, u.T())
	return &pinv, nil
}
