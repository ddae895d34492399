// Package motionplan supplies the cost evaluations a pose/trajectory
// optimizer needs for planar arms: a batched obstacle collision cost with
// analytic gradients, and trajectory resampling.
package motionplan

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/armplan/kinematics"
	"go.viam.com/armplan/referenceframe"
	"go.viam.com/armplan/spatialmath"
	"go.viam.com/armplan/utils"
)

// armInstance holds everything one batch entry needs to evaluate its
// collision cost: the arm model, the distance field, and the safety margin.
// The grid parameters are retained so replacing any one of them can rebuild
// the derived field.
type armInstance struct {
	arm       *kinematics.Arm
	field     spatialmath.DistanceField
	origin    r2.Point
	cellSize  float64
	fieldData [][]float64
	costEps   float64
}

// rebuildField re-derives the grid field from the stored parameters. Callers
// mutating a parameter must call this before returning; a stale field is a
// correctness bug, not a performance concern.
func (inst *armInstance) rebuildField() error {
	field, err := spatialmath.NewGridField(inst.origin, inst.cellSize, inst.fieldData)
	if err != nil {
		return err
	}
	inst.field = field
	return nil
}

// CollisionArmCost scores a batch of independent planar arms against their
// obstacle distance fields. The cost for an arm is max(costEps - distance, 0)
// at its end effector, a one-sided penalty on the safety margin. The cost
// Jacobian chains the field gradient through the arm Jacobian and is zeroed
// exactly wherever the margin is inactive, so an inactive penalty never
// biases the optimizer.
type CollisionArmCost struct {
	instances []*armInstance
	logger    golog.Logger
}

// NewCollisionArmCost constructs an evaluator over a batch of arms. All
// argument slices must share the same batch length; each index supplies one
// arm's link lengths, grid field parameters, and safety margin.
func NewCollisionArmCost(
	linkLengths [][]float64,
	origins []r2.Point,
	cellSizes []float64,
	fieldData [][][]float64,
	costEps []float64,
	logger golog.Logger,
) (*CollisionArmCost, error) {
	batch := len(linkLengths)
	if batch == 0 {
		return nil, errors.New("batch must contain at least one arm")
	}
	if len(origins) != batch {
		return nil, NewMismatchedBatchError("origins", len(origins), batch)
	}
	if len(cellSizes) != batch {
		return nil, NewMismatchedBatchError("cell sizes", len(cellSizes), batch)
	}
	if len(fieldData) != batch {
		return nil, NewMismatchedBatchError("field data", len(fieldData), batch)
	}
	if len(costEps) != batch {
		return nil, NewMismatchedBatchError("cost epsilons", len(costEps), batch)
	}

	instances := make([]*armInstance, batch)
	for i := range instances {
		arm, err := kinematics.NewArm(linkLengths[i])
		if err != nil {
			return nil, errors.Wrapf(err, "arm %d", i)
		}
		inst := &armInstance{
			arm:       arm,
			origin:    origins[i],
			cellSize:  cellSizes[i],
			fieldData: fieldData[i],
			costEps:   costEps[i],
		}
		if err := inst.rebuildField(); err != nil {
			return nil, errors.Wrapf(err, "distance field %d", i)
		}
		instances[i] = inst
	}
	return &CollisionArmCost{instances: instances, logger: logger}, nil
}

// BatchSize returns the number of arm instances in the batch.
func (c *CollisionArmCost) BatchSize() int {
	return len(c.instances)
}

// Evaluate computes each instance's scalar cost and 1xN cost Jacobian for the
// given joint configurations. Instances are independent and evaluated in
// parallel. Distance field failures are surfaced unchanged for the caller to
// handle; nothing is retried or recovered here.
func (c *CollisionArmCost) Evaluate(
	ctx context.Context,
	configurations [][]referenceframe.Input,
) ([]float64, []*mat.Dense, error) {
	if err := c.checkBatch(configurations); err != nil {
		return nil, nil, err
	}
	costs := make([]float64, len(c.instances))
	jacobians := make([]*mat.Dense, len(c.instances))
	instErrs := make([]error, len(c.instances))
	if err := utils.GroupWorkParallel(
		ctx,
		len(c.instances),
		func(groupSize int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				costs[workNum], jacobians[workNum], instErrs[workNum] =
					c.evaluateInstance(workNum, configurations[workNum])
			}, nil
		},
	); err != nil {
		return nil, nil, err
	}
	for i, err := range instErrs {
		if err != nil {
			c.logger.Debugw("collision cost evaluation failed", "instance", i, "error", err)
		}
	}
	if combined := multierr.Combine(instErrs...); combined != nil {
		return nil, nil, combined
	}
	return costs, jacobians, nil
}

// Costs computes only the per-instance costs, for optimizers that need
// residuals without gradients.
func (c *CollisionArmCost) Costs(configurations [][]referenceframe.Input) ([]float64, error) {
	if err := c.checkBatch(configurations); err != nil {
		return nil, err
	}
	costs := make([]float64, len(c.instances))
	for i, configuration := range configurations {
		cost, _, err := c.evaluateInstance(i, configuration)
		if err != nil {
			return nil, err
		}
		costs[i] = cost
	}
	return costs, nil
}

func (c *CollisionArmCost) evaluateInstance(
	index int,
	configuration []referenceframe.Input,
) (float64, *mat.Dense, error) {
	inst := c.instances[index]
	eePos, err := inst.arm.EndPosition(configuration)
	if err != nil {
		return 0, nil, err
	}
	armJac, err := inst.arm.Jacobian(configuration)
	if err != nil {
		return 0, nil, err
	}
	dist, grad, err := inst.field.SignedDistance(eePos)
	if err != nil {
		return 0, nil, err
	}

	cost := math.Max(inst.costEps-dist, 0)
	costJac := mat.NewDense(1, inst.arm.DoF(), nil)
	if dist <= inst.costEps {
		costJac.Mul(mat.NewDense(1, 2, []float64{grad.X, grad.Y}), armJac)
		costJac.Scale(-1, costJac)
	}
	return cost, costJac, nil
}

func (c *CollisionArmCost) checkBatch(configurations [][]referenceframe.Input) error {
	if len(configurations) != len(c.instances) {
		return NewMismatchedBatchError("configurations", len(configurations), len(c.instances))
	}
	var err error
	for i, configuration := range configurations {
		if len(configuration) != c.instances[i].arm.DoF() {
			err = multierr.Combine(err, errors.Wrapf(
				referenceframe.NewIncorrectDoFError(len(configuration), c.instances[i].arm.DoF()),
				"instance %d", i))
		}
	}
	return err
}

func (c *CollisionArmCost) checkIndex(index int) error {
	if index < 0 || index >= len(c.instances) {
		return errors.Errorf("batch index %d out of range [0, %d)", index, len(c.instances))
	}
	return nil
}

// ReplaceLinkLengths swaps the arm at the given batch index for one with the
// given link lengths.
func (c *CollisionArmCost) ReplaceLinkLengths(index int, linkLengths []float64) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	arm, err := kinematics.NewArm(linkLengths)
	if err != nil {
		return err
	}
	c.instances[index].arm = arm
	return nil
}

// ReplaceCostEpsilon replaces the safety margin at the given batch index.
func (c *CollisionArmCost) ReplaceCostEpsilon(index int, costEps float64) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.instances[index].costEps = costEps
	return nil
}

// ReplaceFieldOrigin replaces the grid origin at the given batch index and
// rebuilds the derived field before returning.
func (c *CollisionArmCost) ReplaceFieldOrigin(index int, origin r2.Point) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	inst := c.instances[index]
	prev := inst.origin
	inst.origin = origin
	if err := inst.rebuildField(); err != nil {
		inst.origin = prev
		return err
	}
	return nil
}

// ReplaceFieldCellSize replaces the grid cell size at the given batch index
// and rebuilds the derived field before returning. On failure the previous
// field stays in effect.
func (c *CollisionArmCost) ReplaceFieldCellSize(index int, cellSize float64) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	inst := c.instances[index]
	prev := inst.cellSize
	inst.cellSize = cellSize
	if err := inst.rebuildField(); err != nil {
		inst.cellSize = prev
		return err
	}
	return nil
}

// ReplaceFieldData replaces the raw grid samples at the given batch index and
// rebuilds the derived field before returning. On failure the previous field
// stays in effect.
func (c *CollisionArmCost) ReplaceFieldData(index int, data [][]float64) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	inst := c.instances[index]
	prev := inst.fieldData
	inst.fieldData = data
	if err := inst.rebuildField(); err != nil {
		inst.fieldData = prev
		return err
	}
	return nil
}

// ReplaceField installs a caller-supplied DistanceField at the given batch
// index. Any conforming field implementation is interchangeable with the grid
// field; a later grid parameter replacement rebuilds a grid field from the
// stored parameters as usual.
func (c *CollisionArmCost) ReplaceField(index int, field spatialmath.DistanceField) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	if field == nil {
		return errors.New("distance field cannot be nil")
	}
	c.instances[index].field = field
	return nil
}
