package motionplan

import (
	"math"

	"github.com/pkg/errors"
)

// ResampleTrajectory resamples a dimension-major trajectory (trajectory[d] is
// the sample sequence of dimension d) to numPoints waypoints by linear
// interpolation along a uniform [0,1] parametrization of the input samples.
// The first and last waypoints are preserved exactly; down- and up-sampling
// are both supported.
func ResampleTrajectory(trajectory [][]float64, numPoints int) ([][]float64, error) {
	if len(trajectory) == 0 {
		return nil, NewInvalidTrajectoryError(0)
	}
	numSamples := len(trajectory[0])
	for d, row := range trajectory {
		if len(row) != numSamples {
			return nil, NewRaggedTrajectoryError(d, len(row), numSamples)
		}
	}
	if numSamples <= 1 {
		return nil, NewInvalidTrajectoryError(numSamples)
	}
	if numPoints < 1 {
		return nil, errors.Errorf("cannot resample to %d points", numPoints)
	}

	resampled := make([][]float64, len(trajectory))
	for d := range resampled {
		resampled[d] = make([]float64, numPoints)
	}
	for j := 0; j < numPoints; j++ {
		t := 0.
		if numPoints > 1 {
			t = float64(j) / float64(numPoints-1)
		}
		pos := t * float64(numSamples-1)
		k := int(math.Floor(pos))
		if k >= numSamples-1 {
			k = numSamples - 2
		}
		frac := pos - float64(k)
		for d, row := range trajectory {
			resampled[d][j] = row[k]*(1-frac) + row[k+1]*frac
		}
	}
	return resampled, nil
}
