package epipolar

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/sfmkit/relpose/pose"
	"github.com/sfmkit/relpose/solver"
)

// Refine locally re-optimizes a candidate pose against normalized
// correspondences by minimizing the summed, optionally robust, Sampson
// error over a local (axis-angle, translation) parameterization around the
// initial pose.
func (s *Solver) Refine(x1, x2 []r2.Point, initial *pose.Candidate,
	opts solver.BundleOptions,
) (*pose.Candidate, error) {
	if initial == nil || initial.R == nil {
		return nil, errors.New("no initial pose to refine")
	}
	if len(x1) != len(x2) {
		return nil, errors.New("the 2 sets of points don't have the same number of elements")
	}
	if len(x1) == 0 {
		return nil, errors.New("no correspondences to refine against")
	}
	if opts.MaxIterations <= 0 {
		return nil, errors.New("refinement needs a positive iteration bound")
	}
	baseR := mat.DenseCopyOf(initial.R)
	baseT := initial.T

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			c := applyLocalUpdate(baseR, baseT, p)
			essMat := EssentialFromPose(c.R, c.T)
			total := 0.0
			for i := range x1 {
				total += lossValue(opts, SampsonError(essMat, x1[i], x2[i]))
			}
			return total
		},
	}
	settings := &optimize.Settings{MajorIterations: opts.MaxIterations}
	result, err := optimize.Minimize(problem, make([]float64, 6), settings, &optimize.NelderMead{})
	if err != nil {
		return nil, errors.Wrap(err, "pose refinement failed")
	}
	if result == nil {
		return nil, errors.New("pose refinement returned no result")
	}
	return applyLocalUpdate(baseR, baseT, result.X), nil
}

// lossValue applies the configured robust loss to a residual.
func lossValue(opts solver.BundleOptions, residual float64) float64 {
	switch opts.Loss {
	case solver.CauchyLoss:
		scale2 := opts.LossScale * opts.LossScale
		if scale2 == 0 {
			scale2 = 1
		}
		return scale2 * math.Log1p(residual*residual/scale2)
	default:
		return residual * residual
	}
}

// applyLocalUpdate perturbs the base pose by an axis-angle rotation delta
// and a translation delta.
func applyLocalUpdate(baseR *mat.Dense, baseT r3.Vector, p []float64) *pose.Candidate {
	delta := axisAngleToMatrix(r3.Vector{X: p[0], Y: p[1], Z: p[2]})
	r := mat.NewDense(3, 3, nil)
	r.Mul(delta, baseR)
	t := baseT.Add(r3.Vector{X: p[3], Y: p[4], Z: p[5]})
	return pose.NewCandidate(r, t)
}

// axisAngleToMatrix is the Rodrigues rotation formula.
func axisAngleToMatrix(w r3.Vector) *mat.Dense {
	theta := w.Norm()
	r := eye3()
	if theta < 1e-12 {
		return r
	}
	k := skew(w.Mul(1 / theta))
	var k2 mat.Dense
	k2.Mul(k, k)
	var sinTerm, cosTerm mat.Dense
	sinTerm.Scale(math.Sin(theta), k)
	cosTerm.Scale(1-math.Cos(theta), &k2)
	r.Add(r, &sinTerm)
	r.Add(r, &cosTerm)
	return r
}
