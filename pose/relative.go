package pose

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// RelativePose is the canonical relative transform between two views:
// the inverse (camera2-to-camera1) of the solver convention, with a
// unit-norm translation direction since scale is unobservable from two
// views.
type RelativePose struct {
	ViewI       int
	ViewJ       int
	Rotation    *mat.Dense
	Translation r3.Vector
	Weight      float64
}

// NewRelativePose converts a solver-convention candidate (p2 = R*p1 + t)
// into the canonical convention: R' = R^T and t' = -R^T * t/|t|. Swapping
// this inversion flips the sign/orientation of every downstream consumer.
func NewRelativePose(c *Candidate, viewI, viewJ int) *RelativePose {
	rt := mat.NewDense(3, 3, nil)
	rt.Copy(c.R.T())
	tn := c.T.Normalize()
	tVec := mat.NewVecDense(3, []float64{tn.X, tn.Y, tn.Z})
	var rotated mat.VecDense
	rotated.MulVec(rt, tVec)
	return &RelativePose{
		ViewI:    viewI,
		ViewJ:    viewJ,
		Rotation: rt,
		Translation: r3.Vector{
			X: -rotated.AtVec(0),
			Y: -rotated.AtVec(1),
			Z: -rotated.AtVec(2),
		},
		Weight: 1.0,
	}
}
