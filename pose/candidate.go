// Package pose holds the relative pose representations used by two-view
// estimation: the solver-convention candidate and the canonical result.
package pose

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// minPoseNorm is the smallest quaternion/translation norm accepted as a
// well-posed transform.
const minPoseNorm = 1e-8

// Candidate is a pose in the solver convention, mapping a point in the
// first camera frame into the second: p2 = R*p1 + t.
type Candidate struct {
	R *mat.Dense
	T r3.Vector
}

// NewCandidate returns a candidate pose from a 3x3 rotation and a translation.
func NewCandidate(r *mat.Dense, t r3.Vector) *Candidate {
	return &Candidate{R: r, T: t}
}

// Quaternion returns the rotation of the candidate as a unit quaternion,
// using Shepperd's method for numerical stability across trace signs.
func (c *Candidate) Quaternion() quat.Number {
	if c == nil || c.R == nil {
		return quat.Number{}
	}
	r := c.R
	tr := r.At(0, 0) + r.At(1, 1) + r.At(2, 2)
	var q quat.Number
	switch {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
		q.Real = 0.25 * s
		q.Imag = (r.At(2, 1) - r.At(1, 2)) / s
		q.Jmag = (r.At(0, 2) - r.At(2, 0)) / s
		q.Kmag = (r.At(1, 0) - r.At(0, 1)) / s
	case r.At(0, 0) > r.At(1, 1) && r.At(0, 0) > r.At(2, 2):
		s := 2 * math.Sqrt(1 + r.At(0, 0) - r.At(1, 1) - r.At(2, 2))
		q.Real = (r.At(2, 1) - r.At(1, 2)) / s
		q.Imag = 0.25 * s
		q.Jmag = (r.At(0, 1) + r.At(1, 0)) / s
		q.Kmag = (r.At(0, 2) + r.At(2, 0)) / s
	case r.At(1, 1) > r.At(2, 2):
		s := 2 * math.Sqrt(1 + r.At(1, 1) - r.At(0, 0) - r.At(2, 2))
		q.Real = (r.At(0, 2) - r.At(2, 0)) / s
		q.Imag = (r.At(0, 1) + r.At(1, 0)) / s
		q.Jmag = 0.25 * s
		q.Kmag = (r.At(1, 2) + r.At(2, 1)) / s
	default:
		s := 2 * math.Sqrt(1 + r.At(2, 2) - r.At(0, 0) - r.At(1, 1))
		q.Real = (r.At(1, 0) - r.At(0, 1)) / s
		q.Imag = (r.At(0, 2) + r.At(2, 0)) / s
		q.Jmag = (r.At(1, 2) + r.At(2, 1)) / s
		q.Kmag = 0.25 * s
	}
	return q
}

// CheckValid rejects degenerate solver outputs, e.g. the zero pose produced
// by an all-collinear correspondence set.
func (c *Candidate) CheckValid() error {
	if c == nil || c.R == nil {
		return errors.New("no pose")
	}
	if quat.Abs(c.Quaternion()) < minPoseNorm {
		return errors.New("degenerate rotation")
	}
	if c.T.Norm() < minPoseNorm {
		return errors.New("degenerate translation")
	}
	return nil
}
