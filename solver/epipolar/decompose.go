package epipolar

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sfmkit/relpose/pose"
)

// DecomposeEssential decomposes an essential matrix into its two possible
// rotations and the translation direction (up to sign).
func DecomposeEssential(essMat *mat.Dense) (*mat.Dense, *mat.Dense, r3.Vector, error) {
	var svd mat.SVD
	if ok := svd.Factorize(essMat, mat.SVDFull); !ok {
		return nil, nil, r3.Vector{}, errors.New("failed to factorize essential matrix")
	}
	var u, v, vt mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vt.CloneFrom(v.T())
	// both orthogonal factors must be proper rotations
	if mat.Det(&u) < 0 {
		u.Scale(-1, &u)
	}
	if mat.Det(&vt) < 0 {
		vt.Scale(-1, &vt)
	}
	w := mat.NewDense(3, 3, []float64{
		0, 1, 0,
		-1, 0, 0,
		0, 0, 1,
	})
	var r1, r2m mat.Dense
	r1.Mul(&u, w)
	r1.Mul(&r1, &vt)
	r2m.Mul(&u, w.T())
	r2m.Mul(&r2m, &vt)
	t := r3.Vector{X: u.At(0, 2), Y: u.At(1, 2), Z: u.At(2, 2)}
	return mat.DenseCopyOf(&r1), mat.DenseCopyOf(&r2m), t, nil
}

// PossiblePoses expands an essential matrix into its four candidate poses,
// the {R1, R2} x {t, -t} combinations of the decomposition.
func PossiblePoses(essMat *mat.Dense) ([]*pose.Candidate, error) {
	r1, r2m, t, err := DecomposeEssential(essMat)
	if err != nil {
		return nil, err
	}
	tOpp := t.Mul(-1)
	return []*pose.Candidate{
		pose.NewCandidate(r1, t),
		pose.NewCandidate(mat.DenseCopyOf(r1), tOpp),
		pose.NewCandidate(r2m, t),
		pose.NewCandidate(mat.DenseCopyOf(r2m), tOpp),
	}, nil
}

// depthPair returns the two view depths of a bearing correspondence under
// candidate c, derived from z2*x2 = z1*R*x1 + t by crossing out x2.
func depthPair(c *pose.Candidate, f1, f2 r3.Vector) (float64, float64) {
	rf1 := rotateVec(c.R, f1)
	cross1 := f2.Cross(rf1)
	denom := cross1.Norm2()
	if denom == 0 {
		return 0, 0
	}
	z1 := -f2.Cross(c.T).Dot(cross1) / denom
	z2 := rf1.Mul(z1).Add(c.T).Dot(f2)
	return z1, z2
}

// positiveDepthCount counts the correspondences a candidate places in front
// of both cameras.
func positiveDepthCount(c *pose.Candidate, x1, x2 []r3.Vector) int {
	count := 0
	for i := range x1 {
		if z1, z2 := depthPair(c, x1[i], x2[i]); z1 > 0 && z2 > 0 {
			count++
		}
	}
	return count
}

// BestCheiralityPose returns the candidate with the most positive depth values.
func BestCheiralityPose(cands []*pose.Candidate, x1, x2 []r3.Vector) *pose.Candidate {
	best := cands[0]
	bestCount := -1
	for _, c := range cands {
		if count := positiveDepthCount(c, x1, x2); count > bestCount {
			bestCount = count
			best = c
		}
	}
	return best
}

// sortByCheirality orders candidates best-first by positive depth count.
func sortByCheirality(cands []*pose.Candidate, x1, x2 []r3.Vector) {
	counts := make([]int, len(cands))
	for i, c := range cands {
		counts[i] = positiveDepthCount(c, x1, x2)
	}
	// insertion sort, the list has four entries
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && counts[j] > counts[j-1]; j-- {
			counts[j], counts[j-1] = counts[j-1], counts[j]
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
}

// rotateVec applies a 3x3 matrix to a vector.
func rotateVec(m *mat.Dense, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z,
	}
}

// bearingsToNormalized projects unit bearings back onto the z=1 plane.
func bearingsToNormalized(x []r3.Vector) ([]r2.Point, error) {
	out := make([]r2.Point, len(x))
	for i, v := range x {
		if math.Abs(v.Z) < 1e-12 {
			return nil, errors.New("bearing direction parallel to the image plane")
		}
		out[i] = r2.Point{X: v.X / v.Z, Y: v.Y / v.Z}
	}
	return out, nil
}

// normalizedToBearings lifts z=1 plane coordinates to unit bearings.
func normalizedToBearings(pts []r2.Point) []r3.Vector {
	out := make([]r3.Vector, len(pts))
	for i, pt := range pts {
		out[i] = r3.Vector{X: pt.X, Y: pt.Y, Z: 1}.Normalize()
	}
	return out
}
