// Package epipolar implements the default pose solver backend on top of a
// linear eight-point essential-matrix kernel with SVD structure enforcement.
package epipolar

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MinKernelPoints is the sample size required by the linear kernel.
const MinKernelPoints = 8

// ComputeEssentialMatrix fits an essential matrix to normalized image
// coordinates with the linear algorithm: the epipolar constraints form a
// homogeneous system whose SVD null space is reshaped into the matrix, and
// the (1, 1, 0) singular value structure is then enforced.
func ComputeEssentialMatrix(pts1, pts2 []r2.Point) (*mat.Dense, error) {
	if len(pts1) != len(pts2) {
		return nil, errors.New("sets of points pts1 and pts2 must have the same number of elements")
	}
	if len(pts1) < MinKernelPoints {
		return nil, errors.Errorf("sets of points must have at least %d elements, got %d", MinKernelPoints, len(pts1))
	}
	m := mat.NewDense(len(pts1), 9, nil)
	for i := range pts1 {
		v1 := pts1[i]
		v2 := pts2[i]
		m.SetRow(i, []float64{
			v2.X * v1.X, v2.X * v1.Y, v2.X,
			v2.Y * v1.X, v2.Y * v1.Y, v2.Y,
			v1.X, v1.Y, 1,
		})
	}
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, errors.New("failed to factorize constraint matrix")
	}
	var v mat.Dense
	svd.VTo(&v)
	essMat := mat.NewDense(3, 3, nil)
	for i := 0; i < 9; i++ {
		essMat.Set(i/3, i%3, v.At(i, 8))
	}
	return enforceEssentialStructure(essMat)
}

// enforceEssentialStructure projects a 3x3 matrix onto the essential
// manifold by replacing its singular values with (1, 1, 0).
func enforceEssentialStructure(essMat *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(essMat, mat.SVDFull); !ok {
		return nil, errors.New("failed to factorize essential matrix")
	}
	var u, v, vt mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vt.CloneFrom(v.T())

	s := mat.NewDense(3, 3, nil)
	s.Set(0, 0, 1)
	s.Set(1, 1, 1)

	var out mat.Dense
	out.Mul(&u, s)
	out.Mul(&out, &vt)
	return mat.DenseCopyOf(&out), nil
}

// SampsonError returns the first-order geometric epipolar error of a
// normalized correspondence under essential matrix e.
func SampsonError(e *mat.Dense, p1, p2 r2.Point) float64 {
	x1 := [3]float64{p1.X, p1.Y, 1}
	x2 := [3]float64{p2.X, p2.Y, 1}
	var ex1, etx2 [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			ex1[i] += e.At(i, j) * x1[j]
			etx2[i] += e.At(j, i) * x2[j]
		}
	}
	c := x2[0]*ex1[0] + x2[1]*ex1[1] + x2[2]*ex1[2]
	d := ex1[0]*ex1[0] + ex1[1]*ex1[1] + etx2[0]*etx2[0] + etx2[1]*etx2[1]
	if d == 0 {
		return math.Inf(1)
	}
	return math.Abs(c) / math.Sqrt(d)
}

// EssentialFromPose builds the essential matrix [t]x * R of a candidate pose.
func EssentialFromPose(r *mat.Dense, t r3.Vector) *mat.Dense {
	var e mat.Dense
	e.Mul(skew(t), r)
	return mat.DenseCopyOf(&e)
}

// skew returns the cross-product matrix of v.
func skew(v r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// eye3 creates a 3x3 identity matrix.
func eye3() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		m.Set(i, i, 1)
	}
	return m
}
