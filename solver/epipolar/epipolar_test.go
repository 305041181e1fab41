package epipolar

import (
	"math"
	"math/rand"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/sfmkit/relpose/camera"
	"github.com/sfmkit/relpose/pose"
	"github.com/sfmkit/relpose/solver"
)

// groundTruthPose is a small rotation about y with a sideways translation.
func groundTruthPose() (*mat.Dense, r3.Vector) {
	theta := 0.08
	c, s := math.Cos(theta), math.Sin(theta)
	r := mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
	return r, r3.Vector{X: 0.5, Y: 0.1, Z: 0.2}
}

// syntheticScene projects n random 3D points in front of both cameras into
// pixel coordinates of the two views.
func syntheticScene(n int, cam *camera.Intrinsics) ([]r2.Point, []r2.Point) {
	r, t := groundTruthPose()
	rnd := rand.New(rand.NewSource(42))
	pts1 := make([]r2.Point, n)
	pts2 := make([]r2.Point, n)
	for i := 0; i < n; i++ {
		p1 := r3.Vector{
			X: -2 + 4*rnd.Float64(),
			Y: -1.5 + 3*rnd.Float64(),
			Z: 4 + 4*rnd.Float64(),
		}
		p2 := rotateVec(r, p1).Add(t)
		pts1[i] = cam.PointToPixel(p1)
		pts2[i] = cam.PointToPixel(p2)
	}
	return pts1, pts2
}

func testIntrinsics() *camera.Intrinsics {
	return &camera.Intrinsics{Fx: 700, Fy: 700, Ppx: 320, Ppy: 240}
}

func normalizeAll(cam *camera.Intrinsics, pts []r2.Point) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		out[i] = cam.NormalizedCoords(pt)
	}
	return out
}

func TestComputeEssentialMatrix(t *testing.T) {
	cam := testIntrinsics()
	pts1, pts2 := syntheticScene(12, cam)
	n1 := normalizeAll(cam, pts1)
	n2 := normalizeAll(cam, pts2)

	essMat, err := ComputeEssentialMatrix(n1, n2)
	test.That(t, err, test.ShouldBeNil)
	for i := range n1 {
		test.That(t, SampsonError(essMat, n1[i], n2[i]), test.ShouldAlmostEqual, 0, 1e-6)
	}
}

func TestComputeEssentialMatrixTooFewPoints(t *testing.T) {
	cam := testIntrinsics()
	pts1, pts2 := syntheticScene(5, cam)
	_, err := ComputeEssentialMatrix(normalizeAll(cam, pts1), normalizeAll(cam, pts2))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPossiblePosesCheirality(t *testing.T) {
	cam := testIntrinsics()
	r, tVec := groundTruthPose()
	pts1, pts2 := syntheticScene(15, cam)
	x1 := normalizedToBearings(normalizeAll(cam, pts1))
	x2 := normalizedToBearings(normalizeAll(cam, pts2))

	cands, err := PossiblePoses(EssentialFromPose(r, tVec))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cands, test.ShouldHaveLength, 4)

	best := BestCheiralityPose(cands, x1, x2)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, best.R.At(i, j), test.ShouldAlmostEqual, r.At(i, j), 1e-8)
		}
	}
	// translation comes back as a unit direction with the correct sign
	test.That(t, best.T.Norm(), test.ShouldAlmostEqual, 1, 1e-8)
	test.That(t, best.T.Dot(tVec.Normalize()), test.ShouldAlmostEqual, 1, 1e-8)
}

func TestSolveMinimal(t *testing.T) {
	cam := testIntrinsics()
	r, tVec := groundTruthPose()
	pts1, pts2 := syntheticScene(12, cam)
	x1 := normalizedToBearings(normalizeAll(cam, pts1))
	x2 := normalizedToBearings(normalizeAll(cam, pts2))

	s := NewSolver(golog.NewTestLogger(t))
	cands, err := s.SolveMinimal(solver.Family8pt, x1, x2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(cands), test.ShouldBeGreaterThan, 0)

	best := cands[0]
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, best.R.At(i, j), test.ShouldAlmostEqual, r.At(i, j), 1e-6)
		}
	}
	test.That(t, best.T.Dot(tVec.Normalize()), test.ShouldAlmostEqual, 1, 1e-6)
}

func TestSolveRobust(t *testing.T) {
	cam := testIntrinsics()
	r, tVec := groundTruthPose()
	pts1, pts2 := syntheticScene(20, cam)
	// corrupt a few correspondences well beyond the threshold
	outliers := map[int]bool{10: true, 13: true, 16: true, 19: true}
	for i := range outliers {
		pts2[i].X += 40
		pts2[i].Y -= 25
	}

	s := NewSolver(golog.NewTestLogger(t))
	ransacOpts := solver.DefaultRansacOptions()
	ransacOpts.Seed = 7
	best, mask, runStats, err := s.SolveRobust(pts1, pts2, cam, cam, ransacOpts, solver.DefaultBundleOptions())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask, test.ShouldHaveLength, 20)
	for i, inlier := range mask {
		test.That(t, inlier, test.ShouldEqual, !outliers[i])
	}
	test.That(t, runStats.InlierRatio, test.ShouldAlmostEqual, 16.0/20.0, 1e-12)
	test.That(t, runStats.Iterations, test.ShouldBeGreaterThan, 0)
	test.That(t, runStats.MedianEpipolarError, test.ShouldBeLessThan, ransacOpts.MaxEpipolarError)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, best.R.At(i, j), test.ShouldAlmostEqual, r.At(i, j), 1e-3)
		}
	}
	test.That(t, best.T.Normalize().Dot(tVec.Normalize()), test.ShouldAlmostEqual, 1, 1e-3)
}

func TestSolveRobustNoConsensus(t *testing.T) {
	cam := testIntrinsics()
	// pure noise, no epipolar geometry to find under a tight threshold
	rnd := rand.New(rand.NewSource(3))
	pts1 := make([]r2.Point, 12)
	pts2 := make([]r2.Point, 12)
	for i := range pts1 {
		pts1[i] = r2.Point{X: 640 * rnd.Float64(), Y: 480 * rnd.Float64()}
		pts2[i] = r2.Point{X: 640 * rnd.Float64(), Y: 480 * rnd.Float64()}
	}
	s := NewSolver(golog.NewTestLogger(t))
	ransacOpts := solver.DefaultRansacOptions()
	ransacOpts.Seed = 3
	ransacOpts.MaxIterations = 50
	ransacOpts.MaxEpipolarError = 1e-9
	_, _, _, err := s.SolveRobust(pts1, pts2, cam, cam, ransacOpts, solver.DefaultBundleOptions())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRefine(t *testing.T) {
	cam := testIntrinsics()
	r, tVec := groundTruthPose()
	pts1, pts2 := syntheticScene(15, cam)
	n1 := normalizeAll(cam, pts1)
	n2 := normalizeAll(cam, pts2)

	s := NewSolver(golog.NewTestLogger(t))
	start := pose.NewCandidate(r, tVec)
	opts := solver.BundleOptions{MaxIterations: 50, Loss: solver.CauchyLoss, LossScale: 1.0}
	refined, err := s.Refine(n1, n2, start, opts)
	test.That(t, err, test.ShouldBeNil)

	// the correction is small, the rotation stays orthonormal and the
	// refined pose scores no worse than the initial one
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, refined.R.At(i, j), test.ShouldAlmostEqual, r.At(i, j), 0.05)
		}
	}
	var rtr mat.Dense
	rtr.Mul(refined.R.T(), refined.R)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			test.That(t, rtr.At(i, j), test.ShouldAlmostEqual, want, 1e-9)
		}
	}
	test.That(t, totalSampson(refined, n1, n2, opts), test.ShouldBeLessThanOrEqualTo,
		totalSampson(start, n1, n2, opts)+1e-12)
}

func TestRefineBadInput(t *testing.T) {
	s := NewSolver(golog.NewTestLogger(t))
	_, err := s.Refine(nil, nil, nil, solver.DefaultBundleOptions())
	test.That(t, err, test.ShouldNotBeNil)

	r, tVec := groundTruthPose()
	_, err = s.Refine([]r2.Point{}, []r2.Point{}, pose.NewCandidate(r, tVec), solver.DefaultBundleOptions())
	test.That(t, err, test.ShouldNotBeNil)
}

// totalSampson sums the refinement loss of a candidate over the given
// normalized correspondences.
func totalSampson(c *pose.Candidate, n1, n2 []r2.Point, opts solver.BundleOptions) float64 {
	essMat := EssentialFromPose(c.R, c.T)
	total := 0.0
	for i := range n1 {
		total += lossValue(opts, SampsonError(essMat, n1[i], n2[i]))
	}
	return total
}
