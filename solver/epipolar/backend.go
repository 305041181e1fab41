package epipolar

import (
	"math/rand"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sfmkit/relpose/camera"
	"github.com/sfmkit/relpose/pose"
	"github.com/sfmkit/relpose/solver"
)

// Solver is the default solver.Backend, built on the linear eight-point
// kernel. It holds no mutable state across calls and is safe for concurrent
// use.
type Solver struct {
	logger golog.Logger
}

// NewSolver returns the default backend.
func NewSolver(logger golog.Logger) *Solver {
	return &Solver{logger: logger}
}

// SolveMinimal fits an essential matrix to the given bearings and expands it
// into candidate poses, ordered best-first by cheirality so that a caller
// taking the first candidate gets the physically plausible one.
//
// All families share the linear kernel, which needs at least eight input
// points; dedicated polynomial kernels for the 3- and 5-point families can
// be supplied through a different solver.Backend. The family's minimal
// sample count is gated by the caller.
func (s *Solver) SolveMinimal(family solver.Family, x1, x2 []r3.Vector) ([]*pose.Candidate, error) {
	if len(x1) != len(x2) {
		return nil, errors.New("the 2 sets of bearings don't have the same number of elements")
	}
	pts1, err := bearingsToNormalized(x1)
	if err != nil {
		return nil, err
	}
	pts2, err := bearingsToNormalized(x2)
	if err != nil {
		return nil, err
	}
	essMat, err := ComputeEssentialMatrix(pts1, pts2)
	if err != nil {
		return nil, errors.Wrapf(err, "linear kernel failed for family %s", family)
	}
	cands, err := PossiblePoses(essMat)
	if err != nil {
		return nil, err
	}
	sortByCheirality(cands, x1, x2)
	return cands, nil
}

// SolveRobust runs a bounded random-sampling consensus loop over pixel
// correspondences, scoring hypotheses by Sampson epipolar error in
// normalized coordinates, then re-fits on the winning consensus set and
// locally refines the result.
func (s *Solver) SolveRobust(pts1, pts2 []r2.Point, cam1, cam2 *camera.Intrinsics,
	ransacOpts solver.RansacOptions, bundleOpts solver.BundleOptions,
) (*pose.Candidate, []bool, solver.RansacStats, error) {
	var runStats solver.RansacStats
	if len(pts1) != len(pts2) {
		return nil, nil, runStats, errors.New("the 2 sets of points don't have the same number of elements")
	}
	n := len(pts1)
	if n < MinKernelPoints {
		return nil, nil, runStats, errors.Errorf("robust kernel needs at least %d correspondences, got %d", MinKernelPoints, n)
	}
	if ransacOpts.MaxIterations <= 0 || ransacOpts.MaxEpipolarError <= 0 {
		return nil, nil, runStats, errors.New("ransac options must have positive iteration and error bounds")
	}

	n1 := make([]r2.Point, n)
	n2 := make([]r2.Point, n)
	for i := range pts1 {
		n1[i] = cam1.NormalizedCoords(pts1[i])
		n2[i] = cam2.NormalizedCoords(pts2[i])
	}

	seed := ransacOpts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	//nolint:gosec
	rnd := rand.New(rand.NewSource(seed))

	var bestE *mat.Dense
	bestCount := 0
	idx := make([]int, MinKernelPoints)
	sample1 := make([]r2.Point, MinKernelPoints)
	sample2 := make([]r2.Point, MinKernelPoints)
	for it := 0; it < ransacOpts.MaxIterations; it++ {
		runStats.Iterations = it + 1
		window := n
		if ransacOpts.ProgressiveSampling {
			window = samplingWindow(it, ransacOpts.MaxIterations, n)
		}
		sampleDistinct(rnd, window, idx)
		for k, j := range idx {
			sample1[k] = n1[j]
			sample2[k] = n2[j]
		}
		essMat, err := ComputeEssentialMatrix(sample1, sample2)
		if err != nil {
			continue
		}
		count := 0
		for i := 0; i < n; i++ {
			if SampsonError(essMat, n1[i], n2[i]) < ransacOpts.MaxEpipolarError {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestE = essMat
		}
		if bestCount == n {
			break
		}
	}
	// the kernel fits its own sample exactly, so a model has consensus only
	// when at least one correspondence beyond the sample supports it
	if bestE == nil || bestCount <= MinKernelPoints {
		return nil, nil, runStats, errors.New("no consensus found")
	}

	// re-fit on the winning consensus set, keeping the refit only if it
	// does not lose support
	in1, in2, mask, residuals := consensusSet(bestE, n1, n2, ransacOpts.MaxEpipolarError)
	if refit, err := ComputeEssentialMatrix(in1, in2); err == nil {
		r1, r2c, refitMask, refitResiduals := consensusSet(refit, n1, n2, ransacOpts.MaxEpipolarError)
		if len(r1) >= len(in1) {
			bestE, in1, in2, mask, residuals = refit, r1, r2c, refitMask, refitResiduals
		}
	}
	runStats.InlierRatio = float64(len(in1)) / float64(n)
	if median, err := stats.Median(residuals); err == nil {
		runStats.MedianEpipolarError = median
	}

	b1 := normalizedToBearings(in1)
	b2 := normalizedToBearings(in2)
	cands, err := PossiblePoses(bestE)
	if err != nil {
		return nil, nil, runStats, err
	}
	best := BestCheiralityPose(cands, b1, b2)

	// local refinement of the consensus winner
	if refined, err := s.Refine(in1, in2, best, bundleOpts); err == nil {
		best = refined
	} else {
		s.logger.Debugw("local refinement of consensus pose failed", "error", err)
	}
	return best, mask, runStats, nil
}

// samplingWindow widens the sampled prefix from the kernel size to the full
// set over the first half of the iteration budget. The input ordering is
// assumed to rank correspondences by match confidence.
func samplingWindow(it, maxIterations, n int) int {
	ramp := maxIterations / 2
	if ramp < 1 {
		ramp = 1
	}
	window := MinKernelPoints + (n-MinKernelPoints)*it/ramp
	if window > n {
		window = n
	}
	return window
}

// sampleDistinct fills idx with distinct indices drawn from [0, window).
func sampleDistinct(rnd *rand.Rand, window int, idx []int) {
	for k := range idx {
		for {
			candidate := rnd.Intn(window)
			dup := false
			for _, prev := range idx[:k] {
				if prev == candidate {
					dup = true
					break
				}
			}
			if !dup {
				idx[k] = candidate
				break
			}
		}
	}
}

// consensusSet splits normalized correspondences by the epipolar error
// threshold, returning the inlier coordinates, the full-length mask and the
// inlier residuals.
func consensusSet(essMat *mat.Dense, n1, n2 []r2.Point, threshold float64,
) ([]r2.Point, []r2.Point, []bool, []float64) {
	mask := make([]bool, len(n1))
	var in1, in2 []r2.Point
	var residuals []float64
	for i := range n1 {
		residual := SampsonError(essMat, n1[i], n2[i])
		if residual < threshold {
			mask[i] = true
			in1 = append(in1, n1[i])
			in2 = append(in2, n2[i])
			residuals = append(residuals, residual)
		}
	}
	return in1, in2, mask, residuals
}
