// Package estimation orchestrates two-view relative pose estimation: it
// resolves the algorithm, validates the sample, dispatches to the direct or
// robust solver path, feeds the inlier classification back into the shared
// correspondence set, optionally refines the pose and converts it to the
// canonical convention.
package estimation

import (
	"context"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/sfmkit/relpose/camera"
	"github.com/sfmkit/relpose/matches"
	"github.com/sfmkit/relpose/pose"
	"github.com/sfmkit/relpose/solver"
)

// Failure kinds. Run returns a nil pose wrapped around exactly one of these;
// no other failure signal crosses the package boundary. A caller seeing a
// nil result should treat the view pair as currently unposeable and may
// retry with relaxed thresholds or skip the pair.
var (
	// ErrInvalidInput means a required data handle is absent or empty.
	ErrInvalidInput = errors.New("invalid input data")
	// ErrInsufficientSamples means the correspondence count is below the
	// algorithm's minimal requirement.
	ErrInsufficientSamples = errors.New("insufficient matches")
	// ErrNoPoseFound means the solver produced no usable candidates or
	// found no consensus.
	ErrNoPoseFound = errors.New("no valid poses found")
	// ErrInvalidPose means the candidate pose failed the sanity check.
	ErrInvalidPose = errors.New("invalid pose estimated")
)

// Estimator runs the two-view relative pose pipeline over a correspondence
// set. It holds no mutable cross-call state and is safe for concurrent Run
// calls on disjoint correspondence sets.
type Estimator struct {
	backend solver.Backend
	logger  golog.Logger
}

// NewEstimator returns an estimator backed by the given solver.
func NewEstimator(backend solver.Backend, logger golog.Logger) *Estimator {
	return &Estimator{backend: backend, logger: logger}
}

// Run estimates the relative pose between the two views configured in opts.
// On success, the inlier flags of set reflect the recovered transform: all
// true on the direct path, the consensus mask on the robust path. On an
// insufficient sample, every correspondence is marked outlier before
// returning. Refinement failure is non-fatal and degrades to the unrefined
// pose.
func (e *Estimator) Run(ctx context.Context, set matches.Set, features matches.FeatureStore,
	cameras camera.ModelStore, opts Options,
) (*pose.RelativePose, error) {
	ctx, span := trace.StartSpan(ctx, "estimation::Run")
	defer span.End()

	if set == nil || features == nil || cameras == nil {
		return nil, errors.Wrap(ErrInvalidInput, "missing data handle")
	}
	if len(set) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "empty sample data")
	}

	viewI := opts.Int("view_i", 0)
	viewJ := opts.Int("view_j", 1)
	algorithm, info := LookupAlgorithm(opts.String("algorithm", DefaultAlgorithm), e.logger)

	if len(set) < info.MinSamples {
		set.MarkAll(false)
		return nil, errors.Wrapf(ErrInsufficientSamples,
			"algorithm %s: got %d, need at least %d", algorithm, len(set), info.MinSamples)
	}
	e.logger.Debugw("estimating relative pose",
		"algorithm", algorithm, "matches", len(set), "min_required", info.MinSamples)

	pts1, pts2, err := matches.PixelPairs(set, features, viewI, viewJ)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}
	cam1, err := cameras.Intrinsics(viewI)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}
	cam2, err := cameras.Intrinsics(viewJ)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidInput, err.Error())
	}

	var best *pose.Candidate
	if info.Robust {
		best, err = e.runRobust(ctx, set, pts1, pts2, cam1, cam2, opts)
	} else {
		best, err = e.runDirect(ctx, set, pts1, pts2, cam1, cam2, info, opts)
	}
	if err != nil {
		return nil, err
	}

	if err := best.CheckValid(); err != nil {
		return nil, errors.Wrap(ErrInvalidPose, err.Error())
	}

	best = e.maybeRefine(ctx, best, pts1, pts2, cam1, cam2, opts)
	return pose.NewRelativePose(best, viewI, viewJ), nil
}

// runRobust executes the consensus path and copies the inlier mask onto the
// correspondence set 1:1; on failure everything is marked outlier.
func (e *Estimator) runRobust(ctx context.Context, set matches.Set, pts1, pts2 []r2.Point,
	cam1, cam2 *camera.Intrinsics, opts Options,
) (*pose.Candidate, error) {
	_, span := trace.StartSpan(ctx, "estimation::ransac")
	defer span.End()

	ransacOpts := solver.RansacOptions{
		MaxIterations:       opts.Int("ransac_max_iterations", 1000),
		MaxEpipolarError:    opts.Float("ransac_threshold", 1e-4),
		ProgressiveSampling: opts.Bool("progressive_sampling", true),
		Seed:                int64(opts.Int("ransac_seed", 0)),
	}
	best, mask, runStats, err := e.backend.SolveRobust(pts1, pts2, cam1, cam2,
		ransacOpts, solver.DefaultBundleOptions())
	if err != nil {
		set.MarkAll(false)
		return nil, errors.Wrap(ErrNoPoseFound, err.Error())
	}
	set.ApplyMask(mask)
	e.logger.Debugw("ransac finished",
		"iterations", runStats.Iterations,
		"total_matches", len(set),
		"inliers", set.NumInliers(),
		"inlier_ratio", runStats.InlierRatio,
		"median_epipolar_error", runStats.MedianEpipolarError)
	return best, nil
}

// runDirect invokes the minimal solver once on all correspondences and
// marks every correspondence inlier on success.
func (e *Estimator) runDirect(ctx context.Context, set matches.Set, pts1, pts2 []r2.Point,
	cam1, cam2 *camera.Intrinsics, info AlgorithmInfo, opts Options,
) (*pose.Candidate, error) {
	_, span := trace.StartSpan(ctx, "estimation::direct")
	defer span.End()

	family := info.Family
	if family == solver.Family7pt {
		// the fallback silently changes the effective algorithm, so it has
		// to be asked for
		if !opts.Bool("allow_5pt_fallback", false) {
			return nil, errors.Wrap(ErrNoPoseFound,
				"no dedicated 7-point solver; set allow_5pt_fallback to degrade to the 5-point solver")
		}
		e.logger.Warnw("no dedicated 7-point solver, falling back to the 5-point solver")
		family = solver.Family5pt
	}

	x1 := make([]r3.Vector, len(pts1))
	x2 := make([]r3.Vector, len(pts2))
	for i := range pts1 {
		x1[i] = cam1.Bearing(pts1[i])
		x2[i] = cam2.Bearing(pts2[i])
	}
	cands, err := e.backend.SolveMinimal(family, x1, x2)
	if err != nil {
		return nil, errors.Wrap(ErrNoPoseFound, err.Error())
	}
	if len(cands) == 0 {
		return nil, errors.Wrap(ErrNoPoseFound, "solver returned no candidates")
	}
	// the direct path assumes consensus already holds, so the first
	// candidate wins and every correspondence is an inlier
	set.MarkAll(true)
	e.logger.Debugw("direct estimation finished", "total_matches", len(set), "candidates", len(cands))
	return cands[0], nil
}

// maybeRefine re-optimizes the pose when refinement is requested. Failure
// is non-fatal: the unrefined pose is returned unchanged.
func (e *Estimator) maybeRefine(ctx context.Context, best *pose.Candidate, pts1, pts2 []r2.Point,
	cam1, cam2 *camera.Intrinsics, opts Options,
) *pose.Candidate {
	loss, requested := refineLoss(opts.String("refine_model", "none"))
	if !requested {
		return best
	}
	_, span := trace.StartSpan(ctx, "estimation::refinement")
	defer span.End()

	bundleOpts := solver.BundleOptions{
		MaxIterations: opts.Int("max_iterations", 100),
		Loss:          loss,
		LossScale:     opts.Float("loss_scale", 1.0),
	}
	n1 := make([]r2.Point, len(pts1))
	n2 := make([]r2.Point, len(pts2))
	for i := range pts1 {
		n1[i] = cam1.NormalizedCoords(pts1[i])
		n2[i] = cam2.NormalizedCoords(pts2[i])
	}
	refined, err := e.backend.Refine(n1, n2, best, bundleOpts)
	if err != nil {
		e.logger.Errorw("model refinement failed, keeping unrefined pose", "error", err)
		return best
	}
	if err := refined.CheckValid(); err != nil {
		e.logger.Errorw("refined pose is degenerate, keeping unrefined pose", "error", err)
		return best
	}
	e.logger.Debug("model refinement completed")
	return refined
}

// refineLoss maps a refine_model option value to the refinement loss.
// bundle_adjust uses the bounded-influence Cauchy loss, nonlinear the plain
// quadratic one; anything else skips refinement.
func refineLoss(method string) (solver.LossType, bool) {
	switch {
	case strings.EqualFold(method, "bundle_adjust"):
		return solver.CauchyLoss, true
	case strings.EqualFold(method, "nonlinear"):
		return solver.TrivialLoss, true
	default:
		return solver.TrivialLoss, false
	}
}
