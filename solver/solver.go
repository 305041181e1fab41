// Package solver defines the boundary to the numerical kernels behind
// two-view pose estimation: minimal solving, robust consensus estimation
// and nonlinear refinement. The estimation pipeline depends only on the
// Backend interface so that kernels can be swapped or mocked.
package solver

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/sfmkit/relpose/camera"
	"github.com/sfmkit/relpose/pose"
)

// Family enumerates the minimal-solver families a backend may implement.
type Family int

const (
	// FamilyUpright3pt is the 3-point solver assuming a gravity-aligned camera.
	FamilyUpright3pt Family = iota
	// FamilyUprightPlanar3pt additionally assumes planar motion.
	FamilyUprightPlanar3pt
	// Family5pt is the general 5-point solver.
	Family5pt
	// Family7pt is the 7-point solver.
	Family7pt
	// Family8pt is the 8-point solver.
	Family8pt
)

func (f Family) String() string {
	switch f {
	case FamilyUpright3pt:
		return "upright_3pt"
	case FamilyUprightPlanar3pt:
		return "upright_planar_3pt"
	case Family5pt:
		return "5pt"
	case Family7pt:
		return "7pt"
	case Family8pt:
		return "8pt"
	default:
		return "unknown"
	}
}

// RansacOptions bound the robust consensus loop.
type RansacOptions struct {
	MaxIterations       int     `json:"max_iterations"`
	MaxEpipolarError    float64 `json:"max_epipolar_error"`
	ProgressiveSampling bool    `json:"progressive_sampling"`
	// Seed fixes the sampling sequence; zero draws a time-based seed.
	Seed int64 `json:"seed"`
}

// DefaultRansacOptions returns the default consensus loop bounds.
func DefaultRansacOptions() RansacOptions {
	return RansacOptions{
		MaxIterations:       1000,
		MaxEpipolarError:    1e-4,
		ProgressiveSampling: true,
	}
}

// LossType selects the residual loss applied during refinement.
type LossType int

const (
	// TrivialLoss is the unbounded quadratic loss.
	TrivialLoss LossType = iota
	// CauchyLoss is a bounded-influence loss that down-weights large residuals.
	CauchyLoss
)

// BundleOptions bound the nonlinear refinement pass.
type BundleOptions struct {
	MaxIterations int      `json:"max_iterations"`
	Loss          LossType `json:"loss"`
	LossScale     float64  `json:"loss_scale"`
}

// DefaultBundleOptions returns the refinement bounds used inside the robust path.
func DefaultBundleOptions() BundleOptions {
	return BundleOptions{
		MaxIterations: 100,
		Loss:          CauchyLoss,
		LossScale:     1.0,
	}
}

// RansacStats summarizes one robust estimation run.
type RansacStats struct {
	Iterations          int
	InlierRatio         float64
	MedianEpipolarError float64
}

// Backend is the numerical kernel behind the estimation pipeline.
type Backend interface {
	// SolveMinimal runs the minimal solver of the given family once over
	// unit bearing directions and returns zero or more algebraically valid
	// candidates, best first. An empty result is a solver failure.
	SolveMinimal(family Family, x1, x2 []r3.Vector) ([]*pose.Candidate, error)

	// SolveRobust runs a random-sampling consensus loop over pixel-space
	// correspondences. Normalization with the camera intrinsics is the
	// backend's responsibility since scoring needs a geometric epipolar
	// error. It returns the best-supported pose with an inlier mask of the
	// same length as the input.
	SolveRobust(pts1, pts2 []r2.Point, cam1, cam2 *camera.Intrinsics,
		ransacOpts RansacOptions, bundleOpts BundleOptions,
	) (*pose.Candidate, []bool, RansacStats, error)

	// Refine locally re-optimizes a pose against normalized (not pixel)
	// coordinates.
	Refine(x1, x2 []r2.Point, initial *pose.Candidate, opts BundleOptions) (*pose.Candidate, error)
}
