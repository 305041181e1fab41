package estimation

import (
	"strings"

	"github.com/edaniels/golog"

	"github.com/sfmkit/relpose/solver"
)

// DefaultAlgorithm is used when no algorithm option is given or the given
// identifier is not recognized.
const DefaultAlgorithm = "relpose_5pt"

// AlgorithmInfo describes one entry of the algorithm catalog.
type AlgorithmInfo struct {
	Family     solver.Family
	MinSamples int
	Robust     bool
}

var algorithmCatalog = map[string]AlgorithmInfo{
	"relpose_upright_3pt":               {solver.FamilyUpright3pt, 3, false},
	"relpose_upright_3pt_ransac":        {solver.FamilyUpright3pt, 3, true},
	"relpose_upright_planar_3pt":        {solver.FamilyUprightPlanar3pt, 3, false},
	"relpose_upright_planar_3pt_ransac": {solver.FamilyUprightPlanar3pt, 3, true},
	"relpose_5pt":                       {solver.Family5pt, 5, false},
	"relpose_5pt_ransac":                {solver.Family5pt, 5, true},
	"relpose_7pt":                       {solver.Family7pt, 7, false},
	"relpose_7pt_ransac":                {solver.Family7pt, 7, true},
	"relpose_8pt":                       {solver.Family8pt, 8, false},
	"relpose_8pt_ransac":                {solver.Family8pt, 8, true},
}

// LookupAlgorithm resolves an algorithm identifier to its catalog entry. An
// unrecognized identifier resolves to the default with a diagnostic.
func LookupAlgorithm(name string, logger golog.Logger) (string, AlgorithmInfo) {
	if info, ok := algorithmCatalog[name]; ok {
		return name, info
	}
	logger.Warnw("unknown algorithm, using default", "algorithm", name, "default", DefaultAlgorithm)
	return DefaultAlgorithm, algorithmCatalog[DefaultAlgorithm]
}

// MinimumSamples returns the minimal sample count of an algorithm, or that
// of the default for an unrecognized identifier.
func MinimumSamples(algorithm string) int {
	if info, ok := algorithmCatalog[algorithm]; ok {
		return info.MinSamples
	}
	return algorithmCatalog[DefaultAlgorithm].MinSamples
}

// IsRobustAlgorithm reports whether the identifier names a sampling-based
// robust variant.
func IsRobustAlgorithm(algorithm string) bool {
	return strings.Contains(algorithm, "_ransac")
}
