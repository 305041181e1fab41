package matches

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// FeatureStore gives access to the detected 2D feature locations of each view.
type FeatureStore interface {
	FeaturePoints(view int) ([]r2.Point, error)
}

// StaticFeatures is an in-memory FeatureStore backed by a map from view id
// to its feature locations.
type StaticFeatures map[int][]r2.Point

// FeaturePoints returns the feature locations stored for the given view.
func (s StaticFeatures) FeaturePoints(view int) ([]r2.Point, error) {
	pts, ok := s[view]
	if !ok {
		return nil, errors.Errorf("no features for view %d", view)
	}
	return pts, nil
}

// PixelPairs resolves a correspondence set into two equal-length pixel
// coordinate slices, one per view.
func PixelPairs(s Set, store FeatureStore, viewI, viewJ int) ([]r2.Point, []r2.Point, error) {
	fi, err := store.FeaturePoints(viewI)
	if err != nil {
		return nil, nil, err
	}
	fj, err := store.FeaturePoints(viewJ)
	if err != nil {
		return nil, nil, err
	}
	pts1 := make([]r2.Point, 0, len(s))
	pts2 := make([]r2.Point, 0, len(s))
	for _, c := range s {
		if c.I < 0 || c.I >= len(fi) || c.J < 0 || c.J >= len(fj) {
			return nil, nil, errors.Errorf("correspondence (%d, %d) out of feature range (%d, %d)",
				c.I, c.J, len(fi), len(fj))
		}
		pts1 = append(pts1, fi[c.I])
		pts2 = append(pts2, fj[c.J])
	}
	return pts1, pts2, nil
}
