package camera

import "github.com/pkg/errors"

// ModelStore looks up camera intrinsics by view id.
type ModelStore interface {
	Intrinsics(view int) (*Intrinsics, error)
}

// StaticModels is an in-memory ModelStore backed by a map from view id to intrinsics.
type StaticModels map[int]*Intrinsics

// Intrinsics returns the intrinsics stored for the given view.
func (s StaticModels) Intrinsics(view int) (*Intrinsics, error) {
	params, ok := s[view]
	if !ok || params == nil {
		return nil, errors.Wrapf(ErrNoIntrinsics, "view %d", view)
	}
	return params, nil
}
