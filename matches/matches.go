// Package matches holds point correspondences between the feature lists of
// two views, along with their inlier/outlier classification.
package matches

// Correspondence pairs a feature index in the first view with a feature
// index in the second. IsInlier records whether the pair is consistent with
// the most recently estimated transform.
type Correspondence struct {
	I        int  `json:"i"`
	J        int  `json:"j"`
	IsInlier bool `json:"is_inlier"`
}

// Set is an ordered collection of correspondences for one view pair.
type Set []Correspondence

// MarkAll sets the inlier flag of every correspondence in the set.
func (s Set) MarkAll(inlier bool) {
	for i := range s {
		s[i].IsInlier = inlier
	}
}

// ApplyMask copies an inlier mask onto the set index-for-index.
// Correspondences beyond the mask length are marked outlier.
func (s Set) ApplyMask(mask []bool) {
	for i := range s {
		if i < len(mask) {
			s[i].IsInlier = mask[i]
		} else {
			s[i].IsInlier = false
		}
	}
}

// NumInliers counts the correspondences currently flagged as inliers.
func (s Set) NumInliers() int {
	n := 0
	for i := range s {
		if s[i].IsInlier {
			n++
		}
	}
	return n
}

// InlierMask returns the inlier flags as a boolean sequence.
func (s Set) InlierMask() []bool {
	mask := make([]bool, len(s))
	for i := range s {
		mask[i] = s[i].IsInlier
	}
	return mask
}
