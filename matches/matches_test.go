package matches

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestMarkAll(t *testing.T) {
	set := Set{{I: 0, J: 1}, {I: 1, J: 2}, {I: 2, J: 0}}
	set.MarkAll(true)
	test.That(t, set.NumInliers(), test.ShouldEqual, 3)
	set.MarkAll(false)
	test.That(t, set.NumInliers(), test.ShouldEqual, 0)
}

func TestApplyMask(t *testing.T) {
	set := Set{{I: 0, J: 0}, {I: 1, J: 1}, {I: 2, J: 2}, {I: 3, J: 3}}
	set.MarkAll(true)

	// correspondences beyond the mask length default to outlier
	set.ApplyMask([]bool{true, false})
	test.That(t, set.InlierMask(), test.ShouldResemble, []bool{true, false, false, false})

	set.ApplyMask([]bool{false, true, true, false, true})
	test.That(t, set.InlierMask(), test.ShouldResemble, []bool{false, true, true, false})
	test.That(t, set.NumInliers(), test.ShouldEqual, 2)
}

func TestPixelPairs(t *testing.T) {
	features := StaticFeatures{
		0: {{X: 1, Y: 2}, {X: 3, Y: 4}},
		1: {{X: 5, Y: 6}, {X: 7, Y: 8}, {X: 9, Y: 10}},
	}
	set := Set{{I: 0, J: 2}, {I: 1, J: 0}}

	pts1, pts2, err := PixelPairs(set, features, 0, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pts1, test.ShouldResemble, []r2.Point{{X: 1, Y: 2}, {X: 3, Y: 4}})
	test.That(t, pts2, test.ShouldResemble, []r2.Point{{X: 9, Y: 10}, {X: 5, Y: 6}})
}

func TestPixelPairsOutOfRange(t *testing.T) {
	features := StaticFeatures{
		0: {{X: 1, Y: 2}},
		1: {{X: 5, Y: 6}},
	}
	_, _, err := PixelPairs(Set{{I: 0, J: 4}}, features, 0, 1)
	test.That(t, err, test.ShouldNotBeNil)

	_, _, err = PixelPairs(Set{{I: 0, J: 0}}, features, 0, 7)
	test.That(t, err, test.ShouldNotBeNil)
}
