package estimation

import (
	"testing"

	"go.viam.com/test"
)

func TestOptions(t *testing.T) {
	opts := Options{
		"algorithm":             "relpose_8pt",
		"ransac_max_iterations": "2000",
		"ransac_threshold":      1e-3,
		"progressive_sampling":  false,
		"view_j":                3,
	}

	test.That(t, opts.String("algorithm", DefaultAlgorithm), test.ShouldEqual, "relpose_8pt")
	test.That(t, opts.String("refine_model", "none"), test.ShouldEqual, "none")

	// string values coerce to their numeric types
	test.That(t, opts.Int("ransac_max_iterations", 1000), test.ShouldEqual, 2000)
	test.That(t, opts.Float("ransac_threshold", 1e-4), test.ShouldEqual, 1e-3)
	test.That(t, opts.Bool("progressive_sampling", true), test.ShouldBeFalse)
	test.That(t, opts.Int("view_i", 0), test.ShouldEqual, 0)
	test.That(t, opts.Int("view_j", 1), test.ShouldEqual, 3)
}

func TestOptionsBadValues(t *testing.T) {
	opts := Options{
		"ransac_max_iterations": "plenty",
		"loss_scale":            struct{}{},
		"progressive_sampling":  "not-a-bool",
	}
	test.That(t, opts.Int("ransac_max_iterations", 1000), test.ShouldEqual, 1000)
	test.That(t, opts.Float("loss_scale", 1.0), test.ShouldEqual, 1.0)
	test.That(t, opts.Bool("progressive_sampling", true), test.ShouldBeTrue)
	test.That(t, opts.String("missing", "fallback"), test.ShouldEqual, "fallback")
}
