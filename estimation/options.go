package estimation

import "github.com/spf13/cast"

// Options is the string-keyed configuration bag handed to Run. Recognized
// keys: algorithm, refine_model, ransac_max_iterations, ransac_threshold,
// ransac_seed, progressive_sampling, max_iterations, loss_scale, view_i,
// view_j, allow_5pt_fallback. Unknown keys are ignored; values that cannot
// be coerced fall back to the given default.
type Options map[string]interface{}

// String returns the option under key as a string.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return s
}

// Int returns the option under key as an int.
func (o Options) Int(key string, def int) int {
	v, ok := o[key]
	if !ok {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

// Float returns the option under key as a float64.
func (o Options) Float(key string, def float64) float64 {
	v, ok := o[key]
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// Bool returns the option under key as a bool.
func (o Options) Bool(key string, def bool) bool {
	v, ok := o[key]
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}
