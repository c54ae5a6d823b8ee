package pricing

// Variable pricing tables for the shipped video models (USD).
// Table prices are defined with audio included; the audio add-on is what
// gets subtracted when audio is turned off. A combination missing from a
// table means the model does not offer it at that configuration and the
// resolver falls back to the model's flat base cost. Labels must match the
// catalog option lists exactly; there is no normalization.

import "github.com/shopspring/decimal"

// Key identifies one priced configuration. Using a comparable struct instead
// of concatenated string keys makes a label mismatch a lookup miss, not a
// silently wrong price.
type Key struct {
	Aspect     string
	Resolution string
	Seconds    int
}

type Table struct {
	Variable    map[Key]decimal.Decimal
	AudioAddon  map[int]decimal.Decimal
	MotionRates map[string]decimal.Decimal
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var tables = map[string]*Table{
	"veo-3": {
		Variable: map[Key]decimal.Decimal{
			{Aspect: "16:9", Resolution: "720p", Seconds: 4}:  d("2.00"),
			{Aspect: "16:9", Resolution: "720p", Seconds: 8}:  d("4.00"),
			{Aspect: "16:9", Resolution: "1080p", Seconds: 4}: d("3.00"),
			{Aspect: "16:9", Resolution: "1080p", Seconds: 8}: d("6.00"),
			{Aspect: "9:16", Resolution: "720p", Seconds: 4}:  d("2.00"),
			{Aspect: "9:16", Resolution: "720p", Seconds: 8}:  d("4.00"),
			// 9:16 at 1080p is not offered; resolver falls back to base cost.
		},
		AudioAddon: map[int]decimal.Decimal{
			4: d("0.25"),
			8: d("0.50"),
		},
	},

	"kling-2.1": {
		Variable: map[Key]decimal.Decimal{
			{Aspect: "16:9", Resolution: "720p", Seconds: 5}:   d("1.40"),
			{Aspect: "16:9", Resolution: "720p", Seconds: 10}:  d("2.80"),
			{Aspect: "16:9", Resolution: "1080p", Seconds: 5}:  d("2.10"),
			{Aspect: "16:9", Resolution: "1080p", Seconds: 10}: d("4.20"),
			{Aspect: "9:16", Resolution: "720p", Seconds: 5}:   d("1.40"),
			{Aspect: "9:16", Resolution: "720p", Seconds: 10}:  d("2.80"),
			{Aspect: "9:16", Resolution: "1080p", Seconds: 5}:  d("2.10"),
			{Aspect: "9:16", Resolution: "1080p", Seconds: 10}: d("4.20"),
			{Aspect: "1:1", Resolution: "720p", Seconds: 5}:    d("1.40"),
			{Aspect: "1:1", Resolution: "720p", Seconds: 10}:   d("2.80"),
			// 1:1 at 1080p is not offered.
		},
		MotionRates: map[string]decimal.Decimal{
			"standard": d("0.08"),
			"pro":      d("0.15"),
		},
	},

	"seedance-1.0": {
		Variable: map[Key]decimal.Decimal{
			{Aspect: "16:9", Resolution: "480p", Seconds: 5}:   d("0.75"),
			{Aspect: "16:9", Resolution: "480p", Seconds: 10}:  d("1.50"),
			{Aspect: "16:9", Resolution: "720p", Seconds: 5}:   d("1.20"),
			{Aspect: "16:9", Resolution: "720p", Seconds: 10}:  d("2.40"),
			{Aspect: "16:9", Resolution: "1080p", Seconds: 5}:  d("2.40"),
			{Aspect: "16:9", Resolution: "1080p", Seconds: 10}: d("4.80"),
			{Aspect: "9:16", Resolution: "480p", Seconds: 5}:   d("0.75"),
			{Aspect: "9:16", Resolution: "480p", Seconds: 10}:  d("1.50"),
			{Aspect: "9:16", Resolution: "720p", Seconds: 5}:   d("1.20"),
			{Aspect: "9:16", Resolution: "720p", Seconds: 10}:  d("2.40"),
			{Aspect: "9:16", Resolution: "1080p", Seconds: 5}:  d("2.40"),
			{Aspect: "9:16", Resolution: "1080p", Seconds: 10}: d("4.80"),
			{Aspect: "1:1", Resolution: "480p", Seconds: 5}:    d("0.75"),
			{Aspect: "1:1", Resolution: "480p", Seconds: 10}:   d("1.50"),
			{Aspect: "1:1", Resolution: "720p", Seconds: 5}:    d("1.20"),
			{Aspect: "1:1", Resolution: "720p", Seconds: 10}:   d("2.40"),
			// 1:1 at 1080p is not offered.
		},
	},

	"wan-2.2": {
		MotionRates: map[string]decimal.Decimal{
			"standard": d("0.05"),
		},
	},

	// hailuo-02 is flat-priced and intentionally has no table.
}

// TableFor returns the compiled-in pricing table for a model.
func TableFor(model string) (*Table, bool) {
	t, ok := tables[model]
	return t, ok
}

// HasVariablePricing reports whether a model has per-configuration pricing.
func HasVariablePricing(model string) bool {
	t, ok := tables[model]
	return ok && len(t.Variable) > 0
}
