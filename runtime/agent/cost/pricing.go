package cost

// Pricing holds per-1k-token USD rates for a single model. Implementers adding a
// new model must preserve this four-field shape so downstream cost math never
// needs a type switch on pricing structure.
type Pricing struct {
	InputPer1K       float64
	OutputPer1K      float64
	CacheReadPer1K   float64
	CacheCreatePer1K float64
}

// defaultPricing is the Sonnet-class fallback applied to any model id not present
// in pricingTable.
var defaultPricing = Pricing{
	InputPer1K:       0.003,
	OutputPer1K:      0.015,
	CacheReadPer1K:   0.0003,
	CacheCreatePer1K: 0.00375,
}

// pricingTable is seeded from the known Anthropic model family; callers on other
// providers fall back to defaultPricing via PricingFor.
var pricingTable = map[string]Pricing{
	"claude-sonnet-4-20250514": {
		InputPer1K: 0.003, OutputPer1K: 0.015,
		CacheReadPer1K: 0.0003, CacheCreatePer1K: 0.00375,
	},
	"claude-3-5-sonnet-20241022": {
		InputPer1K: 0.003, OutputPer1K: 0.015,
		CacheReadPer1K: 0.0003, CacheCreatePer1K: 0.00375,
	},
	"claude-3-opus-20240229": {
		InputPer1K: 0.015, OutputPer1K: 0.075,
		CacheReadPer1K: 0.0015, CacheCreatePer1K: 0.01875,
	},
	"claude-3-haiku-20240307": {
		InputPer1K: 0.00025, OutputPer1K: 0.00125,
		CacheReadPer1K: 0.000025, CacheCreatePer1K: 0.0003125,
	},
}

// PricingFor returns the pricing entry for model, or the Sonnet-class default
// when model is unknown.
func PricingFor(model string) Pricing {
	if p, ok := pricingTable[model]; ok {
		return p
	}
	return defaultPricing
}

// RegisterPricing adds or overrides the pricing entry for model. Intended for
// callers wiring in new model releases without a code change to this package.
func RegisterPricing(model string, p Pricing) {
	pricingTable[model] = p
}
