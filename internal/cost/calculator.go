// Package cost estimates the USD cost of paid provider calls for run logs.
package cost

import "github.com/sells-group/leadgen-cli/internal/config"

// Rates holds per-provider pricing.
type Rates struct {
	// ApolloPerCredit is the price of one people-match reveal.
	ApolloPerCredit float64 `yaml:"apollo_per_credit" mapstructure:"apollo_per_credit"`
	// PlacesPerRequest is the price of one text search page.
	PlacesPerRequest float64 `yaml:"places_per_request" mapstructure:"places_per_request"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// FromConfig builds a Calculator from the pricing config section.
func FromConfig(p config.PricingConfig) *Calculator {
	return NewCalculator(Rates{
		ApolloPerCredit:  p.ApolloPerCredit,
		PlacesPerRequest: p.PlacesPerRequest,
	})
}

// Credits returns the cost of n reveal credits. Negative n costs nothing.
func (c *Calculator) Credits(n int) float64 {
	if c == nil || n <= 0 {
		return 0
	}
	return float64(n) * c.rates.ApolloPerCredit
}

// PlacesRequests returns the cost of n map-search requests.
func (c *Calculator) PlacesRequests(n int) float64 {
	if c == nil || n <= 0 {
		return 0
	}
	return float64(n) * c.rates.PlacesPerRequest
}

// DefaultRates returns list prices for the default plans.
func DefaultRates() Rates {
	return Rates{
		ApolloPerCredit:  0.20,
		PlacesPerRequest: 0.032,
	}
}
