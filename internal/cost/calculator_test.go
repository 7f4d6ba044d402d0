package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadgen-cli/internal/config"
)

func TestCredits(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(Rates{ApolloPerCredit: 0.25})

	tests := []struct {
		name string
		n    int
		want float64
	}{
		{"none", 0, 0},
		{"negative", -3, 0},
		{"one", 1, 0.25},
		{"budget", 50, 12.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Credits(tt.n), 1e-9)
		})
	}
}

func TestPlacesRequests(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(DefaultRates())

	assert.InDelta(t, 0.32, calc.PlacesRequests(10), 1e-9)
	assert.Zero(t, calc.PlacesRequests(0))
}

func TestNilCalculator(t *testing.T) {
	t.Parallel()
	var calc *Calculator

	assert.Zero(t, calc.Credits(5))
	assert.Zero(t, calc.PlacesRequests(5))
}

func TestFromConfig(t *testing.T) {
	t.Parallel()
	calc := FromConfig(config.PricingConfig{ApolloPerCredit: 0.1, PlacesPerRequest: 0.02})

	assert.InDelta(t, 0.3, calc.Credits(3), 1e-9)
	assert.InDelta(t, 0.04, calc.PlacesRequests(2), 1e-9)
}
