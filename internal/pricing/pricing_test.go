package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBase(t *testing.T) {
	got := Base(decimal.RequireFromString("75.50"), 4)
	assert.True(t, got.Equal(decimal.RequireFromString("302.00")), "got %s", got)
}

func TestTotal(t *testing.T) {
	tests := []struct {
		name         string
		unitPrice    string
		participants int
		discount     string
		want         string
	}{
		{"no discount", "89.99", 2, "0", "179.98"},
		{"percentage discount", "89.99", 2, "18.00", "161.98"},
		{"discount equals base", "25.00", 2, "50.00", "0"},
		{"discount exceeds base clamps to zero", "25.00", 1, "100.00", "0"},
		{"single participant", "35.00", 1, "0", "35.00"},
		{"fractional discount rounds to cents", "33.33", 3, "0.006", "99.98"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Total(
				decimal.RequireFromString(tt.unitPrice),
				tt.participants,
				decimal.RequireFromString(tt.discount),
			)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"Total() = %s, want %s", got, tt.want)
		})
	}
}

func TestTotalNeverNegative(t *testing.T) {
	got := Total(decimal.RequireFromString("10.00"), 1, decimal.RequireFromString("999.99"))
	assert.False(t, got.IsNegative())
	assert.True(t, got.IsZero())
}
