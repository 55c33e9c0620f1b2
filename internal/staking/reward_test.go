package staking

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeReward(t *testing.T) {
	tests := []struct {
		amount, pct, want string
	}{
		{"100", "10", "10"},
		{"100", "5", "5"},
		{"0", "50", "0"},
		{"250", "0", "0"},
		{"33.33", "7.5", "2.499750"},
		{"0.1", "0.1", "0.0001"},
	}
	for _, tt := range tests {
		got := ComputeReward(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.pct))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"ComputeReward(%s, %s) = %s, want %s", tt.amount, tt.pct, got, tt.want)
	}
}

func TestComputeRewardDeterministic(t *testing.T) {
	a := ComputeReward(decimal.NewFromInt(100), decimal.NewFromInt(10))
	b := ComputeReward(decimal.NewFromInt(100), decimal.NewFromInt(10))
	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(decimal.NewFromInt(10)))
}

func TestComputeRewardNeverNegative(t *testing.T) {
	got := ComputeReward(decimal.NewFromInt(-100), decimal.NewFromInt(10))
	assert.True(t, got.IsZero())
}
