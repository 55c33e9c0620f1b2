package staking

import "github.com/shopspring/decimal"

// ComputeReward returns amount * pct / 100. The full percentage applies once;
// there is no compounding or time-proportional scaling. Negative results are
// clamped to zero.
func ComputeReward(amount, pct decimal.Decimal) decimal.Decimal {
	// Shift(-2) divides by 100 without rounding.
	reward := amount.Mul(pct).Shift(-2)
	if reward.IsNegative() {
		return decimal.Zero
	}
	return reward
}
