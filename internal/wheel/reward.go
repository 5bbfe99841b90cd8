package wheel

import "github.com/shopspring/decimal"

// ApplyMultiplier scales a reward amount. It runs after selection and never
// touches the odds. A zero multiplier means "unset" and leaves the amount as is.
func ApplyMultiplier(amount, multiplier decimal.Decimal) decimal.Decimal {
	if multiplier.IsZero() {
		return amount
	}
	return amount.Mul(multiplier)
}
