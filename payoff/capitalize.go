package payoff

import "math"

// Capitalization rolls a cash flow paid at flowDate forward to maturity.
type Capitalization func(amount, flowDate float64) float64

// Capitalize returns the capitalization at the flat rate r up to maturity T.
func Capitalize(r, T float64) Capitalization {
	return func(amount, flowDate float64) float64 {
		if amount == 0 {
			return 0
		}
		return amount * math.Exp(r*(T-flowDate))
	}
}

// Value capitalizes the flow of a path to maturity. It is zero when nothing is paid.
func Value(o Option, amount float64, payIndex int, capitalize Capitalization) float64 {
	if payIndex == NoPayment {
		return 0
	}
	return capitalize(amount, o.Dates()[payIndex])
}
