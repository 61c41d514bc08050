package recommend

import "math"

// minPremium is the floor for the simplified premium estimate
const minPremium = 0.5

// estimatePremium is a deliberately rough option premium:
// intrinsic + sqrt(timeToExpiry) * fear/100 * underlying * 0.4,
// clamped to a minimum of 0.5. It is good enough to anchor entry levels in
// a recommendation; it is not a pricing model.
func estimatePremium(underlying, strike float64, isPut bool, impliedFear float64, daysToExpiry int) float64 {
	intrinsic := underlying - strike
	if isPut {
		intrinsic = strike - underlying
	}
	if intrinsic < 0 {
		intrinsic = 0
	}

	t := float64(daysToExpiry) / 365.0
	premium := intrinsic + math.Sqrt(t)*impliedFear/100*underlying*0.4

	if premium < minPremium {
		return minPremium
	}
	return premium
}
