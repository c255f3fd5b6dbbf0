package model

// PlanPricing is the purchasable catalog entry, priced in Pi. Served to the
// client so it never hardcodes prices when creating a payment.
type PlanPricing struct {
	Plan      Plan
	MonthlyPi float64
	YearlyPi  float64
}

// DefaultPricing mirrors the published plan catalog.
func DefaultPricing() []PlanPricing {
	return []PlanPricing{
		{Plan: PlanFree, MonthlyPi: 0, YearlyPi: 0},
		{Plan: PlanPremium, MonthlyPi: 10, YearlyPi: 100},
		{Plan: PlanPro, MonthlyPi: 30, YearlyPi: 300},
	}
}

// PriceFor returns the Pi amount for a plan/period pair, or false when the
// plan is not purchasable.
func PriceFor(plan Plan, period Period) (float64, bool) {
	for _, p := range DefaultPricing() {
		if p.Plan != plan || plan == PlanFree {
			continue
		}
		if period == PeriodYearly {
			return p.YearlyPi, true
		}
		return p.MonthlyPi, true
	}
	return 0, false
}
