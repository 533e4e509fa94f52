package calc

import (
	"math"

	"github.com/Dan9191/reasonable-comp/internal/models"
)

// ExperienceFactor maps years of experience to a multiplier
func ExperienceFactor(years float64) float64 {
	switch {
	case years <= 2:
		return 0.92
	case years <= 5:
		return 0.97
	case years <= 10:
		return 1.03
	case years <= 20:
		return 1.08
	default:
		return 1.12
	}
}

// CompanySizeFactor maps headcount to a multiplier
func CompanySizeFactor(employees int) float64 {
	switch {
	case employees == 0:
		return 0.95
	case employees <= 5:
		return 1.00
	case employees <= 20:
		return 1.05
	default:
		return 1.08
	}
}

// RevenueSignalFactor maps annual revenue to a multiplier
func RevenueSignalFactor(revenue float64) float64 {
	switch {
	case revenue < 200_000:
		return 0.95
	case revenue < 500_000:
		return 1.00
	case revenue < 1_500_000:
		return 1.03
	case revenue < 3_000_000:
		return 1.06
	default:
		return 1.08
	}
}

// HoursNorm scales by hours against a 40 hour week, clamped to [0.85, 1.10]
func HoursNorm(hoursPerWeek float64) float64 {
	return math.Min(1.10, math.Max(0.85, hoursPerWeek/40))
}

// BuildModifiers derives all four modifiers from a request
func BuildModifiers(req models.CalcRequest) models.Modifiers {
	return models.Modifiers{
		Experience:    ExperienceFactor(req.Owner.ExperienceYears),
		CompanySize:   CompanySizeFactor(req.Company.Employees),
		RevenueSignal: RevenueSignalFactor(req.Financials.Revenue),
		HoursNorm:     HoursNorm(req.Owner.HoursPerWeek),
	}
}
