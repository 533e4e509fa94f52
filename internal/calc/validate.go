package calc

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/Dan9191/reasonable-comp/internal/models"
)

// RoleMixTolerance is how far the role shares may drift from 1.0
const RoleMixTolerance = 1e-6

// Validate checks every input constraint and reports all failures at once
func Validate(req models.CalcRequest) error {
	var problems []models.FieldProblem
	add := func(field, format string, args ...any) {
		problems = append(problems, models.FieldProblem{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(req.Client.Name) == "" {
		add("client.name", "must not be empty")
	}
	if !isStateCode(req.Client.State) {
		add("client.state", "must be a two-letter state code, got %q", req.Client.State)
	}

	if !finite(req.Financials.Revenue) || req.Financials.Revenue < 0 {
		add("financials.revenue", "must be zero or greater")
	}
	if !finite(req.Financials.NetProfit) {
		add("financials.netProfit", "must be a finite number")
	}

	if !finite(req.Owner.HoursPerWeek) || req.Owner.HoursPerWeek <= 0 {
		add("owner.hoursPerWeek", "must be greater than zero")
	}
	if !finite(req.Owner.ExperienceYears) || req.Owner.ExperienceYears < 0 {
		add("owner.experienceYears", "must be zero or greater")
	}

	if req.Company.Employees < 0 {
		add("company.employees", "must be zero or greater")
	}

	validateRoleMix(req.RoleMix, add)

	if !finite(req.Benefits.EstimatedAnnual) || req.Benefits.EstimatedAnnual < 0 {
		add("benefits.estimatedAnnual", "must be zero or greater")
	}

	if cost, ok := req.Method().(models.CostApproach); ok {
		if !finite(cost.HourlyRate) || cost.HourlyRate <= 0 {
			add("costApproach.hourlyRate", "must be greater than zero")
		}
		if !inPercentRange(cost.OverheadPercentage) {
			add("costApproach.overheadPercentage", "must be between 0 and 100")
		}
		if !inPercentRange(cost.ProfitMargin) {
			add("costApproach.profitMargin", "must be between 0 and 100")
		}
	}

	if len(problems) > 0 {
		return &models.ValidationError{Problems: problems}
	}
	return nil
}

func validateRoleMix(mix models.RoleMix, add func(field, format string, args ...any)) {
	if len(mix) == 0 {
		add("roleMix", "at least one role share is required")
		return
	}
	sharesOK := true
	for _, role := range slices.Sorted(maps.Keys(mix)) {
		share := mix[role]
		if !role.Valid() {
			add("roleMix."+string(role), "unknown role")
			sharesOK = false
			continue
		}
		if !finite(share) || share < 0 || share > 1 {
			add("roleMix."+string(role), "share must be between 0 and 1, got %v", share)
			sharesOK = false
		}
	}
	if !sharesOK {
		return
	}
	if total := mix.Total(); math.Abs(total-1) > RoleMixTolerance {
		add("roleMix", "shares must sum to 1.0, got %.6f", total)
	}
}

func isStateCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

func inPercentRange(v float64) bool {
	return finite(v) && v >= 0 && v <= 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
