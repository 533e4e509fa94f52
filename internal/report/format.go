package report

import (
	"strings"

	"github.com/Dan9191/reasonable-comp/internal/models"
	"github.com/shopspring/decimal"
)

// Money formats whole dollars with thousands separators, e.g. $118,500
func Money(v float64) string {
	d := decimal.NewFromFloat(v).Round(0)
	return sign(d) + "$" + group(d.Abs().StringFixed(0))
}

// MoneyCents formats dollars and cents, e.g. $1,076.39
func MoneyCents(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	return sign(d) + "$" + group(whole) + "." + frac
}

// Percent formats a share in [0,1] with one decimal, e.g. 15.0%
func Percent(share float64) string {
	return decimal.NewFromFloat(share).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

// Factor formats a modifier with three decimals
func Factor(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

// Monthly is a yearly amount spread over twelve months, rounded to dollars
func Monthly(v int64) float64 {
	return decimal.NewFromInt(v).Div(decimal.NewFromInt(12)).Round(0).InexactFloat64()
}

// RoleLabel capitalises a role for display
func RoleLabel(r models.Role) string {
	switch r {
	case models.RoleOps:
		return "Operations"
	case models.RoleTech:
		return "Technology"
	case models.RoleExec:
		return "Executive"
	case models.RoleAdmin:
		return "Administrative"
	}
	s := string(r)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ApproachLabel is "Market" or "Cost"
func ApproachLabel(k models.ApproachKind) string {
	if k == models.ApproachCost {
		return "Cost"
	}
	return "Market"
}

func group(digits string) string {
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func sign(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-"
	}
	return ""
}
