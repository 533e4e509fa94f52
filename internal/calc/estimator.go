package calc

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Dan9191/reasonable-comp/internal/models"
	"github.com/shopspring/decimal"
)

const weeksPerYear = 52

// Disclaimer is attached to every result
const Disclaimer = "Estimate for planning purposes only; not legal or tax advice"

// BaselineProvider answers baseline salary lookups
type BaselineProvider interface {
	Baseline(q models.BaselineQuery) (models.Baseline, error)
}

// Bands are the multipliers applied to the target to get the low and high ends
type Bands struct {
	Low  float64
	High float64
}

// DefaultBands is -10% / +15%
var DefaultBands = Bands{Low: 0.90, High: 1.15}

// Validate requires Low < 1 < High with Low positive
func (b Bands) Validate() error {
	if !(b.Low > 0 && b.Low < 1) {
		return fmt.Errorf("low band must be in (0, 1), got %v", b.Low)
	}
	if !(b.High > 1) {
		return fmt.Errorf("high band must be greater than 1, got %v", b.High)
	}
	return nil
}

func (b Bands) rangeFor(target float64) models.Range {
	return models.Range{
		Low:    roundWhole(target * b.Low),
		Target: roundWhole(target),
		High:   roundWhole(target * b.High),
	}
}

// ordered reports whether r is strictly low < target < high after rounding
func (b Bands) ordered(r models.Range) bool {
	return r.Low < r.Target && r.Target < r.High
}

func (b Bands) note() string {
	hundred := decimal.NewFromInt(100)
	low := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(b.Low)).Mul(hundred)
	high := decimal.NewFromFloat(b.High).Sub(decimal.NewFromInt(1)).Mul(hundred)
	return fmt.Sprintf("Bands: Low -%s%%, High +%s%% from Target", low.String(), high.String())
}

// Estimator turns a validated request into a compensation range
type Estimator struct {
	baselines BaselineProvider
	bands     Bands
}

// NewEstimator creates an estimator. baselines may be nil when only the cost
// approach is used.
func NewEstimator(baselines BaselineProvider, bands Bands) *Estimator {
	return &Estimator{baselines: baselines, bands: bands}
}

// Bands returns the configured bands
func (e *Estimator) Bands() Bands {
	return e.bands
}

// Estimate validates the request and runs the approach it selects
func (e *Estimator) Estimate(req models.CalcRequest) (*models.CalcResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	req.Client.State = strings.ToUpper(req.Client.State)
	mods := BuildModifiers(req)

	switch method := req.Method().(type) {
	case models.CostApproach:
		return e.estimateCost(req, method, mods)
	case models.MarketApproach:
		return e.estimateMarket(req, mods)
	default:
		return nil, fmt.Errorf("unsupported approach %q", method.Kind())
	}
}

func (e *Estimator) estimateMarket(req models.CalcRequest, mods models.Modifiers) (*models.CalcResult, error) {
	if e.baselines == nil {
		return nil, errors.New("market approach requires a baseline provider")
	}

	var (
		composite   float64
		breakdown   []models.RoleContribution
		sources     []string
		confidence  float64
		scoredShare float64
	)
	for _, role := range models.Roles {
		share := req.RoleMix[role]
		if share == 0 {
			continue
		}
		baseline, err := e.baselines.Baseline(models.BaselineQuery{
			State:    req.Client.State,
			Role:     role,
			Metro:    req.Client.Metro,
			Industry: req.Client.Industry,
		})
		if err != nil {
			return nil, fmt.Errorf("baseline for %s: %w", role, err)
		}

		contribution := baseline.Salary * share
		composite += contribution
		breakdown = append(breakdown, models.RoleContribution{
			Role:         role,
			Share:        share,
			Baseline:     roundCents(baseline.Salary),
			Contribution: roundCents(contribution),
		})
		for _, src := range baseline.Sources {
			if !slices.Contains(sources, src) {
				sources = append(sources, src)
			}
		}
		if baseline.Confidence > 0 {
			confidence += baseline.Confidence * share
			scoredShare += share
		}
	}

	target := composite * mods.Product()
	mc := roundWhole(composite)
	rng := e.bands.rangeFor(target)
	if !e.bands.ordered(rng) {
		return nil, models.NewValidationError("roleMix",
			fmt.Sprintf("baselines give an annual target of $%.2f, too small to form a salary range", target))
	}

	notes := []string{
		"Approach: market (role-mix weighted baselines for " + req.Client.State + ")",
		"Baseline data: " + strings.Join(sources, ", "),
	}
	if scoredShare > 0 {
		notes = append(notes, fmt.Sprintf("Data confidence: %.0f%% (share-weighted across roles)", confidence/scoredShare*100))
	}
	notes = append(notes,
		"Role mix provided by user (shares sum to 1.0)",
		modifierNote(mods),
		e.bands.note(),
		benefitsNote(req.Benefits),
		Disclaimer,
	)

	return &models.CalcResult{
		Approach:        models.ApproachMarket,
		MarketComposite: &mc,
		RoleBreakdown:   breakdown,
		Modifiers:       mods,
		Target:          rng.Target,
		Range:           rng,
		Benefits:        benefitsSummary(req.Benefits),
		Notes:           notes,
	}, nil
}

// Revenue and hours modifiers are not applied to the hourly rate; hours only
// enter through the annual conversion.
func (e *Estimator) estimateCost(req models.CalcRequest, cost models.CostApproach, mods models.Modifiers) (*models.CalcResult, error) {
	overhead := cost.HourlyRate * cost.OverheadPercentage / 100
	profit := cost.HourlyRate * cost.ProfitMargin / 100
	totalHourly := cost.HourlyRate * (1 + cost.OverheadPercentage/100 + cost.ProfitMargin/100)
	adjustedHourly := totalHourly * mods.Experience * mods.CompanySize
	annualHours := req.Owner.HoursPerWeek * weeksPerYear
	target := adjustedHourly * annualHours
	rng := e.bands.rangeFor(target)
	if !e.bands.ordered(rng) {
		msg := fmt.Sprintf("annual target of $%.2f is too small to form a salary range", target)
		return nil, &models.ValidationError{Problems: []models.FieldProblem{
			{Field: "costApproach.hourlyRate", Message: msg},
			{Field: "owner.hoursPerWeek", Message: msg},
		}}
	}

	notes := []string{
		"Approach: cost (loaded hourly rate build-up)",
		fmt.Sprintf("Total hourly: $%.2f base + %v%% overhead + %v%% profit = $%.2f",
			cost.HourlyRate, cost.OverheadPercentage, cost.ProfitMargin, totalHourly),
		fmt.Sprintf("Adjusted hourly: total x experience %.2f x company size %.2f = $%.2f",
			mods.Experience, mods.CompanySize, adjustedHourly),
		fmt.Sprintf("Annualized at %v hours/week x %d weeks", req.Owner.HoursPerWeek, weeksPerYear),
		"Revenue and hours modifiers are reported but not applied to the hourly rate",
		e.bands.note(),
		benefitsNote(req.Benefits),
		Disclaimer,
	}

	return &models.CalcResult{
		Approach: models.ApproachCost,
		CostBreakdown: &models.CostBreakdown{
			BaseHourly:     roundCents(cost.HourlyRate),
			Overhead:       roundCents(overhead),
			Profit:         roundCents(profit),
			TotalHourly:    roundCents(totalHourly),
			AdjustedHourly: roundCents(adjustedHourly),
			AnnualHours:    annualHours,
		},
		Modifiers: mods,
		Target:    rng.Target,
		Range:     rng,
		Benefits:  benefitsSummary(req.Benefits),
		Notes:     notes,
	}, nil
}

func modifierNote(m models.Modifiers) string {
	return fmt.Sprintf("Modifiers: experience x%.2f, company size x%.2f, revenue x%.2f, hours x%.2f (combined x%.4f)",
		m.Experience, m.CompanySize, m.RevenueSignal, m.HoursNorm, m.Product())
}

func benefitsSummary(b models.Benefits) models.BenefitsSummary {
	return models.BenefitsSummary{Considered: b.Include, EstimatedAnnual: b.EstimatedAnnual}
}

func benefitsNote(b models.Benefits) string {
	if !b.Include {
		return "Benefits not considered"
	}
	return fmt.Sprintf("Benefits of $%s/yr shown separately from W-2 salary", decimal.NewFromFloat(b.EstimatedAnnual).StringFixed(0))
}

func roundWhole(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

func roundCents(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
