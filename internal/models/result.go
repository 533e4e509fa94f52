package models

// Modifiers are the four multiplicative adjustments derived from the profile
type Modifiers struct {
	Experience    float64 `json:"experience"`
	CompanySize   float64 `json:"companySize"`
	RevenueSignal float64 `json:"revenueSignal"`
	HoursNorm     float64 `json:"hoursNorm"`
}

// Product multiplies all four modifiers
func (m Modifiers) Product() float64 {
	return m.Experience * m.CompanySize * m.RevenueSignal * m.HoursNorm
}

// Range is the low/target/high salary band in whole currency units
type Range struct {
	Low    int64 `json:"low"`
	Target int64 `json:"target"`
	High   int64 `json:"high"`
}

// BenefitsSummary echoes how benefits were treated
type BenefitsSummary struct {
	Considered      bool    `json:"considered"`
	EstimatedAnnual float64 `json:"estimatedAnnual"`
}

// RoleContribution is one line of the market composite
type RoleContribution struct {
	Role         Role    `json:"role"`
	Share        float64 `json:"share"`
	Baseline     float64 `json:"baseline"`
	Contribution float64 `json:"contribution"`
}

// CostBreakdown holds the intermediate values of the cost approach, in
// dollars per hour except AnnualHours.
type CostBreakdown struct {
	BaseHourly     float64 `json:"baseHourly"`
	Overhead       float64 `json:"overhead"`
	Profit         float64 `json:"profit"`
	TotalHourly    float64 `json:"totalHourly"`
	AdjustedHourly float64 `json:"adjustedHourly"`
	AnnualHours    float64 `json:"annualHours"`
}

// CalcResult is the outcome of a calculation. MarketComposite and
// CostBreakdown are mutually exclusive.
type CalcResult struct {
	Approach        ApproachKind       `json:"approach"`
	MarketComposite *int64             `json:"marketComposite,omitempty"`
	RoleBreakdown   []RoleContribution `json:"roleBreakdown,omitempty"`
	CostBreakdown   *CostBreakdown     `json:"costBreakdown,omitempty"`
	Modifiers       Modifiers          `json:"modifiers"`
	Target          int64              `json:"target"`
	Range           Range              `json:"range"`
	Benefits        BenefitsSummary    `json:"benefits"`
	Notes           []string           `json:"notes"`
}
