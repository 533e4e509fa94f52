package models

import (
	"encoding/json"
	"fmt"
)

// Role is one of the fixed categories an owner's working time is split across
type Role string

const (
	RoleExec        Role = "exec"
	RoleAdmin       Role = "admin"
	RoleBookkeeping Role = "bookkeeping"
	RoleSales       Role = "sales"
	RoleOps         Role = "ops"
	RoleTech        Role = "tech"
)

// Roles lists every role in display order. Iteration over a RoleMix should go
// through this slice so sums are computed in a stable order.
var Roles = []Role{RoleExec, RoleAdmin, RoleBookkeeping, RoleSales, RoleOps, RoleTech}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Client describes the business being analysed
type Client struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Metro    string `json:"metro,omitempty"`
	Industry string `json:"industryLabel,omitempty"`
}

// Financials holds the company's annual figures
type Financials struct {
	Revenue   float64 `json:"revenue"`
	NetProfit float64 `json:"netProfit"`
}

// Owner holds the owner's working profile
type Owner struct {
	HoursPerWeek    float64 `json:"hoursPerWeek"`
	ExperienceYears float64 `json:"experienceYears"`
}

// Company holds headcount information
type Company struct {
	Employees int `json:"employees"`
}

// RoleMix maps each role to the fraction of time spent on it
type RoleMix map[Role]float64

// Total sums all shares in role order
func (m RoleMix) Total() float64 {
	var sum float64
	for _, role := range Roles {
		sum += m[role]
	}
	for role, share := range m {
		if !role.Valid() {
			sum += share
		}
	}
	return sum
}

// Benefits describes benefits paid on top of W-2 salary
type Benefits struct {
	Include         bool    `json:"include"`
	EstimatedAnnual float64 `json:"estimatedAnnual"`
}

// ApproachKind tags the estimation method
type ApproachKind string

const (
	ApproachMarket ApproachKind = "market"
	ApproachCost   ApproachKind = "cost"
)

// Approach is the estimation method. Only MarketApproach and CostApproach
// implement it.
type Approach interface {
	Kind() ApproachKind
	approach()
}

// MarketApproach estimates from role-weighted market baselines
type MarketApproach struct{}

func (MarketApproach) Kind() ApproachKind { return ApproachMarket }
func (MarketApproach) approach()          {}

// CostApproach estimates from a loaded hourly rate
type CostApproach struct {
	HourlyRate         float64 `json:"hourlyRate"`
	OverheadPercentage float64 `json:"overheadPercentage"`
	ProfitMargin       float64 `json:"profitMargin"`
}

func (CostApproach) Kind() ApproachKind { return ApproachCost }
func (CostApproach) approach()          {}

// CalcRequest is the input to a single calculation
type CalcRequest struct {
	Client     Client
	Financials Financials
	Owner      Owner
	Company    Company
	RoleMix    RoleMix
	Benefits   Benefits
	Approach   Approach // nil means market
}

// Method returns the request's approach, defaulting to market
func (r CalcRequest) Method() Approach {
	if r.Approach == nil {
		return MarketApproach{}
	}
	return r.Approach
}

type requestWire struct {
	Client       Client        `json:"client"`
	Financials   Financials    `json:"financials"`
	Owner        Owner         `json:"owner"`
	Company      Company       `json:"company"`
	RoleMix      RoleMix       `json:"roleMix"`
	Benefits     Benefits      `json:"benefits"`
	Approach     ApproachKind  `json:"approach,omitempty"`
	CostApproach *CostApproach `json:"costApproach,omitempty"`
}

// MarshalJSON writes the approach as a tag plus an optional costApproach block
func (r CalcRequest) MarshalJSON() ([]byte, error) {
	w := requestWire{
		Client:     r.Client,
		Financials: r.Financials,
		Owner:      r.Owner,
		Company:    r.Company,
		RoleMix:    r.RoleMix,
		Benefits:   r.Benefits,
		Approach:   r.Method().Kind(),
	}
	if cost, ok := r.Approach.(CostApproach); ok {
		w.CostApproach = &cost
	}
	return json.Marshal(w)
}

// UnmarshalJSON rejects tag/payload mismatches such as "cost" without a
// costApproach block.
func (r *CalcRequest) UnmarshalJSON(data []byte) error {
	var w requestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var approach Approach
	switch w.Approach {
	case "", ApproachMarket:
		if w.CostApproach != nil {
			return NewValidationError("costApproach", "only allowed when approach is \"cost\"")
		}
		approach = MarketApproach{}
	case ApproachCost:
		if w.CostApproach == nil {
			return NewValidationError("costApproach", "required when approach is \"cost\"")
		}
		approach = *w.CostApproach
	default:
		return NewValidationError("approach", fmt.Sprintf("unknown approach %q, expected \"market\" or \"cost\"", w.Approach))
	}

	*r = CalcRequest{
		Client:     w.Client,
		Financials: w.Financials,
		Owner:      w.Owner,
		Company:    w.Company,
		RoleMix:    w.RoleMix,
		Benefits:   w.Benefits,
		Approach:   approach,
	}
	return nil
}
