package models

import "time"

// SourceKind tags where a market data point came from
type SourceKind string

const (
	SourceGovernment SourceKind = "government"
	SourceMarket     SourceKind = "market"
	SourceIndustry   SourceKind = "industry"
)

// MarketDataPoint is a single salary observation from a data source
type MarketDataPoint struct {
	State       string     `json:"state"`
	Metro       string     `json:"metro,omitempty"`
	Industry    string     `json:"industry,omitempty"`
	Role        Role       `json:"role"`
	Salary      float64    `json:"salary"`
	Source      string     `json:"source"`
	Kind        SourceKind `json:"kind"`
	LastUpdated time.Time  `json:"lastUpdated"`
	Confidence  float64    `json:"confidence"` // 0-1
}

// MarketSnapshot is the full set of points collected by one refresh
type MarketSnapshot struct {
	ID          string            `json:"id"`
	RefreshedAt time.Time         `json:"refreshedAt"`
	Points      []MarketDataPoint `json:"points"`
}

// DataQuality summarises the points behind a (state, role) pair. LastUpdated
// is zero when no refresh has happened yet.
type DataQuality struct {
	Confidence  float64   `json:"confidence"`
	LastUpdated time.Time `json:"lastUpdated"`
	Sources     []string  `json:"sources"`
}

// BaselineQuery identifies the baseline to look up
type BaselineQuery struct {
	State    string
	Role     Role
	Metro    string
	Industry string
}

// Baseline is an unadjusted annual salary plus where it came from.
// Confidence is zero for sources that do not score themselves.
type Baseline struct {
	Salary     float64
	Sources    []string
	Confidence float64
}
