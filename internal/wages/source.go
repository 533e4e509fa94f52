package wages

import (
	"context"
	"slices"
	"time"

	"github.com/Dan9191/reasonable-comp/internal/models"
)

// Source is a provider of market data points. Implementations may be
// temporarily unavailable; the aggregator skips them rather than failing.
type Source interface {
	Name() string
	Kind() models.SourceKind
	IsAvailable() bool
	FetchData(ctx context.Context) ([]models.MarketDataPoint, error)
}

// Quota is a source's request allowance for the current day
type Quota struct {
	Used      int       `json:"used"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// QuotaReporter is implemented by sources that are rate limited
type QuotaReporter interface {
	Usage() Quota
}

// Clock abstracts time so refresh timing can be driven by tests
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall clock
func RealClock() Clock {
	return realClock{}
}

// Blend computes the confidence-weighted average salary of points:
// sum(salary*confidence) / sum(confidence). Points with no confidence carry no
// weight. It reports false when nothing could be weighted.
func Blend(points []models.MarketDataPoint) (models.Baseline, bool) {
	var weighted, weights float64
	var used int
	var sources []string
	for _, p := range points {
		if p.Confidence <= 0 || p.Salary <= 0 {
			continue
		}
		weighted += p.Salary * p.Confidence
		weights += p.Confidence
		used++
		if !slices.Contains(sources, p.Source) {
			sources = append(sources, p.Source)
		}
	}
	if weights == 0 {
		return models.Baseline{}, false
	}
	return models.Baseline{
		Salary:     weighted / weights,
		Sources:    sources,
		Confidence: weights / float64(used),
	}, true
}

// Quality summarises points for display: average confidence, most recent
// update and the distinct sources. fallback is used as LastUpdated when
// there are no points.
func Quality(points []models.MarketDataPoint, fallback time.Time) models.DataQuality {
	if len(points) == 0 {
		return models.DataQuality{LastUpdated: fallback, Sources: []string{}}
	}
	var total float64
	var latest time.Time
	sources := []string{}
	for _, p := range points {
		total += p.Confidence
		if p.LastUpdated.After(latest) {
			latest = p.LastUpdated
		}
		if !slices.Contains(sources, p.Source) {
			sources = append(sources, p.Source)
		}
	}
	return models.DataQuality{
		Confidence:  total / float64(len(points)),
		LastUpdated: latest,
		Sources:     sources,
	}
}
