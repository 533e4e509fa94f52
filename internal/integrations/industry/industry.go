package industry

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/Dan9191/reasonable-comp/internal/models"
	"github.com/Dan9191/reasonable-comp/internal/wages"
	"github.com/sirupsen/logrus"
)

const (
	SourceLabel = "Industry Analysis"
	Confidence  = 0.8

	// BaseState and BaseSalary anchor the multipliers: an executive in a
	// neutral industry in California.
	BaseState  = "CA"
	BaseSalary = 145000.0
)

// Multipliers scale the base executive salary per industry
var Multipliers = []struct {
	Industry   string
	Multiplier float64
}{
	{"technology", 1.2},
	{"healthcare", 1.1},
	{"finance", 1.15},
	{"manufacturing", 0.95},
	{"retail", 0.9},
	{"consulting", 1.1},
	{"real-estate", 1.05},
}

// Source emits industry-tagged executive baselines
type Source struct {
	clock     wages.Clock
	log       *logrus.Logger
	available atomic.Bool
}

// NewSource creates the industry source; a nil clock uses wall time
func NewSource(clock wages.Clock, log *logrus.Logger) *Source {
	if clock == nil {
		clock = wages.RealClock()
	}
	s := &Source{clock: clock, log: log}
	s.available.Store(true)
	return s
}

func (s *Source) Name() string            { return "Industry Data" }
func (s *Source) Kind() models.SourceKind { return models.SourceIndustry }
func (s *Source) IsAvailable() bool       { return s.available.Load() }

// SetAvailable takes the source in or out of rotation
func (s *Source) SetAvailable(v bool) {
	s.available.Store(v)
}

func (s *Source) FetchData(ctx context.Context) ([]models.MarketDataPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	points := make([]models.MarketDataPoint, 0, len(Multipliers))
	for _, m := range Multipliers {
		points = append(points, models.MarketDataPoint{
			State:       BaseState,
			Industry:    m.Industry,
			Role:        models.RoleExec,
			Salary:      math.Round(BaseSalary * m.Multiplier),
			Source:      SourceLabel,
			Kind:        models.SourceIndustry,
			LastUpdated: now,
			Confidence:  Confidence,
		})
	}
	s.log.Debugf("Industry: emitted %d data points", len(points))
	return points, nil
}
