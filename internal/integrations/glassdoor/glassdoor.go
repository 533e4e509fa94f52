package glassdoor

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Dan9191/reasonable-comp/internal/models"
	"github.com/Dan9191/reasonable-comp/internal/wages"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

//go:embed market.yaml
var embeddedMarket []byte

const (
	// SourceLabel is attached to every point this source emits
	SourceLabel = "Glassdoor (Market-Based Data)"
	Confidence  = 0.8

	DefaultJitter = 0.15
	DefaultSample = 5
	// MaxPostings caps a single salary search
	MaxPostings = 10
)

// PayRange is the spread of advertised pay for one role in one state. A
// range without low and high spans 80% to 120% of the median.
type PayRange struct {
	Median float64 `yaml:"median"`
	Low    float64 `yaml:"low"`
	High   float64 `yaml:"high"`
}

// MarketTable is keyed by role then state code
type MarketTable map[models.Role]map[string]PayRange

// LoadMarketTable parses a YAML market table
func LoadMarketTable(raw []byte) (MarketTable, error) {
	var t MarketTable
	if err := yaml.NewDecoder(bytes.NewReader(raw)).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse market table: %w", err)
	}
	for role, states := range t {
		if !role.Valid() {
			return nil, fmt.Errorf("market table: unknown role %q", role)
		}
		for state, pr := range states {
			if pr.Median <= 0 {
				return nil, fmt.Errorf("market table: median for %s/%s must be positive", state, role)
			}
			if pr.Low == 0 && pr.High == 0 {
				pr.Low, pr.High = math.Round(pr.Median*0.8), math.Round(pr.Median*1.2)
				states[state] = pr
			}
			if pr.Low <= 0 || pr.Low > pr.Median || pr.High < pr.Median {
				return nil, fmt.Errorf("market table: %s/%s needs 0 < low <= median <= high", state, role)
			}
		}
	}
	return t, nil
}

// DefaultMarketTable returns the embedded table
func DefaultMarketTable() MarketTable {
	t, err := LoadMarketTable(embeddedMarket)
	if err != nil {
		panic(fmt.Sprintf("embedded market table is invalid: %v", err))
	}
	return t
}

// Posting is one advertised salary
type Posting struct {
	JobTitle  string  `json:"jobTitle"`
	PayMedian float64 `json:"payMedian"`
	PayLow    float64 `json:"payLow"`
	PayHigh   float64 `json:"payHigh"`
	PayPeriod string  `json:"payPeriod"`
	Location  string  `json:"location"`
}

var roleTitles = map[models.Role]string{
	models.RoleExec:        "executive",
	models.RoleAdmin:       "administrative",
	models.RoleBookkeeping: "bookkeeping",
	models.RoleSales:       "sales",
	models.RoleOps:         "operations",
	models.RoleTech:        "technology",
}

// titleRoles is ordered; partial matches take the first hit
var titleRoles = []struct {
	title string
	role  models.Role
}{
	{"executive", models.RoleExec},
	{"exec", models.RoleExec},
	{"management", models.RoleExec},
	{"administrative", models.RoleAdmin},
	{"admin", models.RoleAdmin},
	{"office", models.RoleAdmin},
	{"bookkeeping", models.RoleBookkeeping},
	{"accounting", models.RoleBookkeeping},
	{"sales", models.RoleSales},
	{"operations", models.RoleOps},
	{"ops", models.RoleOps},
	{"business", models.RoleOps},
	{"technology", models.RoleTech},
	{"tech", models.RoleTech},
	{"software", models.RoleTech},
	{"developer", models.RoleTech},
}

// JobTitle is the search title used for a role
func JobTitle(role models.Role) string {
	if t, ok := roleTitles[role]; ok {
		return t
	}
	return string(role)
}

// RoleForTitle maps a job title to a role, exact match first, then the first
// title that contains or is contained in it.
func RoleForTitle(title string) (models.Role, bool) {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return "", false
	}
	for _, tr := range titleRoles {
		if tr.title == title {
			return tr.role, true
		}
	}
	for _, tr := range titleRoles {
		if strings.Contains(title, tr.title) || strings.Contains(tr.title, title) {
			return tr.role, true
		}
	}
	return "", false
}

// AnnualPay converts pay for a period to a yearly figure. Unknown periods
// are taken as annual.
func AnnualPay(amount float64, period string) float64 {
	switch strings.ToLower(period) {
	case "hourly":
		return amount * 40 * 52
	case "weekly":
		return amount * 52
	case "monthly":
		return amount * 12
	default:
		return amount
	}
}

// Options configures the Glassdoor source
type Options struct {
	// Jitter is the maximum relative deviation of a posting from the median
	Jitter float64
	// Sample is how many postings are drawn per role and state
	Sample int
	Table  MarketTable
	Clock  wages.Clock
	Rand   *rand.Rand
}

// Source samples market postings and reports their median per role and state
type Source struct {
	opts      Options
	states    []string
	log       *logrus.Logger
	available atomic.Bool

	mu sync.Mutex
}

// NewSource initializes a Glassdoor source
func NewSource(opts Options, log *logrus.Logger) *Source {
	if opts.Sample <= 0 {
		opts.Sample = DefaultSample
	}
	if opts.Jitter < 0 {
		opts.Jitter = 0
	}
	if opts.Table == nil {
		opts.Table = DefaultMarketTable()
	}
	if opts.Clock == nil {
		opts.Clock = wages.RealClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	var states []string
	for _, byState := range opts.Table {
		for state := range byState {
			if !slices.Contains(states, state) {
				states = append(states, state)
			}
		}
	}
	slices.Sort(states)

	s := &Source{opts: opts, states: states, log: log}
	s.available.Store(true)
	return s
}

func (s *Source) Name() string            { return "Glassdoor" }
func (s *Source) Kind() models.SourceKind { return models.SourceMarket }
func (s *Source) IsAvailable() bool       { return s.available.Load() }

// SetAvailable takes the source in or out of rotation
func (s *Source) SetAvailable(v bool) {
	s.available.Store(v)
}

// SearchSalaries returns up to limit postings for a job title in a state.
// Titles that map to no role and states outside the table return nothing.
func (s *Source) SearchSalaries(title, state string, limit int) []Posting {
	role, ok := RoleForTitle(title)
	if !ok {
		return nil
	}
	state = strings.ToUpper(state)
	pr, ok := s.opts.Table[role][state]
	if !ok {
		return nil
	}

	n := min(limit, MaxPostings)
	postings := make([]Posting, 0, max(n, 0))

	s.mu.Lock()
	defer s.mu.Unlock()
	for range n {
		pay := pr.Median
		if s.opts.Jitter > 0 {
			pay = math.Round(pr.Median + (s.opts.Rand.Float64()-0.5)*2*s.opts.Jitter*pr.Median)
			pay = min(max(pay, pr.Low), pr.High)
		}
		// a posting's own band is the table band scaled to its midpoint
		scale := pay / pr.Median
		postings = append(postings, Posting{
			JobTitle:  title,
			PayMedian: pay,
			PayLow:    math.Round(pr.Low * scale),
			PayHigh:   math.Round(pr.High * scale),
			PayPeriod: "yearly",
			Location:  state,
		})
	}
	return postings
}

// SalaryForRole is the median annual pay across sampled postings
func (s *Source) SalaryForRole(role models.Role, state string) (float64, bool) {
	postings := s.SearchSalaries(JobTitle(role), state, s.opts.Sample)
	if len(postings) == 0 {
		return 0, false
	}
	pays := make([]float64, 0, len(postings))
	for _, p := range postings {
		pays = append(pays, AnnualPay(p.PayMedian, p.PayPeriod))
	}
	return median(pays), true
}

// FetchData emits one point per role and state in the market table
func (s *Source) FetchData(ctx context.Context) ([]models.MarketDataPoint, error) {
	now := s.opts.Clock.Now()
	var points []models.MarketDataPoint
	for _, state := range s.states {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, role := range models.Roles {
			salary, ok := s.SalaryForRole(role, state)
			if !ok {
				s.log.Debugf("Glassdoor: no postings for %s in %s", role, state)
				continue
			}
			points = append(points, models.MarketDataPoint{
				State:       state,
				Role:        role,
				Salary:      salary,
				Source:      SourceLabel,
				Kind:        models.SourceMarket,
				LastUpdated: now,
				Confidence:  Confidence,
			})
		}
	}
	s.log.Infof("Glassdoor: fetched %d data points", len(points))
	return points, nil
}

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
