package bls

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dan9191/reasonable-comp/internal/models"
	"github.com/Dan9191/reasonable-comp/internal/wages"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

//go:embed oes.xml
var embeddedRelease []byte

const (
	// SourceLabel is attached to every point this source emits
	SourceLabel = "BLS (Government-Published Data)"
	// Confidence of published government data
	Confidence = 0.95

	DefaultDailyLimit = 500
	DefaultJitter     = 0.08
)

// ErrDailyLimit is returned when the quota was used up before any point was emitted
var ErrDailyLimit = errors.New("BLS daily request limit reached")

// Options configures the BLS source
type Options struct {
	// ReleaseURL, when set, is fetched on every refresh instead of the
	// embedded release.
	ReleaseURL string
	DailyLimit int
	// Jitter is the maximum relative deviation applied to each mean. Zero
	// emits the published means unchanged.
	Jitter float64
	Clock  wages.Clock
	Rand   *rand.Rand
}

// Source emits state-by-role annual means from an OES release
type Source struct {
	opts      Options
	client    *http.Client
	log       *logrus.Logger
	available atomic.Bool

	mu       sync.Mutex
	used     int
	usageDay string
}

// NewSource initializes a BLS source
func NewSource(opts Options, log *logrus.Logger) *Source {
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = DefaultDailyLimit
	}
	if opts.Jitter < 0 {
		opts.Jitter = 0
	}
	if opts.Clock == nil {
		opts.Clock = wages.RealClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := &Source{
		opts: opts,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
	s.available.Store(true)
	return s
}

func (s *Source) Name() string            { return "BLS" }
func (s *Source) Kind() models.SourceKind { return models.SourceGovernment }
func (s *Source) IsAvailable() bool       { return s.available.Load() }

// SetAvailable takes the source in or out of rotation
func (s *Source) SetAvailable(v bool) {
	s.available.Store(v)
}

// FetchData loads the release and emits one jittered point per state and
// role, stopping when the daily quota runs out.
func (s *Source) FetchData(ctx context.Context) ([]models.MarketDataPoint, error) {
	raw, err := s.loadRelease(ctx)
	if err != nil {
		return nil, err
	}
	release, err := ParseRelease(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Clock.Now()
	s.resetIfNewDay(now)

	var points []models.MarketDataPoint
	for _, state := range release.States {
		for _, role := range models.Roles {
			mean, ok := release.Means[state][role]
			if !ok {
				continue
			}
			if s.used >= s.opts.DailyLimit {
				s.log.Warnf("BLS daily limit of %d requests reached, emitted %d points", s.opts.DailyLimit, len(points))
				if len(points) == 0 {
					return nil, ErrDailyLimit
				}
				return points, nil
			}
			s.used++
			points = append(points, models.MarketDataPoint{
				State:       state,
				Role:        role,
				Salary:      s.jitter(mean),
				Source:      SourceLabel,
				Kind:        models.SourceGovernment,
				LastUpdated: now,
				Confidence:  Confidence,
			})
		}
	}

	s.log.Infof("BLS: fetched %d data points from the %s release", len(points), release.Period)
	return points, nil
}

// Usage reports how much of today's quota is spent
func (s *Source) Usage() wages.Quota {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Clock.Now()
	s.resetIfNewDay(now)
	y, m, d := now.Date()
	return wages.Quota{
		Used:      s.used,
		Remaining: max(0, s.opts.DailyLimit-s.used),
		ResetAt:   time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()),
	}
}

func (s *Source) resetIfNewDay(now time.Time) {
	day := now.Format(time.DateOnly)
	if day != s.usageDay {
		s.usageDay = day
		s.used = 0
	}
}

func (s *Source) jitter(mean float64) float64 {
	if s.opts.Jitter == 0 {
		return mean
	}
	delta := (s.opts.Rand.Float64() - 0.5) * 2 * s.opts.Jitter * mean
	return math.Round(mean + delta)
}

// loadRelease returns the embedded release unless a URL is configured
func (s *Source) loadRelease(ctx context.Context) ([]byte, error) {
	if s.opts.ReleaseURL == "" {
		return embeddedRelease, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.ReleaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	s.log.Debugf("BLS release fetched from %s (%d bytes)", s.opts.ReleaseURL, len(body))
	return body, nil
}

// Release is a parsed OES release
type Release struct {
	Period string
	// States in document order
	States []string
	Means  map[string]map[models.Role]float64
}

// ParseRelease reads the OES XML layout:
//
//	<OESRelease period="May 2024">
//	  <State code="CA">
//	    <Occupation role="exec"><AnnualMean>185000</AnnualMean></Occupation>
func ParseRelease(raw []byte) (*Release, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	root := doc.SelectElement("OESRelease")
	if root == nil {
		return nil, fmt.Errorf("OESRelease element not found in XML")
	}

	rel := &Release{
		Period: root.SelectAttrValue("period", "unknown"),
		Means:  map[string]map[models.Role]float64{},
	}
	for _, st := range root.FindElements("./State") {
		code := strings.ToUpper(strings.TrimSpace(st.SelectAttrValue("code", "")))
		if len(code) != 2 {
			return nil, fmt.Errorf("invalid state code %q in release", code)
		}
		means, seen := rel.Means[code]
		if !seen {
			means = map[models.Role]float64{}
			rel.Means[code] = means
			rel.States = append(rel.States, code)
		}

		for _, occ := range st.FindElements("./Occupation") {
			role := models.Role(occ.SelectAttrValue("role", ""))
			if !role.Valid() {
				continue
			}
			meanElement := occ.FindElement("./AnnualMean")
			if meanElement == nil {
				return nil, fmt.Errorf("annual mean missing for %s/%s", code, role)
			}
			mean, err := strconv.ParseFloat(strings.TrimSpace(meanElement.Text()), 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse annual mean for %s/%s: %w", code, role, err)
			}
			if mean <= 0 {
				return nil, fmt.Errorf("annual mean for %s/%s must be positive", code, role)
			}
			means[role] = mean
		}
	}

	if len(rel.States) == 0 {
		return nil, fmt.Errorf("no state data found in XML")
	}
	return rel, nil
}
