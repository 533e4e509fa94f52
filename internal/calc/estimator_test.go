package calc

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/Dan9191/reasonable-comp/internal/models"
)

// fakeProvider implements BaselineProvider over a fixed table
type fakeProvider struct {
	table map[string]map[models.Role]float64
	calls int
}

func (f *fakeProvider) Baseline(q models.BaselineQuery) (models.Baseline, error) {
	f.calls++
	salary, ok := f.table[q.State][q.Role]
	if !ok {
		return models.Baseline{}, &models.DataUnavailableError{State: q.State, Role: q.Role}
	}
	return models.Baseline{Salary: salary, Sources: []string{"test table"}, Confidence: 0.9}, nil
}

func caProvider() *fakeProvider {
	return &fakeProvider{table: map[string]map[models.Role]float64{
		"CA": {
			models.RoleExec:        185000,
			models.RoleAdmin:       67000,
			models.RoleBookkeeping: 60000,
			models.RoleSales:       77000,
			models.RoleOps:         87000,
			models.RoleTech:        125000,
		},
	}}
}

func acmeRequest() models.CalcRequest {
	return models.CalcRequest{
		Client:     models.Client{Name: "Acme, Inc.", State: "CA", Metro: "San Diego", Industry: "Tax Prep"},
		Financials: models.Financials{Revenue: 650000, NetProfit: 180000},
		Owner:      models.Owner{HoursPerWeek: 45, ExperienceYears: 12},
		Company:    models.Company{Employees: 4},
		RoleMix: models.RoleMix{
			models.RoleExec:        0.4,
			models.RoleAdmin:       0.15,
			models.RoleBookkeeping: 0.10,
			models.RoleSales:       0.20,
			models.RoleOps:         0.15,
			models.RoleTech:        0,
		},
		Benefits: models.Benefits{Include: true, EstimatedAnnual: 12000},
	}
}

func TestEstimate_MarketScenario(t *testing.T) {
	est := NewEstimator(caProvider(), DefaultBands)

	res, err := est.Estimate(acmeRequest())
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}

	if res.Approach != models.ApproachMarket {
		t.Errorf("approach = %s, want market", res.Approach)
	}
	if res.MarketComposite == nil || *res.MarketComposite <= 70000 {
		t.Fatalf("market composite should exceed 70000, got %v", res.MarketComposite)
	}
	if *res.MarketComposite != 118500 {
		t.Errorf("market composite = %d, want 118500", *res.MarketComposite)
	}
	if res.CostBreakdown != nil {
		t.Error("market result must not carry a cost breakdown")
	}

	want := models.Modifiers{Experience: 1.08, CompanySize: 1.00, RevenueSignal: 1.03, HoursNorm: 1.10}
	if res.Modifiers.Experience != want.Experience {
		t.Errorf("experience = %v, want %v", res.Modifiers.Experience, want.Experience)
	}
	if res.Modifiers.RevenueSignal != want.RevenueSignal {
		t.Errorf("revenue signal = %v, want %v", res.Modifiers.RevenueSignal, want.RevenueSignal)
	}
	if math.Abs(res.Modifiers.HoursNorm-want.HoursNorm) > 1e-12 {
		t.Errorf("hours norm = %v, want %v", res.Modifiers.HoursNorm, want.HoursNorm)
	}
	if !res.Benefits.Considered || res.Benefits.EstimatedAnnual != 12000 {
		t.Errorf("unexpected benefits summary: %+v", res.Benefits)
	}
	if len(res.RoleBreakdown) != 5 {
		t.Errorf("expected 5 role contributions (tech share is zero), got %d", len(res.RoleBreakdown))
	}
}

// Four employees falls in the <=5 bucket; ten employees lands on 1.05.
func TestEstimate_CompanySizeBucket(t *testing.T) {
	req := acmeRequest()
	res, err := NewEstimator(caProvider(), DefaultBands).Estimate(req)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if res.Modifiers.CompanySize != 1.00 {
		t.Errorf("company size for 4 employees = %v, want 1.00", res.Modifiers.CompanySize)
	}

	req.Company.Employees = 10
	res, err = NewEstimator(caProvider(), DefaultBands).Estimate(req)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if res.Modifiers.CompanySize != 1.05 {
		t.Errorf("company size for 10 employees = %v, want 1.05", res.Modifiers.CompanySize)
	}
}

func TestEstimate_RangeBands(t *testing.T) {
	est := NewEstimator(caProvider(), DefaultBands)
	for _, hours := range []float64{20, 38, 40, 45, 60} {
		req := acmeRequest()
		req.Owner.HoursPerWeek = hours

		res, err := est.Estimate(req)
		if err != nil {
			t.Fatalf("estimate failed: %v", err)
		}
		r := res.Range
		if !(r.Low < r.Target && r.Target < r.High) {
			t.Fatalf("range not strictly ordered: %+v", r)
		}
		if r.Target != res.Target {
			t.Errorf("range target %d differs from target %d", r.Target, res.Target)
		}
		if d := math.Abs(float64(r.Low) - 0.90*float64(r.Target)); d > 1 {
			t.Errorf("low %d is not 90%% of target %d (off by %v)", r.Low, r.Target, d)
		}
		if d := math.Abs(float64(r.High) - 1.15*float64(r.Target)); d > 1 {
			t.Errorf("high %d is not 115%% of target %d (off by %v)", r.High, r.Target, d)
		}
	}
}

func TestEstimate_TinyTargetRejected(t *testing.T) {
	req := acmeRequest()
	req.Owner = models.Owner{HoursPerWeek: 0.01, ExperienceYears: 1}
	req.Approach = models.CostApproach{HourlyRate: 0.5}

	res, err := NewEstimator(nil, DefaultBands).Estimate(req)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v (result %+v)", err, res)
	}
	fields := map[string]bool{}
	for _, p := range verr.Problems {
		fields[p.Field] = true
	}
	if !fields["costApproach.hourlyRate"] || !fields["owner.hoursPerWeek"] {
		t.Errorf("problems should name rate and hours: %+v", verr.Problems)
	}

	tiny := &fakeProvider{table: map[string]map[models.Role]float64{
		"CA": {models.RoleExec: 1},
	}}
	market := acmeRequest()
	market.RoleMix = models.RoleMix{models.RoleExec: 1}
	if _, err := NewEstimator(tiny, DefaultBands).Estimate(market); !errors.As(err, &verr) {
		t.Errorf("market target of about $1 should be rejected, got %v", err)
	}
}

func TestEstimate_CostScenario(t *testing.T) {
	req := acmeRequest()
	req.Owner = models.Owner{HoursPerWeek: 40, ExperienceYears: 5}
	req.Company.Employees = 10
	req.Approach = models.CostApproach{HourlyRate: 50, OverheadPercentage: 30, ProfitMargin: 20}

	provider := caProvider()
	res, err := NewEstimator(provider, DefaultBands).Estimate(req)
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}

	if provider.calls != 0 {
		t.Errorf("cost approach should not look up baselines, got %d calls", provider.calls)
	}
	if res.Approach != models.ApproachCost || res.MarketComposite != nil {
		t.Fatalf("expected a cost result without market composite, got %+v", res)
	}
	cb := res.CostBreakdown
	if cb == nil {
		t.Fatal("missing cost breakdown")
	}
	if cb.TotalHourly != 75.00 {
		t.Errorf("total hourly = %v, want 75.00", cb.TotalHourly)
	}
	if cb.Overhead != 15 || cb.Profit != 10 {
		t.Errorf("overhead/profit = %v/%v, want 15/10", cb.Overhead, cb.Profit)
	}
	if cb.AdjustedHourly != 76.39 {
		t.Errorf("adjusted hourly = %v, want 76.39", cb.AdjustedHourly)
	}
	if res.Modifiers.Experience != 0.97 || res.Modifiers.CompanySize != 1.05 {
		t.Errorf("unexpected modifiers: %+v", res.Modifiers)
	}
	// 75 x 0.97 x 1.05 x 40 x 52
	if math.Abs(float64(res.Target)-158886) > 1 {
		t.Errorf("target = %d, want about 158886", res.Target)
	}
	if !(res.Range.Low < res.Range.Target && res.Range.Target < res.Range.High) {
		t.Errorf("range not ordered: %+v", res.Range)
	}
}

func TestEstimate_CostMissingFieldsFails(t *testing.T) {
	req := acmeRequest()
	req.Approach = models.CostApproach{}

	_, err := NewEstimator(nil, DefaultBands).Estimate(req)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "costApproach.hourlyRate") {
		t.Errorf("error should name the hourly rate: %v", err)
	}
}

func TestEstimate_RoleMixRejectedBeforeLookup(t *testing.T) {
	req := acmeRequest()
	req.RoleMix[models.RoleTech] = 0.1

	provider := caProvider()
	_, err := NewEstimator(provider, DefaultBands).Estimate(req)

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "roleMix") {
		t.Errorf("error should name the role mix: %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("baseline lookups happened before validation: %d", provider.calls)
	}
}

func TestEstimate_MissingCoverage(t *testing.T) {
	req := acmeRequest()
	req.Client.State = "WY"

	_, err := NewEstimator(caProvider(), DefaultBands).Estimate(req)
	var unavailable *models.DataUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected data unavailable error, got %v", err)
	}
	if unavailable.State != "WY" || unavailable.Role != models.RoleExec {
		t.Errorf("unexpected coverage in error: %+v", unavailable)
	}
}

func TestEstimate_LowercaseStateIsNormalised(t *testing.T) {
	req := acmeRequest()
	req.Client.State = "ca"

	if _, err := NewEstimator(caProvider(), DefaultBands).Estimate(req); err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
}

func TestEstimate_Idempotent(t *testing.T) {
	est := NewEstimator(caProvider(), DefaultBands)

	first, err := est.Estimate(acmeRequest())
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	second, err := est.Estimate(acmeRequest())
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestEstimate_NotesDescribeMethod(t *testing.T) {
	res, err := NewEstimator(caProvider(), DefaultBands).Estimate(acmeRequest())
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	joined := strings.Join(res.Notes, "\n")
	for _, want := range []string{"Low -10%", "High +15%", "test table", "Data confidence: 90%", Disclaimer} {
		if !strings.Contains(joined, want) {
			t.Errorf("notes missing %q:\n%s", want, joined)
		}
	}

	custom := NewEstimator(caProvider(), Bands{Low: 0.85, High: 1.25})
	res, err = custom.Estimate(acmeRequest())
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	joined = strings.Join(res.Notes, "\n")
	if !strings.Contains(joined, "Low -15%") || !strings.Contains(joined, "High +25%") {
		t.Errorf("notes should reflect configured bands:\n%s", joined)
	}
}

func TestBandsValidate(t *testing.T) {
	if err := DefaultBands.Validate(); err != nil {
		t.Fatalf("default bands invalid: %v", err)
	}
	for _, b := range []Bands{{Low: 1.1, High: 1.2}, {Low: 0.9, High: 0.95}, {Low: 0, High: 1.1}} {
		if err := b.Validate(); err == nil {
			t.Errorf("expected %+v to be rejected", b)
		}
	}
}
