package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/reasonable-comp/internal/models"
)

var generatedAt = time.Date(2025, 4, 15, 10, 30, 0, 0, time.UTC)

func marketFixture() (models.CalcRequest, *models.CalcResult) {
	req := models.CalcRequest{
		Client:     models.Client{Name: "Acme, Inc.", State: "CA", Metro: "San Diego"},
		Financials: models.Financials{Revenue: 650000, NetProfit: 180000},
		Owner:      models.Owner{HoursPerWeek: 45, ExperienceYears: 12},
		Company:    models.Company{Employees: 4},
		RoleMix:    models.RoleMix{models.RoleExec: 0.6, models.RoleAdmin: 0.4},
		Benefits:   models.Benefits{Include: true, EstimatedAnnual: 12000},
	}
	composite := int64(137800)
	res := &models.CalcResult{
		Approach:        models.ApproachMarket,
		MarketComposite: &composite,
		RoleBreakdown: []models.RoleContribution{
			{Role: models.RoleExec, Share: 0.6, Baseline: 185000, Contribution: 111000},
			{Role: models.RoleAdmin, Share: 0.4, Baseline: 67000, Contribution: 26800},
		},
		Modifiers: models.Modifiers{Experience: 1.08, CompanySize: 1, RevenueSignal: 1.03, HoursNorm: 1.1},
		Target:    168600,
		Range:     models.Range{Low: 151740, Target: 168600, High: 193890},
		Benefits:  models.BenefitsSummary{Considered: true, EstimatedAnnual: 12000},
		Notes:     []string{"Approach: market", "Bands: Low -10%, High +15% from Target"},
	}
	return req, res
}

func costFixture() (models.CalcRequest, *models.CalcResult) {
	req, _ := marketFixture()
	req.Approach = models.CostApproach{HourlyRate: 75, OverheadPercentage: 15, ProfitMargin: 10}
	res := &models.CalcResult{
		Approach: models.ApproachCost,
		CostBreakdown: &models.CostBreakdown{
			BaseHourly: 75, Overhead: 11.25, Profit: 7.5, TotalHourly: 93.75, AdjustedHourly: 101.25, AnnualHours: 2340,
		},
		Modifiers: models.Modifiers{Experience: 1.08, CompanySize: 1, RevenueSignal: 1.03, HoursNorm: 1.1},
		Target:    236925,
		Range:     models.Range{Low: 213233, Target: 236925, High: 272464},
		Notes:     []string{"Approach: cost"},
	}
	return req, res
}

func TestRender_Market(t *testing.T) {
	req, res := marketFixture()
	var buf bytes.Buffer
	if err := NewRenderer("Cardiff Tax Pros").Render(&buf, req, res, generatedAt); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", out[:min(len(out), 16)])
	}
	if !bytes.Contains(out, []byte("%%EOF")) {
		t.Error("output has no PDF trailer")
	}
}

func TestRender_Cost(t *testing.T) {
	req, res := costFixture()
	var buf bytes.Buffer
	if err := NewRenderer("").Render(&buf, req, res, generatedAt); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty output")
	}
}

func TestRender_ManyNotesSpillsOntoNewPage(t *testing.T) {
	req, res := marketFixture()
	for range 80 {
		res.Notes = append(res.Notes, "A long methodology note that takes up a full line of the page.")
	}
	var buf bytes.Buffer
	if err := NewRenderer("").Render(&buf, req, res, generatedAt); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestRender_NilResult(t *testing.T) {
	req, _ := marketFixture()
	if err := NewRenderer("").Render(&bytes.Buffer{}, req, nil, generatedAt); err == nil {
		t.Error("expected an error")
	}
}

func TestSummary_Market(t *testing.T) {
	req, res := marketFixture()
	md := Summary(req, res, generatedAt)
	for _, want := range []string{
		"Acme, Inc.",
		"Market approach, generated April 15, 2025",
		"**Target:** $168,600 ($14,050 per month)",
		"$151,740 to $193,890",
		"| Executive | 60.0% | $185,000 | $111,000 |",
		"Market composite: $137,800",
		"- Bands: Low -10%, High +15% from Target",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("summary missing %q:\n%s", want, md)
		}
	}
}

func TestSummary_Cost(t *testing.T) {
	req, res := costFixture()
	md := Summary(req, res, generatedAt)
	if !strings.Contains(md, "Hourly rate $75.00, loaded $93.75, adjusted $101.25 over 2340 hours.") {
		t.Errorf("cost line missing:\n%s", md)
	}
	if strings.Contains(md, "| Role |") {
		t.Error("cost summary should not include the role table")
	}
}

func TestSummaryHTML(t *testing.T) {
	req, res := marketFixture()
	req.Client.Name = "<script>alert(1)</script>"
	html, err := SummaryHTML(req, res, generatedAt)
	if err != nil {
		t.Fatalf("SummaryHTML: %v", err)
	}
	if !strings.Contains(html, "<table>") || !strings.Contains(html, "<h1>") {
		t.Errorf("expected a heading and a table:\n%s", html)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("client name was not escaped:\n%s", html)
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0"},
		{999, "$999"},
		{1000, "$1,000"},
		{118500.4, "$118,500"},
		{1234567.5, "$1,234,568"},
		{-5000, "-$5,000"},
	}
	for _, tt := range tests {
		if got := Money(tt.in); got != tt.want {
			t.Errorf("Money(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMoneyCents(t *testing.T) {
	if got := MoneyCents(76.385); got != "$76.39" {
		t.Errorf("got %q", got)
	}
	if got := MoneyCents(1076.4); got != "$1,076.40" {
		t.Errorf("got %q", got)
	}
}

func TestPercentAndFactor(t *testing.T) {
	if got := Percent(0.15); got != "15.0%" {
		t.Errorf("Percent: got %q", got)
	}
	if got := Factor(1.1); got != "1.100" {
		t.Errorf("Factor: got %q", got)
	}
	if got := Monthly(168600); got != 14050 {
		t.Errorf("Monthly: got %v", got)
	}
}
