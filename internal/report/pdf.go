package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Dan9191/reasonable-comp/internal/models"
	"github.com/go-pdf/fpdf"
)

// DefaultBrand heads the report when none is configured
const DefaultBrand = "Reasonable Compensation"

const (
	labelWidth = 70.0
	valueWidth = 90.0
	rowHeight  = 7.0
)

// Renderer produces the PDF documentation for a calculation
type Renderer struct {
	brand string
}

// NewRenderer creates a renderer; brand is printed in the page header
func NewRenderer(brand string) *Renderer {
	if brand == "" {
		brand = DefaultBrand
	}
	return &Renderer{brand: brand}
}

// Render writes the report for req and res to w
func (r *Renderer) Render(w io.Writer, req models.CalcRequest, res *models.CalcResult, generatedAt time.Time) error {
	if res == nil {
		return errors.New("report requires a calculation result")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Reasonable Compensation Analysis - "+r.brand, true)
	pdf.SetSubject("S-Corp Owner Compensation Documentation", true)
	pdf.SetAuthor(r.brand, true)
	pdf.SetCreator("reasonable-comp", true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(59, 130, 246)
	pdf.CellFormat(0, 12, tr(r.brand), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(0, 0, 128)
	pdf.CellFormat(0, 10, "Reasonable Compensation Analysis", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 7, "Generated on "+generatedAt.Format("January 2, 2006 at 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, "Documentation for IRS Compliance - "+ApproachLabel(res.Approach)+" Approach", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section(pdf, "Company Information")
	rows(pdf, tr, [][2]string{
		{"Owner / Company:", req.Client.Name},
		{"State:", req.Client.State},
		{"Metro Area:", orNotSpecified(req.Client.Metro)},
		{"Industry:", orNotSpecified(req.Client.Industry)},
		{"Annual Revenue:", Money(req.Financials.Revenue)},
		{"Net Profit:", Money(req.Financials.NetProfit)},
		{"Number of Employees:", strconv.Itoa(req.Company.Employees)},
	})

	section(pdf, "Owner Profile")
	rows(pdf, tr, [][2]string{
		{"Years of Experience:", strconv.FormatFloat(req.Owner.ExperienceYears, 'f', -1, 64)},
		{"Hours per Week:", strconv.FormatFloat(req.Owner.HoursPerWeek, 'f', -1, 64)},
	})

	if res.CostBreakdown != nil {
		cost, _ := req.Method().(models.CostApproach)
		cb := res.CostBreakdown
		section(pdf, "Cost Approach Breakdown")
		rows(pdf, tr, [][2]string{
			{"Base Hourly Rate:", MoneyCents(cb.BaseHourly)},
			{fmt.Sprintf("Overhead (%s%%):", trimFloat(cost.OverheadPercentage)), MoneyCents(cb.Overhead)},
			{fmt.Sprintf("Profit Margin (%s%%):", trimFloat(cost.ProfitMargin)), MoneyCents(cb.Profit)},
			{"Total Hourly Rate:", MoneyCents(cb.TotalHourly)},
			{"Adjusted Hourly Rate:", MoneyCents(cb.AdjustedHourly)},
			{"Annual Hours:", trimFloat(cb.AnnualHours)},
		})
	} else {
		section(pdf, "Role Distribution Analysis")
		roleTable(pdf, res.RoleBreakdown)
	}

	section(pdf, "Compensation Analysis Results")
	results := [][2]string{}
	if res.MarketComposite != nil {
		results = append(results, [2]string{"Market Composite:", Money(float64(*res.MarketComposite))})
	} else if res.CostBreakdown != nil {
		results = append(results, [2]string{"Total Hourly Rate:", MoneyCents(res.CostBreakdown.TotalHourly)})
	}
	results = append(results,
		[2]string{"Target Compensation:", Money(float64(res.Target))},
		[2]string{"Monthly Target:", Money(Monthly(res.Target))},
		[2]string{"Low Range:", Money(float64(res.Range.Low))},
		[2]string{"Low Range Monthly:", Money(Monthly(res.Range.Low))},
		[2]string{"High Range:", Money(float64(res.Range.High))},
		[2]string{"High Range Monthly:", Money(Monthly(res.Range.High))},
	)
	rows(pdf, tr, results)

	section(pdf, "Applied Modifiers")
	m := res.Modifiers
	rows(pdf, tr, [][2]string{
		{"Experience Modifier:", Factor(m.Experience)},
		{"Company Size Modifier:", Factor(m.CompanySize)},
		{"Revenue Signal Modifier:", Factor(m.RevenueSignal)},
		{"Hours Normalization:", Factor(m.HoursNorm)},
		{"Total Modifier Product:", Factor(m.Product())},
	})

	if res.Benefits.Considered {
		section(pdf, "Benefits Analysis")
		rows(pdf, tr, [][2]string{
			{"Benefits Included:", "Yes"},
			{"Annual Benefits Value:", Money(res.Benefits.EstimatedAnnual)},
			{"Total Compensation + Benefits:", Money(float64(res.Target) + res.Benefits.EstimatedAnnual)},
		})
	}

	section(pdf, "Methodology & Notes")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, note := range res.Notes {
		pdf.MultiCell(0, 5, tr("- "+note), "", "L", false)
	}
	pdf.Ln(4)

	section(pdf, "IRS Compliance Statement")
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, "S-Corporation shareholder-employees must be paid reasonable compensation for "+
		"services rendered before non-wage distributions are taken. This analysis documents a "+
		"supportable range using the approach and data described above. It is an estimate for "+
		"planning purposes only and is not legal or tax advice.", "", "L", false)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 128)
	pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
}

func rows(pdf *fpdf.Fpdf, tr func(string) string, data [][2]string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range data {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelWidth, rowHeight, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(valueWidth, rowHeight, tr(row[1]), "", 1, "R", false, 0, "")
	}
}

func roleTable(pdf *fpdf.Fpdf, breakdown []models.RoleContribution) {
	widths := []float64{50, 40, 45, 45}
	header := []string{"Role", "Time Allocation", "Baseline", "Contribution"}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(0, 0, 128)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range header {
		pdf.CellFormat(widths[i], rowHeight, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, rc := range breakdown {
		pdf.CellFormat(widths[0], rowHeight, RoleLabel(rc.Role), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], rowHeight, Percent(rc.Share), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], rowHeight, Money(rc.Baseline), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], rowHeight, Money(rc.Contribution), "1", 1, "R", false, 0, "")
	}
}

func orNotSpecified(s string) string {
	if s == "" {
		return "Not specified"
	}
	return s
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
