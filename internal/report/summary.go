package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/reasonable-comp/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Summary renders a short markdown digest of a calculation, used as the
// e-mail body that accompanies the PDF.
func Summary(req models.CalcRequest, res *models.CalcResult, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Reasonable Compensation Analysis: %s\n\n", escape(req.Client.Name))
	fmt.Fprintf(&b, "*%s approach, generated %s*\n\n", ApproachLabel(res.Approach), generatedAt.Format("January 2, 2006"))

	fmt.Fprintf(&b, "**Target:** %s (%s per month)\n\n", Money(float64(res.Target)), Money(Monthly(res.Target)))
	fmt.Fprintf(&b, "**Range:** %s to %s\n\n", Money(float64(res.Range.Low)), Money(float64(res.Range.High)))

	if res.MarketComposite != nil && len(res.RoleBreakdown) > 0 {
		b.WriteString("| Role | Share | Baseline | Contribution |\n")
		b.WriteString("|---|---:|---:|---:|\n")
		for _, rc := range res.RoleBreakdown {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", RoleLabel(rc.Role), Percent(rc.Share), Money(rc.Baseline), Money(rc.Contribution))
		}
		fmt.Fprintf(&b, "\nMarket composite: %s\n\n", Money(float64(*res.MarketComposite)))
	}
	if cb := res.CostBreakdown; cb != nil {
		fmt.Fprintf(&b, "Hourly rate %s, loaded %s, adjusted %s over %s hours.\n\n",
			MoneyCents(cb.BaseHourly), MoneyCents(cb.TotalHourly), MoneyCents(cb.AdjustedHourly), trimFloat(cb.AnnualHours))
	}

	if len(res.Notes) > 0 {
		b.WriteString("## Notes\n\n")
		for _, n := range res.Notes {
			fmt.Fprintf(&b, "- %s\n", escape(n))
		}
	}
	return b.String()
}

// SummaryHTML is Summary rendered to HTML
func SummaryHTML(req models.CalcRequest, res *models.CalcResult, generatedAt time.Time) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(Summary(req, res, generatedAt)), &buf); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return buf.String(), nil
}

// escape keeps user text from being read as markdown
func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "|", `\|`, "<", "&lt;", ">", "&gt;", "[", `\[`, "]", `\]`)
	return r.Replace(s)
}
