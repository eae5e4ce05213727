// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/perpwatch/funding-radar/business/arbitrage/domain"
	fundingDomain "github.com/perpwatch/funding-radar/business/funding/domain"
)

// Colors
var (
	colorPrimary = lipgloss.Color("#7C3AED") // Purple
	colorGreen   = lipgloss.Color("#10B981")
	colorRed     = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(colorPrimary).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	positiveStyle = lipgloss.NewStyle().Foreground(colorGreen)
	negativeStyle = lipgloss.NewStyle().Foreground(colorRed)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a reporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo creates a reporter writing to out.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// ReportOpportunities renders the ranked opportunity table.
func (r *ConsoleReporter) ReportOpportunities(opportunities []domain.Opportunity) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, titleStyle.Render("FUNDING ARBITRAGE OPPORTUNITIES"))

	if len(opportunities) == 0 {
		fmt.Fprintln(r.out, mutedStyle.Render("no opportunities found"))
		return
	}

	fmt.Fprintln(r.out, headerStyle.Render(fmt.Sprintf(
		"%-4s %-10s %-22s %-22s %9s %8s %12s %7s %7s",
		"#", "SYMBOL", "LONG (pays less)", "SHORT (pays more)", "SPREAD%", "PRICE%", "MIN VOL", "TTF", "SCORE")))

	for i, opp := range opportunities {
		fmt.Fprintf(r.out, "%-4d %-10s %-22s %-22s %9s %8s %12s %6.1fh %7.1f\n",
			i+1,
			opp.Symbol,
			legCell(opp.Long),
			legCell(opp.Short),
			positiveStyle.Render(opp.FundingSpread.StringFixed(4)),
			opp.PriceSpreadPercent.StringFixed(2),
			volumeCell(opp.MinVolume24h),
			opp.TimeToFundingHours,
			opp.QualityScore)
	}
}

// ReportMarket renders the market overview.
func (r *ConsoleReporter) ReportMarket(summary domain.MarketSummary) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, titleStyle.Render("MARKET OVERVIEW"))
	fmt.Fprintf(r.out, "records: %d   sources: %s ok / %s failed   age: %s\n",
		summary.TotalRecords,
		positiveStyle.Render(fmt.Sprintf("%d", len(summary.HealthySources))),
		negativeStyle.Render(fmt.Sprintf("%d", len(summary.FailedSources))),
		summary.Age.Round(time.Second).String())

	if len(summary.TopPositive) > 0 {
		fmt.Fprintln(r.out, headerStyle.Render("highest funding (shorts get paid)"))
		for _, rec := range summary.TopPositive {
			fmt.Fprintf(r.out, "  %-12s %-12s %s%%\n",
				rec.BaseAsset(), rec.Source, positiveStyle.Render(rec.RatePercent.StringFixed(4)))
		}
	}
	if len(summary.TopNegative) > 0 {
		fmt.Fprintln(r.out, headerStyle.Render("lowest funding (longs get paid)"))
		for _, rec := range summary.TopNegative {
			fmt.Fprintf(r.out, "  %-12s %-12s %s%%\n",
				rec.BaseAsset(), rec.Source, negativeStyle.Render(rec.RatePercent.StringFixed(4)))
		}
	}
}

// ReportSources renders one line per fetch outcome.
func (r *ConsoleReporter) ReportSources(snapshots []fundingDomain.SourceSnapshot) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, titleStyle.Render("SOURCES"))
	for _, snap := range snapshots {
		if snap.OK() {
			fmt.Fprintf(r.out, "  %s %-12s %4d records in %s\n",
				positiveStyle.Render("ok  "), snap.Source, len(snap.Records), snap.Elapsed.Round(time.Millisecond))
		} else {
			fmt.Fprintf(r.out, "  %s %-12s %s\n",
				negativeStyle.Render("fail"), snap.Source, mutedStyle.Render(truncateError(snap.Err.Error(), 80)))
		}
	}
}

func legCell(l domain.Leg) string {
	return fmt.Sprintf("%s @ %s%%", l.Source, l.RatePercent.StringFixed(4))
}

// volumeCell compacts a quote volume into $1.2M style output.
func volumeCell(v decimal.Decimal) string {
	f := v.InexactFloat64()
	switch {
	case f >= 1e9:
		return fmt.Sprintf("$%.1fB", f/1e9)
	case f >= 1e6:
		return fmt.Sprintf("$%.1fM", f/1e6)
	case f >= 1e3:
		return fmt.Sprintf("$%.1fK", f/1e3)
	case f > 0:
		return fmt.Sprintf("$%.0f", f)
	default:
		return "-"
	}
}

func truncateError(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
