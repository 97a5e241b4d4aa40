package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/rebalance"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const dateLayout = "2006-01-02"

// PrintHeader prints a titled block with key/value lines
func PrintHeader(w io.Writer, title string, kv [][2]string) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
	for _, p := range kv {
		fmt.Fprintf(w, "  %-10s: %s\n", p[0], p[1])
	}
	PrintSeparator(w)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	cells := make([]string, len(values))
	for i, val := range values {
		cells[i] = fmt.Sprintf("%-*s", widths[i], val)
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
}

var reportWidths = []int{12, 10, 3, 8, 6, 8, 8, 8, 8, 8, 8}

// PrintReports prints the pe/pb percentile table, two rows per index
func PrintReports(w io.Writer, reports []*contracts.ValuationReport) {
	PrintTableHeader(w,
		[]string{"index", "name", "", "current", "pct", "min", "30%", "50%", "70%", "max", "samples"},
		reportWidths)

	for _, r := range reports {
		for _, f := range []struct {
			label string
			stats contracts.FactorStats
		}{{"pe", r.PE}, {"pb", r.PB}} {
			id, name := r.IndexID, r.Name
			if f.label == "pb" {
				id, name = "", ""
			}
			q := f.stats.Deciles
			PrintTableRow(w, []string{
				id, name, f.label,
				num(f.stats.Current), pct(f.stats.Percentile),
				num(q[0]), num(q[3]), num(q[5]), num(q[7]), num(q[10]),
				fmt.Sprintf("%d", f.stats.SampleCount),
			}, reportWidths)
		}
	}
}

var decisionWidths = []int{12, 10, 7, 6, 6, 6, 7, 15, 8}

// PrintDecisions prints one line per position decision
func PrintDecisions(w io.Writer, decisions []*contracts.PositionDecision) {
	PrintTableHeader(w,
		[]string{"index", "date", "pe", "pe%", "pb", "pb%", "avg_roe", "rule", "position"},
		decisionWidths)

	for _, d := range decisions {
		rule := string(d.Rule)
		if d.Reason != "" {
			rule += " (" + d.Reason + ")"
		}
		PrintTableRow(w, []string{
			d.IndexID, d.Date.Format(dateLayout),
			num(d.PE), pct(d.PEQuantile), num(d.PB), pct(d.PBQuantile),
			num(d.AvgROE), rule, fmt.Sprintf("%+.4f", d.Position),
		}, decisionWidths)
	}
}

var historyWidths = []int{10, 8, 8, 8}

// PrintHistory prints the sampled series of one index
func PrintHistory(w io.Writer, h *contracts.ValuationHistory) {
	PrintTableHeader(w, []string{"date", "pe", "pb", "roe"}, historyWidths)
	for _, s := range h.Samples {
		PrintTableRow(w, []string{s.Date.Format(dateLayout), num(s.PE), num(s.PB), num(s.ROE)}, historyWidths)
	}
}

var orderWidths = []int{12, 8, 8, 12, 8}

// PrintOrders prints the order intents of a rebalance run
func PrintOrders(w io.Writer, result *rebalance.Result) {
	PrintTableHeader(w, []string{"index", "fund", "action", "amount", "shares"}, orderWidths)
	for _, o := range result.Orders {
		PrintTableRow(w, []string{
			o.IndexID, o.FundCode, string(o.Action),
			fmt.Sprintf("%.2f", o.Amount), fmt.Sprintf("%d", o.Shares),
		}, orderWidths)
	}
	for _, idx := range result.Failed {
		PrintWarning(w, fmt.Sprintf("%s failed, see log", idx))
	}
}

func num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
