package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/quantile"
)

// valuationCmd represents the valuation command
var valuationCmd = &cobra.Command{
	Use:   "valuation",
	Short: "지수 밸류에이션 조회 및 포지션 결정",
	Long: `지수 PE/PB 이력, 분위 리포트, 포지션 결정을 조회합니다.

Subcommands:
  history     - 지수의 PE/PB 샘플 이력
  report      - PE/PB 분위 리포트 (기본: 전체 유니버스)
  decide      - 포지션 결정 (기본: 전체 유니버스)
  percentile  - 임의 분포에서의 분위 계산
  rebalance   - 유니버스 리밸런싱 주문 의도 산출

Example:
  go run ./cmd/quant valuation history 000300.XSHG --days 365
  go run ./cmd/quant valuation report --date 2024-01-09
  go run ./cmd/quant valuation decide 000300.XSHG 000905.XSHG
  go run ./cmd/quant valuation percentile 6 --of 1,2,3,4,5,6,7,8,9,10,11
  go run ./cmd/quant valuation rebalance --dry-run`,
}

var (
	valuationHistoryCmd = &cobra.Command{
		Use:   "history <index>",
		Short: "PE/PB 샘플 이력",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}

	valuationReportCmd = &cobra.Command{
		Use:   "report [index...]",
		Short: "PE/PB 분위 리포트",
		RunE:  runReport,
	}

	valuationDecideCmd = &cobra.Command{
		Use:   "decide [index...]",
		Short: "포지션 결정",
		RunE:  runDecide,
	}

	valuationPercentileCmd = &cobra.Command{
		Use:   "percentile <value>",
		Short: "분포에서의 분위 계산",
		Args:  cobra.ExactArgs(1),
		RunE:  runPercentile,
	}

	valuationRebalanceCmd = &cobra.Command{
		Use:   "rebalance",
		Short: "리밸런싱 주문 의도 산출 (실행하지 않음)",
		RunE:  runRebalance,
	}
)

var (
	valuationDate    string
	valuationJSON    bool
	historyDays      int
	historyInterval  int
	percentileValues []float64
	rebalanceDryRun  bool
)

func init() {
	rootCmd.AddCommand(valuationCmd)
	valuationCmd.AddCommand(valuationHistoryCmd)
	valuationCmd.AddCommand(valuationReportCmd)
	valuationCmd.AddCommand(valuationDecideCmd)
	valuationCmd.AddCommand(valuationPercentileCmd)
	valuationCmd.AddCommand(valuationRebalanceCmd)

	// Flags
	valuationCmd.PersistentFlags().StringVar(&valuationDate, "date", "", "base date YYYY-MM-DD (default today)")
	valuationCmd.PersistentFlags().BoolVar(&valuationJSON, "json", false, "JSON output")
	valuationHistoryCmd.Flags().IntVar(&historyDays, "days", 0, "lookback days (default from strategy config)")
	valuationHistoryCmd.Flags().IntVar(&historyInterval, "interval", 0, "trading-day stride (default from strategy config)")
	valuationPercentileCmd.Flags().Float64SliceVar(&percentileValues, "of", nil, "distribution, comma separated")
	_ = valuationPercentileCmd.MarkFlagRequired("of")
	valuationRebalanceCmd.Flags().BoolVar(&rebalanceDryRun, "dry-run", false, "do not persist decisions and orders")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	base, err := a.baseDate(valuationDate)
	if err != nil {
		return err
	}

	params := a.indexBeta.Params()
	days, interval := params.LookbackDays, params.Interval
	if historyDays > 0 {
		days = historyDays
	}
	if historyInterval > 0 {
		interval = historyInterval
	}

	ctx, cancel := withTimeout(10 * time.Minute)
	defer cancel()

	end := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, a.location)
	history, err := a.history.Build(ctx, args[0], end.AddDate(0, 0, -days), end, interval)
	if err != nil {
		return fmt.Errorf("build history: %w", err)
	}

	out := cmd.OutOrStdout()
	if valuationJSON {
		return writeJSON(out, history)
	}

	PrintHeader(out, "Valuation History", [][2]string{
		{"Index", args[0]},
		{"Period", history.Begin.Format(dateLayout) + " ~ " + history.End.Format(dateLayout)},
		{"Interval", strconv.Itoa(interval)},
		{"Samples", strconv.Itoa(history.Len())},
	})
	PrintHistory(out, history)
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	base, err := a.baseDate(valuationDate)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(30 * time.Minute)
	defer cancel()

	out := cmd.OutOrStdout()
	reports := make([]*contracts.ValuationReport, 0)
	for _, indexID := range a.indices(args) {
		report, err := a.indexBeta.Report(ctx, indexID, base)
		if err != nil {
			a.log.WithIndex(indexID).WithError(err).Warn("Report skipped")
			continue
		}
		reports = append(reports, report)
	}

	if valuationJSON {
		return writeJSON(out, reports)
	}

	PrintHeader(out, "Valuation Report", [][2]string{
		{"Date", base.Format(dateLayout)},
		{"Window", strconv.Itoa(a.indexBeta.Params().ReportLookbackDays) + " days"},
	})
	PrintReports(out, reports)
	return nil
}

func runDecide(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	base, err := a.baseDate(valuationDate)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(30 * time.Minute)
	defer cancel()

	out := cmd.OutOrStdout()
	decisions := make([]*contracts.PositionDecision, 0)
	for _, indexID := range a.indices(args) {
		d, err := a.indexBeta.Evaluate(ctx, indexID, base)
		if err != nil {
			a.log.WithIndex(indexID).WithError(err).Error("Position decision failed")
			continue
		}
		decisions = append(decisions, d)
	}

	if valuationJSON {
		return writeJSON(out, decisions)
	}

	PrintHeader(out, "Position Decisions", [][2]string{
		{"Date", base.Format(dateLayout)},
		{"Strategy", a.snapshot.StrategyID},
		{"Config", a.snapshot.ConfigHash[:12]},
	})
	PrintDecisions(out, decisions)
	return nil
}

func runRebalance(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	base, err := a.baseDate(valuationDate)
	if err != nil {
		return err
	}

	rb, err := a.newRebalancer(rebalanceDryRun)
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(30 * time.Minute)
	defer cancel()

	result, err := rb.Run(ctx, base)
	if err != nil && result == nil {
		return err
	}

	out := cmd.OutOrStdout()
	if valuationJSON {
		if encErr := writeJSON(out, result); encErr != nil {
			return encErr
		}
		return err
	}

	PrintHeader(out, "Rebalance", [][2]string{
		{"Date", base.Format(dateLayout)},
		{"Unit cash", num(a.strategyCfg.UnitCash())},
		{"Dry run", strconv.FormatBool(rebalanceDryRun)},
	})
	PrintOrders(out, result)
	return err
}

// runPercentile needs no data source, so it skips app wiring
func runPercentile(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[0], err)
	}

	q, err := quantile.Deciles(percentileValues)
	if err != nil {
		return err
	}
	p := quantile.PercentileOfDeciles(value, q)

	out := cmd.OutOrStdout()
	if valuationJSON {
		return writeJSON(out, map[string]interface{}{
			"value":      value,
			"percentile": p,
			"deciles":    q,
		})
	}

	fmt.Fprintf(out, "value %s is at %s of %d values\n", num(value), pct(p), len(percentileValues))
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
