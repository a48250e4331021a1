package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"kabu-vault/internal/display"
	"kabu-vault/internal/finance"
	"kabu-vault/internal/store"
)

var (
	analyzeTicker string
	analyzeInput  string
	analyzeJSON   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Derive financial ratios, growth and trends for a ticker",
	Long: `Derive profitability, safety and efficiency ratios, year-over-year
growth classifications, CAGR and trend signals from a ticker's stored
fiscal periods.

Input comes from the application database (--ticker) or from a JSON
file holding an array of period records (--input). Output is a set of
tables, or the raw analysis as JSON with --json.

Examples:
  kabu-vault analyze --ticker 7203
  kabu-vault analyze --ticker 7203 --json
  kabu-vault analyze --input periods.json`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeTicker, "ticker", "t", "", "ticker symbol to analyze from the database")
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "JSON file with an array of period records")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	printer := newPrinter()

	history, label, err := loadHistory(cmd)
	if err != nil {
		printer.Errorf("%v", err)
		return err
	}
	if len(history) == 0 {
		printer.Warnf("No fiscal periods found for %s", label)
		return nil
	}

	analysis := finance.Analyze(history)

	if analyzeJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(analysis)
	}

	renderAnalysis(printer, label, len(history), analysis)
	return nil
}

// loadHistory resolves the period history from --input or the database
func loadHistory(cmd *cobra.Command) ([]finance.PeriodData, string, error) {
	switch {
	case analyzeInput != "" && analyzeTicker != "":
		return nil, "", fmt.Errorf("--ticker and --input are mutually exclusive")
	case analyzeInput != "":
		data, err := os.ReadFile(analyzeInput)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", analyzeInput, err)
		}
		var history []finance.PeriodData
		if err := json.Unmarshal(data, &history); err != nil {
			return nil, "", fmt.Errorf("failed to parse %s: %w", analyzeInput, err)
		}
		return history, analyzeInput, nil
	case analyzeTicker != "":
		config, err := loadConfig()
		if err != nil {
			return nil, "", err
		}
		db, err := store.Open(config.Sources.DatabasePath)
		if err != nil {
			return nil, "", err
		}
		defer db.Close()

		history, err := db.Periods(cmd.Context(), analyzeTicker)
		if err != nil {
			return nil, "", err
		}
		return history, analyzeTicker, nil
	default:
		return nil, "", fmt.Errorf("either --ticker or --input is required")
	}
}

func renderAnalysis(printer *display.Printer, label string, periods int, a finance.Analysis) {
	printer.Headerf("Analysis for %s", label)
	printer.Infof("Latest period: %s (%d period(s) on record)", a.LatestPeriod, periods)

	printer.Headerf("Ratios")
	printer.Table([]string{"Ratio", "Value", "Basis"}, [][]string{
		{"Operating margin", fmtPercent(a.Profitability.OperatingMargin), ""},
		{"Ordinary margin", fmtPercent(a.Profitability.OrdinaryMargin), ""},
		{"Net margin", fmtPercent(a.Profitability.NetMargin), ""},
		{"ROE", fmtRatioPercent(a.Profitability.ROE), fmtBasis(a.Profitability.ROE)},
		{"ROA", fmtRatioPercent(a.Profitability.ROA), fmtBasis(a.Profitability.ROA)},
		{"Equity ratio", fmtPercent(a.Safety.EquityRatio), ""},
		{"Current ratio", fmtPercent(a.Safety.CurrentRatio), ""},
		{"Asset turnover", fmtRatioPlain(a.Efficiency.AssetTurnover), fmtBasis(a.Efficiency.AssetTurnover)},
		{"ROIC", fmtRatioPercent(a.Efficiency.ROIC), fmtBasis(a.Efficiency.ROIC)},
		{"NOPAT", fmtAmount(a.Efficiency.NOPAT), ""},
		{"Invested capital", fmtAmount(a.Efficiency.InvestedCapital), ""},
	})

	if len(a.GrowthYoY) > 0 {
		printer.Headerf("Growth (YoY)")
		rows := make([][]string, 0, len(a.GrowthYoY))
		for _, m := range []finance.Metric{
			finance.MetricRevenue,
			finance.MetricOperatingIncome,
			finance.MetricOrdinaryIncome,
			finance.MetricNetIncome,
			finance.MetricEPS,
			finance.MetricOperatingCF,
			finance.MetricEquity,
			finance.MetricTotalAssets,
		} {
			g, ok := a.GrowthYoY[m]
			if !ok {
				continue
			}
			rows = append(rows, []string{string(m), fmtPercent(g.Rate), string(g.Class)})
		}
		printer.Table([]string{"Metric", "Rate", "Class"}, rows)
	}

	if a.Quality != nil {
		printer.Headerf("Growth quality")
		highGrowth := "no"
		if a.Quality.HighGrowth {
			highGrowth = "yes"
		}
		printer.Table([]string{"Measure", "Value"}, [][]string{
			{"Revenue CAGR (3y)", fmtPercent(a.Quality.RevenueCAGR3Y)},
			{"Revenue CAGR (5y)", fmtPercent(a.Quality.RevenueCAGR5Y)},
			{"Op income CAGR (3y)", fmtPercent(a.Quality.OpIncomeCAGR3Y)},
			{"EPS CAGR (3y)", fmtPercent(a.Quality.EPSCAGR3Y)},
			{"Consecutive growth years", fmt.Sprintf("%d", a.Quality.ConsecutiveGrowthYears)},
			{"Margin trend", string(a.Quality.MarginTrend)},
			{"High growth", highGrowth},
		})
	}

	if len(a.Trends) > 0 {
		printer.Headerf("Trends")
		rows := make([][]string, 0, len(a.Trends))
		for _, m := range []finance.Metric{finance.MetricRevenue, finance.MetricOperatingIncome, finance.MetricEPS} {
			t, ok := a.Trends[m]
			if !ok {
				continue
			}
			rows = append(rows, []string{string(m), t.TrendPct.StringFixed(2) + "%", t.Direction})
		}
		printer.Table([]string{"Metric", "Per period", "Direction"}, rows)
	}
}

func fmtPercent(v *decimal.Decimal) string {
	if v == nil {
		return "-"
	}
	return v.StringFixed(2) + "%"
}

func fmtAmount(v *decimal.Decimal) string {
	if v == nil {
		return "-"
	}
	return v.String()
}

func fmtRatioPercent(r *finance.Ratio) string {
	if r == nil {
		return "-"
	}
	return r.Value.StringFixed(2) + "%"
}

func fmtRatioPlain(r *finance.Ratio) string {
	if r == nil {
		return "-"
	}
	return r.Value.StringFixed(2) + "x"
}

func fmtBasis(r *finance.Ratio) string {
	if r == nil {
		return ""
	}
	switch r.Basis {
	case finance.BasisPeriodAverage:
		return "period average"
	case finance.BasisPointInTime:
		return "point in time"
	}
	return string(r.Basis)
}
