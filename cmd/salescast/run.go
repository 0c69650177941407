package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sartorproj/salescast/analysis"
	"github.com/sartorproj/salescast/export"
	"github.com/sartorproj/salescast/timeseries"
)

var (
	runShop    string
	runShopID  int
	runHorizon int
	runXLSX    string
	runJSON    string
	runCSV     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyse one shop, or all shops when none is given",
	Long: `Aggregates the shop's sales by month, decomposes the series, fits the
changepoint model and selects the best Holt-Winters configuration on a
train/validation/test split. Results can be exported as an xlsx workbook
with charts, as JSON, or as a CSV of the monthly totals.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		req := analysis.Request{ShopName: runShop, Horizon: runHorizon}
		if cmd.Flags().Changed("shop-id") {
			req.ShopID = &runShopID
		}

		report, err := a.session.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		if runXLSX != "" {
			if err := export.SaveWorkbook(report, runXLSX); err != nil {
				return err
			}
		}
		if runJSON != "" {
			if err := export.SaveJSON(report, runJSON); err != nil {
				return err
			}
		}
		if runCSV != "" {
			if err := timeseries.SaveCSV(report.Monthly.TimeSeries(), runCSV); err != nil {
				return err
			}
		}

		return printSummary(cmd.OutOrStdout(), report)
	},
}

func init() {
	runCmd.Flags().StringVar(&runShop, "shop", "", "shop name")
	runCmd.Flags().IntVar(&runShopID, "shop-id", 0, "shop id")
	runCmd.Flags().IntVar(&runHorizon, "horizon", 0, "months to forecast past the data (default from config)")
	runCmd.Flags().StringVar(&runXLSX, "xlsx", "", "write the workbook to this path")
	runCmd.Flags().StringVar(&runJSON, "json", "", "write the JSON report to this path")
	runCmd.Flags().StringVar(&runCSV, "csv", "", "write the monthly totals to this path")
	runCmd.MarkFlagsMutuallyExclusive("shop", "shop-id")

	rootCmd.AddCommand(runCmd)
}

func printSummary(w io.Writer, r *analysis.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n\n", r.Title)
	fmt.Fprintf(tw, "run\t%s\n", r.RunID)
	fmt.Fprintf(tw, "months\t%d\n", len(r.Monthly.Points))
	fmt.Fprintf(tw, "offset\t%g\n", r.Offset)
	fmt.Fprintf(tw, "split\t%d / %d / %d\n", len(r.Split.Train.Points), len(r.Split.Valid.Points), len(r.Split.Test.Points))
	if r.Extended != nil {
		fmt.Fprintf(tw, "extended forecast\t%d points\n", len(r.Extended.Points))
	}

	if r.Selection.Viable {
		fmt.Fprintf(tw, "selected\t%s (MSE %.4g)\n", r.Selection.Label, float64(r.Selection.MSE))
		if acc := r.Selection.TestAccuracy; acc != nil {
			fmt.Fprintf(tw, "test accuracy\tRMSE %.4g, MAE %.4g, MAPE %.2f%%\n", float64(acc.RMSE), float64(acc.MAE), float64(acc.MAPE))
		}
	} else {
		fmt.Fprintf(tw, "selected\tnone: %s\n", r.Selection.Reason)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "configuration\tMSE\terror")
	for _, a := range r.Selection.Attempts {
		mse := "-"
		if !a.MSE.IsNaN() {
			mse = fmt.Sprintf("%.4g", float64(a.MSE))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Label, mse, a.Error)
	}
	return tw.Flush()
}
