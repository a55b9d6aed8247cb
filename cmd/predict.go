package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/churn-predictor/internal/analytics"
	"github.com/jmehdipour/churn-predictor/internal/artifact"
	"github.com/jmehdipour/churn-predictor/internal/csvio"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/pipeline"
)

var (
	predictOut      string
	predictModelDir string
	predictBy       []string
)

var predictCmd = &cobra.Command{
	Use:   "predict <customers.csv>",
	Short: "Score a customer table offline and print segment reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}
		dir := cfg.Model.Dir
		if predictModelDir != "" {
			dir = predictModelDir
		}

		dims := make([]model.Dimension, 0, len(predictBy))
		for _, b := range predictBy {
			d := model.Dimension(b)
			if !d.Valid() {
				return fmt.Errorf("unknown segment dimension %q", b)
			}
			dims = append(dims, d)
		}

		bundle, err := artifact.LoadDir(dir)
		if err != nil {
			return fmt.Errorf("load model artifacts from %s: %w", dir, err)
		}

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer in.Close()

		rows, err := csvio.ReadRows(in)
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		records := make([]model.RawRecord, len(rows))
		for i, r := range rows {
			records[i] = r.Record()
		}

		out, err := pipeline.New(bundle, cfg.Pipeline.Workers).RunBatch(records)
		if err != nil {
			return fmt.Errorf("score: %w", err)
		}
		for _, f := range out.Failures() {
			logger.Log.Warn("row skipped", zap.Int("row", f.Row), zap.String("customer_id", f.CustomerID), zap.String("reason", f.Reason))
		}

		var w io.Writer = cmd.OutOrStdout()
		if predictOut != "" && predictOut != "-" {
			f, err := os.Create(predictOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", predictOut, err)
			}
			defer f.Close()
			w = f
		}
		if err := csvio.WriteResults(w, csvio.ResultRows(rows, out)); err != nil {
			return fmt.Errorf("write results: %w", err)
		}

		report := cmd.ErrOrStderr()
		writeDistribution(report, analytics.TierDistribution(out.Outcomes), out.Failed)
		for _, d := range dims {
			writeSegments(report, d, analytics.Aggregate(out.Outcomes, d, analytics.ByRevenueAtRisk))
		}
		return nil
	},
}

func init() {
	predictCmd.Flags().StringVarP(&predictOut, "out", "o", "", "results CSV path (default stdout)")
	predictCmd.Flags().StringVar(&predictModelDir, "model-dir", "", "artifact directory (overrides model.dir)")
	predictCmd.Flags().StringSliceVar(&predictBy, "by",
		[]string{string(model.DimContract), string(model.DimInternetService)},
		"segment dimensions to report")
}

func writeDistribution(w io.Writer, d model.Distribution, failed int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "TIER\tCUSTOMERS\tSHARE\n")
	for _, t := range d.Tiers {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Tier, t.Customers, csvio.FormatPercent(t.Share))
	}
	fmt.Fprintf(tw, "scored\t%d\t\nskipped\t%d\t\n\n", d.Total, failed)
	_ = tw.Flush()
}

func writeSegments(w io.Writer, d model.Dimension, segs []model.SegmentSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tCUSTOMERS\tMEAN RISK\tAT RISK\tANNUAL REVENUE AT RISK\n", d)
	for _, s := range segs {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n",
			s.Key, s.Customers, csvio.FormatPercent(s.MeanProbability), s.AtRiskCustomers, s.AnnualRevenueAtRisk.StringFixed(2))
	}
	fmt.Fprintln(tw)
	_ = tw.Flush()
}
