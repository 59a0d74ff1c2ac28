package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/render"
)

var (
	runCountry    string
	runPercentile float64
	runOrigin     string
	runTop        int
	runOut        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Retrieve cities and evaluate routes in one pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "travel")
		if err != nil {
			return err
		}
		defer env.Close()

		sess, err := env.Pipeline.Analyze(ctx, runCountry, runPercentile, runOrigin)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		zap.L().Info("analysis complete",
			zap.String("session", sess.ID),
			zap.String("country", sess.Country),
			zap.String("origin", sess.Origin),
			zap.Int("cities", len(sess.Cities)),
		)

		if runOut != "" {
			view, err := env.Pipeline.BuildMap(ctx, sess)
			if err != nil {
				return eris.Wrap(err, "build map")
			}
			f, err := os.Create(runOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", runOut)
			}
			defer f.Close()
			if err := render.HTML(f, view); err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return eris.Wrapf(err, "close %s", runOut)
			}
			zap.L().Info("map written", zap.String("path", runOut))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if runTop > 0 {
			return enc.Encode(sess.TopCities(runTop))
		}
		return enc.Encode(sess)
	},
}

func init() {
	runCmd.Flags().StringVar(&runCountry, "country", "", "ISO 3166-1 alpha-2 country code (required)")
	runCmd.Flags().Float64Var(&runPercentile, "percentile", 99.5, "population percentile cutoff")
	runCmd.Flags().StringVar(&runOrigin, "origin", "", "origin address (default from config)")
	runCmd.Flags().IntVar(&runTop, "top", 0, "print only the n most populous rows")
	runCmd.Flags().StringVar(&runOut, "out", "", "also write the HTML map to this path")
	_ = runCmd.MarkFlagRequired("country")
	rootCmd.AddCommand(runCmd)
}
