package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/model"
)

var (
	retrieveCountry    string
	retrievePercentile float64
	retrieveSession    string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Build a session's city table for a country",
	Long:  "Downloads the country's city list from Opendatasoft, keeps the cities strictly above the population percentile, and stores the table on a session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "retrieve")
		if err != nil {
			return err
		}
		defer env.Close()

		var sess *model.Session
		if retrieveSession != "" {
			sess, err = env.Store.GetSession(ctx, retrieveSession)
			if err != nil {
				return eris.Wrapf(err, "load session %s", retrieveSession)
			}
		} else {
			sess, err = env.Pipeline.NewSession(ctx, retrieveCountry, retrievePercentile)
			if err != nil {
				return err
			}
		}

		if err := env.Pipeline.RetrieveCities(ctx, sess, retrieveCountry, retrievePercentile); err != nil {
			return eris.Wrap(err, "retrieve cities")
		}

		zap.L().Info("retrieval complete",
			zap.String("session", sess.ID),
			zap.String("country", sess.Country),
			zap.Int("cities", len(sess.Cities)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	},
}

func init() {
	retrieveCmd.Flags().StringVar(&retrieveCountry, "country", "", "ISO 3166-1 alpha-2 country code (required)")
	retrieveCmd.Flags().Float64Var(&retrievePercentile, "percentile", 99.5, "population percentile cutoff")
	retrieveCmd.Flags().StringVar(&retrieveSession, "session", "", "existing session ID to overwrite (or \"latest\")")
	_ = retrieveCmd.MarkFlagRequired("country")
	rootCmd.AddCommand(retrieveCmd)
}
