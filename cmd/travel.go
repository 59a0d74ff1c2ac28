package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/store"
)

var (
	travelSession string
	travelOrigin  string
)

var travelCmd = &cobra.Command{
	Use:   "travel",
	Short: "Evaluate driving and transit routes for a session",
	Long:  "Geocodes the origin and fills driving and transit distance, duration and the transit/driving ratio for every city in the session's table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "travel")
		if err != nil {
			return err
		}
		defer env.Close()

		sess, err := env.Store.GetSession(ctx, travelSession)
		if err != nil {
			return eris.Wrapf(err, "load session %s", travelSession)
		}

		if err := env.Pipeline.CalculateTravel(ctx, sess, travelOrigin); err != nil {
			return eris.Wrap(err, "calculate travel")
		}

		zap.L().Info("travel complete",
			zap.String("session", sess.ID),
			zap.String("origin", sess.Origin),
			zap.Int("cities", len(sess.Cities)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	},
}

func init() {
	travelCmd.Flags().StringVar(&travelSession, "session", store.Latest, "session ID")
	travelCmd.Flags().StringVar(&travelOrigin, "origin", "", "origin address (default from config)")
	rootCmd.AddCommand(travelCmd)
}
