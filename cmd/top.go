package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/transitlab/transit-ratio/internal/store"
)

var (
	topSession string
	topN       int
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Print the most populous cities of a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("retrieve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		sess, err := st.GetSession(ctx, topSession)
		if err != nil {
			return eris.Wrapf(err, "load session %s", topSession)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sess.TopCities(topN))
	},
}

func init() {
	topCmd.Flags().StringVar(&topSession, "session", store.Latest, "session ID")
	topCmd.Flags().IntVarP(&topN, "n", "n", 5, "number of rows")
	rootCmd.AddCommand(topCmd)
}
