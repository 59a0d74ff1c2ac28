package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/transitlab/transit-ratio/internal/store"
)

var (
	sessionsCountry string
	sessionsLimit   int
	sessionsOffset  int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored analysis sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		list, err := st.ListSessions(ctx, store.SessionFilter{
			Country: strings.ToUpper(strings.TrimSpace(sessionsCountry)),
			Limit:   sessionsLimit,
			Offset:  sessionsOffset,
		})
		if err != nil {
			return eris.Wrap(err, "list sessions")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsCountry, "country", "", "filter by ISO 3166-1 alpha-2 country code")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 0, "max sessions to list (default 100)")
	sessionsCmd.Flags().IntVar(&sessionsOffset, "offset", 0, "rows to skip")
	rootCmd.AddCommand(sessionsCmd)
}
