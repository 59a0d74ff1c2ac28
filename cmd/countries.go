package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/transitlab/transit-ratio/internal/countries"
	"github.com/transitlab/transit-ratio/internal/model"
)

var countriesMatch string

var countriesCmd = &cobra.Command{
	Use:   "countries [code...]",
	Short: "List known country codes, or resolve the given ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("retrieve"); err != nil {
			return err
		}

		directory := countries.NewDirectory(initOpendata())
		if err := directory.Ensure(ctx); err != nil {
			return eris.Wrap(err, "load country directory")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if len(args) > 0 {
			out := make(map[string]string, len(args))
			for _, arg := range args {
				code := strings.ToUpper(strings.TrimSpace(arg))
				name, ok := directory.Resolve(code)
				if !ok {
					return eris.Wrapf(model.ErrInvalidArgument, "unknown country code %q", arg)
				}
				out[code] = name
			}
			return enc.Encode(out)
		}

		match := strings.ToLower(countriesMatch)
		out := make([]map[string]string, 0)
		for _, code := range directory.Codes() {
			name := directory.Name(code)
			if match != "" &&
				!strings.Contains(strings.ToLower(name), match) &&
				!strings.Contains(strings.ToLower(code), match) {
				continue
			}
			out = append(out, map[string]string{"code": code, "name": name})
		}
		return enc.Encode(out)
	},
}

func init() {
	countriesCmd.Flags().StringVar(&countriesMatch, "match", "", "only list countries whose code or name contains this text")
	rootCmd.AddCommand(countriesCmd)
}
