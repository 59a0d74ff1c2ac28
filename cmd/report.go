package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/render"
	"github.com/transitlab/transit-ratio/internal/store"
)

var (
	reportSession string
	reportFormat  string
	reportOut     string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a session to an HTML map, GeoJSON or XLSX",
	Long:  "Builds the ratio map for a session and writes it as a self-contained Leaflet HTML page, a GeoJSON FeatureCollection, or an XLSX workbook of the full city table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		switch reportFormat {
		case "html", "geojson", "xlsx":
		default:
			return eris.Errorf("unknown format %q (want html, geojson or xlsx)", reportFormat)
		}

		// XLSX dumps stored rows only; the map formats also geocode the
		// country center.
		mode := "travel"
		if reportFormat == "xlsx" {
			mode = "retrieve"
		}

		env, err := initPipeline(ctx, mode)
		if err != nil {
			return err
		}
		defer env.Close()

		sess, err := env.Store.GetSession(ctx, reportSession)
		if err != nil {
			return eris.Wrapf(err, "load session %s", reportSession)
		}

		out := reportOut
		if out == "" {
			out = fmt.Sprintf("transit-ratio-%s.%s", strings.ToLower(sess.Country), reportFormat)
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close()

		switch reportFormat {
		case "html":
			view, err := env.Pipeline.BuildMap(ctx, sess)
			if err != nil {
				return eris.Wrap(err, "build map")
			}
			if err := render.HTML(f, view); err != nil {
				return err
			}
		case "geojson":
			view, err := env.Pipeline.BuildMap(ctx, sess)
			if err != nil {
				return eris.Wrap(err, "build map")
			}
			if err := render.GeoJSON(f, view); err != nil {
				return err
			}
		case "xlsx":
			if err := render.XLSX(f, sess); err != nil {
				return err
			}
		}

		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "close %s", out)
		}

		zap.L().Info("report written",
			zap.String("session", sess.ID),
			zap.String("format", reportFormat),
			zap.String("path", out),
		)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportSession, "session", store.Latest, "session ID")
	reportCmd.Flags().StringVar(&reportFormat, "format", "html", "output format: html, geojson or xlsx")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output path (default transit-ratio-<country>.<format>)")
	rootCmd.AddCommand(reportCmd)
}
