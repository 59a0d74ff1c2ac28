// Package cities retrieves and filters a country's most populous cities
// from the Opendatasoft worldcitiespop dataset.
package cities

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/countries"
	"github.com/transitlab/transit-ratio/internal/model"
	"github.com/transitlab/transit-ratio/pkg/opendatasoft"
)

const datasetCities = "worldcitiespop"

// Result is a completed retrieval: the retained rows plus the resolved
// country identity and the population threshold that was applied.
type Result struct {
	Country     string
	CountryName string
	Threshold   float64
	Cities      []model.CityRow
}

// Retriever fetches city tables and applies the population quantile
// filter.
type Retriever struct {
	client    opendatasoft.Client
	directory *countries.Directory
}

// NewRetriever creates a retriever around the given client and directory.
func NewRetriever(client opendatasoft.Client, directory *countries.Directory) *Retriever {
	return &Retriever{client: client, directory: directory}
}

// Retrieve fetches every listed city of country and keeps those whose
// population strictly exceeds the (1 - percentile/100) population
// quantile. Rows come back sorted by descending population, duplicate
// city names dropped keeping the most populous occurrence. Rows whose
// population or geopoint fail to parse are skipped before the quantile
// is taken.
func (r *Retriever) Retrieve(ctx context.Context, country string, percentile float64) (*Result, error) {
	if math.IsNaN(percentile) || percentile < 0 || percentile > 100 {
		return nil, eris.Wrap(model.ErrInvalidArgument, "cities: percentile must be between 0 and 100")
	}
	if err := r.directory.Ensure(ctx); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(country))
	name, ok := r.directory.Resolve(code)
	if !ok {
		return nil, eris.Wrapf(model.ErrInvalidArgument, "cities: unknown country %q", country)
	}

	table, err := r.client.Records(ctx, opendatasoft.Query{
		Dataset: datasetCities,
		Fields:  []string{"city", "population", "geopoint"},
		Q:       "population>0",
		Refine:  map[string]string{"country": strings.ToLower(code)},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "cities: fetch %s", code)
	}

	cityIdx := table.Column("city")
	popIdx := table.Column("population")
	geoIdx := table.Column("geopoint")
	if cityIdx < 0 || popIdx < 0 || geoIdx < 0 {
		return nil, eris.Wrap(model.ErrParse, "cities: payload missing city/population/geopoint columns")
	}

	rows := make([]model.CityRow, 0, len(table.Rows))
	for _, rec := range table.Rows {
		if len(rec) <= cityIdx || len(rec) <= popIdx || len(rec) <= geoIdx {
			continue
		}
		city := strings.TrimSpace(rec[cityIdx])
		if city == "" {
			continue
		}
		pop, err := strconv.ParseFloat(strings.TrimSpace(rec[popIdx]), 64)
		if err != nil {
			continue
		}
		point, err := model.ParseGeopoint(rec[geoIdx])
		if err != nil {
			continue
		}
		rows = append(rows, model.CityRow{City: city, Population: int(pop), Geopoint: point})
	}

	populations := make([]float64, len(rows))
	for i, row := range rows {
		populations[i] = float64(row.Population)
	}
	threshold := Quantile(populations, 1-percentile/100)

	kept := make([]model.CityRow, 0, len(rows))
	for _, row := range rows {
		if float64(row.Population) > threshold {
			kept = append(kept, row)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Population > kept[j].Population
	})

	seen := make(map[string]struct{}, len(kept))
	deduped := kept[:0]
	for _, row := range kept {
		if _, dup := seen[row.City]; dup {
			continue
		}
		seen[row.City] = struct{}{}
		deduped = append(deduped, row)
	}

	zap.L().Info("cities retained",
		zap.String("country", code),
		zap.Float64("percentile", percentile),
		zap.Int("count", len(deduped)))

	return &Result{Country: code, CountryName: name, Threshold: threshold, Cities: deduped}, nil
}
