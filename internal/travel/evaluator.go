// Package travel evaluates driving and transit routes between an origin
// and a session's cities.
package travel

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/transitlab/transit-ratio/internal/model"
	"github.com/transitlab/transit-ratio/pkg/gmaps"
)

// DefaultConcurrency bounds the per-city route fan-out when no explicit
// limit is configured.
const DefaultConcurrency = 4

// Evaluator fills the route columns of a city table.
type Evaluator struct {
	client      gmaps.Client
	concurrency int
}

// NewEvaluator creates an evaluator. A concurrency below 1 falls back to
// DefaultConcurrency.
func NewEvaluator(client gmaps.Client, concurrency int) *Evaluator {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Evaluator{client: client, concurrency: concurrency}
}

// Evaluate geocodes origin and fills the driving and transit columns of
// every row, leaving row order untouched. The geocode only validates the
// origin; both endpoints of every directions call are address strings,
// the destination as "<city>, <country display name>", because the
// directions endpoint drops transit legs for some coordinate-form
// endpoints. A city without a usable route keeps nil columns. The
// geocoded origin point is returned for the caller to record.
func (e *Evaluator) Evaluate(ctx context.Context, origin, countryName string, rows []model.CityRow) (*model.Geopoint, error) {
	point, err := e.client.Geocode(ctx, origin)
	if err != nil {
		return nil, eris.Wrapf(err, "travel: geocode origin %q", origin)
	}
	if point == nil {
		return nil, eris.Wrapf(model.ErrInvalidArgument, "travel: not a valid origin %q", origin)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range rows {
		i := i
		g.Go(func() error {
			return e.evaluateRow(gctx, origin, countryName, &rows[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("origin", origin),
		zap.Int("cities", len(rows)),
	}
	if mean, ok := MeanDistanceKM(rows); ok {
		fields = append(fields, zap.Float64("mean_distance_km", mean))
	}
	zap.L().Info("routes evaluated", fields...)

	return point, nil
}

func (e *Evaluator) evaluateRow(ctx context.Context, origin, countryName string, row *model.CityRow) error {
	destination := fmt.Sprintf("%s, %s", row.City, countryName)

	for _, mode := range []model.TravelMode{model.ModeDriving, model.ModeTransit} {
		leg, err := e.client.Directions(ctx, origin, destination, mode)
		if err != nil {
			return eris.Wrapf(err, "travel: %s directions for %q", mode, row.City)
		}
		if leg == nil {
			continue
		}
		switch mode {
		case model.ModeDriving:
			row.DistanceDriving = &leg.DistanceMeters
			row.DurationDriving = &leg.DurationSeconds
		case model.ModeTransit:
			row.DistanceTransit = &leg.DistanceMeters
			row.DurationTransit = &leg.DurationSeconds
		}
	}

	// The ratio is undefined unless both durations exist and driving is
	// nonzero.
	if row.DurationDriving != nil && *row.DurationDriving != 0 && row.DurationTransit != nil {
		ratio := float64(*row.DurationTransit) / float64(*row.DurationDriving)
		row.Ratio = &ratio
	}
	return nil
}

// MeanDistanceKM returns the mean of the driving and transit mean route
// distances in kilometers, skipping nil columns. ok is false when either
// mode has no defined distance at all.
func MeanDistanceKM(rows []model.CityRow) (float64, bool) {
	var driveSum, transitSum float64
	var driveN, transitN int
	for _, row := range rows {
		if row.DistanceDriving != nil {
			driveSum += float64(*row.DistanceDriving)
			driveN++
		}
		if row.DistanceTransit != nil {
			transitSum += float64(*row.DistanceTransit)
			transitN++
		}
	}
	if driveN == 0 || transitN == 0 {
		return 0, false
	}
	return (driveSum/float64(driveN) + transitSum/float64(transitN)) / 2 / 1000, true
}
