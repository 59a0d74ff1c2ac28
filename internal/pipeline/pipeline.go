// Package pipeline orchestrates the analysis stages over persisted
// sessions: city retrieval, route evaluation and map building.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/transitlab/transit-ratio/internal/cities"
	"github.com/transitlab/transit-ratio/internal/config"
	"github.com/transitlab/transit-ratio/internal/metrics"
	"github.com/transitlab/transit-ratio/internal/model"
	"github.com/transitlab/transit-ratio/internal/render"
	"github.com/transitlab/transit-ratio/internal/store"
	"github.com/transitlab/transit-ratio/pkg/gmaps"
)

// CityRetriever fetches and filters a country's city table.
type CityRetriever interface {
	Retrieve(ctx context.Context, country string, percentile float64) (*cities.Result, error)
}

// RouteEvaluator geocodes an origin and joins route columns onto a city
// table in place.
type RouteEvaluator interface {
	Evaluate(ctx context.Context, origin, countryName string, rows []model.CityRow) (*model.Geopoint, error)
}

// Pipeline wires the analysis stages over a session store.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	retriever CityRetriever
	evaluator RouteEvaluator
	maps      gmaps.Client
	metrics   *metrics.Metrics
}

// New creates a Pipeline with all dependencies. metrics may be nil to
// disable instrumentation.
func New(
	cfg *config.Config,
	st store.Store,
	retriever CityRetriever,
	evaluator RouteEvaluator,
	mapsClient gmaps.Client,
	m *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		retriever: retriever,
		evaluator: evaluator,
		maps:      mapsClient,
		metrics:   m,
	}
}

// NewSession creates and persists an empty session shell. The display
// name and city table arrive with the first retrieval.
func (p *Pipeline) NewSession(ctx context.Context, country string, percentile float64) (*model.Session, error) {
	code := strings.ToUpper(strings.TrimSpace(country))
	sess, err := p.store.CreateSession(ctx, code, "", percentile)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create session")
	}
	return sess, nil
}

// RetrieveCities fetches and filters the city table for country at the
// given percentile, replacing the session's previous table, and persists
// the result.
func (p *Pipeline) RetrieveCities(ctx context.Context, sess *model.Session, country string, percentile float64) (err error) {
	start := time.Now()
	defer func() { p.observeStage("retrieve", start, err) }()

	result, err := p.retriever.Retrieve(ctx, country, percentile)
	if err != nil {
		return err
	}

	sess.Country = result.Country
	sess.CountryName = result.CountryName
	sess.Percentile = percentile
	sess.Cities = result.Cities

	if p.metrics != nil {
		p.metrics.CitiesRetained.Observe(float64(len(result.Cities)))
	}

	if err = p.store.SaveCities(ctx, sess); err != nil {
		return eris.Wrap(err, "pipeline: save cities")
	}

	zap.L().Info("pipeline: retrieval complete",
		zap.String("session", sess.ID),
		zap.String("country", sess.Country),
		zap.Float64("percentile", percentile),
		zap.Int("cities", len(sess.Cities)),
	)
	return nil
}

// CalculateTravel evaluates driving and transit routes from origin to
// every city in the session and persists the joined columns. An empty
// origin falls back to the configured default.
func (p *Pipeline) CalculateTravel(ctx context.Context, sess *model.Session, origin string) (err error) {
	start := time.Now()
	defer func() { p.observeStage("travel", start, err) }()

	if origin == "" {
		origin = p.cfg.Travel.Origin
	}

	point, err := p.evaluator.Evaluate(ctx, origin, sess.CountryName, sess.Cities)
	if err != nil {
		return err
	}

	sess.Origin = origin
	sess.OriginGeopoint = point

	if p.metrics != nil {
		for _, row := range sess.Cities {
			if row.HasRoutes() {
				p.metrics.RoutesEvaluated.Inc()
			}
		}
	}

	if err = p.store.SaveTravel(ctx, sess); err != nil {
		return eris.Wrap(err, "pipeline: save travel")
	}

	zap.L().Info("pipeline: travel complete",
		zap.String("session", sess.ID),
		zap.String("origin", origin),
	)
	return nil
}

// TopCities returns the n most populous rows of the session's table.
func (p *Pipeline) TopCities(sess *model.Session, n int) []model.CityRow {
	return sess.TopCities(n)
}

// BuildMap projects the session into a render-ready map view. The map
// centers on the country display name when it geocodes; a geocode
// failure or miss falls back to the origin marker, then the marker
// centroid. The session itself is never mutated.
func (p *Pipeline) BuildMap(ctx context.Context, sess *model.Session) (view *render.MapView, err error) {
	start := time.Now()
	defer func() { p.observeStage("render", start, err) }()

	style := render.DefaultStyle()
	if p.cfg.Render.Style != "" {
		style, err = render.LoadStyle(p.cfg.Render.Style)
		if err != nil {
			return nil, err
		}
	}

	var center *model.Geopoint
	if sess.CountryName != "" {
		center, err = p.maps.Geocode(ctx, sess.CountryName)
		if err != nil {
			zap.L().Warn("pipeline: country center geocode failed",
				zap.String("country", sess.CountryName),
				zap.Error(err),
			)
			center, err = nil, nil
		}
	}

	return render.Build(sess, center, style)
}

// Analyze runs the whole pipeline in one call: new session, retrieval,
// then route evaluation. It returns the enriched session.
func (p *Pipeline) Analyze(ctx context.Context, country string, percentile float64, origin string) (*model.Session, error) {
	sess, err := p.NewSession(ctx, country, percentile)
	if err != nil {
		return nil, err
	}
	if err := p.RetrieveCities(ctx, sess, country, percentile); err != nil {
		return nil, err
	}
	if err := p.CalculateTravel(ctx, sess, origin); err != nil {
		return nil, err
	}
	return sess, nil
}

// observeStage records the duration and outcome of one pipeline stage.
func (p *Pipeline) observeStage(stage string, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.metrics.PipelineRuns.WithLabelValues(stage, outcome).Inc()
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
